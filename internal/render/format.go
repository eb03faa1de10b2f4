package render

import (
	"strings"

	"github.com/noteup/noteup/internal/errors"
)

// Format selects the document flavor.
type Format string

// Supported formats.
const (
	FormatMarkdown Format = "markdown"
	FormatText     Format = "text"
)

// ParseFormat accepts "markdown", "md", "text" and "txt".
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "markdown", "md", "":
		return FormatMarkdown, nil
	case "text", "txt":
		return FormatText, nil
	default:
		return "", errors.Validationf("unknown format %q", s)
	}
}

// Extension returns the file extension including the dot.
func (f Format) Extension() string {
	if f == FormatText {
		return ".txt"
	}
	return ".md"
}

// ContentType returns the MIME type of documents in this format.
func (f Format) ContentType() string {
	if f == FormatText {
		return "text/plain; charset=utf-8"
	}
	return "text/markdown; charset=utf-8"
}

// style holds the punctuation that differs between flavors.
type style interface {
	heading(level int, text string) string
	quote(line string) string
	emphasis(text string) string
}

func styleFor(f Format) style {
	if f == FormatText {
		return textStyle{}
	}
	return markdownStyle{}
}

type markdownStyle struct{}

func (markdownStyle) heading(level int, text string) string {
	return strings.Repeat("#", level) + " " + text + "\n"
}

func (markdownStyle) quote(line string) string {
	if line == "" {
		return ">\n"
	}
	return "> " + line + "\n"
}

func (markdownStyle) emphasis(text string) string {
	return "_" + text + "_"
}

// textStyle underlines the two top heading levels and indents deeper ones.
type textStyle struct{}

func (textStyle) heading(level int, text string) string {
	width := len([]rune(text))
	switch level {
	case 1:
		return text + "\n" + strings.Repeat("=", width) + "\n"
	case 2:
		return text + "\n" + strings.Repeat("-", width) + "\n"
	default:
		return strings.Repeat("  ", level-2) + text + "\n"
	}
}

func (textStyle) quote(line string) string {
	if line == "" {
		return "    |\n"
	}
	return "    | " + line + "\n"
}

func (textStyle) emphasis(text string) string {
	return text
}
