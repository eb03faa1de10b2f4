package export

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

const (
	// MaxFilenameRunes bounds the base name of an exported file.
	MaxFilenameRunes = 200
	// MaxFilenameBytes bounds the UTF-8 length of the base name, leaving
	// room for a " (N)" suffix and the extension under the usual 255-byte
	// name limit.
	MaxFilenameBytes = 240
)

var (
	// Characters that are unsafe in a filename on at least one filesystem.
	unsafeFilenameChars = regexp.MustCompile(`[<>:"/\\|?*]`)
	whitespaceRun       = regexp.MustCompile(`\s+`)
)

// SafeFilename derives a filename base from a book title.
// "Dune: Messiah" -> "Dune- Messiah".
// "What/If?" -> "What-If-".
func SafeFilename(title string) string {
	s := norm.NFC.String(title)
	s = unsafeFilenameChars.ReplaceAllString(s, "-")
	s = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return ' '
		}
		return r
	}, s)
	s = whitespaceRun.ReplaceAllString(s, " ")
	s = strings.TrimSpace(s)

	s = truncateFilename(s)

	// Leading dots would hide the file on Unix.
	s = strings.TrimLeft(s, ".")
	if s == "" {
		return "untitled"
	}
	return s
}

// truncateFilename cuts s to MaxFilenameRunes runes and MaxFilenameBytes
// bytes, always at a rune boundary.
func truncateFilename(s string) string {
	if len(s) <= MaxFilenameBytes && utf8.RuneCountInString(s) <= MaxFilenameRunes {
		return s
	}
	n := 0
	for i, r := range s {
		if n == MaxFilenameRunes || i+utf8.RuneLen(r) > MaxFilenameBytes {
			return strings.TrimSpace(s[:i])
		}
		n++
	}
	return s
}

// filenames hands out unique names within one archive.
type filenames struct {
	used map[string]bool
}

func newFilenames() *filenames {
	return &filenames{used: make(map[string]bool)}
}

// next returns base+ext, or "base (N)"+ext when the name is already taken.
// Names are compared case-insensitively.
func (f *filenames) next(base, ext string) string {
	name := base + ext
	for n := 2; f.used[strings.ToLower(name)]; n++ {
		name = fmt.Sprintf("%s (%d)%s", base, n, ext)
	}
	f.used[strings.ToLower(name)] = true
	return name
}
