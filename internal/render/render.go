// Package render turns a book and its reconciled chapters into a Markdown
// or plain-text document.
package render

import (
	"fmt"
	"io"
	"regexp"
	"strings"
	"time"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"

	"github.com/noteup/noteup/internal/domain"
	"github.com/noteup/noteup/internal/errors"
)

const (
	// Chapter headings sit below the title and author headings.
	minChapterLevel = 2
	maxChapterLevel = 6

	unmatchedNote = "These notes could not be matched to a specific chapter."
)

// Options control optional parts of the document.
type Options struct {
	Format Format

	// OmitEmptyChapters drops chapters without annotations. The unmatched
	// bucket is only ever rendered when it has annotations.
	OmitEmptyChapters bool

	// IncludeDescription renders the book description below the author.
	IncludeDescription bool

	// ExportedAt, when set, appends an "Exported on" line. It is the only
	// part of a document that may differ between two renders.
	ExportedAt func() time.Time
}

// Renderer renders documents. It holds no per-document state and is safe
// for concurrent use.
type Renderer struct {
	opts  Options
	style style
}

// New creates a renderer.
func New(opts Options) *Renderer {
	if opts.Format == "" {
		opts.Format = FormatMarkdown
	}
	return &Renderer{opts: opts, style: styleFor(opts.Format)}
}

// Format returns the document format.
func (r *Renderer) Format() Format {
	return r.opts.Format
}

// Render writes the document for book to w. Nothing is written until the
// whole document has been built.
func (r *Renderer) Render(w io.Writer, book *domain.Book, chapters []domain.ChapterWithNotes) error {
	doc := r.build(book, chapters)
	if _, err := io.WriteString(w, doc); err != nil {
		return errors.Wrapf(err, errors.CodeRenderFailed, "write document for %q", book.ID)
	}
	return nil
}

// RenderString returns the document for book.
func (r *Renderer) RenderString(book *domain.Book, chapters []domain.ChapterWithNotes) string {
	return r.build(book, chapters)
}

func (r *Renderer) build(book *domain.Book, chapters []domain.ChapterWithNotes) string {
	var b strings.Builder

	b.WriteString(r.heading(1, book.DisplayTitle()))
	b.WriteString(r.heading(2, book.DisplayAuthor()))
	b.WriteString("\n")

	if r.opts.IncludeDescription {
		if desc := descriptionText(book.Description); desc != "" {
			b.WriteString(desc)
			b.WriteString("\n\n")
		}
	}

	for i := range chapters {
		ch := &chapters[i]
		if len(ch.Notes) == 0 && (r.opts.OmitEmptyChapters || ch.IsUnmatched()) {
			continue
		}
		r.writeChapter(&b, ch)
	}

	r.writeExportedAt(&b)
	return b.String()
}

func (r *Renderer) writeChapter(b *strings.Builder, ch *domain.ChapterWithNotes) {
	b.WriteString(r.heading(headingLevel(ch.Depth), ch.Title))
	b.WriteString("\n")

	if ch.IsUnmatched() {
		b.WriteString(r.style.emphasis(unmatchedNote))
		b.WriteString("\n\n")
	}

	if len(ch.Notes) == 0 {
		return
	}
	for i := range ch.Notes {
		r.writeAnnotation(b, &ch.Notes[i])
	}
	b.WriteString("\n")
}

func (r *Renderer) writeAnnotation(b *strings.Builder, a *domain.Annotation) {
	b.WriteString("* ")
	if marker := a.Marker(); marker != "" {
		b.WriteString(marker)
		b.WriteString(" ")
	}
	b.WriteString(collapseWhitespace(a.Text))
	b.WriteString("\n")

	comment := strings.TrimSpace(a.Comment)
	if comment == "" {
		return
	}
	for _, line := range lineBreak.Split(comment, -1) {
		b.WriteString(r.style.quote(strings.TrimRight(line, " \t")))
	}
}

func (r *Renderer) writeExportedAt(b *strings.Builder) {
	if r.opts.ExportedAt == nil {
		return
	}
	b.WriteString(r.style.emphasis("Exported on " + r.opts.ExportedAt().Format(time.DateOnly)))
	b.WriteString("\n")
}

// Placeholder returns the document used in place of a book that failed to
// export, so batch output still accounts for every requested book.
func (r *Renderer) Placeholder(bookID string, cause error) string {
	var b strings.Builder
	b.WriteString(r.heading(1, "Export failed: "+bookID))
	b.WriteString("\n")
	b.WriteString(r.style.emphasis("This book could not be exported."))
	b.WriteString("\n\n")
	if cause != nil {
		b.WriteString(r.style.quote(collapseWhitespace(cause.Error())))
	}
	return b.String()
}

func headingLevel(depth int) int {
	level := depth + 1
	if level < minChapterLevel {
		return minChapterLevel
	}
	if level > maxChapterLevel {
		return maxChapterLevel
	}
	return level
}

var lineBreak = regexp.MustCompile(`\r\n|\r|\n`)

// heading writes a single-line heading; titles may carry line breaks.
func (r *Renderer) heading(level int, text string) string {
	return r.style.heading(level, collapseWhitespace(text))
}

func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// htmlTagPattern matches common HTML tags to detect if a string contains HTML.
var htmlTagPattern = regexp.MustCompile(`<(p|br|div|span|b|i|strong|em|a|ul|ol|li|h[1-6]|blockquote)[\s>/]`)

// descriptionText converts a Kobo description to Markdown. Descriptions
// without markup are returned trimmed.
func descriptionText(s string) string {
	s = strings.TrimSpace(s)
	if s == "" || !htmlTagPattern.MatchString(strings.ToLower(s)) {
		return s
	}

	markdown, err := htmltomarkdown.ConvertString(s)
	if err != nil {
		return s
	}
	return strings.TrimSpace(markdown)
}

// SeparatorWidth is the width of the line between books in a combined document.
const SeparatorWidth = 50

// CombinedHeader opens a document holding several books.
func (r *Renderer) CombinedHeader(total int) string {
	var b strings.Builder
	b.WriteString(r.style.heading(1, "All Books Export"))
	b.WriteString("\n")
	b.WriteString(r.style.emphasis(fmt.Sprintf("Total Books: %d", total)))
	b.WriteString("\n\n")
	return b.String()
}

// Separator returns the line placed between books in a combined document.
func (r *Renderer) Separator() string {
	return "\n" + strings.Repeat("=", SeparatorWidth) + "\n\n"
}

// Footer returns the trailing "Exported on" line, or "" without a clock.
func (r *Renderer) Footer() string {
	var b strings.Builder
	r.writeExportedAt(&b)
	return b.String()
}

// WithoutFooter returns a renderer with the same options but no trailing
// export line, for documents embedded in a larger one.
func (r *Renderer) WithoutFooter() *Renderer {
	opts := r.opts
	opts.ExportedAt = nil
	return New(opts)
}
