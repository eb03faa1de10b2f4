package render

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noteup/noteup/internal/chapters"
	"github.com/noteup/noteup/internal/domain"
	domainerrors "github.com/noteup/noteup/internal/errors"
)

func colorPtr(c domain.Color) *domain.Color { return &c }

func sampleBook() *domain.Book {
	return &domain.Book{ID: "b1", Title: "Sample", Author: "Ann Author"}
}

func TestRender_BasicRoundTrip(t *testing.T) {
	book := sampleBook()
	entries := chapters.Build(book, []domain.TOCRow{
		{ContentID: "b1!ch1.xhtml-1", Title: "Ch1", Depth: 1, VolumeIndex: 0},
	})
	result := chapters.Reconcile(entries, []domain.Annotation{
		{ID: "n2", VolumeID: "b1!ch1.xhtml", Text: "Second highlight", Progress: 0.6},
		{ID: "n1", VolumeID: "b1!ch1.xhtml", Text: "First highlight", Progress: 0.1},
	})

	got := New(Options{}).RenderString(book, result.All())

	want := "# Sample\n" +
		"## Ann Author\n" +
		"\n" +
		"## Ch1\n" +
		"\n" +
		"* First highlight\n" +
		"* Second highlight\n" +
		"\n"
	assert.Equal(t, want, got)
	assert.NotContains(t, got, "> ")
}

func TestRender_MultilineTitlesStayOnHeadingLine(t *testing.T) {
	book := &domain.Book{ID: "b1", Title: "The\nHobbit", Author: "J.R.R.\n Tolkien"}
	chs := []domain.ChapterWithNotes{{
		ChapterEntry: domain.ChapterEntry{ID: "c1", Title: "Part One\nThe Beginning", Depth: 1},
		Notes:        []domain.Annotation{{ID: "n1", Text: "x", Progress: 0.1}},
	}}

	for _, f := range []Format{FormatMarkdown, FormatText} {
		t.Run(string(f), func(t *testing.T) {
			got := New(Options{Format: f}).RenderString(book, chs)
			assert.Contains(t, got, "The Hobbit\n")
			assert.Contains(t, got, "J.R.R. Tolkien\n")
			assert.Contains(t, got, "Part One The Beginning\n")
			assert.NotContains(t, got, "\nThe Beginning")
		})
	}
}

func TestRender_CommentsAndColors(t *testing.T) {
	book := sampleBook()
	chs := []domain.ChapterWithNotes{{
		ChapterEntry: domain.ChapterEntry{ID: "c1", Title: "Part One", Depth: 1},
		Notes: []domain.Annotation{
			{ID: "a", Text: "  spread\n across   lines ", Color: colorPtr(domain.ColorPink)},
			{ID: "b", Text: "with a note", Comment: "first thought\r\nsecond thought\n", Color: colorPtr(domain.ColorGreen)},
		},
	}}

	got := New(Options{}).RenderString(book, chs)

	assert.Contains(t, got, "* 🔴 spread across lines\n")
	assert.Contains(t, got, "* 🟢 with a note\n> first thought\n> second thought\n")
}

func TestRender_UnknownColorMatchesNoColor(t *testing.T) {
	book := sampleBook()
	withColor := func(c *domain.Color) []domain.ChapterWithNotes {
		return []domain.ChapterWithNotes{{
			ChapterEntry: domain.ChapterEntry{ID: "c1", Title: "Ch", Depth: 1},
			Notes:        []domain.Annotation{{ID: "a", Text: "text", Color: c}},
		}}
	}

	r := New(Options{})
	unknown := r.RenderString(book, withColor(colorPtr(domain.Color(7))))
	none := r.RenderString(book, withColor(nil))

	assert.Equal(t, none, unknown)
	assert.Contains(t, none, "* text\n")
}

func TestRender_HeadingLevelsClamped(t *testing.T) {
	book := sampleBook()
	chs := []domain.ChapterWithNotes{
		{ChapterEntry: domain.ChapterEntry{ID: "1", Title: "Zero", Depth: 0}},
		{ChapterEntry: domain.ChapterEntry{ID: "2", Title: "Deep", Depth: 3}},
		{ChapterEntry: domain.ChapterEntry{ID: "3", Title: "Too deep", Depth: 9}},
	}

	got := New(Options{}).RenderString(book, chs)

	assert.Contains(t, got, "\n## Zero\n")
	assert.Contains(t, got, "\n#### Deep\n")
	assert.Contains(t, got, "\n###### Too deep\n")
	assert.NotContains(t, got, "#######")
}

func TestRender_UnmatchedBucket(t *testing.T) {
	book := sampleBook()
	result := chapters.Reconcile(
		chapters.Build(book, nil),
		[]domain.Annotation{{ID: "x", Text: "orphan", Progress: 2}},
	)

	got := New(Options{}).RenderString(book, result.All())

	assert.Contains(t, got, "## Unmatched notes\n\n_These notes could not be matched to a specific chapter._\n\n* orphan\n")
}

func TestRender_EmptyUnmatchedBucketSkipped(t *testing.T) {
	book := sampleBook()
	result := chapters.Reconcile(chapters.Build(book, nil), nil)
	chs := append(result.All(), result.Unmatched)

	got := New(Options{}).RenderString(book, chs)

	assert.NotContains(t, got, "Unmatched")
	assert.Contains(t, got, "## Sample\n")
}

func TestRender_OmitEmptyChapters(t *testing.T) {
	book := sampleBook()
	chs := []domain.ChapterWithNotes{
		{ChapterEntry: domain.ChapterEntry{ID: "1", Title: "Empty", Depth: 1}},
		{ChapterEntry: domain.ChapterEntry{ID: "2", Title: "Full", Depth: 1}, Notes: []domain.Annotation{{Text: "x"}}},
	}

	kept := New(Options{}).RenderString(book, chs)
	omitted := New(Options{OmitEmptyChapters: true}).RenderString(book, chs)

	assert.Contains(t, kept, "## Empty\n")
	assert.NotContains(t, omitted, "Empty")
	assert.Contains(t, omitted, "## Full\n")
}

func TestRender_MissingAuthorAndTitle(t *testing.T) {
	got := New(Options{}).RenderString(&domain.Book{ID: "b"}, nil)

	assert.Equal(t, "# Untitled\n## Unknown author\n\n", got)
}

func TestRender_TextFlavor(t *testing.T) {
	book := sampleBook()
	chs := []domain.ChapterWithNotes{{
		ChapterEntry: domain.ChapterEntry{ID: "c1", Title: "Ch1", Depth: 1},
		Notes:        []domain.Annotation{{Text: "quoted", Comment: "mine"}},
	}}

	markdown := New(Options{Format: FormatMarkdown}).RenderString(book, chs)
	text := New(Options{Format: FormatText}).RenderString(book, chs)

	assert.Equal(t, "Sample\n======\nAnn Author\n----------\n\nCh1\n---\n\n* quoted\n    | mine\n\n", text)
	assert.NotEqual(t, markdown, text)
	assert.Contains(t, markdown, "* quoted\n> mine\n")
}

func TestRender_Description(t *testing.T) {
	book := sampleBook()
	book.Description = "<p>A <strong>bold</strong> tale.</p>"

	without := New(Options{}).RenderString(book, nil)
	with := New(Options{IncludeDescription: true}).RenderString(book, nil)

	assert.NotContains(t, without, "tale")
	assert.Contains(t, with, "A **bold** tale.")
	assert.NotContains(t, with, "<p>")
}

func TestRender_Deterministic(t *testing.T) {
	book := sampleBook()
	chs := []domain.ChapterWithNotes{{
		ChapterEntry: domain.ChapterEntry{ID: "c1", Title: "Ch1", Depth: 2},
		Notes: []domain.Annotation{
			{Text: "a", Color: colorPtr(domain.ColorBlue), Comment: "c"},
			{Text: "b"},
		},
	}}
	r := New(Options{})

	first := r.RenderString(book, chs)
	for range 10 {
		assert.Equal(t, first, r.RenderString(book, chs))
	}
}

func TestRender_ExportedAtTrailingLine(t *testing.T) {
	book := sampleBook()
	at := time.Date(2024, 5, 17, 13, 0, 0, 0, time.UTC)

	plain := New(Options{}).RenderString(book, nil)
	stamped := New(Options{ExportedAt: func() time.Time { return at }}).RenderString(book, nil)

	assert.Equal(t, plain+"_Exported on 2024-05-17_\n", stamped)
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }

func TestRender_WriterErrors(t *testing.T) {
	err := New(Options{}).Render(failingWriter{}, sampleBook(), nil)

	require.Error(t, err)
	assert.True(t, domainerrors.Is(err, domainerrors.ErrRenderFailed))
}

func TestRender_WritesWholeDocument(t *testing.T) {
	var buf bytes.Buffer
	r := New(Options{})

	require.NoError(t, r.Render(&buf, sampleBook(), nil))
	assert.Equal(t, r.RenderString(sampleBook(), nil), buf.String())
}

func TestPlaceholder(t *testing.T) {
	got := New(Options{}).Placeholder("b9", domainerrors.NotFoundf("book %q not found", "b9"))

	assert.Contains(t, got, "# Export failed: b9\n")
	assert.Contains(t, got, "_This book could not be exported._")
	assert.Contains(t, got, `> book "b9" not found`)
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"markdown", FormatMarkdown, false},
		{"MD", FormatMarkdown, false},
		{"text", FormatText, false},
		{"txt", FormatText, false},
		{"pdf", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFormat(tt.in)
			if tt.wantErr {
				assert.True(t, domainerrors.Is(err, domainerrors.ErrValidation))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	assert.Equal(t, ".md", FormatMarkdown.Extension())
	assert.Equal(t, ".txt", FormatText.Extension())
}
