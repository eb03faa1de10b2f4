package search

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noteup/noteup/internal/domain"
	"github.com/noteup/noteup/internal/logger"
	"github.com/noteup/noteup/internal/service"
	"github.com/noteup/noteup/internal/store/kobo"
	"github.com/noteup/noteup/internal/store/kobo/kobotest"
)

// setupLibraryIndex loads the fixture library into a fresh index.
func setupLibraryIndex(t *testing.T) *Index {
	t.Helper()
	log := logger.Discard().Logger

	s, err := kobo.Open(context.Background(), kobotest.Library().Bytes(t), log)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	index, err := NewIndex(log)
	require.NoError(t, err)
	t.Cleanup(func() { _ = index.Close() })

	books, err := index.Load(context.Background(), service.NewNotesService(s, log))
	require.NoError(t, err)
	require.Equal(t, 2, books)

	return index
}

func search(t *testing.T, index *Index, mutate func(*Params)) *Result {
	t.Helper()
	params := DefaultParams()
	mutate(&params)
	result, err := index.Search(context.Background(), params)
	require.NoError(t, err)
	return result
}

func hitIDs(r *Result) []string {
	ids := make([]string, len(r.Hits))
	for i, h := range r.Hits {
		ids[i] = h.ID
	}
	return ids
}

func TestIndex_Load(t *testing.T) {
	index := setupLibraryIndex(t)

	count, err := index.DocumentCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(4), count)
}

func TestSearch_HighlightText(t *testing.T) {
	index := setupLibraryIndex(t)

	result := search(t, index, func(p *Params) { p.Query = "trolls" })

	require.Equal(t, []string{"h2"}, hitIDs(result))
	hit := result.Hits[0]
	assert.Equal(t, "b1", hit.BookID)
	assert.Equal(t, "The Hobbit", hit.BookTitle)
	assert.Equal(t, "Roast Mutton", hit.ChapterTitle)
	assert.Equal(t, "They were trolls.", hit.Text)
	assert.Equal(t, "Classic", hit.Comment)
	assert.Equal(t, "blue", hit.Color)
	assert.InDelta(t, 0.5, hit.Progress, 1e-9)
	assert.Contains(t, hit.Highlights["text"], "mark")
}

func TestSearch_Comment(t *testing.T) {
	index := setupLibraryIndex(t)

	result := search(t, index, func(p *Params) { p.Query = "classic" })
	assert.Equal(t, []string{"h2"}, hitIDs(result))
}

func TestSearch_TextRanksAboveBookTitle(t *testing.T) {
	index := setupLibraryIndex(t)

	result := search(t, index, func(p *Params) { p.Query = "hobbit" })

	assert.Equal(t, uint64(3), result.Total)
	require.NotEmpty(t, result.Hits)
	assert.Equal(t, "h1", result.Hits[0].ID)
}

func TestSearch_UnmatchedHighlight(t *testing.T) {
	index := setupLibraryIndex(t)

	result := search(t, index, func(p *Params) { p.Query = "lost" })

	require.Equal(t, []string{"h3"}, hitIDs(result))
	assert.Empty(t, result.Hits[0].ChapterID)
	assert.Equal(t, "Unmatched notes", result.Hits[0].ChapterTitle)
}

func TestSearch_Filters(t *testing.T) {
	index := setupLibraryIndex(t)

	tests := []struct {
		name   string
		params func(*Params)
		want   []string
	}{
		{"book filter excludes other books", func(p *Params) { p.Query = "hobbit"; p.BookID = "b2" }, []string{}},
		{"book filter without query", func(p *Params) { p.BookID = "b2" }, []string{"d1"}},
		{"color filter", func(p *Params) { p.Color = "Yellow" }, []string{"h1"}},
		{"multi-word query", func(p *Params) { p.Query = "mind killer" }, []string{"d1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := search(t, index, tt.params)
			assert.Equal(t, tt.want, hitIDs(result))
		})
	}
}

func TestSearch_EmptyQueryMatchesAll(t *testing.T) {
	index := setupLibraryIndex(t)

	result := search(t, index, func(p *Params) {})

	assert.Equal(t, uint64(4), result.Total)
	assert.ElementsMatch(t, []FacetCount{{Value: "b1", Count: 3}, {Value: "b2", Count: 1}}, result.Books)
}

func TestSearch_Pagination(t *testing.T) {
	index := setupLibraryIndex(t)

	first := search(t, index, func(p *Params) { p.Limit = 2 })
	second := search(t, index, func(p *Params) { p.Limit = 2; p.Offset = 2 })

	require.Len(t, first.Hits, 2)
	require.Len(t, second.Hits, 2)
	assert.NotContains(t, hitIDs(second), first.Hits[0].ID)
	assert.NotContains(t, hitIDs(second), first.Hits[1].ID)
}

func TestIndex_Reset(t *testing.T) {
	index := setupLibraryIndex(t)

	require.NoError(t, index.Reset())

	count, err := index.DocumentCount()
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestDocumentsFor(t *testing.T) {
	yellow := domain.ColorYellow
	unknown := domain.Color(9)
	created := time.Date(2024, 2, 1, 9, 0, 0, 0, time.UTC)
	book := &domain.Book{ID: "b1", Author: "A. Writer"}

	docs := DocumentsFor(book, []domain.ChapterWithNotes{
		{
			ChapterEntry: domain.ChapterEntry{ID: "c1", Title: "One"},
			Notes: []domain.Annotation{
				{ID: "n1", Text: "first", Color: &yellow, CreatedAt: created},
				{ID: "n2", Text: "second", Color: &unknown},
			},
		},
		{
			ChapterEntry: domain.ChapterEntry{ID: domain.UnmatchedID, Title: "Unmatched notes"},
			Notes:        []domain.Annotation{{ID: "n3", Text: "stray"}},
		},
	})

	require.Len(t, docs, 3)
	assert.Equal(t, "Untitled", docs[0].BookTitle)
	assert.Equal(t, "c1", docs[0].ChapterID)
	assert.Equal(t, "yellow", docs[0].Color)
	assert.Equal(t, created.UnixMilli(), docs[0].CreatedAt)
	assert.Empty(t, docs[1].Color)
	assert.Zero(t, docs[1].CreatedAt)
	assert.Empty(t, docs[2].ChapterID)

	m := docs[1].ToMap()
	assert.NotContains(t, m, "color")
	assert.NotContains(t, m, "comment")
	assert.Equal(t, "A. Writer", m["author"])
}
