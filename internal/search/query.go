package search

import (
	"context"
	"fmt"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/search/query"
)

// Params configures a search query.
type Params struct {
	Query  string // User's search query; empty matches every highlight
	BookID string // Restrict to one book
	Color  string // Restrict to one highlight color

	// Pagination
	Limit  int
	Offset int

	// Options
	IncludeFacets bool // Include per-book hit counts
	Highlight     bool // Include match highlighting
}

// DefaultLimit is the page size when Params.Limit is unset.
const DefaultLimit = 20

// DefaultParams returns sensible defaults.
func DefaultParams() Params {
	return Params{
		Limit:         DefaultLimit,
		IncludeFacets: true,
		Highlight:     true,
	}
}

// Result represents the search results.
type Result struct {
	Query  string       `json:"query"`
	Total  uint64       `json:"total"`
	TookMs int64        `json:"took_ms"`
	Hits   []Hit        `json:"hits"`
	Books  []FacetCount `json:"books,omitempty"`
}

// Hit is one matching highlight.
type Hit struct {
	ID           string            `json:"id"`
	Score        float64           `json:"score"`
	BookID       string            `json:"book_id"`
	BookTitle    string            `json:"book_title"`
	ChapterID    string            `json:"chapter_id,omitempty"`
	ChapterTitle string            `json:"chapter_title"`
	Text         string            `json:"text"`
	Comment      string            `json:"comment,omitempty"`
	Color        string            `json:"color,omitempty"`
	Progress     float64           `json:"progress"`
	Highlights   map[string]string `json:"highlights,omitempty"`
}

// FacetCount represents a facet value and its count.
type FacetCount struct {
	Value string `json:"value"`
	Count int    `json:"count"`
}

var storedFields = []string{
	"book_id", "book_title", "chapter_id", "chapter_title",
	"text", "comment", "color", "progress",
}

// Search executes a search query.
func (s *Index) Search(ctx context.Context, params Params) (*Result, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if params.Limit <= 0 {
		params.Limit = DefaultLimit
	}

	searchRequest := bleve.NewSearchRequestOptions(buildQuery(params), params.Limit, params.Offset, false)
	// Ties broken by id so pages are stable.
	searchRequest.SortBy([]string{"-_score", "_id"})
	searchRequest.Fields = storedFields

	if params.IncludeFacets {
		searchRequest.AddFacet("book_id", bleve.NewFacetRequest("book_id", 20))
	}

	if params.Highlight {
		searchRequest.Highlight = bleve.NewHighlight()
		searchRequest.Highlight.AddField("text")
		searchRequest.Highlight.AddField("comment")
	}

	searchResult, err := s.index.SearchInContext(ctx, searchRequest)
	if err != nil {
		return nil, fmt.Errorf("execute search: %w", err)
	}

	result := &Result{
		Query:  params.Query,
		Total:  searchResult.Total,
		TookMs: searchResult.Took.Milliseconds(),
		Hits:   make([]Hit, 0, len(searchResult.Hits)),
	}

	for _, hit := range searchResult.Hits {
		h := Hit{
			ID:           hit.ID,
			Score:        hit.Score,
			BookID:       stringField(hit.Fields, "book_id"),
			BookTitle:    stringField(hit.Fields, "book_title"),
			ChapterID:    stringField(hit.Fields, "chapter_id"),
			ChapterTitle: stringField(hit.Fields, "chapter_title"),
			Text:         stringField(hit.Fields, "text"),
			Comment:      stringField(hit.Fields, "comment"),
			Color:        stringField(hit.Fields, "color"),
		}
		if p, ok := hit.Fields["progress"].(float64); ok {
			h.Progress = p
		}

		if len(hit.Fragments) > 0 {
			h.Highlights = make(map[string]string)
			for field, fragments := range hit.Fragments {
				if len(fragments) > 0 {
					h.Highlights[field] = fragments[0]
				}
			}
		}

		result.Hits = append(result.Hits, h)
	}

	if facet, ok := searchResult.Facets["book_id"]; ok && facet.Terms != nil {
		for _, term := range facet.Terms.Terms() {
			result.Books = append(result.Books, FacetCount{Value: term.Term, Count: term.Count})
		}
	}

	return result, nil
}

func stringField(fields map[string]any, name string) string {
	v, _ := fields[name].(string)
	return v
}

// buildQuery constructs the Bleve query from params.
//
// Highlight text ranks above comments, which rank above chapter and book
// titles. A fuzzy match on the text tolerates one typo.
func buildQuery(params Params) query.Query {
	var queries []query.Query

	if q := strings.TrimSpace(params.Query); q != "" {
		textMatch := bleve.NewMatchQuery(q)
		textMatch.SetField("text")
		textMatch.SetBoost(3.0)

		commentMatch := bleve.NewMatchQuery(q)
		commentMatch.SetField("comment")
		commentMatch.SetBoost(2.0)

		chapterMatch := bleve.NewMatchQuery(q)
		chapterMatch.SetField("chapter_title")
		chapterMatch.SetBoost(1.0)

		bookMatch := bleve.NewMatchQuery(q)
		bookMatch.SetField("book_title")
		bookMatch.SetBoost(0.5)

		textQueries := []query.Query{textMatch, commentMatch, chapterMatch, bookMatch}

		// Fuzzy only makes sense for a single word.
		if !strings.ContainsAny(q, " \t") && len([]rune(q)) >= 4 {
			fuzzy := bleve.NewFuzzyQuery(strings.ToLower(q))
			fuzzy.SetFuzziness(1)
			fuzzy.SetField("text")
			fuzzy.SetBoost(0.8)
			textQueries = append(textQueries, fuzzy)
		}

		queries = append(queries, bleve.NewDisjunctionQuery(textQueries...))
	}

	if params.BookID != "" {
		bq := bleve.NewTermQuery(params.BookID)
		bq.SetField("book_id")
		queries = append(queries, bq)
	}

	if params.Color != "" {
		cq := bleve.NewTermQuery(strings.ToLower(params.Color))
		cq.SetField("color")
		queries = append(queries, cq)
	}

	if len(queries) == 0 {
		return bleve.NewMatchAllQuery()
	}
	if len(queries) == 1 {
		return queries[0]
	}
	return bleve.NewConjunctionQuery(queries...)
}
