package search

import (
	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/simple"
	"github.com/blevesearch/bleve/v2/analysis/lang/en"
	"github.com/blevesearch/bleve/v2/mapping"
)

// buildIndexMapping creates the Bleve index mapping for highlight documents.
//
// Highlight text and comments get English stemming and term vectors for
// fragment highlighting. Titles use the simple analyzer so a query for a
// chapter name is not stemmed away. Ids and colors are keywords for filtering.
func buildIndexMapping() mapping.IndexMapping {
	indexMapping := bleve.NewIndexMapping()
	indexMapping.DefaultAnalyzer = en.AnalyzerName

	docMapping := bleve.NewDocumentMapping()

	// --- Text fields (full-text searchable) ---

	textFieldMapping := bleve.NewTextFieldMapping()
	textFieldMapping.Analyzer = en.AnalyzerName
	textFieldMapping.Store = true
	textFieldMapping.IncludeTermVectors = true
	docMapping.AddFieldMappingsAt("text", textFieldMapping)

	commentFieldMapping := bleve.NewTextFieldMapping()
	commentFieldMapping.Analyzer = en.AnalyzerName
	commentFieldMapping.Store = true
	commentFieldMapping.IncludeTermVectors = true
	docMapping.AddFieldMappingsAt("comment", commentFieldMapping)

	for _, field := range []string{"book_title", "chapter_title", "author"} {
		titleFieldMapping := bleve.NewTextFieldMapping()
		titleFieldMapping.Analyzer = simple.Name
		titleFieldMapping.Store = true
		docMapping.AddFieldMappingsAt(field, titleFieldMapping)
	}

	// --- Keyword fields (exact match, facetable) ---

	for _, field := range []string{"id", "book_id", "chapter_id", "color"} {
		keywordFieldMapping := bleve.NewTextFieldMapping()
		keywordFieldMapping.Analyzer = keyword.Name
		keywordFieldMapping.Store = true
		docMapping.AddFieldMappingsAt(field, keywordFieldMapping)
	}

	// --- Numeric fields (sorting) ---

	progressFieldMapping := bleve.NewNumericFieldMapping()
	progressFieldMapping.Store = true
	docMapping.AddFieldMappingsAt("progress", progressFieldMapping)

	createdAtFieldMapping := bleve.NewNumericFieldMapping()
	createdAtFieldMapping.Store = true
	docMapping.AddFieldMappingsAt("created_at", createdAtFieldMapping)

	indexMapping.AddDocumentMapping("_default", docMapping)

	return indexMapping
}
