// Package domain contains the core entities of the NoteUp highlight exporter.
package domain

import "time"

// Source describes how a book arrived on the device.
type Source string

// Book sources. Kobo records them in content.Accessibility.
const (
	SourceStore   Source = "store"
	SourceImport  Source = "import"
	SourcePreview Source = "preview"
	SourceOther   Source = "other"
)

// SourceFromAccessibility maps the Kobo Accessibility column onto a Source.
func SourceFromAccessibility(v int) Source {
	switch v {
	case 1:
		return SourceStore
	case -1:
		return SourceImport
	case 6:
		return SourcePreview
	default:
		return SourceOther
	}
}

// Book is a volume known to the source database.
type Book struct {
	LastRead     *time.Time `json:"last_read,omitempty"`
	ID           string     `json:"id"`
	Title        string     `json:"title"`
	Subtitle     string     `json:"subtitle,omitempty"`
	Author       string     `json:"author,omitempty"`
	Publisher    string     `json:"publisher,omitempty"`
	ISBN         string     `json:"isbn,omitempty"`
	ReleaseDate  string     `json:"release_date,omitempty"`
	Series       string     `json:"series,omitempty"`
	SeriesNumber string     `json:"series_number,omitempty"`
	Description  string     `json:"description,omitempty"` // HTML as stored on the device
	Source       Source     `json:"source"`
	Rating       float64    `json:"rating,omitempty"`
	ReadPercent  int        `json:"read_percent"`
	FileSize     int64      `json:"file_size,omitempty"`
}

// DisplayTitle returns the title used in rendered documents.
func (b *Book) DisplayTitle() string {
	if b.Title == "" {
		return "Untitled"
	}
	return b.Title
}

// DisplayAuthor returns the author used in rendered documents.
func (b *Book) DisplayAuthor() string {
	if b.Author == "" {
		return "Unknown author"
	}
	return b.Author
}
