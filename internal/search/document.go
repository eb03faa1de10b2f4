// Package search provides full-text search over reconciled highlights
// using Bleve. The index lives in memory and is rebuilt from a source
// snapshot; it is never persisted.
package search

import (
	"github.com/noteup/noteup/internal/domain"
)

// Document is one highlight as stored in the index. Book and chapter
// fields are denormalized so a hit can be shown without another lookup.
type Document struct {
	ID           string  `json:"id"` // annotation id
	BookID       string  `json:"book_id"`
	BookTitle    string  `json:"book_title"`
	Author       string  `json:"author,omitempty"`
	ChapterID    string  `json:"chapter_id"`
	ChapterTitle string  `json:"chapter_title"`
	Text         string  `json:"text"`
	Comment      string  `json:"comment,omitempty"`
	Color        string  `json:"color,omitempty"`
	Progress     float64 `json:"progress"`
	CreatedAt    int64   `json:"created_at,omitempty"` // Unix millis
}

// ToMap converts the document to a map with the field names used by
// the index mapping.
func (d *Document) ToMap() map[string]any {
	m := map[string]any{
		"id":            d.ID,
		"book_id":       d.BookID,
		"book_title":    d.BookTitle,
		"chapter_id":    d.ChapterID,
		"chapter_title": d.ChapterTitle,
		"text":          d.Text,
		"progress":      d.Progress,
	}
	if d.Author != "" {
		m["author"] = d.Author
	}
	if d.Comment != "" {
		m["comment"] = d.Comment
	}
	if d.Color != "" {
		m["color"] = d.Color
	}
	if d.CreatedAt != 0 {
		m["created_at"] = d.CreatedAt
	}
	return m
}

// DocumentsFor builds one document per highlight of a reconciled book.
// Highlights in the unmatched bucket are indexed with an empty chapter id.
func DocumentsFor(book *domain.Book, chapters []domain.ChapterWithNotes) []*Document {
	var docs []*Document
	for _, ch := range chapters {
		chapterID := ch.ID
		if ch.IsUnmatched() {
			chapterID = ""
		}
		for _, a := range ch.Notes {
			doc := &Document{
				ID:           a.ID,
				BookID:       book.ID,
				BookTitle:    book.DisplayTitle(),
				Author:       book.Author,
				ChapterID:    chapterID,
				ChapterTitle: ch.Title,
				Text:         a.Text,
				Comment:      a.Comment,
				Progress:     a.Progress,
			}
			if a.Color != nil && a.Color.Known() {
				doc.Color = a.Color.String()
			}
			if !a.CreatedAt.IsZero() {
				doc.CreatedAt = a.CreatedAt.UnixMilli()
			}
			docs = append(docs, doc)
		}
	}
	return docs
}
