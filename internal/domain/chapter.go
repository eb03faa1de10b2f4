package domain

// UnmatchedID identifies the bucket for annotations that could not be
// placed in any chapter.
const UnmatchedID = "unmatched"

// ChapterEntry is one node of a book's table of contents, flattened in
// reading order.
type ChapterEntry struct {
	ID     string `json:"id"`
	Title  string `json:"title"`
	BookID string `json:"book_id"`
	// VolumeID is the content file this entry points into. Empty means the
	// entry covers the whole book.
	VolumeID string `json:"volume_id"`
	Depth    int    `json:"depth"`
	Sequence int    `json:"sequence"`
}

// IsUnmatched reports whether the entry is the unmatched bucket.
func (c *ChapterEntry) IsUnmatched() bool {
	return c.ID == UnmatchedID
}

// ChapterWithNotes pairs a chapter with the annotations placed in it.
type ChapterWithNotes struct {
	ChapterEntry
	Notes []Annotation `json:"notes"`
}

// HighlightCount returns the number of annotations in the chapter.
func (c *ChapterWithNotes) HighlightCount() int {
	return len(c.Notes)
}

// NoteCount returns the number of annotations carrying a comment.
func (c *ChapterWithNotes) NoteCount() int {
	n := 0
	for i := range c.Notes {
		if c.Notes[i].IsNote() {
			n++
		}
	}
	return n
}

// TOCRow is a raw table-of-contents row as read from the source database.
type TOCRow struct {
	ContentID string
	Title     string
	// VolumeIndex orders rows in reading order. Negative means missing.
	VolumeIndex int
	Depth       int
	// Order is the row's position in the source result set.
	Order int
}
