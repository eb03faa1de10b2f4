// Package chapters turns raw navigation rows into an ordered chapter list
// and places annotations into those chapters.
package chapters

import (
	"cmp"
	"slices"
	"strings"

	"github.com/noteup/noteup/internal/domain"
)

// UntitledChapter is used for navigation rows without a title.
const UntitledChapter = "Untitled chapter"

// Build returns the chapters of book in reading order.
//
// Rows are ordered by volume index, rows without one go last, and equal
// keys keep their source order. Duplicate content ids keep the first row.
// A book without navigation rows gets one chapter spanning the whole book.
func Build(book *domain.Book, rows []domain.TOCRow) []domain.ChapterEntry {
	if len(rows) == 0 {
		return []domain.ChapterEntry{{
			ID:     book.ID,
			Title:  book.DisplayTitle(),
			BookID: book.ID,
			Depth:  1,
		}}
	}

	ordered := slices.Clone(rows)
	slices.SortStableFunc(ordered, func(a, b domain.TOCRow) int {
		return cmp.Compare(a.Order, b.Order)
	})

	seen := make(map[string]bool, len(ordered))
	unique := ordered[:0]
	for _, r := range ordered {
		if seen[r.ContentID] {
			continue
		}
		seen[r.ContentID] = true
		unique = append(unique, r)
	}

	slices.SortStableFunc(unique, func(a, b domain.TOCRow) int {
		return cmp.Compare(volumeIndexKey(a.VolumeIndex), volumeIndexKey(b.VolumeIndex))
	})

	entries := make([]domain.ChapterEntry, 0, len(unique))
	for i, r := range unique {
		depth := r.Depth
		if depth < 1 {
			depth = 1
		}
		title := strings.Join(strings.Fields(r.Title), " ")
		if title == "" {
			title = UntitledChapter
		}
		entries = append(entries, domain.ChapterEntry{
			ID:       r.ContentID,
			Title:    title,
			BookID:   book.ID,
			VolumeID: VolumeID(r.ContentID),
			Depth:    depth,
			Sequence: i,
		})
	}
	return entries
}

func volumeIndexKey(v int) int {
	if v < 0 {
		return int(^uint(0) >> 1)
	}
	return v
}

// VolumeID returns the content file a navigation row points into.
//
// Kobo suffixes navigation ids with "-N" and may add an "#anchor". The
// "#(N)" marker used inside sideloaded EPUB ids is part of the file path
// and is kept.
func VolumeID(contentID string) string {
	id := contentID
	if i := strings.LastIndexByte(id, '-'); i > 0 && i < len(id)-1 && isDigits(id[i+1:]) {
		id = id[:i]
	}
	if i := strings.LastIndexByte(id, '#'); i >= 0 && !strings.HasPrefix(id[i+1:], "(") {
		id = id[:i]
	}
	return id
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}
