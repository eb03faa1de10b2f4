package chapters

import (
	"testing"

	"github.com/noteup/noteup/internal/domain"
)

func TestBuild_OrdersByVolumeIndex(t *testing.T) {
	book := &domain.Book{ID: "b1", Title: "Book"}
	rows := []domain.TOCRow{
		{ContentID: "b1!c.xhtml-3", Title: "Three", VolumeIndex: 2, Depth: 1, Order: 0},
		{ContentID: "b1!a.xhtml-1", Title: "One", VolumeIndex: 0, Depth: 1, Order: 1},
		{ContentID: "b1!b.xhtml-2", Title: "Two", VolumeIndex: 1, Depth: 2, Order: 2},
	}

	got := Build(book, rows)

	want := []string{"One", "Two", "Three"}
	if len(got) != len(want) {
		t.Fatalf("expected %d chapters, got %d", len(want), len(got))
	}
	for i, ch := range got {
		if ch.Title != want[i] {
			t.Errorf("chapter %d: expected %q, got %q", i, want[i], ch.Title)
		}
		if ch.Sequence != i {
			t.Errorf("chapter %d: expected sequence %d, got %d", i, i, ch.Sequence)
		}
		if ch.BookID != "b1" {
			t.Errorf("chapter %d: expected book id b1, got %q", i, ch.BookID)
		}
	}
	if got[1].Depth != 2 {
		t.Errorf("expected depth 2 preserved, got %d", got[1].Depth)
	}
	if got[0].VolumeID != "b1!a.xhtml" {
		t.Errorf("expected volume b1!a.xhtml, got %q", got[0].VolumeID)
	}
}

func TestBuild_EqualKeysKeepSourceOrder(t *testing.T) {
	book := &domain.Book{ID: "b1"}
	rows := []domain.TOCRow{
		{ContentID: "x-1", Title: "First", VolumeIndex: 0, Order: 0},
		{ContentID: "x-2", Title: "Second", VolumeIndex: 0, Order: 1},
		{ContentID: "x-3", Title: "Unindexed", VolumeIndex: -1, Order: 2},
		{ContentID: "x-4", Title: "Third", VolumeIndex: 0, Order: 3},
	}

	got := Build(book, rows)

	want := []string{"First", "Second", "Third", "Unindexed"}
	for i, ch := range got {
		if ch.Title != want[i] {
			t.Errorf("chapter %d: expected %q, got %q", i, want[i], ch.Title)
		}
	}
}

func TestBuild_TolerantOfMalformedRows(t *testing.T) {
	book := &domain.Book{ID: "b1"}
	rows := []domain.TOCRow{
		{ContentID: "a-1", Title: "  ", VolumeIndex: 0, Depth: 0, Order: 0},
		{ContentID: "b-2", Title: "Negative", VolumeIndex: 1, Depth: -3, Order: 1},
	}

	got := Build(book, rows)

	if got[0].Title != UntitledChapter {
		t.Errorf("expected %q, got %q", UntitledChapter, got[0].Title)
	}
	for i, ch := range got {
		if ch.Depth != 1 {
			t.Errorf("chapter %d: expected depth 1, got %d", i, ch.Depth)
		}
	}
}

func TestBuild_CollapsesTitleWhitespace(t *testing.T) {
	book := &domain.Book{ID: "b1"}
	rows := []domain.TOCRow{
		{ContentID: "a-1", Title: " Part One\n  The Beginning\t", VolumeIndex: 0, Depth: 1},
	}

	got := Build(book, rows)

	if got[0].Title != "Part One The Beginning" {
		t.Errorf("expected collapsed title, got %q", got[0].Title)
	}
}

func TestBuild_DuplicatesCollapseFirstWins(t *testing.T) {
	book := &domain.Book{ID: "b1"}
	rows := []domain.TOCRow{
		{ContentID: "dup-1", Title: "Late copy", VolumeIndex: 0, Order: 5},
		{ContentID: "dup-1", Title: "Original", VolumeIndex: 3, Order: 1},
		{ContentID: "other-2", Title: "Other", VolumeIndex: 1, Order: 2},
	}

	got := Build(book, rows)

	if len(got) != 2 {
		t.Fatalf("expected 2 chapters, got %d", len(got))
	}
	if got[0].Title != "Other" || got[1].Title != "Original" {
		t.Errorf("unexpected order: %q, %q", got[0].Title, got[1].Title)
	}
}

func TestBuild_NoRowsYieldsSyntheticChapter(t *testing.T) {
	book := &domain.Book{ID: "b2", Title: "Dune"}

	got := Build(book, nil)

	if len(got) != 1 {
		t.Fatalf("expected 1 chapter, got %d", len(got))
	}
	ch := got[0]
	if ch.Title != "Dune" || ch.Depth != 1 || ch.VolumeID != "" || ch.ID != "b2" {
		t.Errorf("unexpected synthetic chapter: %+v", ch)
	}
}

func TestVolumeID(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"book!OEBPS!ch1.xhtml-1", "book!OEBPS!ch1.xhtml"},
		{"book!OEBPS!ch1.xhtml#anchor-12", "book!OEBPS!ch1.xhtml"},
		{"book!OEBPS!ch1.xhtml#anchor", "book!OEBPS!ch1.xhtml"},
		{"file:///mnt/onboard/a.epub#(2)OEBPS/ch1.xhtml-3", "file:///mnt/onboard/a.epub#(2)OEBPS/ch1.xhtml"},
		{"part-two.xhtml", "part-two.xhtml"},
		{"trailing-", "trailing-"},
		{"plain", "plain"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := VolumeID(tt.in); got != tt.want {
				t.Errorf("VolumeID(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
