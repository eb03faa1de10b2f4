package chapters

import (
	"math"
	"testing"
	"time"

	"github.com/noteup/noteup/internal/domain"
)

func chapterEntries(volume string, titles ...string) []domain.ChapterEntry {
	entries := make([]domain.ChapterEntry, len(titles))
	for i, title := range titles {
		entries[i] = domain.ChapterEntry{
			ID:       title,
			Title:    title,
			BookID:   "b1",
			VolumeID: volume,
			Depth:    1,
			Sequence: i,
		}
	}
	return entries
}

func note(id, volume string, progress float64) domain.Annotation {
	return domain.Annotation{ID: id, BookID: "b1", VolumeID: volume, Text: id, Progress: progress}
}

func ids(notes []domain.Annotation) []string {
	out := make([]string, len(notes))
	for i, n := range notes {
		out[i] = n.ID
	}
	return out
}

func equalIDs(t *testing.T, label string, got []domain.Annotation, want ...string) {
	t.Helper()
	g := ids(got)
	if len(g) != len(want) {
		t.Errorf("%s: expected %v, got %v", label, want, g)
		return
	}
	for i := range want {
		if g[i] != want[i] {
			t.Errorf("%s: expected %v, got %v", label, want, g)
			return
		}
	}
}

func TestReconcile_BracketsByPosition(t *testing.T) {
	entries := chapterEntries("v", "A", "B", "C")
	annotations := []domain.Annotation{
		note("late", "v", 0.9),
		note("start", "v", 0),
		note("mid", "v", 0.5),
		note("edgeB", "v", 1.0/3),
		note("end", "v", 1),
	}

	r := Reconcile(entries, annotations)

	equalIDs(t, "A", r.Chapters[0].Notes, "start")
	equalIDs(t, "B", r.Chapters[1].Notes, "edgeB", "mid")
	equalIDs(t, "C", r.Chapters[2].Notes, "late", "end")
	if len(r.Unmatched.Notes) != 0 {
		t.Errorf("expected no unmatched notes, got %v", ids(r.Unmatched.Notes))
	}
}

func TestReconcile_TotalAssignment(t *testing.T) {
	entries := append(chapterEntries("v1", "A", "B"), domain.ChapterEntry{
		ID: "C", Title: "C", VolumeID: "v2", Sequence: 2, Depth: 1,
	})
	annotations := []domain.Annotation{
		note("a", "v1", 0.1),
		note("b", "v1", 0.7),
		note("c", "v2", 0.4),
		note("nan", "v1", math.NaN()),
		note("inf", "v2", math.Inf(1)),
		note("neg", "v1", -0.5),
		note("big", "v1", 1.5),
		note("stray", "v9", 0.5),
		note("tinyneg", "v1", -1e-12),
		note("tinyover", "v2", 1+1e-12),
	}

	r := Reconcile(entries, annotations)

	if r.Total() != len(annotations) {
		t.Fatalf("expected %d assigned, got %d", len(annotations), r.Total())
	}
	equalIDs(t, "A", r.Chapters[0].Notes, "tinyneg", "a")
	equalIDs(t, "B", r.Chapters[1].Notes, "b")
	equalIDs(t, "C", r.Chapters[2].Notes, "c", "tinyover")
	if len(r.Unmatched.Notes) != 5 {
		t.Errorf("expected 5 unmatched, got %v", ids(r.Unmatched.Notes))
	}
	if r.Matched() != 5 {
		t.Errorf("expected 5 matched, got %d", r.Matched())
	}
}

func TestReconcile_ProgressOrderWithinChapter(t *testing.T) {
	entries := chapterEntries("v", "Only")
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	same1 := note("z", "v", 0.5)
	same1.CreatedAt = t0
	same2 := note("y", "v", 0.5)
	same2.CreatedAt = t0.Add(time.Hour)
	same3 := note("x", "v", 0.5)
	same3.CreatedAt = t0

	r := Reconcile(entries, []domain.Annotation{same2, note("first", "v", 0.1), same1, same3})

	equalIDs(t, "Only", r.Chapters[0].Notes, "first", "x", "z", "y")
	for i := 1; i < len(r.Chapters[0].Notes); i++ {
		if r.Chapters[0].Notes[i].Progress < r.Chapters[0].Notes[i-1].Progress {
			t.Fatalf("progress decreased at %d", i)
		}
	}
}

func TestReconcile_SyntheticChapterTakesEveryVolume(t *testing.T) {
	book := &domain.Book{ID: "b2", Title: "Dune"}
	entries := Build(book, nil)

	r := Reconcile(entries, []domain.Annotation{
		note("a", "b2!text.xhtml", 0.7),
		note("b", "b2!other.xhtml", 0.1),
		note("c", "", 0),
		note("bad", "b2!text.xhtml", math.NaN()),
	})

	equalIDs(t, "Dune", r.Chapters[0].Notes, "c", "b", "a")
	equalIDs(t, "unmatched", r.Unmatched.Notes, "bad")
}

func TestReconcile_NoAnnotations(t *testing.T) {
	r := Reconcile(chapterEntries("v", "A", "B"), nil)

	if r.Total() != 0 {
		t.Errorf("expected no annotations, got %d", r.Total())
	}
	if got := len(r.All()); got != 2 {
		t.Errorf("expected unmatched bucket to be omitted when empty, got %d entries", got)
	}
	for _, ch := range r.Chapters {
		if ch.Notes == nil {
			t.Errorf("chapter %s: expected empty, non-nil notes", ch.ID)
		}
	}
}

func TestReconcile_UnmatchedIsLast(t *testing.T) {
	r := Reconcile(chapterEntries("v", "A"), []domain.Annotation{note("lost", "elsewhere", 0.2)})

	all := r.All()
	if len(all) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(all))
	}
	last := all[1]
	if last.ID != domain.UnmatchedID || last.Title != UnmatchedTitle {
		t.Errorf("expected unmatched bucket last, got %+v", last.ChapterEntry)
	}
	if last.Sequence != 1 {
		t.Errorf("expected unmatched sequence 1, got %d", last.Sequence)
	}
}

func TestReconcile_DoesNotMutateInput(t *testing.T) {
	annotations := []domain.Annotation{note("b", "v", 0.9), note("a", "v", 0.1)}

	Reconcile(chapterEntries("v", "A"), annotations)

	if annotations[0].ID != "b" {
		t.Errorf("input slice was reordered")
	}
}

func TestReconcile_Deterministic(t *testing.T) {
	entries := chapterEntries("v", "A", "B", "C", "D")
	annotations := []domain.Annotation{
		note("1", "v", 0.25), note("2", "v", 0.5), note("3", "v", 0.75),
		note("4", "v", 0.25), note("5", "x", 0.1),
	}

	first := Reconcile(entries, annotations)
	for range 20 {
		again := Reconcile(entries, annotations)
		for i := range first.Chapters {
			equalIDs(t, first.Chapters[i].ID, again.Chapters[i].Notes, ids(first.Chapters[i].Notes)...)
		}
	}
}
