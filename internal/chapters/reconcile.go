package chapters

import (
	"cmp"
	"math"
	"slices"
	"sort"

	"github.com/noteup/noteup/internal/domain"
)

// UnmatchedTitle is the heading of the unmatched bucket.
const UnmatchedTitle = "Unmatched notes"

// progressEpsilon absorbs float noise at the ends of [0, 1].
const progressEpsilon = 1e-9

// Result holds the chapters of one book with their annotations.
type Result struct {
	Chapters  []domain.ChapterWithNotes
	Unmatched domain.ChapterWithNotes
}

// All returns the chapters followed by the unmatched bucket when it has notes.
func (r *Result) All() []domain.ChapterWithNotes {
	all := slices.Clone(r.Chapters)
	if len(r.Unmatched.Notes) > 0 {
		all = append(all, r.Unmatched)
	}
	return all
}

// Matched returns the number of annotations placed in a real chapter.
func (r *Result) Matched() int {
	n := 0
	for i := range r.Chapters {
		n += len(r.Chapters[i].Notes)
	}
	return n
}

// Total returns the number of annotations in the result, matched or not.
func (r *Result) Total() int {
	return r.Matched() + len(r.Unmatched.Notes)
}

// Reconcile assigns every annotation to exactly one chapter or to the
// unmatched bucket.
//
// Kobo records no chapter for a highlight, only its progress through the
// content file. The chapters pointing into one file split it evenly: the
// k-th of n starts at k/n, and an annotation goes to the chapter with the
// greatest start not after its progress. A chapter with an empty volume id
// accepts annotations from any file.
//
// Within each chapter annotations are ordered by progress, then creation
// time, then id.
func Reconcile(entries []domain.ChapterEntry, annotations []domain.Annotation) *Result {
	ordered := slices.Clone(entries)
	slices.SortStableFunc(ordered, func(a, b domain.ChapterEntry) int {
		return cmp.Compare(a.Sequence, b.Sequence)
	})

	result := &Result{
		Chapters: make([]domain.ChapterWithNotes, len(ordered)),
		Unmatched: domain.ChapterWithNotes{
			ChapterEntry: domain.ChapterEntry{
				ID:       domain.UnmatchedID,
				Title:    UnmatchedTitle,
				Depth:    1,
				Sequence: len(ordered),
			},
			Notes: []domain.Annotation{},
		},
	}

	byVolume := make(map[string][]int)
	var catchAll []int
	for i, e := range ordered {
		result.Chapters[i] = domain.ChapterWithNotes{ChapterEntry: e, Notes: []domain.Annotation{}}
		if e.VolumeID == "" {
			catchAll = append(catchAll, i)
			continue
		}
		byVolume[e.VolumeID] = append(byVolume[e.VolumeID], i)
	}
	if len(ordered) > 0 {
		result.Unmatched.BookID = ordered[0].BookID
	}

	sorted := slices.Clone(annotations)
	slices.SortStableFunc(sorted, compareAnnotations)

	for _, a := range sorted {
		idx, ok := locate(a, byVolume, catchAll)
		if !ok {
			result.Unmatched.Notes = append(result.Unmatched.Notes, a)
			continue
		}
		result.Chapters[idx].Notes = append(result.Chapters[idx].Notes, a)
	}

	return result
}

// locate returns the index of the chapter that owns a.
func locate(a domain.Annotation, byVolume map[string][]int, catchAll []int) (int, bool) {
	p, ok := normalizeProgress(a.Progress)
	if !ok {
		return 0, false
	}

	candidates, found := byVolume[a.VolumeID]
	if !found {
		candidates = catchAll
	}
	n := len(candidates)
	if n == 0 {
		return 0, false
	}

	// First chapter whose start lies after p, minus one. Starts are
	// increasing, so on equal starts the earlier chapter wins.
	k := sort.Search(n, func(i int) bool {
		return float64(i)/float64(n) > p
	}) - 1
	if k < 0 {
		k = 0
	}
	return candidates[k], true
}

// normalizeProgress snaps values within epsilon of the ends onto [0, 1] and
// rejects everything else outside it.
func normalizeProgress(p float64) (float64, bool) {
	switch {
	case math.IsNaN(p) || math.IsInf(p, 0):
		return 0, false
	case p < 0 && p > -progressEpsilon:
		return 0, true
	case p > 1 && p < 1+progressEpsilon:
		return 1, true
	case p < 0 || p > 1:
		return 0, false
	default:
		return p, true
	}
}

func compareAnnotations(a, b domain.Annotation) int {
	if c := cmp.Compare(a.Progress, b.Progress); c != 0 {
		return c
	}
	if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
		return c
	}
	return cmp.Compare(a.ID, b.ID)
}
