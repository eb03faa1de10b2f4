// Package service reconciles books from a source database into chapters
// with notes and caches the result for the life of one snapshot.
package service

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/noteup/noteup/internal/chapters"
	"github.com/noteup/noteup/internal/domain"
	"github.com/noteup/noteup/internal/store"
)

// DefaultConcurrency bounds parallel per-book queries.
const DefaultConcurrency = 4

// BookNotes is one book with its reconciled chapters.
type BookNotes struct {
	Book   *domain.Book
	Result *chapters.Result
}

// Chapters returns the chapters to render, unmatched bucket last.
func (n *BookNotes) Chapters() []domain.ChapterWithNotes {
	return n.Result.All()
}

// BookSummary is a book with its highlight and note counts.
type BookSummary struct {
	domain.Book
	Highlights int `json:"highlights"`
	Notes      int `json:"notes"`
	Unmatched  int `json:"unmatched"`
}

// NotesService reconciles books on demand. The source is an immutable
// snapshot, so each book is reconciled at most once per service.
type NotesService struct {
	reader      store.Reader
	logger      *slog.Logger
	concurrency int

	group singleflight.Group
	mu    sync.RWMutex
	cache map[string]*BookNotes
}

// NewNotesService creates a service over reader.
func NewNotesService(reader store.Reader, logger *slog.Logger) *NotesService {
	return &NotesService{
		reader:      reader,
		logger:      logger,
		concurrency: DefaultConcurrency,
		cache:       make(map[string]*BookNotes),
	}
}

// SetConcurrency bounds parallel per-book work in ListBooks.
func (s *NotesService) SetConcurrency(n int) {
	if n < 1 {
		n = 1
	}
	s.concurrency = n
}

// Reader returns the underlying source reader.
func (s *NotesService) Reader() store.Reader {
	return s.reader
}

// BookNotes returns the reconciled chapters of a book. Concurrent callers
// asking for the same book share one reconciliation.
func (s *NotesService) BookNotes(ctx context.Context, bookID string) (*BookNotes, error) {
	s.mu.RLock()
	cached, ok := s.cache[bookID]
	s.mu.RUnlock()
	if ok {
		return cached, nil
	}

	v, err, _ := s.group.Do(bookID, func() (any, error) {
		s.mu.RLock()
		cached, ok := s.cache[bookID]
		s.mu.RUnlock()
		if ok {
			return cached, nil
		}

		notes, err := s.reconcile(ctx, bookID)
		if err != nil {
			return nil, err
		}
		s.mu.Lock()
		s.cache[bookID] = notes
		s.mu.Unlock()
		return notes, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*BookNotes), nil
}

func (s *NotesService) reconcile(ctx context.Context, bookID string) (*BookNotes, error) {
	book, err := s.reader.GetBook(ctx, bookID)
	if err != nil {
		return nil, err
	}

	annotations, err := s.reader.ListAnnotations(ctx, bookID)
	if err != nil {
		return nil, fmt.Errorf("list annotations: %w", err)
	}

	rows, err := s.reader.ListTableOfContents(ctx, bookID)
	if err != nil {
		return nil, fmt.Errorf("list table of contents: %w", err)
	}

	entries := chapters.Build(book, rows)
	result := chapters.Reconcile(entries, annotations)

	s.logger.Debug("reconciled book",
		"book_id", bookID,
		"chapters", len(entries),
		"annotations", len(annotations),
		"unmatched", len(result.Unmatched.Notes),
	)
	if len(rows) == 0 && len(annotations) > 0 {
		s.logger.Debug("book has no table of contents", "book_id", bookID)
	}

	return &BookNotes{Book: book, Result: result}, nil
}

// GetBook returns the book with its counts.
func (s *NotesService) GetBook(ctx context.Context, bookID string) (*BookSummary, error) {
	notes, err := s.BookNotes(ctx, bookID)
	if err != nil {
		return nil, err
	}
	summary := summarize(notes)
	return &summary, nil
}

// ListBooks returns every book with its counts, books with highlights first,
// then most recently read, then by title.
func (s *NotesService) ListBooks(ctx context.Context) ([]BookSummary, error) {
	books, err := s.reader.ListBooks(ctx)
	if err != nil {
		return nil, fmt.Errorf("list books: %w", err)
	}

	summaries := make([]BookSummary, len(books))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i := range books {
		g.Go(func() error {
			notes, err := s.BookNotes(gctx, books[i].ID)
			if err != nil {
				if ctxErr := gctx.Err(); ctxErr != nil {
					return ctxErr
				}
				// Listed without counts; exports render a placeholder for it.
				s.logger.Warn("count highlights", "book_id", books[i].ID, "error", err)
				summaries[i] = BookSummary{Book: books[i]}
				return nil
			}
			summaries[i] = summarize(notes)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	SortSummaries(summaries)
	return summaries, nil
}

func summarize(n *BookNotes) BookSummary {
	summary := BookSummary{Book: *n.Book, Unmatched: len(n.Result.Unmatched.Notes)}
	for _, ch := range n.Result.All() {
		summary.Highlights += ch.HighlightCount()
		summary.Notes += ch.NoteCount()
	}
	return summary
}

// SortSummaries orders books with highlights first, then by last read time
// (most recent first, never-read last), then by title and id.
func SortSummaries(summaries []BookSummary) {
	slices.SortStableFunc(summaries, func(a, b BookSummary) int {
		if ah, bh := a.Highlights > 0, b.Highlights > 0; ah != bh {
			if ah {
				return -1
			}
			return 1
		}
		switch {
		case a.LastRead != nil && b.LastRead == nil:
			return -1
		case a.LastRead == nil && b.LastRead != nil:
			return 1
		case a.LastRead != nil && b.LastRead != nil:
			if c := b.LastRead.Compare(*a.LastRead); c != 0 {
				return c
			}
		}
		if c := cmp.Compare(strings.ToLower(a.Title), strings.ToLower(b.Title)); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
}
