package search

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/blevesearch/bleve/v2"

	"github.com/noteup/noteup/internal/domain"
	"github.com/noteup/noteup/internal/service"
)

// Index wraps an in-memory Bleve index of highlights.
//
// Thread safety: All public methods are safe for concurrent use.
// The mutex protects against queries running during a Reset.
type Index struct {
	index  bleve.Index
	logger *slog.Logger
	mu     sync.RWMutex
}

// batchSize bounds how many documents go into one Bleve batch.
const batchSize = 500

// NewIndex creates an empty in-memory index.
func NewIndex(logger *slog.Logger) (*Index, error) {
	index, err := bleve.NewMemOnly(buildIndexMapping())
	if err != nil {
		return nil, fmt.Errorf("create index: %w", err)
	}
	return &Index{index: index, logger: logger}, nil
}

// Close closes the index and releases resources.
func (s *Index) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.index.Close()
}

// IndexBook adds every highlight of a reconciled book.
func (s *Index) IndexBook(book *domain.Book, chapters []domain.ChapterWithNotes) error {
	return s.IndexDocuments(DocumentsFor(book, chapters))
}

// IndexDocuments indexes documents in batches.
func (s *Index) IndexDocuments(docs []*Document) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for i := 0; i < len(docs); i += batchSize {
		end := min(i+batchSize, len(docs))

		batch := s.index.NewBatch()
		for _, doc := range docs[i:end] {
			if err := batch.Index(doc.ID, doc.ToMap()); err != nil {
				return fmt.Errorf("batch index %s: %w", doc.ID, err)
			}
		}

		if err := s.index.Batch(batch); err != nil {
			return fmt.Errorf("commit batch %d-%d: %w", i, end, err)
		}
	}

	return nil
}

// DocumentCount returns the total number of indexed highlights.
func (s *Index) DocumentCount() (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.index.DocCount()
}

// Reset drops every document by swapping in a fresh index.
func (s *Index) Reset() error {
	fresh, err := bleve.NewMemOnly(buildIndexMapping())
	if err != nil {
		return fmt.Errorf("create index: %w", err)
	}

	s.mu.Lock()
	old := s.index
	s.index = fresh
	s.mu.Unlock()

	if err := old.Close(); err != nil {
		s.logger.Warn("close previous search index", "error", err)
	}
	return nil
}

// Load indexes every book the notes service lists. A book that cannot be
// reconciled is logged and skipped.
func (s *Index) Load(ctx context.Context, notes *service.NotesService) (int, error) {
	summaries, err := notes.ListBooks(ctx)
	if err != nil {
		return 0, err
	}

	indexed := 0
	for _, summary := range summaries {
		if summary.Highlights == 0 {
			continue
		}
		bn, err := notes.BookNotes(ctx, summary.ID)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return indexed, ctxErr
			}
			s.logger.Warn("skip book in search index", "book_id", summary.ID, "error", err)
			continue
		}
		if err := s.IndexBook(bn.Book, bn.Chapters()); err != nil {
			return indexed, err
		}
		indexed++
	}

	s.logger.Info("search index loaded", "books", indexed)
	return indexed, nil
}
