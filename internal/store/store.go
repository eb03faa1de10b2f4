// Package store defines the read-only contract over an e-reader database.
package store

import (
	"context"

	"github.com/noteup/noteup/internal/domain"
)

// Reader exposes the typed queries the export pipeline runs against a
// source database. Implementations must be safe for concurrent use.
type Reader interface {
	// ListBooks returns every book owned by an active user profile, in no
	// particular order.
	ListBooks(ctx context.Context) ([]domain.Book, error)

	// GetBook returns ErrNotFound when the database has no such book.
	GetBook(ctx context.Context, id string) (*domain.Book, error)

	// ListAnnotations returns visible, non-empty highlights of a book,
	// newest first.
	ListAnnotations(ctx context.Context, bookID string) ([]domain.Annotation, error)

	// ListTableOfContents returns the raw navigation rows of a book's
	// volume family in source order.
	ListTableOfContents(ctx context.Context, bookID string) ([]domain.TOCRow, error)
}
