package kobo

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/noteup/noteup/internal/domain"
	"github.com/noteup/noteup/internal/errors"
)

// Book rows are content rows of ContentType 6.
const contentTypeBook = 6

func (s *Store) bookColumns() string {
	description := `''`
	if s.hasDescription {
		description = `IFNULL(Description, '')`
	}
	return `
		ContentID,
		IFNULL(Title, ''),
		IFNULL(Subtitle, ''),
		IFNULL(Attribution, ''),
		IFNULL(Publisher, ''),
		IFNULL(CAST(ISBN AS TEXT), ''),
		IFNULL(date(DateCreated), ''),
		IFNULL(Series, ''),
		IFNULL(CAST(SeriesNumber AS TEXT), ''),
		IFNULL(AverageRating, 0),
		IFNULL(___PercentRead, 0),
		IFNULL(CASE WHEN ReadStatus > 0 THEN datetime(DateLastRead) END, ''),
		IFNULL(___FileSize, 0),
		IFNULL(Accessibility, 0),
		` + description
}

func scanBook(scanner interface{ Scan(dest ...any) error }) (*domain.Book, error) {
	var (
		b             domain.Book
		lastRead      string
		accessibility int
	)
	err := scanner.Scan(
		&b.ID,
		&b.Title,
		&b.Subtitle,
		&b.Author,
		&b.Publisher,
		&b.ISBN,
		&b.ReleaseDate,
		&b.Series,
		&b.SeriesNumber,
		&b.Rating,
		&b.ReadPercent,
		&lastRead,
		&b.FileSize,
		&accessibility,
		&b.Description,
	)
	if err != nil {
		return nil, err
	}
	b.LastRead = parseTime(lastRead)
	b.Source = domain.SourceFromAccessibility(accessibility)
	return &b, nil
}

// ListBooks returns every book row owned by an active user profile.
func (s *Store) ListBooks(ctx context.Context) ([]domain.Book, error) {
	query := `SELECT ` + s.bookColumns() + `
		FROM content
		WHERE ContentType = ?
		  AND ___UserId IS NOT NULL
		  AND ___UserId != ''
		  AND ___UserId != 'removed'`

	rows, err := s.db.QueryContext(ctx, query, contentTypeBook)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "list books")
	}
	defer rows.Close()

	var books []domain.Book
	for rows.Next() {
		b, err := scanBook(rows)
		if err != nil {
			return nil, fmt.Errorf("scan book: %w", err)
		}
		books = append(books, *b)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "list books")
	}

	s.logger.Debug("listed books", "count", len(books))
	return books, nil
}

// GetBook looks a book up by its exact content id.
func (s *Store) GetBook(ctx context.Context, id string) (*domain.Book, error) {
	query := `SELECT ` + s.bookColumns() + `
		FROM content
		WHERE ContentID = ? AND ContentType = ?`

	b, err := scanBook(s.db.QueryRowContext(ctx, query, id, contentTypeBook))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errors.NotFoundf("book %q not found", id)
	}
	if err != nil {
		return nil, errors.Wrapf(err, errors.CodeInternal, "get book %q", id)
	}
	return b, nil
}
