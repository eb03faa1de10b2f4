package kobo

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/noteup/noteup/internal/domain"
	"github.com/noteup/noteup/internal/errors"
)

// ListAnnotations returns visible highlights with text for bookID, newest first.
func (s *Store) ListAnnotations(ctx context.Context, bookID string) ([]domain.Annotation, error) {
	color := `NULL`
	if s.hasColor {
		color = `T.Color`
	}

	query := `
		SELECT
			T.BookmarkID,
			T.VolumeID,
			IFNULL(T.ContentID, ''),
			IFNULL(T.DateCreated, ''),
			T.Text,
			IFNULL(T.Annotation, ''),
			IFNULL(T.Type, ''),
			IFNULL(T.ChapterProgress, 0),
			` + color + `
		FROM content AS B, Bookmark AS T
		WHERE B.ContentID = T.VolumeID
		  AND T.Text != ''
		  AND T.Hidden = 'false'
		  AND B.ContentID = ?
		ORDER BY T.DateCreated DESC`

	rows, err := s.db.QueryContext(ctx, query, bookID)
	if err != nil {
		return nil, errors.Wrapf(err, errors.CodeInternal, "list annotations for %q", bookID)
	}
	defer rows.Close()

	var annotations []domain.Annotation
	for rows.Next() {
		a, err := scanAnnotation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan annotation: %w", err)
		}
		annotations = append(annotations, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrapf(err, errors.CodeInternal, "list annotations for %q", bookID)
	}
	return annotations, nil
}

func scanAnnotation(scanner interface{ Scan(dest ...any) error }) (*domain.Annotation, error) {
	var (
		a         domain.Annotation
		createdAt string
		color     sql.NullInt64
	)
	err := scanner.Scan(
		&a.ID,
		&a.BookID,
		&a.VolumeID,
		&createdAt,
		&a.Text,
		&a.Comment,
		&a.Type,
		&a.Progress,
		&color,
	)
	if err != nil {
		return nil, err
	}

	if t := parseTime(createdAt); t != nil {
		a.CreatedAt = *t
	}
	if color.Valid {
		c := domain.Color(color.Int64)
		a.Color = &c
	}
	return &a, nil
}
