package kobo

import (
	"context"
	"fmt"

	"github.com/noteup/noteup/internal/domain"
	"github.com/noteup/noteup/internal/errors"
)

// Navigation rows are content rows of ContentType 899 linked by BookID.
const contentTypeTOC = 899

// ListTableOfContents returns the navigation rows of a book in source order.
func (s *Store) ListTableOfContents(ctx context.Context, bookID string) ([]domain.TOCRow, error) {
	query := `
		SELECT
			ContentID,
			IFNULL(Title, ''),
			IFNULL(VolumeIndex, -1),
			IFNULL(Depth, 0)
		FROM content
		WHERE BookID = ? AND ContentType = ?
		ORDER BY rowid`

	rows, err := s.db.QueryContext(ctx, query, bookID, contentTypeTOC)
	if err != nil {
		return nil, errors.Wrapf(err, errors.CodeInternal, "list table of contents for %q", bookID)
	}
	defer rows.Close()

	var toc []domain.TOCRow
	for rows.Next() {
		var r domain.TOCRow
		if err := rows.Scan(&r.ContentID, &r.Title, &r.VolumeIndex, &r.Depth); err != nil {
			return nil, fmt.Errorf("scan toc row: %w", err)
		}
		r.Order = len(toc)
		toc = append(toc, r)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrapf(err, errors.CodeInternal, "list table of contents for %q", bookID)
	}
	return toc, nil
}
