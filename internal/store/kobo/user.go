package kobo

import (
	"context"
	"database/sql"

	"github.com/noteup/noteup/internal/errors"
)

// UserDetails identifies the account the device is signed in with.
type UserDetails struct {
	UserID      string `json:"user_id"`
	DisplayName string `json:"display_name"`
	Email       string `json:"email,omitempty"`
}

// UserDetails returns the signed-in account, or nil when the database
// has no user table or no row in it.
func (s *Store) UserDetails(ctx context.Context) (*UserDetails, error) {
	if !s.hasUserTable {
		return nil, nil
	}

	var u UserDetails
	err := s.db.QueryRowContext(ctx, `
		SELECT
			IFNULL(UserID, ''),
			IFNULL(UserDisplayName, ''),
			IFNULL(UserEmail, '')
		FROM user
		LIMIT 1`,
	).Scan(&u.UserID, &u.DisplayName, &u.Email)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "read user details")
	}
	return &u, nil
}
