package store

import (
	"github.com/noteup/noteup/internal/errors"
)

// Sentinel errors returned by source readers. They are the coded domain
// errors, so both errors.Is and the HTTP status mapping work on them.
var (
	// ErrNotFound means the database is valid but has no such book.
	ErrNotFound = errors.ErrNotFound

	// ErrNotKoboDatabase means the input is not a Kobo database image.
	ErrNotKoboDatabase = errors.ErrUnrecognizedSource
)
