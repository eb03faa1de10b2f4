// Package kobo reads highlights, books and navigation from a Kobo
// KoboReader.sqlite image.
package kobo

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/noteup/noteup/internal/errors"
	"github.com/noteup/noteup/internal/store"

	_ "modernc.org/sqlite"
)

// sqliteHeader is the magic string every SQLite 3 database file starts with.
var sqliteHeader = []byte("SQLite format 3\x00")

// Tables a Kobo database must have.
var requiredTables = []string{"content", "Bookmark"}

var _ store.Reader = (*Store)(nil)

// Store is a read-only view of one Kobo database snapshot.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
	image  string // private copy of the database bytes

	// Columns that only exist on some firmware versions.
	hasColor       bool
	hasDescription bool
	hasUserTable   bool
}

// Open validates data as a Kobo database image and opens it read-only.
// The bytes are copied to a private temp file that Close removes.
func Open(ctx context.Context, data []byte, logger *slog.Logger) (*Store, error) {
	if !bytes.HasPrefix(data, sqliteHeader) {
		return nil, errors.UnrecognizedSource("input is not a SQLite database")
	}

	f, err := os.CreateTemp("", "noteup-*.sqlite")
	if err != nil {
		return nil, fmt.Errorf("create database image: %w", err)
	}
	image := f.Name()
	_, werr := f.Write(data)
	cerr := f.Close()
	if werr != nil || cerr != nil {
		_ = os.Remove(image)
		return nil, fmt.Errorf("write database image: %w", errors.Join(werr, cerr))
	}

	s, err := openImage(ctx, image, logger)
	if err != nil {
		_ = os.Remove(image)
		return nil, err
	}
	return s, nil
}

// OpenFile reads the database at path and opens a snapshot of it.
func OpenFile(ctx context.Context, path string, logger *slog.Logger) (*Store, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read kobo database: %w", err)
	}
	return Open(ctx, data, logger)
}

func openImage(ctx context.Context, image string, logger *slog.Logger) (*Store, error) {
	dsn := (&url.URL{
		Scheme:   "file",
		Path:     image,
		RawQuery: "mode=ro&immutable=1&_pragma=query_only(1)",
	}).String()

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// Read-only snapshot: readers never contend.
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(time.Hour)

	s := &Store{db: db, logger: logger, image: image}
	if err := s.inspectSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}

	logger.Debug("opened kobo database",
		"color_column", s.hasColor,
		"description_column", s.hasDescription,
		"user_table", s.hasUserTable,
	)
	return s, nil
}

// inspectSchema checks the required relations and probes optional columns.
func (s *Store) inspectSchema(ctx context.Context) error {
	rows, err := s.db.QueryContext(ctx, `SELECT name FROM sqlite_master WHERE type = 'table'`)
	if err != nil {
		// A valid header over corrupt pages lands here.
		return errors.UnrecognizedSource("unreadable SQLite database").WithCause(err)
	}
	defer rows.Close()

	tables := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return fmt.Errorf("scan table name: %w", err)
		}
		tables[name] = true
	}
	if err := rows.Err(); err != nil {
		return errors.UnrecognizedSource("unreadable SQLite database").WithCause(err)
	}

	var missing []string
	for _, t := range requiredTables {
		if !tables[t] {
			missing = append(missing, t)
		}
	}
	if len(missing) > 0 {
		return errors.UnrecognizedSource("not a Kobo database").
			WithDetails(map[string]string{"missing_tables": strings.Join(missing, ",")})
	}

	s.hasUserTable = tables["user"]

	if s.hasColor, err = s.hasColumn(ctx, "Bookmark", "Color"); err != nil {
		return err
	}
	if s.hasDescription, err = s.hasColumn(ctx, "content", "Description"); err != nil {
		return err
	}
	return nil
}

func (s *Store) hasColumn(ctx context.Context, table, column string) (bool, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name FROM pragma_table_info(?)`, table)
	if err != nil {
		return false, fmt.Errorf("inspect %s columns: %w", table, err)
	}
	defer rows.Close()

	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return false, fmt.Errorf("scan column name: %w", err)
		}
		if strings.EqualFold(name, column) {
			return true, nil
		}
	}
	return false, rows.Err()
}

// Close closes the connection pool and removes the private image.
func (s *Store) Close() error {
	err := s.db.Close()
	if rerr := os.Remove(s.image); rerr != nil && !os.IsNotExist(rerr) {
		err = errors.Join(err, rerr)
	}
	return err
}

// Kobo timestamps come in several shapes depending on firmware and sync path.
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.000",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// parseTime returns nil for empty or unparseable values.
func parseTime(v string) *time.Time {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			t = t.UTC()
			return &t
		}
	}
	return nil
}
