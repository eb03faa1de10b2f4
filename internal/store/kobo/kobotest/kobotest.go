// Package kobotest builds small KoboReader.sqlite fixtures for tests.
package kobotest

import (
	"database/sql"
	"os"
	"path/filepath"
	"testing"

	_ "modernc.org/sqlite"
)

// DefaultUser owns fixture books unless a book says otherwise.
const DefaultUser = "user-1"

// Book is a ContentType 6 row.
type Book struct {
	ID            string
	Title         string
	Subtitle      string
	Author        string
	Publisher     string
	ISBN          string
	Series        string
	SeriesNumber  string
	Description   string
	DateCreated   string
	DateLastRead  string
	UserID        string // empty means DefaultUser; "-" stores NULL
	Accessibility int
	ReadStatus    int
	PercentRead   int
	Rating        float64
	FileSize      int64
}

// Chapter is a ContentType 899 navigation row.
type Chapter struct {
	ContentID   string
	BookID      string
	Title       string
	VolumeIndex *int
	Depth       *int
}

// Bookmark is a Bookmark row.
type Bookmark struct {
	ID          string
	VolumeID    string // owning book
	ContentID   string // content file
	Text        string
	Annotation  string
	Type        string
	DateCreated string
	Hidden      bool
	Progress    float64
	Color       *int
}

// User is a row of the user table.
type User struct {
	ID          string
	DisplayName string
	Email       string
}

// DB describes a fixture database.
type DB struct {
	Books     []Book
	Chapters  []Chapter
	Bookmarks []Bookmark
	Users     []User

	// Older firmware has no Bookmark.Color column.
	NoColorColumn bool
	NoUserTable   bool
}

// Int returns a pointer to v.
func Int(v int) *int { return &v }

// WriteFile creates the fixture database at path.
func (d *DB) WriteFile(t testing.TB, path string) {
	t.Helper()

	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("open fixture: %v", err)
	}
	defer db.Close()

	for _, stmt := range d.schema() {
		if _, err := db.Exec(stmt); err != nil {
			t.Fatalf("create fixture schema: %v", err)
		}
	}

	for _, b := range d.Books {
		user := any(b.UserID)
		switch b.UserID {
		case "":
			user = DefaultUser
		case "-":
			user = nil
		}
		_, err := db.Exec(`INSERT INTO content (
			ContentID, ContentType, Title, Subtitle, Attribution, Publisher, ISBN,
			DateCreated, Series, SeriesNumber, AverageRating, ___PercentRead,
			ReadStatus, DateLastRead, ___FileSize, Accessibility, ___UserId, Description
		) VALUES (?, 6, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			b.ID, nullString(b.Title), nullString(b.Subtitle), nullString(b.Author),
			nullString(b.Publisher), nullString(b.ISBN), nullString(b.DateCreated),
			nullString(b.Series), nullString(b.SeriesNumber), b.Rating, b.PercentRead,
			b.ReadStatus, nullString(b.DateLastRead), b.FileSize, b.Accessibility, user,
			nullString(b.Description),
		)
		if err != nil {
			t.Fatalf("insert book %s: %v", b.ID, err)
		}
	}

	for _, c := range d.Chapters {
		_, err := db.Exec(`INSERT INTO content (ContentID, ContentType, BookID, Title, VolumeIndex, Depth)
			VALUES (?, 899, ?, ?, ?, ?)`,
			c.ContentID, c.BookID, nullString(c.Title), nullInt(c.VolumeIndex), nullInt(c.Depth),
		)
		if err != nil {
			t.Fatalf("insert chapter %s: %v", c.ContentID, err)
		}
	}

	for _, bm := range d.Bookmarks {
		hidden := "false"
		if bm.Hidden {
			hidden = "true"
		}
		created := bm.DateCreated
		if created == "" {
			created = "2024-01-01T00:00:00.000"
		}
		args := []any{
			bm.ID, bm.VolumeID, bm.ContentID, bm.Text, nullString(bm.Annotation),
			hidden, nullString(bm.Type), created, bm.Progress,
		}
		query := `INSERT INTO Bookmark (BookmarkID, VolumeID, ContentID, Text, Annotation,
			Hidden, Type, DateCreated, ChapterProgress) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
		if !d.NoColorColumn {
			query = `INSERT INTO Bookmark (BookmarkID, VolumeID, ContentID, Text, Annotation,
				Hidden, Type, DateCreated, ChapterProgress, Color) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
			args = append(args, nullInt(bm.Color))
		}
		if _, err := db.Exec(query, args...); err != nil {
			t.Fatalf("insert bookmark %s: %v", bm.ID, err)
		}
	}

	for _, u := range d.Users {
		if d.NoUserTable {
			break
		}
		if _, err := db.Exec(`INSERT INTO user (UserID, UserDisplayName, UserEmail) VALUES (?, ?, ?)`,
			u.ID, u.DisplayName, u.Email); err != nil {
			t.Fatalf("insert user %s: %v", u.ID, err)
		}
	}
}

// Bytes returns the fixture as a database image.
func (d *DB) Bytes(t testing.TB) []byte {
	t.Helper()

	path := filepath.Join(t.TempDir(), "KoboReader.sqlite")
	d.WriteFile(t, path)

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read fixture: %v", err)
	}
	return data
}

func (d *DB) schema() []string {
	bookmark := `CREATE TABLE Bookmark (
		BookmarkID TEXT NOT NULL,
		VolumeID TEXT NOT NULL,
		ContentID TEXT,
		Text TEXT,
		Annotation TEXT,
		Hidden TEXT DEFAULT 'false',
		Type TEXT,
		DateCreated TEXT,
		ChapterProgress REAL`
	if !d.NoColorColumn {
		bookmark += `,
		Color INTEGER`
	}
	bookmark += `)`

	stmts := []string{
		`CREATE TABLE content (
			ContentID TEXT NOT NULL,
			ContentType INTEGER NOT NULL,
			BookID TEXT,
			Title TEXT,
			Subtitle TEXT,
			Attribution TEXT,
			Publisher TEXT,
			ISBN TEXT,
			DateCreated TEXT,
			Series TEXT,
			SeriesNumber TEXT,
			AverageRating REAL,
			___PercentRead INTEGER,
			ReadStatus INTEGER,
			DateLastRead TEXT,
			___FileSize INTEGER,
			Accessibility INTEGER,
			___UserId TEXT,
			VolumeIndex INTEGER,
			Depth INTEGER,
			Description TEXT
		)`,
		bookmark,
	}
	if !d.NoUserTable {
		stmts = append(stmts, `CREATE TABLE user (
			UserID TEXT,
			UserDisplayName TEXT,
			UserEmail TEXT
		)`)
	}
	return stmts
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullInt(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}

// Library returns a small three-book fixture:
//   - "b1" The Hobbit: two chapters, three visible highlights (one in a
//     content file with no chapter), plus one hidden and one empty bookmark.
//   - "b2" Dune: no navigation rows, one highlight.
//   - "b3" Empty Book: sideloaded, no highlights.
func Library() *DB {
	return &DB{
		Books: []Book{
			{
				ID: "b1", Title: "The Hobbit", Author: "J.R.R. Tolkien", Publisher: "Allen & Unwin",
				Description: "<p>A <b>hobbit</b> goes there and back again.</p>",
				Accessibility: 1, ReadStatus: 1, PercentRead: 40,
				DateLastRead: "2024-03-01T10:00:00Z",
			},
			{ID: "b2", Title: "Dune", Author: "Frank Herbert", Accessibility: 1},
			{ID: "b3", Title: "Empty Book", Accessibility: -1},
		},
		Chapters: []Chapter{
			{ContentID: "b1!OEBPS!ch2.xhtml-2", BookID: "b1", Title: "Roast Mutton", VolumeIndex: Int(1), Depth: Int(1)},
			{ContentID: "b1!OEBPS!ch1.xhtml-1", BookID: "b1", Title: "An Unexpected Party", VolumeIndex: Int(0), Depth: Int(1)},
		},
		Bookmarks: []Bookmark{
			{
				ID: "h1", VolumeID: "b1", ContentID: "b1!OEBPS!ch1.xhtml", Progress: 0.2,
				Text: "In a hole in the ground there lived a hobbit.", Color: Int(0),
				DateCreated: "2024-02-01T09:00:00.000",
			},
			{
				ID: "h2", VolumeID: "b1", ContentID: "b1!OEBPS!ch2.xhtml", Progress: 0.5,
				Text: "They were trolls.", Annotation: "Classic", Color: Int(2),
				DateCreated: "2024-02-02T09:00:00.000",
			},
			{
				ID: "h3", VolumeID: "b1", ContentID: "b1!OEBPS!appendix.xhtml", Progress: 0.1,
				Text: "Lost line", DateCreated: "2024-02-03T09:00:00.000",
			},
			{ID: "h4", VolumeID: "b1", ContentID: "b1!OEBPS!ch1.xhtml", Text: "hidden", Hidden: true},
			{ID: "h5", VolumeID: "b1", ContentID: "b1!OEBPS!ch1.xhtml", Text: ""},
			{
				ID: "d1", VolumeID: "b2", ContentID: "b2!text.xhtml", Progress: 0.7,
				Text: "I must not fear.\nFear is the mind-killer.",
			},
		},
		Users: []User{{ID: DefaultUser, DisplayName: "Bilbo", Email: "bilbo@example.com"}},
	}
}
