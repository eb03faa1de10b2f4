// Package export drives the renderer over one or many books and packages
// the documents as a single document, a combined document or a zip archive.
package export

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/klauspost/compress/zip"
	"golang.org/x/sync/errgroup"

	"github.com/noteup/noteup/internal/errors"
	"github.com/noteup/noteup/internal/id"
	"github.com/noteup/noteup/internal/render"
	"github.com/noteup/noteup/internal/service"
	"github.com/noteup/noteup/internal/validation"
)

// Topology selects how documents are packaged.
type Topology string

// Supported topologies.
const (
	TopologySingle   Topology = "single"
	TopologyCombined Topology = "combined"
	TopologyArchive  Topology = "archive"
)

// InfoFilename is the manifest written into every archive.
const InfoFilename = "export-info.txt"

// Request describes one export run.
type Request struct {
	// BookIDs in output order. Empty exports every book, highlights first.
	BookIDs            []string `json:"book_ids" validate:"omitempty,dive,required"`
	Format             string   `json:"format" validate:"required,oneof=markdown text"`
	Topology           string   `json:"topology" validate:"required,oneof=single combined archive"`
	OmitEmptyChapters  bool     `json:"omit_empty_chapters"`
	IncludeDescription bool     `json:"include_description"`
}

// Entry records what happened to one requested book.
type Entry struct {
	BookID     string `json:"book_id"`
	Title      string `json:"title,omitempty"`
	Filename   string `json:"filename,omitempty"`
	Highlights int    `json:"highlights"`
	Failed     bool   `json:"failed,omitempty"`
}

// Failure is a book that was replaced by a placeholder document.
type Failure struct {
	BookID string `json:"book_id"`
	Err    error  `json:"-"`
}

// Error implements the error interface.
func (f Failure) Error() string {
	return fmt.Sprintf("book %q: %v", f.BookID, f.Err)
}

// Result describes a finished export.
type Result struct {
	RunID       string        `json:"run_id"`
	Format      render.Format `json:"format"`
	Topology    Topology      `json:"topology"`
	Filename    string        `json:"filename"` // suggested name for the output
	ContentType string        `json:"content_type"`
	Path        string        `json:"path,omitempty"`
	Checksum    string        `json:"checksum"` // SHA-256 of the output, hex
	Books       []Entry       `json:"books"`
	Failures    []Failure     `json:"-"`
	Size        int64         `json:"size"`
	Duration    time.Duration `json:"duration"`
}

// Option configures an Exporter.
type Option func(*Exporter)

// WithConcurrency bounds how many books are reconciled at once.
func WithConcurrency(n int) Option {
	return func(e *Exporter) {
		if n > 0 {
			e.concurrency = n
		}
	}
}

// WithClock replaces time.Now for export timestamps.
func WithClock(now func() time.Time) Option {
	return func(e *Exporter) { e.now = now }
}

// Exporter runs export requests against one notes service.
type Exporter struct {
	notes       *service.NotesService
	validator   *validation.Validator
	logger      *slog.Logger
	concurrency int
	now         func() time.Time
}

// New creates an Exporter.
func New(notes *service.NotesService, validator *validation.Validator, logger *slog.Logger, opts ...Option) *Exporter {
	e := &Exporter{
		notes:       notes,
		validator:   validator,
		logger:      logger,
		concurrency: service.DefaultConcurrency,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// document is one rendered book.
type document struct {
	entry Entry
	body  string
	err   error // set when body is a placeholder
}

// Export runs req and streams the output to w.
func (e *Exporter) Export(ctx context.Context, req Request, w io.Writer) (*Result, error) {
	start := time.Now()

	// Accept the "md" and "txt" aliases; unknown values fail validation.
	if req.Format != "" {
		if f, err := render.ParseFormat(req.Format); err == nil {
			req.Format = string(f)
		}
	}
	if err := e.validator.Validate(req); err != nil {
		return nil, err
	}
	topology := Topology(req.Topology)
	format := render.Format(req.Format)
	if topology == TopologySingle && len(req.BookIDs) != 1 {
		return nil, errors.Validationf("single export needs exactly one book, got %d", len(req.BookIDs))
	}

	runID, err := id.Generate("exp")
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "generate export id")
	}
	log := e.logger.With("run_id", runID, "topology", topology, "format", format)

	exportedAt := e.now()
	renderer := render.New(render.Options{
		Format:             format,
		OmitEmptyChapters:  req.OmitEmptyChapters,
		IncludeDescription: req.IncludeDescription,
		ExportedAt:         func() time.Time { return exportedAt },
	})

	bookIDs := req.BookIDs
	if len(bookIDs) == 0 {
		if bookIDs, err = e.allBookIDs(ctx); err != nil {
			return nil, err
		}
	}

	hash := sha256.New()
	counter := &countingWriter{}
	out := io.MultiWriter(w, hash, counter)

	result := &Result{
		RunID:    runID,
		Format:   format,
		Topology: topology,
	}

	switch topology {
	case TopologySingle:
		err = e.exportSingle(ctx, renderer, bookIDs[0], out, result)
	case TopologyCombined:
		err = e.exportCombined(ctx, renderer, bookIDs, out, result, log)
	case TopologyArchive:
		err = e.exportArchive(ctx, renderer, bookIDs, out, result, exportedAt, log)
	}
	if err != nil {
		return nil, err
	}

	result.Size = counter.n
	result.Checksum = hex.EncodeToString(hash.Sum(nil))
	result.Duration = time.Since(start)

	log.Info("export finished",
		"books", len(result.Books),
		"failures", len(result.Failures),
		"bytes", result.Size,
		"duration", result.Duration,
	)
	return result, nil
}

// ExportFile runs req into path. The output is written to a temporary file
// next to path and renamed into place only on success.
func (e *Exporter) ExportFile(ctx context.Context, req Request, path string) (*Result, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}

	tmpPath := path + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return nil, fmt.Errorf("create export file: %w", err)
	}
	defer os.Remove(tmpPath) // Clean up on failure
	defer f.Close()

	result, err := e.Export(ctx, req, f)
	if err != nil {
		return nil, err
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("close export file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return nil, fmt.Errorf("rename export file: %w", err)
	}

	result.Path = path
	return result, nil
}

// ExportToDir runs req into dir under the suggested Result.Filename, which is
// only known once the books are resolved.
func (e *Exporter) ExportToDir(ctx context.Context, req Request, dir string) (*Result, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}

	f, err := os.CreateTemp(dir, ".noteup-*.tmp")
	if err != nil {
		return nil, fmt.Errorf("create export file: %w", err)
	}
	tmpPath := f.Name()
	defer os.Remove(tmpPath)
	defer f.Close()

	result, err := e.Export(ctx, req, f)
	if err != nil {
		return nil, err
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("close export file: %w", err)
	}

	path := filepath.Join(dir, result.Filename)
	if err := os.Rename(tmpPath, path); err != nil {
		return nil, fmt.Errorf("rename export file: %w", err)
	}

	result.Path = path
	return result, nil
}

func (e *Exporter) allBookIDs(ctx context.Context) ([]string, error) {
	summaries, err := e.notes.ListBooks(ctx)
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(summaries))
	for i, s := range summaries {
		ids[i] = s.ID
	}
	return ids, nil
}

func (e *Exporter) exportSingle(ctx context.Context, r *render.Renderer, bookID string, w io.Writer, result *Result) error {
	notes, err := e.notes.BookNotes(ctx, bookID)
	if err != nil {
		return err
	}

	if err := r.Render(w, notes.Book, notes.Chapters()); err != nil {
		return err
	}

	result.Filename = SafeFilename(notes.Book.DisplayTitle()) + r.Format().Extension()
	result.ContentType = r.Format().ContentType()
	result.Books = []Entry{{
		BookID:     bookID,
		Title:      notes.Book.Title,
		Highlights: notes.Result.Total(),
	}}
	return nil
}

func (e *Exporter) exportCombined(ctx context.Context, r *render.Renderer, bookIDs []string, w io.Writer, result *Result, log *slog.Logger) error {
	docs, err := e.renderAll(ctx, r.WithoutFooter(), bookIDs, log)
	if err != nil {
		return err
	}

	var b strings.Builder
	b.WriteString(r.CombinedHeader(len(docs)))
	for _, d := range docs {
		b.WriteString(d.body)
		b.WriteString(r.Separator())
	}
	b.WriteString(r.Footer())

	if _, err := io.WriteString(w, b.String()); err != nil {
		return errors.Wrap(err, errors.CodeRenderFailed, "write combined export")
	}

	result.Filename = "all-books-" + e.now().Format(time.DateOnly) + r.Format().Extension()
	result.ContentType = r.Format().ContentType()
	collect(result, docs)
	return nil
}

func (e *Exporter) exportArchive(ctx context.Context, r *render.Renderer, bookIDs []string, w io.Writer, result *Result, exportedAt time.Time, log *slog.Logger) error {
	docs, err := e.renderAll(ctx, r.WithoutFooter(), bookIDs, log)
	if err != nil {
		return err
	}

	names := newFilenames()
	zw := zip.NewWriter(w)
	for i := range docs {
		d := &docs[i]
		base := d.entry.Title
		if base == "" || d.entry.Failed {
			base = d.entry.BookID
		}
		d.entry.Filename = names.next(SafeFilename(base), r.Format().Extension())

		if err := writeZipFile(zw, d.entry.Filename, d.body, exportedAt); err != nil {
			return err
		}
	}

	collect(result, docs)
	info := exportInfo(result, len(docs), exportedAt)
	if err := writeZipFile(zw, InfoFilename, info, exportedAt); err != nil {
		return err
	}

	if err := zw.Close(); err != nil {
		return fmt.Errorf("close zip: %w", err)
	}

	result.Filename = "kobo-notes-" + exportedAt.Format(time.DateOnly) + ".zip"
	result.ContentType = "application/zip"
	return nil
}

// renderAll reconciles and renders books concurrently. Output keeps the
// order of bookIDs. A book that fails gets a placeholder document; only
// cancellation aborts the batch.
func (e *Exporter) renderAll(ctx context.Context, r *render.Renderer, bookIDs []string, log *slog.Logger) ([]document, error) {
	docs := make([]document, len(bookIDs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.concurrency)
	for i, bookID := range bookIDs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			notes, err := e.notes.BookNotes(gctx, bookID)
			if err != nil {
				if ctxErr := gctx.Err(); ctxErr != nil {
					return ctxErr
				}
				log.Warn("book replaced by placeholder", "book_id", bookID, "error", err)
				docs[i] = document{
					entry: Entry{BookID: bookID, Failed: true},
					body:  r.Placeholder(bookID, err),
					err:   err,
				}
				return nil
			}

			docs[i] = document{
				entry: Entry{
					BookID:     bookID,
					Title:      notes.Book.DisplayTitle(),
					Highlights: notes.Result.Total(),
				},
				body: r.RenderString(notes.Book, notes.Chapters()),
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("export abandoned: %w", err)
	}
	return docs, nil
}

func collect(result *Result, docs []document) {
	result.Books = make([]Entry, len(docs))
	for i, d := range docs {
		result.Books[i] = d.entry
		if d.err != nil {
			result.Failures = append(result.Failures, Failure{BookID: d.entry.BookID, Err: d.err})
		}
	}
}

func writeZipFile(zw *zip.Writer, name, body string, modified time.Time) error {
	fw, err := zw.CreateHeader(&zip.FileHeader{
		Name:     name,
		Method:   zip.Deflate,
		Modified: modified,
	})
	if err != nil {
		return fmt.Errorf("create %s in zip: %w", name, err)
	}
	if _, err := io.WriteString(fw, body); err != nil {
		return fmt.Errorf("write %s to zip: %w", name, err)
	}
	return nil
}

func exportInfo(result *Result, total int, at time.Time) string {
	var b strings.Builder
	b.WriteString("Export Information\n")
	b.WriteString("==================\n")
	fmt.Fprintf(&b, "Run: %s\n", result.RunID)
	fmt.Fprintf(&b, "Date: %s\n", at.UTC().Format(time.RFC3339))
	fmt.Fprintf(&b, "Total Books: %d\n", total)
	fmt.Fprintf(&b, "Failed Books: %d\n", len(result.Failures))
	fmt.Fprintf(&b, "Format: %s\n", result.Format)
	b.WriteString("Structure: Separate files in ZIP\n")
	return b.String()
}

// countingWriter counts bytes written through it.
type countingWriter struct {
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	c.n += int64(len(p))
	return len(p), nil
}
