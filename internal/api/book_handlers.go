package api

import (
	"bytes"
	"mime"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/noteup/noteup/internal/domain"
	"github.com/noteup/noteup/internal/export"
	"github.com/noteup/noteup/internal/http/response"
	"github.com/noteup/noteup/internal/service"
)

// BookNotesResponse is the JSON form of a reconciled book.
type BookNotesResponse struct {
	Book     service.BookSummary       `json:"book"`
	Chapters []domain.ChapterWithNotes `json:"chapters"`
}

// handleListBooks returns every book with its highlight counts.
func (s *Server) handleListBooks(w http.ResponseWriter, r *http.Request) {
	books, err := s.snapshot().Notes.ListBooks(r.Context())
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}
	response.Success(w, books, s.logger)
}

// handleGetBook returns one book with its counts.
func (s *Server) handleGetBook(w http.ResponseWriter, r *http.Request) {
	book, err := s.snapshot().Notes.GetBook(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}
	response.Success(w, book, s.logger)
}

// handleGetBookNotes returns a book's chapters and notes. Without a format
// the chapters are returned as JSON; format=markdown or format=text returns
// the rendered document.
func (s *Server) handleGetBookNotes(w http.ResponseWriter, r *http.Request) {
	bookID := chi.URLParam(r, "id")
	data := s.snapshot()

	omitEmpty, err := queryBool(r, "omit_empty")
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	format := r.URL.Query().Get("format")
	if format == "" || format == "json" {
		notes, err := data.Notes.BookNotes(r.Context(), bookID)
		if err != nil {
			response.HandleError(w, err, s.logger)
			return
		}
		book, err := data.Notes.GetBook(r.Context(), bookID)
		if err != nil {
			response.HandleError(w, err, s.logger)
			return
		}

		chapters := notes.Chapters()
		visible := make([]domain.ChapterWithNotes, 0, len(chapters))
		for _, ch := range chapters {
			if len(ch.Notes) == 0 && (omitEmpty || ch.IsUnmatched()) {
				continue
			}
			visible = append(visible, ch)
		}
		response.Success(w, BookNotesResponse{Book: *book, Chapters: visible}, s.logger)
		return
	}

	description, err := queryBool(r, "description")
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	var buf bytes.Buffer
	result, err := data.Exporter.Export(r.Context(), export.Request{
		BookIDs:            []string{bookID},
		Format:             format,
		Topology:           string(export.TopologySingle),
		OmitEmptyChapters:  omitEmpty,
		IncludeDescription: description,
	}, &buf)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}
	writeDocument(w, result, buf.Bytes(), false)
}

// Response headers describing an export.
const (
	headerExportRun      = "X-Export-Run"
	headerExportChecksum = "X-Export-Checksum"
	headerExportFailures = "X-Export-Failures"
)

// writeDocument writes a finished export body with its metadata headers.
func writeDocument(w http.ResponseWriter, result *export.Result, body []byte, attachment bool) {
	h := w.Header()
	h.Set("Content-Type", result.ContentType)
	h.Set(headerExportRun, result.RunID)
	h.Set(headerExportChecksum, result.Checksum)
	h.Set(headerExportFailures, strconv.Itoa(len(result.Failures)))

	disposition := "inline"
	if attachment {
		disposition = "attachment"
	}
	h.Set("Content-Disposition", mime.FormatMediaType(disposition, map[string]string{"filename": result.Filename}))

	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}
