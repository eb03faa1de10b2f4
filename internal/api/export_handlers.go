package api

import (
	"bytes"
	"net/http"

	"github.com/noteup/noteup/internal/export"
	"github.com/noteup/noteup/internal/http/response"
)

// handleExport runs an export and returns the document or archive.
//
// Query: format, topology, book (repeatable, in output order),
// omit_empty, description.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	omitEmpty, err := queryBool(r, "omit_empty")
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}
	description, err := queryBool(r, "description")
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	req := export.Request{
		BookIDs:            r.URL.Query()["book"],
		Format:             queryString(r, "format", s.opts.DefaultFormat),
		Topology:           queryString(r, "topology", s.opts.DefaultTopology),
		OmitEmptyChapters:  omitEmpty,
		IncludeDescription: description,
	}

	// Buffered so headers can carry the checksum and a failed run can
	// still answer with a JSON error.
	var buf bytes.Buffer
	result, err := s.snapshot().Exporter.Export(r.Context(), req, &buf)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	for _, f := range result.Failures {
		s.logger.Warn("export placeholder", "run_id", result.RunID, "book_id", f.BookID, "error", f.Err)
	}
	writeDocument(w, result, buf.Bytes(), true)
}
