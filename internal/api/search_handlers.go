package api

import (
	"net/http"

	"github.com/noteup/noteup/internal/http/response"
	"github.com/noteup/noteup/internal/search"
)

// handleSearch searches highlights and comments.
//
// Query: q, book, color, limit (1-100), offset.
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	index := s.snapshot().Search
	if index == nil {
		response.Error(w, http.StatusServiceUnavailable, "search index not configured", s.logger)
		return
	}

	limit, err := queryInt(r, "limit", search.DefaultLimit, 1, 100)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}
	offset, err := queryInt(r, "offset", 0, 0, 10000)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	params := search.DefaultParams()
	params.Query = r.URL.Query().Get("q")
	params.BookID = r.URL.Query().Get("book")
	params.Color = r.URL.Query().Get("color")
	params.Limit = limit
	params.Offset = offset

	if params.Query == "" && params.BookID == "" && params.Color == "" {
		response.BadRequest(w, "q, book or color is required", s.logger)
		return
	}

	result, err := index.Search(r.Context(), params)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}
	response.Success(w, result, s.logger)
}
