// Package api provides the read-only HTTP API over a Kobo database snapshot.
package api

import (
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/noteup/noteup/internal/export"
	"github.com/noteup/noteup/internal/ratelimit"
	"github.com/noteup/noteup/internal/search"
	"github.com/noteup/noteup/internal/service"
)

// Options configures the HTTP layer.
type Options struct {
	AllowedOrigins []string
	RateLimitRPS   float64
	RateLimitBurst int
	// Export defaults applied when a request leaves them out.
	DefaultFormat   string
	DefaultTopology string
}

// Snapshot is the data one generation of requests is served from. Search
// may be nil.
type Snapshot struct {
	Notes    *service.NotesService
	Exporter *export.Exporter
	Search   *search.Index
}

// Server holds dependencies for HTTP handlers.
type Server struct {
	data     atomic.Pointer[Snapshot]
	limiter  *ratelimit.KeyedRateLimiter
	opts     Options
	router   *chi.Mux
	logger   *slog.Logger
}

// NewServer creates a new HTTP server with all routes configured.
func NewServer(notes *service.NotesService, exporter *export.Exporter, index *search.Index, opts Options, logger *slog.Logger) *Server {
	if opts.DefaultFormat == "" {
		opts.DefaultFormat = "markdown"
	}
	if opts.DefaultTopology == "" {
		opts.DefaultTopology = string(export.TopologyCombined)
	}

	s := &Server{
		opts:   opts,
		router: chi.NewRouter(),
		logger: logger,
	}
	s.data.Store(&Snapshot{Notes: notes, Exporter: exporter, Search: index})
	if opts.RateLimitRPS > 0 {
		s.limiter = ratelimit.New(opts.RateLimitRPS, max(opts.RateLimitBurst, 1))
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Reload switches every later request to snap. Requests already running
// finish against the snapshot they started with.
func (s *Server) Reload(snap *Snapshot) {
	s.data.Store(snap)
}

// snapshot returns the data for one request.
func (s *Server) snapshot() *Snapshot {
	return s.data.Load()
}

// Close releases background resources held by the server.
func (s *Server) Close() {
	if s.limiter != nil {
		s.limiter.Stop()
	}
}

// setupMiddleware configures middleware stack.
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.requestLogger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.opts.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodHead, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"Content-Disposition", headerExportRun, headerExportChecksum, headerExportFailures},
		MaxAge:         300,
	}))
	if s.limiter != nil {
		s.router.Use(rateLimitMiddleware(s.limiter, s.logger))
	}
	s.router.Use(middleware.Compress(5))
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	s.router.Get("/health", s.handleHealthCheck)

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Route("/books", func(r chi.Router) {
			r.Get("/", s.handleListBooks)
			r.Get("/{id}", s.handleGetBook)
			r.Get("/{id}/notes", s.handleGetBookNotes)
		})
		r.Get("/export", s.handleExport)
		r.Get("/search", s.handleSearch)
	})
}

// requestLogger logs one line per request through slog.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		next.ServeHTTP(ww, r)

		s.logger.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}
