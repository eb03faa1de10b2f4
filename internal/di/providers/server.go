package providers

import (
	"context"
	"errors"
	"net/http"

	"github.com/samber/do/v2"

	"github.com/noteup/noteup/internal/api"
	"github.com/noteup/noteup/internal/config"
	"github.com/noteup/noteup/internal/export"
	"github.com/noteup/noteup/internal/logger"
	"github.com/noteup/noteup/internal/service"
)

// HTTPServerHandle wraps http.Server with Shutdownable.
type HTTPServerHandle struct {
	*http.Server
	handler *api.Server
	errc    chan error
}

// Shutdown implements do.Shutdownable.
func (h *HTTPServerHandle) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	defer h.handler.Close()
	return h.Server.Shutdown(ctx)
}

// Err reports a listener failure. It never fires after a clean Shutdown.
func (h *HTTPServerHandle) Err() <-chan error {
	return h.errc
}

// Reload switches the API to a new data snapshot.
func (h *HTTPServerHandle) Reload(snap *api.Snapshot) {
	h.handler.Reload(snap)
}

// ProvideAPISnapshot provides the data the API serves from this container.
func ProvideAPISnapshot(i do.Injector) (*api.Snapshot, error) {
	notes := do.MustInvoke[*service.NotesService](i)
	exporter := do.MustInvoke[*export.Exporter](i)
	searchHandle, err := do.Invoke[*SearchIndexHandle](i)
	if err != nil {
		return nil, err
	}
	return &api.Snapshot{Notes: notes, Exporter: exporter, Search: searchHandle.Index}, nil
}

// ProvideHTTPServer provides the HTTP server and starts it in the background.
func ProvideHTTPServer(i do.Injector) (*HTTPServerHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	snap, err := do.Invoke[*api.Snapshot](i)
	if err != nil {
		return nil, err
	}

	handler := api.NewServer(snap.Notes, snap.Exporter, snap.Search, api.Options{
		AllowedOrigins:  cfg.Server.AllowedOrigins,
		RateLimitRPS:    cfg.Server.RateLimitRPS,
		RateLimitBurst:  cfg.Server.RateLimitBurst,
		DefaultFormat:   cfg.Export.Format,
		DefaultTopology: cfg.Export.Topology,
	}, log.Logger)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	errc := make(chan error, 1)

	// Start in background
	go func() {
		log.Info("HTTP server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("HTTP server error", "error", err)
			errc <- err
		}
	}()

	return &HTTPServerHandle{Server: srv, handler: handler, errc: errc}, nil
}
