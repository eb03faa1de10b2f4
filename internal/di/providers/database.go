package providers

import (
	"context"

	"github.com/samber/do/v2"

	"github.com/noteup/noteup/internal/config"
	"github.com/noteup/noteup/internal/logger"
	"github.com/noteup/noteup/internal/store/kobo"
)

// StoreHandle wraps the Kobo snapshot with shutdown capability.
type StoreHandle struct {
	*kobo.Store
}

// Shutdown implements do.Shutdownable.
func (h *StoreHandle) Shutdown() error {
	return h.Close()
}

// ProvideStore opens a snapshot of the configured Kobo database.
func ProvideStore(i do.Injector) (*StoreHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	if err := cfg.RequireSource(); err != nil {
		return nil, err
	}

	s, err := kobo.OpenFile(context.Background(), cfg.Source.DatabasePath, log.Logger)
	if err != nil {
		return nil, err
	}

	attrs := []any{"path", cfg.Source.DatabasePath}
	if user, err := s.UserDetails(context.Background()); err != nil {
		log.Warn("Failed to read Kobo account", "error", err)
	} else if user != nil {
		attrs = append(attrs, "account", user.DisplayName)
	}
	log.Info("Kobo database opened", attrs...)

	return &StoreHandle{Store: s}, nil
}
