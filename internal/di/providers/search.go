package providers

import (
	"context"

	"github.com/samber/do/v2"

	"github.com/noteup/noteup/internal/logger"
	"github.com/noteup/noteup/internal/search"
	"github.com/noteup/noteup/internal/service"
)

// SearchIndexHandle wraps the search index with shutdown capability.
type SearchIndexHandle struct {
	*search.Index
}

// Shutdown implements do.Shutdownable.
func (h *SearchIndexHandle) Shutdown() error {
	return h.Close()
}

// ProvideSearchIndex builds the in-memory index from the current snapshot.
func ProvideSearchIndex(i do.Injector) (*SearchIndexHandle, error) {
	log := do.MustInvoke[*logger.Logger](i)
	notes := do.MustInvoke[*service.NotesService](i)

	index, err := search.NewIndex(log.Logger)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if _, err := index.Load(ctx, notes); err != nil {
		_ = index.Close()
		return nil, err
	}

	return &SearchIndexHandle{Index: index}, nil
}
