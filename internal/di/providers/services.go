package providers

import (
	"github.com/samber/do/v2"

	"github.com/noteup/noteup/internal/config"
	"github.com/noteup/noteup/internal/export"
	"github.com/noteup/noteup/internal/logger"
	"github.com/noteup/noteup/internal/service"
	"github.com/noteup/noteup/internal/validation"
)

// ProvideValidator provides the request validator.
func ProvideValidator(i do.Injector) (*validation.Validator, error) {
	return validation.New(), nil
}

// ProvideNotesService provides the reconciliation service.
func ProvideNotesService(i do.Injector) (*service.NotesService, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)

	notes := service.NewNotesService(storeHandle.Store, log.Logger)
	notes.SetConcurrency(cfg.Export.Concurrency)
	return notes, nil
}

// ProvideExporter provides the export driver.
func ProvideExporter(i do.Injector) (*export.Exporter, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	notes := do.MustInvoke[*service.NotesService](i)
	validator := do.MustInvoke[*validation.Validator](i)

	return export.New(notes, validator, log.Logger,
		export.WithConcurrency(cfg.Export.Concurrency),
	), nil
}
