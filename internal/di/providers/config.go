package providers

import (
	"github.com/samber/do/v2"

	"github.com/noteup/noteup/internal/config"
	"github.com/noteup/noteup/internal/logger"
)

// ProvideConfig provides the application configuration. Command-line
// overrides are registered in the container as a config.Flags value.
func ProvideConfig(i do.Injector) (*config.Config, error) {
	flags, err := do.Invoke[config.Flags](i)
	if err != nil {
		flags = config.Flags{}
	}
	return config.LoadConfig(flags)
}

// ProvideLogger provides the structured logger.
func ProvideLogger(i do.Injector) (*logger.Logger, error) {
	cfg := do.MustInvoke[*config.Config](i)

	log := logger.New(logger.Config{
		Level:       logger.ParseLevel(cfg.Logger.Level),
		Format:      cfg.Logger.Format,
		AddSource:   cfg.App.Environment == "development" && cfg.Logger.Level == "debug",
		Environment: cfg.App.Environment,
	})

	log.Debug("Starting NoteUp",
		"environment", cfg.App.Environment,
		"log_level", cfg.Logger.Level,
		"kobo_db", cfg.Source.DatabasePath,
	)

	return log, nil
}
