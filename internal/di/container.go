// Package di provides dependency injection configuration for NoteUp.
package di

import (
	"github.com/samber/do/v2"

	"github.com/noteup/noteup/internal/config"
	"github.com/noteup/noteup/internal/di/providers"
)

// NewContainer creates and configures the DI container with all providers.
// Services are built lazily, so a command only opens what it invokes; one
// container holds one snapshot of the Kobo database.
func NewContainer(flags config.Flags) *do.RootScope {
	injector := do.New()

	// Core infrastructure
	do.ProvideValue(injector, flags)
	do.Provide(injector, providers.ProvideConfig)
	do.Provide(injector, providers.ProvideLogger)

	// Source snapshot
	do.Provide(injector, providers.ProvideStore)

	// Business services
	do.Provide(injector, providers.ProvideValidator)
	do.Provide(injector, providers.ProvideNotesService)
	do.Provide(injector, providers.ProvideExporter)

	// Search layer
	do.Provide(injector, providers.ProvideSearchIndex)

	// Server
	do.Provide(injector, providers.ProvideAPISnapshot)
	do.Provide(injector, providers.ProvideHTTPServer)

	return injector
}
