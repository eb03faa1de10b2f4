package main

import (
	"context"
	"fmt"
	"os"

	"github.com/samber/do/v2"
	"github.com/spf13/cobra"

	"github.com/noteup/noteup/internal/di"
)

var rootCmd = &cobra.Command{
	Use:   "noteup",
	Short: "Export Kobo highlights and notes by chapter",
	Long: `NoteUp reads the highlights and notes from a Kobo e-reader database
(KoboReader.sqlite), places each one in the chapter it was made in and
exports them as Markdown or plain text.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flags.DatabasePath, "db", "", "Path to KoboReader.sqlite (env NOTEUP_KOBO_DB_PATH)")
	pf.StringVar(&flags.EnvFile, "env-file", "", "Path to a .env file (default .env)")
	pf.StringVar(&flags.Environment, "env", "", "Environment: development, staging or production")
	pf.StringVar(&flags.LogLevel, "log-level", "", "Log level: debug, info, warn or error")
}

// withContainer runs fn against a fresh container, which holds one snapshot
// of the source database, and shuts the container down afterwards.
func withContainer(ctx context.Context, fn func(ctx context.Context, injector do.Injector) error) error {
	injector := di.NewContainer(flags)
	defer shutdownContainer(injector)
	return fn(ctx, injector)
}

func shutdownContainer(injector *do.RootScope) {
	if err := injector.Shutdown(); err != nil {
		fmt.Fprintf(os.Stderr, "Shutdown error: %v\n", err)
	}
}
