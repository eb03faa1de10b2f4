package main

import (
	"github.com/samber/do/v2"
	"github.com/spf13/cobra"

	"github.com/noteup/noteup/internal/api"
	"github.com/noteup/noteup/internal/config"
	"github.com/noteup/noteup/internal/di"
	"github.com/noteup/noteup/internal/di/providers"
	"github.com/noteup/noteup/internal/logger"
	"github.com/noteup/noteup/internal/watcher"
)

var serveReload bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve books, notes, exports and search over HTTP",
	Long: `Serve answers from one snapshot of the Kobo database. With --reload (the
default) the database is watched and, once it has stopped changing, a fresh
snapshot replaces the old one. Requests already running finish against the
snapshot they started with. With --reload=false the snapshot taken at
startup is served until the process exits.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		// Snapshots replaced by reloads. Deferred before the server's own
		// container so they are closed only after the server has drained.
		var generations []*do.RootScope
		defer func() {
			for _, g := range generations {
				shutdownContainer(g)
			}
		}()

		injector := di.NewContainer(flags)
		defer shutdownContainer(injector)

		cfg, err := do.Invoke[*config.Config](injector)
		if err != nil {
			return err
		}
		log, err := do.Invoke[*logger.Logger](injector)
		if err != nil {
			return err
		}
		srv, err := do.Invoke[*providers.HTTPServerHandle](injector)
		if err != nil {
			return err
		}

		var changes <-chan watcher.Event
		if serveReload {
			w, err := watcher.New(log.Logger, cfg.Source.DatabasePath, watcher.Options{
				SettleDelay: cfg.Watch.SettleDelay,
			})
			if err != nil {
				return err
			}
			defer w.Stop()
			go func() {
				_ = w.Start(ctx)
			}()
			changes = w.Events()
		}

		// Wait for shutdown signal
		for {
			select {
			case <-ctx.Done():
				log.Info("Shutting down server gracefully...")
				return nil
			case err := <-srv.Err():
				return err
			case event := <-changes:
				if event.Type != watcher.EventChanged {
					log.Info("Source database removed, serving the last snapshot", "path", event.Path)
					continue
				}
				next := di.NewContainer(flags)
				snap, err := do.Invoke[*api.Snapshot](next)
				if err != nil {
					log.WithError(err).Error("Reload failed, serving the last snapshot")
					shutdownContainer(next)
					continue
				}
				srv.Reload(snap)
				log.Info("Source database reloaded", "size", event.Size, "modified", event.ModTime)

				// Keep the previous generation open for requests still using it.
				generations = append(generations, next)
				if len(generations) > 2 {
					shutdownContainer(generations[0])
					generations = generations[1:]
				}
			}
		}
	},
}

func init() {
	serveCmd.Flags().StringVarP(&flags.Port, "port", "p", "", "Port to listen on (env NOTEUP_SERVER_PORT)")
	serveCmd.Flags().BoolVar(&serveReload, "reload", true, "Reload the snapshot when the database file changes")
	rootCmd.AddCommand(serveCmd)
}
