package main

import (
	"context"
	"os"

	"github.com/samber/do/v2"
	"github.com/spf13/cobra"

	"github.com/noteup/noteup/internal/config"
	"github.com/noteup/noteup/internal/logger"
	"github.com/noteup/noteup/internal/watcher"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Re-export whenever the Kobo database changes",
	Long: `Watch exports once, then waits for the Kobo database to change (for
example when the reader is synced or mounted again) and exports again once
the file has stopped changing. Every run reads a fresh snapshot.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withContainer(cmd.Context(), func(ctx context.Context, injector do.Injector) error {
			cfg, err := do.Invoke[*config.Config](injector)
			if err != nil {
				return err
			}
			log, err := do.Invoke[*logger.Logger](injector)
			if err != nil {
				return err
			}
			if err := cfg.RequireSource(); err != nil {
				return err
			}

			w, err := watcher.New(log.Logger, cfg.Source.DatabasePath, watcher.Options{
				SettleDelay: cfg.Watch.SettleDelay,
			})
			if err != nil {
				return err
			}
			defer w.Stop()

			exportOnce := func() {
				err := withContainer(ctx, func(ctx context.Context, run do.Injector) error {
					req := buildRequest(cfg, exportOpts, cmd.Flags().Changed)
					_, err := runExport(ctx, run, req, exportOpts.out, cmd.OutOrStdout())
					return err
				})
				if err != nil && ctx.Err() == nil {
					log.WithError(err).Error("Export failed")
				}
			}

			if _, err := os.Stat(w.Path()); err == nil {
				exportOnce()
			} else {
				log.Info("Waiting for source database", "path", w.Path())
			}

			go func() {
				_ = w.Start(ctx)
			}()

			for {
				select {
				case <-ctx.Done():
					log.Info("Stopping watcher")
					return nil
				case event := <-w.Events():
					switch event.Type {
					case watcher.EventChanged:
						log.Info("Source database changed", "size", event.Size, "modified", event.ModTime)
						exportOnce()
					case watcher.EventRemoved:
						log.Info("Source database removed, waiting for it to return", "path", event.Path)
					}
				case err := <-w.Errors():
					log.WithError(err).Warn("Watcher error")
				}
			}
		})
	},
}

func init() {
	addExportFlags(watchCmd)
	watchCmd.Flags().StringVarP(&exportOpts.out, "out", "o", "", "Output file, or - for stdout")
	rootCmd.AddCommand(watchCmd)
}
