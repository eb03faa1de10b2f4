package main

import (
	"context"

	"github.com/samber/do/v2"
	"github.com/spf13/cobra"

	"github.com/noteup/noteup/internal/config"
	"github.com/noteup/noteup/internal/export"
)

var notesCmd = &cobra.Command{
	Use:   "notes <book-id>",
	Short: "Print one book's notes grouped by chapter",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withContainer(cmd.Context(), func(ctx context.Context, injector do.Injector) error {
			cfg, err := do.Invoke[*config.Config](injector)
			if err != nil {
				return err
			}
			exporter, err := do.Invoke[*export.Exporter](injector)
			if err != nil {
				return err
			}

			req := buildRequest(cfg, exportOpts, cmd.Flags().Changed)
			req.BookIDs = []string{args[0]}
			req.Topology = string(export.TopologySingle)

			_, err = exporter.Export(ctx, req, cmd.OutOrStdout())
			return err
		})
	},
}

func init() {
	addFormatFlags(notesCmd)
	rootCmd.AddCommand(notesCmd)
}
