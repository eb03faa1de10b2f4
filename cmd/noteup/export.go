package main

import (
	"context"
	"io"

	"github.com/samber/do/v2"
	"github.com/spf13/cobra"

	"github.com/noteup/noteup/internal/config"
	"github.com/noteup/noteup/internal/export"
	"github.com/noteup/noteup/internal/logger"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export notes for one, several or all books",
	Long: `Export renders every requested book and packages the documents.

  single    one book, one document
  combined  all documents in one file, separated by a rule
  archive   a zip with one file per book plus export-info.txt

Without --out the export is written to --dir under a name derived from the
books and the date. Use --out - to write to stdout.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withContainer(cmd.Context(), func(ctx context.Context, injector do.Injector) error {
			cfg, err := do.Invoke[*config.Config](injector)
			if err != nil {
				return err
			}
			req := buildRequest(cfg, exportOpts, cmd.Flags().Changed)
			_, err = runExport(ctx, injector, req, exportOpts.out, cmd.OutOrStdout())
			return err
		})
	},
}

func init() {
	addExportFlags(exportCmd)
	exportCmd.Flags().StringVarP(&exportOpts.out, "out", "o", "", "Output file, or - for stdout")
	rootCmd.AddCommand(exportCmd)
}

// runExport executes req and reports the outcome on the logger.
func runExport(ctx context.Context, injector do.Injector, req export.Request, out string, stdout io.Writer) (*export.Result, error) {
	cfg, err := do.Invoke[*config.Config](injector)
	if err != nil {
		return nil, err
	}
	log, err := do.Invoke[*logger.Logger](injector)
	if err != nil {
		return nil, err
	}
	exporter, err := do.Invoke[*export.Exporter](injector)
	if err != nil {
		return nil, err
	}

	var result *export.Result
	switch out {
	case "-":
		result, err = exporter.Export(ctx, req, stdout)
	case "":
		result, err = exporter.ExportToDir(ctx, req, cfg.Export.OutputDir)
	default:
		result, err = exporter.ExportFile(ctx, req, out)
	}
	if err != nil {
		return nil, err
	}

	for _, f := range result.Failures {
		log.WithBook(f.BookID).WithError(f.Err).Warn("Book exported as placeholder")
	}
	if result.Path != "" {
		log.Info("Export written",
			"path", result.Path,
			"books", len(result.Books),
			"failures", len(result.Failures),
			"sha256", result.Checksum,
		)
	}
	return result, nil
}
