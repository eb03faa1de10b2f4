package main

import (
	"github.com/spf13/cobra"

	"github.com/noteup/noteup/internal/config"
	"github.com/noteup/noteup/internal/export"
)

// flags carries the overrides that feed config.LoadConfig.
var flags config.Flags

// exportOptions holds export flags that have no config counterpart or
// whose config default must only be replaced when set explicitly.
type exportOptions struct {
	books       []string
	out         string
	omitEmpty   bool
	description bool
}

var exportOpts exportOptions

func addFormatFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVarP(&flags.Format, "format", "f", "", "Output format: markdown or text")
	f.BoolVar(&exportOpts.omitEmpty, "omit-empty", false, "Skip chapters without highlights")
	f.BoolVar(&exportOpts.description, "description", false, "Include the book description")
}

func addExportFlags(cmd *cobra.Command) {
	addFormatFlags(cmd)
	f := cmd.Flags()
	f.StringVarP(&flags.Topology, "topology", "t", "", "Packaging: single, combined or archive")
	f.StringVar(&flags.OutputDir, "dir", "", "Directory for exports written under their suggested name")
	f.StringSliceVarP(&exportOpts.books, "book", "b", nil, "Book id to export (repeatable; default all books)")
}

// buildRequest merges config defaults with explicitly set flags.
func buildRequest(cfg *config.Config, opts exportOptions, changed func(name string) bool) export.Request {
	req := export.Request{
		BookIDs:            opts.books,
		Format:             cfg.Export.Format,
		Topology:           cfg.Export.Topology,
		OmitEmptyChapters:  cfg.Export.OmitEmptyChapters,
		IncludeDescription: cfg.Export.IncludeDescription,
	}
	if changed("omit-empty") {
		req.OmitEmptyChapters = opts.omitEmpty
	}
	if changed("description") {
		req.IncludeDescription = opts.description
	}
	return req
}
