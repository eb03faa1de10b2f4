package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/samber/do/v2"
	"github.com/spf13/cobra"

	"github.com/noteup/noteup/internal/di/providers"
	"github.com/noteup/noteup/internal/search"
)

var (
	searchBook  string
	searchColor string
	searchLimit int
	searchJSON  bool
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Full-text search across highlights and notes",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withContainer(cmd.Context(), func(ctx context.Context, injector do.Injector) error {
			index, err := do.Invoke[*providers.SearchIndexHandle](injector)
			if err != nil {
				return err
			}

			params := search.DefaultParams()
			params.Query = strings.Join(args, " ")
			params.BookID = searchBook
			params.Color = searchColor
			params.Limit = searchLimit
			params.IncludeFacets = false
			params.Highlight = false

			result, err := index.Search(ctx, params)
			if err != nil {
				return err
			}
			if searchJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(result)
			}
			printHits(cmd.OutOrStdout(), result)
			return nil
		})
	},
}

func init() {
	f := searchCmd.Flags()
	f.StringVar(&searchBook, "book", "", "Only search one book")
	f.StringVar(&searchColor, "color", "", "Only match highlights of this color")
	f.IntVarP(&searchLimit, "limit", "n", search.DefaultLimit, "Maximum number of hits")
	f.BoolVar(&searchJSON, "json", false, "Print JSON")
	rootCmd.AddCommand(searchCmd)
}

func printHits(w io.Writer, result *search.Result) {
	fmt.Fprintf(w, "%d matches for %q (%dms)\n", result.Total, result.Query, result.TookMs)
	for _, hit := range result.Hits {
		fmt.Fprintf(w, "\n%s / %s\n", hit.BookTitle, hit.ChapterTitle)
		fmt.Fprintf(w, "  %s\n", hit.Text)
		if hit.Comment != "" {
			fmt.Fprintf(w, "  note: %s\n", hit.Comment)
		}
	}
}
