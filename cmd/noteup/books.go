package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/samber/do/v2"
	"github.com/spf13/cobra"

	"github.com/noteup/noteup/internal/service"
)

var booksJSON bool

var booksCmd = &cobra.Command{
	Use:   "books",
	Short: "List books with their highlight counts",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withContainer(cmd.Context(), func(ctx context.Context, injector do.Injector) error {
			notes, err := do.Invoke[*service.NotesService](injector)
			if err != nil {
				return err
			}
			books, err := notes.ListBooks(ctx)
			if err != nil {
				return err
			}
			if booksJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(books)
			}
			return printBooks(cmd.OutOrStdout(), books)
		})
	},
}

func init() {
	booksCmd.Flags().BoolVar(&booksJSON, "json", false, "Print JSON instead of a table")
	rootCmd.AddCommand(booksCmd)
}

func printBooks(out io.Writer, books []service.BookSummary) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tHIGHLIGHTS\tNOTES\tREAD\tTITLE\tAUTHOR")
	for i := range books {
		b := &books[i]
		fmt.Fprintf(w, "%s\t%d\t%d\t%d%%\t%s\t%s\n",
			b.ID, b.Highlights, b.Notes, b.ReadPercent, b.DisplayTitle(), b.DisplayAuthor())
	}
	return w.Flush()
}
