package cmd

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/vecturakit/vectura/internal/cliui"
	"github.com/vecturakit/vectura/internal/searchquery"
)

func newSearchCmd() *cobra.Command {
	var limit int
	var threshold float32

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search documents by text",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.Join(args, " ")

			db, err := openDatabase(cmd.Context())
			if err != nil {
				return err
			}
			defer db.Close()

			opts := searchquery.Options{NumResults: limit}
			if cmd.Flags().Changed("threshold") {
				opts.Threshold = &threshold
			}

			results, err := db.Search(cmd.Context(), searchquery.TextQuery(query), opts)
			if err != nil {
				return err
			}

			out := cliui.NewWriter(cmd.OutOrStdout(), styles())
			if len(results) == 0 {
				out.Infof("No results for %q", query)
				return nil
			}

			for i, r := range results {
				out.Result(i+1, r.ID, r.Score, r.Text)
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "maximum number of results")
	cmd.Flags().Float32Var(&threshold, "threshold", 0, "minimum score to include a result")

	return cmd
}
