package cmd

import (
	"strconv"

	"github.com/spf13/cobra"

	"github.com/vecturakit/vectura/internal/cliui"
)

func newStatsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show database name, directory and document count",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openDatabase(cmd.Context())
			if err != nil {
				return err
			}
			defer db.Close()

			count, err := db.DocumentCount(cmd.Context())
			if err != nil {
				return err
			}

			out := cliui.NewWriter(cmd.OutOrStdout(), styles())
			out.Label("name", flags.name)
			out.Label("dir", flags.dir)
			out.Label("documents", strconv.Itoa(count))
			return nil
		},
	}

	return cmd
}
