package cmd

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/vecturakit/vectura/internal/cliui"
)

func newUpdateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "update <id> <text>",
		Short: "Replace a document's text, preserving its id and creation time",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := args[0]
			text := strings.Join(args[1:], " ")

			db, err := openDatabase(cmd.Context())
			if err != nil {
				return err
			}
			defer db.Close()

			if err := db.UpdateDocument(cmd.Context(), id, text); err != nil {
				return err
			}

			out := cliui.NewWriter(cmd.OutOrStdout(), styles())
			out.Successf("Updated document %s", id)
			return nil
		},
	}

	return cmd
}
