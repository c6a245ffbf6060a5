package cmd

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/vecturakit/vectura/internal/cliui"
)

func newAddCmd() *cobra.Command {
	var id string

	cmd := &cobra.Command{
		Use:   "add <text>",
		Short: "Add a document",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text := strings.Join(args, " ")

			db, err := openDatabase(cmd.Context())
			if err != nil {
				return err
			}
			defer db.Close()

			addedID, err := db.AddDocument(cmd.Context(), text, id)
			if err != nil {
				return err
			}

			out := cliui.NewWriter(cmd.OutOrStdout(), styles())
			out.Successf("Added document %s", addedID)
			return nil
		},
	}

	cmd.Flags().StringVar(&id, "id", "", "document id (generated if omitted)")

	return cmd
}
