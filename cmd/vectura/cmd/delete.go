package cmd

import (
	"github.com/spf13/cobra"

	"github.com/vecturakit/vectura/internal/cliui"
)

func newDeleteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <id>...",
		Short: "Delete documents by id (idempotent)",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openDatabase(cmd.Context())
			if err != nil {
				return err
			}
			defer db.Close()

			if err := db.DeleteDocuments(cmd.Context(), args); err != nil {
				return err
			}

			out := cliui.NewWriter(cmd.OutOrStdout(), styles())
			out.Successf("Deleted %d document(s)", len(args))
			return nil
		},
	}

	return cmd
}
