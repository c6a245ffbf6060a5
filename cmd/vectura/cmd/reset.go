package cmd

import (
	"github.com/spf13/cobra"

	"github.com/vecturakit/vectura/internal/cliui"
)

func newResetCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Delete every document in the database",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cliui.NewWriter(cmd.OutOrStdout(), styles())

			if !force {
				out.Errorf("This deletes every document in %q. Re-run with --force to confirm.", flags.name)
				return nil
			}

			db, err := openDatabase(cmd.Context())
			if err != nil {
				return err
			}
			defer db.Close()

			if err := db.Reset(cmd.Context()); err != nil {
				return err
			}

			out.Success("Database reset")
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "confirm the reset")

	return cmd
}
