package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"statement-reconciliation-backend/internal/config"
)

func newMigrateCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := opts.open()
			if err != nil {
				return err
			}
			defer rt.Close()

			if err := config.Migrate(rt.db); err != nil {
				return fmt.Errorf("migrate: %w", err)
			}
			rt.log.WithField("driver", rt.cfg.Database.Driver).Infof("schema up to date")
			fmt.Fprintln(cmd.OutOrStdout(), "schema up to date")
			return nil
		},
	}
}
