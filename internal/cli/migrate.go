package cli

import (
	"fmt"

	"llm-stock-prediction/internal/store"

	"github.com/spf13/cobra"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the PostgreSQL tables",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			log := newLogger(cfg)
			defer log.Sync()

			pg, err := connectPostgres(cmd.Context(), cfg, log)
			if err != nil {
				return err
			}
			defer pg.Close()

			if err := store.Migrate(cmd.Context(), pg); err != nil {
				return fmt.Errorf("migrate: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Migrations applied.")
			return nil
		},
	}
}
