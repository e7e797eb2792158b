package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Aaryanpadhaikarega/otp-bot/internal/config"
	"github.com/Aaryanpadhaikarega/otp-bot/internal/database"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create the accounts, approvals and grants tables",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.NewLoader(configPath).Load()
		if err != nil {
			return err
		}
		if cfg.Storage.Backend != config.BackendSQL {
			return fmt.Errorf("migrate needs storage.backend=sql, got %q", cfg.Storage.Backend)
		}
		db, err := openDB(cmd.Context(), cfg.Database)
		if err != nil {
			return err
		}
		defer db.Close()

		if err := database.Migrate(cmd.Context(), db); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✅ Schema is up to date (%s)\n", db.DriverName())
		return nil
	},
}
