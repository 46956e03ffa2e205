package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/MihaiBojin/pyplyn/internal/config"
	"github.com/MihaiBojin/pyplyn/internal/storage/postgres"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending Postgres schema migrations and exit",
	RunE: func(c *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		if cfg.Postgres.DSN == "" {
			return fmt.Errorf("postgres.dsn is not configured")
		}
		if err := postgres.Migrate(cfg.Postgres.DSN); err != nil {
			return fmt.Errorf("running migrations: %w", err)
		}
		fmt.Println("migrations applied")
		return nil
	},
}
