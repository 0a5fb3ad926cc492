package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/atende-ai/atende/db"
	"github.com/atende-ai/atende/internal/config"
	"github.com/atende-ai/atende/internal/log"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run pending database migrations",
	RunE: func(_ *cobra.Command, _ []string) error {
		return runMigrate()
	},
}

func runMigrate() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := log.New(log.Config{Level: log.ParseLevel(cfg.LogLevel), JSON: cfg.LogJSON})
	if err := db.Migrate(cfg.PostgresURL(), logger); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	return nil
}
