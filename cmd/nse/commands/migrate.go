package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nous-sync/nse/internal/logger"
	"github.com/nous-sync/nse/pkg/relaystore"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run relay store migrations",
	Long: `Run database migrations for the relay store.

For Postgres, relaystore.New applies the embedded golang-migrate SQL
migrations before GORM ever connects, then runs GORM AutoMigrate as a
safety net for any model field migrate's SQL hasn't caught up with. For
SQLite, AutoMigrate alone handles schema setup. Either way this command
is mostly useful to apply schema changes ahead of a deploy without also
starting the HTTP server.

Examples:
  # Migrate with default config
  nse migrate

  # Migrate with a custom config file
  nse migrate --config /etc/nse/config.yaml`,
	RunE: runMigrate,
}

func runMigrate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := InitLogger(cfg); err != nil {
		return err
	}

	logger.Info("running relay store migrations", "type", cfg.Relay.Database.Type)

	store, err := relaystore.New(&cfg.Relay.Database)
	if err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	sqlDB, err := store.DB().DB()
	if err != nil {
		return fmt.Errorf("migration verification failed: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		return fmt.Errorf("migration verification failed: %w", err)
	}

	fmt.Printf("Migrations completed successfully (database type: %s)\n", cfg.Relay.Database.Type)
	return nil
}
