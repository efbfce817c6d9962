package relaystore

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" database/sql driver

	"github.com/nous-sync/nse/internal/logger"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// runPostgresMigrations applies every pending SQL migration via an
// advisory lock, so only one relay instance actually runs them when
// several start against the same database at once. SQLite has no
// golang-migrate driver wired here; its schema is left to GORM's
// AutoMigrate, which is sufficient for the embedded single-node case.
func runPostgresMigrations(dsn string) error {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return fmt.Errorf("relaystore: open migration connection: %w", err)
	}
	defer db.Close()

	driver, err := postgres.WithInstance(db, &postgres.Config{
		MigrationsTable: "schema_migrations",
		DatabaseName:    "nse",
	})
	if err != nil {
		return fmt.Errorf("relaystore: postgres migration driver: %w", err)
	}

	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("relaystore: read embedded migrations: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, "nse", driver)
	if err != nil {
		return fmt.Errorf("relaystore: build migrator: %w", err)
	}

	logger.Info("running relay schema migrations")
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("relaystore: migrate up: %w", err)
	}
	return nil
}
