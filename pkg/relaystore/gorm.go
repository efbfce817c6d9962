// Package relaystore is the relay's persistence layer: devices, change
// sets, key versions, namespace locks, and unresolved conflicts, backed
// by GORM over either SQLite (single-node) or PostgreSQL (HA-capable).
package relaystore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/nous-sync/nse/pkg/models"
)

// DatabaseType selects the relay's SQL backend.
type DatabaseType string

const (
	DatabaseTypeSQLite   DatabaseType = "sqlite"
	DatabaseTypePostgres DatabaseType = "postgres"
)

// SQLiteConfig configures the embedded single-node backend.
type SQLiteConfig struct {
	Path string
}

// PostgresConfig configures the HA-capable backend.
type PostgresConfig struct {
	Host         string
	Port         int
	Database     string
	User         string
	Password     string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

// DSN returns the PostgreSQL connection string.
func (c *PostgresConfig) DSN() string {
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s",
		c.Host, c.Port, c.User, c.Password, c.Database)
	if c.SSLMode != "" {
		dsn += fmt.Sprintf(" sslmode=%s", c.SSLMode)
	}
	return dsn
}

// Config is the relay store's top-level configuration.
type Config struct {
	Type      DatabaseType
	SQLite    SQLiteConfig
	Postgres  PostgresConfig
	BlobStore BlobStoreConfig
}

// ApplyDefaults fills unset fields with sane defaults.
func (c *Config) ApplyDefaults() {
	if c.Type == "" {
		c.Type = DatabaseTypeSQLite
	}
	if c.Type == DatabaseTypeSQLite && c.SQLite.Path == "" {
		configDir := os.Getenv("XDG_CONFIG_HOME")
		if configDir == "" {
			home, _ := os.UserHomeDir()
			configDir = filepath.Join(home, ".config")
		}
		c.SQLite.Path = filepath.Join(configDir, "nse", "relay.db")
	}
	if c.Type == DatabaseTypePostgres {
		if c.Postgres.Port == 0 {
			c.Postgres.Port = 5432
		}
		if c.Postgres.SSLMode == "" {
			c.Postgres.SSLMode = "disable"
		}
		if c.Postgres.MaxOpenConns == 0 {
			c.Postgres.MaxOpenConns = 25
		}
		if c.Postgres.MaxIdleConns == 0 {
			c.Postgres.MaxIdleConns = 5
		}
	}
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	switch c.Type {
	case DatabaseTypeSQLite:
		if c.SQLite.Path == "" {
			return fmt.Errorf("relaystore: sqlite path is required")
		}
	case DatabaseTypePostgres:
		if c.Postgres.Host == "" || c.Postgres.Database == "" || c.Postgres.User == "" {
			return fmt.Errorf("relaystore: postgres host/database/user are required")
		}
	default:
		return fmt.Errorf("relaystore: unsupported database type: %s", c.Type)
	}
	return nil
}

// Store is the relay's GORM-backed persistence layer.
type Store struct {
	db     *gorm.DB
	config *Config
	blobs  *S3BlobStore
}

// New opens (creating if needed) the configured backend and runs
// AutoMigrate for every relay-side model.
func New(config *Config) (*Store, error) {
	if config == nil {
		config = &Config{}
	}
	config.ApplyDefaults()
	if err := config.Validate(); err != nil {
		return nil, err
	}

	var dialector gorm.Dialector
	switch config.Type {
	case DatabaseTypeSQLite:
		if err := os.MkdirAll(filepath.Dir(config.SQLite.Path), 0755); err != nil {
			return nil, fmt.Errorf("relaystore: create database directory: %w", err)
		}
		dsn := config.SQLite.Path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
		dialector = sqlite.Open(dsn)
	case DatabaseTypePostgres:
		if err := runPostgresMigrations(config.Postgres.DSN()); err != nil {
			return nil, err
		}
		dialector = postgres.Open(config.Postgres.DSN())
	default:
		return nil, fmt.Errorf("relaystore: unsupported database type: %s", config.Type)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("relaystore: connect: %w", err)
	}

	if config.Type == DatabaseTypePostgres {
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("relaystore: underlying db: %w", err)
		}
		sqlDB.SetMaxOpenConns(config.Postgres.MaxOpenConns)
		sqlDB.SetMaxIdleConns(config.Postgres.MaxIdleConns)
	}

	if err := db.AutoMigrate(
		&models.Device{},
		&models.Node{},
		&models.ChangeSet{},
		&models.LastSyncedSnapshot{},
		&models.KeyVersion{},
		&models.EncryptedNode{},
		&models.UnresolvedConflict{},
		&models.ConflictHistoryEntry{},
		&namespaceLock{},
	); err != nil {
		return nil, fmt.Errorf("relaystore: migrate: %w", err)
	}

	store := &Store{db: db, config: config}

	if config.BlobStore.Bucket != "" {
		blobs, err := NewS3BlobStore(context.Background(), config.BlobStore)
		if err != nil {
			return nil, fmt.Errorf("relaystore: open blob store: %w", err)
		}
		store.blobs = blobs
	}

	return store, nil
}

// DB exposes the underlying GORM handle for queries this package does
// not wrap.
func (s *Store) DB() *gorm.DB {
	return s.db
}

func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "duplicate key value violates unique constraint")
}
