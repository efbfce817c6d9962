package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nous-sync/nse/internal/bytesize"
)

func TestLoadAppliesDefaultsOverMinimalFile(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yaml")
	content := `
logging:
  level: "DEBUG"
relay:
  jwt_secret: "test-secret-key-for-testing-minimum-32-chars"
  listen_addr: ":9443"
  database:
    type: sqlite
    sqlite:
      path: "` + filepath.ToSlash(filepath.Join(dir, "relay.db")) + `"
`
	require.NoError(t, os.WriteFile(configPath, []byte(content), 0o644))

	cfg, err := Load(configPath)
	require.NoError(t, err)

	assert.Equal(t, "DEBUG", cfg.Logging.Level)
	assert.Equal(t, "text", cfg.Logging.Format)
	assert.Equal(t, "stdout", cfg.Logging.Output)
	assert.Equal(t, 100, cfg.Rotation.BatchSize)
	assert.Equal(t, int64(500), cfg.Rotation.PauseBetweenBatchesMs)
	assert.Equal(t, 500*time.Millisecond, cfg.Rotation.PauseBetweenBatches())
	assert.Equal(t, 10, cfg.Vector.CompactionThreshold)
	assert.Equal(t, 90, cfg.Vector.InactiveDays)
	assert.Equal(t, 30, cfg.Conflict.HistoryRetentionDays)
	assert.Equal(t, 24*time.Hour, cfg.Relay.JWTTokenTTL)
}

func TestLoadWithNoFileReturnsDefaults(t *testing.T) {
	dir := t.TempDir()
	cfg, err := Load(filepath.Join(dir, "missing.yaml"))
	require.NoError(t, err)
	assert.NotNil(t, cfg)
	assert.Equal(t, "INFO", cfg.Logging.Level)
	assert.Equal(t, 4*bytesize.MiB, cfg.Relay.MaxRequestBodySize)
}

func TestLoadParsesHumanReadableByteSize(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yaml")
	content := `
relay:
  jwt_secret: "test-secret-key-for-testing-minimum-32-chars"
  listen_addr: ":9443"
  max_request_body_size: "2Mi"
  database:
    type: sqlite
    sqlite:
      path: "` + filepath.ToSlash(filepath.Join(dir, "relay.db")) + `"
`
	require.NoError(t, os.WriteFile(configPath, []byte(content), 0o644))

	cfg, err := Load(configPath)
	require.NoError(t, err)
	assert.Equal(t, 2*bytesize.MiB, cfg.Relay.MaxRequestBodySize)
}

func TestValidateRejectsShortJWTSecret(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Relay.JWTSecret = "too-short"
	cfg.Relay.Database.SQLite.Path = "/tmp/relay.db"
	err := Validate(cfg)
	assert.Error(t, err)
}

func TestValidateAcceptsDefaultConfigPlusRequiredFields(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Relay.JWTSecret = "a-secret-that-is-at-least-32-characters"
	cfg.Relay.Database.SQLite.Path = "/tmp/relay.db"
	require.NoError(t, Validate(cfg))
}

func TestSaveAndReloadRoundTrips(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	cfg := DefaultConfig()
	cfg.Relay.JWTSecret = "a-secret-that-is-at-least-32-characters"
	cfg.Relay.Database.SQLite.Path = filepath.Join(dir, "relay.db")
	cfg.Relay.ListenAddr = ":8443"
	require.NoError(t, Save(cfg, path))

	reloaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg.Relay.JWTSecret, reloaded.Relay.JWTSecret)
	assert.Equal(t, cfg.Rotation.BatchSize, reloaded.Rotation.BatchSize)
}
