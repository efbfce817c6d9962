// Package config loads NSE's configuration from file, environment, and
// defaults, in that order of decreasing precedence below explicit flags.
//
// Configuration sources (in order of precedence):
//  1. CLI flags (highest priority)
//  2. Environment variables (NSE_*)
//  3. Configuration file (YAML)
//  4. Default values (lowest priority)
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/nous-sync/nse/internal/bytesize"
	"github.com/nous-sync/nse/pkg/relaystore"
)

// Config is NSE's full static configuration: the ambient stack (logging,
// telemetry) plus every domain knob enumerated for rotation, sync,
// vector compaction, and conflict handling. Dynamic per-namespace state
// (devices, key versions, conflicts) lives in pkg/relaystore/pkg/localstore,
// not here.
type Config struct {
	Logging   LoggingConfig   `mapstructure:"logging" yaml:"logging"`
	Telemetry TelemetryConfig `mapstructure:"telemetry" yaml:"telemetry"`
	Metrics   MetricsConfig   `mapstructure:"metrics" yaml:"metrics"`
	Relay     RelayConfig     `mapstructure:"relay" yaml:"relay"`
	Rotation  RotationConfig  `mapstructure:"rotation" yaml:"rotation"`
	Sync      SyncConfig      `mapstructure:"sync" yaml:"sync"`
	Vector    VectorConfig    `mapstructure:"vector" yaml:"vector"`
	Conflict  ConflictConfig  `mapstructure:"conflict" yaml:"conflict"`
}

// LoggingConfig controls internal/logger's output behavior.
type LoggingConfig struct {
	Level  string `mapstructure:"level" validate:"required,oneof=DEBUG INFO WARN ERROR debug info warn error" yaml:"level"`
	Format string `mapstructure:"format" validate:"required,oneof=text json" yaml:"format"`
	Output string `mapstructure:"output" validate:"required" yaml:"output"`
}

// TelemetryConfig controls OpenTelemetry tracing and Pyroscope profiling.
type TelemetryConfig struct {
	Enabled    bool             `mapstructure:"enabled" yaml:"enabled"`
	Endpoint   string           `mapstructure:"endpoint" yaml:"endpoint"`
	Insecure   bool             `mapstructure:"insecure" yaml:"insecure"`
	SampleRate float64          `mapstructure:"sample_rate" validate:"omitempty,gte=0,lte=1" yaml:"sample_rate"`
	Profiling  ProfilingConfig  `mapstructure:"profiling" yaml:"profiling"`
}

// ProfilingConfig controls Pyroscope continuous profiling.
type ProfilingConfig struct {
	Enabled      bool     `mapstructure:"enabled" yaml:"enabled"`
	Endpoint     string   `mapstructure:"endpoint" yaml:"endpoint"`
	ProfileTypes []string `mapstructure:"profile_types" yaml:"profile_types"`
}

// MetricsConfig configures the relay's Prometheus metrics HTTP server.
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`
	Port    int  `mapstructure:"port" validate:"omitempty,min=1,max=65535" yaml:"port"`
}

// RelayConfig configures the relay server: its persistence backend,
// JWT device-auth secret, and minimum accepted device schema version.
type RelayConfig struct {
	Database           relaystore.Config  `mapstructure:"database" yaml:"database"`
	JWTSecret          string             `mapstructure:"jwt_secret" validate:"required,min=32" yaml:"jwt_secret"`
	JWTTokenTTL        time.Duration      `mapstructure:"jwt_token_ttl" yaml:"jwt_token_ttl"`
	MinSchemaVersion   int                `mapstructure:"min_schema_version" validate:"gte=0" yaml:"min_schema_version"`
	ListenAddr         string             `mapstructure:"listen_addr" validate:"required" yaml:"listen_addr"`
	MaxRequestBodySize bytesize.ByteSize  `mapstructure:"max_request_body_size" yaml:"max_request_body_size"`
}

// RotationConfig configures key-rotation batching and the device
// conditions required before a rotation sweep is allowed to run.
type RotationConfig struct {
	BatchSize            int   `mapstructure:"batch_size" validate:"gt=0" yaml:"batch_size"`
	PauseBetweenBatchesMs int64 `mapstructure:"pause_between_batches_ms" validate:"gte=0" yaml:"pause_between_batches_ms"`
	MaxBatchesPerMinute  int   `mapstructure:"max_batches_per_minute" validate:"gt=0" yaml:"max_batches_per_minute"`
	RequireWifi          bool  `mapstructure:"require_wifi" yaml:"require_wifi"`
	RequireCharging      bool  `mapstructure:"require_charging" yaml:"require_charging"`
	MinBatteryLevel      int   `mapstructure:"min_battery_level" validate:"gte=0,lte=100" yaml:"min_battery_level"`
	PersistProgress      bool  `mapstructure:"persist_progress" yaml:"persist_progress"`
	AutoResumeOnLaunch   bool  `mapstructure:"auto_resume_on_launch" yaml:"auto_resume_on_launch"`
}

// PauseBetweenBatches returns PauseBetweenBatchesMs as a time.Duration,
// the shape pkg/keyring.Rotator.BatchInterval expects.
func (c RotationConfig) PauseBetweenBatches() time.Duration {
	return time.Duration(c.PauseBetweenBatchesMs) * time.Millisecond
}

// SyncConfig configures push/pull cadence and retry behavior.
type SyncConfig struct {
	MinSyncIntervalMs int  `mapstructure:"min_sync_interval_ms" validate:"gt=0" yaml:"min_sync_interval_ms"`
	MaxRetries        int  `mapstructure:"max_retries" validate:"gte=0" yaml:"max_retries"`
	RetryBaseDelayMs  int  `mapstructure:"retry_base_delay_ms" validate:"gt=0" yaml:"retry_base_delay_ms"`
	BatchSize         int  `mapstructure:"batch_size" validate:"gt=0" yaml:"batch_size"`
	AutoSync          bool `mapstructure:"auto_sync" yaml:"auto_sync"`
	WifiOnly          bool `mapstructure:"wifi_only" yaml:"wifi_only"`
	ChargingOnly      bool `mapstructure:"charging_only" yaml:"charging_only"`
}

// MinSyncInterval returns MinSyncIntervalMs as a time.Duration.
func (c SyncConfig) MinSyncInterval() time.Duration {
	return time.Duration(c.MinSyncIntervalMs) * time.Millisecond
}

// RetryBaseDelay returns RetryBaseDelayMs as a time.Duration, the base
// for the jittered-backoff retry schedule pkg/errs.Retryable drives.
func (c SyncConfig) RetryBaseDelay() time.Duration {
	return time.Duration(c.RetryBaseDelayMs) * time.Millisecond
}

// VectorConfig configures pkg/vvector.CompactionPolicy.
type VectorConfig struct {
	CompactionThreshold int `mapstructure:"threshold" validate:"gt=0" yaml:"threshold"`
	InactiveDays        int `mapstructure:"inactive_days" validate:"gt=0" yaml:"inactive_days"`
}

// ConflictConfig configures how long resolved conflicts are retained
// before becoming eligible for garbage collection, and how often a
// conflict banner may re-surface to the user.
type ConflictConfig struct {
	HistoryRetentionDays int   `mapstructure:"history_retention_days" validate:"gt=0" yaml:"history_retention_days"`
	BannerCooldownMs     int64 `mapstructure:"banner_cooldown_ms" validate:"gt=0" yaml:"banner_cooldown_ms"`
}

// BannerCooldown returns BannerCooldownMs as a time.Duration.
func (c ConflictConfig) BannerCooldown() time.Duration {
	return time.Duration(c.BannerCooldownMs) * time.Millisecond
}

// HistoryRetention returns HistoryRetentionDays as a time.Duration.
func (c ConflictConfig) HistoryRetention() time.Duration {
	return time.Duration(c.HistoryRetentionDays) * 24 * time.Hour
}

// Load reads configuration from configPath (or the default location if
// empty), layering environment variables and defaults underneath it,
// and validates the result.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setupViper(v, configPath)

	found, err := readConfigFile(v)
	if err != nil {
		return nil, err
	}
	if !found {
		// No config file: return defaults unvalidated. A relay deployment
		// with no file still needs a real JWT secret, but that is
		// cmd/nse's concern at startup, not Load's — this path exists so
		// a fresh checkout can run quick local experiments (e.g. nsectl
		// against an in-memory store) without authoring a config file
		// first.
		return DefaultConfig(), nil
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, viper.DecodeHook(configDecodeHooks())); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}
	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("config: validation failed: %w", err)
	}
	return &cfg, nil
}

// Save writes cfg to path in YAML.
func Save(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("config: create directory: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("config: marshal: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("config: write file: %w", err)
	}
	return nil
}

func setupViper(v *viper.Viper, configPath string) {
	v.SetEnvPrefix("NSE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		return
	}
	v.AddConfigPath(ConfigDir())
	v.SetConfigName("config")
	v.SetConfigType("yaml")
}

func readConfigFile(v *viper.Viper) (bool, error) {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return false, nil
		}
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("config: read file: %w", err)
	}
	return true, nil
}

// configDecodeHooks lets config files express durations as plain
// human-readable strings ("500ms") as well as bare integers.
func configDecodeHooks() mapstructure.DecodeHookFunc {
	return mapstructure.ComposeDecodeHookFunc(durationDecodeHook(), byteSizeDecodeHook())
}

// byteSizeDecodeHook lets config files express byte sizes as
// human-readable strings ("4Mi") as well as bare integers.
func byteSizeDecodeHook() mapstructure.DecodeHookFunc {
	return func(from reflect.Type, to reflect.Type, data any) (any, error) {
		if to != reflect.TypeOf(bytesize.ByteSize(0)) {
			return data, nil
		}
		switch v := data.(type) {
		case string:
			return bytesize.ParseByteSize(v)
		case int:
			return bytesize.ByteSize(v), nil
		case int64:
			return bytesize.ByteSize(v), nil
		case float64:
			return bytesize.ByteSize(v), nil
		default:
			return data, nil
		}
	}
}

func durationDecodeHook() mapstructure.DecodeHookFunc {
	return func(from reflect.Type, to reflect.Type, data any) (any, error) {
		if to != reflect.TypeOf(time.Duration(0)) {
			return data, nil
		}
		switch v := data.(type) {
		case string:
			return time.ParseDuration(v)
		case int:
			return time.Duration(v), nil
		case int64:
			return time.Duration(v), nil
		case float64:
			return time.Duration(v), nil
		default:
			return data, nil
		}
	}
}

// ConfigDir returns the directory NSE's config file and nsectl's local
// link store live under: $XDG_CONFIG_HOME/nse, or ~/.config/nse.
func ConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "nse")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "nse")
}

// DefaultConfigPath returns the default configuration file path.
func DefaultConfigPath() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}
