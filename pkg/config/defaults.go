package config

import (
	"time"

	"github.com/nous-sync/nse/internal/bytesize"
)

// DefaultConfig returns a fully-defaulted Config suitable for local
// development: SQLite-backed relay, text logging, telemetry disabled.
func DefaultConfig() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}

// ApplyDefaults fills in every field left at its zero value with its
// documented default, so an explicit zero loaded from file or environment
// is replaced as well. PersistProgress and AutoResumeOnLaunch are always
// set to true.
func ApplyDefaults(cfg *Config) {
	applyLoggingDefaults(&cfg.Logging)
	applyTelemetryDefaults(&cfg.Telemetry)
	applyMetricsDefaults(&cfg.Metrics)
	applyRelayDefaults(&cfg.Relay)
	applyRotationDefaults(&cfg.Rotation)
	applySyncDefaults(&cfg.Sync)
	applyVectorDefaults(&cfg.Vector)
	applyConflictDefaults(&cfg.Conflict)
}

func applyLoggingDefaults(cfg *LoggingConfig) {
	if cfg.Level == "" {
		cfg.Level = "INFO"
	}
	if cfg.Format == "" {
		cfg.Format = "text"
	}
	if cfg.Output == "" {
		cfg.Output = "stdout"
	}
}

func applyTelemetryDefaults(cfg *TelemetryConfig) {
	if cfg.Endpoint == "" {
		cfg.Endpoint = "localhost:4317"
	}
	if cfg.SampleRate == 0 {
		cfg.SampleRate = 1.0
	}
	if cfg.Profiling.Endpoint == "" {
		cfg.Profiling.Endpoint = "http://localhost:4040"
	}
	if len(cfg.Profiling.ProfileTypes) == 0 {
		cfg.Profiling.ProfileTypes = []string{"cpu", "alloc_objects", "alloc_space", "inuse_objects", "inuse_space", "goroutines"}
	}
}

func applyMetricsDefaults(cfg *MetricsConfig) {
	if cfg.Enabled && cfg.Port == 0 {
		cfg.Port = 9090
	}
}

func applyRelayDefaults(cfg *RelayConfig) {
	cfg.Database.ApplyDefaults()
	if cfg.JWTTokenTTL == 0 {
		cfg.JWTTokenTTL = 24 * time.Hour
	}
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = ":8443"
	}
	if cfg.MaxRequestBodySize == 0 {
		cfg.MaxRequestBodySize = 4 * bytesize.MiB
	}
}

func applyRotationDefaults(cfg *RotationConfig) {
	if cfg.BatchSize == 0 {
		cfg.BatchSize = 100
	}
	if cfg.PauseBetweenBatchesMs == 0 {
		cfg.PauseBetweenBatchesMs = 500
	}
	if cfg.MaxBatchesPerMinute == 0 {
		cfg.MaxBatchesPerMinute = 10
	}
	if cfg.MinBatteryLevel == 0 {
		cfg.MinBatteryLevel = 20
	}
	// PersistProgress and AutoResumeOnLaunch default true; their zero
	// value (false) cannot be distinguished from an explicit
	// "false" in a YAML file loaded through viper, so Load's caller is
	// expected to set them explicitly when overriding away from the
	// documented default.
	cfg.PersistProgress = true
	cfg.AutoResumeOnLaunch = true
}

func applySyncDefaults(cfg *SyncConfig) {
	if cfg.MinSyncIntervalMs == 0 {
		cfg.MinSyncIntervalMs = 60_000
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 3
	}
	if cfg.RetryBaseDelayMs == 0 {
		cfg.RetryBaseDelayMs = 1000
	}
	if cfg.BatchSize == 0 {
		cfg.BatchSize = 100
	}
}

func applyVectorDefaults(cfg *VectorConfig) {
	if cfg.CompactionThreshold == 0 {
		cfg.CompactionThreshold = 10
	}
	if cfg.InactiveDays == 0 {
		cfg.InactiveDays = 90
	}
}

func applyConflictDefaults(cfg *ConflictConfig) {
	if cfg.HistoryRetentionDays == 0 {
		cfg.HistoryRetentionDays = 30
	}
	if cfg.BannerCooldownMs == 0 {
		cfg.BannerCooldownMs = 86_400_000
	}
}
