package commands

import (
	"fmt"

	"github.com/nous-sync/nse/internal/logger"
	"github.com/nous-sync/nse/pkg/config"
)

// InitLogger initializes the structured logger from configuration.
func InitLogger(cfg *config.Config) error {
	loggerCfg := logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	}
	if err := logger.Init(loggerCfg); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	return nil
}

// loadConfig loads configuration from the --config flag (or default
// location), validating the relay's JWT secret since, unlike Load's
// no-file fallback, a running relay cannot serve device tokens signed
// with an empty key.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(GetConfigFile())
	if err != nil {
		return nil, err
	}
	if len(cfg.Relay.JWTSecret) < 32 {
		return nil, fmt.Errorf("relay.jwt_secret must be at least 32 characters (got %d) - "+
			"set it in your config file or via NSE_RELAY_JWT_SECRET", len(cfg.Relay.JWTSecret))
	}
	return cfg, nil
}
