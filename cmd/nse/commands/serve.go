package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/nous-sync/nse/internal/logger"
	"github.com/nous-sync/nse/internal/telemetry"
	"github.com/nous-sync/nse/pkg/config"
	"github.com/nous-sync/nse/pkg/metrics"
	"github.com/nous-sync/nse/pkg/relayapi"
	"github.com/nous-sync/nse/pkg/relaystore"
)

// conflictGCInterval is how often serve sweeps expired unresolved
// conflicts into history. Independent of any namespace's conflict
// banner cooldown, which is a per-device concern (pkg/conflictstore).
const conflictGCInterval = 10 * time.Minute

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the relay HTTP server",
	Long: `Start the relay HTTP server.

Loads configuration, opens the relay store, and serves the device
registration, sync, and conflict-listing API until interrupted.

Examples:
  # Start with default config location
  nse serve

  # Start with a custom config file
  nse serve --config /etc/nse/config.yaml`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := InitLogger(cfg); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	telemetryShutdown, err := telemetry.Init(ctx, telemetry.Config{
		Enabled:        cfg.Telemetry.Enabled,
		ServiceName:    "nse",
		ServiceVersion: Version,
		Endpoint:       cfg.Telemetry.Endpoint,
		Insecure:       cfg.Telemetry.Insecure,
		SampleRate:     cfg.Telemetry.SampleRate,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	defer func() {
		if err := telemetryShutdown(ctx); err != nil {
			logger.Error("telemetry shutdown error", "error", err)
		}
	}()

	profilingShutdown, err := telemetry.InitProfiling(telemetry.ProfilingConfig{
		Enabled:        cfg.Telemetry.Profiling.Enabled,
		ServiceName:    "nse",
		ServiceVersion: Version,
		Endpoint:       cfg.Telemetry.Profiling.Endpoint,
		ProfileTypes:   cfg.Telemetry.Profiling.ProfileTypes,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize profiling: %w", err)
	}
	defer func() {
		if err := profilingShutdown(); err != nil {
			logger.Error("profiling shutdown error", "error", err)
		}
	}()

	logger.Info("configuration loaded", "source", configSource())
	logger.Info("telemetry", "enabled", telemetry.IsEnabled())
	logger.Info("profiling", "enabled", telemetry.IsProfilingEnabled())

	store, err := relaystore.New(&cfg.Relay.Database)
	if err != nil {
		return fmt.Errorf("failed to open relay store: %w", err)
	}

	var reg *metrics.Registry
	if cfg.Metrics.Enabled {
		reg = metrics.NewRegistry()
		logger.Info("metrics enabled", "mounted_at", "/metrics")
	}

	server, err := relayapi.NewServer(store, relayapi.Config{
		JWT: relayapi.JWTConfig{
			Secret:        cfg.Relay.JWTSecret,
			Issuer:        "nse-relay",
			TokenDuration: cfg.Relay.JWTTokenTTL,
		},
		MinSchemaVersion:   cfg.Relay.MinSchemaVersion,
		Metrics:            reg,
		MaxRequestBodySize: cfg.Relay.MaxRequestBodySize,
	})
	if err != nil {
		return fmt.Errorf("failed to construct relay server: %w", err)
	}

	httpServer := &http.Server{
		Addr:    cfg.Relay.ListenAddr,
		Handler: relayapi.NewRouter(server),
	}

	go runConflictGC(ctx, store)

	serverDone := make(chan error, 1)
	go func() {
		logger.Info("relay listening", "addr", cfg.Relay.ListenAddr)
		err := httpServer.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
		serverDone <- err
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigChan:
		signal.Stop(sigChan)
		logger.Info("shutdown signal received, draining connections")
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("relay shutdown error", "error", err)
			return err
		}
		<-serverDone
		logger.Info("relay stopped gracefully")

	case err := <-serverDone:
		signal.Stop(sigChan)
		if err != nil {
			logger.Error("relay server error", "error", err)
			return err
		}
		logger.Info("relay stopped")
	}

	return nil
}

// runConflictGC periodically archives expired unresolved conflicts into
// history until ctx is cancelled.
func runConflictGC(ctx context.Context, store *relaystore.Store) {
	ticker := time.NewTicker(conflictGCInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			archived, err := store.GCExpiredConflicts(ctx)
			if err != nil {
				logger.Error("conflict gc sweep failed", "error", err)
				continue
			}
			if archived > 0 {
				logger.Info("conflict gc sweep", "archived", archived)
			}
		}
	}
}

func configSource() string {
	if GetConfigFile() != "" {
		return GetConfigFile()
	}
	return config.DefaultConfigPath()
}
