// Signalgrid Core - supervised NATS connectivity daemon
//
// This is the main entry point for the Signalgrid Core application.
// It resolves a declarative configuration into NATS connection options,
// establishes and supervises the connection, and exposes a small HTTP
// surface for health and connection status.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/signalgrid/signalgrid-core/internal/api"
	"github.com/signalgrid/signalgrid-core/internal/infrastructure/config"
	"github.com/signalgrid/signalgrid-core/internal/infrastructure/logging"
	"github.com/signalgrid/signalgrid-core/internal/infrastructure/natsclient"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

func main() {
	// Create a context that cancels on interrupt signals (Ctrl+C, SIGTERM)
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Run the application
	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
// Returning an error allows main to handle exit codes consistently.
//
// Parameters:
//   - ctx: Context for cancellation and shutdown signals
//
// Returns:
//   - error: nil on clean shutdown, or error describing failure
func run(ctx context.Context) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting Signalgrid Core",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	// Load configuration
	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	// Reinitialise logger with config settings
	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	// Connect to NATS. A failed initial connection is fatal; once connected,
	// transient outages are handled by the transport's reconnect policy and
	// reported through the supervision loop's log entries.
	natsClient := natsclient.New(cfg.NATS, log)
	if err := natsClient.Start(); err != nil {
		return fmt.Errorf("connecting to NATS: %w", err)
	}
	defer func() {
		log.Info("draining NATS connection")
		if stopErr := natsClient.Stop(); stopErr != nil {
			log.Error("error stopping NATS client", "error", stopErr)
		}
	}()

	// Start the health/status API server
	apiServer, err := api.New(api.Deps{
		Config:  cfg.API,
		Logger:  log,
		NATS:    natsClient,
		Version: version,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	if err := apiServer.Start(); err != nil {
		return fmt.Errorf("starting API server: %w", err)
	}
	defer func() {
		if closeErr := apiServer.Close(); closeErr != nil {
			log.Error("error closing API server", "error", closeErr)
		}
	}()

	log.Info("initialisation complete, waiting for shutdown signal")

	// Wait for shutdown signal
	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")

	// Deferred Close() calls will run in reverse order:
	// 1. API server (stop accepting requests)
	// 2. NATS client (drain and close)

	log.Info("Signalgrid Core stopped")
	return nil
}

// getConfigPath returns the configuration file path.
// Uses SIGNALGRID_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("SIGNALGRID_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}
