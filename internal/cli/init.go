// Package cli provides the start-up steps shared by cmd/smartspend and
// cmd/smartspend-worker.
package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"smartspend/internal/config"
	"smartspend/internal/log"
	"smartspend/internal/storage"
)

// SetupLogger builds the text logger for LOG_LEVEL and installs it as the
// slog default. Unknown levels fall back to info.
func SetupLogger(level string) *log.Logger {
	lvl, err := config.ParseLogLevel(level)
	cfg := log.DefaultConfig()
	cfg.Level = lvl
	logger := log.New(cfg)
	log.SetDefault(logger)
	if err != nil {
		logger.Warn("Falling back to info log level", "error", err)
	}
	return logger
}

// LoadEnvFile loads .env for local development. A missing file is fine.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadAndValidateConfig exits the process when validate rejects the
// configuration.
func LoadAndValidateConfig(logger *log.Logger, validate func(*config.Config) error) *config.Config {
	cfg := config.Load()
	if err := validate(cfg); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}
	return cfg
}

// OpenLedger opens the worker ledger or exits the process.
func OpenLedger(logger *log.Logger, dbPath string) *storage.Ledger {
	ledger, err := storage.OpenLedger(dbPath)
	if err != nil {
		logger.Error("Failed to open ledger", "error", err, "path", dbPath)
		os.Exit(1)
	}
	if version, dirty, err := storage.SchemaVersion(dbPath); err != nil {
		logger.Warn("Could not read ledger schema version", "error", err)
	} else {
		logger.Info("Ledger ready", "path", dbPath, "schema_version", version, "dirty", dirty)
	}
	return ledger
}

// GracefulShutdown returns a context cancelled on SIGINT or SIGTERM. After
// the signal, cleanup runs with a context bounded by timeout and the
// returned channel closes when it returns.
func GracefulShutdown(logger *log.Logger, timeout time.Duration, cleanup func(context.Context)) (context.Context, <-chan struct{}) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		defer close(done)
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(sigChan)

		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), timeout)
		defer shutdownCancel()
		if cleanup != nil {
			cleanup(shutdownCtx)
		}
		if shutdownCtx.Err() != nil {
			logger.Warn("Shutdown timeout reached")
			return
		}
		logger.Info("Shutdown complete")
	}()

	return ctx, done
}
