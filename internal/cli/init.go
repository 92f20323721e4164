// Package cli provides common CLI initialization utilities shared by the fire
// subcommands.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"fire/internal/config"
	"fire/internal/log"
	"fire/internal/storage"
)

// SetupLogger initializes structured logging at the given level and sets it as the
// default logger. Logs go to stderr so command output stays clean.
func SetupLogger(level string) *log.Logger {
	lvl, err := log.ParseLevel(level)
	logger := log.New(log.Config{Level: lvl, Component: log.ComponentCLI})
	if err != nil {
		logger.Warn("Unknown log level, using info", "level", level)
	}
	log.SetDefault(logger)
	return logger
}

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as the file is optional.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadAndValidateConfig loads configuration and validates it.
func LoadAndValidateConfig() (*config.Config, error) {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// OpenHistory opens the share history database configured in cfg.
func OpenHistory(logger *log.Logger, cfg *config.Config) (*storage.History, error) {
	h, err := storage.OpenHistory(cfg.HistoryDBPath, cfg.PageURL, cfg.TokenParam)
	if err != nil {
		logger.LogError(context.Background(), "Failed to open share history", err, log.OpStartup, log.ErrorTypeDatabase,
			log.NewFields().WithComponent(log.ComponentStorage))
		return nil, fmt.Errorf("open share history: %w", err)
	}
	return h, nil
}

// GracefulShutdown returns a context cancelled on SIGINT or SIGTERM and its stop
// function.
func GracefulShutdown(parent context.Context, logger *log.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(sigChan)

		select {
		case sig := <-sigChan:
			logger.Info("Shutdown signal received", "signal", sig.String())
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, cancel
}
