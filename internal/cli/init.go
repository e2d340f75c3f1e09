// Package cli provides common CLI initialization utilities shared by
// cmd/finance and cmd/finance-worker.
package cli

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"finance/internal/config"
	flog "finance/internal/log"
)

// SetupLogger installs a text logger at the given level as the process
// default and returns it.
func SetupLogger(level, component string) *flog.Logger {
	logger := flog.New(flog.Config{
		Level:     flog.ParseLevel(level),
		Component: component,
		Output:    os.Stdout,
	})
	flog.SetDefault(logger)
	return logger
}

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadAndValidateConfig loads configuration and validates it with validate
// (cfg.Validate or cfg.ValidateWorker). Exits the process on failure.
func LoadAndValidateConfig(logger *slog.Logger, validate func(*config.Config) error) *config.Config {
	cfg := config.Load()
	if err := validate(cfg); err != nil {
		logger.Error("Configuration validation failed", flog.FieldError, err)
		os.Exit(1)
	}
	return cfg
}

// SignalContext returns a context cancelled on SIGINT or SIGTERM.
func SignalContext(logger *slog.Logger) (context.Context, context.CancelFunc) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ctx.Done()
		logger.Info("Shutdown signal received", flog.FieldOperation, flog.OpShutdown)
	}()
	return ctx, stop
}
