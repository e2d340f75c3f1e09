package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"finance/internal/backend"
	"finance/internal/cli"
	"finance/internal/config"
	apphttp "finance/internal/http"
	flog "finance/internal/log"
)

const shutdownTimeout = 30 * time.Second

func main() {
	cli.LoadEnvFile()

	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"), flog.ComponentApp)
	cfg := cli.LoadAndValidateConfig(logger.Logger, (*config.Config).Validate)

	ctx, stop := cli.SignalContext(logger.Logger)
	defer stop()

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", flog.FieldError, err)
		os.Exit(1)
	}

	result, err := backend.NewFactory(logger.WithComponent(flog.ComponentBackend).Logger).CreateBackend(ctx, backendCfg)
	if err != nil {
		logger.Error("Failed to initialize backend", flog.FieldError, err, "backend", cfg.DataBackend)
		os.Exit(1)
	}
	defer func() {
		if err := result.Cleanup(); err != nil {
			logger.Error("Backend cleanup failed", flog.FieldError, err)
		}
	}()

	srv, err := apphttp.NewServer(":"+cfg.Port, result.Service, apphttp.Options{
		RateLimit:      cfg.RateLimit,
		ReportCacheTTL: cfg.ReportCacheTTL,
		Logger:         logger.WithComponent(flog.ComponentHTTP),
	})
	if err != nil {
		logger.Error("Failed to create HTTP server", flog.FieldError, err)
		os.Exit(1)
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("Starting finance server",
			"port", cfg.Port,
			"backend", cfg.DataBackend,
			"events_enabled", result.EventsEnabled)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		logger.Info("Shutting down HTTP server",
			flog.FieldOperation, flog.OpShutdown,
			"timeout", shutdownTimeout)
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("Server error", flog.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	logger.Info("Server stopped gracefully")
}
