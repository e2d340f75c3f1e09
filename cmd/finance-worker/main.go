package main

import (
	"context"
	"errors"
	"os"

	"golang.org/x/sync/errgroup"

	"finance/internal/amqp"
	"finance/internal/backend"
	"finance/internal/cli"
	"finance/internal/config"
	flog "finance/internal/log"
	"finance/internal/sheets"
	gsheet "finance/internal/sheets/google"
	mem "finance/internal/sheets/memory"
	"finance/internal/storage"
	"finance/internal/worker"
)

func main() {
	cli.LoadEnvFile()

	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"), flog.ComponentWorker)
	logger.Info("Starting finance-worker")

	cfg := cli.LoadAndValidateConfig(logger.Logger, (*config.Config).ValidateWorker)

	ctx, stop := cli.SignalContext(logger.Logger)
	defer stop()

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", flog.FieldError, err)
		os.Exit(1)
	}

	// A memory store lives inside the API process, so the worker can only
	// mirror event payloads. A SQLite file is shared and read back instead.
	var repo storage.Repository
	if backendCfg.Type == backend.SQLiteBackend {
		repo, err = backend.NewFactory(logger.WithComponent(flog.ComponentBackend).Logger).CreateRepository(ctx, backendCfg)
		if err != nil {
			logger.Error("Failed to initialize repository", flog.FieldError, err, "backend", cfg.DataBackend)
			os.Exit(1)
		}
		defer repo.Close()
	} else {
		logger.Info("Memory backend is per-process, mirroring event payloads")
	}

	sheetsLog := logger.WithComponent(flog.ComponentSheets)
	var mirror sheets.TransactionMirror
	if cfg.SheetsEnabled() {
		creds, err := gsheet.LoadCredentials(cfg.GoogleServiceAccountJSON, cfg.GoogleServiceAccountFile)
		if err != nil {
			sheetsLog.Error("Failed to load Google credentials", flog.FieldError, err)
			os.Exit(1)
		}
		client, err := gsheet.New(ctx, cfg.GoogleSpreadsheetID, cfg.GoogleSheetName, creds)
		if err != nil {
			sheetsLog.Error("Failed to initialize Google Sheets client", flog.FieldError, err)
			os.Exit(1)
		}
		mirror = client
		sheetsLog.Info("Google Sheets client initialized",
			"spreadsheet_id", cfg.GoogleSpreadsheetID,
			"sheet", cfg.GoogleSheetName)
	} else {
		mirror = mem.New()
		sheetsLog.Info("Google Sheets disabled, mirroring in memory")
	}

	syncWorker := worker.NewSyncWorker(repo, mirror)

	if cfg.SyncOnStartup && repo != nil {
		logger.Info("Performing startup sync", flog.FieldOperation, flog.OpStartup)
		if err := syncWorker.StartupSync(ctx); err != nil {
			logger.Error("Startup sync failed", flog.FieldOperation, flog.OpStartup, flog.FieldError, err)
		}
	}

	amqpLog := logger.WithComponent(flog.ComponentAMQP)
	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		amqpLog.Error("Failed to initialize AMQP client", flog.FieldError, err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		amqpLog.Info("Consuming transaction events", "queue", cfg.AMQPQueue)
		return amqpClient.Consume(gctx, syncWorker.HandleEvent)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		amqpLog.Error("Message consumption failed", flog.FieldError, err)
		os.Exit(1)
	}

	logger.Info("finance-worker stopped gracefully")
}
