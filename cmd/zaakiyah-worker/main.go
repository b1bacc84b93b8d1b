package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"zaakiyah/internal/amqp"
	"zaakiyah/internal/config"
	"zaakiyah/internal/sheets"
	gsheet "zaakiyah/internal/sheets/google"
	mem "zaakiyah/internal/sheets/memory"
	"zaakiyah/internal/storage"
	"zaakiyah/internal/worker"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	logger.Info("Starting zaakiyah-worker")

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	ledger, err := storage.NewLedger(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to initialize donation ledger", "error", err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer ledger.Close()

	var appender sheets.LedgerAppender
	switch cfg.ExportBackend {
	case "sheets":
		client, err := gsheet.NewFromEnv(context.Background())
		if err != nil {
			logger.Error("Failed to initialize Google Sheets client", "error", err)
			os.Exit(1)
		}
		appender = client
		logger.Info("Google Sheets export backend initialized", "spreadsheet_id", cfg.SheetsSpreadsheetID)
	default:
		appender = mem.New()
		logger.Info("In-memory export backend initialized")
	}

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", "error", err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	exportWorker := worker.NewExportWorker(ledger, appender, cfg.ExportBatchSize)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Sweep anything recorded while the worker was down.
	logger.Info("Performing startup export check...")
	if err := exportWorker.StartupExportCheck(ctx); err != nil {
		logger.Error("Startup export check failed", "error", err)
		// Continue with normal operation, the periodic scan retries.
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return amqpClient.ConsumeDonationRecorded(ctx, exportWorker.HandleRecordedMessage)
	})

	g.Go(func() error {
		ticker := time.NewTicker(cfg.ExportInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-ticker.C:
				if err := exportWorker.ProcessPendingExports(ctx); err != nil {
					logger.Error("Periodic export scan failed", "error", err)
				}
			}
		}
	})

	logger.Info("Worker started",
		"queue", cfg.AMQPQueue,
		"export_interval", cfg.ExportInterval.String(),
		"batch_size", cfg.ExportBatchSize)

	if err := g.Wait(); err != nil && err != context.Canceled {
		logger.Error("Worker stopped with error", "error", err)
		os.Exit(1)
	}

	logger.Info("Worker stopped")
}
