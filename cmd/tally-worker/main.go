package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"tally/internal/amqp"
	"tally/internal/config"
	applog "tally/internal/log"
	gsheet "tally/internal/sheets/google"
	"tally/internal/storage"
	"tally/internal/worker"
)

func main() {
	// Load .env for local development; absent in containers.
	_ = godotenv.Load()

	cfg := config.Load()

	logger := applog.New(applog.Config{
		Level:     cfg.SlogLevel(),
		Component: applog.ComponentWorker,
	})
	applog.SetDefault(logger)

	logger.Info("Starting tally-worker")

	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	if !cfg.ExportEnabled() {
		logger.Error("Nothing to do - no GOOGLE_SPREADSHEET_ID provided")
		os.Exit(1)
	}

	store, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to open database", "error", err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer store.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sheet, err := gsheet.New(ctx, cfg)
	if err != nil {
		logger.Error("Failed to initialize Google Sheets client", "error", err)
		os.Exit(1)
	}
	logger.Info("Google Sheets client initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID)

	exporter := worker.NewExportWorker(store, sheet, cfg.SyncBatchSize)

	// Drain anything that accumulated while the worker was down.
	logger.Info("Performing startup sync check...")
	if err := exporter.StartupSyncCheck(ctx); err != nil {
		logger.Error("Startup sync check failed", "error", err)
	}

	// Consuming ledger events is the hot path; the ticker below covers
	// events lost while disconnected.
	if cfg.EventsEnabled() {
		events, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("Failed to connect to AMQP", "error", err)
			os.Exit(1)
		}
		defer events.Close()

		go func() {
			if err := events.ConsumeLedgerEvents(ctx, exporter.HandleLedgerEvent); err != nil {
				if !errors.Is(err, context.Canceled) {
					logger.Error("Event consumption failed", "error", err)
				}
				cancel()
			}
		}()
	} else {
		logger.Info("Event consumption disabled - relying on periodic scan only")
	}

	ticker := time.NewTicker(cfg.SyncInterval)
	defer ticker.Stop()

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := exporter.ProcessPending(ctx); err != nil {
					logger.Error("Periodic export failed", "error", err)
				}
			}
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		logger.Info("Shutdown signal received", "signal", sig.String())
	case <-ctx.Done():
	}

	cancel()
	logger.Info("Worker stopped gracefully")
}
