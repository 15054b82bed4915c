package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"tally/internal/amqp"
	"tally/internal/config"
	apphttp "tally/internal/http"
	applog "tally/internal/log"
	"tally/internal/services"
	"tally/internal/storage"
)

func main() {
	// Load .env for local development; absent in containers.
	_ = godotenv.Load()

	cfg := config.Load()

	logger := applog.New(applog.Config{
		Level:     cfg.SlogLevel(),
		Component: applog.ComponentApp,
	})
	applog.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	store, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to open database", "error", err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer store.Close()

	if err := services.Bootstrap(context.Background(), store); err != nil {
		logger.Error("Bootstrap failed", "error", err)
		os.Exit(1)
	}

	var events *amqp.Client
	if cfg.EventsEnabled() {
		events, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("Failed to connect to AMQP", "error", err)
			os.Exit(1)
		}
		defer events.Close()
		logger.Info("Ledger event publishing enabled", "exchange", cfg.AMQPExchange)
	} else {
		logger.Info("Ledger event publishing disabled - no AMQP_URL provided")
	}

	srv := apphttp.NewServer(":"+cfg.Port, apphttp.Services{
		Store:        store,
		Wallets:      services.NewWalletService(store),
		Categories:   services.NewCategoryService(store),
		Transactions: services.NewTransactionService(store, events),
		Debts:        services.NewDebtService(store),
		Budgets:      services.NewBudgetService(store),
		Bills:        services.NewBillService(store),
		Dashboard:    services.NewDashboardService(store),
		Backup:       services.NewBackupService(store),
	})
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 30 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
		cancel()
	}()

	logger.Info("Starting tally server", "port", cfg.Port, "db", cfg.SQLiteDBPath)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}

	<-ctx.Done()
	logger.Info("Server stopped gracefully")
}
