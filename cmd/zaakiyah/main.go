package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"zaakiyah/internal/amqp"
	"zaakiyah/internal/config"
	"zaakiyah/internal/gateway"
	apphttp "zaakiyah/internal/http"
	"zaakiyah/internal/services"
	"zaakiyah/internal/storage"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	logger.Info("Starting zaakiyah")

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	gw, err := gateway.NewClient(cfg.GatewayBaseURL, cfg.GatewayAPIKey, &http.Client{
		Timeout: cfg.GatewayTimeout,
	})
	if err != nil {
		logger.Error("Failed to initialize gateway client", "error", err)
		os.Exit(1)
	}

	ledger, err := storage.NewLedger(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to initialize donation ledger", "error", err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}

	// The broker is optional for the API process: donations are written to the
	// ledger first and the export worker scans for pending rows, so a missing
	// broker only delays exports.
	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Warn("AMQP unavailable, export notifications disabled", "error", err)
		amqpClient = nil
	}

	donations := services.NewDonationService(ledger, amqpClient)
	defer func() {
		if err := donations.Close(); err != nil {
			logger.Error("Error closing donation service", "error", err)
		}
	}()

	srv := apphttp.NewServer(":"+cfg.Port, gw, donations, cfg.SessionTTL)
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 30 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
	}()

	logger.Info("HTTP server listening", "port", cfg.Port)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Server error", "error", err)
		os.Exit(1)
	}

	logger.Info("Server stopped")
}
