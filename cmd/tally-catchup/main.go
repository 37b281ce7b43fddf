package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"tally/internal/amqp"
	"tally/internal/config"
	"tally/internal/core"
	"tally/internal/log"
	"tally/internal/services"
	"tally/internal/storage"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logger := log.New(log.ComponentCatchUp, slog.LevelInfo)
	log.SetDefault(logger)

	logger.Info("Starting tally-catchup worker")

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", log.FieldError, err)
		os.Exit(1)
	}

	store, err := storage.Open(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to open SQLite store", log.FieldError, err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer store.Close()

	var events *amqp.Client
	if cfg.AMQPURL != "" {
		events, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("Failed to initialize AMQP client, continuing without events", log.FieldError, err)
			events = nil
		} else {
			defer events.Close()
		}
	}

	txns := services.NewTransactionService(store, events)
	processor := services.NewCatchUpProcessor(store, txns, cfg.CatchUpMaxOccurrences)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("Catch-up worker configured",
		"interval", cfg.CatchUpInterval,
		"max_occurrences", cfg.CatchUpMaxOccurrences,
		"sqlite_db", cfg.SQLiteDBPath)

	runPass := func() {
		report, err := processor.Run(ctx, core.Today())
		if err != nil {
			logger.Error("Catch-up pass failed", log.FieldError, err)
			return
		}
		logger.Info("Catch-up pass complete",
			"templates", report.Templates,
			"created", report.Created,
			"duplicates", report.Duplicates,
			"capped", report.Capped,
			"failed", report.Failed)
	}

	// Run once on startup, then on every tick.
	runPass()

	// With a feed attached, a created-template event also triggers a pass,
	// so backdated templates materialize without waiting for the ticker.
	if events != nil {
		go func() {
			err := events.ConsumeTransactionEvents(ctx, processor.EventHandler(ctx))
			if err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("Event consumption stopped", log.FieldError, err)
			}
		}()
	}

	ticker := time.NewTicker(cfg.CatchUpInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("Shutdown signal received, stopping catch-up worker")
			return
		case <-ticker.C:
			runPass()
		}
	}
}
