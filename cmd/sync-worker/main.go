package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"gastopro/internal/amqp"
	"gastopro/internal/backend"
	"gastopro/internal/cli"
	"gastopro/internal/log"
	"gastopro/internal/sheets"
	gsheet "gastopro/internal/sheets/google"
	mem "gastopro/internal/sheets/memory"
	"gastopro/internal/worker"
)

func main() {
	cli.LoadEnvFile()

	bootstrap := cli.SetupLogger(log.ComponentWorker, os.Getenv("LOG_LEVEL"))
	cfg := cli.LoadAndValidateConfig(bootstrap)
	logger := cli.SetupLogger(log.ComponentWorker, cfg.LogLevel)

	if cfg.AMQPURL == "" {
		logger.Error("AMQP_URL is required for the sync worker")
		os.Exit(1)
	}

	be, err := backend.Create(cfg, logger)
	if err != nil {
		logger.Error("Failed to initialize backend", log.FieldError, err)
		os.Exit(1)
	}
	defer be.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var backup sheets.BackupAppender
	if cfg.GoogleSpreadsheetID != "" {
		client, err := gsheet.NewFromEnv(ctx)
		if err != nil {
			logger.Error("Failed to initialize Google Sheets client", log.FieldError, err)
			os.Exit(1)
		}
		backup = client
		logger.Info("Google Sheets backup enabled", "spreadsheet_id", cfg.GoogleSpreadsheetID)
	} else {
		// No spreadsheet configured: drain the queue into memory so
		// messages do not pile up. Useful for local development.
		backup = mem.New()
		logger.Info("Google Sheets disabled, using in-memory backup sink")
	}

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", log.FieldError, err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	syncWorker := worker.NewSyncWorker(be.Store, backup, logger)

	logger.Info("Starting sync worker", "queue", cfg.AMQPQueue)
	err = amqpClient.ConsumeTransactionEvents(ctx, func(msg *amqp.TransactionEventMessage) error {
		return syncWorker.HandleEvent(ctx, msg)
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Event consumption failed", log.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Sync worker stopped gracefully")
}
