package main

import (
	"context"
	"errors"
	"os"
	"time"

	"expensechat/internal/amqp"
	"expensechat/internal/cli"
	"expensechat/internal/config"
	"expensechat/internal/log"
	gsheet "expensechat/internal/sheets/google"
	"expensechat/internal/storage"
	"expensechat/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(log.ComponentWorker)
	logger.Info("Starting expensechat-worker")

	cfg := cli.LoadAndValidateConfig(logger, (*config.Config).ValidateExport)

	// Records are read from the same SQLite file the API writes to.
	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to initialize SQLite repository", "error", err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer repo.Close()

	exporter, err := gsheet.New(context.Background(), gsheet.Options{
		SpreadsheetID:   cfg.GoogleSpreadsheetID,
		SheetName:       cfg.GoogleSheetName,
		CredentialsJSON: cfg.GoogleServiceAccountJSON,
		CredentialsFile: cfg.GoogleServiceAccountFile,
	})
	if err != nil {
		logger.Error("Failed to initialize Google Sheets client", "error", err)
		os.Exit(1)
	}

	w := worker.NewExportWorker(repo, exporter, cfg.ExportBatchSize, cfg.ExportConcurrency)

	var consumer *amqp.Client
	if cfg.AMQPURL != "" {
		consumer, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			// the periodic sweep still exports everything, only later
			logger.Warn("Failed to initialize AMQP client, relying on periodic export", "error", err)
			consumer = nil
		}
	} else {
		logger.Info("AMQP disabled, relying on periodic export")
	}

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(context.Context) {
		w.Stop()
		if consumer != nil {
			if err := consumer.Close(); err != nil {
				logger.Error("Failed to close AMQP client", "error", err)
			}
		}
	})

	// One sweep runs immediately to pick up anything missed while down.
	w.Start(ctx, cfg.ExportInterval)
	logger.Info("Export sweep started",
		"interval", cfg.ExportInterval,
		"batch_size", cfg.ExportBatchSize,
		"concurrency", cfg.ExportConcurrency)

	if consumer != nil {
		go func() {
			err := consumer.ConsumeExpenseCreated(ctx, w.HandleExpenseCreated)
			if err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("Message consumption failed", "error", err)
			}
		}()
	}

	<-done
	logger.Info("Worker stopped")
}
