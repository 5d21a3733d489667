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

	"hucha/internal/amqp"
	"hucha/internal/backend"
	"hucha/internal/config"
	"hucha/internal/export"
	applog "hucha/internal/log"
	"hucha/internal/worker"
)

func main() {
	_ = godotenv.Load()

	logger := applog.New(applog.Config{Level: slog.LevelInfo, Component: applog.ComponentWorker})
	applog.SetDefault(logger)

	logger.Info("Starting report-worker")

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", applog.FieldError, err)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	store, err := backend.Open(ctx, cfg, logger.Logger)
	if err != nil {
		logger.Error("Failed to open storage backend",
			applog.FieldError, err,
			"backend", cfg.DataBackend)
		os.Exit(1)
	}
	defer store.Close()

	exporter, err := buildExporter(ctx, cfg, logger)
	if err != nil {
		logger.Error("Failed to initialize exporter",
			applog.FieldError, err,
			"export_backend", cfg.ExportBackend)
		os.Exit(1)
	}

	reportWorker := worker.NewReportWorker(store, store, exporter, logger)

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", applog.FieldError, err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		logger.Info("Consuming operation events",
			"exchange", cfg.AMQPExchange,
			"queue", cfg.AMQPQueue)
		return amqpClient.ConsumeOperationEvents(groupCtx, func(ev *amqp.OperationEvent) error {
			return reportWorker.HandleOperationEvent(groupCtx, ev)
		})
	})

	group.Go(func() error {
		ticker := time.NewTicker(cfg.RescanInterval)
		defer ticker.Stop()
		for {
			select {
			case <-groupCtx.Done():
				return groupCtx.Err()
			case now := <-ticker.C:
				if _, err := reportWorker.RescanAll(groupCtx, now); err != nil {
					logger.Error("Rescan failed", applog.FieldError, err)
				}
			}
		}
	})

	if err := group.Wait(); err != nil && err != context.Canceled {
		logger.Error("Report-worker stopped with error", applog.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Report-worker stopped")
}

func buildExporter(ctx context.Context, cfg *config.Config, logger *applog.Logger) (export.SummaryExporter, error) {
	switch cfg.ExportBackend {
	case "sheets":
		return export.NewGoogleExporter(ctx, cfg.GoogleSpreadsheetID, export.GoogleCredentials{
			InlineJSON: cfg.GoogleServiceAccountJSON,
			File:       cfg.GoogleServiceAccountFile,
		}, logger)
	case "none":
		logger.Info("Export disabled, summaries are recomputed but not written anywhere")
		return export.NewMemoryExporter(), nil
	default:
		return export.NewXLSXExporter(cfg.XLSXOutputDir, logger)
	}
}
