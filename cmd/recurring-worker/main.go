package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"

	"hucha/internal/amqp"
	"hucha/internal/backend"
	"hucha/internal/config"
	applog "hucha/internal/log"
	"hucha/internal/services"
)

func main() {
	_ = godotenv.Load()

	logger := applog.New(applog.Config{Level: slog.LevelInfo, Component: applog.ComponentWorker})
	applog.SetDefault(logger)

	logger.Info("Starting recurring-worker")

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", applog.FieldError, err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, err := backend.Open(ctx, cfg, logger.Logger)
	if err != nil {
		logger.Error("Failed to open storage backend",
			applog.FieldError, err,
			"backend", cfg.DataBackend)
		os.Exit(1)
	}
	defer store.Close()

	var publisher services.EventPublisher
	if cfg.AMQPURL != "" {
		amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("Failed to initialize AMQP client, continuing without event publishing",
				applog.FieldError, err)
		} else {
			defer amqpClient.Close()
			publisher = amqpClient
		}
	}

	operations := services.NewOperationService(store, publisher)
	processor := services.NewRecurringProcessor(store, operations)

	run := func() {
		now := time.Now()
		count, err := processor.ProcessDueEvents(ctx, now)
		if err != nil {
			logger.Error("Processing failed", applog.FieldError, err)
			return
		}
		logger.Info("Processing complete", "operations_created", count)
	}

	// Catch up immediately, then follow the schedule.
	logger.Info("Running initial processing")
	run()

	scheduler := cron.New()
	if _, err := scheduler.AddFunc(cfg.RecurringCron, run); err != nil {
		logger.Error("Invalid cron expression",
			applog.FieldError, err,
			"cron", cfg.RecurringCron)
		os.Exit(1)
	}
	scheduler.Start()
	logger.Info("Scheduler started", "cron", cfg.RecurringCron)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan
	logger.Info("Shutdown signal received", "signal", sig.String())

	stopCtx := scheduler.Stop()
	<-stopCtx.Done()
	cancel()
	logger.Info("Recurring-worker stopped")
}
