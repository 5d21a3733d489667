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

	"hucha/internal/amqp"
	"hucha/internal/backend"
	"hucha/internal/config"
	apphttp "hucha/internal/http"
	applog "hucha/internal/log"
	"hucha/internal/services"
)

func main() {
	// Load .env for local development; absent in containers.
	_ = godotenv.Load()

	logger := applog.New(applog.Config{Level: slog.LevelInfo, Component: applog.ComponentApp})
	applog.SetDefault(logger)

	logger.Info("Starting hucha server")

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

	// The broker is optional: without it writes still succeed, only report
	// exports stop refreshing.
	var publisher services.EventPublisher
	if cfg.AMQPURL != "" {
		amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("Failed to initialize AMQP client, continuing without event publishing",
				applog.FieldError, err)
		} else {
			defer amqpClient.Close()
			publisher = amqpClient
			logger.Info("AMQP client initialized",
				"exchange", cfg.AMQPExchange,
				"queue", cfg.AMQPQueue)
		}
	} else {
		logger.Info("AMQP disabled, operation events will not be published")
	}

	meals := services.NewMealsService(store, store, store)
	if cfg.RecipesSeedFile != "" {
		if err := meals.SeedFromFile(ctx, cfg.RecipesSeedFile); err != nil {
			logger.Error("Failed to seed recipes",
				applog.FieldError, err,
				"path", cfg.RecipesSeedFile)
			os.Exit(1)
		}
	}

	srv := apphttp.NewServer(":"+cfg.Port, apphttp.Deps{
		Operations: services.NewOperationService(store, publisher),
		Calendar:   services.NewCalendarService(store),
		Budgets:    services.NewBudgetService(store),
		Meals:      meals,
		Users:      store,
		Logger:     logger,
	})

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", applog.FieldError, err)
		}
		cancel()
	}()

	logger.Info("Listening", "port", cfg.Port, "backend", cfg.DataBackend)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Server error", applog.FieldError, err)
		os.Exit(1)
	}

	logger.Info("Server stopped")
}
