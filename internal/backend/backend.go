// Package backend selects and constructs the persistence backend.
package backend

import (
	"context"
	"fmt"
	"log/slog"

	"hucha/internal/config"
	"hucha/internal/storage"
	"hucha/internal/storage/postgres"
	"hucha/internal/storage/sqlite"
)

type Type string

const (
	SQLite   Type = "sqlite"
	Postgres Type = "postgres"
)

func (t Type) String() string {
	return string(t)
}

func (t Type) IsValid() bool {
	switch t {
	case SQLite, Postgres:
		return true
	default:
		return false
	}
}

// Open constructs the store selected by cfg.DataBackend, running migrations.
func Open(ctx context.Context, cfg *config.Config, logger *slog.Logger) (storage.Store, error) {
	if logger == nil {
		logger = slog.Default()
	}

	backendType := Type(cfg.DataBackend)
	if !backendType.IsValid() {
		return nil, fmt.Errorf("unsupported data backend: %s", cfg.DataBackend)
	}

	switch backendType {
	case SQLite:
		store, err := sqlite.New(cfg.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("initialize sqlite backend: %w", err)
		}
		logger.Info("Initialized sqlite backend", "db_path", cfg.SQLiteDBPath)
		return store, nil

	case Postgres:
		store, err := postgres.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("initialize postgres backend: %w", err)
		}
		logger.Info("Initialized postgres backend")
		return store, nil
	}

	return nil, fmt.Errorf("unsupported data backend: %s", cfg.DataBackend)
}
