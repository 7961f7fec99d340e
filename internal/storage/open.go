package storage

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dejobratic/libris/internal/config"
	"github.com/dejobratic/libris/internal/database"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Backend is an opened store plus the lifecycle hooks of whatever sits under it.
type Backend struct {
	Store Store
	Name  config.Backend

	pool   *pgxpool.Pool
	closer func() error
}

// Open builds the store selected by cfg and wraps it with spans and query
// metrics.
func Open(ctx context.Context, cfg config.StorageConfig, db config.DatabaseConfig, metrics *Metrics, logger *slog.Logger) (*Backend, error) {
	b := &Backend{Name: cfg.Backend}

	var store Store
	switch cfg.Backend {
	case config.BackendMemory:
		store = NewMemoryStore()
	case config.BackendPebble:
		pebbleStore, err := NewPebbleStore(cfg.PebbleDir)
		if err != nil {
			return nil, err
		}
		b.closer = pebbleStore.Close
		store = pebbleStore
	case config.BackendPostgres:
		pool, err := database.NewPool(ctx, db.URL)
		if err != nil {
			return nil, fmt.Errorf("create database pool: %w", err)
		}
		if db.AutoMigrate {
			version, err := database.RunMigrations(db.URL, db.MigrationsPath)
			if err != nil {
				pool.Close()
				return nil, fmt.Errorf("run migrations: %w", err)
			}
			logger.InfoContext(ctx, "database migrated", "path", db.MigrationsPath, "version", version)
		}
		b.pool = pool
		b.closer = func() error {
			pool.Close()
			return nil
		}
		store = NewPostgresStore(pool)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}

	logger.InfoContext(ctx, "storage opened", "backend", cfg.Backend)
	b.Store = NewObservableStore(store, string(cfg.Backend), metrics)
	return b, nil
}

// Ready reports whether the backend can serve requests. Only postgres has a
// remote dependency to check.
func (b *Backend) Ready(ctx context.Context) error {
	if b.pool == nil {
		return nil
	}
	return database.Ping(ctx, b.pool)
}

func (b *Backend) Close() error {
	if b.closer == nil {
		return nil
	}
	return b.closer()
}
