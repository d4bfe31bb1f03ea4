package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/storefront/internal/cart"
	"github.com/odyssey-erp/storefront/internal/catalog"
	"github.com/odyssey-erp/storefront/internal/device"
	"github.com/odyssey-erp/storefront/internal/platform/cache"
	"github.com/odyssey-erp/storefront/internal/platform/db"
	"github.com/odyssey-erp/storefront/internal/platform/kv"
	"github.com/odyssey-erp/storefront/internal/storage/blob"
	"github.com/odyssey-erp/storefront/internal/storage/postgres"
)

// Backend bundles the stores selected by STORE_BACKEND.
type Backend struct {
	Name     string
	Products catalog.Store
	Cart     cart.Store
	// Pinger is what the connectivity probe checks.
	Pinger device.Pinger

	closers []func() error
}

// OpenBackend opens the configured storage backend.
func OpenBackend(ctx context.Context, cfg *Config, logger *slog.Logger) (*Backend, error) {
	switch cfg.StoreBackend {
	case BackendMemory:
		return kvBackend(cfg.StoreBackend, kv.NewMemory()), nil
	case BackendBolt:
		store, err := kv.OpenBolt(cfg.BoltPath)
		if err != nil {
			return nil, err
		}
		logger.Info("bolt store opened", slog.String("path", cfg.BoltPath))
		return kvBackend(cfg.StoreBackend, store), nil
	case BackendRedis:
		client, err := cache.New(ctx, cfg.RedisAddr)
		if err != nil {
			return nil, err
		}
		logger.Info("redis store connected", slog.String("addr", cfg.RedisAddr), slog.String("prefix", cfg.RedisPrefix))
		return kvBackend(cfg.StoreBackend, kv.NewRedis(client, cfg.RedisPrefix)), nil
	case BackendPostgres:
		pool, err := db.New(ctx, cfg.PGDSN, cfg.PGMaxConns)
		if err != nil {
			return nil, err
		}
		if err := postgres.EnsureSchema(ctx, pool); err != nil {
			pool.Close()
			return nil, err
		}
		logger.Info("postgres store connected")
		return pgBackend(pool), nil
	default:
		return nil, fmt.Errorf("app: unknown store backend %q", cfg.StoreBackend)
	}
}

func kvBackend(name string, store kv.Store) *Backend {
	return &Backend{
		Name:     name,
		Products: blob.NewProducts(store),
		Cart:     blob.NewCart(store),
		Pinger:   store,
		closers:  []func() error{store.Close},
	}
}

func pgBackend(pool *pgxpool.Pool) *Backend {
	return &Backend{
		Name:     BackendPostgres,
		Products: postgres.NewProducts(pool),
		Cart:     postgres.NewCart(pool),
		Pinger:   device.PingFunc(pool.Ping),
		closers: []func() error{func() error {
			pool.Close()
			return nil
		}},
	}
}

// Close releases the backend's connections.
func (b *Backend) Close() error {
	if b == nil {
		return nil
	}
	var errs []error
	for _, c := range b.closers {
		errs = append(errs, c())
	}
	return errors.Join(errs...)
}
