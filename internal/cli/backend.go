package cli

import (
	"context"
	"fmt"
	"time"

	"certiflash/internal/app"
	"certiflash/internal/config"
	"certiflash/internal/content"
	"certiflash/internal/domain"
	"certiflash/internal/infra/memory"
	pgstore "certiflash/internal/infra/postgres"
	redisstore "certiflash/internal/infra/redis"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const pingTimeout = 5 * time.Second

// backend is the document store selected by configuration.
type backend struct {
	kind     string
	ledgers  app.LedgerStore
	catalogs app.CatalogStore
	close    func()
}

// openBackend connects to Redis when configured, else Postgres, else keeps
// documents in memory. With degrade set, an unreachable store falls back to
// memory instead of failing.
func openBackend(ctx context.Context, cfg config.Config, log *zap.Logger, degrade bool) (*backend, error) {
	be, err := connectBackend(ctx, cfg, log)
	if err == nil {
		return be, nil
	}
	if !degrade {
		return nil, err
	}
	log.Warn("document store unreachable; running in memory", zap.Error(err))
	return memoryBackend(cfg), nil
}

func connectBackend(ctx context.Context, cfg config.Config, log *zap.Logger) (*backend, error) {
	switch {
	case cfg.Redis.Addr != "":
		client := redis.NewClient(&redis.Options{
			Addr:        cfg.Redis.Addr,
			Password:    cfg.Redis.Password,
			DB:          cfg.Redis.DB,
			DialTimeout: pingTimeout,
		})
		pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
		defer cancel()
		if err := client.Ping(pingCtx).Err(); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("redis ping: %w", err)
		}
		store := redisstore.NewDocumentStore(client, cfg.AppID, log)
		return &backend{kind: "redis", ledgers: store, catalogs: store, close: func() { _ = client.Close() }}, nil

	case cfg.Postgres.URL != "":
		if err := runMigrationsWithConfig(ctx, cfg, log); err != nil {
			return nil, err
		}
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return nil, fmt.Errorf("postgres connect: %w", err)
		}
		store := pgstore.NewDocumentStore(pool, cfg.AppID, log)
		return &backend{kind: "postgres", ledgers: store, catalogs: store, close: func() {
			store.Close()
			pool.Close()
		}}, nil

	default:
		return memoryBackend(cfg), nil
	}
}

func memoryBackend(cfg config.Config) *backend {
	store := memory.NewDocumentStore(cfg.AppID)
	return &backend{kind: "memory", ledgers: store, catalogs: store, close: func() {}}
}

// builtinCatalog is the operator's catalog file when configured, else the embedded content.
func builtinCatalog(cfg config.Config) (domain.Catalog, error) {
	if cfg.Catalog.Path == "" {
		return content.Default(), nil
	}
	c, err := content.LoadFile(cfg.Catalog.Path)
	if err != nil {
		return domain.Catalog{}, fmt.Errorf("load catalog %s: %w", cfg.Catalog.Path, err)
	}
	return c, nil
}
