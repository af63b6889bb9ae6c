package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"komunitas/pendataan/internal/cache"
	"komunitas/pendataan/internal/config"
	"komunitas/pendataan/internal/db"
	"komunitas/pendataan/internal/db/sqlite"
	"komunitas/pendataan/internal/service"
)

type backend interface {
	service.Store
	Migrate(ctx context.Context) error
}

// openStore uses Postgres when a database URL is configured and the embedded
// sqlite store otherwise.
func openStore(ctx context.Context, cfg config.Config, logger *slog.Logger) (backend, func(), error) {
	if cfg.DatabaseURL != "" {
		pool, err := db.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("db connection failed: %w", err)
		}
		logger.Info("using postgres store")
		return db.NewStore(pool), pool.Close, nil
	}
	store, err := sqlite.New(cfg.SQLitePath, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("open sqlite store: %w", err)
	}
	logger.Info("using sqlite store", "path", cfg.SQLitePath)
	return store, func() {
		if err := store.Close(); err != nil {
			logger.Error("sqlite close error", "error", err)
		}
	}, nil
}

func openCache(ctx context.Context, cfg config.Config, logger *slog.Logger) (cache.Cache, func(), error) {
	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := client.Ping(pingCtx).Err(); err != nil {
			_ = client.Close()
			return nil, nil, fmt.Errorf("redis ping failed: %w", err)
		}
		logger.Info("using redis cache", "addr", cfg.RedisAddr)
		return cache.NewRedis(client), func() {
			if err := client.Close(); err != nil {
				logger.Error("redis close error", "error", err)
			}
		}, nil
	}
	mem, err := cache.NewMemory(cfg.CacheMaxBytes)
	if err != nil {
		return nil, nil, fmt.Errorf("memory cache: %w", err)
	}
	logger.Info("using in-process cache", "max_bytes", cfg.CacheMaxBytes)
	return mem, mem.Close, nil
}
