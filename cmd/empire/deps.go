package main

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"empirepilot/internal/admin"
	"empirepilot/internal/config"
	"empirepilot/internal/crypto"
	"empirepilot/internal/news"
	"empirepilot/internal/pilot"
	"empirepilot/internal/quote"
	"empirepilot/internal/storage"
	"empirepilot/internal/storage/memory"
)

// repository is everything the services persist, served by either the SQL
// store or the in-memory one.
type repository interface {
	pilot.ConversationStore
	news.PostStore
	quote.Store
	admin.Store
}

func openRepository(ctx context.Context, cfg *config.Config) (repository, func() error, error) {
	if cfg.DB.Driver == config.DriverMemory {
		return memory.New(), func() error { return nil }, nil
	}

	var sealer *crypto.Manager
	if len(cfg.Crypto.Keys) > 0 {
		m, err := crypto.NewManager(cfg.Crypto.CurrentKeyID, cfg.Crypto.Keys)
		if err != nil {
			return nil, nil, fmt.Errorf("init crypto manager: %w", err)
		}
		sealer = m
	}

	store, err := storage.Open(ctx, storage.Options{
		Driver:      cfg.DB.Driver,
		DSN:         cfg.DB.DSN,
		AutoMigrate: cfg.DB.AutoMigrate,
		Sealer:      sealer,
	})
	if err != nil {
		return nil, nil, err
	}
	return store, store.Close, nil
}

func openRedis(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	if cfg.Addr == "" {
		return nil, nil
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("connect redis: %w", err)
	}
	return rdb, nil
}
