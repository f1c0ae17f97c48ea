package main

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"calpin/internal/config"
	"calpin/internal/event"
	"calpin/internal/location"
	appLog "calpin/internal/log"
	"calpin/internal/store/cache"
	"calpin/internal/store/memory"
	"calpin/internal/store/postgres"
)

// backend holds the storage handles selected by the config.
type backend struct {
	events    event.Store
	locations location.Store

	pg    *postgres.Store
	redis *redis.Client
}

func openBackend(ctx context.Context, cfg *config.Config) (*backend, error) {
	b := &backend{}

	switch cfg.Database.Driver {
	case config.DriverPostgres:
		pg, err := postgres.Open(ctx, cfg.Database.URL)
		if err != nil {
			return nil, err
		}
		b.pg = pg
		b.events = pg
		b.locations = pg
	case config.DriverMemory:
		mem := memory.New()
		b.events = mem
		b.locations = mem
		appLog.Warn("using in-memory storage; data is lost on exit")
	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Database.Driver)
	}

	if cfg.Redis.Addr != "" {
		b.redis = cache.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err := b.redis.Ping(ctx).Err(); err != nil {
			appLog.Warn("redis not reachable; cache calls will fall through", "addr", cfg.Redis.Addr, "err", err)
		}
		ttl := time.Duration(cfg.Redis.TTLSeconds) * time.Second
		b.events = cache.New(b.events, b.redis, ttl)
		appLog.Info("event cache enabled", "addr", cfg.Redis.Addr, "ttl", ttl.String())
	}

	return b, nil
}

func (b *backend) Close() {
	if b.redis != nil {
		if err := b.redis.Close(); err != nil {
			appLog.Error("close redis", err)
		}
	}
	if b.pg != nil {
		if err := b.pg.Close(); err != nil {
			appLog.Error("close postgres", err)
		}
	}
}
