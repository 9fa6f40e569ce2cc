// Package store opens the persisted session record selected by configuration.
package store

import (
	"context"
	"fmt"
	"time"

	goRedis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/fastygo/wishgift/internal/config"
	"github.com/fastygo/wishgift/repository"
	boltRepo "github.com/fastygo/wishgift/repository/bolt"
	redisRepo "github.com/fastygo/wishgift/repository/redis"
)

const (
	BackendBolt  = "bolt"
	BackendRedis = "redis"
)

// Open returns the session repository for cfg.Backend. Redis connections are
// health-checked before use so a dead server fails at startup, not at login.
func Open(ctx context.Context, cfg config.StoreConfig, logger *zap.Logger) (repository.SessionRepository, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	switch cfg.Backend {
	case "", BackendBolt:
		repo, err := boltRepo.Open(cfg.BoltPath, cfg.BoltBucket)
		if err != nil {
			return nil, fmt.Errorf("open bolt session store %s: %w", cfg.BoltPath, err)
		}
		logger.Debug("session store opened", zap.String("backend", BackendBolt), zap.String("path", cfg.BoltPath))
		return repo, nil
	case BackendRedis:
		client, err := newRedisClient(ctx, cfg.Redis)
		if err != nil {
			return nil, fmt.Errorf("connect redis session store: %w", err)
		}
		logger.Debug("session store opened", zap.String("backend", BackendRedis))
		return redisRepo.NewSessionRepository(client, cfg.Redis.Prefix, cfg.Redis.TTL), nil
	default:
		return nil, fmt.Errorf("unknown session store backend %q", cfg.Backend)
	}
}

func newRedisClient(ctx context.Context, cfg config.RedisConfig) (*goRedis.Client, error) {
	opts, err := goRedis.ParseURL(cfg.URL)
	if err != nil {
		return nil, err
	}
	if cfg.Password != "" {
		opts.Password = cfg.Password
	}
	if cfg.DB != 0 {
		opts.DB = cfg.DB
	}

	client := goRedis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, err
	}
	return client, nil
}
