package redis

import (
	"context"
	"fmt"
	"time"

	"bontroc_backend/internal/config"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// NewClient connects to Redis when REDIS_ADDR is configured. It returns a nil
// client and no error when Redis is not configured, in which case callers fall
// back to in-process alternatives.
func NewClient(cfg *config.Config, logger *zap.Logger) (*goredis.Client, func(), error) {
	if cfg.RedisAddr == "" {
		logger.Info("REDIS_ADDR not set, Redis client disabled.")
		return nil, func() {}, nil
	}

	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("redis ping %s: %w", cfg.RedisAddr, err)
	}

	logger.Info("Redis client connected", zap.String("addr", cfg.RedisAddr))
	cleanup := func() {
		if err := client.Close(); err != nil {
			logger.Warn("Error closing Redis client", zap.Error(err))
		}
	}
	return client, cleanup, nil
}
