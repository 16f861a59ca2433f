package auth

import (
	"context"
	"fmt"
	"time"

	"bontroc_backend/internal/shared"

	"github.com/patrickmn/go-cache"
	goredis "github.com/redis/go-redis/v9"
)

// InMemoryBlocklistService keeps revoked JTIs in a go-cache with per-item
// expiry. It only covers a single API instance.
type InMemoryBlocklistService struct {
	cache *cache.Cache
}

type InMemoryBlocklistConfig struct {
	DefaultExpiration time.Duration
	CleanupInterval   time.Duration
}

func NewInMemoryBlocklistService(cfg InMemoryBlocklistConfig) *InMemoryBlocklistService {
	return &InMemoryBlocklistService{cache: cache.New(cfg.DefaultExpiration, cfg.CleanupInterval)}
}

// AddToBlocklist keeps jti until the token would have expired anyway.
func (s *InMemoryBlocklistService) AddToBlocklist(ctx context.Context, jti string, expiresAt time.Time) error {
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return nil
	}
	s.cache.Set(jti, true, ttl)
	return nil
}

func (s *InMemoryBlocklistService) IsBlocklisted(ctx context.Context, jti string) (bool, error) {
	_, found := s.cache.Get(jti)
	return found, nil
}

// RedisBlocklistService shares revocations between API instances.
type RedisBlocklistService struct {
	client *goredis.Client
}

const blocklistKeyPrefix = "bontroc:revoked:"

func NewRedisBlocklistService(client *goredis.Client) *RedisBlocklistService {
	return &RedisBlocklistService{client: client}
}

func (s *RedisBlocklistService) AddToBlocklist(ctx context.Context, jti string, expiresAt time.Time) error {
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return nil
	}
	if err := s.client.Set(ctx, blocklistKeyPrefix+jti, 1, ttl).Err(); err != nil {
		return fmt.Errorf("redis blocklist set: %w", err)
	}
	return nil
}

func (s *RedisBlocklistService) IsBlocklisted(ctx context.Context, jti string) (bool, error) {
	n, err := s.client.Exists(ctx, blocklistKeyPrefix+jti).Result()
	if err != nil {
		return false, fmt.Errorf("redis blocklist lookup: %w", err)
	}
	return n > 0, nil
}

// NewBlocklist uses Redis when available.
func NewBlocklist(client *goredis.Client) shared.TokenBlocklist {
	if client != nil {
		return NewRedisBlocklistService(client)
	}
	return NewInMemoryBlocklistService(InMemoryBlocklistConfig{
		DefaultExpiration: time.Hour,
		CleanupInterval:   10 * time.Minute,
	})
}
