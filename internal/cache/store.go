package cache

import (
	"context"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"nftmarket/internal/config"
)

type Store interface {
	Get(ctx context.Context, key string) (value []byte, found bool, err error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// New returns a redis-backed store when an address is configured and an
// in-process store otherwise.
func New(cfg config.RedisConfig) Store {
	addr := strings.TrimSpace(cfg.Addr)
	if addr == "" {
		return NewMemoryStore()
	}
	return NewRedisStore(&redis.Options{
		Addr:     addr,
		Username: cfg.Username,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
}

// GetOrLoad serves key from the store, calling load on a miss and storing its
// result for ttl. Store failures degrade to calling load.
func GetOrLoad(ctx context.Context, s Store, key string, ttl time.Duration, load func(ctx context.Context) ([]byte, error)) ([]byte, error) {
	if s == nil || ttl <= 0 {
		return load(ctx)
	}
	if b, found, err := s.Get(ctx, key); err == nil && found {
		return b, nil
	}
	b, err := load(ctx)
	if err != nil {
		return nil, err
	}
	_ = s.Set(ctx, key, b, ttl)
	return b, nil
}
