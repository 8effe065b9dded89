// Package cache provides the byte-oriented stores used to memoise upstream
// market data, and a snapshot-source decorator built on top of them.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/seenimoa/fairvalue/internal/config"
)

// DefaultTTL is how long a fetched snapshot stays fresh.
const DefaultTTL = time.Hour

// Store is a TTL key/value store. Get reports a miss with ok == false and a
// nil error; errors are reserved for backend failures.
type Store interface {
	Get(ctx context.Context, key string) (val []byte, ok bool, err error)
	Set(ctx context.Context, key string, val []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// New builds the store selected by cfg.Backend.
func New(cfg config.CacheConfig) (Store, error) {
	switch cfg.Backend {
	case "", "memory":
		return NewMemory(ttlOf(cfg)), nil
	case "redis":
		return NewRedis(RedisOptions{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		}), nil
	default:
		return nil, fmt.Errorf("unknown cache backend %q", cfg.Backend)
	}
}

func ttlOf(cfg config.CacheConfig) time.Duration {
	if cfg.TTL <= 0 {
		return DefaultTTL
	}
	return time.Duration(cfg.TTL) * time.Second
}

// TTL returns the configured TTL, or DefaultTTL when unset.
func TTL(cfg config.CacheConfig) time.Duration { return ttlOf(cfg) }
