// Package cache holds short-lived quote drafts between preview and acceptance.
package cache

import (
	"context"
	"fmt"
	"time"
)

// Provider stores opaque draft payloads with a time-to-live.
type Provider interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Ping(ctx context.Context) error
	Close() error
}

type Config struct {
	Provider              string
	RedisConnectionString string
	// Size bounds the memory provider; ignored by redis.
	Size int
}

func NewProvider(cfg Config) (Provider, error) {
	switch cfg.Provider {
	case "memory", "":
		return NewMemoryProvider(cfg.Size)
	case "redis":
		return NewRedisProvider(cfg.RedisConnectionString)
	default:
		return nil, fmt.Errorf("unsupported cache provider: %s", cfg.Provider)
	}
}

func QuoteKey(quoteID string) string {
	return fmt.Sprintf("quote:%s", quoteID)
}
