package cache

import (
	"context"
	"errors"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

type MemoryProvider struct {
	cache *lru.Cache[string, item]
	now   func() time.Time
}

type item struct {
	value     []byte
	expiresAt time.Time
}

const defaultMemoryCacheSize = 10_000

func NewMemoryProvider(size int) (*MemoryProvider, error) {
	if size <= 0 {
		size = defaultMemoryCacheSize
	}
	c, err := lru.New[string, item](size)
	if err != nil {
		return nil, err
	}
	return &MemoryProvider{cache: c, now: time.Now}, nil
}

func (m *MemoryProvider) Get(ctx context.Context, key string) ([]byte, error) {
	_ = ctx
	cached, exists := m.cache.Get(key)
	if !exists {
		return nil, ErrNotFound
	}

	if m.now().After(cached.expiresAt) {
		m.cache.Remove(key)
		return nil, ErrNotFound
	}

	return append([]byte(nil), cached.value...), nil
}

func (m *MemoryProvider) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	_ = ctx
	m.cache.Add(key, item{
		value:     append([]byte(nil), value...),
		expiresAt: m.now().Add(ttl),
	})
	return nil
}

func (m *MemoryProvider) Delete(ctx context.Context, key string) error {
	_ = ctx
	m.cache.Remove(key)
	return nil
}

func (m *MemoryProvider) Ping(ctx context.Context) error {
	return ctx.Err()
}

func (m *MemoryProvider) Close() error {
	return nil
}

var ErrNotFound = errors.New("key not found")
