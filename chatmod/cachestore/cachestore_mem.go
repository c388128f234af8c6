package cachestore

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

const (
	DefaultMemCacheSize = 10_000
	DefaultCacheTTL     = time.Minute
)

// namespace and key are kept apart, so ("words", "a/b") and ("words/a", "b") never collide
type memKey struct {
	name string
	key  string
}

// In-process cache, bounded both by entry count and by TTL. Safe for concurrent use.
//
// A non-positive TTL falls back to DefaultCacheTTL rather than disabling expiry, and a non-positive capacity falls back to DefaultMemCacheSize.
type MemCacheStore struct {
	data *expirable.LRU[memKey, string]
	ttl  time.Duration
}

var _ CacheStore = (*MemCacheStore)(nil)

func NewMemCacheStore(capacity int, ttl time.Duration) *MemCacheStore {
	if capacity <= 0 {
		capacity = DefaultMemCacheSize
	}
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &MemCacheStore{
		data: expirable.NewLRU[memKey, string](capacity, nil, ttl),
		ttl:  ttl,
	}
}

func (s *MemCacheStore) Get(ctx context.Context, name, key string) (string, error) {
	v, ok := s.data.Get(memKey{name: name, key: key})
	if !ok {
		return "", nil
	}
	return v, nil
}

func (s *MemCacheStore) Set(ctx context.Context, name, key string, val string) error {
	s.data.Add(memKey{name: name, key: key}, val)
	return nil
}

func (s *MemCacheStore) Purge(ctx context.Context, name, key string) error {
	s.data.Remove(memKey{name: name, key: key})
	return nil
}

// Number of live entries, across all namespaces.
func (s *MemCacheStore) Len() int {
	return s.data.Len()
}

func (s *MemCacheStore) TTL() time.Duration {
	return s.ttl
}
