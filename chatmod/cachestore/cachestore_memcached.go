package cachestore

import (
	"context"
	"errors"
	"net/url"
	"time"

	"github.com/bradfitz/gomemcache/memcache"
)

// memcached rejects relative expirations longer than this
const maxMemcachedExpiry = 30*24*60*60 - 60

type MemcachedCacheStore struct {
	Client *memcache.Client
	// seconds
	expiry int32
}

var _ CacheStore = (*MemcachedCacheStore)(nil)

func NewMemcachedCacheStore(ttl time.Duration, servers ...string) *MemcachedCacheStore {
	expiry := int32(ttl.Seconds())
	if ttl.Seconds() > maxMemcachedExpiry {
		expiry = maxMemcachedExpiry
	}
	if expiry < 1 {
		expiry = 1
	}
	return &MemcachedCacheStore{
		Client: memcache.New(servers...),
		expiry: expiry,
	}
}

// memcached keys can't contain whitespace or control characters, so the path components are escaped
func memcachedKey(name, key string) string {
	return "chatmod/" + url.PathEscape(name) + "/" + url.PathEscape(key)
}

func (s *MemcachedCacheStore) Get(ctx context.Context, name, key string) (string, error) {
	item, err := s.Client.Get(memcachedKey(name, key))
	if errors.Is(err, memcache.ErrCacheMiss) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return string(item.Value), nil
}

func (s *MemcachedCacheStore) Set(ctx context.Context, name, key string, val string) error {
	return s.Client.Set(&memcache.Item{
		Key:        memcachedKey(name, key),
		Value:      []byte(val),
		Expiration: s.expiry,
	})
}

func (s *MemcachedCacheStore) Purge(ctx context.Context, name, key string) error {
	err := s.Client.Delete(memcachedKey(name, key))
	if errors.Is(err, memcache.ErrCacheMiss) {
		return nil
	}
	return err
}
