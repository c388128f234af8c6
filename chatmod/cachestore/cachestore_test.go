package cachestore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func testCacheStoreBasics(t *testing.T, cs CacheStore) {
	assert := assert.New(t)
	ctx := context.Background()

	v, err := cs.Get(ctx, "settings", "community-1")
	assert.NoError(err)
	assert.Equal("", v)

	assert.NoError(cs.Set(ctx, "settings", "community-1", `{"spamEnabled":false}`))
	v, err = cs.Get(ctx, "settings", "community-1")
	assert.NoError(err)
	assert.Equal(`{"spamEnabled":false}`, v)

	// namespaces are independent
	v, err = cs.Get(ctx, "words", "community-1")
	assert.NoError(err)
	assert.Equal("", v)

	assert.NoError(cs.Purge(ctx, "settings", "community-1"))
	v, err = cs.Get(ctx, "settings", "community-1")
	assert.NoError(err)
	assert.Equal("", v)

	// purging a missing key is not an error
	assert.NoError(cs.Purge(ctx, "settings", "never-set"))
}

func TestMemCacheStoreBasics(t *testing.T) {
	testCacheStoreBasics(t, NewMemCacheStore(10, time.Hour))
}

func TestMemCacheStoreBounds(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	cs := NewMemCacheStore(2, time.Hour)
	assert.NoError(cs.Set(ctx, "settings", "a", "1"))
	assert.NoError(cs.Set(ctx, "settings", "b", "2"))
	assert.NoError(cs.Set(ctx, "settings", "c", "3"))
	v, err := cs.Get(ctx, "settings", "a")
	assert.NoError(err)
	assert.Equal("", v)
	assert.Equal(2, cs.Len())

	short := NewMemCacheStore(10, 10*time.Millisecond)
	assert.NoError(short.Set(ctx, "settings", "a", "1"))
	time.Sleep(50 * time.Millisecond)
	v, err = short.Get(ctx, "settings", "a")
	assert.NoError(err)
	assert.Equal("", v)
}

func TestMemCacheStoreDefaults(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	cs := NewMemCacheStore(0, 0)
	assert.Equal(DefaultCacheTTL, cs.TTL())
	assert.NoError(cs.Set(ctx, "settings", "a", "1"))
	v, err := cs.Get(ctx, "settings", "a")
	assert.NoError(err)
	assert.Equal("1", v)

	assert.Equal(DefaultCacheTTL, NewMemCacheStore(10, -time.Second).TTL())
	assert.Equal(time.Hour, NewMemCacheStore(-1, time.Hour).TTL())
}

func TestMemCacheStoreKeySeparation(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	cs := NewMemCacheStore(10, time.Hour)
	assert.NoError(cs.Set(ctx, "words", "a/b", "first"))
	assert.NoError(cs.Set(ctx, "words/a", "b", "second"))
	assert.Equal(2, cs.Len())

	v, err := cs.Get(ctx, "words", "a/b")
	assert.NoError(err)
	assert.Equal("first", v)
	v, err = cs.Get(ctx, "words/a", "b")
	assert.NoError(err)
	assert.Equal("second", v)

	assert.NoError(cs.Purge(ctx, "words", "a/b"))
	v, err = cs.Get(ctx, "words/a", "b")
	assert.NoError(err)
	assert.Equal("second", v)
}

func TestRedisCacheStoreBasics(t *testing.T) {
	t.Skip("live test, need redis running locally")

	cs, err := NewRedisCacheStore("redis://localhost:6379/0", 100, time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	testCacheStoreBasics(t, cs)
}

func TestMemcachedCacheStoreBasics(t *testing.T) {
	t.Skip("live test, need memcached running locally")

	testCacheStoreBasics(t, NewMemcachedCacheStore(time.Minute, "localhost:11211"))
}

func TestMemcachedKey(t *testing.T) {
	assert := assert.New(t)

	assert.Equal("chatmod/settings/community%201", memcachedKey("settings", "community 1"))
}
