package engine

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bluesky-social/chatmod/chatmod/cachestore"
	"github.com/bluesky-social/chatmod/chatmod/configstore"
	"github.com/bluesky-social/chatmod/chatmod/settings"

	"github.com/stretchr/testify/assert"
)

// cache store with a manually-advanced clock
type clockCache struct {
	mu   sync.Mutex
	now  time.Time
	ttl  time.Duration
	data map[string]clockEntry
}

type clockEntry struct {
	val string
	at  time.Time
}

var _ cachestore.CacheStore = (*clockCache)(nil)

func newClockCache(ttl time.Duration) *clockCache {
	return &clockCache{
		now:  time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		ttl:  ttl,
		data: map[string]clockEntry{},
	}
}

func (c *clockCache) Get(ctx context.Context, name, key string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.data[name+"/"+key]
	if !ok || c.now.Sub(e.at) >= c.ttl {
		return "", nil
	}
	return e.val, nil
}

func (c *clockCache) Set(ctx context.Context, name, key string, val string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[name+"/"+key] = clockEntry{val: val, at: c.now}
	return nil
}

func (c *clockCache) Purge(ctx context.Context, name, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, name+"/"+key)
	return nil
}

func (c *clockCache) advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// wraps the in-memory store with call counting and fault injection
type flakyStore struct {
	*configstore.MemConfigStore
	settingsCalls atomic.Int64
	// returned from every read, if set
	fail error
	// GetSettings panics for this community
	panicCommunity string
	// GetSettings blocks until the context is done
	hang bool
	// delay before each whitelist lookup
	delay        func() time.Duration
	whitelistErr error
}

func newFlakyStore() *flakyStore {
	return &flakyStore{MemConfigStore: configstore.NewMemConfigStore()}
}

func (s *flakyStore) GetSettings(ctx context.Context, communityID string) (*settings.Overrides, error) {
	s.settingsCalls.Add(1)
	if communityID != "" && communityID == s.panicCommunity {
		panic("settings store exploded")
	}
	if s.hang {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if s.fail != nil {
		return nil, s.fail
	}
	return s.MemConfigStore.GetSettings(ctx, communityID)
}

func (s *flakyStore) GetWords(ctx context.Context, communityID string) ([]configstore.WordEntry, error) {
	if s.fail != nil {
		return nil, s.fail
	}
	return s.MemConfigStore.GetWords(ctx, communityID)
}

func (s *flakyStore) GetURLSettings(ctx context.Context, communityID string) (*settings.URLSettings, error) {
	if s.fail != nil {
		return nil, s.fail
	}
	return s.MemConfigStore.GetURLSettings(ctx, communityID)
}

func (s *flakyStore) IsUserWhitelisted(ctx context.Context, userID, communityID string) (bool, error) {
	if s.delay != nil {
		time.Sleep(s.delay())
	}
	if s.whitelistErr != nil {
		return false, s.whitelistErr
	}
	return s.MemConfigStore.IsUserWhitelisted(ctx, userID, communityID)
}

func TestResolverTTL(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	store := newFlakyStore()
	f := false
	store.PutSettings("c1", settings.Overrides{SpamEnabled: &f})
	cache := newClockCache(time.Minute)
	r := &Resolver{Store: store, Cache: cache}

	res := r.Settings(ctx, "c1")
	assert.Equal(SourceStore, res.Source)
	assert.NoError(res.Err)
	assert.False(res.Value.SpamEnabled)
	assert.True(res.Value.ProfanityEnabled)

	cached := r.Settings(ctx, "c1")
	assert.Equal(SourceCache, cached.Source)
	assert.Equal(res.Value, cached.Value)

	// stale until expiry
	tr := true
	store.PutSettings("c1", settings.Overrides{SpamEnabled: &tr})
	cache.advance(30 * time.Second)
	res = r.Settings(ctx, "c1")
	assert.Equal(SourceCache, res.Source)
	assert.False(res.Value.SpamEnabled)

	cache.advance(31 * time.Second)
	res = r.Settings(ctx, "c1")
	assert.Equal(SourceStore, res.Source)
	assert.True(res.Value.SpamEnabled)
	assert.Equal(int64(2), store.settingsCalls.Load())

	// purge forces a refresh
	store.PutSettings("c1", settings.Overrides{SpamEnabled: &f})
	assert.NoError(r.Purge(ctx, "c1"))
	res = r.Settings(ctx, "c1")
	assert.Equal(SourceStore, res.Source)
	assert.False(res.Value.SpamEnabled)
}

func TestResolverNotFound(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	store := newFlakyStore()
	r := &Resolver{Store: store, Cache: cachestore.NewMemCacheStore(10, time.Hour)}

	res := r.Settings(ctx, "nobody")
	assert.Equal(SourceDefault, res.Source)
	assert.NoError(res.Err)
	assert.Equal(settings.DefaultFilterSettings(), res.Value)

	// defaults for a missing record are cached like any other value
	res = r.Settings(ctx, "nobody")
	assert.Equal(SourceCache, res.Source)
	assert.Equal(settings.DefaultFilterSettings(), res.Value)
	assert.Equal(int64(1), store.settingsCalls.Load())

	u := r.URLSettings(ctx, "nobody")
	assert.Equal(SourceDefault, u.Source)
	assert.Equal(settings.DefaultURLSettings(), u.Value)

	// the in-memory store has no "not found" for lists; an empty list comes from the store
	w := r.Words(ctx, "nobody")
	assert.Equal(SourceStore, w.Source)
	assert.Equal(emptyWordLists(), w.Value)
}

func TestResolverFailOpen(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	store := newFlakyStore()
	store.fail = errors.New("connection refused")
	r := &Resolver{Store: store, Cache: cachestore.NewMemCacheStore(10, time.Hour)}

	for i := 0; i < 2; i++ {
		res := r.Settings(ctx, "c1")
		assert.Equal(SourceDefault, res.Source)
		assert.ErrorIs(res.Err, store.fail)
		assert.Equal(settings.DefaultFilterSettings(), res.Value)
	}
	// failures are not cached
	assert.Equal(int64(2), store.settingsCalls.Load())

	w := r.Words(ctx, "c1")
	assert.Equal(SourceDefault, w.Source)
	assert.Error(w.Err)
	assert.Equal(emptyWordLists(), w.Value)

	u := r.URLSettings(ctx, "c1")
	assert.Equal(SourceDefault, u.Source)
	assert.Equal(settings.DefaultURLSettings(), u.Value)
}

func TestResolverTimeout(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	store := newFlakyStore()
	store.hang = true
	r := &Resolver{Store: store, Cache: cachestore.NewMemCacheStore(10, time.Hour), StoreTimeout: 20 * time.Millisecond}

	start := time.Now()
	res := r.Settings(ctx, "c1")
	assert.True(time.Since(start) < time.Second)
	assert.Equal(SourceDefault, res.Source)
	assert.ErrorIs(res.Err, context.DeadlineExceeded)
	assert.Equal(settings.DefaultFilterSettings(), res.Value)
}

func TestResolverLists(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	store := newFlakyStore()
	store.AddWord("c1", "noob", configstore.WordBan, "")
	store.AddWord("c1", "slurword", configstore.WordBan, configstore.SeverityCategorySevere)
	store.AddWord("c1", "heck", configstore.WordAllow, "")
	store.AddSpamPattern("c1", "free skins", configstore.PatternBlock, 1)
	store.AddSpamPattern("c1", "official", configstore.PatternAllow, 0)
	r := &Resolver{Store: store, Cache: cachestore.NewMemCacheStore(10, time.Hour)}

	for _, src := range []Source{SourceStore, SourceCache} {
		w := r.Words(ctx, "c1")
		assert.Equal(src, w.Source)
		assert.Equal(WordLists{
			Banned:  []string{"noob", "slurword"},
			Allowed: []string{"heck"},
			Severe:  []string{"slurword"},
		}, w.Value)

		p := r.SpamPatterns(ctx, "c1")
		assert.Equal(src, p.Source)
		assert.Equal(PatternLists{Block: []string{"free skins"}, Allow: []string{"official"}}, p.Value)
	}
}
