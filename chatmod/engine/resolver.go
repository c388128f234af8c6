package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/bluesky-social/chatmod/chatmod/cachestore"
	"github.com/bluesky-social/chatmod/chatmod/configstore"
	"github.com/bluesky-social/chatmod/chatmod/settings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const (
	cacheSettings     = "settings"
	cacheWords        = "words"
	cacheSpamPatterns = "spam"
	cacheURLSettings  = "urls"

	DefaultStoreTimeout = 2 * time.Second
)

type Source string

const (
	SourceCache   Source = "cache"
	SourceStore   Source = "store"
	SourceDefault Source = "default"
)

// A resolved piece of community configuration, and where it came from.
//
// When Source is SourceDefault, a nil Err means the community simply has no stored record; a non-nil Err means the store failed, and the caller may want to retry upstream. Either way Value is usable.
type Resolution[T any] struct {
	Value  T
	Source Source
	Err    error
}

// Community word lists as stored, before merging with built-in defaults.
type WordLists struct {
	Banned  []string `json:"banned"`
	Allowed []string `json:"allowed"`
	Severe  []string `json:"severe"`
}

// Community spam patterns as stored, before merging with built-in defaults.
type PatternLists struct {
	Block []string `json:"block"`
	Allow []string `json:"allow"`
}

// Resolves per-community configuration through a TTL cache in front of the configuration store.
//
// Resolution never fails: on any store problem, built-in defaults are returned (fail-open). Cache entries are JSON, and expiry and size bounds are properties of the cache store. Concurrent misses for the same community each refresh from the store; the last write wins.
type Resolver struct {
	Store  configstore.ConfigStore
	Cache  cachestore.CacheStore
	Logger *slog.Logger
	// upper bound on a single config store read
	StoreTimeout time.Duration
}

func (r *Resolver) Settings(ctx context.Context, communityID string) Resolution[settings.FilterSettings] {
	return resolve(ctx, r, cacheSettings, communityID, func(ctx context.Context) (settings.FilterSettings, error) {
		o, err := r.Store.GetSettings(ctx, communityID)
		if err != nil {
			return settings.FilterSettings{}, err
		}
		return settings.Merge(settings.DefaultFilterSettings(), o), nil
	}, settings.DefaultFilterSettings)
}

func (r *Resolver) Words(ctx context.Context, communityID string) Resolution[WordLists] {
	return resolve(ctx, r, cacheWords, communityID, func(ctx context.Context) (WordLists, error) {
		entries, err := r.Store.GetWords(ctx, communityID)
		if err != nil {
			return WordLists{}, err
		}
		banned, allowed, severe := configstore.SplitWords(entries)
		return WordLists{Banned: banned, Allowed: allowed, Severe: severe}, nil
	}, emptyWordLists)
}

func (r *Resolver) SpamPatterns(ctx context.Context, communityID string) Resolution[PatternLists] {
	return resolve(ctx, r, cacheSpamPatterns, communityID, func(ctx context.Context) (PatternLists, error) {
		entries, err := r.Store.GetSpamPatterns(ctx, communityID)
		if err != nil {
			return PatternLists{}, err
		}
		block, allow := configstore.SplitPatterns(entries)
		return PatternLists{Block: block, Allow: allow}, nil
	}, emptyPatternLists)
}

func (r *Resolver) URLSettings(ctx context.Context, communityID string) Resolution[settings.URLSettings] {
	return resolve(ctx, r, cacheURLSettings, communityID, func(ctx context.Context) (settings.URLSettings, error) {
		u, err := r.Store.GetURLSettings(ctx, communityID)
		if err != nil {
			return settings.URLSettings{}, err
		}
		return settings.NormalizeURLSettings(*u), nil
	}, settings.DefaultURLSettings)
}

// Drops every cached entry for a community, so the next lookup reads from the store.
func (r *Resolver) Purge(ctx context.Context, communityID string) error {
	var errs []error
	for _, name := range []string{cacheSettings, cacheWords, cacheSpamPatterns, cacheURLSettings} {
		if err := r.Cache.Purge(ctx, name, communityID); err != nil {
			errs = append(errs, fmt.Errorf("purging %s cache: %w", name, err))
		}
	}
	return errors.Join(errs...)
}

func emptyWordLists() WordLists {
	return WordLists{Banned: []string{}, Allowed: []string{}, Severe: []string{}}
}

func emptyPatternLists() PatternLists {
	return PatternLists{Block: []string{}, Allow: []string{}}
}

func (r *Resolver) logger() *slog.Logger {
	if r.Logger != nil {
		return r.Logger
	}
	return slog.Default()
}

func resolve[T any](ctx context.Context, r *Resolver, name, communityID string, fetch func(context.Context) (T, error), fallback func() T) Resolution[T] {
	logger := r.logger().With("community", communityID, "kind", name)

	existing, err := r.Cache.Get(ctx, name, communityID)
	if err != nil {
		logger.Warn("config cache read failed", "err", err)
	} else if existing != "" {
		var val T
		if err := json.Unmarshal([]byte(existing), &val); err != nil {
			logger.Warn("parsing cached config", "err", err)
		} else {
			configResolutions.WithLabelValues(name, string(SourceCache)).Inc()
			return Resolution[T]{Value: val, Source: SourceCache}
		}
	}

	timeout := r.StoreTimeout
	if timeout <= 0 {
		timeout = DefaultStoreTimeout
	}
	fetchCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	res := Resolution[T]{Source: SourceStore}
	res.Value, err = fetch(fetchCtx)
	if errors.Is(err, configstore.ErrNotFound) {
		// nothing stored; the defaults are cached like any other value
		res = Resolution[T]{Value: fallback(), Source: SourceDefault}
	} else if err != nil {
		logger.Warn("config store read failed, using defaults", "err", err)
		trace.SpanFromContext(ctx).AddEvent("config defaulted", trace.WithAttributes(
			attribute.String("kind", name),
			attribute.String("err", err.Error()),
		))
		configResolutions.WithLabelValues(name, string(SourceDefault)).Inc()
		return Resolution[T]{Value: fallback(), Source: SourceDefault, Err: err}
	}
	configResolutions.WithLabelValues(name, string(res.Source)).Inc()

	b, err := json.Marshal(res.Value)
	if err != nil {
		logger.Error("serializing config for cache", "err", err)
		return res
	}
	if err := r.Cache.Set(ctx, name, communityID, string(b)); err != nil {
		logger.Warn("config cache write failed", "err", err)
	}
	return res
}
