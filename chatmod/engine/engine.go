package engine

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"time"
	"unicode/utf8"

	"github.com/bluesky-social/chatmod/chatmod/cachestore"
	"github.com/bluesky-social/chatmod/chatmod/configstore"
	"github.com/bluesky-social/chatmod/chatmod/settings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"
)

var tracer = otel.Tracer("chatmod")

// Evaluates chat messages against per-community moderation configuration.
//
// Construct with NewEngine. Safe for concurrent use.
type Engine struct {
	Logger     *slog.Logger
	Store      configstore.ConfigStore
	Resolver   *Resolver
	Violations *ViolationLogger
	// size of the worker pool for batch evaluation
	Workers int
	// overrideable for tests
	Now func() time.Time
}

type EngineConfig struct {
	Logger *slog.Logger
	// defaults to an in-process cache with a one minute TTL
	Cache        cachestore.CacheStore
	StoreTimeout time.Duration
	// defaults to GOMAXPROCS
	Workers int
	// violation log writes per second (zero for unlimited), and burst size
	ViolationLogRate  float64
	ViolationLogBurst int
}

func NewEngine(store configstore.ConfigStore, config EngineConfig) *Engine {
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	cache := config.Cache
	if cache == nil {
		cache = cachestore.NewMemCacheStore(cachestore.DefaultMemCacheSize, cachestore.DefaultCacheTTL)
	}
	workers := config.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	return &Engine{
		Logger: logger,
		Store:  store,
		Resolver: &Resolver{
			Store:        store,
			Cache:        cache,
			Logger:       logger,
			StoreTimeout: config.StoreTimeout,
		},
		Violations: NewViolationLogger(store, logger, config.ViolationLogRate, config.ViolationLogBurst),
		Workers:    workers,
		Now:        time.Now,
	}
}

// Evaluates a single message.
//
// Configuration store failures never cause an error here (defaults are used instead). An error is only returned when the message itself could not be evaluated, as an *EvaluationError.
func (eng *Engine) CheckMessage(ctx context.Context, req Request) (v *Verdict, err error) {
	ctx, span := tracer.Start(ctx, "CheckMessage")
	span.SetAttributes(
		attribute.String("community", req.CommunityID),
		attribute.String("platform", req.Platform),
	)
	defer span.End()

	start := time.Now()
	logger := eng.Logger.With("community", req.CommunityID, "user", req.UserID, "platform", req.Platform)

	// similar to an HTTP server, we want to recover any panics from evaluation
	defer func() {
		if r := recover(); r != nil {
			logger.Error("message evaluation exception", "err", r)
			v = nil
			err = &EvaluationError{CommunityID: req.CommunityID, UserID: req.UserID, Err: fmt.Errorf("panic: %v", r)}
		}
		if err != nil {
			evaluationErrors.Inc()
			span.SetStatus(codes.Error, err.Error())
			return
		}
		evaluationDuration.Observe(time.Since(start).Seconds())
		messagesChecked.WithLabelValues(string(v.FilterType), string(v.Action)).Inc()
		span.SetAttributes(
			attribute.String("filter_type", string(v.FilterType)),
			attribute.String("action", string(v.Action)),
		)
	}()

	if !utf8.ValidString(req.Message) {
		return nil, &EvaluationError{CommunityID: req.CommunityID, UserID: req.UserID, Err: ErrInvalidMessage}
	}

	if eng.isWhitelisted(ctx, logger, req) {
		logger.Debug("user whitelisted, skipping checks")
		clean := CleanVerdict(req.Message)
		return &clean, nil
	}

	fs := eng.Resolver.Settings(ctx, req.CommunityID)
	words := Resolution[WordLists]{Value: emptyWordLists()}
	patterns := Resolution[PatternLists]{Value: emptyPatternLists()}
	urls := Resolution[settings.URLSettings]{Value: settings.DefaultURLSettings()}
	if fs.Value.ProfanityEnabled {
		words = eng.Resolver.Words(ctx, req.CommunityID)
	}
	if fs.Value.SpamEnabled {
		patterns = eng.Resolver.SpamPatterns(ctx, req.CommunityID)
	}
	if fs.Value.URLBlockingEnabled {
		urls = eng.Resolver.URLSettings(ctx, req.CommunityID)
	}

	verdict := Combine(req.Message, EffectiveConfig(fs.Value, words.Value, patterns.Value, urls.Value))
	if !verdict.Clean {
		logger.Info("message flagged", "filter_type", verdict.FilterType, "severity", verdict.Severity, "action", verdict.Action)
		if fs.Value.LogViolations {
			eng.Violations.Log(violationRecord(req, &verdict, eng.Now()))
		}
	}
	return &verdict, nil
}

// Evaluates up to MaxBatchSize messages on a bounded worker pool. Results are in request order, one per request.
//
// A failure evaluating one message does not affect the others: that element is returned as a degraded clean verdict with Error set. Every element runs to completion.
func (eng *Engine) CheckMessagesBatch(ctx context.Context, reqs []Request) []Verdict {
	ctx, span := tracer.Start(ctx, "CheckMessagesBatch")
	span.SetAttributes(attribute.Int("size", len(reqs)))
	defer span.End()

	batchSize.Observe(float64(len(reqs)))
	out := make([]Verdict, len(reqs))

	var g errgroup.Group
	g.SetLimit(eng.workers())
	for i, req := range reqs {
		i, req := i, req
		g.Go(func() error {
			v, err := eng.CheckMessage(ctx, req)
			if err != nil {
				out[i] = DegradedVerdict(req.Message, err)
				return nil
			}
			out[i] = *v
			return nil
		})
	}
	_ = g.Wait()
	return out
}

func (eng *Engine) workers() int {
	if eng.Workers > 0 {
		return eng.Workers
	}
	return runtime.GOMAXPROCS(0)
}

// whitelist lookup failures are treated as "not whitelisted", so the message is still checked
func (eng *Engine) isWhitelisted(ctx context.Context, logger *slog.Logger, req Request) bool {
	if req.UserID == "" {
		return false
	}
	timeout := eng.Resolver.StoreTimeout
	if timeout <= 0 {
		timeout = DefaultStoreTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	ok, err := eng.Store.IsUserWhitelisted(ctx, req.UserID, req.CommunityID)
	if err != nil {
		logger.Warn("whitelist lookup failed", "err", err)
		whitelistErrors.Inc()
		return false
	}
	return ok
}

// Drops cached configuration for a community, eg after the administrative service changes it.
func (eng *Engine) PurgeCommunityCaches(ctx context.Context, communityID string) {
	if err := eng.Resolver.Purge(ctx, communityID); err != nil {
		eng.Logger.Error("failed to purge community caches", "community", communityID, "err", err)
	}
}
