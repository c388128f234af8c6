package engine

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/bluesky-social/chatmod/chatmod/configstore"

	"golang.org/x/time/rate"
)

// Fire-and-forget writer of violation records to the configuration store.
//
// Writes happen in the background and never affect the verdict they describe. When writes arrive faster than the configured rate, the excess are dropped (and counted) instead of queueing.
type ViolationLogger struct {
	Store   configstore.ConfigStore
	Logger  *slog.Logger
	Limiter *rate.Limiter
	// upper bound on a single store write
	Timeout time.Duration

	wg sync.WaitGroup
}

func NewViolationLogger(store configstore.ConfigStore, logger *slog.Logger, perSecond float64, burst int) *ViolationLogger {
	limit := rate.Limit(perSecond)
	if perSecond <= 0 {
		limit = rate.Inf
	}
	if burst < 1 {
		burst = 1
	}
	return &ViolationLogger{
		Store:   store,
		Logger:  logger,
		Limiter: rate.NewLimiter(limit, burst),
		Timeout: 5 * time.Second,
	}
}

func (vl *ViolationLogger) Log(rec configstore.ViolationRecord) {
	if vl.Limiter != nil && !vl.Limiter.Allow() {
		violationLogWrites.WithLabelValues("dropped").Inc()
		return
	}
	vl.wg.Add(1)
	go func() {
		defer vl.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				vl.logger().Error("violation log exception", "err", r, "community", rec.CommunityID)
				violationLogWrites.WithLabelValues("error").Inc()
			}
		}()

		ctx, cancel := context.WithTimeout(context.Background(), vl.Timeout)
		defer cancel()
		if err := vl.Store.LogViolation(ctx, rec); err != nil {
			vl.logger().Warn("failed to log violation", "err", err, "community", rec.CommunityID, "user", rec.UserID)
			violationLogWrites.WithLabelValues("error").Inc()
			return
		}
		violationLogWrites.WithLabelValues("ok").Inc()
	}()
}

// Waits for all in-flight writes to finish.
func (vl *ViolationLogger) Flush() {
	vl.wg.Wait()
}

func (vl *ViolationLogger) logger() *slog.Logger {
	if vl.Logger != nil {
		return vl.Logger
	}
	return slog.Default()
}

func violationRecord(req Request, v *Verdict, now time.Time) configstore.ViolationRecord {
	return configstore.ViolationRecord{
		CommunityID: req.CommunityID,
		UserID:      req.UserID,
		Platform:    req.Platform,
		Message:     req.Message,
		FilterType:  string(v.FilterType),
		Severity:    string(v.Severity),
		Action:      string(v.Action),
		Violations:  append([]string{}, v.Violations...),
		BlockedURLs: append([]string{}, v.BlockedURLs...),
		SpamScore:   v.SpamScore,
		CreatedAt:   now,
	}
}
