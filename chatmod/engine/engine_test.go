package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"testing"
	"time"

	"github.com/bluesky-social/chatmod/chatmod/cachestore"
	"github.com/bluesky-social/chatmod/chatmod/keyword"
	"github.com/bluesky-social/chatmod/chatmod/settings"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
)

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	var m = &dto.Metric{}
	if err := c.Write(m); err != nil {
		t.Fatal(err)
	}
	return m.GetCounter().GetValue()
}

func TestCheckMessageDefaults(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	eng, _ := EngineTestFixture()

	v, err := eng.CheckMessage(ctx, Request{Message: "you are a b1tch", CommunityID: "default", UserID: "u1", Platform: "discord"})
	assert.NoError(err)
	assert.False(v.Clean)
	assert.Equal(FilterProfanity, v.FilterType)
	found := false
	for _, term := range v.Violations {
		if keyword.NormalizeTokens(term) == "bitch" {
			found = true
		}
	}
	assert.True(found)
	assert.Equal(settings.SeverityModerate, v.Severity)
	assert.Equal(settings.ActionWarn, v.Action)

	v, err = eng.CheckMessage(ctx, Request{Message: "good luck have fun", CommunityID: "default", UserID: "u1"})
	assert.NoError(err)
	assert.True(v.Clean)
	assert.Equal(settings.ActionPass, v.Action)

	v, err = eng.CheckMessage(ctx, Request{Message: "shut up f4gg0t", CommunityID: "default", UserID: "u1"})
	assert.NoError(err)
	assert.Equal(settings.SeveritySevere, v.Severity)
	assert.Equal(settings.ActionBlock, v.Action)
}

func TestCheckMessageCommunities(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	eng, _ := EngineTestFixture()

	// community ban
	v, err := eng.CheckMessage(ctx, Request{Message: "what a noob", CommunityID: "gaming", UserID: "u2"})
	assert.NoError(err)
	assert.Equal([]string{"noob"}, v.Violations)

	// community allow beats the default list
	v, err = eng.CheckMessage(ctx, Request{Message: "you lucky bastard", CommunityID: "gaming", UserID: "u2"})
	assert.NoError(err)
	assert.True(v.Clean)
	v, err = eng.CheckMessage(ctx, Request{Message: "you lucky bastard", CommunityID: "default", UserID: "u2"})
	assert.NoError(err)
	assert.False(v.Clean)

	// community spam pattern
	v, err = eng.CheckMessage(ctx, Request{Message: "FREE SKINS at bit.ly/x", CommunityID: "gaming", UserID: "u2"})
	assert.NoError(err)
	assert.Equal(FilterSpam, v.FilterType)
	assert.Equal(35, v.SpamScore)
	assert.Equal([]string{"free skins"}, v.Violations)

	// url blocking enabled for this community
	v, err = eng.CheckMessage(ctx, Request{Message: "check this out http://bit.ly/abc", CommunityID: "gaming", UserID: "u2"})
	assert.NoError(err)
	assert.False(v.Clean)
	assert.Equal(FilterURL, v.FilterType)
	assert.Contains(v.BlockedURLs, "http://bit.ly/abc")

	// but not by default
	v, err = eng.CheckMessage(ctx, Request{Message: "check this out http://bit.ly/abc", CommunityID: "default", UserID: "u2"})
	assert.NoError(err)
	assert.True(v.Clean)
	assert.Equal([]string{}, v.BlockedURLs)

	// custom severity map
	v, err = eng.CheckMessage(ctx, Request{Message: "what the fuck", CommunityID: "strict", UserID: "u2"})
	assert.NoError(err)
	assert.Equal(settings.ActionBlock, v.Action)
}

func TestWhitelistSupremacy(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	eng, _ := EngineTestFixture()

	faker := gofakeit.New(99)
	msgs := []string{
		"you are a b1tch",
		"shut up f4gg0t",
		"BUY FOLLOWERS and free followers at http://bit.ly/abc http://1.2.3.4/x",
		"noob noob noob noob",
	}
	for i := 0; i < 20; i++ {
		msgs = append(msgs, faker.Sentence(6)+" fuck "+faker.URL())
	}

	for _, msg := range msgs {
		v, err := eng.CheckMessage(ctx, Request{Message: msg, CommunityID: "gaming", UserID: "mod1"})
		assert.NoError(err)
		assert.True(v.Clean, msg)
		assert.Equal(FilterNone, v.FilterType, msg)
		assert.Equal(settings.ActionPass, v.Action, msg)
		assert.Empty(v.Violations, msg)
	}

	// whitelisting is per-community
	v, err := eng.CheckMessage(ctx, Request{Message: msgs[0], CommunityID: "default", UserID: "mod1"})
	assert.NoError(err)
	assert.False(v.Clean)
}

func TestWhitelistExpiry(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	eng, store := EngineTestFixture()

	now := time.Now()
	past := now.Add(-time.Hour)
	store.AddWhitelist("default", "former", &past)
	v, err := eng.CheckMessage(ctx, Request{Message: "what the fuck", CommunityID: "default", UserID: "former"})
	assert.NoError(err)
	assert.False(v.Clean)

	future := now.Add(time.Hour)
	store.AddWhitelist("default", "current", &future)
	v, err = eng.CheckMessage(ctx, Request{Message: "what the fuck", CommunityID: "default", UserID: "current"})
	assert.NoError(err)
	assert.True(v.Clean)
}

func TestCheckMessageInvalid(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	eng, _ := EngineTestFixture()

	v, err := eng.CheckMessage(ctx, Request{Message: "bad \xff bytes", CommunityID: "default", UserID: "u1"})
	assert.Nil(v)
	var evalErr *EvaluationError
	assert.True(errors.As(err, &evalErr))
	assert.Equal("default", evalErr.CommunityID)
	assert.ErrorIs(err, ErrInvalidMessage)
}

func TestCheckMessagePanic(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	store := newFlakyStore()
	store.panicCommunity = "boom"
	eng := NewEngine(store, EngineConfig{Cache: cachestore.NewMemCacheStore(10, time.Hour)})

	v, err := eng.CheckMessage(ctx, Request{Message: "hello", CommunityID: "boom", UserID: "u1"})
	assert.Nil(v)
	var evalErr *EvaluationError
	assert.True(errors.As(err, &evalErr))
	assert.Contains(err.Error(), "settings store exploded")
}

func TestStoreFailuresFailOpen(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	store := newFlakyStore()
	store.fail = errors.New("database is down")
	store.whitelistErr = errors.New("database is down")
	eng := NewEngine(store, EngineConfig{Cache: cachestore.NewMemCacheStore(10, time.Hour)})

	v, err := eng.CheckMessage(ctx, Request{Message: "you are a b1tch", CommunityID: "c1", UserID: "u1"})
	assert.NoError(err)
	assert.False(v.Clean)
	assert.Equal(settings.ActionWarn, v.Action)
}

func TestBatchIsolation(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	store := newFlakyStore()
	store.panicCommunity = "boom"
	eng := NewEngine(store, EngineConfig{Cache: cachestore.NewMemCacheStore(10, time.Hour), Workers: 3})

	reqs := []Request{
		{Message: "what the fuck", CommunityID: "c1", UserID: "u1"},
		{Message: "innocent message", CommunityID: "boom", UserID: "u2"},
		{Message: "BUY FOLLOWERS at bit.ly/xyz now", CommunityID: "c1", UserID: "u3"},
	}
	out := eng.CheckMessagesBatch(ctx, reqs)
	assert.Equal(3, len(out))

	assert.True(out[1].Degraded())
	assert.True(out[1].Clean)
	assert.Equal(settings.ActionPass, out[1].Action)
	assert.Equal("innocent message", out[1].Original)
	assert.Contains(out[1].Error, "settings store exploded")

	for _, i := range []int{0, 2} {
		single, err := eng.CheckMessage(ctx, reqs[i])
		assert.NoError(err)
		assert.Equal(*single, out[i])
		assert.False(out[i].Degraded())
	}

	// invalid input is isolated the same way
	out = eng.CheckMessagesBatch(ctx, []Request{
		{Message: "fine", CommunityID: "c1"},
		{Message: "\xfe\xff", CommunityID: "c1"},
	})
	assert.Equal(2, len(out))
	assert.False(out[0].Degraded())
	assert.True(out[1].Degraded())
	assert.Contains(out[1].Error, ErrInvalidMessage.Error())

	assert.Equal([]Verdict{}, eng.CheckMessagesBatch(ctx, nil))
}

func TestBatchOrder(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	store := newFlakyStore()
	store.delay = func() time.Duration {
		return time.Duration(rand.Intn(3000)) * time.Microsecond
	}
	eng := NewEngine(store, EngineConfig{Cache: cachestore.NewMemCacheStore(10, time.Hour), Workers: 8})

	faker := gofakeit.New(3)
	for round := 0; round < 5; round++ {
		reqs := make([]Request, MaxBatchSize)
		for i := range reqs {
			reqs[i] = Request{
				Message:     fmt.Sprintf("%d %s", i, faker.Sentence(5)),
				CommunityID: "c1",
				UserID:      faker.Username(),
			}
			if i%7 == 0 {
				reqs[i].Message += " fuck"
			}
		}
		out := eng.CheckMessagesBatch(ctx, reqs)
		assert.Equal(len(reqs), len(out))
		for i := range reqs {
			assert.Equal(reqs[i].Message, out[i].Original)
			if i%7 == 0 {
				assert.Contains(out[i].Violations, "fuck")
			}
		}
	}
}

func TestValidateBatch(t *testing.T) {
	assert := assert.New(t)

	assert.NoError(ValidateBatch(make([]Request, MaxBatchSize)))
	assert.ErrorIs(ValidateBatch(make([]Request, MaxBatchSize+1)), ErrBatchTooLarge)
}

func TestViolationLogging(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	eng, store := EngineTestFixture()
	now := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	eng.Now = func() time.Time { return now }

	_, err := eng.CheckMessage(ctx, Request{Message: "what the fuck", CommunityID: "default", UserID: "u1", Platform: "twitch"})
	assert.NoError(err)
	_, err = eng.CheckMessage(ctx, Request{Message: "all good here", CommunityID: "default", UserID: "u1", Platform: "twitch"})
	assert.NoError(err)
	eng.Violations.Flush()

	recs := store.Violations()
	if assert.Equal(1, len(recs)) {
		rec := recs[0]
		assert.Equal("default", rec.CommunityID)
		assert.Equal("u1", rec.UserID)
		assert.Equal("twitch", rec.Platform)
		assert.Equal("what the fuck", rec.Message)
		assert.Equal("profanity", rec.FilterType)
		assert.Equal("censor", rec.Action)
		assert.Equal([]string{"fuck"}, rec.Violations)
		assert.Equal(now, rec.CreatedAt)
	}

	// community opted out of logging
	f := false
	store.PutSettings("quiet", settings.Overrides{LogViolations: &f})
	_, err = eng.CheckMessage(ctx, Request{Message: "what the fuck", CommunityID: "quiet", UserID: "u1"})
	assert.NoError(err)
	eng.Violations.Flush()
	assert.Equal(1, len(store.Violations()))
}

func TestViolationLogRateLimit(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	store := newFlakyStore()
	eng := NewEngine(store, EngineConfig{
		Logger:            slog.Default(),
		Cache:             cachestore.NewMemCacheStore(10, time.Hour),
		ViolationLogRate:  0.001,
		ViolationLogBurst: 2,
	})
	dropped := counterValue(t, violationLogWrites.WithLabelValues("dropped"))
	for i := 0; i < 5; i++ {
		v, err := eng.CheckMessage(ctx, Request{Message: "what the fuck", CommunityID: "c1", UserID: "u1"})
		assert.NoError(err)
		// dropped writes never change the verdict
		assert.False(v.Clean)
	}
	eng.Violations.Flush()
	assert.Equal(2, len(store.Violations()))
	assert.Equal(dropped+3, counterValue(t, violationLogWrites.WithLabelValues("dropped")))
}
