package engine

import (
	"log/slog"
	"time"

	"github.com/bluesky-social/chatmod/chatmod/cachestore"
	"github.com/bluesky-social/chatmod/chatmod/configstore"
	"github.com/bluesky-social/chatmod/chatmod/settings"
)

// Engine over an in-memory configuration store, with a few communities set up:
//
//   - "default": no stored configuration at all
//   - "gaming": URL blocking on, a community ban ("noob") and allow ("bastard"), and a whitelisted moderator ("mod1")
//   - "strict": moderate violations are blocked
func EngineTestFixture() (*Engine, *configstore.MemConfigStore) {
	store := configstore.NewMemConfigStore()

	tr := true
	store.PutSettings("gaming", settings.Overrides{URLBlockingEnabled: &tr})
	store.PutURLSettings("gaming", settings.DefaultURLSettings())
	store.AddWord("gaming", "noob", configstore.WordBan, "")
	store.AddWord("gaming", "bastard", configstore.WordAllow, "")
	store.AddSpamPattern("gaming", "free skins", configstore.PatternBlock, 1.0)
	store.AddWhitelist("gaming", "mod1", nil)

	store.PutSettings("strict", settings.Overrides{
		SeverityAction: map[settings.Severity]settings.Action{
			settings.SeverityModerate: settings.ActionBlock,
		},
	})

	eng := NewEngine(store, EngineConfig{
		Logger:  slog.Default(),
		Cache:   cachestore.NewMemCacheStore(100, time.Hour),
		Workers: 4,
	})
	return eng, store
}
