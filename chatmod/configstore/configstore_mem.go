package configstore

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/bluesky-social/chatmod/chatmod/settings"

	"github.com/araddon/dateparse"
	"github.com/puzpuzpuz/xsync/v3"
)

// In-process configuration store. Reads are lock-free; writers are serialized and replace slices rather than mutating them, so readers never observe a partial update.
type MemConfigStore struct {
	// overrideable for tests
	Now func() time.Time

	settings  *xsync.MapOf[string, settings.Overrides]
	words     *xsync.MapOf[string, []WordEntry]
	patterns  *xsync.MapOf[string, []SpamPattern]
	urls      *xsync.MapOf[string, settings.URLSettings]
	whitelist *xsync.MapOf[string, WhitelistEntry]

	mu         sync.Mutex
	violations []ViolationRecord
}

var _ ConfigStore = (*MemConfigStore)(nil)

func NewMemConfigStore() *MemConfigStore {
	return &MemConfigStore{
		Now:       time.Now,
		settings:  xsync.NewMapOf[string, settings.Overrides](),
		words:     xsync.NewMapOf[string, []WordEntry](),
		patterns:  xsync.NewMapOf[string, []SpamPattern](),
		urls:      xsync.NewMapOf[string, settings.URLSettings](),
		whitelist: xsync.NewMapOf[string, WhitelistEntry](),
	}
}

func whitelistKey(communityID, userID string) string {
	return communityID + "/" + userID
}

func (s *MemConfigStore) GetSettings(ctx context.Context, communityID string) (*settings.Overrides, error) {
	o, ok := s.settings.Load(communityID)
	if !ok {
		return nil, ErrNotFound
	}
	return &o, nil
}

func (s *MemConfigStore) GetWords(ctx context.Context, communityID string) ([]WordEntry, error) {
	l, _ := s.words.Load(communityID)
	out := make([]WordEntry, len(l))
	copy(out, l)
	return out, nil
}

func (s *MemConfigStore) GetSpamPatterns(ctx context.Context, communityID string) ([]SpamPattern, error) {
	l, _ := s.patterns.Load(communityID)
	out := make([]SpamPattern, len(l))
	copy(out, l)
	return out, nil
}

func (s *MemConfigStore) GetURLSettings(ctx context.Context, communityID string) (*settings.URLSettings, error) {
	u, ok := s.urls.Load(communityID)
	if !ok {
		return nil, ErrNotFound
	}
	return &u, nil
}

func (s *MemConfigStore) IsUserWhitelisted(ctx context.Context, userID, communityID string) (bool, error) {
	w, ok := s.whitelist.Load(whitelistKey(communityID, userID))
	if !ok {
		return false, nil
	}
	return w.ActiveAt(s.Now()), nil
}

func (s *MemConfigStore) LogViolation(ctx context.Context, rec ViolationRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.violations = append(s.violations, rec)
	return nil
}

// Copy of all violation records logged so far.
func (s *MemConfigStore) Violations() []ViolationRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]ViolationRecord, len(s.violations))
	copy(out, s.violations)
	return out
}

func (s *MemConfigStore) PutSettings(communityID string, o settings.Overrides) {
	s.settings.Store(communityID, o)
}

func (s *MemConfigStore) PutURLSettings(communityID string, u settings.URLSettings) {
	s.urls.Store(communityID, u)
}

func (s *MemConfigStore) AddWord(communityID, term string, action WordAction, severityCategory string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	old, _ := s.words.Load(communityID)
	l := make([]WordEntry, len(old), len(old)+1)
	copy(l, old)
	l = append(l, WordEntry{
		CommunityID:      communityID,
		Term:             term,
		Action:           action,
		SeverityCategory: severityCategory,
	})
	s.words.Store(communityID, l)
}

func (s *MemConfigStore) AddSpamPattern(communityID, pattern string, action PatternAction, weight float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	old, _ := s.patterns.Load(communityID)
	l := make([]SpamPattern, len(old), len(old)+1)
	copy(l, old)
	l = append(l, SpamPattern{
		CommunityID:      communityID,
		Pattern:          pattern,
		Action:           action,
		ConfidenceWeight: weight,
	})
	s.patterns.Store(communityID, l)
}

// Whitelists a user in a community. A nil expiresAt never expires.
func (s *MemConfigStore) AddWhitelist(communityID, userID string, expiresAt *time.Time) {
	s.whitelist.Store(whitelistKey(communityID, userID), WhitelistEntry{
		CommunityID: communityID,
		UserID:      userID,
		ExpiresAt:   expiresAt,
	})
}

func (s *MemConfigStore) RemoveWhitelist(communityID, userID string) {
	s.whitelist.Delete(whitelistKey(communityID, userID))
}

type fixtureFile struct {
	Communities map[string]fixtureCommunity `json:"communities"`
}

type fixtureCommunity struct {
	Settings     *settings.Overrides   `json:"settings"`
	URLSettings  *settings.URLSettings `json:"urlSettings"`
	Words        []WordEntry           `json:"words"`
	SpamPatterns []SpamPattern         `json:"spamPatterns"`
	Whitelist    []fixtureWhitelist    `json:"whitelist"`
}

type fixtureWhitelist struct {
	UserID string `json:"userId"`
	// free-form timestamp (RFC 3339, "2026-01-02", "Jan 2 2026 15:04", etc)
	ExpiresAt string `json:"expiresAt"`
}

// Loads community configuration from a JSON fixture file, adding to any existing contents.
func (s *MemConfigStore) LoadFromFileJSON(p string) error {

	f, err := os.Open(p)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	raw, err := io.ReadAll(f)
	if err != nil {
		return err
	}
	return s.LoadFromJSON(raw)
}

func (s *MemConfigStore) LoadFromJSON(raw []byte) error {
	var fixture fixtureFile
	if err := json.Unmarshal(raw, &fixture); err != nil {
		return err
	}

	for cid, c := range fixture.Communities {
		if c.Settings != nil {
			s.PutSettings(cid, *c.Settings)
		}
		if c.URLSettings != nil {
			s.PutURLSettings(cid, *c.URLSettings)
		}
		for _, w := range c.Words {
			s.AddWord(cid, w.Term, w.Action, w.SeverityCategory)
		}
		for _, p := range c.SpamPatterns {
			s.AddSpamPattern(cid, p.Pattern, p.Action, p.ConfidenceWeight)
		}
		for _, w := range c.Whitelist {
			var exp *time.Time
			if w.ExpiresAt != "" {
				ts, err := dateparse.ParseAny(w.ExpiresAt)
				if err != nil {
					return fmt.Errorf("whitelist expiry for %s/%s: %w", cid, w.UserID, err)
				}
				exp = &ts
			}
			s.AddWhitelist(cid, w.UserID, exp)
		}
	}
	return nil
}
