// Read-side interface to the community configuration store, which is owned and mutated by an external administrative service.
//
// The moderation engine only reads word lists, spam patterns, URL policy, settings and whitelists through this interface, and hands back violation records for logging. Implementations here are an in-process store (for tests, fixtures and small deployments) and a SQL store (sqlite or postgres, via GORM).
package configstore

import (
	"context"
	"errors"
	"time"

	"github.com/bluesky-social/chatmod/chatmod/settings"
)

// Returned when a community has no stored record of the requested kind. Callers treat this as "use defaults", not as a failure.
var ErrNotFound = errors.New("configstore: record not found")

type ConfigStore interface {
	GetSettings(ctx context.Context, communityID string) (*settings.Overrides, error)
	GetWords(ctx context.Context, communityID string) ([]WordEntry, error)
	GetSpamPatterns(ctx context.Context, communityID string) ([]SpamPattern, error)
	GetURLSettings(ctx context.Context, communityID string) (*settings.URLSettings, error)
	IsUserWhitelisted(ctx context.Context, userID, communityID string) (bool, error)
	LogViolation(ctx context.Context, rec ViolationRecord) error
}

type WordAction string

const (
	WordBan   WordAction = "ban"
	WordAllow WordAction = "allow"
)

// Severity category marking a community term as part of the slur category
const SeverityCategorySevere = "severe"

type WordEntry struct {
	CommunityID      string     `json:"communityId"`
	Term             string     `json:"term"`
	Action           WordAction `json:"action"`
	SeverityCategory string     `json:"severityCategory,omitempty"`
}

type PatternAction string

const (
	PatternBlock PatternAction = "block"
	PatternAllow PatternAction = "allow"
)

type SpamPattern struct {
	CommunityID      string        `json:"communityId"`
	Pattern          string        `json:"pattern"`
	Action           PatternAction `json:"action"`
	ConfidenceWeight float64       `json:"confidenceWeight,omitempty"`
}

type WhitelistEntry struct {
	CommunityID string     `json:"communityId"`
	UserID      string     `json:"userId"`
	ExpiresAt   *time.Time `json:"expiresAt,omitempty"`
}

// Active at the given time: no expiry, or expiry in the future.
func (w *WhitelistEntry) ActiveAt(now time.Time) bool {
	return w.ExpiresAt == nil || now.Before(*w.ExpiresAt)
}

// Flattened verdict plus request metadata, as handed to LogViolation.
type ViolationRecord struct {
	CommunityID string    `json:"communityId"`
	UserID      string    `json:"userId"`
	Platform    string    `json:"platform"`
	Message     string    `json:"message"`
	FilterType  string    `json:"filterType"`
	Severity    string    `json:"severity"`
	Action      string    `json:"action"`
	Violations  []string  `json:"violations"`
	BlockedURLs []string  `json:"blockedUrls"`
	SpamScore   int       `json:"spamScore"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Splits word entries in to banned, allowed, and community-severe term lists. Entries with an unknown action are ignored.
func SplitWords(entries []WordEntry) (banned, allowed, severe []string) {
	banned, allowed, severe = []string{}, []string{}, []string{}
	for _, e := range entries {
		switch e.Action {
		case WordBan:
			banned = append(banned, e.Term)
			if e.SeverityCategory == SeverityCategorySevere {
				severe = append(severe, e.Term)
			}
		case WordAllow:
			allowed = append(allowed, e.Term)
		}
	}
	return banned, allowed, severe
}

// Splits spam patterns in to blocking patterns and whitelisted patterns.
func SplitPatterns(entries []SpamPattern) (block, allow []string) {
	block, allow = []string{}, []string{}
	for _, e := range entries {
		switch e.Action {
		case PatternBlock:
			block = append(block, e.Pattern)
		case PatternAllow:
			allow = append(allow, e.Pattern)
		}
	}
	return block, allow
}
