// Strongly-typed per-community moderation configuration.
//
// A community's effective configuration is always built by the pure function Merge, overlaying whatever the configuration store holds (Overrides) on top of hard-coded defaults. There is never a nil or partially-populated settings value.
package settings

import (
	"encoding/json"
)

type Severity string

const (
	SeverityClean    Severity = "clean"
	SeverityMild     Severity = "mild"
	SeverityModerate Severity = "moderate"
	SeverityHigh     Severity = "high"
	SeveritySevere   Severity = "severe"
)

var severityRank = map[Severity]int{
	SeverityClean:    0,
	SeverityMild:     1,
	SeverityModerate: 2,
	SeverityHigh:     3,
	SeveritySevere:   4,
}

// Ordering on the severity scale; unknown values rank with "clean".
func (s Severity) Rank() int {
	return severityRank[s]
}

func (s Severity) Valid() bool {
	_, ok := severityRank[s]
	return ok
}

type Action string

const (
	ActionPass   Action = "pass"
	ActionWarn   Action = "warn"
	ActionCensor Action = "censor"
	ActionBlock  Action = "block"
)

func (a Action) Valid() bool {
	switch a {
	case ActionPass, ActionWarn, ActionCensor, ActionBlock:
		return true
	}
	return false
}

const DefaultSpamThreshold = 30

type FilterSettings struct {
	ProfanityEnabled       bool                `json:"profanityEnabled"`
	SpamEnabled            bool                `json:"spamEnabled"`
	URLBlockingEnabled     bool                `json:"urlBlockingEnabled"`
	UseDefaultProfanity    bool                `json:"useDefaultProfanity"`
	UseDefaultSpamPatterns bool                `json:"useDefaultSpamPatterns"`
	SeverityAction         map[Severity]Action `json:"severityAction"`
	// opaque to the engine; passed through for downstream strike handling
	StrikePolicy json.RawMessage `json:"strikePolicy,omitempty"`
	AutoTimeout  bool            `json:"autoTimeout"`
	// seconds
	TimeoutDuration int  `json:"timeoutDuration"`
	LogViolations   bool `json:"logViolations"`
	// minimum spam score for a message to be considered spam
	SpamThreshold int `json:"spamThreshold"`
}

// Looks up the configured action for a (non-clean) severity, falling back to "warn" when unmapped.
func (fs *FilterSettings) ActionFor(sev Severity) Action {
	if a, ok := fs.SeverityAction[sev]; ok && a.Valid() {
		return a
	}
	return ActionWarn
}

type URLSettings struct {
	AllowAllURLs      bool     `json:"allowAllUrls"`
	RequireHTTPS      bool     `json:"requireHttps"`
	BlockIPAddresses  bool     `json:"blockIpAddresses"`
	BlockShorteners   bool     `json:"blockShorteners"`
	AllowedDomains    []string `json:"allowedDomains"`
	BlockedDomains    []string `json:"blockedDomains"`
	TrustedShorteners []string `json:"trustedShorteners"`
}

// Stored per-community record. Every field is optional; nil means "use the default".
type Overrides struct {
	ProfanityEnabled       *bool               `json:"profanityEnabled,omitempty"`
	SpamEnabled            *bool               `json:"spamEnabled,omitempty"`
	URLBlockingEnabled     *bool               `json:"urlBlockingEnabled,omitempty"`
	UseDefaultProfanity    *bool               `json:"useDefaultProfanity,omitempty"`
	UseDefaultSpamPatterns *bool               `json:"useDefaultSpamPatterns,omitempty"`
	SeverityAction         map[Severity]Action `json:"severityAction,omitempty"`
	StrikePolicy           json.RawMessage     `json:"strikePolicy,omitempty"`
	AutoTimeout            *bool               `json:"autoTimeout,omitempty"`
	TimeoutDuration        *int                `json:"timeoutDuration,omitempty"`
	LogViolations          *bool               `json:"logViolations,omitempty"`
	SpamThreshold          *int                `json:"spamThreshold,omitempty"`
}
