package engine

import (
	"github.com/bluesky-social/chatmod/chatmod/settings"
)

type FilterType string

const (
	FilterNone      FilterType = "none"
	FilterProfanity FilterType = "profanity"
	FilterSpam      FilterType = "spam"
	FilterURL       FilterType = "url"
	FilterCombined  FilterType = "combined"
)

// One message to evaluate, with the context it was sent in.
type Request struct {
	Message     string `json:"message"`
	CommunityID string `json:"communityId"`
	UserID      string `json:"userId"`
	Platform    string `json:"platform"`
}

// Outcome of evaluating one message. Field names and JSON encoding are part of the public wire format.
type Verdict struct {
	Original    string            `json:"original"`
	Clean       bool              `json:"clean"`
	FilterType  FilterType        `json:"filterType"`
	Violations  []string          `json:"violations"`
	Censored    *string           `json:"censored,omitempty"`
	SpamScore   int               `json:"spamScore"`
	BlockedURLs []string          `json:"blockedUrls"`
	Severity    settings.Severity `json:"severity"`
	Action      settings.Action   `json:"action"`
	// only set on degraded batch results, when evaluation of this message failed
	Error string `json:"error,omitempty"`
}

func CleanVerdict(message string) Verdict {
	return Verdict{
		Original:    message,
		Clean:       true,
		FilterType:  FilterNone,
		Violations:  []string{},
		BlockedURLs: []string{},
		Severity:    settings.SeverityClean,
		Action:      settings.ActionPass,
	}
}

// Result for a message whose evaluation failed inside a batch: passed through as clean, with the failure noted.
func DegradedVerdict(message string, err error) Verdict {
	v := CleanVerdict(message)
	if err != nil {
		v.Error = err.Error()
	} else {
		v.Error = "evaluation failed"
	}
	return v
}

func (v *Verdict) Degraded() bool {
	return v.Error != ""
}
