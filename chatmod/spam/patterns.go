package spam

import (
	"github.com/bluesky-social/chatmod/chatmod/keyword"
)

// Built-in spam phrases, used when a community has UseDefaultSpamPatterns set. Matched in collapse-normalized form, so spacing and punctuation tricks don't help.
var DefaultPatterns = []string{
	"buy followers",
	"free followers",
	"cheap viewers",
	"click here",
	"free money",
	"make money fast",
	"work from home",
	"earn cash",
	"limited time offer",
	"act now",
	"free nitro",
	"free vbucks",
	"crypto giveaway",
	"double your bitcoin",
	"check my profile",
	"dm me for",
}

type Patterns struct {
	// patterns which earn spam score
	Block []string
	// whitelisted patterns; any of these in a message suppresses pattern credit
	Allow []string
}

// Builds the effective patterns for a community: defaults (only if useDefault) plus community block patterns, minus any allow pattern (compared in collapse-normalized form).
func EffectivePatterns(useDefault bool, block, allow []string) Patterns {
	allowSet := map[string]bool{}
	allowList := []string{}
	for _, p := range allow {
		n := keyword.NormalizeCollapse(p)
		if n == "" || allowSet[n] {
			continue
		}
		allowSet[n] = true
		allowList = append(allowList, p)
	}

	var sources [][]string
	if useDefault {
		sources = append(sources, DefaultPatterns)
	}
	sources = append(sources, block)

	seen := map[string]bool{}
	blockList := []string{}
	for _, group := range sources {
		for _, p := range group {
			n := keyword.NormalizeCollapse(p)
			if n == "" || allowSet[n] || seen[n] {
				continue
			}
			seen[n] = true
			blockList = append(blockList, p)
		}
	}
	return Patterns{
		Block: blockList,
		Allow: allowList,
	}
}
