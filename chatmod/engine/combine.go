package engine

import (
	"github.com/bluesky-social/chatmod/chatmod/profanity"
	"github.com/bluesky-social/chatmod/chatmod/settings"
	"github.com/bluesky-social/chatmod/chatmod/spam"
	"github.com/bluesky-social/chatmod/chatmod/urlpolicy"
)

// Effective inputs for evaluating messages in one community.
type Config struct {
	Settings    settings.FilterSettings
	Words       profanity.Lists
	Patterns    spam.Patterns
	URLSettings settings.URLSettings
}

// Builds the effective configuration from resolved community settings and lists.
func EffectiveConfig(fs settings.FilterSettings, words WordLists, patterns PatternLists, urls settings.URLSettings) Config {
	return Config{
		Settings:    fs,
		Words:       profanity.EffectiveLists(fs.UseDefaultProfanity, words.Banned, words.Allowed, words.Severe),
		Patterns:    spam.EffectivePatterns(fs.UseDefaultSpamPatterns, patterns.Block, patterns.Allow),
		URLSettings: urls,
	}
}

// Evaluates a message against a community's effective configuration. Pure: the same message and config always give the same verdict. Whitelisting is decided before this is called.
//
// Filters run in a fixed order, each only if enabled: profanity, then spam, then URLs. Spam only takes over a verdict which is already flagged when its score is above spam.HighScore; a blocked URL always flags. When more than one filter flags, the filter type is "combined".
func Combine(message string, cfg Config) Verdict {
	v := CleanVerdict(message)
	fs := cfg.Settings

	flag := func(ft FilterType, sev settings.Severity) {
		if v.Clean {
			v.FilterType = ft
		} else {
			v.FilterType = FilterCombined
		}
		v.Clean = false
		// a severe profanity match is never downgraded by a later filter
		if sev.Rank() > v.Severity.Rank() {
			v.Severity = sev
		}
	}

	if fs.ProfanityEnabled {
		pr := profanity.Check(message, cfg.Words)
		if pr.HasMatch {
			flag(FilterProfanity, pr.Severity)
			v.Violations = append(v.Violations, pr.Violations...)
			censored := pr.Censored
			v.Censored = &censored
		}
	}

	if fs.SpamEnabled {
		sr := spam.Check(message, cfg.Patterns, fs.SpamThreshold)
		v.SpamScore = sr.SpamScore
		if sr.IsSpam && (v.Clean || sr.SpamScore > spam.HighScore) {
			sev := settings.SeverityModerate
			if sr.SpamScore >= spam.HighScore {
				sev = settings.SeverityHigh
			}
			flag(FilterSpam, sev)
			v.Violations = append(v.Violations, sr.MatchedPatterns...)
		}
	}

	if fs.URLBlockingEnabled {
		ur := urlpolicy.Check(message, cfg.URLSettings)
		if len(ur.Blocked) > 0 {
			flag(FilterURL, settings.SeverityModerate)
			v.BlockedURLs = append(v.BlockedURLs, ur.Blocked...)
		}
	}

	v.Action = resolveAction(&v, fs)
	return v
}

func resolveAction(v *Verdict, fs settings.FilterSettings) settings.Action {
	if v.Clean {
		return settings.ActionPass
	}
	a := fs.ActionFor(v.Severity)
	// censoring which leaves the message unchanged (eg, only obfuscated terms matched, or only links) is downgraded to a warning
	if a == settings.ActionCensor && (v.Censored == nil || *v.Censored == v.Original) {
		return settings.ActionWarn
	}
	return a
}
