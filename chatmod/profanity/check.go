// Word-list profanity matching against obfuscated chat text.
package profanity

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/bluesky-social/chatmod/chatmod/helpers"
	"github.com/bluesky-social/chatmod/chatmod/keyword"
	"github.com/bluesky-social/chatmod/chatmod/settings"

	arc "github.com/hashicorp/golang-lru/arc/v2"
)

type Result struct {
	// raw banned terms which matched, de-duplicated, in first-seen order
	Violations []string
	Severity   settings.Severity
	HasMatch   bool
	// original message with every matched term masked; equal to the original when nothing matched
	Censored string
}

// compiled matchers, keyed by a hash of the ordered banned list
var matcherCache, _ = arc.NewARC[string, *keyword.Matcher](256)

func matcherFor(banned []string) *keyword.Matcher {
	key := helpers.HashOfString(strings.Join(banned, "\x00"))
	if m, ok := matcherCache.Get(key); ok {
		return m
	}
	terms := make([]string, len(banned))
	for i, t := range banned {
		terms[i] = keyword.NormalizeTokens(t)
	}
	m := keyword.NewMatcher(terms)
	matcherCache.Add(key, m)
	return m
}

// Checks a raw chat message against effective word lists.
//
// The message is token-normalized, and every token and adjacent token pair is a match candidate. Candidates exactly equal to an allowed term are skipped; the rest match any banned term which contains them or which they contain.
func Check(message string, lists Lists) Result {
	res := Result{
		Violations: []string{},
		Severity:   settings.SeverityClean,
		Censored:   message,
	}
	if len(lists.Banned) == 0 {
		return res
	}

	allowed := make(map[string]bool, len(lists.Allowed))
	for _, t := range lists.Allowed {
		allowed[t] = true
	}
	severe := make(map[string]bool, len(lists.Severe))
	for _, t := range lists.Severe {
		severe[t] = true
	}

	m := matcherFor(lists.Banned)
	terms := m.Terms()
	seen := map[int]bool{}
	reported := map[string]bool{}
	for _, c := range keyword.Candidates(keyword.NormalizeTokens(message)) {
		if allowed[c] {
			continue
		}
		for _, idx := range m.Match(c) {
			if seen[idx] {
				continue
			}
			seen[idx] = true
			res.HasMatch = true
			if raw := lists.Banned[idx]; !reported[raw] {
				reported[raw] = true
				res.Violations = append(res.Violations, raw)
			}

			// once severe, stays severe
			if severe[terms[idx]] || keyword.IsSevere(terms[idx]) {
				res.Severity = settings.SeveritySevere
			} else if res.Severity != settings.SeveritySevere {
				res.Severity = settings.SeverityModerate
			}
		}
	}

	for _, term := range res.Violations {
		res.Censored = Censor(res.Censored, term)
	}
	return res
}

// Masks every case-insensitive literal occurrence of term in text, keeping the first and last characters ("damn" becomes "d**n"). Terms of two characters or fewer are masked entirely.
func Censor(text, term string) string {
	if term == "" {
		return text
	}
	re, err := regexp.Compile("(?i)" + regexp.QuoteMeta(term))
	if err != nil {
		return text
	}
	return re.ReplaceAllLiteralString(text, mask(term))
}

func mask(term string) string {
	n := utf8.RuneCountInString(term)
	if n <= 2 {
		return strings.Repeat("*", n)
	}
	first, _ := utf8.DecodeRuneInString(term)
	last, _ := utf8.DecodeLastRuneInString(term)
	return string(first) + strings.Repeat("*", n-2) + string(last)
}
