// Confidence-scored spam detection: phrase patterns, suspicious link signatures, and repetition heuristics.
package spam

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/bluesky-social/chatmod/chatmod/helpers"
	"github.com/bluesky-social/chatmod/chatmod/keyword"
	"github.com/bluesky-social/chatmod/chatmod/settings"

	"github.com/rivo/uniseg"
)

const (
	ScoreExactPattern      = 15
	ScoreNormalizedPattern = 10
	ScoreSuspiciousURL     = 20
	ScoreRepetition        = 8

	// scores at or above this are "high" severity
	HighScore = 50
	// scores at or above this are "moderate" severity
	ModerateScore = 30
)

const (
	IssueExcessiveCaps      = "excessive_caps"
	IssueRepeatedCharacters = "repeated_characters"
	IssueRepeatedWords      = "repeated_words"
)

// signatures of links which are suspicious on their own, matched against the lower-cased raw message
var suspiciousURLRegexes = []*regexp.Regexp{
	alternation(helpers.KnownShorteners, `\b(`, `)\b`),
	regexp.MustCompile(`\b\d{1,3}(\.\d{1,3}){3}\b`),
	alternation(helpers.FreeTLDs, `\.(`, `)\b`),
}

func alternation(words []string, prefix, suffix string) *regexp.Regexp {
	quoted := make([]string, len(words))
	for i, w := range words {
		quoted[i] = regexp.QuoteMeta(w)
	}
	return regexp.MustCompile(prefix + strings.Join(quoted, "|") + suffix)
}

type Result struct {
	SpamScore        int
	MatchedPatterns  []string
	SuspiciousURLs   []string
	RepetitionIssues []string
	IsSpam           bool
	Severity         settings.Severity
}

// Scores a raw chat message for spam. A message is spam if its score reaches threshold; a threshold of zero or less means the default.
func Check(message string, patterns Patterns, threshold int) Result {
	if threshold <= 0 {
		threshold = settings.DefaultSpamThreshold
	}
	res := Result{
		MatchedPatterns:  []string{},
		SuspiciousURLs:   []string{},
		RepetitionIssues: []string{},
		Severity:         settings.SeverityClean,
	}

	lower := strings.ToLower(message)
	collapsed := keyword.NormalizeCollapse(message)

	// a single whitelisted pattern anywhere in the message suppresses credit for every pattern
	whitelisted := false
	for _, p := range patterns.Allow {
		n := keyword.NormalizeCollapse(p)
		if n != "" && strings.Contains(collapsed, n) {
			whitelisted = true
			break
		}
	}

	for _, p := range patterns.Block {
		n := keyword.NormalizeCollapse(p)
		if n == "" || !strings.Contains(collapsed, n) {
			continue
		}
		if whitelisted {
			continue
		}
		res.MatchedPatterns = append(res.MatchedPatterns, p)
		if strings.Contains(lower, strings.ToLower(p)) {
			res.SpamScore += ScoreExactPattern
		} else {
			res.SpamScore += ScoreNormalizedPattern
		}
	}

	for _, re := range suspiciousURLRegexes {
		for _, m := range re.FindAllString(lower, -1) {
			res.SuspiciousURLs = append(res.SuspiciousURLs, m)
			res.SpamScore += ScoreSuspiciousURL
		}
	}

	if excessiveCaps(message) {
		res.RepetitionIssues = append(res.RepetitionIssues, IssueExcessiveCaps)
	}
	if hasCharacterRun(message, 5) {
		res.RepetitionIssues = append(res.RepetitionIssues, IssueRepeatedCharacters)
	}
	if repeatedWords(lower) {
		res.RepetitionIssues = append(res.RepetitionIssues, IssueRepeatedWords)
	}
	res.SpamScore += ScoreRepetition * len(res.RepetitionIssues)

	res.IsSpam = res.SpamScore >= threshold
	res.Severity = ScoreSeverity(res.SpamScore)
	return res
}

// Severity band for a spam score, independent of the community's spam threshold.
func ScoreSeverity(score int) settings.Severity {
	switch {
	case score >= HighScore:
		return settings.SeverityHigh
	case score >= ModerateScore:
		return settings.SeverityModerate
	default:
		return settings.SeverityClean
	}
}

// more than 70% of letters upper-case, in a message more than 10 characters long
func excessiveCaps(s string) bool {
	length := 0
	gr := uniseg.NewGraphemes(s)
	for gr.Next() {
		length++
	}
	if length <= 10 {
		return false
	}
	letters, upper := 0, 0
	for _, r := range s {
		if !unicode.IsLetter(r) {
			continue
		}
		letters++
		if unicode.IsUpper(r) {
			upper++
		}
	}
	if letters == 0 {
		return false
	}
	return float64(upper)/float64(letters) > 0.7
}

func hasCharacterRun(s string, n int) bool {
	var prev rune
	run := 0
	for _, r := range s {
		if run > 0 && r == prev {
			run++
		} else {
			prev = r
			run = 1
		}
		if run >= n {
			return true
		}
	}
	return false
}

// more than half of tokens are repeats, in a message with more than 3 tokens
func repeatedWords(lower string) bool {
	tokens := strings.Fields(lower)
	if len(tokens) <= 3 {
		return false
	}
	unique := make(map[string]bool, len(tokens))
	for _, t := range tokens {
		unique[t] = true
	}
	return float64(len(tokens)-len(unique))/float64(len(tokens)) > 0.5
}
