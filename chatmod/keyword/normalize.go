package keyword

import (
	"log/slog"
	"regexp"
	"strings"
	"unicode"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// inputs longer than this are normalized but never memoized
const maxMemoInputLen = 512

var (
	leetReplacer = strings.NewReplacer(
		"@", "a",
		"0", "o",
		"1", "i",
		"3", "e",
		"4", "a",
		"5", "s",
		"7", "t",
		"8", "b",
		"!", "i",
		"$", "s",
		"+", "t",
		"*", "",
	)
	// letters, digits, and separators (including no-break spaces) survive
	nonTokenChars = regexp.MustCompile(`[^\pL\pN\p{Z}\s]+`)
)

// Normalizer canonicalizes free-form chat text for matching against word and pattern lists.
//
// Both modes are pure functions of the input; results are memoized in bounded LRU caches keyed by the raw string. Safe for concurrent use.
type Normalizer struct {
	tokens   *lru.Cache[string, string]
	collapse *lru.Cache[string, string]
}

func NewNormalizer(size int) *Normalizer {
	if size <= 0 {
		size = 1
	}
	tc, _ := lru.New[string, string](size)
	cc, _ := lru.New[string, string](size)
	return &Normalizer{
		tokens:   tc,
		collapse: cc,
	}
}

var defaultNormalizer = NewNormalizer(10_000)

// Token-preserving normalization: lower-case, leetspeak substitution, punctuation stripped, whitespace collapsed to single spaces.
func NormalizeTokens(raw string) string {
	return defaultNormalizer.Tokens(raw)
}

// Aggressive normalization for phrase matching: like NormalizeTokens, but also removes all whitespace, underscores, hyphens and periods, so "b u y  f-o-l-l-o-w-e-r-s" becomes "buyfollowers".
func NormalizeCollapse(raw string) string {
	return defaultNormalizer.Collapse(raw)
}

func (n *Normalizer) Tokens(raw string) string {
	if v, ok := n.tokens.Get(raw); ok {
		return v
	}
	out := normalizeTokens(raw)
	if len(raw) <= maxMemoInputLen {
		n.tokens.Add(raw, out)
	}
	return out
}

func (n *Normalizer) Collapse(raw string) string {
	if v, ok := n.collapse.Get(raw); ok {
		return v
	}
	out := normalizeCollapse(raw)
	if len(raw) <= maxMemoInputLen {
		n.collapse.Add(raw, out)
	}
	return out
}

func normalizeTokens(raw string) string {
	s := substitute(raw)
	s = nonTokenChars.ReplaceAllString(s, "")
	return strings.Join(strings.Fields(s), " ")
}

func normalizeCollapse(raw string) string {
	s := substitute(raw)
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) || r == '_' || r == '-' || r == '.' {
			return -1
		}
		return r
	}, s)
}

// lower-case, diacritic folding, then the leetspeak table
func substitute(raw string) string {
	return leetReplacer.Replace(foldMarks(strings.ToLower(raw)))
}

func foldMarks(s string) string {
	// transform chains carry state, so one is built per call
	normFunc := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(normFunc, s)
	if err != nil {
		slog.Warn("unicode normalization error", "err", err)
		return s
	}
	return strings.ToLower(out)
}
