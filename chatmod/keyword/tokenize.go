package keyword

import (
	"strings"
)

// Splits already-normalized text in to tokens on whitespace.
func Tokens(normalized string) []string {
	return strings.Fields(normalized)
}

// Returns every adjacent pair of tokens, joined with a single space.
//
// For example, ["buy", "cheap", "pills"] yields ["buy cheap", "cheap pills"]
func Bigrams(tokens []string) []string {
	if len(tokens) < 2 {
		return []string{}
	}
	out := make([]string, 0, len(tokens)-1)
	for i := 0; i+1 < len(tokens); i++ {
		out = append(out, tokens[i]+" "+tokens[i+1])
	}
	return out
}

// Candidate strings for word-list matching: all unique tokens, then all unique bigrams, in first-seen order.
func Candidates(normalized string) []string {
	toks := Tokens(normalized)
	seen := make(map[string]bool, len(toks)*2)
	out := make([]string, 0, len(toks)*2)
	for _, group := range [][]string{toks, Bigrams(toks)} {
		for _, c := range group {
			if !seen[c] {
				seen[c] = true
				out = append(out, c)
			}
		}
	}
	return out
}
