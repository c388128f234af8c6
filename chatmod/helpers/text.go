package helpers

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/spaolacci/murmur3"
)

func DedupeStrings(in []string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, v := range in {
		if !seen[v] {
			out = append(out, v)
			seen[v] = true
		}
	}
	return out
}

// returns a fast, compact hash of a string
//
// current implementation uses murmur3, default seed, and hex encoding
func HashOfString(s string) string {
	val := murmur3.Sum64([]byte(s))
	return fmt.Sprintf("%016x", val)
}

// Order-independent hash of a list of strings (eg, a word list), for use as a cache key.
func HashOfList(l []string) string {
	sorted := make([]string, len(l))
	copy(sorted, l)
	sort.Strings(sorted)
	return HashOfString(strings.Join(sorted, "\x00"))
}

// permissive: anything after the scheme up to whitespace, quotes or brackets
var urlRegex = regexp.MustCompile(`(?i)https?://[^\s"'<>()\[\]{}]+`)

// Extracts explicit http(s) URLs from free-form text, in order of appearance. Scheme matching is case-insensitive.
func ExtractTextURLs(raw string) []string {
	return urlRegex.FindAllString(raw, -1)
}
