package profanity

import (
	"github.com/bluesky-social/chatmod/chatmod/keyword"
)

// Built-in banned terms, used when a community has UseDefaultProfanity set.
//
// Matching is bidirectional substring containment, so a term here will also match any longer token containing it, and any token which is a piece of it. Terms which are common fragments of ordinary words ("ass", "cock", "crap") are left out for that reason.
var DefaultBanned = append([]string{
	"asshole",
	"bastard",
	"bitch",
	"bollocks",
	"cunt",
	"dickhead",
	"fuck",
	"prick",
	"shit",
	"slut",
	"twat",
	"wanker",
	"whore",
}, keyword.SevereTerms...)

// Built-in allowed terms. These always apply, regardless of UseDefaultProfanity.
//
// A candidate token which is exactly one of these is never tested against the banned list. Since a token also matches any banned term it is a piece of, this has to cover short common words ("hi" in "shit", "bit" in "bitch"), chat shorthand ("gg" in "faggot"), and every one and two letter fragment of the built-in terms. Also includes place names which contain a banned term.
var DefaultAllowed = []string{
	// stopwords
	"a",
	"an",
	"and",
	"ann",
	"are",
	"as",
	"at",
	"be",
	"go",
	"he",
	"hi",
	"i",
	"in",
	"is",
	"it",
	"lo",
	"me",
	"of",
	"on",
	"or",
	"re",
	"so",
	"ta",
	"the",
	"to",
	"un",
	"us",
	"we",
	"who",
	"you",
	// chat shorthand
	"ez",
	"gg",
	"gl",
	"hf",
	"np",
	"ty",
	"wp",
	"ack",
	"ick",
	"ike",
	"kik",
	"ole",
	"ore",
	"ric",
	"sho",
	"star",
	"tran",
	"wat",
	// single letters
	"b", "c", "d", "e", "f", "g", "h", "k", "l", "n", "o", "p", "r", "s", "t", "u", "w", "y",
	// two letter fragments
	"ac", "ad", "ag", "ar", "ba", "bi", "bo", "ch", "ck", "cu", "di", "ea", "er", "et",
	"fa", "fu", "ga", "ge", "ho", "ic", "ig", "ik", "ke", "kh", "ki", "ks", "le", "ll",
	"lu", "ni", "nk", "nn", "nt", "ny", "oc", "ol", "ot", "pr", "ra", "rd", "ri", "sh",
	"sl", "ss", "st", "tb", "tc", "tr", "tw", "uc", "ut", "wa", "wh",
	// longer fragments
	"back",
	"bit",
	"got",
	"head",
	"hit",
	"hole",
	"itch",
	"lock",
	"locks",
	"ran",
	"rick",
	"tar",
	"wan",
	"wet",
	// places
	"scunthorpe",
}

// Effective word lists for one community. Banned holds raw terms (as configured, for reporting and censoring); Allowed and Severe hold normalized terms.
type Lists struct {
	Banned  []string
	Allowed []string
	Severe  []string
}

// Builds the effective lists for a community: the default banned list (only if useDefault) plus the community bans, minus every allowed term, default or community. Allowed terms always win; the comparison is on normalized forms, so an allow entry of "B1tch" removes a ban on "bitch".
//
// severe is the community's own list of slur-category terms, on top of the built-in set.
func EffectiveLists(useDefault bool, banned, allowed, severe []string) Lists {
	allowSet := make(map[string]bool, len(DefaultAllowed)+len(allowed))
	allowList := make([]string, 0, len(DefaultAllowed)+len(allowed))
	for _, group := range [][]string{DefaultAllowed, allowed} {
		for _, t := range group {
			n := keyword.NormalizeTokens(t)
			if n == "" || allowSet[n] {
				continue
			}
			allowSet[n] = true
			allowList = append(allowList, n)
		}
	}

	var sources [][]string
	if useDefault {
		sources = append(sources, DefaultBanned)
	}
	sources = append(sources, banned)

	seen := map[string]bool{}
	banList := []string{}
	for _, group := range sources {
		for _, t := range group {
			n := keyword.NormalizeTokens(t)
			if n == "" || allowSet[n] || seen[n] {
				continue
			}
			seen[n] = true
			banList = append(banList, t)
		}
	}

	severeList := []string{}
	for _, t := range severe {
		n := keyword.NormalizeTokens(t)
		if n != "" && !allowSet[n] {
			severeList = append(severeList, n)
		}
	}

	return Lists{
		Banned:  banList,
		Allowed: allowList,
		Severe:  severeList,
	}
}
