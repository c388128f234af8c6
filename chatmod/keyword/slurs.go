package keyword

// Normalized terms in the slur category. A word-list match on any of these locks a message's profanity severity at "severe".
//
// Terms which commonly occur inside unrelated words ("spice", "raccoon") are left out, since list matching is by substring. Communities can mark additional terms as severe through their own word lists.
var SevereTerms = []string{
	"faggot",
	"kike",
	"nigga",
	"nigger",
	"tranny",
	"wetback",
}

var severeSet = func() map[string]bool {
	m := make(map[string]bool, len(SevereTerms))
	for _, t := range SevereTerms {
		m[t] = true
	}
	return m
}()

// Checks whether a term, after token normalization, is in the built-in slur category.
func IsSevere(term string) bool {
	return severeSet[NormalizeTokens(term)]
}
