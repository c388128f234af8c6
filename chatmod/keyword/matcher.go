package keyword

import (
	"sort"
)

// Matcher indexes a fixed list of (already normalized) terms, and finds the terms related to a candidate string by substring containment in either direction: the term appears inside the candidate, or the candidate appears inside the term.
//
// The forward direction uses an Aho-Corasick automaton over the terms; the reverse direction uses a precomputed index of every substring of every term. Results are identical to testing each term with strings.Contains both ways, but matching cost does not grow with the number of terms.
//
// Empty terms are ignored (an empty term would otherwise match every candidate). Immutable after construction, and safe for concurrent use.
type Matcher struct {
	terms      []string
	nodes      []acNode
	substrings map[string][]int
}

type acNode struct {
	next map[byte]int
	fail int
	// indices of terms ending at this node, including those inherited through fail links
	out []int
}

func NewMatcher(terms []string) *Matcher {
	m := &Matcher{
		terms:      terms,
		nodes:      []acNode{{next: map[byte]int{}}},
		substrings: make(map[string][]int),
	}
	for idx, t := range terms {
		if t == "" {
			continue
		}
		m.insert(idx, t)
		m.indexSubstrings(idx, t)
	}
	m.link()
	return m
}

func (m *Matcher) Terms() []string {
	return m.terms
}

func (m *Matcher) insert(idx int, term string) {
	cur := 0
	for i := 0; i < len(term); i++ {
		b := term[i]
		nxt, ok := m.nodes[cur].next[b]
		if !ok {
			m.nodes = append(m.nodes, acNode{next: map[byte]int{}})
			nxt = len(m.nodes) - 1
			m.nodes[cur].next[b] = nxt
		}
		cur = nxt
	}
	m.nodes[cur].out = append(m.nodes[cur].out, idx)
}

// every byte-level substring; byte containment is exactly strings.Contains semantics
func (m *Matcher) indexSubstrings(idx int, term string) {
	for i := 0; i < len(term); i++ {
		for j := i + 1; j <= len(term); j++ {
			sub := term[i:j]
			l := m.substrings[sub]
			if len(l) > 0 && l[len(l)-1] == idx {
				continue
			}
			m.substrings[sub] = append(l, idx)
		}
	}
}

// breadth-first construction of failure links
func (m *Matcher) link() {
	queue := make([]int, 0, len(m.nodes))
	for _, child := range m.nodes[0].next {
		m.nodes[child].fail = 0
		queue = append(queue, child)
	}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for b, child := range m.nodes[cur].next {
			f := m.nodes[cur].fail
			for {
				if nxt, ok := m.nodes[f].next[b]; ok && nxt != child {
					m.nodes[child].fail = nxt
					break
				}
				if f == 0 {
					m.nodes[child].fail = 0
					break
				}
				f = m.nodes[f].fail
			}
			fo := m.nodes[m.nodes[child].fail].out
			if len(fo) > 0 {
				m.nodes[child].out = append(m.nodes[child].out, fo...)
			}
			queue = append(queue, child)
		}
	}
}

// Indices of all terms which occur inside text.
func (m *Matcher) Within(text string) []int {
	seen := map[int]bool{}
	cur := 0
	for i := 0; i < len(text); i++ {
		b := text[i]
		for {
			if nxt, ok := m.nodes[cur].next[b]; ok {
				cur = nxt
				break
			}
			if cur == 0 {
				break
			}
			cur = m.nodes[cur].fail
		}
		for _, idx := range m.nodes[cur].out {
			seen[idx] = true
		}
	}
	return sortedKeys(seen)
}

// Indices of all terms which contain candidate as a substring.
func (m *Matcher) Containing(candidate string) []int {
	l := m.substrings[candidate]
	out := make([]int, len(l))
	copy(out, l)
	return out
}

// Indices of all terms related to candidate by containment in either direction, in ascending order.
func (m *Matcher) Match(candidate string) []int {
	if candidate == "" {
		return []int{}
	}
	seen := map[int]bool{}
	for _, idx := range m.Within(candidate) {
		seen[idx] = true
	}
	for _, idx := range m.substrings[candidate] {
		seen[idx] = true
	}
	return sortedKeys(seen)
}

func sortedKeys(m map[int]bool) []int {
	out := make([]int, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Ints(out)
	return out
}
