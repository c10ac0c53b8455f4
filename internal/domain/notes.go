package domain

import "strings"

// FragranceNotes holds the three tiers of scent descriptors returned by the
// research stage, plus the source URLs that backed them. Not persisted.
type FragranceNotes struct {
	Top     []string `json:"top"`
	Heart   []string `json:"heart"`
	Base    []string `json:"base"`
	Sources []string `json:"sources"`
}

// EmptyNotes returns a notes set with no content. The drafting stage accepts
// it and still produces valid copy.
func EmptyNotes() *FragranceNotes {
	return &FragranceNotes{Top: []string{}, Heart: []string{}, Base: []string{}, Sources: []string{}}
}

// TotalNotes counts descriptors across all three tiers.
func (n *FragranceNotes) TotalNotes() int {
	return len(n.Top) + len(n.Heart) + len(n.Base)
}

// ReliableSourceDomains are the fragrance databases whose citations count as
// trustworthy during research validation.
var ReliableSourceDomains = []string{
	"fragrantica.com",
	"parfumo.net",
	"basenotes.net",
	"theluxuryconcepts.com",
}

// HasReliableSource reports whether at least one cited source belongs to the
// allow-listed domain set.
func (n *FragranceNotes) HasReliableSource() bool {
	for _, src := range n.Sources {
		lower := strings.ToLower(src)
		for _, dom := range ReliableSourceDomains {
			if strings.Contains(lower, dom) {
				return true
			}
		}
	}
	return false
}
