// internal/models/vocabulary.go
package models

import "strings"

// CatchAllEndMarket is assigned when the extractor omits the end market or
// returns a value outside the vocabulary.
const CatchAllEndMarket = "Other"

var DefaultEndMarkets = []string{
	"FinTech",
	"Healthcare IT",
	"Vertical SaaS",
	"Horizontal SaaS",
	"Cybersecurity",
	"Data & Analytics",
	"Infrastructure Software",
	"E-commerce Enablement",
	"EdTech",
	"InsurTech",
	"GovTech",
	"Supply Chain & Logistics",
	"Marketing Tech",
	"HR Tech",
	"Real Estate Tech",
	CatchAllEndMarket,
}

// Vocabulary is the closed set of end-market labels.
type Vocabulary struct {
	labels []string
	index  map[string]string
}

// NewVocabulary builds a vocabulary from labels. The catch-all label is always a member.
func NewVocabulary(labels []string) *Vocabulary {
	v := &Vocabulary{index: make(map[string]string, len(labels)+1)}
	for _, l := range append(append([]string{}, labels...), CatchAllEndMarket) {
		l = strings.TrimSpace(l)
		if l == "" {
			continue
		}
		key := strings.ToLower(l)
		if _, ok := v.index[key]; ok {
			continue
		}
		v.index[key] = l
		v.labels = append(v.labels, l)
	}
	return v
}

// Canonical maps value to its vocabulary spelling, or to the catch-all label.
func (v *Vocabulary) Canonical(value string) string {
	if l, ok := v.index[strings.ToLower(strings.TrimSpace(value))]; ok {
		return l
	}
	return CatchAllEndMarket
}

func (v *Vocabulary) Contains(value string) bool {
	l, ok := v.index[strings.ToLower(value)]
	return ok && l == value
}

func (v *Vocabulary) Labels() []string {
	return append([]string(nil), v.labels...)
}
