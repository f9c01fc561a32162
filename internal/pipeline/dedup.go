package pipeline

import (
	"deal-tracker/internal/common/logger"
	"deal-tracker/internal/models"
)

// ReferenceSet is the ordered list of identities candidates are compared to.
// add is its only mutation and is called only from Deduplicator.Partition.
type ReferenceSet struct {
	items []models.Identity
}

// NewReferenceSet copies history so partitioning never mutates the caller's slice.
func NewReferenceSet(history []models.Identity) *ReferenceSet {
	items := make([]models.Identity, len(history))
	copy(items, history)
	return &ReferenceSet{items: items}
}

func (r *ReferenceSet) Len() int {
	return len(r.items)
}

func (r *ReferenceSet) Items() []models.Identity {
	return append([]models.Identity(nil), r.items...)
}

func (r *ReferenceSet) add(id models.Identity) {
	r.items = append(r.items, id)
}

// Duplicate is a suppressed candidate and the reference it matched.
type Duplicate struct {
	Candidate   models.DealCandidate `json:"candidate"`
	MatchedWith models.Identity      `json:"matchedWith"`
	Score       MatchScore           `json:"score"`
}

type Partition struct {
	New        []models.DealCandidate `json:"new"`
	Duplicates []Duplicate            `json:"duplicates"`
}

// Deduplicator splits candidates into new deals and duplicates.
type Deduplicator struct {
	matcher *Matcher
	logger  logger.Logger
}

func NewDeduplicator(matcher *Matcher, log logger.Logger) *Deduplicator {
	return &Deduplicator{matcher: matcher, logger: log}
}

// Partition evaluates candidates in order. Every accepted candidate joins the
// reference set before the next one is evaluated, so of two matching
// candidates in the same batch the first one wins.
func (d *Deduplicator) Partition(candidates []models.DealCandidate, history []models.Identity) Partition {
	ref := NewReferenceSet(history)
	result := Partition{
		New:        make([]models.DealCandidate, 0, len(candidates)),
		Duplicates: make([]Duplicate, 0),
	}

	for _, c := range candidates {
		id := c.Identity()
		if match, score, ok := d.find(ref, id); ok {
			d.logger.Debug("duplicate skipped", map[string]interface{}{
				"company":       c.CompanyName,
				"investor":      c.Investor,
				"matchedWith":   match.CompanyName,
				"nameScore":     score.Name,
				"investorScore": score.Investor,
			})
			result.Duplicates = append(result.Duplicates, Duplicate{Candidate: c, MatchedWith: match, Score: score})
			continue
		}
		ref.add(id)
		result.New = append(result.New, c)
	}
	return result
}

func (d *Deduplicator) find(ref *ReferenceSet, id models.Identity) (models.Identity, MatchScore, bool) {
	for _, existing := range ref.items {
		if score := d.matcher.Score(id, existing); score.Matched {
			return existing, score, true
		}
	}
	return models.Identity{}, MatchScore{}, false
}
