package pipeline

import (
	"strings"
	"time"

	"deal-tracker/internal/models"
)

const (
	DefaultMatchThreshold = 80
	DefaultDateWindowDays = 7
)

// MatchConfig holds the identity matcher tunables.
type MatchConfig struct {
	Threshold      int
	DateWindowDays int
}

func DefaultMatchConfig() MatchConfig {
	return MatchConfig{
		Threshold:      DefaultMatchThreshold,
		DateWindowDays: DefaultDateWindowDays,
	}
}

// MatchScore explains a single comparison.
type MatchScore struct {
	Name         int
	Investor     int
	WithinWindow bool
	Matched      bool
}

// Matcher decides whether two identities describe the same deal.
type Matcher struct {
	cfg MatchConfig
}

func NewMatcher(cfg MatchConfig) *Matcher {
	return &Matcher{cfg: cfg}
}

// Match reports whether a and b refer to the same deal: both the company and
// the investor must score at or above the threshold and the dates must fall
// within the window. An unparseable date never rules a match out.
func (m *Matcher) Match(a, b models.Identity) bool {
	return m.Score(a, b).Matched
}

func (m *Matcher) Score(a, b models.Identity) MatchScore {
	s := MatchScore{
		Name:         Similarity(a.CompanyName, b.CompanyName),
		Investor:     Similarity(a.Investor, b.Investor),
		WithinWindow: WithinWindow(a.Date, b.Date, m.cfg.DateWindowDays),
	}
	s.Matched = s.Name >= m.cfg.Threshold && s.Investor >= m.cfg.Threshold && s.WithinWindow
	return s
}

// WithinWindow reports whether two YYYY-MM-DD dates are at most days apart.
// If either date does not parse the window counts as satisfied.
func WithinWindow(a, b string, days int) bool {
	da, okA := ParseDate(a)
	db, okB := ParseDate(b)
	if !okA || !okB {
		return true
	}
	diff := da.Sub(db)
	if diff < 0 {
		diff = -diff
	}
	return diff <= time.Duration(days)*24*time.Hour
}

// ParseDate parses a strict calendar date.
func ParseDate(s string) (time.Time, bool) {
	t, err := time.Parse(models.DateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
