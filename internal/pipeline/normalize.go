package pipeline

import (
	"strings"
	"time"
	"unicode"

	"github.com/araddon/dateparse"
	"github.com/spf13/cast"

	"deal-tracker/internal/models"
)

// Normalizer coerces raw extractor objects into candidates. It never rejects.
type Normalizer struct {
	vocab *models.Vocabulary
	now   func() time.Time
}

func NewNormalizer(vocab *models.Vocabulary, now func() time.Time) *Normalizer {
	if vocab == nil {
		vocab = models.NewVocabulary(models.DefaultEndMarkets)
	}
	if now == nil {
		now = time.Now
	}
	return &Normalizer{vocab: vocab, now: now}
}

// Normalize fills defaults for missing fields: amount nil, end market "Other",
// empty description and source URL, today's date.
func (n *Normalizer) Normalize(raw models.RawDeal) models.DealCandidate {
	return models.DealCandidate{
		CompanyName:  text(raw["company_name"]),
		Investor:     text(raw["investor"]),
		AmountRaised: amount(raw["amount_raised"]),
		EndMarket:    n.vocab.Canonical(text(raw["end_market"])),
		Description:  text(raw["description"]),
		Date:         n.date(raw["date"]),
		SourceURL:    text(raw["source_url"]),
	}
}

func (n *Normalizer) NormalizeAll(raws []models.RawDeal) []models.DealCandidate {
	out := make([]models.DealCandidate, 0, len(raws))
	for _, raw := range raws {
		out = append(out, n.Normalize(raw))
	}
	return out
}

// Today returns the current calendar date as YYYY-MM-DD.
func (n *Normalizer) Today() string {
	return n.now().Format(models.DateLayout)
}

// date canonicalizes recognizable dates to YYYY-MM-DD. Text that is not a
// recognizable date is kept as-is so the matcher treats it as overlapping.
func (n *Normalizer) date(v interface{}) string {
	s := text(v)
	if s == "" || strings.EqualFold(s, "null") {
		return n.Today()
	}
	if _, ok := ParseDate(s); ok {
		return s
	}
	// dateparse fills a missing day or month with 1; "2026-03" must stay partial.
	if !hasDay(s) {
		return s
	}
	t, err := dateparse.ParseIn(s, time.UTC)
	if err != nil {
		return s
	}
	return t.Format(models.DateLayout)
}

// hasDay reports whether s names a day of the month: three numeric parts,
// a compact YYYYMMDD, or a month name with two numeric parts.
func hasDay(s string) bool {
	numbers, words := 0, strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	month := false
	for _, w := range words {
		switch {
		case isDigits(w):
			if len(w) == 8 && len(words) == 1 {
				return true
			}
			numbers++
		case isMonthName(w):
			month = true
		}
	}
	if month {
		return numbers >= 2
	}
	return numbers >= 3
}

func isDigits(w string) bool {
	for _, r := range w {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return w != ""
}

func isMonthName(w string) bool {
	for m := time.January; m <= time.December; m++ {
		name := strings.ToLower(m.String())
		if w == name || (len(w) >= 3 && strings.HasPrefix(name, w)) {
			return true
		}
	}
	return false
}

func text(v interface{}) string {
	if v == nil {
		return ""
	}
	s, err := cast.ToStringE(v)
	if err != nil {
		return ""
	}
	return strings.Join(strings.Fields(s), " ")
}

func amount(v interface{}) *float64 {
	switch val := v.(type) {
	case nil, bool:
		return nil
	case string:
		f, ok := models.ParseAmount(val)
		if !ok {
			return nil
		}
		return &f
	default:
		f, err := cast.ToFloat64E(val)
		if err != nil || f < 0 {
			return nil
		}
		return &f
	}
}
