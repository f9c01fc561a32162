package pipeline

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"

	"deal-tracker/internal/models"
)

func TestFormatDealLine(t *testing.T) {
	amount := 50_000_000.0
	line := FormatDealLine(models.DealCandidate{
		CompanyName:  "Acme",
		Investor:     "Summit Partners",
		AmountRaised: &amount,
		EndMarket:    "FinTech",
		Date:         "2026-02-20",
	})
	assert.Equal(t, "Acme <- Summit Partners ($50M) [FinTech] 2026-02-20", line)

	line = FormatDealLine(models.DealCandidate{CompanyName: "Zylo", Investor: "Highline", EndMarket: "Other", Date: "2026-02-21"})
	assert.Contains(t, line, "(undisclosed)")
}

func TestConsoleReporter(t *testing.T) {
	var buf bytes.Buffer
	r := NewConsoleReporter(&buf)
	summary := &Summary{
		Mode: ModeDry,
		New: []models.DealCandidate{
			{CompanyName: "Acme", Investor: "Summit Partners", EndMarket: "FinTech", Date: "2026-02-20", Description: "Growth round"},
		},
		Duplicates: []Duplicate{{
			Candidate:   models.DealCandidate{CompanyName: "Acme Inc", Investor: "Summit"},
			MatchedWith: models.Identity{CompanyName: "Acme", Investor: "Summit Partners"},
		}},
		SourcesAttempted: 3,
		SourcesScraped:   2,
	}

	r.Report(summary)
	out := buf.String()
	assert.Contains(t, out, "Would insert 1 deals")
	assert.Contains(t, out, "Acme <- Summit Partners")
	assert.Contains(t, out, "Growth round")
	assert.Contains(t, out, "Skipped 1 duplicates")

	buf.Reset()
	r.PrintSummary(summary)
	out = buf.String()
	assert.Contains(t, out, "2/3")
	assert.NotContains(t, out, "Inserted")
}
