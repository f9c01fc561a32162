package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseAmount(t *testing.T) {
	tests := []struct {
		in   string
		want float64
		ok   bool
	}{
		{"$50M", 50_000_000, true},
		{"1.2B", 1_200_000_000, true},
		{"750,000", 750_000, true},
		{"$500k", 500_000, true},
		{"$25 million", 25_000_000, true},
		{"USD 40mm", 40_000_000, true},
		{"undisclosed", 0, false},
		{"", 0, false},
		{"-5M", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseAmount(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.InDelta(t, tt.want, got, 0.5)
		})
	}
}

func TestFormatAmount(t *testing.T) {
	f := func(v float64) *float64 { return &v }

	assert.Equal(t, "undisclosed", FormatAmount(nil))
	assert.Equal(t, "$1.2B", FormatAmount(f(1_200_000_000)))
	assert.Equal(t, "$50M", FormatAmount(f(50_000_000)))
	assert.Equal(t, "$500K", FormatAmount(f(500_000)))
	assert.Equal(t, "$900", FormatAmount(f(900)))
}

func TestVocabulary(t *testing.T) {
	v := NewVocabulary([]string{"FinTech", "Healthcare IT", "fintech", " "})

	assert.Equal(t, []string{"FinTech", "Healthcare IT", CatchAllEndMarket}, v.Labels())
	assert.Equal(t, "FinTech", v.Canonical("  fintech "))
	assert.Equal(t, "Healthcare IT", v.Canonical("HEALTHCARE IT"))
	assert.Equal(t, CatchAllEndMarket, v.Canonical("Quantum Widgets"))
	assert.Equal(t, CatchAllEndMarket, v.Canonical(""))

	assert.True(t, v.Contains("FinTech"))
	assert.False(t, v.Contains("fintech"))
	assert.True(t, v.Contains(CatchAllEndMarket))
}

func TestDealCandidate_Identity(t *testing.T) {
	c := DealCandidate{CompanyName: "Acme", Investor: "Summit Partners", Date: "2026-02-20", Description: "ignored"}
	assert.Equal(t, Identity{CompanyName: "Acme", Investor: "Summit Partners", Date: "2026-02-20"}, c.Identity())
}
