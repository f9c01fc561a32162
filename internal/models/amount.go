// internal/models/amount.go
package models

import (
	"math"
	"strconv"
	"strings"
)

var amountSuffixes = []struct {
	suffix     string
	multiplier float64
}{
	{"billion", 1e9},
	{"million", 1e6},
	{"thousand", 1e3},
	{"bn", 1e9},
	{"mm", 1e6},
	{"b", 1e9},
	{"m", 1e6},
	{"k", 1e3},
}

// ParseAmount parses amounts such as "$50M", "1.2b", "750,000" or "$25 million"
// into whole US dollars.
func ParseAmount(value string) (float64, bool) {
	cleaned := strings.ToLower(strings.TrimSpace(value))
	cleaned = strings.NewReplacer("$", "", ",", "", " ", "", "usd", "").Replace(cleaned)
	if cleaned == "" {
		return 0, false
	}

	multiplier := 1.0
	for _, s := range amountSuffixes {
		if strings.HasSuffix(cleaned, s.suffix) {
			multiplier = s.multiplier
			cleaned = strings.TrimSuffix(cleaned, s.suffix)
			break
		}
	}

	num, err := strconv.ParseFloat(cleaned, 64)
	if err != nil || math.IsNaN(num) || math.IsInf(num, 0) || num < 0 {
		return 0, false
	}
	return num * multiplier, true
}

// FormatAmount renders an amount the way deal lists show it: $1.2B, $50M, $500K.
func FormatAmount(amount *float64) string {
	if amount == nil {
		return "undisclosed"
	}
	a := *amount
	switch {
	case a >= 1e9:
		return "$" + strconv.FormatFloat(a/1e9, 'f', 1, 64) + "B"
	case a >= 1e6:
		return "$" + strconv.FormatFloat(a/1e6, 'f', 0, 64) + "M"
	case a >= 1e3:
		return "$" + strconv.FormatFloat(a/1e3, 'f', 0, 64) + "K"
	default:
		return "$" + strconv.FormatFloat(a, 'f', 0, 64)
	}
}
