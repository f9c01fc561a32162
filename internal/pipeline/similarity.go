package pipeline

import (
	"math"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/hbollon/go-edlib"
)

// legalSuffixes are trailing entity designators ignored when comparing names,
// so "Acme Corp" and "Acme Corporation" compare as the same company.
var legalSuffixes = map[string]struct{}{
	"inc": {}, "incorporated": {}, "corp": {}, "corporation": {},
	"co": {}, "company": {}, "llc": {}, "ltd": {}, "limited": {},
	"plc": {}, "lp": {}, "llp": {}, "gmbh": {},
}

// NormalizeName lower-cases s, turns punctuation into spaces and drops
// trailing legal-entity suffixes. A name made only of suffixes is kept whole.
func NormalizeName(s string) string {
	fields := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	if len(fields) == 0 {
		return ""
	}

	end := len(fields)
	for end > 0 {
		if _, ok := legalSuffixes[fields[end-1]]; !ok {
			break
		}
		end--
	}
	if end == 0 {
		end = len(fields)
	}
	return strings.Join(fields[:end], " ")
}

// Similarity scores two names from 0 to 100, case-insensitively. The score is
// the indel ratio 2*LCS/(len(a)+len(b)) over the normalized names.
func Similarity(a, b string) int {
	na, nb := NormalizeName(a), NormalizeName(b)
	if na == nb {
		return 100
	}

	total := utf8.RuneCountInString(na) + utf8.RuneCountInString(nb)
	if total == 0 {
		return 100
	}
	lcs := edlib.LCS(na, nb)
	return int(math.Round(200 * float64(lcs) / float64(total)))
}
