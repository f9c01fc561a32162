package pipeline

import "deal-tracker/internal/models"

// Validator drops candidates that cannot become deal records.
type Validator struct {
	threshold       int
	rejectSelfDeals bool
}

func NewValidator(threshold int, rejectSelfDeals bool) *Validator {
	return &Validator{threshold: threshold, rejectSelfDeals: rejectSelfDeals}
}

// Check returns an empty reason for a usable candidate.
func (v *Validator) Check(c models.DealCandidate) string {
	switch {
	case c.CompanyName == "":
		return "missing company_name"
	case c.Investor == "":
		return "missing investor"
	case v.rejectSelfDeals && Similarity(c.CompanyName, c.Investor) >= v.threshold:
		return "company matches investor"
	}
	return ""
}
