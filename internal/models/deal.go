// internal/models/deal.go
package models

import "time"

// DateLayout is the calendar-date format used for deal dates.
const DateLayout = "2006-01-02"

// RawDeal is one object as returned by a structured extractor, before normalization.
type RawDeal map[string]interface{}

// DealStatus is the analyst review status of a stored deal.
type DealStatus string

const (
	StatusSawAndPassed DealStatus = "Saw and Passed"
	StatusDidNotSee    DealStatus = "Did Not See"
	StatusIrrelevant   DealStatus = "Irrelevant"
)

// PatchableFields are the deal columns an analyst may edit, in update order.
var PatchableFields = []string{
	"date", "company_name", "investor", "amount_raised", "end_market",
	"description", "source_url", "status", "comments", "deleted_at",
}

// DealPatch maps patchable columns to new values. A nil value clears the column.
type DealPatch map[string]interface{}

// Fields returns the patchable keys present in p, in PatchableFields order.
// Unknown keys are ignored.
func (p DealPatch) Fields() []string {
	out := make([]string, 0, len(p))
	for _, f := range PatchableFields {
		if _, ok := p[f]; ok {
			out = append(out, f)
		}
	}
	return out
}

type DealCandidate struct {
	CompanyName  string   `json:"company_name"`
	Investor     string   `json:"investor"`
	AmountRaised *float64 `json:"amount_raised"`
	EndMarket    string   `json:"end_market"`
	Description  string   `json:"description"`
	Date         string   `json:"date"`
	SourceURL    string   `json:"source_url"`
}

// Identity returns the fields used for duplicate detection.
func (c DealCandidate) Identity() Identity {
	return Identity{
		CompanyName: c.CompanyName,
		Investor:    c.Investor,
		Date:        c.Date,
	}
}

// DealRecord is a candidate promoted for persistence.
type DealRecord struct {
	ID           string      `json:"id" gorm:"primaryKey;type:text"`
	CompanyName  string      `json:"company_name"`
	Investor     string      `json:"investor"`
	AmountRaised *float64    `json:"amount_raised"`
	EndMarket    string      `json:"end_market"`
	Description  string      `json:"description"`
	Date         string      `json:"date" gorm:"index"`
	SourceURL    string      `json:"source_url"`
	Status       *DealStatus `json:"status"`
	Comments     string      `json:"comments"`
	UpdatedAt    time.Time   `json:"updated_at"`
	DeletedAt    *time.Time  `json:"deleted_at,omitempty"`
}

// Identity is the projection of a deal compared during deduplication.
type Identity struct {
	CompanyName string `json:"company_name"`
	Investor    string `json:"investor"`
	Date        string `json:"date"`
}

// ScanLog is the per-run bookkeeping row written after a live run.
type ScanLog struct {
	ID         string    `json:"id"`
	DealsFound int       `json:"deals_found"`
	DurationMS int64     `json:"duration_ms"`
	CreatedAt  time.Time `json:"created_at"`
}
