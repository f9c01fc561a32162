package pipeline

import (
	"time"

	"deal-tracker/internal/models"
)

// Promote turns accepted candidates into records with pipeline-assigned ids.
// A date that is not YYYY-MM-DD is replaced with today's date.
func Promote(candidates []models.DealCandidate, now time.Time, newID func() string) []models.DealRecord {
	today := now.Format(models.DateLayout)
	records := make([]models.DealRecord, 0, len(candidates))
	for _, c := range candidates {
		date := c.Date
		if _, ok := ParseDate(date); !ok {
			date = today
		}
		records = append(records, models.DealRecord{
			ID:           newID(),
			CompanyName:  c.CompanyName,
			Investor:     c.Investor,
			AmountRaised: c.AmountRaised,
			EndMarket:    c.EndMarket,
			Description:  c.Description,
			Date:         date,
			SourceURL:    c.SourceURL,
			Comments:     "",
			UpdatedAt:    now,
		})
	}
	return records
}
