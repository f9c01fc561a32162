// internal/workers/deals/refresh-deals/models.go
package refreshdeals

import "deal-tracker/internal/common/validation"

type Input struct {
	DryRun bool `json:"dryRun"`
}

type Output struct {
	RunID             string   `json:"runId"`
	DryRun            bool     `json:"dryRun"`
	SourcesScraped    int      `json:"sourcesScraped"`
	DealsExtracted    int      `json:"dealsExtracted"`
	DuplicatesSkipped int      `json:"duplicatesSkipped"`
	DealsInserted     int      `json:"dealsInserted"`
	Errors            []string `json:"errors"`
	DurationMS        int64    `json:"durationMs"`
}

// Process variables are open-ended, so unknown keys are allowed here.
var inputSchema = validation.MustCompile(`{
	"type": "object",
	"properties": {
		"dryRun": {"type": "boolean"}
	}
}`)
