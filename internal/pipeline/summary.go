package pipeline

import (
	"time"

	"deal-tracker/internal/models"
)

type Mode string

const (
	ModeLive Mode = "live"
	ModeDry  Mode = "dry-run"
)

// Summary is produced by every run, whatever failed along the way.
type Summary struct {
	RunID               string                 `json:"runId"`
	Mode                Mode                   `json:"mode"`
	StartedAt           time.Time              `json:"startedAt"`
	Duration            time.Duration          `json:"durationNs"`
	Stages              []Stage                `json:"stages"`
	SourcesAttempted    int                    `json:"sourcesAttempted"`
	SourcesScraped      int                    `json:"sourcesScraped"`
	CandidatesExtracted int                    `json:"candidatesExtracted"`
	InvalidSkipped      int                    `json:"invalidSkipped"`
	DuplicatesSkipped   int                    `json:"duplicatesSkipped"`
	ReferenceSize       int                    `json:"referenceSize"`
	Inserted            int                    `json:"inserted"`
	New                 []models.DealCandidate `json:"new"`
	Records             []models.DealRecord    `json:"records,omitempty"`
	Duplicates          []Duplicate            `json:"duplicates,omitempty"`
	Errors              []string               `json:"errors"`
}

func (s *Summary) DurationMS() int64 {
	return s.Duration.Milliseconds()
}

func (s *Summary) enter(stage Stage) {
	s.Stages = append(s.Stages, stage)
}

func (s *Summary) fail(msg string) {
	s.Errors = append(s.Errors, msg)
}
