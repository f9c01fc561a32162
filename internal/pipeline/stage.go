package pipeline

// Stage is a step of a pipeline run. A run only moves forward.
type Stage int

const (
	StageInit Stage = iota
	StageCollecting
	StageExtracting
	StageDeduplicating
	StagePersisting
	StageReporting
	StageDone
)

func (s Stage) String() string {
	switch s {
	case StageInit:
		return "init"
	case StageCollecting:
		return "collecting"
	case StageExtracting:
		return "extracting"
	case StageDeduplicating:
		return "deduplicating"
	case StagePersisting:
		return "persisting"
	case StageReporting:
		return "reporting"
	case StageDone:
		return "done"
	default:
		return "unknown"
	}
}

func (s Stage) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}
