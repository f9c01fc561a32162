// internal/workers/deals/refresh-deals/config.go
package refreshdeals

import (
	"time"

	"deal-tracker/internal/common/config"
)

type Config struct {
	// Timeout bounds one pipeline run started by a job.
	Timeout time.Duration
}

func LoadConfig(cfg *config.Config) *Config {
	wc := config.GetWorkerConfig(cfg, TaskType)
	return &Config{
		Timeout: config.GetDuration(wc.Timeout),
	}
}
