package app

import (
	"context"
	"sync"
	"time"

	"deal-tracker/internal/common/errors"
	"deal-tracker/internal/common/logger"
	"deal-tracker/internal/pipeline"
)

// Pipeline runs one pass of the deal pipeline.
type Pipeline interface {
	Run(ctx context.Context, dryRun bool) (*pipeline.Summary, error)
}

// RunRecorder is implemented by *observability.Observability.
type RunRecorder interface {
	RecordRun(ctx context.Context, trigger, status string, duration time.Duration)
}

// Coordinator serializes runs across triggers. A trigger that arrives while a
// run is in progress is rejected rather than queued.
type Coordinator struct {
	mu       sync.Mutex
	pipeline Pipeline
	recorder RunRecorder
	logger   logger.Logger
}

func NewCoordinator(p Pipeline, recorder RunRecorder, log logger.Logger) *Coordinator {
	return &Coordinator{
		pipeline: p,
		recorder: recorder,
		logger:   log.With(map[string]interface{}{"component": "coordinator"}),
	}
}

// Run executes one pass for trigger (cli, http, cron or worker). It returns a
// RUN_IN_PROGRESS error when another run holds the lock, and wraps pipeline
// failures as RUN_FAILED. The summary is returned whenever the pipeline produced one.
func (c *Coordinator) Run(ctx context.Context, trigger string, dryRun bool) (*pipeline.Summary, error) {
	if !c.mu.TryLock() {
		c.logger.Warn("run rejected, another run is in progress", map[string]interface{}{"trigger": trigger})
		return nil, errors.NewRunInProgressError()
	}
	defer c.mu.Unlock()

	start := time.Now()
	summary, err := c.pipeline.Run(ctx, dryRun)

	status := "success"
	if err != nil {
		status = "failed"
	}
	if c.recorder != nil {
		c.recorder.RecordRun(ctx, trigger, status, time.Since(start))
	}
	if err != nil {
		c.logger.Error("run failed", map[string]interface{}{"trigger": trigger, "error": err.Error()})
		return summary, errors.NewRunFailedError(err)
	}
	return summary, nil
}
