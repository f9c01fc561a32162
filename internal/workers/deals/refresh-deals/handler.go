// internal/workers/deals/refresh-deals/handler.go
package refreshdeals

import (
	"context"
	"encoding/json"
	"fmt"

	"deal-tracker/internal/common/errors"
	"deal-tracker/internal/common/logger"
	"deal-tracker/internal/pipeline"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const (
	TaskType = "refresh-deals"
	trigger  = "worker"
)

// Runner is implemented by *app.Coordinator.
type Runner interface {
	Run(ctx context.Context, trigger string, dryRun bool) (*pipeline.Summary, error)
}

// JobRecorder is implemented by *observability.Observability.
type JobRecorder interface {
	RecordJobProcessed(ctx context.Context, status string)
}

type Handler struct {
	config   *Config
	runner   Runner
	recorder JobRecorder
	errors   *errors.ErrorHandler
	logger   logger.Logger
}

func NewHandler(config *Config, runner Runner, recorder JobRecorder, log logger.Logger) *Handler {
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:   config,
		runner:   runner,
		recorder: recorder,
		errors:   errors.NewErrorHandler(log),
		logger:   log,
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) error {
	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	ctx := context.Background()

	input, err := ParseInput(job.Variables)
	if err != nil {
		h.record(ctx, "failed")
		h.errors.HandleJobError(ctx, client, job, err)
		return err
	}

	runCtx, cancel := context.WithTimeout(ctx, h.config.Timeout)
	defer cancel()

	output, err := h.execute(runCtx, input)
	if err != nil {
		h.record(ctx, "failed")
		h.errors.HandleJobError(ctx, client, job, err)
		return err
	}

	if err := h.completeJob(ctx, client, job, output); err != nil {
		h.record(ctx, "failed")
		return err
	}
	h.record(ctx, "completed")
	return nil
}

// ParseInput decodes job variables. Missing variables mean a live run.
func ParseInput(variables string) (*Input, error) {
	input := &Input{}
	if variables == "" {
		return input, nil
	}

	var doc interface{}
	if err := json.Unmarshal([]byte(variables), &doc); err != nil {
		return nil, errors.NewConfigInvalidError(fmt.Errorf("parse job variables: %w", err))
	}
	if err := inputSchema.Validate(doc).Err(); err != nil {
		return nil, errors.NewConfigInvalidError(err)
	}
	if err := json.Unmarshal([]byte(variables), input); err != nil {
		return nil, errors.NewConfigInvalidError(fmt.Errorf("parse job variables: %w", err))
	}
	return input, nil
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	summary, err := h.runner.Run(ctx, trigger, input.DryRun)
	if err != nil {
		return nil, err
	}

	output := &Output{
		RunID:             summary.RunID,
		DryRun:            input.DryRun,
		SourcesScraped:    summary.SourcesScraped,
		DealsExtracted:    summary.CandidatesExtracted,
		DuplicatesSkipped: summary.DuplicatesSkipped,
		DealsInserted:     summary.Inserted,
		Errors:            append([]string{}, summary.Errors...),
		DurationMS:        summary.DurationMS(),
	}

	h.logger.Info("refresh completed", map[string]interface{}{
		"runId":          output.RunID,
		"dryRun":         output.DryRun,
		"sourcesScraped": output.SourcesScraped,
		"dealsExtracted": output.DealsExtracted,
		"dealsInserted":  output.DealsInserted,
	})
	return output, nil
}

func (h *Handler) completeJob(ctx context.Context, client worker.JobClient, job entities.Job, output *Output) error {
	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(output)
	if err != nil {
		h.logger.Error("failed to create complete job command", map[string]interface{}{
			"error": err,
		})
		return err
	}
	if _, err := cmd.Send(ctx); err != nil {
		h.logger.Error("failed to send complete job command", map[string]interface{}{
			"error": err,
		})
		return errors.NewWorkflowUnavailableError("complete-job", err)
	}
	h.logger.Info("job completed successfully", map[string]interface{}{
		"jobKey": job.Key,
	})
	return nil
}

func (h *Handler) record(ctx context.Context, status string) {
	if h.recorder != nil {
		h.recorder.RecordJobProcessed(ctx, status)
	}
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
