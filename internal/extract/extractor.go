// Package extract turns scraped source text into raw deal objects with a
// hosted language model.
package extract

import (
	"context"
	stderrors "errors"
	"time"

	"deal-tracker/internal/common/errors"
	"deal-tracker/internal/common/logger"
	"deal-tracker/internal/models"
)

// Completer sends one prompt to a model and returns its text answer.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
	Provider() string
	Model() string
}

// Extractor is the contract the pipeline consumes.
type Extractor interface {
	Extract(ctx context.Context, req models.ExtractionRequest) ([]models.RawDeal, error)
}

// LLMExtractor builds the prompt, calls a Completer and parses its answer.
type LLMExtractor struct {
	completer Completer
	timeout   time.Duration
	logger    logger.Logger
}

func NewLLMExtractor(completer Completer, timeout time.Duration, log logger.Logger) *LLMExtractor {
	return &LLMExtractor{
		completer: completer,
		timeout:   timeout,
		logger:    log.With(map[string]interface{}{"component": "extractor", "provider": completer.Provider()}),
	}
}

func (e *LLMExtractor) Extract(ctx context.Context, req models.ExtractionRequest) ([]models.RawDeal, error) {
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	answer, err := e.completer.Complete(ctx, BuildPrompt(req))
	if err != nil {
		if stderrors.Is(err, context.DeadlineExceeded) {
			return nil, errors.NewExtractionTimeoutError(e.completer.Provider(), err)
		}
		if _, ok := errors.AsStandardError(err); ok {
			return nil, err
		}
		return nil, errors.NewExtractionFailedError(e.completer.Provider(), err)
	}

	res, err := ParseResponse(answer)
	if err != nil {
		e.logger.Warn("unparseable extractor response", map[string]interface{}{
			"source": req.SourceName,
			"error":  err.Error(),
		})
		return nil, err
	}
	for _, w := range res.Warnings {
		e.logger.Debug("extractor schema deviation", map[string]interface{}{"source": req.SourceName, "detail": w})
	}
	return res.Deals, nil
}
