// internal/workers/deals/refresh-deals/handler_test.go
package refreshdeals

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"deal-tracker/internal/common/errors"
	"deal-tracker/internal/common/logger"
	"deal-tracker/internal/pipeline"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRunner struct {
	summary *pipeline.Summary
	err     error

	calls   int
	trigger string
	dryRun  bool
}

func (f *fakeRunner) Run(_ context.Context, trigger string, dryRun bool) (*pipeline.Summary, error) {
	f.calls++
	f.trigger = trigger
	f.dryRun = dryRun
	return f.summary, f.err
}

func createTestConfig() *Config {
	return &Config{Timeout: time.Minute}
}

func TestParseInput(t *testing.T) {
	tests := []struct {
		name      string
		variables string
		want      bool
		wantErr   bool
	}{
		{"empty variables", "", false, false},
		{"empty object", "{}", false, false},
		{"dry run", `{"dryRun": true}`, true, false},
		{"other process variables", `{"dryRun": false, "requestedBy": "ops"}`, false, false},
		{"wrong type", `{"dryRun": "yes"}`, false, true},
		{"not json", `{dryRun`, false, true},
		{"not an object", `[true]`, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			input, err := ParseInput(tt.variables)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.HasCode(err, errors.ErrCodeConfigInvalid))
				assert.False(t, errors.IsRetryable(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, input.DryRun)
		})
	}
}

func TestHandler_Execute_Success(t *testing.T) {
	runner := &fakeRunner{summary: &pipeline.Summary{
		RunID:               "run-1",
		SourcesScraped:      4,
		CandidatesExtracted: 7,
		DuplicatesSkipped:   2,
		Inserted:            5,
		Duration:            1500 * time.Millisecond,
		Errors:              []string{"PE Hub: status 503"},
	}}
	handler := NewHandler(createTestConfig(), runner, nil, logger.NewTestLogger(t))

	output, err := handler.Execute(context.Background(), &Input{})
	require.NoError(t, err)

	assert.Equal(t, 1, runner.calls)
	assert.Equal(t, "worker", runner.trigger)
	assert.False(t, runner.dryRun)

	assert.Equal(t, "run-1", output.RunID)
	assert.Equal(t, 4, output.SourcesScraped)
	assert.Equal(t, 7, output.DealsExtracted)
	assert.Equal(t, 2, output.DuplicatesSkipped)
	assert.Equal(t, 5, output.DealsInserted)
	assert.Equal(t, int64(1500), output.DurationMS)
	assert.Equal(t, []string{"PE Hub: status 503"}, output.Errors)
}

func TestHandler_Execute_DryRun(t *testing.T) {
	runner := &fakeRunner{summary: &pipeline.Summary{RunID: "run-2"}}
	handler := NewHandler(createTestConfig(), runner, nil, logger.NewTestLogger(t))

	output, err := handler.Execute(context.Background(), &Input{DryRun: true})
	require.NoError(t, err)

	assert.True(t, runner.dryRun)
	assert.True(t, output.DryRun)
	assert.NotNil(t, output.Errors)
	assert.Empty(t, output.Errors)
}

func TestHandler_Execute_RunFailure(t *testing.T) {
	runner := &fakeRunner{err: errors.NewRunFailedError(stderrors.New("store unreachable"))}
	handler := NewHandler(createTestConfig(), runner, nil, logger.NewTestLogger(t))

	output, err := handler.Execute(context.Background(), &Input{})
	require.Error(t, err)
	assert.Nil(t, output)
	assert.True(t, errors.HasCode(err, errors.ErrCodeRunFailed))

	stdErr, ok := errors.AsStandardError(err)
	require.True(t, ok)
	assert.Equal(t, 1, errors.ConvertToBPMNError(stdErr).Retries)
}

func TestHandler_Execute_RunInProgressIsTerminal(t *testing.T) {
	runner := &fakeRunner{err: errors.NewRunInProgressError()}
	handler := NewHandler(createTestConfig(), runner, nil, logger.NewTestLogger(t))

	_, err := handler.Execute(context.Background(), &Input{})
	require.Error(t, err)

	stdErr, ok := errors.AsStandardError(err)
	require.True(t, ok)
	assert.Equal(t, 0, errors.ConvertToBPMNError(stdErr).Retries)
}
