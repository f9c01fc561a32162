package observability

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObservability_RecordsToPrometheus(t *testing.T) {
	reg := prometheus.NewRegistry()
	o, err := New(Options{ServiceName: "deal-tracker-test", Registerer: reg})
	require.NoError(t, err)
	defer o.Shutdown(context.Background())

	o.RecordRun(context.Background(), "cli", "ok", 1500*time.Millisecond)
	o.RecordJobProcessed(context.Background(), "completed")

	rec := httptest.NewRecorder()
	promhttp.HandlerFor(reg, promhttp.HandlerOpts{}).ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body := rec.Body.String()

	assert.Contains(t, body, "runs_completed")
	assert.Contains(t, body, `trigger="cli"`)
	assert.Contains(t, body, "jobs_processed")
}

func TestObservability_TracingWithoutEndpointIsNoop(t *testing.T) {
	o, err := New(Options{ServiceName: "deal-tracker-test", TracingEnabled: true, Registerer: prometheus.NewRegistry()})
	require.NoError(t, err)
	assert.Nil(t, o.tracerShutdown)
	o.Shutdown(context.Background())
}
