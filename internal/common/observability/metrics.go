package observability

import (
	"context"
	"fmt"
	"time"

	promclient "github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	otelmetric "go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/sdk/metric"
)

// Observability owns the OpenTelemetry meter and tracer providers. Metrics are
// exported through the default Prometheus registry and served by /metrics.
type Observability struct {
	meterProvider  *metric.MeterProvider
	tracerShutdown func(context.Context) error
	meter          otelmetric.Meter
	runCounter     otelmetric.Int64Counter
	runDuration    otelmetric.Float64Histogram
	jobCounter     otelmetric.Int64Counter
}

type Options struct {
	ServiceName    string
	TracingEnabled bool
	JaegerEndpoint string
	// Registerer defaults to the Prometheus default registerer.
	Registerer promclient.Registerer
}

func New(opts Options) (*Observability, error) {
	if opts.Registerer == nil {
		opts.Registerer = promclient.DefaultRegisterer
	}
	exporter, err := prometheus.New(prometheus.WithRegisterer(opts.Registerer))
	if err != nil {
		return nil, fmt.Errorf("create prometheus exporter: %w", err)
	}

	provider := metric.NewMeterProvider(metric.WithReader(exporter))
	otel.SetMeterProvider(provider)

	o := &Observability{meterProvider: provider, meter: provider.Meter(opts.ServiceName)}

	o.runCounter, _ = o.meter.Int64Counter(
		"runs.completed",
		otelmetric.WithDescription("Number of pipeline runs by trigger and outcome"),
	)
	o.runDuration, _ = o.meter.Float64Histogram(
		"runs.duration",
		otelmetric.WithDescription("Pipeline run duration"),
		otelmetric.WithUnit("ms"),
	)
	o.jobCounter, _ = o.meter.Int64Counter(
		"jobs.processed",
		otelmetric.WithDescription("Number of workflow jobs processed"),
	)

	if opts.TracingEnabled && opts.JaegerEndpoint != "" {
		shutdown, err := setupTracing(opts.ServiceName, opts.JaegerEndpoint)
		if err != nil {
			provider.Shutdown(context.Background())
			return nil, err
		}
		o.tracerShutdown = shutdown
	}

	return o, nil
}

// RecordRun counts a finished run. trigger is cli, http, cron or worker.
func (o *Observability) RecordRun(ctx context.Context, trigger, status string, duration time.Duration) {
	attrs := otelmetric.WithAttributes(
		attribute.String("trigger", trigger),
		attribute.String("status", status),
	)
	if o.runCounter != nil {
		o.runCounter.Add(ctx, 1, attrs)
	}
	if o.runDuration != nil {
		o.runDuration.Record(ctx, float64(duration.Milliseconds()), attrs)
	}
}

func (o *Observability) RecordJobProcessed(ctx context.Context, status string) {
	if o.jobCounter != nil {
		o.jobCounter.Add(ctx, 1, otelmetric.WithAttributes(
			attribute.String("status", status),
		))
	}
}

func (o *Observability) Shutdown(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if o.tracerShutdown != nil {
		o.tracerShutdown(ctx)
	}
	if o.meterProvider != nil {
		o.meterProvider.Shutdown(ctx)
	}
}
