package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	SourcesProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "deal_sources_processed_total",
			Help: "Sources processed per stage and outcome",
		},
		[]string{"stage", "outcome"},
	)

	CandidatesExtracted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "deal_candidates_extracted_total",
			Help: "Deal candidates returned by the extractor",
		},
	)

	CandidatesSkipped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "deal_candidates_skipped_total",
			Help: "Candidates dropped before persistence by reason",
		},
		[]string{"reason"},
	)

	DealsInserted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "deal_records_inserted_total",
			Help: "Deal records written to the store",
		},
	)

	RunDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "deal_pipeline_run_duration_seconds",
			Help:    "Duration of a pipeline run in seconds",
			Buckets: []float64{10, 30, 60, 120, 300, 600, 1200},
		},
		[]string{"mode"},
	)

	RunsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "deal_pipeline_runs_active",
			Help: "Pipeline runs currently in progress",
		},
	)
)
