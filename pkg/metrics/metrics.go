package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	StageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "support_stage_duration_seconds",
			Help:    "Duration of each ticket workflow stage in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"stage"},
	)

	StageFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "support_stage_failures_total",
			Help: "Total number of fatal stage failures",
		},
		[]string{"stage"},
	)

	Runs = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "support_runs_total",
			Help: "Total number of ticket workflow runs by outcome",
		},
		[]string{"outcome"},
	)

	OrderEnrichment = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "support_order_enrichment_total",
			Help: "Order enrichment results: skipped, found, degraded",
		},
		[]string{"result"},
	)

	RunsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "support_runs_active",
			Help: "Number of ticket workflow runs in flight",
		},
	)
)
