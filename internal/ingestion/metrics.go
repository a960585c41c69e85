package ingestion

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	runsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "faac_ingestion_runs_total",
			Help: "Ingestion runs by outcome",
		},
		[]string{"outcome"}, // success, failed, no-data
	)

	recordsWritten = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "faac_ingestion_records_written_total",
			Help: "Allocation rows written by ingestion",
		},
	)

	rowsDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "faac_ingestion_rows_dropped_total",
			Help: "Worksheet rows dropped during extraction",
		},
		[]string{"reason"}, // unresolved, empty, duplicate
	)

	runDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "faac_ingestion_run_duration_seconds",
			Help:    "Wall time of ingestion runs",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120},
		},
	)

	sourceAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "faac_ingestion_source_attempts_total",
			Help: "Candidate source downloads by result",
		},
		[]string{"result"}, // accepted, rejected, error
	)
)
