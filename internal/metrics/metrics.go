package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "scratchcard",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Total HTTP requests",
	}, []string{"method", "route", "status"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "scratchcard",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency",
		Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
	}, []string{"method", "route"})

	// Transaction log
	TransactionsRecorded = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "scratchcard",
		Subsystem: "ingest",
		Name:      "transactions_recorded_total",
		Help:      "Transaction log records written",
	}, []string{"action"})

	EventSyncRecords = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "scratchcard",
		Subsystem: "event_sync",
		Name:      "records_total",
		Help:      "Records written by the chain event sync",
	})

	EventSyncErrors = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "scratchcard",
		Subsystem: "event_sync",
		Name:      "errors_total",
		Help:      "Failed event sync passes",
	})

	// Batch
	BatchRunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "scratchcard",
		Subsystem: "batch",
		Name:      "runs_total",
		Help:      "Batch runs by outcome",
	}, []string{"outcome"})

	BatchRunDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "scratchcard",
		Subsystem: "batch",
		Name:      "run_duration_seconds",
		Help:      "Batch run duration",
		Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600, 1200},
	})

	BatchScratchesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "scratchcard",
		Subsystem: "batch",
		Name:      "scratches_total",
		Help:      "Scratch cards played by batch runs",
	})

	BatchClaimsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "scratchcard",
		Subsystem: "batch",
		Name:      "claims_total",
		Help:      "Claims submitted by batch runs",
	})
)
