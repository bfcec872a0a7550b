package logger

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics shared by the scanner services

var (
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "http_request_duration_seconds",
			Help: "Duration of HTTP requests in seconds",
		},
		[]string{"method", "endpoint", "status"},
	)

	RequestTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	// ScanTotal counts scans by outcome (ok, no_data, source_error, timeout)
	ScanTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scan_requests_total",
			Help: "Total number of venue scans",
		},
		[]string{"timeframe", "outcome"},
	)

	ScanDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "scan_duration_seconds",
			Help:    "Duration of a full scan pipeline in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"timeframe"},
	)

	// SourceFetchTotal counts fetches by source and outcome (items, empty, failed)
	SourceFetchTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "source_fetch_total",
			Help: "Total number of item source fetches",
		},
		[]string{"source", "outcome"},
	)

	FallbackTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "intake_fallback_total",
			Help: "Number of scans that fell back to the secondary source",
		},
	)

	RulesLoadFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "scoring_rules_load_failures_total",
			Help: "Number of times scoring rules could not be loaded and defaults were used",
		},
	)
)
