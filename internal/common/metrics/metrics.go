package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	StageTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "interview_stage_transitions_total",
			Help: "Total number of stage transitions by source and target stage",
		},
		[]string{"from", "to"},
	)

	StageFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "interview_stage_failures_total",
			Help: "Total number of failed stage operations",
		},
		[]string{"stage", "error_code"},
	)

	StageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "interview_stage_duration_seconds",
			Help:    "Time a candidate spent in a stage before advancing",
			Buckets: []float64{5, 30, 60, 300, 600, 1200, 1800, 3600},
		},
		[]string{"stage"},
	)

	OperationsInFlight = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "interview_operations_in_flight",
			Help: "Number of outstanding candidate operations",
		},
		[]string{"operation"},
	)

	APIRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "interview_api_requests_total",
			Help: "Total number of requests sent to the interview service",
		},
		[]string{"operation", "status"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "interview_api_request_duration_seconds",
			Help: "Duration of interview service requests in seconds",
		},
		[]string{"operation"},
	)

	IntegrityEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "interview_integrity_events_total",
			Help: "Total number of integrity events observed",
		},
		[]string{"kind"},
	)

	StaleResults = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "interview_stale_results_total",
			Help: "Results dropped because their stage was no longer current",
		},
		[]string{"stage"},
	)
)
