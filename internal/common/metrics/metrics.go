// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	WorkerJobsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_completed_total",
			Help: "Total number of jobs completed by worker",
		},
		[]string{"task_type"},
	)

	WorkerJobsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_failed_total",
			Help: "Total number of jobs failed by worker",
		},
		[]string{"task_type", "error_code"},
	)

	WorkerJobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "worker_job_duration_seconds",
			Help: "Duration of job processing in seconds",
		},
		[]string{"task_type"},
	)

	WorkerJobsActive = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "worker_jobs_active",
			Help: "Number of active jobs per worker",
		},
		[]string{"task_type"},
	)

	RecognitionAttempts = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "recognition_attempts_total",
			Help: "Total number of intent recognition requests",
		},
	)

	RecognitionAccepted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recognition_accepted_total",
			Help: "Recognition requests accepted, by tier",
		},
		[]string{"tier"},
	)

	RecognitionFallbacks = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "recognition_fallbacks_total",
			Help: "Recognition requests that exhausted all tiers",
		},
	)

	RecognitionTierDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "recognition_tier_duration_seconds",
			Help: "Duration of each recognition tier invocation",
		},
		[]string{"tier"},
	)

	QueriesExecuted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "warehouse_queries_executed_total",
			Help: "Compiled metric queries executed against the warehouse",
		},
		[]string{"status"},
	)

	QueryExecutionDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name: "warehouse_query_duration_seconds",
			Help: "Wall time of warehouse query execution",
		},
	)
)
