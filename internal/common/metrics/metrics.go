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
			Name:    "worker_job_duration_seconds",
			Help:    "Duration of job processing in seconds",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600},
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
)

var (
	FulfillmentRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fulfillment_runs_total",
			Help: "Fulfillment runs by outcome",
		},
		[]string{"outcome"},
	)

	FulfillmentTrackOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fulfillment_track_outcomes_total",
			Help: "Track results by track and outcome",
		},
		[]string{"track", "outcome"},
	)

	FulfillmentNotifications = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fulfillment_notifications_total",
			Help: "Emails sent by template and result",
		},
		[]string{"template", "result"},
	)

	FulfillmentAutomationInvocations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fulfillment_automation_invocations_total",
			Help: "Browser automation invocations by operation and outcome",
		},
		[]string{"operation", "outcome"},
	)

	FulfillmentLockContention = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "fulfillment_lock_contention_total",
			Help: "Triggers refused because a run for the same application was in flight",
		},
	)
)

func ResultLabel(err error) string {
	if err != nil {
		return "failure"
	}
	return "success"
}
