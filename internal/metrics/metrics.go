// Package metrics defines the Prometheus metrics exported by the service.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	RunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nudge_runs_total",
			Help: "Total number of due-task runs by result.",
		},
		[]string{"result"}, // ok, error
	)

	RunDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "nudge_run_duration_seconds",
			Help:    "Duration of due-task runs.",
			Buckets: prometheus.DefBuckets,
		},
	)

	ClaimsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nudge_task_claims_total",
			Help: "Total number of claim attempts by result.",
		},
		[]string{"result"}, // claimed, skipped
	)

	TaskOutcomesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nudge_task_outcomes_total",
			Help: "Total number of terminal task writes by kind and status.",
		},
		[]string{"kind", "status"},
	)

	TaskExecutionSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "nudge_task_execution_seconds",
			Help:    "Time spent executing a task strategy.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"kind"},
	)

	DeliveriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nudge_deliveries_total",
			Help: "Total number of notification send attempts by channel and result.",
		},
		[]string{"channel", "result"}, // success, failure
	)
)

func MustRegister(reg *prometheus.Registry) {
	reg.MustRegister(RunsTotal, RunDuration, ClaimsTotal, TaskOutcomesTotal, TaskExecutionSeconds, DeliveriesTotal)
}

// RecordRun records a finished run.
func RecordRun(err error, d time.Duration) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	RunsTotal.WithLabelValues(result).Inc()
	RunDuration.Observe(d.Seconds())
}

// RecordClaim records a claim attempt.
func RecordClaim(claimed bool) {
	if claimed {
		ClaimsTotal.WithLabelValues("claimed").Inc()
		return
	}
	ClaimsTotal.WithLabelValues("skipped").Inc()
}

// RecordOutcome records an applied terminal write and how long the strategy ran.
func RecordOutcome(kind, status string, d time.Duration) {
	TaskOutcomesTotal.WithLabelValues(kind, status).Inc()
	TaskExecutionSeconds.WithLabelValues(kind).Observe(d.Seconds())
}

// RecordDelivery records one send attempt.
func RecordDelivery(channel string, success bool) {
	result := "failure"
	if success {
		result = "success"
	}
	DeliveriesTotal.WithLabelValues(channel, result).Inc()
}
