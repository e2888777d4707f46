package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	register(
		jobsEnqueuedTotal,
		jobTransitionsTotal,
		generationLatencyMs,
		jobsReapedTotal,
		jobsByStatus,
	)
}

var (
	jobsEnqueuedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jobs_enqueued_total",
			Help: "Enqueue calls by job type and outcome (created a job or joined an in-flight one).",
		},
		[]string{"type", "outcome"}, // outcome: created|joined
	)

	jobTransitionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "job_transitions_total",
			Help: "Successful job status transitions by job type and new status.",
		},
		[]string{"type", "status"},
	)

	generationLatencyMs = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "generation_latency_ms",
			Help:    "Wall time of external generation calls in milliseconds.",
			Buckets: []float64{250, 500, 1000, 2500, 5000, 10000, 30000, 60000, 120000, 300000, 600000},
		},
		[]string{"type", "success"},
	)

	jobsReapedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "jobs_reaped_total",
			Help: "Running jobs failed by the stale job reaper.",
		},
	)

	jobsByStatus = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "jobs_by_status",
			Help: "Current number of jobs by status.",
		},
		[]string{"status"},
	)
)

func IncJobEnqueued(jobType string, created bool) {
	outcome := "joined"
	if created {
		outcome = "created"
	}
	jobsEnqueuedTotal.WithLabelValues(norm(jobType), outcome).Inc()
}

func IncJobTransition(jobType, status string) {
	jobTransitionsTotal.WithLabelValues(norm(jobType), norm(status)).Inc()
}

func ObserveGeneration(jobType string, d time.Duration, success bool) {
	generationLatencyMs.WithLabelValues(norm(jobType), strconv.FormatBool(success)).
		Observe(float64(d.Milliseconds()))
}

func IncJobsReaped(n int) {
	jobsReapedTotal.Add(float64(n))
}

func SetJobsByStatus(counts map[string]int) {
	for _, s := range []string{"pending", "running", "completed", "failed"} {
		jobsByStatus.WithLabelValues(s).Set(float64(counts[s]))
	}
}
