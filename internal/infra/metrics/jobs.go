package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(jobsProcessedTotal, jobsRecoveredTotal, jobDurationSeconds) }

var jobsProcessedTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "digest_jobs_processed_total",
		Help: "Total number of digest jobs processed, labeled by type and terminal status.",
	},
	[]string{"type", "status"}, // status: 'finished', 'failed'
)

var jobsRecoveredTotal = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "digest_jobs_recovered_total",
		Help: "Total number of stale running jobs force-failed at startup.",
	},
)

var jobDurationSeconds = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "digest_job_duration_seconds",
		Help:    "Wall-clock duration of digest jobs from claim to terminal state.",
		Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800},
	},
	[]string{"type"},
)

func IncJobProcessed(jobType, status string) {
	jobsProcessedTotal.WithLabelValues(norm(jobType), norm(status)).Inc()
}

func AddJobsRecovered(n int) {
	jobsRecoveredTotal.Add(float64(n))
}

func ObserveJobDuration(jobType string, seconds float64) {
	jobDurationSeconds.WithLabelValues(norm(jobType)).Observe(seconds)
}
