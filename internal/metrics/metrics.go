// Package metrics exposes the Prometheus counters and histograms SPEC_FULL.md's
// domain stack calls for: job queue depth, job latency, lock wait time, and
// status-transition counts. Grounded on
// Jeeves-Cluster-Organization-jeeves-core's coreengine/observability/metrics.go
// (promauto.NewCounterVec/NewHistogramVec grouped by subsystem, with a
// package-level Record* function per concern) rather than a bespoke
// collector, since that shape is the one the pack's own gRPC/pipeline
// metrics already use.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	queueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "swarm_queue_depth",
		Help: "Number of jobs currently sitting in the shared job queue.",
	})

	jobDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "swarm_job_duration_seconds",
		Help:    "Wall-clock time from a job's Pending enqueue to its terminal status.",
		Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 30},
	})

	jobStatusTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "swarm_job_status_total",
		Help: "Count of jobs reaching each terminal status.",
	}, []string{"status"})

	lockWaitSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "swarm_lock_wait_seconds",
		Help:    "Time spent retrying a named lock's SETNX before acquiring it.",
		Buckets: []float64{0.0001, 0.001, 0.01, 0.05, 0.1, 0.5, 1, 5},
	}, []string{"lock"})

	lockTimeoutsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "swarm_lock_timeouts_total",
		Help: "Count of lock acquisitions that exhausted LOCK_MAX_RETRIES.",
	}, []string{"lock"})
)

// SetQueueDepth reports internal/queue's estimate of the shared job queue
// length: the pushes minus pops this process has made (Queue.Queue and
// Queue.WorkOnce), not a live read of the shared list.
func SetQueueDepth(n int) { queueDepth.Set(float64(n)) }

// ObserveJobDuration records how long a job took from enqueue to terminal
// status.
func ObserveJobDuration(seconds float64) { jobDurationSeconds.Observe(seconds) }

// RecordJobStatus increments the terminal-status counter for status
// ("SUCCESS" or "FAILURE").
func RecordJobStatus(status string) { jobStatusTotal.WithLabelValues(status).Inc() }

// ObserveLockWait records how long a named lock's acquisition loop spent
// retrying before it succeeded. An acquisition that gives up is counted by
// RecordLockTimeout only.
func ObserveLockWait(name string, seconds float64) {
	lockWaitSeconds.WithLabelValues(name).Observe(seconds)
}

// RecordLockTimeout increments the named lock's LOCK_TIMEOUT counter.
func RecordLockTimeout(name string) { lockTimeoutsTotal.WithLabelValues(name).Inc() }

// Handler returns the HTTP handler cmd/swarm mounts at /metrics.
func Handler() http.Handler { return promhttp.Handler() }
