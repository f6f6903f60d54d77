// Package metrics counts the API traffic of one report run.
//
// Every counter lives on a per-run Prometheus registry rather than the global
// default, so two runs in one process (tests, the projects subcommand) never
// share state. The registry can be written in the node_exporter textfile
// format for cron-driven report jobs.
//
// A nil *Recorder is valid and records nothing.
package metrics

import (
	"strconv"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Recorder tracks requests, retries and run-level gauges
type Recorder struct {
	registry *prometheus.Registry

	requests        *prometheus.CounterVec
	requestDuration prometheus.Histogram
	retries         *prometheus.CounterVec
	retryBackoff    prometheus.Histogram
	exhausted       *prometheus.CounterVec
	failedProjects  prometheus.Gauge
	clusters        prometheus.Gauge
	runDuration     prometheus.Gauge

	totalRequests atomic.Int64
	totalRetries  atomic.Int64
}

// NewRecorder creates a recorder with its own registry
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "atlas_report_requests_total",
			Help: "Atlas API requests issued, by HTTP status (0 = network error)",
		}, []string{"status"}),
		requestDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "atlas_report_request_duration_seconds",
			Help:    "Atlas API request latency",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		}),
		retries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "atlas_report_retries_total",
			Help: "Page requests re-issued after a retriable failure, by error kind",
		}, []string{"kind"}),
		retryBackoff: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "atlas_report_retry_backoff_seconds",
			Help:    "Backoff waited before a retry",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
		}),
		exhausted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "atlas_report_retries_exhausted_total",
			Help: "Page requests that failed after spending every attempt, by last error kind",
		}, []string{"kind"}),
		failedProjects: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "atlas_report_failed_projects",
			Help: "Projects whose clusters could not be fetched in the last run",
		}),
		clusters: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "atlas_report_clusters",
			Help: "Clusters reported in the last run",
		}),
		runDuration: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "atlas_report_run_duration_seconds",
			Help: "Wall-clock duration of the last run",
		}),
	}

	r.registry.MustRegister(
		r.requests,
		r.requestDuration,
		r.retries,
		r.retryBackoff,
		r.exhausted,
		r.failedProjects,
		r.clusters,
		r.runDuration,
	)
	return r
}

// ObserveRequest records one HTTP round trip; status 0 means no response
func (r *Recorder) ObserveRequest(status int, d time.Duration) {
	if r == nil {
		return
	}
	r.totalRequests.Add(1)
	r.requests.WithLabelValues(strconv.Itoa(status)).Inc()
	r.requestDuration.Observe(d.Seconds())
}

// ObserveRetry records a retry decision and the backoff chosen for it
func (r *Recorder) ObserveRetry(kind string, delay time.Duration) {
	if r == nil {
		return
	}
	r.totalRetries.Add(1)
	r.retries.WithLabelValues(kind).Inc()
	r.retryBackoff.Observe(delay.Seconds())
}

// ObserveExhausted records a request that ran out of attempts
func (r *Recorder) ObserveExhausted(kind string) {
	if r == nil {
		return
	}
	r.exhausted.WithLabelValues(kind).Inc()
}

// ObserveRun sets the run-level gauges
func (r *Recorder) ObserveRun(clusters, failedProjects int, elapsed time.Duration) {
	if r == nil {
		return
	}
	r.clusters.Set(float64(clusters))
	r.failedProjects.Set(float64(failedProjects))
	r.runDuration.Set(elapsed.Seconds())
}

// Requests returns the number of HTTP requests issued so far
func (r *Recorder) Requests() int64 {
	if r == nil {
		return 0
	}
	return r.totalRequests.Load()
}

// Retries returns the number of retries performed so far
func (r *Recorder) Retries() int64 {
	if r == nil {
		return 0
	}
	return r.totalRetries.Load()
}

// Registry exposes the underlying registry for gathering
func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

// WriteTextfile writes all metrics atomically to path in the text exposition format
func (r *Recorder) WriteTextfile(path string) error {
	if r == nil {
		return nil
	}
	return prometheus.WriteToTextfile(path, r.registry)
}
