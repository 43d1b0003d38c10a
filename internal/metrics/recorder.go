// Package metrics records Prometheus metrics for a single run and writes them
// in the node_exporter textfile format, so a cron-driven run can be scraped
// after it exits.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/sirseerhq/rds-pgbadger/internal/metadata"
)

const namespace = "rds_pgbadger"

// Recorder collects the metrics of one run in a private registry.
type Recorder struct {
	registry *prometheus.Registry

	apiCalls          *prometheus.CounterVec
	truncationRetries prometheus.Counter
	filesDownloaded   prometheus.Counter
	bytesWritten      prometheus.Counter
	fileSizeBytes     prometheus.Histogram
	durationSeconds   *prometheus.GaugeVec
	lastRunSuccess    prometheus.Gauge
	lastRunTimestamp  prometheus.Gauge
}

// New creates a Recorder with all metrics registered. The instance label is
// attached to every series.
func New(instance string) *Recorder {
	labels := prometheus.Labels{"instance_id": instance}
	r := &Recorder{registry: prometheus.NewRegistry()}

	r.apiCalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "api_calls_total",
			Help:        "RDS API calls made, by operation.",
			ConstLabels: labels,
		},
		[]string{"operation"},
	)

	r.truncationRetries = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace:   namespace,
		Name:        "truncation_retries_total",
		Help:        "Portions re-requested with fewer lines after RDS truncated them.",
		ConstLabels: labels,
	})

	r.filesDownloaded = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace:   namespace,
		Name:        "files_downloaded_total",
		Help:        "Log files downloaded completely.",
		ConstLabels: labels,
	})

	r.bytesWritten = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace:   namespace,
		Name:        "bytes_written_total",
		Help:        "Bytes of log data written to disk.",
		ConstLabels: labels,
	})

	// Buckets: 1KB, 10KB, 100KB, 1MB, 10MB, 100MB, 1GB
	r.fileSizeBytes = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace:   namespace,
		Name:        "file_size_bytes",
		Help:        "Size of downloaded log files.",
		ConstLabels: labels,
		Buckets:     prometheus.ExponentialBuckets(1024, 10, 7),
	})

	r.durationSeconds = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace:   namespace,
			Name:        "phase_duration_seconds",
			Help:        "Wall time spent in each phase of the last run.",
			ConstLabels: labels,
		},
		[]string{"phase"},
	)

	r.lastRunSuccess = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace:   namespace,
		Name:        "last_run_success",
		Help:        "1 if the last run completed without error.",
		ConstLabels: labels,
	})

	r.lastRunTimestamp = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace:   namespace,
		Name:        "last_run_timestamp_seconds",
		Help:        "Unix time the last run finished.",
		ConstLabels: labels,
	})

	r.registry.MustRegister(
		r.apiCalls,
		r.truncationRetries,
		r.filesDownloaded,
		r.bytesWritten,
		r.fileSizeBytes,
		r.durationSeconds,
		r.lastRunSuccess,
		r.lastRunTimestamp,
	)

	return r
}

// Registry exposes the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// OnAPICall counts one RDS API call.
func (r *Recorder) OnAPICall(operation string) {
	r.apiCalls.WithLabelValues(operation).Inc()
}

// OnTruncation counts one truncation retry.
func (r *Recorder) OnTruncation(string, int, int) {
	r.truncationRetries.Inc()
}

// OnFileDone records a completed file.
func (r *Recorder) OnFileDone(f metadata.FileResult) {
	r.filesDownloaded.Inc()
	r.bytesWritten.Add(float64(f.Bytes))
	r.fileSizeBytes.Observe(float64(f.Bytes))
}

// ObservePhase records how long a phase ("download", "report", "upload") took.
func (r *Recorder) ObservePhase(phase string, d time.Duration) {
	r.durationSeconds.WithLabelValues(phase).Set(d.Seconds())
}

// Finish records the outcome of the run.
func (r *Recorder) Finish(err error, at time.Time) {
	if err == nil {
		r.lastRunSuccess.Set(1)
	} else {
		r.lastRunSuccess.Set(0)
	}
	r.lastRunTimestamp.Set(float64(at.Unix()))
}

// WriteTextfile writes all metrics to path atomically.
func (r *Recorder) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("failed to write metrics file: %w", err)
	}
	return nil
}
