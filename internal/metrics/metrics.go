// Package metrics exposes scan counters and adapter latencies in the
// Prometheus text format.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "urlrisk"

// Recorder owns the collectors and the registry they are registered with.
// A nil *Recorder is valid and records nothing.
type Recorder struct {
	registry       *prometheus.Registry
	scans          *prometheus.CounterVec
	sourceResults  *prometheus.CounterVec
	sourceDuration *prometheus.HistogramVec
}

// New creates a Recorder with a private registry
func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		scans: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scans_total",
			Help:      "Completed URL scans by verdict.",
		}, []string{"verdict"}),
		sourceResults: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "source_results_total",
			Help:      "Signal source results by outcome.",
		}, []string{"source", "outcome"}),
		sourceDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "source_duration_seconds",
			Help:      "Time spent waiting on each signal source.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 4, 8, 16},
		}, []string{"source"}),
	}

	r.registry.MustRegister(
		r.scans,
		r.sourceResults,
		r.sourceDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return r
}

// ObserveScan counts a finished scan
func (r *Recorder) ObserveScan(verdict string) {
	if r == nil {
		return
	}
	r.scans.WithLabelValues(verdict).Inc()
}

// ObserveSource records one source's outcome and how long it took
func (r *Recorder) ObserveSource(source, outcome string, elapsed time.Duration) {
	if r == nil {
		return
	}
	r.sourceResults.WithLabelValues(source, outcome).Inc()
	r.sourceDuration.WithLabelValues(source).Observe(elapsed.Seconds())
}

// Registry returns the underlying registry
func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

// Handler serves the registry at /metrics
func (r *Recorder) Handler() http.Handler {
	if r == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}
