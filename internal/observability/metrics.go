// Package observability records client operation metrics.
package observability

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Recorder receives operation outcomes from the API client, the query cache and
// the export worker.
type Recorder interface {
	// Observe records one operation outcome and its latency.
	Observe(ctx context.Context, operation string, success bool, duration time.Duration)
	// CacheRefreshed counts a completed collection fetch by outcome (ok, error).
	CacheRefreshed(key, outcome string)
	// StaleDropped counts responses discarded because a newer one was already applied.
	StaleDropped(key string)
}

// Nop discards everything.
type Nop struct{}

func (Nop) Observe(context.Context, string, bool, time.Duration) {}
func (Nop) CacheRefreshed(string, string)                        {}
func (Nop) StaleDropped(string)                                  {}

// PrometheusRecorder publishes operation histograms and cache counters.
type PrometheusRecorder struct {
	durations *prometheus.HistogramVec
	results   *prometheus.CounterVec
	refreshes *prometheus.CounterVec
	stale     *prometheus.CounterVec
}

// NewPrometheus registers the civicdesk collectors with reg. A nil reg uses a
// private registry, which keeps tests independent of the global one.
func NewPrometheus(reg prometheus.Registerer) (*PrometheusRecorder, error) {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	r := &PrometheusRecorder{
		durations: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "civicdesk",
			Name:      "operation_duration_seconds",
			Help:      "Latency of API, cache and export operations.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		results: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "civicdesk",
			Name:      "operation_results_total",
			Help:      "Operation outcomes by status.",
		}, []string{"operation", "status"}),
		refreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "civicdesk",
			Name:      "cache_refreshes_total",
			Help:      "Completed collection fetches by outcome.",
		}, []string{"collection", "outcome"}),
		stale: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "civicdesk",
			Name:      "cache_stale_responses_total",
			Help:      "Fetch responses discarded because a later request already landed.",
		}, []string{"collection"}),
	}
	for _, c := range []prometheus.Collector{r.durations, r.results, r.refreshes, r.stale} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Observe implements Recorder.
func (r *PrometheusRecorder) Observe(_ context.Context, operation string, success bool, duration time.Duration) {
	if operation == "" {
		return
	}
	status := "error"
	if success {
		status = "success"
	}
	r.durations.WithLabelValues(operation).Observe(duration.Seconds())
	r.results.WithLabelValues(operation, status).Inc()
}

// CacheRefreshed implements Recorder.
func (r *PrometheusRecorder) CacheRefreshed(key, outcome string) {
	r.refreshes.WithLabelValues(key, outcome).Inc()
}

// StaleDropped implements Recorder.
func (r *PrometheusRecorder) StaleDropped(key string) {
	r.stale.WithLabelValues(key).Inc()
}
