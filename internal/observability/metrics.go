package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus collectors for weather refreshes. It implements
// weather.Recorder.
type Metrics struct {
	FetchTotal    *prometheus.CounterVec // labels: outcome={success,no_connectivity,timeout,server_error,api_error,unknown}
	FetchDuration prometheus.Histogram
	RefreshRuns   *prometheus.CounterVec // labels: trigger, outcome={success,error,skipped}
	SnapshotAge   prometheus.Gauge
}

func newMetrics() *Metrics {
	return &Metrics{
		FetchTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "weather",
			Name:      "fetch_total",
			Help:      "Forecast fetches by classified outcome.",
		}, []string{"outcome"}),
		FetchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "weather",
			Name:      "fetch_duration_seconds",
			Help:      "Duration of a forecast fetch including normalization.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),
		RefreshRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "weather",
			Name:      "refresh_runs_total",
			Help:      "Background refresh runs by trigger and outcome.",
		}, []string{"trigger", "outcome"}),
		SnapshotAge: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "weather",
			Name:      "snapshot_age_seconds",
			Help:      "Age of the cached snapshot when preferences were last loaded.",
		}),
	}
}

// NewMetrics creates and registers all metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(m.FetchTotal, m.FetchDuration, m.RefreshRuns, m.SnapshotAge)
	return m
}

// NewMetricsForTesting creates Metrics that are not registered anywhere, so
// tests can build as many as they like.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func (m *Metrics) ObserveFetch(outcome string, d time.Duration) {
	m.FetchTotal.WithLabelValues(outcome).Inc()
	m.FetchDuration.Observe(d.Seconds())
}

func (m *Metrics) ObserveSnapshotAge(age time.Duration) {
	m.SnapshotAge.Set(age.Seconds())
}

func (m *Metrics) ObserveRun(trigger, outcome string) {
	m.RefreshRuns.WithLabelValues(trigger, outcome).Inc()
}
