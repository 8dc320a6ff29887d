package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "minimarket"

// Load sources
const (
	SourceCache = "cache"
	SourceStore = "store"
)

// Metrics holds the profile persistence collectors.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	saveAttempts   *prometheus.CounterVec
	saveResults    *prometheus.CounterVec
	loads          *prometheus.CounterVec
	retryExhausted prometheus.Counter
	writeDuration  prometheus.Histogram
	cacheSize      prometheus.Gauge
}

// New registers the collectors with reg
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		saveAttempts: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "save_attempts_total",
			Help:      "Individual store write attempts by outcome",
		}, []string{"status"}),
		saveResults: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "saves_total",
			Help:      "Profile saves by final outcome",
		}, []string{"status"}),
		loads: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "loads_total",
			Help:      "Profile loads by the source that served them",
		}, []string{"source"}),
		retryExhausted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "save_retries_exhausted_total",
			Help:      "Saves that failed on every attempt",
		}),
		writeDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "store_write_duration_seconds",
			Help:      "Time to write and verify one record",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		}),
		cacheSize: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "cached_profiles",
			Help:      "Profiles currently held in the registry cache",
		}),
	}
}

func status(ok bool) string {
	if ok {
		return "success"
	}
	return "failure"
}

func (m *Metrics) ObserveAttempt(ok bool, took time.Duration) {
	if m == nil {
		return
	}
	m.saveAttempts.WithLabelValues(status(ok)).Inc()
	m.writeDuration.Observe(took.Seconds())
}

func (m *Metrics) ObserveSave(ok bool) {
	if m == nil {
		return
	}
	m.saveResults.WithLabelValues(status(ok)).Inc()
}

func (m *Metrics) ObserveLoad(source string) {
	if m == nil {
		return
	}
	m.loads.WithLabelValues(source).Inc()
}

func (m *Metrics) ObserveExhausted() {
	if m == nil {
		return
	}
	m.retryExhausted.Inc()
}

func (m *Metrics) SetCacheSize(n int) {
	if m == nil {
		return
	}
	m.cacheSize.Set(float64(n))
}
