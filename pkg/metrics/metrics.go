package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Cache lookup results
const (
	CacheHit        = "hit"
	CacheMiss       = "miss"
	CacheEmpty      = "empty"
	CacheStoreError = "store_error"
)

// Manager owns all prometheus collectors of the service
// ⭐ SSOT: 메트릭 정의는 여기서만
//
// A nil *Manager is valid and records nothing.
type Manager struct {
	registry *prometheus.Registry

	cacheLookups     *prometheus.CounterVec
	cacheWriteErrors *prometheus.CounterVec
	cacheSwept       prometheus.Counter

	upstreamRequests *prometheus.CounterVec
	upstreamLatency  *prometheus.HistogramVec

	analyses *prometheus.CounterVec
	scores   prometheus.Histogram

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
}

// New creates a manager registered on its own registry
func New() *Manager {
	reg := prometheus.NewRegistry()
	auto := promauto.With(reg)

	const ns = "finscore"

	return &Manager{
		registry: reg,
		cacheLookups: auto.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Subsystem: "cache",
			Name:      "lookups_total",
			Help:      "Fetch cache lookups by dataset and result",
		}, []string{"dataset", "result"}),
		cacheWriteErrors: auto.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Subsystem: "cache",
			Name:      "write_errors_total",
			Help:      "Failed cache writes (payload still returned to caller)",
		}, []string{"dataset"}),
		cacheSwept: auto.NewCounter(prometheus.CounterOpts{
			Namespace: ns,
			Subsystem: "cache",
			Name:      "swept_entries_total",
			Help:      "Expired cache entries physically removed by the sweep job",
		}),
		upstreamRequests: auto.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Subsystem: "upstream",
			Name:      "requests_total",
			Help:      "Market data provider requests by endpoint and outcome",
		}, []string{"endpoint", "outcome"}),
		upstreamLatency: auto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: ns,
			Subsystem: "upstream",
			Name:      "request_duration_seconds",
			Help:      "Market data provider request latency",
			Buckets:   prometheus.DefBuckets,
		}, []string{"endpoint"}),
		analyses: auto.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Subsystem: "analysis",
			Name:      "runs_total",
			Help:      "Financial analyses by outcome",
		}, []string{"outcome"}),
		scores: auto.NewHistogram(prometheus.HistogramOpts{
			Namespace: ns,
			Subsystem: "analysis",
			Name:      "score",
			Help:      "Distribution of computed financial scores",
			Buckets:   prometheus.LinearBuckets(0, 0.1, 11),
		}),
		httpRequests: auto.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by route and status code",
		}, []string{"route", "code"}),
		httpDuration: auto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: ns,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency by route",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
	}
}

// Handler exposes the registry for scraping
func (m *Manager) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying registry
func (m *Manager) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// CacheLookup records one fetch cache lookup
func (m *Manager) CacheLookup(dataset, result string) {
	if m == nil {
		return
	}
	m.cacheLookups.WithLabelValues(dataset, result).Inc()
}

// CacheWriteError records a failed cache write
func (m *Manager) CacheWriteError(dataset string) {
	if m == nil {
		return
	}
	m.cacheWriteErrors.WithLabelValues(dataset).Inc()
}

// CacheSwept records entries removed by a sweep
func (m *Manager) CacheSwept(n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.cacheSwept.Add(float64(n))
}

// Upstream records one provider call
func (m *Manager) Upstream(endpoint, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.upstreamRequests.WithLabelValues(endpoint, outcome).Inc()
	m.upstreamLatency.WithLabelValues(endpoint).Observe(d.Seconds())
}

// Analysis records an analysis outcome
func (m *Manager) Analysis(outcome string) {
	if m == nil {
		return
	}
	m.analyses.WithLabelValues(outcome).Inc()
}

// Score records a computed score
func (m *Manager) Score(score float64) {
	if m == nil {
		return
	}
	m.scores.Observe(score)
}

// HTTPRequest records one served request
func (m *Manager) HTTPRequest(route, code string, d time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(route, code).Inc()
	m.httpDuration.WithLabelValues(route).Observe(d.Seconds())
}
