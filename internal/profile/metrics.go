package profile

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metric names as constants for consistency.
const (
	MetricContextFetchErrors    = "feed_context_fetch_errors_total"
	MetricTrendingCache         = "feed_trending_cache_total"
	MetricTrendingRefreshErrors = "feed_trending_refresh_errors_total"
)

// Metrics contains Prometheus metrics for context loading and the trending
// cache. All operations are thread-safe.
type Metrics struct {
	contextFetchErrors    *prometheus.CounterVec
	trendingCache         *prometheus.CounterVec
	trendingRefreshErrors prometheus.Counter
}

// NewMetrics creates and returns a new Metrics instance with all collectors
// initialized. The metrics are not registered; call Register to register
// them with a registry.
func NewMetrics() *Metrics {
	return &Metrics{
		contextFetchErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricContextFetchErrors,
				Help: "Total number of content store query failures degraded to empty context facets",
			},
			[]string{"query"},
		),
		trendingCache: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricTrendingCache,
				Help: "Total number of trending cache lookups by result (hit, stale, miss)",
			},
			[]string{"result"},
		),
		trendingRefreshErrors: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: MetricTrendingRefreshErrors,
				Help: "Total number of failed trending aggregate refreshes",
			},
		),
	}
}

// Register registers all metrics with the given registry.
func (m *Metrics) Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		m.contextFetchErrors,
		m.trendingCache,
		m.trendingRefreshErrors,
	}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// IncContextFetchError increments the fetch error counter for a query.
func (m *Metrics) IncContextFetchError(query string) {
	m.contextFetchErrors.WithLabelValues(query).Inc()
}

// IncTrendingCache increments the trending cache counter for a result.
func (m *Metrics) IncTrendingCache(result string) {
	m.trendingCache.WithLabelValues(result).Inc()
}

// IncTrendingRefreshError increments the trending refresh error counter.
func (m *Metrics) IncTrendingRefreshError() {
	m.trendingRefreshErrors.Inc()
}
