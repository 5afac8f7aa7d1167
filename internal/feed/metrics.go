package feed

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metric names as constants for consistency.
const (
	MetricFeedRequests       = "feed_requests_total"
	MetricFeedDuration       = "feed_generation_duration_seconds"
	MetricConversionSkips    = "feed_conversion_skips_total"
	MetricScoringErrors      = "feed_scoring_errors_total"
	MetricCandidatesRanked   = "feed_candidates_ranked"
)

// Pipeline outcomes recorded on MetricFeedRequests.
const (
	OutcomeRanked           = "ranked"
	OutcomeSimpleFallback   = "simple_fallback"
	OutcomeUnrankedFallback = "unranked_fallback"
)

// Metrics contains Prometheus metrics for the feed pipeline.
// All operations are thread-safe.
type Metrics struct {
	requests         *prometheus.CounterVec
	duration         prometheus.Histogram
	conversionSkips  prometheus.Counter
	scoringErrors    prometheus.Counter
	candidatesRanked prometheus.Histogram
}

// NewMetrics creates and returns a new Metrics instance with all collectors
// initialized. The metrics are not registered; call Register to register
// them with a registry.
func NewMetrics() *Metrics {
	return &Metrics{
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricFeedRequests,
				Help: "Total number of feed generation requests by outcome (ranked, simple_fallback, unranked_fallback)",
			},
			[]string{"outcome"},
		),
		duration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    MetricFeedDuration,
				Help:    "Feed generation duration in seconds",
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0},
			},
		),
		conversionSkips: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: MetricConversionSkips,
				Help: "Total number of raw records skipped because no adapter could convert them",
			},
		),
		scoringErrors: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: MetricScoringErrors,
				Help: "Total number of candidates scored as zero due to scoring failures",
			},
		),
		candidatesRanked: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    MetricCandidatesRanked,
				Help:    "Number of candidates entering scoring per request",
				Buckets: []float64{5, 10, 20, 50, 100, 250, 500},
			},
		),
	}
}

// Register registers all metrics with the given registry.
func (m *Metrics) Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		m.requests,
		m.duration,
		m.conversionSkips,
		m.scoringErrors,
		m.candidatesRanked,
	}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// IncRequests increments the request counter for an outcome.
func (m *Metrics) IncRequests(outcome string) {
	m.requests.WithLabelValues(outcome).Inc()
}

// ObserveDuration records one feed generation duration.
func (m *Metrics) ObserveDuration(seconds float64) {
	m.duration.Observe(seconds)
}

// IncConversionSkips increments the conversion skip counter.
func (m *Metrics) IncConversionSkips() {
	m.conversionSkips.Inc()
}

// IncScoringErrors increments the scoring error counter.
func (m *Metrics) IncScoringErrors() {
	m.scoringErrors.Inc()
}

// ObserveCandidatesRanked records the scored batch size for one request.
func (m *Metrics) ObserveCandidatesRanked(count int) {
	m.candidatesRanked.Observe(float64(count))
}
