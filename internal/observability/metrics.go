package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "quake_overlay"

// Metrics holds the Prometheus counters, histograms, and gauges for the overlay service.
type Metrics struct {
	// Computation cache metrics.
	CacheLookups *prometheus.CounterVec // labels: cache={intensity,rings,aggregation}, result={hit,miss}
	CacheEntries *prometheus.GaugeVec   // labels: cache

	// Aggregation metrics.
	AggregationRuns     *prometheus.CounterVec // labels: granularity={day,month}
	AggregationDropped  prometheus.Counter
	AggregationExcluded prometheus.Counter
	InvariantViolations *prometheus.CounterVec // labels: check={rings,buckets}

	// Event feed metrics.
	FeedRequests    *prometheus.CounterVec // labels: outcome={success,error}
	FeedCache       *prometheus.CounterVec // labels: result={hit,miss}
	FeedAPIDuration prometheus.Histogram
	FeedEnabled     prometheus.Gauge

	HTTPRequests *prometheus.CounterVec // labels: route, code
}

// NewMetrics creates and registers all service metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.CacheLookups,
		m.CacheEntries,
		m.AggregationRuns,
		m.AggregationDropped,
		m.AggregationExcluded,
		m.InvariantViolations,
		m.FeedRequests,
		m.FeedCache,
		m.FeedAPIDuration,
		m.FeedEnabled,
		m.HTTPRequests,
	)
	return m
}

// NewMetricsForTesting creates unregistered Metrics to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		CacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_total",
			Help:      "Computation cache lookups by cache and result.",
		}, []string{"cache", "result"}),
		CacheEntries: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "cache_entries",
			Help:      "Entries currently held by each computation cache.",
		}, []string{"cache"}),
		AggregationRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "aggregation_runs_total",
			Help:      "Aggregation runs computed (cache misses) by granularity.",
		}, []string{"granularity"}),
		AggregationDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "aggregation_dropped_events_total",
			Help:      "Events whose bucket fell outside the aggregation range.",
		}),
		AggregationExcluded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "aggregation_excluded_events_total",
			Help:      "Events excluded from aggregation for lack of a usable timestamp.",
		}),
		InvariantViolations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "invariant_violations_total",
			Help:      "Internal invariant violations by check.",
		}, []string{"check"}),
		FeedRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "feed_requests_total",
			Help:      "Event feed requests by outcome.",
		}, []string{"outcome"}),
		FeedCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "feed_cache_total",
			Help:      "Event feed cache lookups by result.",
		}, []string{"result"}),
		FeedAPIDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "feed_api_duration_seconds",
			Help:      "Event feed request duration in seconds.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}),
		FeedEnabled: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "feed_enabled",
			Help:      "1 when an event feed is configured, 0 otherwise.",
		}),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "API requests by route and status code.",
		}, []string{"route", "code"}),
	}
}
