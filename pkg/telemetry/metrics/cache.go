package metrics

import (
	"driftline/warden/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// CacheMetrics tracks response-cache effectiveness per organization.
//
// Metrics:
//   - warden_cache_hits_total / warden_cache_misses_total / warden_cache_errors_total
//   - warden_cache_cost_saved_usd_total: provider spend avoided by hits
//   - warden_cache_latency_saved_seconds_total: provider latency avoided by hits
//   - warden_cache_evictions_total: entries removed by TTL sweeps
type CacheMetrics struct {
	hitsTotal         *prometheus.CounterVec
	missesTotal       *prometheus.CounterVec
	errorsTotal       *prometheus.CounterVec
	costSavedTotal    *prometheus.CounterVec
	latencySavedTotal *prometheus.CounterVec
	evictionsTotal    prometheus.Counter
}

// NewCacheMetrics creates and registers the cache metric group.
func NewCacheMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *CacheMetrics {
	cm := &CacheMetrics{
		hitsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "cache_hits_total",
				Help:      "Total number of response cache hits",
			},
			[]string{"organization"},
		),

		missesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "cache_misses_total",
				Help:      "Total number of response cache misses",
			},
			[]string{"organization"},
		),

		errorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "cache_errors_total",
				Help:      "Total number of cache backend errors (degraded to misses)",
			},
			[]string{"organization"},
		),

		costSavedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "cache_cost_saved_usd_total",
				Help:      "Cumulative provider cost avoided by cache hits in USD",
			},
			[]string{"organization"},
		),

		latencySavedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "cache_latency_saved_seconds_total",
				Help:      "Cumulative provider latency avoided by cache hits",
			},
			[]string{"organization"},
		),

		evictionsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "cache_evictions_total",
				Help:      "Total number of expired cache entries removed by sweeps",
			},
		),
	}

	registry.MustRegister(
		cm.hitsTotal,
		cm.missesTotal,
		cm.errorsTotal,
		cm.costSavedTotal,
		cm.latencySavedTotal,
		cm.evictionsTotal,
	)

	return cm
}

// RecordHit records a cache hit together with the estimated savings.
func (cm *CacheMetrics) RecordHit(organization string, costSaved, latencySavedSeconds float64) {
	cm.hitsTotal.WithLabelValues(organization).Inc()
	if costSaved > 0 {
		cm.costSavedTotal.WithLabelValues(organization).Add(costSaved)
	}
	if latencySavedSeconds > 0 {
		cm.latencySavedTotal.WithLabelValues(organization).Add(latencySavedSeconds)
	}
}

// RecordMiss records a cache miss.
func (cm *CacheMetrics) RecordMiss(organization string) {
	cm.missesTotal.WithLabelValues(organization).Inc()
}

// RecordError records a cache backend error.
func (cm *CacheMetrics) RecordError(organization string) {
	cm.errorsTotal.WithLabelValues(organization).Inc()
}

// RecordEvictions records entries removed by a TTL sweep.
func (cm *CacheMetrics) RecordEvictions(count int) {
	if count > 0 {
		cm.evictionsTotal.Add(float64(count))
	}
}
