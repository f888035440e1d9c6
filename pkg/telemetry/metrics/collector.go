package metrics

import (
	"driftline/warden/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// Collector owns the Prometheus registry and all metric groups exposed by
// the service. Construct one at process start and share it by reference.
type Collector struct {
	cfg      *config.MetricsConfig
	registry *prometheus.Registry

	admission *AdmissionMetrics
	budget    *BudgetMetrics
	cache     *CacheMetrics
}

// NewCollector creates a collector with all metric groups registered. If
// registry is nil a private registry is created, keeping the process-global
// default registry untouched.
func NewCollector(cfg *config.MetricsConfig, registry *prometheus.Registry) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	if cfg.Namespace == "" {
		cfg.Namespace = "warden"
	}

	return &Collector{
		cfg:       cfg,
		registry:  registry,
		admission: NewAdmissionMetrics(cfg, registry),
		budget:    NewBudgetMetrics(cfg, registry),
		cache:     NewCacheMetrics(cfg, registry),
	}
}

// Admission returns the admission-pipeline metric group.
func (c *Collector) Admission() *AdmissionMetrics { return c.admission }

// Budget returns the budget metric group.
func (c *Collector) Budget() *BudgetMetrics { return c.budget }

// Cache returns the response-cache metric group.
func (c *Collector) Cache() *CacheMetrics { return c.cache }

// Registry exposes the underlying registry, mainly for tests.
func (c *Collector) Registry() *prometheus.Registry { return c.registry }
