package metrics

import (
	"driftline/warden/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// BudgetMetrics tracks daily-spend state per organization.
type BudgetMetrics struct {
	dailySpend   *prometheus.GaugeVec
	usageRatio   *prometheus.GaugeVec
	denialsTotal *prometheus.CounterVec
}

// NewBudgetMetrics creates and registers the budget metric group.
func NewBudgetMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *BudgetMetrics {
	bm := &BudgetMetrics{
		dailySpend: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: cfg.Namespace,
				Name:      "budget_daily_spend_usd",
				Help:      "Recorded spend for the current UTC day in USD",
			},
			[]string{"organization"},
		),

		usageRatio: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: cfg.Namespace,
				Name:      "budget_usage_ratio",
				Help:      "Daily spend as a fraction of the daily ceiling (0.0-1.0+)",
			},
			[]string{"organization"},
		),

		denialsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "budget_denials_total",
				Help:      "Total number of requests denied for budget reasons",
			},
			[]string{"organization"},
		),
	}

	registry.MustRegister(bm.dailySpend, bm.usageRatio, bm.denialsTotal)

	return bm
}

// RecordState updates the spend gauges after a budget evaluation.
func (bm *BudgetMetrics) RecordState(organization string, dailySpend, ceiling float64) {
	bm.dailySpend.WithLabelValues(organization).Set(dailySpend)
	if ceiling > 0 {
		bm.usageRatio.WithLabelValues(organization).Set(dailySpend / ceiling)
	}
}

// RecordDenial records a budget-stage denial.
func (bm *BudgetMetrics) RecordDenial(organization string) {
	bm.denialsTotal.WithLabelValues(organization).Inc()
}
