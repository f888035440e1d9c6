package metrics

import (
	"time"

	"driftline/warden/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// AdmissionMetrics tracks the outcome of admission checks.
//
// Metrics:
//   - warden_admission_checks_total: checks by organization and result
//   - warden_admission_denials_total: denials by organization and stage
//   - warden_admission_force_cheapest_total: soft-degrade signals issued
//   - warden_admission_check_duration_seconds: check latency
//   - warden_admission_concurrent_requests: in-flight requests per org
type AdmissionMetrics struct {
	checksTotal        *prometheus.CounterVec
	denialsTotal       *prometheus.CounterVec
	forceCheapestTotal *prometheus.CounterVec
	checkDuration      *prometheus.HistogramVec
	concurrentRequests *prometheus.GaugeVec
}

// NewAdmissionMetrics creates and registers the admission metric group.
func NewAdmissionMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *AdmissionMetrics {
	am := &AdmissionMetrics{
		checksTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "admission_checks_total",
				Help:      "Total number of admission checks performed",
			},
			[]string{"organization", "result"},
		),

		denialsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "admission_denials_total",
				Help:      "Total number of admission denials by pipeline stage",
			},
			[]string{"organization", "stage"},
		),

		forceCheapestTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "admission_force_cheapest_total",
				Help:      "Total number of admissions carrying the force-cheapest signal",
			},
			[]string{"organization"},
		),

		checkDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Name:      "admission_check_duration_seconds",
				Help:      "Latency of admission checks",
				Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
			},
			[]string{"result"},
		),

		concurrentRequests: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: cfg.Namespace,
				Name:      "admission_concurrent_requests",
				Help:      "Current number of in-flight admitted requests",
			},
			[]string{"organization"},
		),
	}

	registry.MustRegister(
		am.checksTotal,
		am.denialsTotal,
		am.forceCheapestTotal,
		am.checkDuration,
		am.concurrentRequests,
	)

	return am
}

// RecordCheck records an admission check outcome. stage names the pipeline
// stage that denied; it is ignored for allowed results.
func (am *AdmissionMetrics) RecordCheck(organization, stage string, allowed bool, duration time.Duration) {
	result := "allowed"
	if !allowed {
		result = "denied"
		am.denialsTotal.WithLabelValues(organization, stage).Inc()
	}

	am.checksTotal.WithLabelValues(organization, result).Inc()
	am.checkDuration.WithLabelValues(result).Observe(duration.Seconds())
}

// RecordForceCheapest records a soft-degrade admission.
func (am *AdmissionMetrics) RecordForceCheapest(organization string) {
	am.forceCheapestTotal.WithLabelValues(organization).Inc()
}

// SetConcurrent updates the in-flight request gauge for an organization.
func (am *AdmissionMetrics) SetConcurrent(organization string, current int) {
	am.concurrentRequests.WithLabelValues(organization).Set(float64(current))
}
