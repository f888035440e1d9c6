package pricing

import (
	"strings"
	"sync"

	"driftline/warden/pkg/config"
)

// Estimator converts token counts into USD cost figures using the configured
// per-model rate table. It is thread-safe and supports hot-reload of rates.
type Estimator struct {
	cfg *config.PricingConfig
	mu  sync.RWMutex
}

// NewEstimator creates an estimator from the given pricing configuration.
func NewEstimator(cfg *config.PricingConfig) *Estimator {
	return &Estimator{cfg: cfg}
}

// Rate holds the per-1K-token USD rates applied to a request.
type Rate struct {
	InputPer1K  float64
	OutputPer1K float64
}

// Estimate returns the projected cost in USD for a request with the given
// token counts. Unknown provider/model pairs fall back to the default rate,
// so a missing rate entry never blocks admission.
func (e *Estimator) Estimate(provider, model string, tokensIn, tokensOut int) float64 {
	rate := e.RateFor(provider, model)
	return tokenCost(tokensIn, rate.InputPer1K) + tokenCost(tokensOut, rate.OutputPer1K)
}

// RateFor resolves the rate for a provider/model pair. Resolution order is
// exact model match, then model prefix match ("gpt-4" matches "gpt-4-0613"),
// then the configured default rate.
func (e *Estimator) RateFor(provider, model string) Rate {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if models, ok := e.cfg.Rates[provider]; ok {
		if r, ok := models[model]; ok {
			return Rate{InputPer1K: r.InputPer1K, OutputPer1K: r.OutputPer1K}
		}

		for pattern, r := range models {
			if strings.HasPrefix(model, pattern) {
				return Rate{InputPer1K: r.InputPer1K, OutputPer1K: r.OutputPer1K}
			}
		}
	}

	return Rate{
		InputPer1K:  e.cfg.Default.InputPer1K,
		OutputPer1K: e.cfg.Default.OutputPer1K,
	}
}

// UpdateRates swaps in a new rate table. Safe to call while the estimator
// is in use.
func (e *Estimator) UpdateRates(cfg *config.PricingConfig) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.cfg = cfg
}

func tokenCost(tokens int, costPer1K float64) float64 {
	if tokens <= 0 {
		return 0.0
	}

	return (float64(tokens) / 1000.0) * costPer1K
}
