package policy

import (
	"context"
	"log/slog"
	"sync"

	"driftline/warden/pkg/config"
)

// Resolver produces one fully populated Config per resolution by merging a
// tenant's stored policy row with the system defaults and applying
// trial-tier ceilings.
//
// Resolve is total: lookup failures and malformed tenant rows degrade to
// the system defaults rather than failing the caller. A misconfigured
// tenant loses its customizations, never its service.
type Resolver struct {
	store  Store
	logger *slog.Logger

	// mu guards defaults and trial, which hot-reload may swap.
	mu       sync.RWMutex
	defaults config.PolicyDefaults
	trial    config.TrialLimits
}

// NewResolver creates a resolver over the given store and defaults.
// A nil store behaves like NopStore. A nil logger falls back to
// slog.Default.
func NewResolver(store Store, defaults config.PolicyDefaults, trial config.TrialLimits, logger *slog.Logger) *Resolver {
	if store == nil {
		store = NopStore{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{
		store:    store,
		defaults: defaults,
		trial:    trial,
		logger:   logger,
	}
}

// UpdateDefaults swaps in new system defaults and trial ceilings, used by
// configuration hot-reload. Resolutions already in flight keep the policy
// they resolved with.
func (r *Resolver) UpdateDefaults(defaults config.PolicyDefaults, trial config.TrialLimits) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.defaults = defaults
	r.trial = trial
}

// Resolve returns the effective policy for an organization. It never fails:
// any store error or invalid tenant row is logged and absorbed, and the
// result falls back to the system defaults.
func (r *Resolver) Resolve(ctx context.Context, organizationID string) *Config {
	r.mu.RLock()
	defaults, trial := r.defaults, r.trial
	r.mu.RUnlock()

	stored, err := r.store.Fetch(ctx, organizationID)
	if err != nil {
		r.logger.Warn("policy fetch failed, using system defaults",
			"organization", organizationID, "error", err)
		stored = nil
	}

	cfg := merge(organizationID, defaults, stored)

	if stored != nil && !valid(cfg) {
		r.logger.Warn("stored policy failed validation, using system defaults",
			"organization", organizationID)
		cfg = merge(organizationID, defaults, nil)
		cfg.TrialMode = stored.TrialMode
	}

	if cfg.TrialMode {
		clampToTrial(cfg, trial)
	}

	return cfg
}

// merge overlays the stored row (if any) on the system defaults. Fields
// absent from the row take the default.
func merge(organizationID string, defaults config.PolicyDefaults, stored *StoredPolicy) *Config {
	cfg := &Config{
		OrganizationID:     organizationID,
		MaxDailyCostUSD:    defaults.MaxDailyCostUSD,
		MaxRequestCostUSD:  defaults.MaxRequestCostUSD,
		MaxTokensInput:     defaults.MaxTokensInput,
		MaxTokensOutput:    defaults.MaxTokensOutput,
		MaxConcurrentJobs:  defaults.MaxConcurrentJobs,
		AllowedProviders:   toSet(defaults.AllowedProviders),
		TaskOverrides:      map[string]TaskOverride{},
		BurstRateLimit:     defaults.BurstRateLimit,
		SustainedRateLimit: defaults.SustainedRateLimit,
	}

	if stored == nil {
		return cfg
	}

	cfg.TrialMode = stored.TrialMode
	if stored.MaxDailyCostUSD != nil {
		cfg.MaxDailyCostUSD = *stored.MaxDailyCostUSD
	}
	if stored.MaxRequestCostUSD != nil {
		cfg.MaxRequestCostUSD = *stored.MaxRequestCostUSD
	}
	if stored.MaxTokensInput != nil {
		cfg.MaxTokensInput = *stored.MaxTokensInput
	}
	if stored.MaxTokensOutput != nil {
		cfg.MaxTokensOutput = *stored.MaxTokensOutput
	}
	if stored.MaxConcurrentJobs != nil {
		cfg.MaxConcurrentJobs = *stored.MaxConcurrentJobs
	}
	if len(stored.AllowedProviders) > 0 {
		cfg.AllowedProviders = toSet(stored.AllowedProviders)
	}
	if len(stored.TaskOverrides) > 0 {
		for category, override := range stored.TaskOverrides {
			cfg.TaskOverrides[category] = override
		}
	}
	if stored.BurstRateLimit != nil {
		cfg.BurstRateLimit = *stored.BurstRateLimit
	}
	if stored.SustainedRateLimit != nil {
		cfg.SustainedRateLimit = *stored.SustainedRateLimit
	}

	return cfg
}

// valid checks the merged policy structurally: positive numeric bounds and
// a non-empty provider list.
func valid(cfg *Config) bool {
	return cfg.MaxDailyCostUSD > 0 &&
		cfg.MaxRequestCostUSD > 0 &&
		cfg.MaxTokensInput > 0 &&
		cfg.MaxTokensOutput > 0 &&
		cfg.MaxConcurrentJobs > 0 &&
		len(cfg.AllowedProviders) > 0 &&
		cfg.BurstRateLimit > 0 &&
		cfg.SustainedRateLimit > 0
}

// clampToTrial caps every budget, token, and rate field at the trial
// ceiling. A stricter tenant-configured value is never relaxed.
func clampToTrial(cfg *Config, trial config.TrialLimits) {
	cfg.MaxDailyCostUSD = minFloat(cfg.MaxDailyCostUSD, trial.MaxDailyCostUSD)
	cfg.MaxRequestCostUSD = minFloat(cfg.MaxRequestCostUSD, trial.MaxRequestCostUSD)
	cfg.MaxTokensInput = minInt(cfg.MaxTokensInput, trial.MaxTokensInput)
	cfg.MaxTokensOutput = minInt(cfg.MaxTokensOutput, trial.MaxTokensOutput)
	cfg.MaxConcurrentJobs = minInt(cfg.MaxConcurrentJobs, trial.MaxConcurrentJobs)
	cfg.BurstRateLimit = minInt(cfg.BurstRateLimit, trial.BurstRateLimit)
	cfg.SustainedRateLimit = minInt(cfg.SustainedRateLimit, trial.SustainedRateLimit)

	// Trial tenants may only use providers on both lists.
	trialSet := toSet(trial.AllowedProviders)
	for provider := range cfg.AllowedProviders {
		if _, ok := trialSet[provider]; !ok {
			delete(cfg.AllowedProviders, provider)
		}
	}
	if len(cfg.AllowedProviders) == 0 {
		cfg.AllowedProviders = trialSet
	}
}

func toSet(providers []string) map[string]struct{} {
	set := make(map[string]struct{}, len(providers))
	for _, p := range providers {
		set[p] = struct{}{}
	}
	return set
}

func minFloat(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
