package policy

import "sort"

// Config is a fully resolved, immutable per-request policy for one
// organization. Every field has a defined value after resolution: system
// defaults fill every gap, so callers never see a partially populated
// policy.
type Config struct {
	// OrganizationID identifies the tenant this policy applies to.
	OrganizationID string

	// TrialMode indicates the tenant is on the trial tier. Trial tenants
	// always get the most restrictive of their stored policy and the trial
	// ceilings.
	TrialMode bool

	// MaxDailyCostUSD is the daily spend ceiling.
	MaxDailyCostUSD float64

	// MaxRequestCostUSD is the per-request estimated cost ceiling.
	MaxRequestCostUSD float64

	// MaxTokensInput is the per-request input token ceiling.
	MaxTokensInput int

	// MaxTokensOutput is the per-request output token ceiling.
	MaxTokensOutput int

	// MaxConcurrentJobs is the active-request ceiling.
	MaxConcurrentJobs int

	// AllowedProviders is the provider allow-list.
	AllowedProviders map[string]struct{}

	// TaskOverrides contains per-task-category variances on cost and token
	// ceilings.
	TaskOverrides map[string]TaskOverride

	// BurstRateLimit is the number of requests allowed per burst window.
	BurstRateLimit int

	// SustainedRateLimit is the number of requests allowed per sustained
	// window.
	SustainedRateLimit int
}

// TaskOverride adjusts cost and token ceilings for one task category.
// Zero fields leave the base policy value in effect.
type TaskOverride struct {
	MaxRequestCostUSD float64 `json:"max_request_cost_usd,omitempty"`
	MaxTokensInput    int     `json:"max_tokens_input,omitempty"`
	MaxTokensOutput   int     `json:"max_tokens_output,omitempty"`
}

// ProviderAllowed reports whether the provider is on the allow-list.
func (c *Config) ProviderAllowed(provider string) bool {
	_, ok := c.AllowedProviders[provider]
	return ok
}

// Providers returns the allow-list as a sorted slice for deny reasons
// and logging.
func (c *Config) Providers() []string {
	out := make([]string, 0, len(c.AllowedProviders))
	for p := range c.AllowedProviders {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// ForTask returns the effective ceilings for a task category, applying any
// override on top of the base policy.
func (c *Config) ForTask(category string) (maxRequestCostUSD float64, maxTokensInput, maxTokensOutput int) {
	maxRequestCostUSD = c.MaxRequestCostUSD
	maxTokensInput = c.MaxTokensInput
	maxTokensOutput = c.MaxTokensOutput

	override, ok := c.TaskOverrides[category]
	if !ok {
		return
	}
	if override.MaxRequestCostUSD > 0 {
		maxRequestCostUSD = override.MaxRequestCostUSD
	}
	if override.MaxTokensInput > 0 {
		maxTokensInput = override.MaxTokensInput
	}
	if override.MaxTokensOutput > 0 {
		maxTokensOutput = override.MaxTokensOutput
	}
	return
}

// StoredPolicy is a tenant policy row as persisted in the policy store.
// Nil fields mean "not set for this tenant": the system default applies.
// Rows are read-only from Warden's perspective.
type StoredPolicy struct {
	OrganizationID     string
	TrialMode          bool
	MaxDailyCostUSD    *float64
	MaxRequestCostUSD  *float64
	MaxTokensInput     *int
	MaxTokensOutput    *int
	MaxConcurrentJobs  *int
	AllowedProviders   []string
	TaskOverrides      map[string]TaskOverride
	BurstRateLimit     *int
	SustainedRateLimit *int
}
