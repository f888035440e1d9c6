package config

import "time"

// Config is the root configuration structure for Warden.
// It contains all configuration sections for the HTTP layer, policy
// resolution, budget tracking, response caching, pricing tables, and
// telemetry settings.
type Config struct {
	// Server contains HTTP server configuration including listen address
	// and timeouts.
	Server ServerConfig `yaml:"server"`

	// Policy contains the system-wide policy defaults, trial-tier ceilings,
	// and the tenant policy store location.
	Policy PolicyConfig `yaml:"policy"`

	// Ledger contains configuration for the usage ledger backend.
	Ledger LedgerConfig `yaml:"ledger"`

	// Budget contains budget-guard tuning such as the near-ceiling band.
	Budget BudgetConfig `yaml:"budget"`

	// Cache contains response cache configuration including TTL and the
	// cleanup sweep schedule.
	Cache CacheConfig `yaml:"cache"`

	// Pricing contains per-provider, per-model USD rates used for cost
	// estimation.
	Pricing PricingConfig `yaml:"pricing"`

	// Telemetry contains observability configuration for logging and
	// metrics.
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// ServerConfig contains configuration for the HTTP server.
type ServerConfig struct {
	// ListenAddress is the address and port to listen on.
	// Format: "host:port". Default: "127.0.0.1:8080"
	ListenAddress string `yaml:"listen_address"`

	// ReadTimeout is the maximum duration for reading the entire request.
	// Default: 30s
	ReadTimeout time.Duration `yaml:"read_timeout"`

	// WriteTimeout is the maximum duration before timing out response writes.
	// Default: 30s
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// IdleTimeout is the keep-alive idle timeout.
	// Default: 120s
	IdleTimeout time.Duration `yaml:"idle_timeout"`

	// ShutdownTimeout is the maximum duration to wait for graceful shutdown.
	// Default: 30s
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// PolicyConfig contains the system defaults that fill every gap in a tenant
// policy row, the ceilings applied to trial-mode tenants, and the location
// of the tenant policy store.
type PolicyConfig struct {
	// StorePath is the path to the SQLite database holding tenant policy
	// rows. Empty means no tenant store: every organization resolves to
	// the system defaults.
	StorePath string `yaml:"store_path"`

	// Defaults are the system-wide policy values used when a tenant row is
	// missing a field, is absent entirely, or fails validation.
	Defaults PolicyDefaults `yaml:"defaults"`

	// Trial are the ceilings clamped onto trial-mode tenants. A trial
	// tenant never gets more than these, even if its stored row says so.
	Trial TrialLimits `yaml:"trial"`
}

// PolicyDefaults holds a complete set of policy values. Every field must
// have a defined value after ApplyDefaults so that policy resolution is
// total.
type PolicyDefaults struct {
	// MaxDailyCostUSD is the daily spend ceiling per organization.
	MaxDailyCostUSD float64 `yaml:"max_daily_cost_usd"`

	// MaxRequestCostUSD is the per-request cost ceiling.
	MaxRequestCostUSD float64 `yaml:"max_request_cost_usd"`

	// MaxTokensInput is the per-request input token ceiling.
	MaxTokensInput int `yaml:"max_tokens_input"`

	// MaxTokensOutput is the per-request output token ceiling.
	MaxTokensOutput int `yaml:"max_tokens_output"`

	// MaxConcurrentJobs is the per-organization active-request ceiling.
	MaxConcurrentJobs int `yaml:"max_concurrent_jobs"`

	// AllowedProviders is the default provider allow-list.
	AllowedProviders []string `yaml:"allowed_providers"`

	// BurstRateLimit is the number of requests allowed per burst window.
	BurstRateLimit int `yaml:"burst_rate_limit"`

	// SustainedRateLimit is the number of requests allowed per sustained
	// window.
	SustainedRateLimit int `yaml:"sustained_rate_limit"`
}

// TrialLimits holds the ceilings applied on top of a trial tenant's policy.
type TrialLimits struct {
	MaxDailyCostUSD    float64  `yaml:"max_daily_cost_usd"`
	MaxRequestCostUSD  float64  `yaml:"max_request_cost_usd"`
	MaxTokensInput     int      `yaml:"max_tokens_input"`
	MaxTokensOutput    int      `yaml:"max_tokens_output"`
	MaxConcurrentJobs  int      `yaml:"max_concurrent_jobs"`
	AllowedProviders   []string `yaml:"allowed_providers"`
	BurstRateLimit     int      `yaml:"burst_rate_limit"`
	SustainedRateLimit int      `yaml:"sustained_rate_limit"`
}

// LedgerConfig contains configuration for the usage ledger backend.
type LedgerConfig struct {
	// Backend selects the ledger implementation: "sqlite" or "memory".
	// Default: "memory"
	Backend string `yaml:"backend"`

	// SQLitePath is the path to the SQLite database when Backend is
	// "sqlite". Default: "data/ledger.db"
	SQLitePath string `yaml:"sqlite_path"`
}

// BudgetConfig contains budget-guard tuning.
type BudgetConfig struct {
	// NearCeilingBand is the fraction of the daily ceiling at which the
	// guard starts signalling force-cheapest (0.0-1.0).
	// Default: 0.8
	NearCeilingBand float64 `yaml:"near_ceiling_band"`
}

// CacheConfig contains response cache configuration.
type CacheConfig struct {
	// Enabled is the global on/off switch for response caching.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// TTL is how long a cache entry remains valid after creation.
	// Default: 1h
	TTL time.Duration `yaml:"ttl"`

	// Backend selects the cache store: "sqlite" or "memory".
	// Default: "memory"
	Backend string `yaml:"backend"`

	// SQLitePath is the path to the SQLite database when Backend is
	// "sqlite". Default: "data/cache.db"
	SQLitePath string `yaml:"sqlite_path"`

	// SweepSchedule is the cron expression for expired-entry sweeps.
	// Default: "*/5 * * * *" (every 5 minutes)
	SweepSchedule string `yaml:"sweep_schedule"`
}

// PricingConfig contains cost-estimation rates.
type PricingConfig struct {
	// Rates maps provider name to model name to per-1K-token rates.
	// Model lookup falls back from exact match to prefix match to Default.
	Rates map[string]map[string]ModelRate `yaml:"rates"`

	// Default is the rate used when no provider/model entry matches.
	Default ModelRate `yaml:"default"`
}

// ModelRate holds USD costs per 1000 tokens for a single model.
type ModelRate struct {
	// InputPer1K is the USD cost per 1000 input tokens.
	InputPer1K float64 `yaml:"input_per_1k"`

	// OutputPer1K is the USD cost per 1000 output tokens.
	OutputPer1K float64 `yaml:"output_per_1k"`
}

// TelemetryConfig contains observability configuration.
type TelemetryConfig struct {
	Logging LoggingConfig `yaml:"logging"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// LoggingConfig contains structured logging configuration.
type LoggingConfig struct {
	// Level is the minimum log level: "debug", "info", "warn", "error".
	// Default: "info"
	Level string `yaml:"level"`

	// Format is the output format: "json" or "text".
	// Default: "json"
	Format string `yaml:"format"`
}

// MetricsConfig contains Prometheus metrics configuration.
type MetricsConfig struct {
	// Enabled controls whether metrics are collected and exposed.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// Namespace is the Prometheus metric namespace.
	// Default: "warden"
	Namespace string `yaml:"namespace"`

	// Path is the HTTP path for the metrics endpoint.
	// Default: "/metrics"
	Path string `yaml:"path"`
}
