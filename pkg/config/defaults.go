package config

import "time"

// Default values for configuration fields.
const (
	// Server defaults
	DefaultListenAddress   = "127.0.0.1:8080"
	DefaultReadTimeout     = 30 * time.Second
	DefaultWriteTimeout    = 30 * time.Second
	DefaultIdleTimeout     = 120 * time.Second
	DefaultShutdownTimeout = 30 * time.Second

	// Policy defaults
	DefaultMaxDailyCostUSD    = 50.00
	DefaultMaxRequestCostUSD  = 1.00
	DefaultMaxTokensInput     = 8000
	DefaultMaxTokensOutput    = 4000
	DefaultMaxConcurrentJobs  = 5
	DefaultBurstRateLimit     = 10
	DefaultSustainedRateLimit = 30

	// Trial ceilings
	DefaultTrialMaxDailyCostUSD    = 5.00
	DefaultTrialMaxRequestCostUSD  = 0.25
	DefaultTrialMaxTokensInput     = 4000
	DefaultTrialMaxTokensOutput    = 1000
	DefaultTrialMaxConcurrentJobs  = 2
	DefaultTrialBurstRateLimit     = 3
	DefaultTrialSustainedRateLimit = 10

	// Ledger defaults
	DefaultLedgerBackend    = "memory"
	DefaultLedgerSQLitePath = "data/ledger.db"

	// Budget defaults
	DefaultNearCeilingBand = 0.8

	// Cache defaults
	DefaultCacheEnabled       = true
	DefaultCacheTTL           = time.Hour
	DefaultCacheBackend       = "memory"
	DefaultCacheSQLitePath    = "data/cache.db"
	DefaultCacheSweepSchedule = "*/5 * * * *"

	// Telemetry defaults
	DefaultLoggingLevel     = "info"
	DefaultLoggingFormat    = "json"
	DefaultMetricsEnabled   = true
	DefaultMetricsNamespace = "warden"
	DefaultMetricsPath      = "/metrics"

	// Pricing defaults (USD per 1K tokens)
	DefaultInputRatePer1K  = 0.001
	DefaultOutputRatePer1K = 0.002
)

// DefaultAllowedProviders is the default provider allow-list.
var DefaultAllowedProviders = []string{"openai", "anthropic"}

// DefaultTrialAllowedProviders is the provider allow-list for trial tenants.
var DefaultTrialAllowedProviders = []string{"openai"}

// ApplyDefaults fills in default values for any unset configuration fields.
// It is called automatically by LoadConfig. Zero values are treated as unset
// except where a zero is meaningful (boolean flags keep their YAML value
// when the section was present; see Load for the distinction).
func ApplyDefaults(cfg *Config) {
	// Server
	if cfg.Server.ListenAddress == "" {
		cfg.Server.ListenAddress = DefaultListenAddress
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = DefaultReadTimeout
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = DefaultWriteTimeout
	}
	if cfg.Server.IdleTimeout == 0 {
		cfg.Server.IdleTimeout = DefaultIdleTimeout
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = DefaultShutdownTimeout
	}

	// Policy defaults
	d := &cfg.Policy.Defaults
	if d.MaxDailyCostUSD == 0 {
		d.MaxDailyCostUSD = DefaultMaxDailyCostUSD
	}
	if d.MaxRequestCostUSD == 0 {
		d.MaxRequestCostUSD = DefaultMaxRequestCostUSD
	}
	if d.MaxTokensInput == 0 {
		d.MaxTokensInput = DefaultMaxTokensInput
	}
	if d.MaxTokensOutput == 0 {
		d.MaxTokensOutput = DefaultMaxTokensOutput
	}
	if d.MaxConcurrentJobs == 0 {
		d.MaxConcurrentJobs = DefaultMaxConcurrentJobs
	}
	if len(d.AllowedProviders) == 0 {
		d.AllowedProviders = append([]string(nil), DefaultAllowedProviders...)
	}
	if d.BurstRateLimit == 0 {
		d.BurstRateLimit = DefaultBurstRateLimit
	}
	if d.SustainedRateLimit == 0 {
		d.SustainedRateLimit = DefaultSustainedRateLimit
	}

	// Trial ceilings
	tr := &cfg.Policy.Trial
	if tr.MaxDailyCostUSD == 0 {
		tr.MaxDailyCostUSD = DefaultTrialMaxDailyCostUSD
	}
	if tr.MaxRequestCostUSD == 0 {
		tr.MaxRequestCostUSD = DefaultTrialMaxRequestCostUSD
	}
	if tr.MaxTokensInput == 0 {
		tr.MaxTokensInput = DefaultTrialMaxTokensInput
	}
	if tr.MaxTokensOutput == 0 {
		tr.MaxTokensOutput = DefaultTrialMaxTokensOutput
	}
	if tr.MaxConcurrentJobs == 0 {
		tr.MaxConcurrentJobs = DefaultTrialMaxConcurrentJobs
	}
	if len(tr.AllowedProviders) == 0 {
		tr.AllowedProviders = append([]string(nil), DefaultTrialAllowedProviders...)
	}
	if tr.BurstRateLimit == 0 {
		tr.BurstRateLimit = DefaultTrialBurstRateLimit
	}
	if tr.SustainedRateLimit == 0 {
		tr.SustainedRateLimit = DefaultTrialSustainedRateLimit
	}

	// Ledger
	if cfg.Ledger.Backend == "" {
		cfg.Ledger.Backend = DefaultLedgerBackend
	}
	if cfg.Ledger.SQLitePath == "" {
		cfg.Ledger.SQLitePath = DefaultLedgerSQLitePath
	}

	// Budget
	if cfg.Budget.NearCeilingBand == 0 {
		cfg.Budget.NearCeilingBand = DefaultNearCeilingBand
	}

	// Cache
	if cfg.Cache.TTL == 0 {
		cfg.Cache.TTL = DefaultCacheTTL
	}
	if cfg.Cache.Backend == "" {
		cfg.Cache.Backend = DefaultCacheBackend
	}
	if cfg.Cache.SQLitePath == "" {
		cfg.Cache.SQLitePath = DefaultCacheSQLitePath
	}
	if cfg.Cache.SweepSchedule == "" {
		cfg.Cache.SweepSchedule = DefaultCacheSweepSchedule
	}

	// Pricing
	if cfg.Pricing.Default.InputPer1K == 0 {
		cfg.Pricing.Default.InputPer1K = DefaultInputRatePer1K
	}
	if cfg.Pricing.Default.OutputPer1K == 0 {
		cfg.Pricing.Default.OutputPer1K = DefaultOutputRatePer1K
	}

	// Telemetry
	if cfg.Telemetry.Logging.Level == "" {
		cfg.Telemetry.Logging.Level = DefaultLoggingLevel
	}
	if cfg.Telemetry.Logging.Format == "" {
		cfg.Telemetry.Logging.Format = DefaultLoggingFormat
	}
	if cfg.Telemetry.Metrics.Namespace == "" {
		cfg.Telemetry.Metrics.Namespace = DefaultMetricsNamespace
	}
	if cfg.Telemetry.Metrics.Path == "" {
		cfg.Telemetry.Metrics.Path = DefaultMetricsPath
	}
}
