package config

import (
	"fmt"
	"net"
	"strings"
)

// FieldError represents a validation error for a specific configuration field.
type FieldError struct {
	// Field is the dotted path to the configuration field
	// (e.g. "server.listen_address").
	Field string

	// Message is a human-readable error message.
	Message string
}

// Error returns the error message for this field error.
func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationError represents one or more validation errors in a
// configuration. It implements the error interface and provides access to
// all field errors.
type ValidationError struct {
	// Errors contains all validation errors found in the configuration.
	Errors []FieldError
}

// Error returns a formatted string containing all validation errors.
func (e ValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "configuration validation failed"
	}
	if len(e.Errors) == 1 {
		return fmt.Sprintf("configuration validation failed: %s", e.Errors[0].Error())
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("configuration validation failed with %d errors:\n", len(e.Errors)))
	for _, err := range e.Errors {
		sb.WriteString(fmt.Sprintf("  - %s\n", err.Error()))
	}
	return sb.String()
}

// Validate validates the entire configuration and returns a ValidationError
// if any validation rules fail. All validation errors are collected and
// returned together.
func Validate(cfg *Config) error {
	var errs []FieldError

	errs = append(errs, validateServer(&cfg.Server)...)
	errs = append(errs, validatePolicy(&cfg.Policy)...)
	errs = append(errs, validateLedger(&cfg.Ledger)...)
	errs = append(errs, validateBudget(&cfg.Budget)...)
	errs = append(errs, validateCache(&cfg.Cache)...)
	errs = append(errs, validateTelemetry(&cfg.Telemetry)...)

	if len(errs) > 0 {
		return ValidationError{Errors: errs}
	}

	return nil
}

func validateServer(cfg *ServerConfig) []FieldError {
	var errs []FieldError

	if cfg.ListenAddress == "" {
		errs = append(errs, FieldError{"server.listen_address", "field is required"})
	} else if _, _, err := net.SplitHostPort(cfg.ListenAddress); err != nil {
		errs = append(errs, FieldError{"server.listen_address", fmt.Sprintf("invalid address: %v", err)})
	}

	if cfg.ReadTimeout < 0 {
		errs = append(errs, FieldError{"server.read_timeout", "must not be negative"})
	}
	if cfg.WriteTimeout < 0 {
		errs = append(errs, FieldError{"server.write_timeout", "must not be negative"})
	}

	return errs
}

func validatePolicy(cfg *PolicyConfig) []FieldError {
	var errs []FieldError

	errs = append(errs, validatePolicyValues("policy.defaults", cfg.Defaults.MaxDailyCostUSD,
		cfg.Defaults.MaxRequestCostUSD, cfg.Defaults.MaxTokensInput, cfg.Defaults.MaxTokensOutput,
		cfg.Defaults.MaxConcurrentJobs, cfg.Defaults.AllowedProviders,
		cfg.Defaults.BurstRateLimit, cfg.Defaults.SustainedRateLimit)...)

	errs = append(errs, validatePolicyValues("policy.trial", cfg.Trial.MaxDailyCostUSD,
		cfg.Trial.MaxRequestCostUSD, cfg.Trial.MaxTokensInput, cfg.Trial.MaxTokensOutput,
		cfg.Trial.MaxConcurrentJobs, cfg.Trial.AllowedProviders,
		cfg.Trial.BurstRateLimit, cfg.Trial.SustainedRateLimit)...)

	return errs
}

func validatePolicyValues(prefix string, maxDaily, maxRequest float64, maxIn, maxOut, maxConc int, providers []string, burst, sustained int) []FieldError {
	var errs []FieldError

	if maxDaily <= 0 {
		errs = append(errs, FieldError{prefix + ".max_daily_cost_usd", "must be positive"})
	}
	if maxRequest <= 0 {
		errs = append(errs, FieldError{prefix + ".max_request_cost_usd", "must be positive"})
	}
	if maxIn <= 0 {
		errs = append(errs, FieldError{prefix + ".max_tokens_input", "must be positive"})
	}
	if maxOut <= 0 {
		errs = append(errs, FieldError{prefix + ".max_tokens_output", "must be positive"})
	}
	if maxConc <= 0 {
		errs = append(errs, FieldError{prefix + ".max_concurrent_jobs", "must be positive"})
	}
	if len(providers) == 0 {
		errs = append(errs, FieldError{prefix + ".allowed_providers", "must not be empty"})
	}
	if burst <= 0 {
		errs = append(errs, FieldError{prefix + ".burst_rate_limit", "must be positive"})
	}
	if sustained <= 0 {
		errs = append(errs, FieldError{prefix + ".sustained_rate_limit", "must be positive"})
	}

	return errs
}

func validateLedger(cfg *LedgerConfig) []FieldError {
	var errs []FieldError

	switch cfg.Backend {
	case "memory", "sqlite":
	default:
		errs = append(errs, FieldError{"ledger.backend", fmt.Sprintf("unknown backend %q (expected \"memory\" or \"sqlite\")", cfg.Backend)})
	}
	if cfg.Backend == "sqlite" && cfg.SQLitePath == "" {
		errs = append(errs, FieldError{"ledger.sqlite_path", "field is required when backend is \"sqlite\""})
	}

	return errs
}

func validateBudget(cfg *BudgetConfig) []FieldError {
	var errs []FieldError

	if cfg.NearCeilingBand <= 0 || cfg.NearCeilingBand > 1 {
		errs = append(errs, FieldError{"budget.near_ceiling_band", "must be in (0, 1]"})
	}

	return errs
}

func validateCache(cfg *CacheConfig) []FieldError {
	var errs []FieldError

	if cfg.TTL <= 0 {
		errs = append(errs, FieldError{"cache.ttl", "must be positive"})
	}
	switch cfg.Backend {
	case "memory", "sqlite":
	default:
		errs = append(errs, FieldError{"cache.backend", fmt.Sprintf("unknown backend %q (expected \"memory\" or \"sqlite\")", cfg.Backend)})
	}
	if cfg.Backend == "sqlite" && cfg.SQLitePath == "" {
		errs = append(errs, FieldError{"cache.sqlite_path", "field is required when backend is \"sqlite\""})
	}

	return errs
}

func validateTelemetry(cfg *TelemetryConfig) []FieldError {
	var errs []FieldError

	switch cfg.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, FieldError{"telemetry.logging.level", fmt.Sprintf("unknown level %q", cfg.Logging.Level)})
	}

	switch cfg.Logging.Format {
	case "json", "text":
	default:
		errs = append(errs, FieldError{"telemetry.logging.format", fmt.Sprintf("unknown format %q", cfg.Logging.Format)})
	}

	if cfg.Metrics.Enabled && !strings.HasPrefix(cfg.Metrics.Path, "/") {
		errs = append(errs, FieldError{"telemetry.metrics.path", "must start with \"/\""})
	}

	return errs
}
