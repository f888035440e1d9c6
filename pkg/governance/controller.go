package governance

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"driftline/warden/pkg/governance/budget"
	"driftline/warden/pkg/governance/concurrency"
	"driftline/warden/pkg/governance/ratelimit"
	"driftline/warden/pkg/policy"
	"driftline/warden/pkg/pricing"
	"driftline/warden/pkg/telemetry/metrics"
)

// Pipeline stage names, used in deny verdicts and metric labels.
const (
	StageTokenLimit  = "token_limit"
	StageProvider    = "provider"
	StageBudget      = "budget"
	StageRateLimit   = "rate_limit"
	StageConcurrency = "concurrency"
	StageInternal    = "internal"
)

// Request is one admission question: may this call go to the provider?
type Request struct {
	OrganizationID string `json:"organizationId"`
	Provider       string `json:"provider"`
	Model          string `json:"model"`
	InputTokens    int    `json:"inputTokens"`
	OutputTokens   int    `json:"outputTokens"`
	TaskCategory   string `json:"taskCategory,omitempty"`
}

// Verdict is the outcome of an admission check.
type Verdict struct {
	// Allowed indicates whether the caller may issue the provider call.
	Allowed bool `json:"allowed"`

	// Stage names the pipeline stage that denied. Empty when allowed.
	Stage string `json:"stage,omitempty"`

	// Reason is a human-readable denial explanation carrying the numeric
	// values that triggered it. Empty when allowed.
	Reason string `json:"reason,omitempty"`

	// ForceCheapest instructs the caller to substitute the cheapest
	// compliant model. Only ever set on allowed verdicts.
	ForceCheapest bool `json:"forceCheapest,omitempty"`

	// Budget carries the affordability details when the budget stage ran.
	Budget *budget.Affordability `json:"budgetInfo,omitempty"`

	// EstimatedCostUSD is the projected cost used for the budget check.
	EstimatedCostUSD float64 `json:"estimatedCostUsd"`
}

// Controller runs the ordered admission pipeline: token limits, provider
// allow-list, budget, rate limits, concurrency. The order is fixed so that
// cheap in-memory checks run before the checks that read persisted state.
//
// Any panic or infrastructure error inside the pipeline converts to a
// hard deny. The controller never fails open: a governance bug must not
// translate into unbounded provider spend.
type Controller struct {
	resolver      *policy.Resolver
	guard         *budget.Guard
	limiter       ratelimit.Limiter
	tracker       concurrency.Tracker
	estimator     *pricing.Estimator
	logger        *slog.Logger
	metrics       *metrics.AdmissionMetrics
	budgetMetrics *metrics.BudgetMetrics
}

// Options configures a Controller. Resolver, Guard, Limiter, Tracker and
// Estimator are required; Logger and the metric groups may be nil.
type Options struct {
	Resolver      *policy.Resolver
	Guard         *budget.Guard
	Limiter       ratelimit.Limiter
	Tracker       concurrency.Tracker
	Estimator     *pricing.Estimator
	Logger        *slog.Logger
	Metrics       *metrics.AdmissionMetrics
	BudgetMetrics *metrics.BudgetMetrics
}

// NewController wires the admission pipeline.
func NewController(opts Options) *Controller {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{
		resolver:      opts.Resolver,
		guard:         opts.Guard,
		limiter:       opts.Limiter,
		tracker:       opts.Tracker,
		estimator:     opts.Estimator,
		logger:        logger,
		metrics:       opts.Metrics,
		budgetMetrics: opts.BudgetMetrics,
	}
}

// Check runs the admission pipeline for one request, short-circuiting on
// the first failing stage. Rate-limit counters are consumed as part of
// evaluation, so a request denied at the concurrency stage still counts
// toward the windows it already passed; it is not free to retry.
func (c *Controller) Check(ctx context.Context, req Request) (verdict Verdict) {
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("admission pipeline panicked, denying",
				"organization", req.OrganizationID, "panic", r)
			verdict = deny(StageInternal, "internal admission error")
		}
		c.observe(req.OrganizationID, verdict, time.Since(start))
	}()

	pol := c.resolver.Resolve(ctx, req.OrganizationID)
	maxRequestCost, maxTokensIn, maxTokensOut := pol.ForTask(req.TaskCategory)

	// 1. Token limits.
	if req.InputTokens > maxTokensIn {
		return deny(StageTokenLimit, fmt.Sprintf(
			"input tokens %d exceed limit %d", req.InputTokens, maxTokensIn))
	}
	if req.OutputTokens > maxTokensOut {
		return deny(StageTokenLimit, fmt.Sprintf(
			"output tokens %d exceed limit %d", req.OutputTokens, maxTokensOut))
	}

	// 2. Provider allow-list.
	if !pol.ProviderAllowed(req.Provider) {
		return deny(StageProvider, fmt.Sprintf(
			"provider %q not allowed; allowed providers: %s",
			req.Provider, strings.Join(pol.Providers(), ", ")))
	}

	// 3. Budget. Infrastructure errors here fail closed.
	estimated := c.estimator.Estimate(req.Provider, req.Model, req.InputTokens, req.OutputTokens)

	if maxRequestCost > 0 && estimated > maxRequestCost {
		v := deny(StageBudget, fmt.Sprintf(
			"estimated cost %.4f USD exceeds per-request limit %.4f USD",
			estimated, maxRequestCost))
		v.EstimatedCostUSD = estimated
		return v
	}

	afford, err := c.guard.CanAfford(ctx, req.OrganizationID, estimated, pol.MaxDailyCostUSD)
	if err != nil {
		c.logger.Error("budget check failed, denying",
			"organization", req.OrganizationID, "error", err)
		return deny(StageInternal, "budget state unavailable")
	}
	if c.budgetMetrics != nil {
		c.budgetMetrics.RecordState(req.OrganizationID, afford.DailySpend, afford.MaxDailyBudget)
		if !afford.Allowed {
			c.budgetMetrics.RecordDenial(req.OrganizationID)
		}
	}
	if !afford.Allowed {
		v := deny(StageBudget, afford.Reason)
		v.Budget = afford
		v.EstimatedCostUSD = estimated
		return v
	}

	// 4. Rate limits. The consume below mutates the window counters.
	if d := c.limiter.TryConsume(req.OrganizationID, pol.BurstRateLimit, pol.SustainedRateLimit); !d.Allowed {
		v := deny(StageRateLimit, d.Reason)
		v.Budget = afford
		v.EstimatedCostUSD = estimated
		return v
	}

	// 5. Concurrency. The increment itself happens in Begin, only after
	// the caller has committed to issuing the request.
	if current := c.tracker.Current(req.OrganizationID); current >= pol.MaxConcurrentJobs {
		v := deny(StageConcurrency, fmt.Sprintf(
			"concurrency limit reached: %d of %d active requests", current, pol.MaxConcurrentJobs))
		v.Budget = afford
		v.EstimatedCostUSD = estimated
		return v
	}

	return Verdict{
		Allowed:          true,
		ForceCheapest:    afford.ForceCheapest,
		Budget:           afford,
		EstimatedCostUSD: estimated,
	}
}

// Begin marks the start of an admitted request. Callers must pair every
// Begin with exactly one Finish on every terminal path, success or not.
func (c *Controller) Begin(organizationID string) {
	c.tracker.Increment(organizationID)
	if c.metrics != nil {
		c.metrics.SetConcurrent(organizationID, c.tracker.Current(organizationID))
	}
}

// Finish marks the end of a request. Safe to call even when the matching
// Begin was lost; the tracker saturates at zero.
func (c *Controller) Finish(organizationID string) {
	c.tracker.Decrement(organizationID)
	if c.metrics != nil {
		c.metrics.SetConcurrent(organizationID, c.tracker.Current(organizationID))
	}
}

// Snapshot returns the per-organization governance state for dashboards.
func (c *Controller) Snapshot(ctx context.Context, organizationID string) (*Status, error) {
	pol := c.resolver.Resolve(ctx, organizationID)

	spend, err := c.guard.DailySpend(ctx, organizationID, time.Time{})
	if err != nil {
		return nil, err
	}

	remaining := pol.MaxDailyCostUSD - spend
	if remaining < 0 {
		remaining = 0
	}

	return &Status{
		OrganizationID:  organizationID,
		TrialMode:       pol.TrialMode,
		DailySpendUSD:   spend,
		MaxDailyCostUSD: pol.MaxDailyCostUSD,
		RemainingUSD:    remaining,
		ActiveRequests:  c.tracker.Current(organizationID),
		MaxConcurrent:   pol.MaxConcurrentJobs,
		RateLimits:      c.limiter.Snapshot(organizationID),
	}, nil
}

// Status is a read-only view of one organization's governance state.
type Status struct {
	OrganizationID  string             `json:"organizationId"`
	TrialMode       bool               `json:"trialMode"`
	DailySpendUSD   float64            `json:"dailySpendUsd"`
	MaxDailyCostUSD float64            `json:"maxDailyCostUsd"`
	RemainingUSD    float64            `json:"remainingUsd"`
	ActiveRequests  int                `json:"activeRequests"`
	MaxConcurrent   int                `json:"maxConcurrent"`
	RateLimits      ratelimit.Snapshot `json:"rateLimits"`
}

func deny(stage, reason string) Verdict {
	return Verdict{Stage: stage, Reason: reason}
}

func (c *Controller) observe(organizationID string, v Verdict, elapsed time.Duration) {
	if c.metrics == nil {
		return
	}
	c.metrics.RecordCheck(organizationID, v.Stage, v.Allowed, elapsed)
	if v.ForceCheapest {
		c.metrics.RecordForceCheapest(organizationID)
	}
}
