package governance

import (
	"context"
	"testing"
	"time"

	"driftline/warden/pkg/config"
	"driftline/warden/pkg/governance/budget"
	"driftline/warden/pkg/governance/concurrency"
	"driftline/warden/pkg/governance/ratelimit"
	"driftline/warden/pkg/ledger"
	"driftline/warden/pkg/policy"
	"driftline/warden/pkg/pricing"
)

func testDefaults() config.PolicyDefaults {
	return config.PolicyDefaults{
		MaxDailyCostUSD:    10.00,
		MaxRequestCostUSD:  5.00,
		MaxTokensInput:     4000,
		MaxTokensOutput:    2000,
		MaxConcurrentJobs:  3,
		AllowedProviders:   []string{"openai", "anthropic"},
		BurstRateLimit:     3,
		SustainedRateLimit: 30,
	}
}

func testTrial() config.TrialLimits {
	return config.TrialLimits{
		MaxDailyCostUSD:    1.00,
		MaxRequestCostUSD:  0.25,
		MaxTokensInput:     1000,
		MaxTokensOutput:    500,
		MaxConcurrentJobs:  1,
		AllowedProviders:   []string{"openai"},
		BurstRateLimit:     2,
		SustainedRateLimit: 5,
	}
}

type fixture struct {
	controller *Controller
	ledger     *ledger.MemoryLedger
	tracker    *concurrency.MemoryTracker
	limiter    *ratelimit.FixedWindowLimiter
	resolver   *policy.Resolver
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	l := ledger.NewMemoryLedger()
	tracker := concurrency.NewMemoryTracker()
	limiter := ratelimit.NewFixedWindowLimiter()
	resolver := policy.NewResolver(policy.NopStore{}, testDefaults(), testTrial(), nil)

	estimator := pricing.NewEstimator(&config.PricingConfig{
		Rates: map[string]map[string]config.ModelRate{
			"openai": {"gpt-4": {InputPer1K: 0.03, OutputPer1K: 0.06}},
		},
		Default: config.ModelRate{InputPer1K: 0.01, OutputPer1K: 0.03},
	})

	controller := NewController(Options{
		Resolver:  resolver,
		Guard:     budget.NewGuard(l, 0.8),
		Limiter:   limiter,
		Tracker:   tracker,
		Estimator: estimator,
	})

	return &fixture{
		controller: controller,
		ledger:     l,
		tracker:    tracker,
		limiter:    limiter,
		resolver:   resolver,
	}
}

func basicRequest() Request {
	return Request{
		OrganizationID: "org-1",
		Provider:       "openai",
		Model:          "gpt-4",
		InputTokens:    1000,
		OutputTokens:   500,
	}
}

func TestCheck_Allowed(t *testing.T) {
	f := newFixture(t)

	v := f.controller.Check(context.Background(), basicRequest())
	if !v.Allowed {
		t.Fatalf("Expected allow: %+v", v)
	}
	if v.ForceCheapest {
		t.Error("ForceCheapest should not be set with zero spend")
	}
	if v.EstimatedCostUSD != 0.06 {
		t.Errorf("Expected estimated cost 0.06, got %v", v.EstimatedCostUSD)
	}
}

func TestCheck_TokenLimits(t *testing.T) {
	f := newFixture(t)

	req := basicRequest()
	req.InputTokens = 5000
	v := f.controller.Check(context.Background(), req)
	if v.Allowed || v.Stage != StageTokenLimit {
		t.Errorf("Expected token-limit denial, got %+v", v)
	}

	req = basicRequest()
	req.OutputTokens = 3000
	v = f.controller.Check(context.Background(), req)
	if v.Allowed || v.Stage != StageTokenLimit {
		t.Errorf("Expected token-limit denial, got %+v", v)
	}
	if v.Reason == "" {
		t.Error("Denial should carry a reason")
	}
}

func TestCheck_ProviderAllowList(t *testing.T) {
	f := newFixture(t)

	req := basicRequest()
	req.Provider = "cohere"
	v := f.controller.Check(context.Background(), req)
	if v.Allowed || v.Stage != StageProvider {
		t.Errorf("Expected provider denial, got %+v", v)
	}
}

func TestCheck_BudgetDenial(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	entry := ledger.NewEntry("org-1", "openai", "gpt-4", 0, 0, 9.99)
	if err := f.ledger.Append(ctx, entry); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	v := f.controller.Check(ctx, basicRequest())
	if v.Allowed || v.Stage != StageBudget {
		t.Errorf("Expected budget denial, got %+v", v)
	}
	if v.Budget == nil || v.Budget.DailySpend != 9.99 {
		t.Errorf("Expected budget info on denial, got %+v", v.Budget)
	}
}

func TestCheck_ForceCheapest(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// 8.50 of 10.00 is inside the 80% band but a 0.06 request still fits.
	entry := ledger.NewEntry("org-1", "openai", "gpt-4", 0, 0, 8.50)
	if err := f.ledger.Append(ctx, entry); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	v := f.controller.Check(ctx, basicRequest())
	if !v.Allowed {
		t.Fatalf("Expected allow: %+v", v)
	}
	if !v.ForceCheapest {
		t.Error("Expected ForceCheapest inside the near-ceiling band")
	}
}

func TestCheck_PerRequestCostLimit(t *testing.T) {
	f := newFixture(t)

	// Tenant sets a per-request ceiling below the 0.06 estimate.
	store := policy.NewMemoryStore()
	maxReq := 0.01
	store.Put(&policy.StoredPolicy{
		OrganizationID:    "org-1",
		MaxRequestCostUSD: &maxReq,
	})
	f.resolver = policy.NewResolver(store, testDefaults(), testTrial(), nil)
	f.controller.resolver = f.resolver

	v := f.controller.Check(context.Background(), basicRequest())
	if v.Allowed || v.Stage != StageBudget {
		t.Errorf("Expected per-request cost denial, got %+v", v)
	}
}

func TestCheck_BurstRateLimit(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// Burst limit is 3: three checks succeed, the fourth is denied with
	// a burst reason.
	for i := 0; i < 3; i++ {
		v := f.controller.Check(ctx, basicRequest())
		if !v.Allowed {
			t.Fatalf("Check %d should be allowed: %+v", i+1, v)
		}
	}

	v := f.controller.Check(ctx, basicRequest())
	if v.Allowed || v.Stage != StageRateLimit {
		t.Errorf("Expected rate-limit denial, got %+v", v)
	}
}

func TestCheck_ConcurrencyDenial(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		f.controller.Begin("org-1")
	}

	v := f.controller.Check(ctx, basicRequest())
	if v.Allowed || v.Stage != StageConcurrency {
		t.Errorf("Expected concurrency denial, got %+v", v)
	}

	// Finishing one request frees a slot.
	f.controller.Finish("org-1")
	if v := f.controller.Check(ctx, basicRequest()); !v.Allowed {
		t.Errorf("Expected allow after Finish: %+v", v)
	}
}

func TestCheck_ConcurrencyDenialStillConsumesRateWindow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		f.controller.Begin("org-1")
	}

	// Two concurrency-denied checks still burn burst-window budget.
	for i := 0; i < 2; i++ {
		if v := f.controller.Check(ctx, basicRequest()); v.Stage != StageConcurrency {
			t.Fatalf("Expected concurrency denial, got %+v", v)
		}
	}

	for i := 0; i < 3; i++ {
		f.controller.Finish("org-1")
	}

	// Burst limit 3, two consumed: one allowed, then rate-limit denial.
	if v := f.controller.Check(ctx, basicRequest()); !v.Allowed {
		t.Fatalf("Expected allow: %+v", v)
	}
	if v := f.controller.Check(ctx, basicRequest()); v.Stage != StageRateLimit {
		t.Errorf("Expected rate-limit denial, got %+v", v)
	}
}

// failingStore panics on every fetch, simulating a collaborator bug.
type failingStore struct{}

func (failingStore) Fetch(context.Context, string) (*policy.StoredPolicy, error) {
	panic("store exploded")
}
func (failingStore) Close() error { return nil }

func TestCheck_FailClosedOnPanic(t *testing.T) {
	f := newFixture(t)
	f.controller.resolver = policy.NewResolver(failingStore{}, testDefaults(), testTrial(), nil)

	v := f.controller.Check(context.Background(), basicRequest())
	if v.Allowed {
		t.Fatal("Panicking collaborator must produce a deny, not an allow")
	}
	if v.Stage != StageInternal {
		t.Errorf("Expected internal stage, got %q", v.Stage)
	}
}

func TestCheck_FailClosedOnLedgerError(t *testing.T) {
	f := newFixture(t)
	f.controller.guard = budget.NewGuard(erroringLedger{}, 0.8)

	v := f.controller.Check(context.Background(), basicRequest())
	if v.Allowed || v.Stage != StageInternal {
		t.Errorf("Expected fail-closed internal denial, got %+v", v)
	}
}

type erroringLedger struct{}

func (erroringLedger) Append(context.Context, *ledger.Entry) error {
	return context.DeadlineExceeded
}
func (erroringLedger) SumCostRange(context.Context, string, time.Time, time.Time) (float64, error) {
	return 0, context.DeadlineExceeded
}
func (erroringLedger) Close() error { return nil }

func TestSnapshot(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	entry := ledger.NewEntry("org-1", "openai", "gpt-4", 100, 50, 2.50)
	if err := f.ledger.Append(ctx, entry); err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	f.controller.Begin("org-1")
	f.controller.Check(ctx, basicRequest())

	st, err := f.controller.Snapshot(ctx, "org-1")
	if err != nil {
		t.Fatalf("Snapshot failed: %v", err)
	}
	if st.DailySpendUSD < 2.50 {
		t.Errorf("Expected daily spend >= 2.50, got %v", st.DailySpendUSD)
	}
	if st.ActiveRequests != 1 {
		t.Errorf("Expected 1 active request, got %d", st.ActiveRequests)
	}
	if st.RateLimits.Burst.Count != 1 {
		t.Errorf("Expected burst count 1, got %d", st.RateLimits.Burst.Count)
	}
}
