package budget

import (
	"context"
	"errors"
	"testing"
	"time"

	"driftline/warden/pkg/ledger"
)

func record(t *testing.T, l ledger.Ledger, org string, cost float64) {
	t.Helper()

	entry := ledger.NewEntry(org, "openai", "gpt-4", 100, 50, cost)
	if err := l.Append(context.Background(), entry); err != nil {
		t.Fatalf("Append failed: %v", err)
	}
}

func TestCanAfford_WithinBudget(t *testing.T) {
	l := ledger.NewMemoryLedger()
	g := NewGuard(l, 0.8)

	record(t, l, "org-1", 2.00)

	res, err := g.CanAfford(context.Background(), "org-1", 1.00, 10.00)
	if err != nil {
		t.Fatalf("CanAfford failed: %v", err)
	}
	if !res.Allowed {
		t.Errorf("Expected allow: %+v", res)
	}
	if res.ForceCheapest {
		t.Error("ForceCheapest should not be set below the band")
	}
	if res.DailySpend != 2.00 {
		t.Errorf("Expected daily spend 2.00, got %v", res.DailySpend)
	}
	if res.RemainingBudget != 8.00 {
		t.Errorf("Expected remaining 8.00, got %v", res.RemainingBudget)
	}
}

func TestCanAfford_NearCeilingThenDenied(t *testing.T) {
	l := ledger.NewMemoryLedger()
	g := NewGuard(l, 0.8)
	ctx := context.Background()

	// Spend sits at 9.50 of a 10.00 ceiling. A 0.40 request still fits
	// (9.90 total) but is inside the 80% band, so it degrades.
	record(t, l, "org-1", 9.50)

	res, err := g.CanAfford(ctx, "org-1", 0.40, 10.00)
	if err != nil {
		t.Fatalf("CanAfford failed: %v", err)
	}
	if !res.Allowed {
		t.Errorf("Expected allow at 9.90 total: %+v", res)
	}
	if !res.ForceCheapest {
		t.Error("Expected ForceCheapest inside the near-ceiling band")
	}

	// After recording that spend, a 0.20 request would land at 10.10.
	record(t, l, "org-1", 0.40)

	res, err = g.CanAfford(ctx, "org-1", 0.20, 10.00)
	if err != nil {
		t.Fatalf("CanAfford failed: %v", err)
	}
	if res.Allowed {
		t.Errorf("Expected deny at 10.10 total: %+v", res)
	}
	if res.Reason == "" {
		t.Error("Denial should carry a reason")
	}
}

func TestCanAfford_ExactCeilingAllowed(t *testing.T) {
	l := ledger.NewMemoryLedger()
	g := NewGuard(l, 0.8)

	record(t, l, "org-1", 9.00)

	// Landing exactly on the ceiling is allowed; only strict overshoot
	// is denied.
	res, err := g.CanAfford(context.Background(), "org-1", 1.00, 10.00)
	if err != nil {
		t.Fatalf("CanAfford failed: %v", err)
	}
	if !res.Allowed {
		t.Errorf("Expected allow at exactly 10.00: %+v", res)
	}
}

func TestDailySpend_IgnoresOtherDays(t *testing.T) {
	l := ledger.NewMemoryLedger()
	g := NewGuard(l, 0.8)
	ctx := context.Background()

	yesterday := ledger.NewEntry("org-1", "openai", "gpt-4", 100, 50, 5.00)
	yesterday.CreatedAt = time.Now().Add(-25 * time.Hour)
	if err := l.Append(ctx, yesterday); err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	record(t, l, "org-1", 1.00)

	spend, err := g.DailySpend(ctx, "org-1", time.Time{})
	if err != nil {
		t.Fatalf("DailySpend failed: %v", err)
	}
	if spend != 1.00 {
		t.Errorf("Expected 1.00 for today only, got %v", spend)
	}
}

func TestRemainingBudget_FlooredAtZero(t *testing.T) {
	l := ledger.NewMemoryLedger()
	g := NewGuard(l, 0.8)

	record(t, l, "org-1", 15.00)

	remaining, err := g.RemainingBudget(context.Background(), "org-1", 10.00)
	if err != nil {
		t.Fatalf("RemainingBudget failed: %v", err)
	}
	if remaining != 0 {
		t.Errorf("Expected remaining 0 when overspent, got %v", remaining)
	}
}

// failingLedger always errors, standing in for a broken backing store.
type failingLedger struct{}

func (failingLedger) Append(context.Context, *ledger.Entry) error { return errors.New("ledger down") }
func (failingLedger) SumCostRange(context.Context, string, time.Time, time.Time) (float64, error) {
	return 0, errors.New("ledger down")
}
func (failingLedger) Close() error { return nil }

func TestCanAfford_LedgerErrorSurfaced(t *testing.T) {
	g := NewGuard(failingLedger{}, 0.8)

	if _, err := g.CanAfford(context.Background(), "org-1", 1.00, 10.00); err == nil {
		t.Error("Expected ledger error to be surfaced")
	}
}
