package budget

import (
	"context"
	"fmt"
	"time"

	"driftline/warden/pkg/ledger"
)

// Affordability is the outcome of a CanAfford call.
type Affordability struct {
	// Allowed indicates whether the request fits within the daily ceiling.
	Allowed bool

	// Reason carries a denial explanation. Empty when allowed.
	Reason string

	// ForceCheapest is set when spend has entered the near-ceiling band
	// but the request still fits. Callers should substitute the cheapest
	// suitable model until the day rolls over.
	ForceCheapest bool

	// DailySpend is the organization's recorded spend so far today in USD.
	DailySpend float64

	// MaxDailyBudget is the ceiling the decision was made against.
	MaxDailyBudget float64

	// RemainingBudget is max(0, MaxDailyBudget-DailySpend).
	RemainingBudget float64

	// EstimatedCost echoes the projected cost of the request.
	EstimatedCost float64
}

// Guard answers budget-affordability questions against the usage ledger.
//
// Spend figures are always recomputed from the ledger; the guard holds no
// spend state of its own, so ledger writes from other processes are picked
// up immediately.
type Guard struct {
	ledger ledger.Ledger

	// nearCeilingBand is the fraction of the ceiling at which the soft
	// degrade signal activates, e.g. 0.8 for 80%.
	nearCeilingBand float64

	// now is swappable for tests.
	now func() time.Time
}

// NewGuard creates a guard over the given ledger. band is the fraction of
// the daily ceiling at which ForceCheapest activates; values outside (0, 1]
// fall back to 0.8.
func NewGuard(l ledger.Ledger, band float64) *Guard {
	if band <= 0 || band > 1 {
		band = 0.8
	}
	return &Guard{
		ledger:          l,
		nearCeilingBand: band,
		now:             time.Now,
	}
}

// DailySpend returns the organization's total recorded cost for the UTC day
// containing date. A zero date means today.
func (g *Guard) DailySpend(ctx context.Context, organizationID string, date time.Time) (float64, error) {
	if date.IsZero() {
		date = g.now()
	}

	start, end := ledger.DayBounds(date)
	spend, err := g.ledger.SumCostRange(ctx, organizationID, start, end)
	if err != nil {
		return 0, fmt.Errorf("summing daily spend for %s: %w", organizationID, err)
	}
	return spend, nil
}

// RemainingBudget returns how much of the daily ceiling is left, floored
// at zero.
func (g *Guard) RemainingBudget(ctx context.Context, organizationID string, maxDailyBudget float64) (float64, error) {
	spend, err := g.DailySpend(ctx, organizationID, time.Time{})
	if err != nil {
		return 0, err
	}

	remaining := maxDailyBudget - spend
	if remaining < 0 {
		remaining = 0
	}
	return remaining, nil
}

// CanAfford decides whether a request with the given estimated cost fits
// within today's ceiling. The request is denied when spend plus estimate
// strictly exceeds the ceiling; landing exactly on the ceiling is allowed.
//
// Ledger errors are returned to the caller rather than absorbed, so the
// admission pipeline can convert them into a deny.
func (g *Guard) CanAfford(ctx context.Context, organizationID string, estimatedCost, maxDailyBudget float64) (*Affordability, error) {
	spend, err := g.DailySpend(ctx, organizationID, time.Time{})
	if err != nil {
		return nil, err
	}

	remaining := maxDailyBudget - spend
	if remaining < 0 {
		remaining = 0
	}

	result := &Affordability{
		DailySpend:      spend,
		MaxDailyBudget:  maxDailyBudget,
		RemainingBudget: remaining,
		EstimatedCost:   estimatedCost,
	}

	if spend+estimatedCost > maxDailyBudget {
		result.Reason = fmt.Sprintf(
			"daily budget exceeded: spent %.4f of %.4f USD, request estimated at %.4f USD",
			spend, maxDailyBudget, estimatedCost)
		return result, nil
	}

	result.Allowed = true
	if spend >= g.nearCeilingBand*maxDailyBudget {
		result.ForceCheapest = true
	}
	return result, nil
}
