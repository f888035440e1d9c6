package ledger

import (
	"context"
	"time"
)

// Ledger is the append-only log of billed requests. Warden's governance
// core only reads aggregates from it; appends come from the caller after a
// provider call completes. Implementations must be safe for concurrent use.
type Ledger interface {
	// Append records one completed billed request.
	Append(ctx context.Context, entry *Entry) error

	// SumCostRange returns the total cost for an organization within
	// [from, to).
	SumCostRange(ctx context.Context, organizationID string, from, to time.Time) (float64, error)

	// Close releases any resources held by the ledger.
	Close() error
}

// DayBounds returns the [start, end) boundaries of the calendar day
// containing ts, in ts's location.
func DayBounds(ts time.Time) (time.Time, time.Time) {
	year, month, day := ts.Date()
	start := time.Date(year, month, day, 0, 0, 0, 0, ts.Location())
	return start, start.AddDate(0, 0, 1)
}
