package ledger

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func TestDayBounds(t *testing.T) {
	ts := time.Date(2025, 6, 15, 13, 45, 30, 0, time.UTC)
	start, end := DayBounds(ts)

	if !start.Equal(time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("Unexpected day start: %v", start)
	}
	if !end.Equal(time.Date(2025, 6, 16, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("Unexpected day end: %v", end)
	}
}

func TestMemoryLedger_SumCostRange(t *testing.T) {
	l := NewMemoryLedger()
	ctx := context.Background()

	now := time.Now()
	for _, cost := range []float64{1.50, 2.25, 0.25} {
		entry := NewEntry("org-1", "openai", "gpt-4", 100, 50, cost)
		entry.CreatedAt = now
		if err := l.Append(ctx, entry); err != nil {
			t.Fatalf("Append failed: %v", err)
		}
	}

	// Entry for a different org must not count.
	other := NewEntry("org-2", "openai", "gpt-4", 100, 50, 99.00)
	other.CreatedAt = now
	if err := l.Append(ctx, other); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	// Entry outside the range must not count.
	old := NewEntry("org-1", "openai", "gpt-4", 100, 50, 10.00)
	old.CreatedAt = now.Add(-48 * time.Hour)
	if err := l.Append(ctx, old); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	start, end := DayBounds(now)
	sum, err := l.SumCostRange(ctx, "org-1", start, end)
	if err != nil {
		t.Fatalf("SumCostRange failed: %v", err)
	}
	if sum != 4.00 {
		t.Errorf("Expected 4.00, got %v", sum)
	}
}

func TestMemoryLedger_Monotonic(t *testing.T) {
	l := NewMemoryLedger()
	ctx := context.Background()
	now := time.Now()
	start, end := DayBounds(now)

	var last float64
	for i := 0; i < 5; i++ {
		entry := NewEntry("org-1", "openai", "gpt-4", 10, 10, 0.50)
		entry.CreatedAt = now
		if err := l.Append(ctx, entry); err != nil {
			t.Fatalf("Append failed: %v", err)
		}

		sum, err := l.SumCostRange(ctx, "org-1", start, end)
		if err != nil {
			t.Fatalf("SumCostRange failed: %v", err)
		}
		if sum < last {
			t.Errorf("Daily sum decreased: %v -> %v", last, sum)
		}
		last = sum
	}
}

func TestSQLiteLedger_RoundTrip(t *testing.T) {
	l, err := NewSQLiteLedger(filepath.Join(t.TempDir(), "ledger.db"))
	if err != nil {
		t.Fatalf("Failed to create ledger: %v", err)
	}
	defer l.Close()

	ctx := context.Background()
	now := time.Now()

	entry := NewEntry("org-1", "anthropic", "claude-sonnet", 500, 200, 0.0375)
	entry.CreatedAt = now
	if err := l.Append(ctx, entry); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	start, end := DayBounds(now)
	sum, err := l.SumCostRange(ctx, "org-1", start, end)
	if err != nil {
		t.Fatalf("SumCostRange failed: %v", err)
	}
	if sum != 0.0375 {
		t.Errorf("Expected 0.0375, got %v", sum)
	}

	// Empty range sums to zero, not an error.
	sum, err = l.SumCostRange(ctx, "org-1", start.AddDate(0, 0, -7), end.AddDate(0, 0, -7))
	if err != nil {
		t.Fatalf("SumCostRange failed: %v", err)
	}
	if sum != 0 {
		t.Errorf("Expected 0 for empty range, got %v", sum)
	}
}
