package ledger

import (
	"context"
	"sync"
	"time"
)

// MemoryLedger is an in-memory Ledger. All data is lost when the process
// exits; it exists for tests and single-node development.
type MemoryLedger struct {
	mu      sync.RWMutex
	entries map[string][]*Entry
}

// NewMemoryLedger creates an empty in-memory ledger.
func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{entries: make(map[string][]*Entry)}
}

// Append records one completed billed request.
func (m *MemoryLedger) Append(ctx context.Context, entry *Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	copied := *entry
	m.entries[entry.OrganizationID] = append(m.entries[entry.OrganizationID], &copied)
	return nil
}

// SumCostRange returns the total cost for an organization within [from, to).
func (m *MemoryLedger) SumCostRange(ctx context.Context, organizationID string, from, to time.Time) (float64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var sum float64
	for _, entry := range m.entries[organizationID] {
		if !entry.CreatedAt.Before(from) && entry.CreatedAt.Before(to) {
			sum += entry.CostUSD
		}
	}
	return sum, nil
}

// Count returns the number of entries for an organization. Useful for tests.
func (m *MemoryLedger) Count(organizationID string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries[organizationID])
}

// Close is a no-op.
func (m *MemoryLedger) Close() error { return nil }
