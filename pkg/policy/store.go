package policy

import (
	"context"
	"sync"
)

// Store reads tenant policy rows. Implementations must be safe for
// concurrent use. A missing row is a normal outcome, reported as
// (nil, nil), not an error.
type Store interface {
	// Fetch returns the stored policy row for an organization, or nil if
	// the organization has no tenant-specific policy.
	Fetch(ctx context.Context, organizationID string) (*StoredPolicy, error)

	// Close releases any resources held by the store.
	Close() error
}

// NopStore is a Store with no tenant rows: every organization resolves to
// the system defaults. Used when no policy store is configured.
type NopStore struct{}

// Fetch always reports no tenant row.
func (NopStore) Fetch(ctx context.Context, organizationID string) (*StoredPolicy, error) {
	return nil, nil
}

// Close is a no-op.
func (NopStore) Close() error { return nil }

// MemoryStore is an in-memory Store for tests and development.
type MemoryStore struct {
	mu   sync.RWMutex
	rows map[string]*StoredPolicy
}

// NewMemoryStore creates an empty in-memory policy store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{rows: make(map[string]*StoredPolicy)}
}

// Put inserts or replaces a tenant policy row.
func (m *MemoryStore) Put(row *StoredPolicy) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows[row.OrganizationID] = row
}

// Fetch returns the stored row, or nil if absent.
func (m *MemoryStore) Fetch(ctx context.Context, organizationID string) (*StoredPolicy, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.rows[organizationID], nil
}

// Close is a no-op.
func (m *MemoryStore) Close() error { return nil }
