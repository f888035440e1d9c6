package cache

import (
	"context"
	"sync"
	"time"
)

// MemoryBackend is an in-process Backend for tests and single-node
// deployments that can tolerate losing the cache on restart.
type MemoryBackend struct {
	mu      sync.Mutex
	entries map[string]*Entry
}

// NewMemoryBackend creates an empty in-memory backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{entries: make(map[string]*Entry)}
}

func (m *MemoryBackend) Get(ctx context.Context, digest string) (*Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[digest]
	if !ok {
		return nil, nil
	}
	copied := *e
	return &copied, nil
}

func (m *MemoryBackend) Insert(ctx context.Context, entry *Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	// First writer wins; a concurrent duplicate insert is a no-op.
	if _, ok := m.entries[entry.Digest]; ok {
		return nil
	}
	copied := *entry
	m.entries[entry.Digest] = &copied
	return nil
}

func (m *MemoryBackend) Touch(ctx context.Context, digest string, accessedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if e, ok := m.entries[digest]; ok {
		e.HitCount++
		if accessedAt.After(e.LastAccessedAt) {
			e.LastAccessedAt = accessedAt
		}
	}
	return nil
}

func (m *MemoryBackend) Delete(ctx context.Context, digest string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.entries[digest]; !ok {
		return false, nil
	}
	delete(m.entries, digest)
	return true, nil
}

func (m *MemoryBackend) DeleteExpired(ctx context.Context, now time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var removed int
	for digest, e := range m.entries {
		if e.Expired(now) {
			delete(m.entries, digest)
			removed++
		}
	}
	return removed, nil
}

func (m *MemoryBackend) Close() error { return nil }

// Len reports the number of stored entries, expired or not.
func (m *MemoryBackend) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}
