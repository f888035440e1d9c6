package cache

import (
	"context"
	"time"
)

// Entry is one cached provider response. Entries are shared across
// organizations: the digest fully identifies the request, so any tenant
// asking the same canonical question gets the same cached answer.
type Entry struct {
	// Digest is the content-addressed key computed by Key.
	Digest string `json:"digest"`

	Provider string `json:"provider"`
	Model    string `json:"model"`

	// Payload is the provider response body, stored verbatim.
	Payload string `json:"payload"`

	TokensIn  int `json:"tokensIn"`
	TokensOut int `json:"tokensOut"`

	// CostUSD is what the original provider call cost; served hits are
	// credited this amount as savings.
	CostUSD float64 `json:"costUsd"`

	// LatencyMS is how long the original provider call took.
	LatencyMS int64 `json:"latencyMs"`

	// HitCount only ever grows; increments are atomic in the backend.
	HitCount int64 `json:"hitCount"`

	CreatedAt      time.Time `json:"createdAt"`
	ExpiresAt      time.Time `json:"expiresAt"`
	LastAccessedAt time.Time `json:"lastAccessedAt"`
}

// Expired reports whether the entry is past its TTL at the given instant.
func (e *Entry) Expired(now time.Time) bool {
	return !e.ExpiresAt.After(now)
}

// Backend is the persisted key-value store behind the cache.
// Implementations must be safe for concurrent use.
type Backend interface {
	// Get returns the entry for a digest, or (nil, nil) if absent.
	// Expiry is the Cache's concern, not the backend's: expired rows are
	// returned as-is until a sweep removes them.
	Get(ctx context.Context, digest string) (*Entry, error)

	// Insert stores a new entry. A uniqueness conflict with an existing
	// row is a benign no-op, not an error: the winner's entry is equally
	// valid.
	Insert(ctx context.Context, entry *Entry) error

	// Touch atomically increments the hit count and advances the
	// last-accessed time. Concurrent touches must not lose increments.
	Touch(ctx context.Context, digest string, accessedAt time.Time) error

	// Delete removes an entry, reporting whether one existed.
	Delete(ctx context.Context, digest string) (bool, error)

	// DeleteExpired removes every entry with expiresAt at or before now
	// and returns how many were removed.
	DeleteExpired(ctx context.Context, now time.Time) (int, error)

	// Close releases backend resources.
	Close() error
}
