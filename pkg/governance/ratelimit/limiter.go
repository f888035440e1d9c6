package ratelimit

import (
	"fmt"
	"sync"
	"time"
)

// Window lengths are fixed. Callers only supply the numeric limits; the
// windows themselves are not configurable per tenant.
const (
	// BurstWindow is the short window used to absorb request spikes.
	BurstWindow = 10 * time.Second

	// SustainedWindow is the longer window that bounds steady-state rate.
	SustainedWindow = 60 * time.Second
)

// Scope identifies which window produced a rate-limit decision.
type Scope string

const (
	ScopeBurst     Scope = "burst"
	ScopeSustained Scope = "sustained"
)

// Decision is the outcome of a TryConsume call.
type Decision struct {
	// Allowed indicates whether the request may proceed.
	Allowed bool

	// Scope names the window that denied the request. Empty when allowed.
	Scope Scope

	// Limit is the configured limit for the denying window.
	Limit int

	// Reason is a human-readable denial explanation. Empty when allowed.
	Reason string
}

// Limiter tracks per-organization request rates over two fixed windows.
//
// Implementations must be safe for concurrent use. State is in-process
// only and resets on restart.
type Limiter interface {
	// TryConsume records a request attempt for the organization and
	// reports whether it fits within both the burst and sustained limits.
	// The call mutates window counters as part of evaluation.
	TryConsume(organizationID string, burstLimit, sustainedLimit int) Decision

	// Clear wipes all tracked state for the organization. Test and ops
	// hook only, never called on the request path.
	Clear(organizationID string)

	// Snapshot returns the current window counters without mutating them.
	// For dashboards only, never for control flow.
	Snapshot(organizationID string) Snapshot
}

// WindowState is a read-only view of one counting window.
type WindowState struct {
	Count       int       `json:"count"`
	WindowStart time.Time `json:"windowStart"`
}

// Snapshot is a read-only view of an organization's rate-limit state.
type Snapshot struct {
	Burst     WindowState `json:"burst"`
	Sustained WindowState `json:"sustained"`
}

// window is a fixed, non-overlapping counting window.
type window struct {
	count int
	start time.Time
}

// entry holds both windows for one organization.
type entry struct {
	mu        sync.Mutex
	burst     window
	sustained window
}

// FixedWindowLimiter implements Limiter with fixed (non-sliding) windows.
//
// Counters reset to 1 the instant the elapsed time since the window start
// exceeds the window length; prior overage is forgiven. Within a live
// window the deny condition is checked before incrementing, so a limit of
// N admits exactly N requests per window.
type FixedWindowLimiter struct {
	mu      sync.Mutex
	entries map[string]*entry

	// now is swappable for tests.
	now func() time.Time
}

// NewFixedWindowLimiter creates an empty limiter.
func NewFixedWindowLimiter() *FixedWindowLimiter {
	return &FixedWindowLimiter{
		entries: make(map[string]*entry),
		now:     time.Now,
	}
}

// TryConsume evaluates the burst window first, then the sustained window.
// A burst denial leaves the sustained window untouched; a sustained denial
// does not roll back the burst consumption already recorded.
func (l *FixedWindowLimiter) TryConsume(organizationID string, burstLimit, sustainedLimit int) Decision {
	e := l.entryFor(organizationID)

	e.mu.Lock()
	defer e.mu.Unlock()

	now := l.now()

	if !consume(&e.burst, now, BurstWindow, burstLimit) {
		return Decision{
			Scope:  ScopeBurst,
			Limit:  burstLimit,
			Reason: fmt.Sprintf("burst rate limit exceeded: %d requests per %s", burstLimit, BurstWindow),
		}
	}

	if !consume(&e.sustained, now, SustainedWindow, sustainedLimit) {
		return Decision{
			Scope:  ScopeSustained,
			Limit:  sustainedLimit,
			Reason: fmt.Sprintf("sustained rate limit exceeded: %d requests per %s", sustainedLimit, SustainedWindow),
		}
	}

	return Decision{Allowed: true}
}

// Snapshot returns the organization's current window counters. Windows
// that have already expired are reported as they stand; no reset happens.
func (l *FixedWindowLimiter) Snapshot(organizationID string) Snapshot {
	l.mu.Lock()
	e, ok := l.entries[organizationID]
	l.mu.Unlock()

	if !ok {
		return Snapshot{}
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	return Snapshot{
		Burst:     WindowState{Count: e.burst.count, WindowStart: e.burst.start},
		Sustained: WindowState{Count: e.sustained.count, WindowStart: e.sustained.start},
	}
}

// Clear removes all window state for the organization.
func (l *FixedWindowLimiter) Clear(organizationID string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	delete(l.entries, organizationID)
}

func (l *FixedWindowLimiter) entryFor(organizationID string) *entry {
	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.entries[organizationID]
	if !ok {
		e = &entry{}
		l.entries[organizationID] = e
	}
	return e
}

// consume applies the fixed-window state machine to a single window.
// Caller must hold the entry lock.
func consume(w *window, now time.Time, length time.Duration, limit int) bool {
	// First request, or the window has expired: open a fresh window.
	if w.start.IsZero() || now.Sub(w.start) > length {
		w.start = now
		w.count = 1
		return true
	}

	// Deny is checked before incrementing, so the Nth request inside a
	// window is allowed and the (N+1)th is denied.
	if w.count >= limit {
		return false
	}

	w.count++
	return true
}
