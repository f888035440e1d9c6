package concurrency

import "sync"

// Tracker counts in-flight requests per organization.
//
// The admission check reads Current and compares it against the policy
// ceiling; Increment is called only once admission succeeds, and Decrement
// must be wired to every terminal path of the request (success, error,
// abort) or the counter leaks and starves future admissions.
type Tracker interface {
	// Increment records the start of a request for the organization.
	Increment(organizationID string)

	// Decrement records the end of a request. Saturates at zero so
	// double-decrement or out-of-order completion never drives the
	// count negative.
	Decrement(organizationID string)

	// Current returns the number of in-flight requests.
	Current(organizationID string) int

	// Clear resets the organization's count. Test and ops hook only.
	Clear(organizationID string)
}

// MemoryTracker is the in-process Tracker implementation. Counts live for
// the process lifetime and reset on restart.
type MemoryTracker struct {
	mu     sync.Mutex
	counts map[string]int
}

// NewMemoryTracker creates an empty tracker.
func NewMemoryTracker() *MemoryTracker {
	return &MemoryTracker{counts: make(map[string]int)}
}

func (t *MemoryTracker) Increment(organizationID string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.counts[organizationID]++
}

func (t *MemoryTracker) Decrement(organizationID string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.counts[organizationID] > 0 {
		t.counts[organizationID]--
	}
}

func (t *MemoryTracker) Current(organizationID string) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.counts[organizationID]
}

func (t *MemoryTracker) Clear(organizationID string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	delete(t.counts, organizationID)
}
