package ratelimit

import (
	"sync"
	"testing"
	"time"
)

// fakeClock makes window expiry deterministic without sleeping.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestLimiter(clock *fakeClock) *FixedWindowLimiter {
	l := NewFixedWindowLimiter()
	l.now = clock.Now
	return l
}

func TestTryConsume_BurstLimit(t *testing.T) {
	clock := newFakeClock()
	l := newTestLimiter(clock)

	// A burst limit of 3 admits exactly 3 requests in the window.
	for i := 0; i < 3; i++ {
		d := l.TryConsume("org-1", 3, 100)
		if !d.Allowed {
			t.Fatalf("Request %d should be allowed: %+v", i+1, d)
		}
	}

	d := l.TryConsume("org-1", 3, 100)
	if d.Allowed {
		t.Error("Fourth request should be denied")
	}
	if d.Scope != ScopeBurst {
		t.Errorf("Expected burst scope, got %q", d.Scope)
	}
	if d.Limit != 3 {
		t.Errorf("Expected limit 3 in decision, got %d", d.Limit)
	}
	if d.Reason == "" {
		t.Error("Denial should carry a reason")
	}
}

func TestTryConsume_WindowReset(t *testing.T) {
	clock := newFakeClock()
	l := newTestLimiter(clock)

	for i := 0; i < 3; i++ {
		l.TryConsume("org-1", 3, 100)
	}
	if d := l.TryConsume("org-1", 3, 100); d.Allowed {
		t.Fatal("Expected denial before window expiry")
	}

	// Once the burst window elapses the counter resets to 1 and the
	// prior overage is forgiven.
	clock.Advance(BurstWindow + time.Second)

	if d := l.TryConsume("org-1", 3, 100); !d.Allowed {
		t.Errorf("Expected allow after window reset: %+v", d)
	}
}

func TestTryConsume_SustainedLimit(t *testing.T) {
	clock := newFakeClock()
	l := newTestLimiter(clock)

	// High burst limit so only the sustained window can deny. Spread
	// requests across burst windows to keep burst counts low.
	for i := 0; i < 5; i++ {
		d := l.TryConsume("org-1", 100, 5)
		if !d.Allowed {
			t.Fatalf("Request %d should be allowed: %+v", i+1, d)
		}
		clock.Advance(time.Second)
	}

	d := l.TryConsume("org-1", 100, 5)
	if d.Allowed {
		t.Error("Sixth request should be denied by sustained window")
	}
	if d.Scope != ScopeSustained {
		t.Errorf("Expected sustained scope, got %q", d.Scope)
	}
	if d.Limit != 5 {
		t.Errorf("Expected limit 5 in decision, got %d", d.Limit)
	}
}

func TestTryConsume_BurstDenialLeavesSustainedUntouched(t *testing.T) {
	clock := newFakeClock()
	l := newTestLimiter(clock)

	// Exhaust the burst window, then generate denials.
	for i := 0; i < 2; i++ {
		l.TryConsume("org-1", 2, 4)
	}
	for i := 0; i < 10; i++ {
		l.TryConsume("org-1", 2, 4)
	}

	// After the burst window rolls over, the sustained count should be 2
	// (the denied attempts never reached it), leaving room for 2 more.
	clock.Advance(BurstWindow + time.Second)

	for i := 0; i < 2; i++ {
		if d := l.TryConsume("org-1", 2, 4); !d.Allowed {
			t.Fatalf("Request %d after reset should be allowed: %+v", i+1, d)
		}
	}
	if d := l.TryConsume("org-1", 2, 4); d.Allowed || d.Scope != ScopeSustained {
		t.Errorf("Expected sustained denial, got %+v", d)
	}
}

func TestTryConsume_OrganizationsIsolated(t *testing.T) {
	clock := newFakeClock()
	l := newTestLimiter(clock)

	for i := 0; i < 3; i++ {
		l.TryConsume("org-1", 3, 100)
	}
	if d := l.TryConsume("org-1", 3, 100); d.Allowed {
		t.Fatal("org-1 should be rate limited")
	}

	if d := l.TryConsume("org-2", 3, 100); !d.Allowed {
		t.Errorf("org-2 should not be affected by org-1's usage: %+v", d)
	}
}

func TestClear(t *testing.T) {
	clock := newFakeClock()
	l := newTestLimiter(clock)

	for i := 0; i < 3; i++ {
		l.TryConsume("org-1", 3, 100)
	}
	if d := l.TryConsume("org-1", 3, 100); d.Allowed {
		t.Fatal("Expected denial before clear")
	}

	l.Clear("org-1")

	if d := l.TryConsume("org-1", 3, 100); !d.Allowed {
		t.Errorf("Expected allow after clear: %+v", d)
	}
}

func TestTryConsume_Concurrent(t *testing.T) {
	l := NewFixedWindowLimiter()

	const workers = 20
	const limit = 50

	var wg sync.WaitGroup
	allowed := make(chan struct{}, workers*10)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				if d := l.TryConsume("org-1", limit, limit); d.Allowed {
					allowed <- struct{}{}
				}
			}
		}()
	}
	wg.Wait()
	close(allowed)

	var count int
	for range allowed {
		count++
	}
	if count != limit {
		t.Errorf("Expected exactly %d allowed requests, got %d", limit, count)
	}
}
