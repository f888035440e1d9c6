package concurrency

import (
	"sync"
	"testing"
)

func TestTracker_IncrementDecrement(t *testing.T) {
	tr := NewMemoryTracker()

	if c := tr.Current("org-1"); c != 0 {
		t.Errorf("Expected 0 for unknown org, got %d", c)
	}

	tr.Increment("org-1")
	tr.Increment("org-1")
	if c := tr.Current("org-1"); c != 2 {
		t.Errorf("Expected 2, got %d", c)
	}

	tr.Decrement("org-1")
	if c := tr.Current("org-1"); c != 1 {
		t.Errorf("Expected 1, got %d", c)
	}
}

func TestTracker_SaturatingDecrement(t *testing.T) {
	tr := NewMemoryTracker()

	// Decrement without a matching increment must not go negative.
	tr.Decrement("org-1")
	tr.Decrement("org-1")
	if c := tr.Current("org-1"); c != 0 {
		t.Errorf("Expected count to saturate at 0, got %d", c)
	}

	tr.Increment("org-1")
	tr.Decrement("org-1")
	tr.Decrement("org-1")
	if c := tr.Current("org-1"); c != 0 {
		t.Errorf("Expected 0 after double decrement, got %d", c)
	}
}

func TestTracker_OrganizationsIsolated(t *testing.T) {
	tr := NewMemoryTracker()

	tr.Increment("org-1")
	tr.Increment("org-1")
	tr.Increment("org-2")

	if c := tr.Current("org-1"); c != 2 {
		t.Errorf("Expected 2 for org-1, got %d", c)
	}
	if c := tr.Current("org-2"); c != 1 {
		t.Errorf("Expected 1 for org-2, got %d", c)
	}
}

func TestTracker_Clear(t *testing.T) {
	tr := NewMemoryTracker()

	tr.Increment("org-1")
	tr.Clear("org-1")
	if c := tr.Current("org-1"); c != 0 {
		t.Errorf("Expected 0 after clear, got %d", c)
	}
}

func TestTracker_Concurrent(t *testing.T) {
	tr := NewMemoryTracker()

	const workers = 50
	var wg sync.WaitGroup

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tr.Increment("org-1")
		}()
	}
	wg.Wait()

	if c := tr.Current("org-1"); c != workers {
		t.Errorf("Expected %d after concurrent increments, got %d", workers, c)
	}

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tr.Decrement("org-1")
		}()
	}
	wg.Wait()

	if c := tr.Current("org-1"); c != 0 {
		t.Errorf("Expected 0 after concurrent decrements, got %d", c)
	}
}
