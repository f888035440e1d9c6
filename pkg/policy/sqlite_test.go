package policy

import (
	"context"
	"path/filepath"
	"testing"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()

	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "policies.db"))
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSQLiteStore_FetchMissing(t *testing.T) {
	store := newTestSQLiteStore(t)

	row, err := store.Fetch(context.Background(), "org-none")
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if row != nil {
		t.Error("Expected nil for missing row")
	}
}

func TestSQLiteStore_RoundTrip(t *testing.T) {
	store := newTestSQLiteStore(t)
	ctx := context.Background()

	in := &StoredPolicy{
		OrganizationID:   "org-1",
		TrialMode:        true,
		MaxDailyCostUSD:  floatPtr(25.00),
		MaxTokensInput:   intPtr(6000),
		AllowedProviders: []string{"openai"},
		TaskOverrides: map[string]TaskOverride{
			"chat": {MaxTokensOutput: 2000},
		},
		BurstRateLimit: intPtr(5),
	}
	if err := store.Put(ctx, in); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	out, err := store.Fetch(ctx, "org-1")
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if out == nil {
		t.Fatal("Expected stored row")
	}

	if !out.TrialMode {
		t.Error("Expected trial mode preserved")
	}
	if out.MaxDailyCostUSD == nil || *out.MaxDailyCostUSD != 25.00 {
		t.Errorf("Expected daily ceiling 25.00, got %v", out.MaxDailyCostUSD)
	}
	if out.MaxTokensInput == nil || *out.MaxTokensInput != 6000 {
		t.Errorf("Expected token limit 6000, got %v", out.MaxTokensInput)
	}
	// Unset columns stay nil.
	if out.MaxRequestCostUSD != nil {
		t.Error("Expected unset request cost to be nil")
	}
	if out.MaxConcurrentJobs != nil {
		t.Error("Expected unset concurrency to be nil")
	}
	if len(out.AllowedProviders) != 1 || out.AllowedProviders[0] != "openai" {
		t.Errorf("Expected provider list [openai], got %v", out.AllowedProviders)
	}
	if out.TaskOverrides["chat"].MaxTokensOutput != 2000 {
		t.Errorf("Expected task override preserved, got %+v", out.TaskOverrides)
	}
	if out.BurstRateLimit == nil || *out.BurstRateLimit != 5 {
		t.Errorf("Expected burst limit 5, got %v", out.BurstRateLimit)
	}
}

func TestSQLiteStore_ResolverIntegration(t *testing.T) {
	store := newTestSQLiteStore(t)
	ctx := context.Background()

	if err := store.Put(ctx, &StoredPolicy{
		OrganizationID:  "org-sql",
		MaxDailyCostUSD: floatPtr(75.00),
	}); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	resolver := NewResolver(store, testDefaults(), testTrial(), nil)
	cfg := resolver.Resolve(ctx, "org-sql")

	if cfg.MaxDailyCostUSD != 75.00 {
		t.Errorf("Expected stored ceiling via resolver, got %v", cfg.MaxDailyCostUSD)
	}
	if cfg.SustainedRateLimit != 30 {
		t.Errorf("Expected default sustained limit, got %d", cfg.SustainedRateLimit)
	}
}
