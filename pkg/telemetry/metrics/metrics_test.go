package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"driftline/warden/pkg/config"
)

func newTestCollector() *Collector {
	return NewCollector(&config.MetricsConfig{Namespace: "warden"}, nil)
}

func TestCollector_Groups(t *testing.T) {
	c := newTestCollector()

	if c.Admission() == nil || c.Budget() == nil || c.Cache() == nil {
		t.Fatal("All metric groups should be initialized")
	}
}

func TestCollector_DefaultNamespace(t *testing.T) {
	c := NewCollector(&config.MetricsConfig{}, nil)

	c.Cache().RecordMiss("org-1")

	body := scrape(t, c)
	if !strings.Contains(body, "warden_cache_misses_total") {
		t.Errorf("Expected default warden namespace in output:\n%s", body)
	}
}

func TestAdmissionMetrics_RecordCheck(t *testing.T) {
	c := newTestCollector()

	c.Admission().RecordCheck("org-1", "", true, time.Millisecond)
	c.Admission().RecordCheck("org-1", "rate_limit", false, time.Millisecond)
	c.Admission().RecordForceCheapest("org-1")
	c.Admission().SetConcurrent("org-1", 3)

	body := scrape(t, c)
	for _, want := range []string{
		`warden_admission_checks_total{organization="org-1",result="allowed"} 1`,
		`warden_admission_checks_total{organization="org-1",result="denied"} 1`,
		`warden_admission_denials_total{organization="org-1",stage="rate_limit"} 1`,
		`warden_admission_force_cheapest_total{organization="org-1"} 1`,
		`warden_admission_concurrent_requests{organization="org-1"} 3`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("Expected %q in metrics output", want)
		}
	}
}

func TestCacheMetrics_Savings(t *testing.T) {
	c := newTestCollector()

	c.Cache().RecordHit("org-1", 0.05, 1.2)
	c.Cache().RecordHit("org-1", 0.05, 0.8)
	c.Cache().RecordError("org-1")
	c.Cache().RecordEvictions(7)

	body := scrape(t, c)
	for _, want := range []string{
		`warden_cache_hits_total{organization="org-1"} 2`,
		`warden_cache_cost_saved_usd_total{organization="org-1"} 0.1`,
		`warden_cache_latency_saved_seconds_total{organization="org-1"} 2`,
		`warden_cache_errors_total{organization="org-1"} 1`,
		`warden_cache_evictions_total 7`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("Expected %q in metrics output", want)
		}
	}
}

func TestBudgetMetrics_RecordState(t *testing.T) {
	c := newTestCollector()

	c.Budget().RecordState("org-1", 5.0, 10.0)
	c.Budget().RecordDenial("org-1")

	body := scrape(t, c)
	for _, want := range []string{
		`warden_budget_daily_spend_usd{organization="org-1"} 5`,
		`warden_budget_usage_ratio{organization="org-1"} 0.5`,
		`warden_budget_denials_total{organization="org-1"} 1`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("Expected %q in metrics output", want)
		}
	}
}

func scrape(t *testing.T, c *Collector) string {
	t.Helper()

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/metrics", nil)
	c.Handler().ServeHTTP(rec, req)

	if rec.Code != 200 {
		t.Fatalf("Metrics endpoint returned %d", rec.Code)
	}
	return rec.Body.String()
}
