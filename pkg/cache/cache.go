package cache

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"driftline/warden/pkg/telemetry/metrics"
)

// LookupResult is the outcome of a cache lookup.
type LookupResult struct {
	// Hit indicates the digest was found and not expired.
	Hit bool `json:"hit"`

	// Entry is the cached response on a hit, nil otherwise.
	Entry *Entry `json:"entry,omitempty"`

	// CostSavedUSD is the provider spend avoided by this hit.
	CostSavedUSD float64 `json:"costSavedUsd,omitempty"`

	// LatencySaved is the provider latency avoided by this hit.
	LatencySaved time.Duration `json:"latencySavedMs,omitempty"`
}

// OrgStats are per-organization cache effectiveness counters.
type OrgStats struct {
	Hits                int64   `json:"hits"`
	Misses              int64   `json:"misses"`
	Errors              int64   `json:"errors"`
	CostSavedUSD        float64 `json:"costSavedUsd"`
	LatencySavedSeconds float64 `json:"latencySavedSeconds"`
}

// Cache is the content-addressed response cache. It is an optimization,
// never a safety control: every backend failure degrades to a miss on
// lookup or a skipped write on store, and the request proceeds to the
// provider.
type Cache struct {
	backend Backend
	ttl     time.Duration
	enabled bool
	logger  *slog.Logger
	metrics *metrics.CacheMetrics

	// now is swappable for tests.
	now func() time.Time

	mu    sync.Mutex
	stats map[string]*OrgStats
}

// Options configures a Cache. Backend and TTL are required when Enabled;
// Logger and Metrics may be nil.
type Options struct {
	Backend Backend
	TTL     time.Duration
	Enabled bool
	Logger  *slog.Logger
	Metrics *metrics.CacheMetrics
}

// New creates a cache. A disabled cache answers every lookup with a miss
// and drops every store, so callers need no enabled-flag branching.
func New(opts Options) *Cache {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Cache{
		backend: opts.Backend,
		ttl:     opts.TTL,
		enabled: opts.Enabled,
		logger:  logger,
		metrics: opts.Metrics,
		now:     time.Now,
		stats:   make(map[string]*OrgStats),
	}
}

// Enabled reports whether the cache is active.
func (c *Cache) Enabled() bool { return c.enabled }

// Lookup returns the cached response for a digest. Entries past their TTL
// are treated as misses even though the row may persist until a sweep. A
// genuine hit atomically bumps the entry's hit count and last-accessed
// time in the backend.
func (c *Cache) Lookup(ctx context.Context, organizationID, digest string) LookupResult {
	if !c.enabled {
		return LookupResult{}
	}

	entry, err := c.backend.Get(ctx, digest)
	if err != nil {
		c.logger.Warn("cache lookup failed, treating as miss",
			"organization", organizationID, "error", err)
		c.recordError(organizationID)
		return LookupResult{}
	}
	if entry == nil || entry.Expired(c.now()) {
		c.recordMiss(organizationID)
		return LookupResult{}
	}

	if err := c.backend.Touch(ctx, digest, c.now()); err != nil {
		// The hit still counts; only the bookkeeping write failed.
		c.logger.Warn("cache touch failed",
			"organization", organizationID, "error", err)
	} else {
		entry.HitCount++
	}

	latencySaved := time.Duration(entry.LatencyMS) * time.Millisecond
	c.recordHit(organizationID, entry.CostUSD, latencySaved)

	return LookupResult{
		Hit:          true,
		Entry:        entry,
		CostSavedUSD: entry.CostUSD,
		LatencySaved: latencySaved,
	}
}

// Store writes a provider response under its digest and reports whether a
// row exists afterwards. An insertion race with a concurrent miss is a
// success for both callers; backend errors degrade to a skipped write.
func (c *Cache) Store(ctx context.Context, organizationID string, entry *Entry) bool {
	if !c.enabled {
		return false
	}

	now := c.now()
	entry.CreatedAt = now
	entry.ExpiresAt = now.Add(c.ttl)
	entry.LastAccessedAt = now
	entry.HitCount = 0

	if err := c.backend.Insert(ctx, entry); err != nil {
		c.logger.Warn("cache store failed, skipping",
			"organization", organizationID, "error", err)
		c.recordError(organizationID)
		return false
	}
	return true
}

// Invalidate removes an entry, reporting whether one existed.
func (c *Cache) Invalidate(ctx context.Context, digest string) (bool, error) {
	if !c.enabled {
		return false, nil
	}
	return c.backend.Delete(ctx, digest)
}

// CleanupExpired removes every expired entry and returns the count.
func (c *Cache) CleanupExpired(ctx context.Context) (int, error) {
	if !c.enabled {
		return 0, nil
	}

	removed, err := c.backend.DeleteExpired(ctx, c.now())
	if err != nil {
		return 0, err
	}
	if c.metrics != nil {
		c.metrics.RecordEvictions(removed)
	}
	return removed, nil
}

// Stats returns a copy of the organization's counters.
func (c *Cache) Stats(organizationID string) OrgStats {
	c.mu.Lock()
	defer c.mu.Unlock()

	if s, ok := c.stats[organizationID]; ok {
		return *s
	}
	return OrgStats{}
}

// Close releases the backend.
func (c *Cache) Close() error {
	if c.backend == nil {
		return nil
	}
	return c.backend.Close()
}

func (c *Cache) orgStats(organizationID string) *OrgStats {
	if s, ok := c.stats[organizationID]; ok {
		return s
	}
	s := &OrgStats{}
	c.stats[organizationID] = s
	return s
}

func (c *Cache) recordHit(organizationID string, costSaved float64, latencySaved time.Duration) {
	c.mu.Lock()
	s := c.orgStats(organizationID)
	s.Hits++
	s.CostSavedUSD += costSaved
	s.LatencySavedSeconds += latencySaved.Seconds()
	c.mu.Unlock()

	if c.metrics != nil {
		c.metrics.RecordHit(organizationID, costSaved, latencySaved.Seconds())
	}
}

func (c *Cache) recordMiss(organizationID string) {
	c.mu.Lock()
	c.orgStats(organizationID).Misses++
	c.mu.Unlock()

	if c.metrics != nil {
		c.metrics.RecordMiss(organizationID)
	}
}

func (c *Cache) recordError(organizationID string) {
	c.mu.Lock()
	c.orgStats(organizationID).Errors++
	c.mu.Unlock()

	if c.metrics != nil {
		c.metrics.RecordError(organizationID)
	}
}
