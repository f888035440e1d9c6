package cache

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/robfig/cron/v3"
)

// Sweeper removes expired cache entries on a cron schedule. Expired
// entries are already invisible to lookups; the sweep only reclaims the
// physical rows.
type Sweeper struct {
	cache    *Cache
	schedule string
	cron     *cron.Cron
	logger   *slog.Logger

	mu      sync.Mutex
	running bool
}

// NewSweeper creates a sweeper for the given cache. schedule uses standard
// cron syntax, e.g. "*/5 * * * *" for every five minutes.
func NewSweeper(c *Cache, schedule string, logger *slog.Logger) *Sweeper {
	if logger == nil {
		logger = slog.Default()
	}
	return &Sweeper{
		cache:    c,
		schedule: schedule,
		cron:     cron.New(),
		logger:   logger.With("component", "cache.sweeper"),
	}
}

// Start begins scheduled sweeping. An empty schedule disables the sweeper.
// The sweeper stops itself when ctx is cancelled.
func (s *Sweeper) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.schedule == "" {
		s.logger.Info("sweep schedule not configured, skipping sweeper")
		return nil
	}

	if _, err := cron.ParseStandard(s.schedule); err != nil {
		return fmt.Errorf("invalid cron schedule %q: %w", s.schedule, err)
	}

	if _, err := s.cron.AddFunc(s.schedule, func() {
		s.sweep(ctx)
	}); err != nil {
		return fmt.Errorf("failed to schedule cache sweep: %w", err)
	}

	s.cron.Start()
	s.running = true
	s.logger.Info("cache sweeper started", "schedule", s.schedule)

	go func() {
		<-ctx.Done()
		s.Stop()
	}()

	return nil
}

func (s *Sweeper) sweep(ctx context.Context) {
	removed, err := s.cache.CleanupExpired(ctx)
	if err != nil {
		s.logger.Error("cache sweep failed", "error", err)
		return
	}

	if removed > 0 {
		s.logger.Info("cache sweep completed", "removed", removed)
	} else {
		s.logger.Debug("cache sweep completed, nothing expired")
	}
}

// Stop halts scheduling and waits for a running sweep to finish.
func (s *Sweeper) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cron != nil && s.running {
		<-s.cron.Stop().Done()
		s.running = false
		s.logger.Info("cache sweeper stopped")
	}
}
