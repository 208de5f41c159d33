package cache

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/robfig/cron/v3"
)

// Sweeper runs Cache.Sweep on a cron schedule. Lazy expiry already
// keeps reads correct; the sweeper only reclaims space held by entries
// that are never read again.
type Sweeper struct {
	cache    Cache
	schedule string
	cron     *cron.Cron
	mu       sync.Mutex
	running  bool
	logger   *slog.Logger
}

// NewSweeper creates a sweeper for the cache. schedule is a standard
// cron expression; empty disables the sweeper.
func NewSweeper(cache Cache, schedule string) *Sweeper {
	return &Sweeper{
		cache:    cache,
		schedule: schedule,
		cron:     cron.New(),
		logger:   slog.Default().With("component", "cache.sweeper"),
	}
}

// Start begins scheduled sweeping. It returns immediately; sweeps run
// on the cron goroutine until the context is cancelled or Stop is
// called.
func (s *Sweeper) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.schedule == "" {
		s.logger.Info("sweep schedule not configured, skipping sweeper")
		return nil
	}

	if _, err := cron.ParseStandard(s.schedule); err != nil {
		return fmt.Errorf("invalid sweep schedule %q: %w", s.schedule, err)
	}

	if _, err := s.cron.AddFunc(s.schedule, func() { s.runSweep(ctx) }); err != nil {
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

// Stop halts scheduled sweeping.
func (s *Sweeper) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}
	s.cron.Stop()
	s.running = false
	s.logger.Info("cache sweeper stopped")
}

func (s *Sweeper) runSweep(ctx context.Context) {
	removed, err := s.cache.Sweep(ctx)
	if err != nil {
		s.logger.Error("cache sweep failed", "error", err)
		return
	}
	s.logger.Info("cache sweep complete", "removed", removed)
}
