package job

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron"
)

const (
	publishCycleSpec = "@every 0h1m0s"
	tokenRefreshSpec = "@every 24h0m0s"

	// startupDelay keeps the first cycle off the database and the Graph API
	// until the process has finished initializing.
	startupDelay = 30 * time.Second
)

// Scheduler owns the two recurring timers: the per-minute publish cycle and
// the daily token refresh. Both are held as explicit state on this struct;
// Start and Stop are the only way to control them, and double-start is
// rejected.
type Scheduler struct {
	mu          sync.Mutex
	running     bool
	cron        *cron.Cron
	warmupTimer *time.Timer

	publish *PublishCycleRunner
	refresh *TokenRefreshJob
}

func NewScheduler(publish *PublishCycleRunner, refresh *TokenRefreshJob) *Scheduler {
	return &Scheduler{
		publish: publish,
		refresh: refresh,
	}
}

func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return errors.New("scheduler already started")
	}

	c := cron.New()
	if err := c.AddFunc(publishCycleSpec, s.publish.RunCycle); err != nil {
		return err
	}
	if err := c.AddFunc(tokenRefreshSpec, s.refresh.RefreshTokens); err != nil {
		return err
	}
	s.cron = c

	s.warmupTimer = time.AfterFunc(startupDelay, func() {
		s.publish.RunCycle()
		s.refresh.RefreshTokens()
		s.cron.Start()
	})

	s.running = true
	slog.Info("scheduler started", "first_cycle_in", startupDelay.String())
	return nil
}

func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}

	s.warmupTimer.Stop()
	s.cron.Stop()
	s.running = false
	slog.Info("scheduler stopped")
}
