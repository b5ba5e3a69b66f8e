// Package scheduler runs the due-schedule processing loop. Each tick claims
// due schedules via a conditional next_run advance, then generates content
// for the claims it won. Claiming happens before generation so a slow backend
// never widens the race window.
package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/draftcue/draftcue/internal/generate"
	"github.com/draftcue/draftcue/internal/store"
	"github.com/draftcue/draftcue/internal/wakeup"
	"github.com/draftcue/draftcue/pkg/types"
)

const defaultTickInterval = 60 * time.Second

// Config holds the resolved loop settings.
type Config struct {
	TickInterval time.Duration
	DueLimit     int
	HorizonDays  int
}

// ConfigFrom resolves a SchedulerConfig into concrete loop settings.
func ConfigFrom(sc *types.SchedulerConfig) Config {
	cfg := Config{
		TickInterval: defaultTickInterval,
		DueLimit:     store.DefaultDueLimit,
	}
	if sc == nil {
		return cfg
	}
	if sc.TickInterval != "" {
		if d, err := time.ParseDuration(sc.TickInterval); err == nil && d > 0 {
			cfg.TickInterval = d
		}
	}
	if sc.DueLimit > 0 {
		cfg.DueLimit = sc.DueLimit
	}
	if sc.SearchHorizonDays > 0 {
		cfg.HorizonDays = sc.SearchHorizonDays
	}
	return cfg
}

// Scheduler owns the tick loop and per-schedule execution.
type Scheduler struct {
	store   store.Store
	gen     generate.Generator
	alertFn func(types.Alert)
	logger  *slog.Logger
	cfg     Config
	wakeups *wakeup.Registry
	now     func() time.Time

	stopCh   chan struct{}
	doneCh   chan struct{}
	startOne sync.Once
	stopOne  sync.Once
}

// New creates a scheduler. alertFn may be nil when no sinks are configured.
func New(st store.Store, gen generate.Generator, alertFn func(types.Alert), logger *slog.Logger, cfg Config) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	if alertFn == nil {
		alertFn = func(types.Alert) {}
	}
	s := &Scheduler{
		store:   st,
		gen:     gen,
		alertFn: alertFn,
		logger:  logger,
		cfg:     cfg,
		now:     time.Now,
		stopCh:  make(chan struct{}),
		doneCh:  make(chan struct{}),
	}
	s.wakeups = wakeup.NewRegistry(s.onWakeup, logger)
	return s
}

// Start launches the tick loop. It returns immediately; the loop runs until
// Stop is called or ctx is cancelled.
func (s *Scheduler) Start(ctx context.Context) {
	s.startOne.Do(func() {
		go s.run(ctx)
	})
}

// Stop halts the loop and cancels all pending wakeup timers. It blocks until
// the in-flight tick, if any, finishes.
func (s *Scheduler) Stop() {
	s.stopOne.Do(func() {
		close(s.stopCh)
		s.wakeups.Stop()
	})
	<-s.doneCh
}

func (s *Scheduler) run(ctx context.Context) {
	defer close(s.doneCh)

	s.logger.Info("scheduler started",
		"tick_interval", s.cfg.TickInterval,
		"due_limit", s.cfg.DueLimit,
	)

	ticker := time.NewTicker(s.cfg.TickInterval)
	defer ticker.Stop()

	// One pass at startup so overdue schedules do not wait a full tick.
	s.tickSafe(ctx)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler stopping", "reason", "context cancelled")
			return
		case <-s.stopCh:
			s.logger.Info("scheduler stopping", "reason", "stop requested")
			return
		case <-ticker.C:
			s.tickSafe(ctx)
		}
	}
}

func (s *Scheduler) tickSafe(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("tick panicked", "panic", r)
		}
	}()
	if _, err := s.ProcessDue(ctx); err != nil {
		s.logger.Error("tick failed", "error", err)
	}
}

// onWakeup fires when a registered single-event timer elapses. The schedule
// goes through the same claim path as a polled one, so a concurrent tick
// cannot double-run it.
func (s *Scheduler) onWakeup(id int64) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	sched, err := s.store.Schedules().GetByID(ctx, id)
	if err != nil {
		s.logger.Warn("wakeup for missing schedule", "schedule_id", id, "error", err)
		return
	}
	if !sched.Active || sched.NextRun.After(s.now()) {
		return
	}
	s.processOne(ctx, *sched)
}
