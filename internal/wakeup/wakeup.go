// Package wakeup keeps an in-process timer per schedule so one-shot and
// far-future schedules fire close to their due time instead of waiting for
// the next poll tick.
package wakeup

import (
	"log/slog"
	"sync"
	"time"

	"github.com/draftcue/draftcue/internal/metrics"
)

// Registry tracks pending wakeup timers keyed by schedule ID. Registering a
// schedule that already has a timer replaces the old one.
type Registry struct {
	mu     sync.Mutex
	timers map[int64]*time.Timer
	fire   func(id int64)
	logger *slog.Logger
	closed bool
}

// NewRegistry creates a registry that invokes fire when a timer elapses.
func NewRegistry(fire func(id int64), logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		timers: make(map[int64]*time.Timer),
		fire:   fire,
		logger: logger,
	}
}

// Register arms a timer for the schedule at the given time. A time in the
// past fires almost immediately. Replaces any existing timer for the ID.
func (r *Registry) Register(id int64, at time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return
	}
	if old, ok := r.timers[id]; ok {
		old.Stop()
	}

	delay := time.Until(at)
	if delay < 0 {
		delay = 0
	}
	r.timers[id] = time.AfterFunc(delay, func() {
		r.mu.Lock()
		delete(r.timers, id)
		closed := r.closed
		r.mu.Unlock()
		if closed {
			return
		}
		r.fire(id)
	})

	metrics.WakeupsRegistered.Add(1)
	r.logger.Debug("wakeup registered", "schedule_id", id, "at", at)
}

// Clear cancels the timer for a schedule. Returns false if none was armed.
func (r *Registry) Clear(id int64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.timers[id]
	if !ok {
		return false
	}
	t.Stop()
	delete(r.timers, id)
	return true
}

// Len reports the number of armed timers.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.timers)
}

// Stop cancels all timers and rejects further registrations.
func (r *Registry) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.closed = true
	for id, t := range r.timers {
		t.Stop()
		delete(r.timers, id)
	}
}
