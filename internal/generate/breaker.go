package generate

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// BreakerState tracks whether a backend is currently allowed to run.
type BreakerState int

const (
	BreakerClosed BreakerState = iota
	BreakerOpen
	BreakerHalfOpen
)

func (s BreakerState) String() string {
	switch s {
	case BreakerClosed:
		return "CLOSED"
	case BreakerOpen:
		return "OPEN"
	case BreakerHalfOpen:
		return "HALF_OPEN"
	default:
		return "UNKNOWN"
	}
}

// BreakerConfig controls when a backend trips open and how long it stays open.
type BreakerConfig struct {
	FailThreshold int
	Cooldown      time.Duration
	FailWindow    time.Duration
}

// DefaultBreakerConfig returns the breaker settings used in production.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		FailThreshold: 5,
		Cooldown:      30 * time.Second,
		FailWindow:    60 * time.Second,
	}
}

// ErrBreakerOpen is returned when generation is refused because the backend
// has failed repeatedly and is cooling down.
var ErrBreakerOpen = fmt.Errorf("generator circuit open")

// Breaker wraps a Generator and short-circuits calls after repeated failures.
// A half-open probe is allowed once the cooldown elapses; its outcome either
// closes the circuit or re-opens it.
type Breaker struct {
	inner Generator
	cfg   BreakerConfig
	now   func() time.Time

	mu        sync.Mutex
	state     BreakerState
	failures  []time.Time
	openedAt  time.Time
	probeBusy bool
}

// WithBreaker wraps g with failure tracking.
func WithBreaker(g Generator, cfg BreakerConfig) *Breaker {
	return &Breaker{inner: g, cfg: cfg, now: time.Now}
}

// Name returns the wrapped backend's identifier.
func (b *Breaker) Name() string { return b.inner.Name() }

// State reports the current circuit state.
func (b *Breaker) State() BreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Generate forwards to the wrapped backend unless the circuit is open.
func (b *Breaker) Generate(ctx context.Context, req Request) (*Result, error) {
	if !b.allow() {
		return nil, ErrBreakerOpen
	}

	res, err := b.inner.Generate(ctx, req)
	if err != nil {
		b.recordFailure(err)
		return nil, err
	}
	b.recordSuccess()
	return res, nil
}

func (b *Breaker) allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case BreakerClosed:
		return true
	case BreakerOpen:
		if b.now().Sub(b.openedAt) >= b.cfg.Cooldown {
			b.state = BreakerHalfOpen
			b.probeBusy = true
			return true
		}
		return false
	case BreakerHalfOpen:
		// One probe at a time while half-open.
		if b.probeBusy {
			return false
		}
		b.probeBusy = true
		return true
	}
	return true
}

func (b *Breaker) recordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failures = b.failures[:0]
	b.state = BreakerClosed
	b.probeBusy = false
}

func (b *Breaker) recordFailure(err error) {
	if ctxErr := contextFailure(err); ctxErr {
		// Caller cancellation is not a backend fault.
		b.mu.Lock()
		b.probeBusy = false
		b.mu.Unlock()
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.now()
	if b.state == BreakerHalfOpen {
		b.state = BreakerOpen
		b.openedAt = now
		b.probeBusy = false
		return
	}

	cutoff := now.Add(-b.cfg.FailWindow)
	kept := b.failures[:0]
	for _, t := range b.failures {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	b.failures = append(kept, now)

	if len(b.failures) >= b.cfg.FailThreshold {
		b.state = BreakerOpen
		b.openedAt = now
		b.failures = b.failures[:0]
	}
}

func contextFailure(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
