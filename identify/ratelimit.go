package identify

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/c360/cropvision/errors"
)

// DefaultCooldown applies when a rate-limited response names no retry
// interval.
const DefaultCooldown = 60 * time.Second

// Limiter holds the process-wide rate-limit state shared by every outbound
// identification call: a cooldown window imposed by the service plus an
// optional steady-state pacer. Safe for concurrent use.
type Limiter struct {
	mu            sync.Mutex
	cooldownUntil time.Time
	lastRequestAt time.Time

	pacer           *rate.Limiter
	defaultCooldown time.Duration

	// Test seam.
	now func() time.Time
}

// RateLimitSnapshot is a point-in-time view of the limiter, exposed through
// the service status probe.
type RateLimitSnapshot struct {
	CoolingDown       bool          `json:"cooling_down"`
	CooldownRemaining time.Duration `json:"cooldown_remaining"`
	LastRequestAt     time.Time     `json:"last_request_at,omitempty"`
}

// NewLimiter creates a limiter. requestsPerMinute caps steady-state request
// rate; zero disables pacing. defaultCooldown replaces DefaultCooldown when
// positive.
func NewLimiter(requestsPerMinute float64, defaultCooldown time.Duration) *Limiter {
	l := &Limiter{
		defaultCooldown: DefaultCooldown,
		now:             time.Now,
	}
	if defaultCooldown > 0 {
		l.defaultCooldown = defaultCooldown
	}
	if requestsPerMinute > 0 {
		l.pacer = rate.NewLimiter(rate.Limit(requestsPerMinute/60.0), 1)
	}
	return l
}

// Wait suspends until the active cooldown has elapsed and the pacer admits
// the request, then records the request time. Returns a Timeout-classified
// error when the context expires first.
func (l *Limiter) Wait(ctx context.Context) error {
	l.mu.Lock()
	remaining := l.cooldownUntil.Sub(l.now())
	l.mu.Unlock()

	if remaining > 0 {
		timer := time.NewTimer(remaining)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return errors.WrapTimeout(ctx.Err(), "Limiter", "Wait", "cancelled during cooldown")
		case <-timer.C:
		}
	}

	if l.pacer != nil {
		if err := l.pacer.Wait(ctx); err != nil {
			return errors.WrapTimeout(err, "Limiter", "Wait", "cancelled while pacing")
		}
	}

	l.mu.Lock()
	l.lastRequestAt = l.now()
	l.mu.Unlock()
	return nil
}

// Extend pushes the cooldown window out by d, or by the default cooldown
// when d is not positive. The window only ever grows; a shorter interval
// never truncates an active longer one.
func (l *Limiter) Extend(d time.Duration) {
	if d <= 0 {
		d = l.defaultCooldown
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	until := l.now().Add(d)
	if until.After(l.cooldownUntil) {
		l.cooldownUntil = until
	}
}

// Snapshot reports the current limiter state.
func (l *Limiter) Snapshot() RateLimitSnapshot {
	l.mu.Lock()
	defer l.mu.Unlock()

	remaining := l.cooldownUntil.Sub(l.now())
	if remaining < 0 {
		remaining = 0
	}
	return RateLimitSnapshot{
		CoolingDown:       remaining > 0,
		CooldownRemaining: remaining,
		LastRequestAt:     l.lastRequestAt,
	}
}
