// Package ratelimit enforces the shared outbound request budget.
package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	// DefaultCalls is the number of calls allowed per window.
	DefaultCalls = 20
	// DefaultWindow is the length of the rolling window.
	DefaultWindow = 60 * time.Second
)

// Clock abstracts time so the limiter can be driven deterministically.
type Clock interface {
	Now() time.Time
	Sleep(ctx context.Context, d time.Duration) error
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) Sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Limiter allows at most calls dispatches in any rolling window.
// It keeps a log of dispatch times; a call that would exceed the budget
// sleeps until the oldest logged dispatch leaves the window.
type Limiter struct {
	name   string
	calls  int
	window time.Duration
	clock  Clock
	pacer  *rate.Limiter

	mu     sync.Mutex
	stamps []time.Time
}

// Option configures a Limiter.
type Option func(*Limiter)

// WithClock replaces the wall clock.
func WithClock(c Clock) Option {
	return func(l *Limiter) {
		if c != nil {
			l.clock = c
		}
	}
}

// WithMinInterval spaces consecutive calls at least d apart on top of the
// window budget. Zero disables pacing.
func WithMinInterval(d time.Duration) Option {
	return func(l *Limiter) {
		if d > 0 {
			l.pacer = rate.NewLimiter(rate.Every(d), 1)
		}
	}
}

// New creates a limiter allowing calls dispatches per window.
// Non-positive arguments fall back to the defaults.
func New(name string, calls int, window time.Duration, opts ...Option) *Limiter {
	if calls <= 0 {
		calls = DefaultCalls
	}
	if window <= 0 {
		window = DefaultWindow
	}
	l := &Limiter{
		name:   name,
		calls:  calls,
		window: window,
		clock:  realClock{},
		stamps: make([]time.Time, 0, calls),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Wait blocks until a call may be dispatched and records it.
// Returns an error if the context is cancelled.
func (l *Limiter) Wait(ctx context.Context) error {
	if l.pacer != nil {
		if err := l.pacer.Wait(ctx); err != nil {
			return fmt.Errorf("rate limit wait for %s: %w", l.name, err)
		}
	}

	for {
		delay := l.reserve()
		if delay <= 0 {
			return nil
		}
		if err := l.clock.Sleep(ctx, delay); err != nil {
			return fmt.Errorf("rate limit wait for %s: %w", l.name, err)
		}
	}
}

// Allow records a dispatch and reports true when the budget has room,
// without blocking.
func (l *Limiter) Allow() bool {
	return l.reserve() <= 0
}

// reserve records a dispatch when there is room and returns zero, otherwise
// it returns how long until the oldest dispatch expires.
func (l *Limiter) reserve() time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock.Now()
	l.evict(now)

	if len(l.stamps) < l.calls {
		l.stamps = append(l.stamps, now)
		return 0
	}
	return l.stamps[0].Add(l.window).Sub(now)
}

// evict drops dispatches that are no longer inside the window ending at now.
func (l *Limiter) evict(now time.Time) {
	cutoff := now.Add(-l.window)
	i := 0
	for i < len(l.stamps) && !l.stamps[i].After(cutoff) {
		i++
	}
	if i > 0 {
		l.stamps = append(l.stamps[:0], l.stamps[i:]...)
	}
}

// Remaining reports how many calls could be dispatched right now.
func (l *Limiter) Remaining() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.evict(l.clock.Now())
	return l.calls - len(l.stamps)
}

// Name returns the name of this rate limiter.
func (l *Limiter) Name() string {
	return l.name
}
