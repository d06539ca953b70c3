// internal/ratelimit/limiter.go
package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/jkimani/textflow-backend/internal/model"
)

const (
	window        = time.Second
	retryInterval = 20 * time.Millisecond
)

// Limiter is a per-channel sliding-window admission gate. State is
// process-local and in-memory; it resets on restart and is shared by every
// concurrent send in the process, so access is mutex-guarded.
type Limiter struct {
	mu     sync.Mutex
	limits map[model.Channel]int
	calls  map[model.Channel][]time.Time
	now    func() time.Time
}

func New(limits map[model.Channel]int) *Limiter {
	return &Limiter{
		limits: limits,
		calls:  make(map[model.Channel][]time.Time),
		now:    time.Now,
	}
}

// NewWithClock is New with an injected clock, for tests.
func NewWithClock(limits map[model.Channel]int, now func() time.Time) *Limiter {
	l := New(limits)
	l.now = now
	return l
}

// CanSend reports whether another call on the channel fits in the current
// window. Entries older than the window are evicted lazily here rather
// than by a background sweep.
func (l *Limiter) CanSend(channel model.Channel) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	limit, ok := l.limits[channel]
	if !ok || limit <= 0 {
		return true
	}
	return len(l.prune(channel)) < limit
}

// RecordSend counts one call against the channel's window.
func (l *Limiter) RecordSend(channel model.Channel) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls[channel] = append(l.prune(channel), l.now())
}

// Wait blocks with a sleep-and-retry loop until the channel admits a call
// or the context ends. Simple backpressure; the processor is polling-driven
// and low-throughput enough that a token bucket is not worth its weight.
func (l *Limiter) Wait(ctx context.Context, channel model.Channel) error {
	for !l.CanSend(channel) {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(retryInterval):
		}
	}
	return nil
}

// prune drops timestamps outside the window. Caller holds the lock.
func (l *Limiter) prune(channel model.Channel) []time.Time {
	cutoff := l.now().Add(-window)
	recent := l.calls[channel][:0]
	for _, t := range l.calls[channel] {
		if t.After(cutoff) {
			recent = append(recent, t)
		}
	}
	l.calls[channel] = recent
	return recent
}
