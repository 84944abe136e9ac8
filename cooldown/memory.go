// Package cooldown provides stores that let an action run once per key
// within a period.
package cooldown

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

type entry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Memory keeps one token bucket per key in process memory
type Memory struct {
	mu      sync.Mutex
	period  time.Duration
	entries map[string]*entry
	now     func() time.Time
	sweepAt time.Time
}

// MemoryOption configures Memory
type MemoryOption func(*Memory)

// WithClock overrides the time source
func WithClock(now func() time.Time) MemoryOption {
	return func(m *Memory) {
		if now != nil {
			m.now = now
		}
	}
}

// NewMemory returns a store allowing one call per key every period
func NewMemory(period time.Duration, opts ...MemoryOption) *Memory {
	m := &Memory{
		period:  period,
		entries: make(map[string]*entry),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Acquire reports whether key may run now. When it may not, the wait until
// the next allowed call is returned.
func (m *Memory) Acquire(_ context.Context, key string) (bool, time.Duration, error) {
	if m.period <= 0 {
		return true, 0, nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	m.sweep(now)

	e, ok := m.entries[key]
	if !ok {
		e = &entry{limiter: rate.NewLimiter(rate.Every(m.period), 1)}
		m.entries[key] = e
	}
	e.lastSeen = now

	r := e.limiter.ReserveN(now, 1)
	if !r.OK() {
		return false, m.period, nil
	}

	if delay := r.DelayFrom(now); delay > 0 {
		r.CancelAt(now)
		return false, delay, nil
	}

	return true, 0, nil
}

// Reset removes the cooldown for key
func (m *Memory) Reset(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, key)
	return nil
}

// Len returns the number of tracked keys
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// sweep drops keys idle for longer than a period, at most once per period
func (m *Memory) sweep(now time.Time) {
	if now.Before(m.sweepAt) {
		return
	}
	for key, e := range m.entries {
		if now.Sub(e.lastSeen) > m.period {
			delete(m.entries, key)
		}
	}
	m.sweepAt = now.Add(m.period)
}
