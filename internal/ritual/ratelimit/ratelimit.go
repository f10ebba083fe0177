// Package ratelimit enforces the per-user cooldown between advancement attempts.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Limiter records an attempt for key. It returns zero when the attempt may proceed and the
// remaining cooldown otherwise. Rejected attempts do not extend the cooldown.
type Limiter interface {
	Reserve(ctx context.Context, key string) (time.Duration, error)
}

// Noop allows everything.
type Noop struct{}

func (Noop) Reserve(context.Context, string) (time.Duration, error) { return 0, nil }

const maxIdleEntries = 10000

// Memory keeps one token bucket of size 1 per key, refilled once per cooldown.
type Memory struct {
	cooldown time.Duration
	now      func() time.Time

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

func NewMemory(cooldown time.Duration) *Memory {
	return &Memory{
		cooldown: cooldown,
		now:      time.Now,
		limiters: map[string]*rate.Limiter{},
	}
}

func (m *Memory) Reserve(_ context.Context, key string) (time.Duration, error) {
	if m.cooldown <= 0 {
		return 0, nil
	}
	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()
	lim, ok := m.limiters[key]
	if !ok {
		if len(m.limiters) >= maxIdleEntries {
			m.evictIdleLocked(now)
		}
		lim = rate.NewLimiter(rate.Every(m.cooldown), 1)
		m.limiters[key] = lim
	}
	r := lim.ReserveN(now, 1)
	if !r.OK() {
		return m.cooldown, nil
	}
	if d := r.DelayFrom(now); d > 0 {
		r.CancelAt(now)
		return d, nil
	}
	return 0, nil
}

// evictIdleLocked drops buckets that have fully refilled; they carry no state.
func (m *Memory) evictIdleLocked(now time.Time) {
	for k, lim := range m.limiters {
		if lim.TokensAt(now) >= 1 {
			delete(m.limiters, k)
		}
	}
}
