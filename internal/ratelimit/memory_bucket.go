package ratelimit

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/pricedex/pricedex/internal/clock"
)

type memoryBucketState struct {
	tokens float64
	ts     time.Time
}

// MemoryBucket mirrors the redis token bucket arithmetic in process
// memory. Used when no redis is configured and in tests.
type MemoryBucket struct {
	mu      sync.Mutex
	clk     clock.Clock
	buckets map[string]*memoryBucketState
}

func NewMemoryBucket(clk clock.Clock) *MemoryBucket {
	return &MemoryBucket{
		clk:     clk,
		buckets: make(map[string]*memoryBucketState),
	}
}

func (m *MemoryBucket) Allow(ctx context.Context, key string, rate float64, burst int) (*AllowResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if key == "" {
		return nil, errors.New("rate limiter key is empty")
	}
	if rate <= 0 || burst <= 0 {
		return nil, errors.New("rate limiter rate and burst must be positive")
	}

	now := m.clk.Now()

	m.mu.Lock()
	defer m.mu.Unlock()

	state, ok := m.buckets[key]
	if !ok {
		state = &memoryBucketState{tokens: float64(burst), ts: now}
		m.buckets[key] = state
	} else {
		delta := now.Sub(state.ts)
		if delta < 0 {
			delta = 0
		}
		state.tokens += delta.Seconds() * rate
		if state.tokens > float64(burst) {
			state.tokens = float64(burst)
		}
		state.ts = now
	}

	if state.tokens >= 1 {
		state.tokens--
		return &AllowResult{Allowed: true, Remaining: state.tokens}, nil
	}

	needed := 1.0 - state.tokens
	return &AllowResult{
		Allowed:    false,
		Remaining:  state.tokens,
		RetryAfter: time.Duration(needed / rate * float64(time.Second)),
	}, nil
}
