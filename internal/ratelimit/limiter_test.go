package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/pricedex/pricedex/internal/clock"
	"github.com/pricedex/pricedex/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRegistry() *config.ProviderRegistry {
	return config.NewStaticProviderRegistry([]config.ProviderDef{
		{Key: "slowstore", Kind: config.KindStorefront, Rate: 0.5, Burst: 2},
		{Key: "fastcat", Kind: config.KindCatalog, Rate: 10, Burst: 4},
	})
}

func TestMemoryBucketBurstAndRefill(t *testing.T) {
	clk := clock.NewFakeClock(time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC))
	bucket := NewMemoryBucket(clk)
	ctx := context.Background()

	// Burst drains first.
	for i := 0; i < 2; i++ {
		res, err := bucket.Allow(ctx, "k", 0.5, 2)
		require.NoError(t, err)
		assert.True(t, res.Allowed, "burst permit %d", i)
	}

	res, err := bucket.Allow(ctx, "k", 0.5, 2)
	require.NoError(t, err)
	assert.False(t, res.Allowed)
	assert.Equal(t, 2*time.Second, res.RetryAfter)

	// Half a token per second: after 2s one more permit exists.
	clk.Advance(2 * time.Second)
	res, err = bucket.Allow(ctx, "k", 0.5, 2)
	require.NoError(t, err)
	assert.True(t, res.Allowed)

	res, err = bucket.Allow(ctx, "k", 0.5, 2)
	require.NoError(t, err)
	assert.False(t, res.Allowed)
}

func TestMemoryBucketCapsAtBurst(t *testing.T) {
	clk := clock.NewFakeClock(time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC))
	bucket := NewMemoryBucket(clk)
	ctx := context.Background()

	res, err := bucket.Allow(ctx, "k", 10, 4)
	require.NoError(t, err)
	require.True(t, res.Allowed)

	// A long idle period must not accumulate more than burst.
	clk.Advance(time.Hour)
	allowed := 0
	for i := 0; i < 10; i++ {
		res, err := bucket.Allow(ctx, "k", 10, 4)
		require.NoError(t, err)
		if res.Allowed {
			allowed++
		}
	}
	assert.Equal(t, 4, allowed)
}

func TestMemoryBucketIsolatesKeys(t *testing.T) {
	clk := clock.NewFakeClock(time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC))
	bucket := NewMemoryBucket(clk)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		res, err := bucket.Allow(ctx, "a", 0.5, 2)
		require.NoError(t, err)
		require.True(t, res.Allowed)
	}
	res, err := bucket.Allow(ctx, "a", 0.5, 2)
	require.NoError(t, err)
	require.False(t, res.Allowed)

	// Draining "a" leaves "b" untouched.
	res, err = bucket.Allow(ctx, "b", 0.5, 2)
	require.NoError(t, err)
	assert.True(t, res.Allowed)
}

func TestProviderLimiterUnknownProvider(t *testing.T) {
	clk := clock.NewFakeClock(time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC))
	limiter := NewProviderLimiter(testRegistry(), NewMemoryBucket(clk))

	err := limiter.Acquire(context.Background(), "nosuch")
	assert.Error(t, err)
}

func TestProviderLimiterAcquireWithinBurst(t *testing.T) {
	clk := clock.NewFakeClock(time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC))
	limiter := NewProviderLimiter(testRegistry(), NewMemoryBucket(clk))
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		require.NoError(t, limiter.Acquire(ctx, "fastcat"))
	}
}

func TestProviderLimiterHonorsContext(t *testing.T) {
	clk := clock.NewFakeClock(time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC))
	limiter := NewProviderLimiter(testRegistry(), NewMemoryBucket(clk))

	ctx := context.Background()
	for i := 0; i < 2; i++ {
		require.NoError(t, limiter.Acquire(ctx, "slowstore"))
	}

	// Bucket is empty and the fake clock never advances, so the acquire
	// can only end via the context.
	waitCtx, cancel := context.WithTimeout(ctx, 60*time.Millisecond)
	defer cancel()
	err := limiter.Acquire(waitCtx, "slowstore")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
