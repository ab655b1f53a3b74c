package enrichlock

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/pricedex/pricedex/internal/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryLockerExclusivity(t *testing.T) {
	clk := clock.NewFakeClock(time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC))
	locker := NewMemoryLocker(clk)
	ctx := context.Background()

	handle, acquired, err := locker.TryAcquire(ctx, 42, time.Minute)
	require.NoError(t, err)
	require.True(t, acquired)
	require.NotNil(t, handle)

	_, acquired2, err := locker.TryAcquire(ctx, 42, time.Minute)
	require.NoError(t, err)
	assert.False(t, acquired2, "second holder must be rejected")

	// A different entity is independent.
	other, acquired3, err := locker.TryAcquire(ctx, 43, time.Minute)
	require.NoError(t, err)
	assert.True(t, acquired3)
	require.NoError(t, other.Release(ctx))

	require.NoError(t, handle.Release(ctx))

	_, reacquired, err := locker.TryAcquire(ctx, 42, time.Minute)
	require.NoError(t, err)
	assert.True(t, reacquired, "released lock must be acquirable again")
}

func TestMemoryLockerTTLExpiry(t *testing.T) {
	clk := clock.NewFakeClock(time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC))
	locker := NewMemoryLocker(clk)
	ctx := context.Background()

	stale, acquired, err := locker.TryAcquire(ctx, 7, time.Minute)
	require.NoError(t, err)
	require.True(t, acquired)

	clk.Advance(59 * time.Second)
	_, acquired2, err := locker.TryAcquire(ctx, 7, time.Minute)
	require.NoError(t, err)
	assert.False(t, acquired2, "lock must hold until TTL")

	clk.Advance(2 * time.Second)
	fresh, acquired3, err := locker.TryAcquire(ctx, 7, time.Minute)
	require.NoError(t, err)
	assert.True(t, acquired3, "expired lock must be reclaimable")

	// Releasing the stale handle must not free the new holder's lock.
	require.NoError(t, stale.Release(ctx))
	_, acquired4, err := locker.TryAcquire(ctx, 7, time.Minute)
	require.NoError(t, err)
	assert.False(t, acquired4)

	require.NoError(t, fresh.Release(ctx))
}

func TestHandleReleaseIsIdempotent(t *testing.T) {
	clk := clock.NewFakeClock(time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC))
	locker := NewMemoryLocker(clk)
	ctx := context.Background()

	handle, acquired, err := locker.TryAcquire(ctx, 9, time.Minute)
	require.NoError(t, err)
	require.True(t, acquired)

	require.NoError(t, handle.Release(ctx))

	// Second holder gets the lock; a late duplicate release of the first
	// handle must not steal it.
	second, acquired2, err := locker.TryAcquire(ctx, 9, time.Minute)
	require.NoError(t, err)
	require.True(t, acquired2)

	require.NoError(t, handle.Release(ctx))
	_, acquired3, err := locker.TryAcquire(ctx, 9, time.Minute)
	require.NoError(t, err)
	assert.False(t, acquired3)

	require.NoError(t, second.Release(ctx))
}

func TestMemoryLockerConcurrentAcquire(t *testing.T) {
	clk := clock.NewFakeClock(time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC))
	locker := NewMemoryLocker(clk)
	ctx := context.Background()

	const workers = 32
	var wg sync.WaitGroup
	winners := make(chan *Handle, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			handle, acquired, err := locker.TryAcquire(ctx, 100, time.Minute)
			assert.NoError(t, err)
			if acquired {
				winners <- handle
			}
		}()
	}
	wg.Wait()
	close(winners)

	count := 0
	for handle := range winners {
		count++
		require.NoError(t, handle.Release(ctx))
	}
	assert.Equal(t, 1, count, "exactly one concurrent acquire may win")
}
