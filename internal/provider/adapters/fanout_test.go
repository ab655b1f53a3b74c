package adapters

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pricedex/pricedex/internal/config"
	"github.com/pricedex/pricedex/internal/provider/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type allowAllLimiter struct {
	calls atomic.Int64
}

func (l *allowAllLimiter) Acquire(ctx context.Context, providerKey string) error {
	l.calls.Add(1)
	return nil
}

type denyLimiter struct{}

func (denyLimiter) Acquire(ctx context.Context, providerKey string) error {
	return errors.New("budget exhausted")
}

var testRegions = []config.Region{
	{Code: "US", Currency: "USD"},
	{Code: "GB", Currency: "GBP"},
	{Code: "DE", Currency: "EUR"},
}

func TestFanOutIsolatesRegionFailure(t *testing.T) {
	limiter := &allowAllLimiter{}

	result, err := FanOutRegions(context.Background(), limiter, "steam", testRegions, time.Second, zap.NewNop(),
		func(ctx context.Context, region config.Region) (*domain.RegionOutcome, error) {
			if region.Code == "GB" {
				return nil, errors.New("timeout")
			}
			return &domain.RegionOutcome{
				Price: &domain.RegionPrice{RegionCode: region.Code, Currency: region.Currency, AmountMinor: 999},
				Media: []domain.MediaItem{{Kind: "cover", URL: "https://img/" + region.Code}},
			}, nil
		})
	require.NoError(t, err)
	require.Len(t, result.Prices, 2)
	assert.Equal(t, "US", result.Prices[0].RegionCode)
	assert.Equal(t, "DE", result.Prices[1].RegionCode)

	// Media comes from the first successful region only.
	require.Len(t, result.Media, 1)
	assert.Equal(t, "https://img/US", result.Media[0].URL)

	// One permit per outbound call, not per task.
	assert.EqualValues(t, 3, limiter.calls.Load())
}

func TestFanOutAllRegionsFailedIsRetryable(t *testing.T) {
	limiter := &allowAllLimiter{}

	_, err := FanOutRegions(context.Background(), limiter, "steam", testRegions, time.Second, zap.NewNop(),
		func(ctx context.Context, region config.Region) (*domain.RegionOutcome, error) {
			return nil, errors.New("boom")
		})
	require.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrNoRegionData, "a full transport failure must stay retryable")
	assert.Contains(t, err.Error(), "boom")
}

func TestFanOutNotListedEverywhereIsNoData(t *testing.T) {
	limiter := &allowAllLimiter{}

	_, err := FanOutRegions(context.Background(), limiter, "steam", testRegions, time.Second, zap.NewNop(),
		func(ctx context.Context, region config.Region) (*domain.RegionOutcome, error) {
			return nil, domain.ErrNotListed
		})
	assert.ErrorIs(t, err, domain.ErrNoRegionData)
}

func TestFanOutMixedFailureAndNotListedIsNoData(t *testing.T) {
	limiter := &allowAllLimiter{}

	// One region answered (not listed), so the task is not a transport failure.
	_, err := FanOutRegions(context.Background(), limiter, "steam", testRegions, time.Second, zap.NewNop(),
		func(ctx context.Context, region config.Region) (*domain.RegionOutcome, error) {
			if region.Code == "US" {
				return nil, domain.ErrNotListed
			}
			return nil, errors.New("timeout")
		})
	assert.ErrorIs(t, err, domain.ErrNoRegionData)
}

func TestFanOutSkipsRegionWhenPermitDenied(t *testing.T) {
	var fetched atomic.Int64

	_, err := FanOutRegions(context.Background(), denyLimiter{}, "steam", testRegions, time.Second, zap.NewNop(),
		func(ctx context.Context, region config.Region) (*domain.RegionOutcome, error) {
			fetched.Add(1)
			return &domain.RegionOutcome{}, nil
		})
	require.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrNoRegionData)
	assert.EqualValues(t, 0, fetched.Load(), "no fetch may run without a permit")
}

func TestFanOutKeepsStoreRefsFromFirstSuccess(t *testing.T) {
	limiter := &allowAllLimiter{}

	result, err := FanOutRegions(context.Background(), limiter, "nexarda", testRegions[:1], time.Second, zap.NewNop(),
		func(ctx context.Context, region config.Region) (*domain.RegionOutcome, error) {
			return &domain.RegionOutcome{
				StoreRefs: []domain.StoreReference{
					{StoreName: "Steam", ExternalID: "440"},
					{StoreName: "PlayStation Store", ExternalID: "EP1234"},
				},
			}, nil
		})
	require.NoError(t, err)
	assert.Len(t, result.StoreRefs, 2)
	assert.Empty(t, result.Prices)
}
