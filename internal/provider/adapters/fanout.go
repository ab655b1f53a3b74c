package adapters

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/pricedex/pricedex/internal/config"
	"github.com/pricedex/pricedex/internal/observability/metrics"
	"github.com/pricedex/pricedex/internal/provider/domain"
	"github.com/pricedex/pricedex/internal/ratelimit"
	"go.uber.org/zap"
)

// FanOutRegions issues one fetch per region concurrently, taking one rate
// limiter permit per outbound call. A failed or unparseable region is
// skipped alone; the others proceed. Media and store references are taken
// from the first successful region in configured order, since they do not
// vary by region. When every region failed outright the last failure is
// returned so callers can retry the task; ErrNoRegionData means the calls
// went through but carried nothing worth recording.
func FanOutRegions(
	ctx context.Context,
	limiter ratelimit.Limiter,
	providerKey string,
	regions []config.Region,
	timeout time.Duration,
	log *zap.Logger,
	fetch func(ctx context.Context, region config.Region) (*domain.RegionOutcome, error),
) (*domain.Result, error) {
	outcomes := make([]*domain.RegionOutcome, len(regions))
	failures := make([]error, len(regions))

	var wg sync.WaitGroup
	for i, region := range regions {
		wg.Add(1)
		go func(idx int, region config.Region) {
			defer wg.Done()

			if err := limiter.Acquire(ctx, providerKey); err != nil {
				failures[idx] = err
				log.Warn("rate limit permit failed, skipping region",
					zap.String("provider", providerKey),
					zap.String("region", region.Code),
					zap.Error(err),
				)
				return
			}

			callCtx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()

			outcome, err := fetch(callCtx, region)
			if err != nil {
				if errors.Is(err, domain.ErrNotListed) {
					log.Debug("not listed in region",
						zap.String("provider", providerKey),
						zap.String("region", region.Code),
					)
					return
				}
				failures[idx] = err
				metrics.Enrichment().IncRegionFailure(providerKey, region.Code)
				log.Warn("region fetch failed, skipping region",
					zap.String("provider", providerKey),
					zap.String("region", region.Code),
					zap.Error(err),
				)
				return
			}
			outcomes[idx] = outcome
		}(i, region)
	}
	wg.Wait()

	result := &domain.Result{}
	for _, outcome := range outcomes {
		if outcome == nil {
			continue
		}
		if outcome.Price != nil {
			result.Prices = append(result.Prices, *outcome.Price)
		}
		if result.Media == nil && len(outcome.Media) > 0 {
			result.Media = outcome.Media
		}
		if result.StoreRefs == nil && len(outcome.StoreRefs) > 0 {
			result.StoreRefs = outcome.StoreRefs
		}
		if result.RawPayload == nil && outcome.Raw != nil {
			result.RawPayload = outcome.Raw
		}
	}

	if len(result.Prices) == 0 && result.Media == nil && result.StoreRefs == nil {
		failed := 0
		var lastErr error
		for _, ferr := range failures {
			if ferr != nil {
				failed++
				lastErr = ferr
			}
		}
		if failed == len(regions) && lastErr != nil {
			return nil, fmt.Errorf("%s: all %d regions failed: %w", providerKey, failed, lastErr)
		}
		return nil, domain.ErrNoRegionData
	}
	return result, nil
}
