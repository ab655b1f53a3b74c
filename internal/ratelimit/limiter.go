package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/pricedex/pricedex/internal/config"
)

// Limiter hands out one permit per outbound request against a provider.
// Acquire blocks (suspends the calling goroutine) until the provider's
// budget admits one more request or ctx is done. Budgets are per provider
// key and shared across every worker in the process (and, with redis,
// across processes); waiting on one provider never delays another.
type Limiter interface {
	Acquire(ctx context.Context, providerKey string) error
}

const providerBucketKey = "ratelimit:provider:%s"

// minWait bounds the polling interval so a denied acquire does not spin.
const minWait = 25 * time.Millisecond

type bucket interface {
	Allow(ctx context.Context, key string, rate float64, burst int) (*AllowResult, error)
}

type providerLimiter struct {
	registry *config.ProviderRegistry
	bucket   bucket
}

// NewProviderLimiter builds a blocking limiter over a token bucket,
// with budgets resolved from the provider registry on every acquire so
// config reloads take effect immediately.
func NewProviderLimiter(registry *config.ProviderRegistry, b bucket) Limiter {
	return &providerLimiter{registry: registry, bucket: b}
}

func (l *providerLimiter) Acquire(ctx context.Context, providerKey string) error {
	def, ok := l.registry.Find(providerKey)
	if !ok {
		return fmt.Errorf("unknown provider %q", providerKey)
	}

	key := fmt.Sprintf(providerBucketKey, def.Key)
	for {
		res, err := l.bucket.Allow(ctx, key, def.Rate, def.Burst)
		if err != nil {
			return err
		}
		if res.Allowed {
			return nil
		}

		wait := res.RetryAfter
		if wait < minWait {
			wait = minWait
		}
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}
