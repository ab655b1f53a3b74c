package ratelimit

import (
	"github.com/pricedex/pricedex/internal/clock"
	"github.com/pricedex/pricedex/internal/config"
	redis "github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// NewLimiter selects the redis-backed bucket when a client is available
// and the in-process bucket otherwise.
func NewLimiter(client *redis.Client, registry *config.ProviderRegistry, clk clock.Clock, log *zap.Logger) Limiter {
	if client != nil {
		return NewProviderLimiter(registry, NewTokenBucket(client))
	}
	log.Warn("redis not configured, using in-process rate limiter")
	return NewProviderLimiter(registry, NewMemoryBucket(clk))
}

var Module = fx.Module("rate.limit",
	fx.Provide(NewLimiter),
)
