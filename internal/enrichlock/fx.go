package enrichlock

import (
	"github.com/pricedex/pricedex/internal/clock"
	redis "github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// NewLocker selects the redis implementation when a client is available
// and falls back to the in-process locker otherwise.
func NewLocker(client *redis.Client, clk clock.Clock, log *zap.Logger) Locker {
	if client != nil {
		return NewRedisLocker(client)
	}
	log.Warn("redis not configured, using in-process enrichment lock")
	return NewMemoryLocker(clk)
}

// Module wires the enrichment lock.
var Module = fx.Module("enrich.lock",
	fx.Provide(NewLocker),
)
