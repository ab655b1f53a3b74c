package redisconn

import (
	"context"
	"strings"

	"github.com/pricedex/pricedex/internal/config"
	redis "github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// New returns a shared redis client, or nil when no address is configured.
// Consumers treat a nil client as "fall back to the in-process variant".
func New(cfg config.Config, log *zap.Logger) *redis.Client {
	addr := strings.TrimSpace(cfg.RedisAddr)
	if addr == "" {
		return nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: strings.TrimSpace(cfg.RedisPassword),
		DB:       cfg.RedisDB,
	})
	log.Info("redis configured", zap.String("addr", addr))
	return client
}

func registerHooks(lc fx.Lifecycle, client *redis.Client) {
	if client == nil {
		return
	}
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			_ = ctx
			return client.Close()
		},
	})
}

// Module wires the shared redis client.
var Module = fx.Module("redis",
	fx.Provide(New),
	fx.Invoke(registerHooks),
)
