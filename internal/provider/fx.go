package provider

import (
	"github.com/pricedex/pricedex/internal/config"
	"github.com/pricedex/pricedex/internal/provider/adapters"
	"github.com/pricedex/pricedex/internal/provider/adapters/nexarda"
	"github.com/pricedex/pricedex/internal/provider/adapters/psstore"
	"github.com/pricedex/pricedex/internal/provider/adapters/steam"
	"github.com/pricedex/pricedex/internal/provider/repository"
	"github.com/pricedex/pricedex/internal/ratelimit"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type adapterParams struct {
	fx.In

	Providers *config.ProviderRegistry
	Limiter   ratelimit.Limiter
	Cfg       config.Config
	Log       *zap.Logger
}

func newRegistry(p adapterParams) *adapters.Registry {
	defFor := func(key string) config.ProviderDef {
		if def, ok := p.Providers.Find(key); ok {
			return def
		}
		return config.ProviderDef{Key: key}
	}
	return adapters.NewRegistry(
		steam.New(defFor("steam"), p.Limiter, p.Cfg.Enrichment, p.Log),
		psstore.New(defFor("psstore"), p.Limiter, p.Cfg.Enrichment, p.Log),
		nexarda.New(defFor("nexarda"), p.Limiter, p.Cfg.Enrichment, p.Log),
	)
}

var Module = fx.Module("provider",
	fx.Provide(repository.Provide),
	fx.Provide(newRegistry),
)
