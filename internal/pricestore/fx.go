package pricestore

import (
	"github.com/pricedex/pricedex/internal/pricestore/repository"
	"github.com/pricedex/pricedex/internal/pricestore/service"
	"go.uber.org/fx"
)

var Module = fx.Module("pricestore",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
