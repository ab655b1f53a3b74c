package media

import (
	"github.com/pricedex/pricedex/internal/media/repository"
	"go.uber.org/fx"
)

var Module = fx.Module("media",
	fx.Provide(repository.Provide),
)
