package seed

import (
	"github.com/bwmarrin/snowflake"
	"github.com/pricedex/pricedex/internal/config"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("seed",
	fx.Invoke(func(conn *gorm.DB, genID *snowflake.Node, cfg config.Config) error {
		if !cfg.SeedSampleData {
			return nil
		}
		return EnsureSampleCatalog(conn, genID)
	}),
)
