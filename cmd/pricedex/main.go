package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/pricedex/pricedex/internal/catalog"
	"github.com/pricedex/pricedex/internal/clock"
	"github.com/pricedex/pricedex/internal/config"
	"github.com/pricedex/pricedex/internal/enrichlock"
	"github.com/pricedex/pricedex/internal/enrichment"
	"github.com/pricedex/pricedex/internal/logger"
	"github.com/pricedex/pricedex/internal/media"
	"github.com/pricedex/pricedex/internal/migration"
	"github.com/pricedex/pricedex/internal/observability/tracing"
	"github.com/pricedex/pricedex/internal/pricestore"
	"github.com/pricedex/pricedex/internal/provider"
	"github.com/pricedex/pricedex/internal/ratelimit"
	"github.com/pricedex/pricedex/internal/redisconn"
	"github.com/pricedex/pricedex/internal/seed"
	"github.com/pricedex/pricedex/internal/server"
	"github.com/pricedex/pricedex/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		config.Module,
		logger.Module,
		tracing.Module,
		clock.Module,
		fx.Provide(registerSnowflake),
		db.Module,
		migration.Module,
		seed.Module,
		redisconn.Module,

		enrichlock.Module,
		ratelimit.Module,
		catalog.Module,
		provider.Module,
		media.Module,
		pricestore.Module,
		enrichment.Module,
		server.Module,
	)
	app.Run()
}

func registerSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}
