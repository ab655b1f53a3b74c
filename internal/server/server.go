package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	catalogdomain "github.com/pricedex/pricedex/internal/catalog/domain"
	"github.com/pricedex/pricedex/internal/config"
	"github.com/pricedex/pricedex/internal/enrichment"
	mediadomain "github.com/pricedex/pricedex/internal/media/domain"
	pricestoredomain "github.com/pricedex/pricedex/internal/pricestore/domain"
	providerdomain "github.com/pricedex/pricedex/internal/provider/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	fx.Provide(NewServer),
	fx.Invoke(RegisterRoutes),
	fx.Invoke(run),
)

func registerGin(cfg config.Config) *gin.Engine {
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(gin.Recovery())
	return engine
}

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine, log *zap.Logger) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Fatal("http server failed", zap.Error(err))
				}
			}()
			log.Info("http server listening", zap.String("addr", cfg.HTTPAddr))
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine       *gin.Engine
	log          *zap.Logger
	db           *gorm.DB
	orchestrator *enrichment.Orchestrator
	catalog      catalogdomain.Repository
	mappings     providerdomain.Repository
	media        mediadomain.Repository
	prices       pricestoredomain.Repository
}

type ServerParams struct {
	fx.In

	Gin          *gin.Engine
	Log          *zap.Logger
	DB           *gorm.DB
	Orchestrator *enrichment.Orchestrator
	Catalog      catalogdomain.Repository
	Mappings     providerdomain.Repository
	Media        mediadomain.Repository
	Prices       pricestoredomain.Repository
}

func NewServer(p ServerParams) *Server {
	return &Server{
		engine:       p.Gin,
		log:          p.Log.Named("server"),
		db:           p.DB,
		orchestrator: p.Orchestrator,
		catalog:      p.Catalog,
		mappings:     p.Mappings,
		media:        p.Media,
		prices:       p.Prices,
	}
}
