package enrichment

import (
	"context"
	"sync"
	"time"

	"github.com/bwmarrin/snowflake"
	catalogdomain "github.com/pricedex/pricedex/internal/catalog/domain"
	"github.com/pricedex/pricedex/internal/clock"
	"github.com/pricedex/pricedex/internal/config"
	"github.com/pricedex/pricedex/internal/enrichlock"
	mediadomain "github.com/pricedex/pricedex/internal/media/domain"
	"github.com/pricedex/pricedex/internal/observability/metrics"
	pricestoredomain "github.com/pricedex/pricedex/internal/pricestore/domain"
	"github.com/pricedex/pricedex/internal/provider/adapters"
	providerdomain "github.com/pricedex/pricedex/internal/provider/domain"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var tracer = otel.Tracer("pricedex/enrichment")

type Params struct {
	fx.In

	Log        *zap.Logger
	DB         *gorm.DB
	Clock      clock.Clock
	Cfg        config.Config
	Providers  *config.ProviderRegistry
	Locker     enrichlock.Locker
	Adapters   *adapters.Registry
	Catalog    catalogdomain.Repository
	Mappings   providerdomain.Repository
	Media      mediadomain.Repository
	Prices     pricestoredomain.Service
	Dispatcher *Dispatcher
}

// Orchestrator turns a refresh trigger into a bounded set of provider
// tasks. It holds the per-game lock only while dispatching; the tasks
// themselves run after the lock is released.
type Orchestrator struct {
	log        *zap.Logger
	db         *gorm.DB
	clk        clock.Clock
	cfg        config.EnrichmentConfig
	providers  *config.ProviderRegistry
	locker     enrichlock.Locker
	adapters   *adapters.Registry
	catalog    catalogdomain.Repository
	mappings   providerdomain.Repository
	media      mediadomain.Repository
	prices     pricestoredomain.Service
	dispatcher *Dispatcher
	metrics    *metrics.EnrichmentMetrics

	mu       sync.Mutex
	lastRuns map[snowflake.ID]time.Time
}

func New(p Params) *Orchestrator {
	return &Orchestrator{
		log:        p.Log.Named("enrichment"),
		db:         p.DB,
		clk:        p.Clock,
		cfg:        p.Cfg.Enrichment,
		providers:  p.Providers,
		locker:     p.Locker,
		adapters:   p.Adapters,
		catalog:    p.Catalog,
		mappings:   p.Mappings,
		media:      p.Media,
		prices:     p.Prices,
		dispatcher: p.Dispatcher,
		metrics:    metrics.Enrichment(),
		lastRuns:   map[snowflake.ID]time.Time{},
	}
}

// Run dispatches provider tasks for one game. Contention on the lock is
// a silent skip, a missing game is logged, and task failures surface
// only through logs and persisted state. Callers get no synchronous
// success signal.
func (o *Orchestrator) Run(ctx context.Context, gameID snowflake.ID, forceRefresh bool) {
	ctx, span := tracer.Start(ctx, "enrichment.run",
		trace.WithAttributes(
			attribute.Int64("game_id", int64(gameID)),
			attribute.Bool("force_refresh", forceRefresh),
		))
	defer span.End()

	handle, acquired, err := o.locker.TryAcquire(ctx, int64(gameID), o.cfg.LockTTL)
	if err != nil {
		o.log.Error("lock acquire failed", zap.Int64("game_id", int64(gameID)), zap.Error(err))
		o.metrics.IncRun(metrics.RunOutcomeError)
		return
	}
	if !acquired {
		o.log.Debug("locked, skipping", zap.Int64("game_id", int64(gameID)))
		o.metrics.IncRun(metrics.RunOutcomeLocked)
		return
	}
	defer func() {
		if err := handle.Release(context.WithoutCancel(ctx)); err != nil {
			o.log.Warn("lock release failed", zap.Int64("game_id", int64(gameID)), zap.Error(err))
		}
	}()

	if !forceRefresh && o.recentlyEnriched(gameID) {
		o.log.Debug("recently enriched, skipping", zap.Int64("game_id", int64(gameID)))
		o.metrics.IncRun(metrics.RunOutcomeFresh)
		return
	}

	game, err := o.catalog.FindGame(ctx, o.db, gameID)
	if err != nil {
		o.log.Error("load game failed", zap.Int64("game_id", int64(gameID)), zap.Error(err))
		o.metrics.IncRun(metrics.RunOutcomeError)
		return
	}
	if game == nil {
		o.log.Warn("game not found", zap.Int64("game_id", int64(gameID)))
		o.metrics.IncRun(metrics.RunOutcomeNotFound)
		return
	}

	known, err := o.mappings.ListMappings(ctx, o.db, gameID)
	if err != nil {
		o.log.Error("load mappings failed", zap.Int64("game_id", int64(gameID)), zap.Error(err))
		o.metrics.IncRun(metrics.RunOutcomeError)
		return
	}
	byProvider := map[string]*providerdomain.ProviderMapping{}
	for i := range known {
		byProvider[known[i].ProviderKey] = &known[i]
	}

	var dispatched []string
	submit := func(task Task) {
		if o.dispatcher.Submit(task) {
			dispatched = append(dispatched, task.ProviderKey)
		}
	}

	storefrontMapped := false
	for _, def := range o.providers.Storefronts() {
		mapping, ok := byProvider[def.Key]
		if !ok {
			continue
		}
		storefrontMapped = true
		submit(Task{Kind: TaskFetch, ProviderKey: def.Key, GameID: gameID, Title: game.Title, Mapping: mapping})
	}

	// Catalogs are always refetched to maximize coverage.
	for _, def := range o.providers.Catalogs() {
		if mapping, ok := byProvider[def.Key]; ok {
			submit(Task{Kind: TaskFetch, ProviderKey: def.Key, GameID: gameID, Title: game.Title, Mapping: mapping})
		} else {
			submit(Task{Kind: TaskSearch, ProviderKey: def.Key, GameID: gameID, Title: game.Title})
		}
	}

	if !storefrontMapped {
		if storefronts := o.providers.Storefronts(); len(storefronts) > 0 {
			submit(Task{Kind: TaskSearch, ProviderKey: storefronts[0].Key, GameID: gameID, Title: game.Title})
		}
	}

	o.markEnriched(gameID)
	o.log.Info("dispatched",
		zap.Int64("game_id", int64(gameID)),
		zap.Strings("providers", dispatched),
		zap.Bool("force_refresh", forceRefresh),
	)
	o.metrics.IncRun(metrics.RunOutcomeDispatched)
}

func (o *Orchestrator) recentlyEnriched(gameID snowflake.ID) bool {
	if o.cfg.RefreshInterval <= 0 {
		return false
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	last, ok := o.lastRuns[gameID]
	return ok && o.clk.Now().Sub(last) < o.cfg.RefreshInterval
}

func (o *Orchestrator) markEnriched(gameID snowflake.ID) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.lastRuns[gameID] = o.clk.Now()
}
