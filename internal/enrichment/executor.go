package enrichment

import (
	"context"
	"errors"
	"time"

	"github.com/pricedex/pricedex/internal/config"
	mediadomain "github.com/pricedex/pricedex/internal/media/domain"
	"github.com/pricedex/pricedex/internal/observability/metrics"
	pricestoredomain "github.com/pricedex/pricedex/internal/pricestore/domain"
	providerdomain "github.com/pricedex/pricedex/internal/provider/domain"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Execute runs one queued task, called from the dispatcher workers.
func (o *Orchestrator) Execute(ctx context.Context, task Task) {
	ctx, span := tracer.Start(ctx, "enrichment."+string(task.Kind),
		trace.WithAttributes(
			attribute.String("provider", task.ProviderKey),
			attribute.Int64("game_id", int64(task.GameID)),
		))
	defer span.End()

	switch task.Kind {
	case TaskFetch:
		o.runFetch(ctx, task)
	case TaskSearch:
		o.runSearch(ctx, task)
	default:
		o.log.Warn("unknown task kind", zap.String("kind", string(task.Kind)))
	}
}

func (o *Orchestrator) runFetch(ctx context.Context, task Task) {
	def, ok := o.providers.Find(task.ProviderKey)
	if !ok {
		o.log.Warn("provider not configured", zap.String("provider", task.ProviderKey))
		return
	}
	fetcher, err := o.adapters.Fetcher(task.ProviderKey)
	if err != nil {
		o.log.Warn("no adapter for provider", zap.String("provider", task.ProviderKey))
		return
	}
	if task.Mapping == nil {
		o.log.Warn("fetch task without mapping", zap.String("provider", task.ProviderKey))
		return
	}

	maxAttempts := def.MaxRetries + 1
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	backoff := o.cfg.InitialBackoff
	if backoff <= 0 {
		backoff = time.Second
	}

	for attempt := 1; ; attempt++ {
		err = o.fetchOnce(ctx, task, fetcher, def)
		if err == nil {
			o.metrics.IncTaskOutcome(def.Key, "fetch", metrics.TaskOutcomeOK)
			return
		}
		if errors.Is(err, providerdomain.ErrNoRegionData) {
			o.log.Info("no_match",
				zap.String("provider", def.Key),
				zap.Int64("game_id", int64(task.GameID)),
			)
			o.metrics.IncTaskOutcome(def.Key, "fetch", metrics.TaskOutcomeNoMatch)
			return
		}
		if attempt >= maxAttempts || ctx.Err() != nil {
			break
		}

		o.metrics.IncTaskRetry(def.Key, "fetch")
		o.log.Warn("fetch failed, retrying",
			zap.String("provider", def.Key),
			zap.Int64("game_id", int64(task.GameID)),
			zap.Int("attempt", attempt),
			zap.Duration("backoff", backoff),
			zap.Error(err),
		)
		if !sleepCtx(ctx, backoff) {
			break
		}
		backoff *= 2
		if o.cfg.MaxBackoff > 0 && backoff > o.cfg.MaxBackoff {
			backoff = o.cfg.MaxBackoff
		}
	}

	o.log.Error("failed",
		zap.String("provider", def.Key),
		zap.Int64("game_id", int64(task.GameID)),
		zap.String("reason", metrics.ClassifyTaskError(err)),
		zap.Error(err),
	)
	o.metrics.IncTaskOutcome(def.Key, "fetch", metrics.TaskOutcomeDropped)
}

func (o *Orchestrator) fetchOnce(ctx context.Context, task Task, fetcher providerdomain.Fetcher, def config.ProviderDef) error {
	taskCtx, cancel := context.WithTimeout(ctx, o.cfg.TaskTimeout)
	defer cancel()

	start := time.Now()
	result, err := fetcher.Fetch(taskCtx, task.Mapping, def.Regions)
	o.metrics.ObserveTaskDuration(def.Key, "fetch", time.Since(start))
	if err != nil {
		return err
	}

	recordedAt := o.clk.Now()
	if err := o.prices.PreparePartitions(ctx, o.db, recordedAt); err != nil {
		return err
	}

	observations := make([]pricestoredomain.Observation, 0, len(result.Prices))
	for _, p := range result.Prices {
		observations = append(observations, pricestoredomain.Observation{
			RegionCode:   p.RegionCode,
			Currency:     p.Currency,
			AmountMinor:  p.AmountMinor,
			TaxInclusive: p.TaxInclusive,
		})
	}

	mappingID := task.Mapping.ID
	var written int
	err = o.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		n, err := o.prices.RecordPrices(ctx, tx, pricestoredomain.RecordInput{
			GameID:         task.GameID,
			MappingID:      &mappingID,
			SourceProvider: def.Key,
			RecordedAt:     recordedAt,
			Observations:   observations,
		})
		if err != nil {
			return err
		}
		written = n
		for _, item := range result.Media {
			if err := o.media.Upsert(ctx, tx, &mediadomain.GameMedia{
				GameID:         task.GameID,
				Kind:           item.Kind,
				URL:            item.URL,
				SourceProvider: def.Key,
			}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	o.metrics.AddPricesWritten(def.Key, written)

	if len(result.StoreRefs) > 0 {
		o.discoverStores(ctx, task, result.StoreRefs)
	}
	return nil
}

func (o *Orchestrator) runSearch(ctx context.Context, task Task) {
	def, ok := o.providers.Find(task.ProviderKey)
	if !ok {
		o.log.Warn("provider not configured", zap.String("provider", task.ProviderKey))
		return
	}
	fetcher, err := o.adapters.Fetcher(task.ProviderKey)
	if err != nil {
		o.log.Warn("no adapter for provider", zap.String("provider", task.ProviderKey))
		return
	}

	maxAttempts := def.MaxRetries + 1
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	backoff := o.cfg.InitialBackoff
	if backoff <= 0 {
		backoff = time.Second
	}

	var externalID string
	var found bool
	for attempt := 1; ; attempt++ {
		externalID, found, err = o.searchOnce(ctx, task, fetcher)
		if err == nil {
			break
		}
		if attempt >= maxAttempts || ctx.Err() != nil {
			o.log.Error("failed",
				zap.String("provider", def.Key),
				zap.Int64("game_id", int64(task.GameID)),
				zap.String("reason", metrics.ClassifyTaskError(err)),
				zap.Error(err),
			)
			o.metrics.IncTaskOutcome(def.Key, "search", metrics.TaskOutcomeDropped)
			return
		}

		o.metrics.IncTaskRetry(def.Key, "search")
		o.log.Warn("search failed, retrying",
			zap.String("provider", def.Key),
			zap.Int64("game_id", int64(task.GameID)),
			zap.Int("attempt", attempt),
			zap.Duration("backoff", backoff),
			zap.Error(err),
		)
		if !sleepCtx(ctx, backoff) {
			return
		}
		backoff *= 2
		if o.cfg.MaxBackoff > 0 && backoff > o.cfg.MaxBackoff {
			backoff = o.cfg.MaxBackoff
		}
	}

	if !found {
		o.log.Info("no_match",
			zap.String("provider", task.ProviderKey),
			zap.String("title", task.Title),
			zap.Int64("game_id", int64(task.GameID)),
		)
		o.metrics.IncTaskOutcome(task.ProviderKey, "search", metrics.TaskOutcomeNoMatch)
		return
	}

	mapping, _, err := o.mappings.CreateMappingIfAbsent(ctx, o.db, &providerdomain.ProviderMapping{
		GameID:      task.GameID,
		ProviderKey: task.ProviderKey,
		ExternalID:  externalID,
		Origin:      providerdomain.OriginSearch,
	})
	if err != nil {
		o.log.Error("create mapping failed",
			zap.String("provider", task.ProviderKey),
			zap.Int64("game_id", int64(task.GameID)),
			zap.Error(err),
		)
		o.metrics.IncTaskOutcome(task.ProviderKey, "search", metrics.TaskOutcomeFailed)
		return
	}
	o.metrics.IncTaskOutcome(task.ProviderKey, "search", metrics.TaskOutcomeOK)

	o.dispatcher.Submit(Task{
		Kind:        TaskFetch,
		ProviderKey: task.ProviderKey,
		GameID:      task.GameID,
		Title:       task.Title,
		Mapping:     mapping,
	})
}

func (o *Orchestrator) searchOnce(ctx context.Context, task Task, fetcher providerdomain.Fetcher) (string, bool, error) {
	searchCtx, cancel := context.WithTimeout(ctx, o.cfg.TaskTimeout)
	defer cancel()

	start := time.Now()
	externalID, found, err := fetcher.Search(searchCtx, task.Title)
	o.metrics.ObserveTaskDuration(task.ProviderKey, "search", time.Since(start))
	return externalID, found, err
}

// sleepCtx waits for d and reports false when ctx ended first.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
