package repository

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/pricedex/pricedex/internal/pricestore/domain"
	"github.com/pricedex/pricedex/pkg/db"
	"gorm.io/gorm"
)

type repo struct {
	genID *snowflake.Node

	mu      sync.Mutex
	ensured map[string]struct{}
}

func Provide(genID *snowflake.Node) domain.Repository {
	return &repo{genID: genID, ensured: map[string]struct{}{}}
}

func (r *repo) EnsurePartition(ctx context.Context, gdb *gorm.DB, t time.Time) error {
	if !db.IsPostgres(gdb) {
		// On sqlite the history lives in a plain prices table.
		return nil
	}

	name := domain.PartitionName(t)

	r.mu.Lock()
	_, done := r.ensured[name]
	r.mu.Unlock()
	if done {
		return nil
	}

	from := time.Date(t.UTC().Year(), t.UTC().Month(), 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 1, 0)

	stmt := fmt.Sprintf(
		`CREATE TABLE IF NOT EXISTS %s PARTITION OF prices FOR VALUES FROM ('%s') TO ('%s')`,
		name,
		from.Format("2006-01-02"),
		to.Format("2006-01-02"),
	)
	if err := gdb.WithContext(ctx).Exec(stmt).Error; err != nil && !db.IsDuplicateDDLErr(err) {
		return fmt.Errorf("ensure partition %s: %w", name, err)
	}

	r.mu.Lock()
	r.ensured[name] = struct{}{}
	r.mu.Unlock()
	return nil
}

func (r *repo) InsertEvent(ctx context.Context, gdb *gorm.DB, event *domain.PriceEvent) error {
	if event.ID == 0 {
		event.ID = r.genID.Generate()
	}
	return gdb.WithContext(ctx).Exec(
		`INSERT INTO prices (id, offer_jurisdiction_id, provider_mapping_id, recorded_at, amount_minor, tax_inclusive, meta)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		event.ID,
		event.OfferJurisdictionID,
		event.ProviderMappingID,
		event.RecordedAt,
		event.AmountMinor,
		event.TaxInclusive,
		event.Meta,
	).Error
}

func (r *repo) UpsertCurrent(ctx context.Context, gdb *gorm.DB, current *domain.CurrentPrice) error {
	return gdb.WithContext(ctx).Exec(
		`INSERT INTO current_price (offer_jurisdiction_id, amount_minor, recorded_at, source_provider, updated_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (offer_jurisdiction_id) DO UPDATE SET
		     amount_minor = EXCLUDED.amount_minor,
		     recorded_at = EXCLUDED.recorded_at,
		     source_provider = EXCLUDED.source_provider,
		     updated_at = EXCLUDED.updated_at
		 WHERE current_price.recorded_at <= EXCLUDED.recorded_at`,
		current.OfferJurisdictionID,
		current.AmountMinor,
		current.RecordedAt,
		current.SourceProvider,
		current.UpdatedAt,
	).Error
}

func (r *repo) FindCurrent(ctx context.Context, gdb *gorm.DB, offerJurisdictionID snowflake.ID) (*domain.CurrentPrice, error) {
	var c domain.CurrentPrice
	err := gdb.WithContext(ctx).Raw(
		`SELECT offer_jurisdiction_id, amount_minor, recorded_at, source_provider, updated_at
		 FROM current_price
		 WHERE offer_jurisdiction_id = ?`,
		offerJurisdictionID,
	).Scan(&c).Error
	if err != nil {
		return nil, err
	}
	if c.OfferJurisdictionID == 0 {
		return nil, nil
	}
	return &c, nil
}

func (r *repo) ListEvents(ctx context.Context, gdb *gorm.DB, offerJurisdictionID snowflake.ID, from, to time.Time) ([]domain.PriceEvent, error) {
	var events []domain.PriceEvent
	err := gdb.WithContext(ctx).Raw(
		`SELECT id, offer_jurisdiction_id, provider_mapping_id, recorded_at, amount_minor, tax_inclusive, meta
		 FROM prices
		 WHERE offer_jurisdiction_id = ? AND recorded_at >= ? AND recorded_at < ?
		 ORDER BY recorded_at ASC, id ASC`,
		offerJurisdictionID,
		from,
		to,
	).Scan(&events).Error
	if err != nil {
		return nil, err
	}
	return events, nil
}
