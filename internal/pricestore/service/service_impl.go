package service

import (
	"context"
	"fmt"
	"time"

	catalogdomain "github.com/pricedex/pricedex/internal/catalog/domain"
	"github.com/pricedex/pricedex/internal/pricestore/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	Log     *zap.Logger
	Repo    domain.Repository
	Catalog catalogdomain.Repository
}

type service struct {
	log     *zap.Logger
	repo    domain.Repository
	catalog catalogdomain.Repository
}

func New(p Params) domain.Service {
	return &service{
		log:     p.Log.Named("pricestore"),
		repo:    p.Repo,
		catalog: p.Catalog,
	}
}

func (s *service) PreparePartitions(ctx context.Context, gdb *gorm.DB, recordedAt time.Time) error {
	return s.repo.EnsurePartition(ctx, gdb, recordedAt)
}

func (s *service) RecordPrices(ctx context.Context, tx *gorm.DB, input domain.RecordInput) (int, error) {
	written := 0
	for _, obs := range input.Observations {
		if err := obs.Validate(); err != nil {
			s.log.Warn("dropping invalid price observation",
				zap.Int64("game_id", int64(input.GameID)),
				zap.String("provider", input.SourceProvider),
				zap.String("region", obs.RegionCode),
				zap.Error(err),
			)
			continue
		}

		oj, err := s.catalog.EnsureOfferJurisdiction(ctx, tx, &catalogdomain.OfferJurisdiction{
			GameID:     input.GameID,
			RegionCode: obs.RegionCode,
			Currency:   obs.Currency,
		})
		if err != nil {
			return written, fmt.Errorf("ensure offer jurisdiction %s/%s: %w", obs.RegionCode, obs.Currency, err)
		}

		event := &domain.PriceEvent{
			OfferJurisdictionID: oj.ID,
			ProviderMappingID:   input.MappingID,
			RecordedAt:          input.RecordedAt,
			AmountMinor:         obs.AmountMinor,
			TaxInclusive:        obs.TaxInclusive,
		}
		if err := s.repo.InsertEvent(ctx, tx, event); err != nil {
			return written, fmt.Errorf("insert price event: %w", err)
		}

		current := &domain.CurrentPrice{
			OfferJurisdictionID: oj.ID,
			AmountMinor:         obs.AmountMinor,
			RecordedAt:          input.RecordedAt,
			SourceProvider:      input.SourceProvider,
			UpdatedAt:           input.RecordedAt,
		}
		if err := s.repo.UpsertCurrent(ctx, tx, current); err != nil {
			return written, fmt.Errorf("upsert current price: %w", err)
		}
		written++
	}
	return written, nil
}
