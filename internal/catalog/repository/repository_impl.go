package repository

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	catalogdomain "github.com/pricedex/pricedex/internal/catalog/domain"
	"github.com/pricedex/pricedex/pkg/db"
	"gorm.io/gorm"
)

type repo struct {
	genID *snowflake.Node
}

func Provide(genID *snowflake.Node) catalogdomain.Repository {
	return &repo{genID: genID}
}

func (r *repo) FindGame(ctx context.Context, gdb *gorm.DB, id snowflake.ID) (*catalogdomain.Game, error) {
	var g catalogdomain.Game
	err := gdb.WithContext(ctx).Raw(
		`SELECT id, title, platform, created_at, updated_at
		 FROM games WHERE id = ?`,
		id,
	).Scan(&g).Error
	if err != nil {
		return nil, err
	}
	if g.ID == 0 {
		return nil, nil
	}
	return &g, nil
}

func (r *repo) ListOfferJurisdictions(ctx context.Context, gdb *gorm.DB, gameID snowflake.ID) ([]catalogdomain.OfferJurisdiction, error) {
	var items []catalogdomain.OfferJurisdiction
	err := gdb.WithContext(ctx).Raw(
		`SELECT id, game_id, region_code, currency, created_at, updated_at
		 FROM offer_jurisdictions WHERE game_id = ? ORDER BY region_code ASC`,
		gameID,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) FindOfferJurisdiction(ctx context.Context, gdb *gorm.DB, gameID snowflake.ID, regionCode, currency string) (*catalogdomain.OfferJurisdiction, error) {
	var oj catalogdomain.OfferJurisdiction
	err := gdb.WithContext(ctx).Raw(
		`SELECT id, game_id, region_code, currency, created_at, updated_at
		 FROM offer_jurisdictions
		 WHERE game_id = ? AND region_code = ? AND currency = ?`,
		gameID,
		strings.ToUpper(regionCode),
		strings.ToUpper(currency),
	).Scan(&oj).Error
	if err != nil {
		return nil, err
	}
	if oj.ID == 0 {
		return nil, nil
	}
	return &oj, nil
}

func (r *repo) EnsureOfferJurisdiction(ctx context.Context, gdb *gorm.DB, oj *catalogdomain.OfferJurisdiction) (*catalogdomain.OfferJurisdiction, error) {
	oj.RegionCode = strings.ToUpper(oj.RegionCode)
	oj.Currency = strings.ToUpper(oj.Currency)

	existing, err := r.FindOfferJurisdiction(ctx, gdb, oj.GameID, oj.RegionCode, oj.Currency)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	if oj.ID == 0 {
		oj.ID = r.genID.Generate()
	}
	insertErr := gdb.WithContext(ctx).Exec(
		`INSERT INTO offer_jurisdictions (id, game_id, region_code, currency, created_at, updated_at)
		 VALUES (?, ?, ?, ?, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)`,
		oj.ID,
		oj.GameID,
		oj.RegionCode,
		oj.Currency,
	).Error
	if insertErr != nil {
		// Lost a race with a concurrent ensure for the same key.
		if db.IsDuplicateKeyErr(insertErr) {
			return r.FindOfferJurisdiction(ctx, gdb, oj.GameID, oj.RegionCode, oj.Currency)
		}
		return nil, insertErr
	}
	return oj, nil
}
