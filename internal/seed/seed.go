package seed

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type sampleGame struct {
	title    string
	platform string
	regions  [][2]string
	mappings map[string]string
}

var sampleCatalog = []sampleGame{
	{
		title:    "Half-Life 2",
		platform: "pc",
		regions:  [][2]string{{"US", "USD"}, {"GB", "GBP"}, {"DE", "EUR"}},
		mappings: map[string]string{"steam": "220"},
	},
	{
		title:    "Bloodborne",
		platform: "ps4",
		regions:  [][2]string{{"US", "USD"}, {"GB", "GBP"}},
		mappings: map[string]string{"psstore": "UP9000-CUSA00207_00-BLOODBORNE0000US"},
	},
	{
		title:    "Stardew Valley",
		platform: "pc",
		regions:  [][2]string{{"US", "USD"}},
		mappings: map[string]string{},
	},
}

// EnsureSampleCatalog seeds a handful of games with offer jurisdictions and
// config-origin provider mappings so a fresh dev database has something to
// enrich. Safe to run on every startup.
func EnsureSampleCatalog(db *gorm.DB, genID *snowflake.Node) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}
	if genID == nil {
		return errors.New("seed id generator is required")
	}

	ctx := context.Background()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, g := range sampleCatalog {
			gameID, err := ensureGame(ctx, tx, genID, g.title, g.platform)
			if err != nil {
				return err
			}
			for _, region := range g.regions {
				if err := ensureOfferJurisdiction(ctx, tx, genID, gameID, region[0], region[1]); err != nil {
					return err
				}
			}
			for providerKey, externalID := range g.mappings {
				if err := ensureMapping(ctx, tx, genID, gameID, providerKey, externalID); err != nil {
					return err
				}
			}
		}
		return nil
	})
}

func ensureGame(ctx context.Context, tx *gorm.DB, genID *snowflake.Node, title, platform string) (snowflake.ID, error) {
	var existing struct{ ID snowflake.ID }
	err := tx.WithContext(ctx).Raw(
		`SELECT id FROM games WHERE title = ? AND platform = ?`, title, platform,
	).Scan(&existing).Error
	if err != nil {
		return 0, err
	}
	if existing.ID != 0 {
		return existing.ID, nil
	}

	id := genID.Generate()
	err = tx.WithContext(ctx).Exec(
		`INSERT INTO games (id, title, platform, created_at, updated_at)
		 VALUES (?, ?, ?, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)`,
		id, title, platform,
	).Error
	if err != nil {
		return 0, err
	}
	return id, nil
}

func ensureOfferJurisdiction(ctx context.Context, tx *gorm.DB, genID *snowflake.Node, gameID snowflake.ID, regionCode, currency string) error {
	var existing struct{ ID snowflake.ID }
	err := tx.WithContext(ctx).Raw(
		`SELECT id FROM offer_jurisdictions
		 WHERE game_id = ? AND region_code = ? AND currency = ?`,
		gameID, regionCode, currency,
	).Scan(&existing).Error
	if err != nil {
		return err
	}
	if existing.ID != 0 {
		return nil
	}
	return tx.WithContext(ctx).Exec(
		`INSERT INTO offer_jurisdictions (id, game_id, region_code, currency, created_at, updated_at)
		 VALUES (?, ?, ?, ?, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)`,
		genID.Generate(), gameID, regionCode, currency,
	).Error
}

func ensureMapping(ctx context.Context, tx *gorm.DB, genID *snowflake.Node, gameID snowflake.ID, providerKey, externalID string) error {
	var existing struct{ ID snowflake.ID }
	err := tx.WithContext(ctx).Raw(
		`SELECT id FROM provider_mappings WHERE game_id = ? AND provider_key = ?`,
		gameID, providerKey,
	).Scan(&existing).Error
	if err != nil {
		return err
	}
	if existing.ID != 0 {
		return nil
	}
	return tx.WithContext(ctx).Exec(
		`INSERT INTO provider_mappings (id, game_id, provider_key, external_id, origin, created_at, updated_at)
		 VALUES (?, ?, ?, ?, 'config', CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)`,
		genID.Generate(), gameID, providerKey, externalID,
	).Error
}
