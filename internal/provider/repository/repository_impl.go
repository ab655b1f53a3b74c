package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/bwmarrin/snowflake"
	providerdomain "github.com/pricedex/pricedex/internal/provider/domain"
	"github.com/pricedex/pricedex/pkg/db"
	"gorm.io/gorm"
)

type repo struct {
	genID *snowflake.Node
}

func Provide(genID *snowflake.Node) providerdomain.Repository {
	return &repo{genID: genID}
}

func (r *repo) FindMapping(ctx context.Context, gdb *gorm.DB, gameID snowflake.ID, providerKey string) (*providerdomain.ProviderMapping, error) {
	var m providerdomain.ProviderMapping
	err := gdb.WithContext(ctx).Raw(
		`SELECT id, game_id, provider_key, external_id, raw_payload, origin, created_at, updated_at
		 FROM provider_mappings
		 WHERE game_id = ? AND provider_key = ?`,
		gameID,
		normalizeKey(providerKey),
	).Scan(&m).Error
	if err != nil {
		return nil, err
	}
	if m.ID == 0 {
		return nil, nil
	}
	return &m, nil
}

func (r *repo) ListMappings(ctx context.Context, gdb *gorm.DB, gameID snowflake.ID) ([]providerdomain.ProviderMapping, error) {
	var items []providerdomain.ProviderMapping
	err := gdb.WithContext(ctx).Raw(
		`SELECT id, game_id, provider_key, external_id, raw_payload, origin, created_at, updated_at
		 FROM provider_mappings
		 WHERE game_id = ? ORDER BY provider_key ASC`,
		gameID,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) CreateMappingIfAbsent(ctx context.Context, gdb *gorm.DB, m *providerdomain.ProviderMapping) (*providerdomain.ProviderMapping, bool, error) {
	if m == nil {
		return nil, false, errors.New("mapping is required")
	}
	m.ProviderKey = normalizeKey(m.ProviderKey)
	if m.ProviderKey == "" || strings.TrimSpace(m.ExternalID) == "" {
		return nil, false, errors.New("mapping provider key and external id are required")
	}

	existing, err := r.FindMapping(ctx, gdb, m.GameID, m.ProviderKey)
	if err != nil {
		return nil, false, err
	}
	if existing != nil {
		return existing, false, nil
	}

	if m.ID == 0 {
		m.ID = r.genID.Generate()
	}
	insertErr := gdb.WithContext(ctx).Exec(
		`INSERT INTO provider_mappings (id, game_id, provider_key, external_id, raw_payload, origin, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)`,
		m.ID,
		m.GameID,
		m.ProviderKey,
		m.ExternalID,
		m.RawPayload,
		m.Origin,
	).Error
	if insertErr != nil {
		// First successful creation wins: a concurrent writer beat us,
		// report their row with created=false.
		if db.IsDuplicateKeyErr(insertErr) {
			winner, findErr := r.FindMapping(ctx, gdb, m.GameID, m.ProviderKey)
			if findErr != nil {
				return nil, false, findErr
			}
			return winner, false, nil
		}
		return nil, false, insertErr
	}
	return m, true, nil
}

func normalizeKey(key string) string {
	return strings.ToLower(strings.TrimSpace(key))
}
