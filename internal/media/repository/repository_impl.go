package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/pricedex/pricedex/internal/media/domain"
	"gorm.io/gorm"
)

type repo struct {
	genID *snowflake.Node
}

func Provide(genID *snowflake.Node) domain.Repository {
	return &repo{genID: genID}
}

func (r *repo) Upsert(ctx context.Context, gdb *gorm.DB, media *domain.GameMedia) error {
	if media.ID == 0 {
		media.ID = r.genID.Generate()
	}
	now := time.Now().UTC()
	if media.CreatedAt.IsZero() {
		media.CreatedAt = now
	}
	media.UpdatedAt = now

	return gdb.WithContext(ctx).Exec(
		`INSERT INTO game_media (id, game_id, kind, url, source_provider, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (game_id, kind, url) DO UPDATE SET
		     source_provider = EXCLUDED.source_provider,
		     updated_at = EXCLUDED.updated_at`,
		media.ID,
		media.GameID,
		media.Kind,
		media.URL,
		media.SourceProvider,
		media.CreatedAt,
		media.UpdatedAt,
	).Error
}

func (r *repo) ListByGame(ctx context.Context, gdb *gorm.DB, gameID snowflake.ID) ([]domain.GameMedia, error) {
	var items []domain.GameMedia
	err := gdb.WithContext(ctx).Raw(
		`SELECT id, game_id, kind, url, source_provider, created_at, updated_at
		 FROM game_media
		 WHERE game_id = ?
		 ORDER BY kind ASC, url ASC`,
		gameID,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}
