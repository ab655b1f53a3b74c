package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	// Upsert stores the asset, refreshing source_provider and updated_at
	// when the same (game, kind, url) is reported again.
	Upsert(ctx context.Context, db *gorm.DB, media *GameMedia) error

	ListByGame(ctx context.Context, db *gorm.DB, gameID snowflake.ID) ([]GameMedia, error)
}
