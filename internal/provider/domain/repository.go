package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	FindMapping(ctx context.Context, db *gorm.DB, gameID snowflake.ID, providerKey string) (*ProviderMapping, error)
	ListMappings(ctx context.Context, db *gorm.DB, gameID snowflake.ID) ([]ProviderMapping, error)
	// CreateMappingIfAbsent is idempotent on (game, provider): when a row
	// already exists it is returned with created=false and nothing is
	// written. The created flag is what decides whether a discovery
	// cascades into a new fetch.
	CreateMappingIfAbsent(ctx context.Context, db *gorm.DB, m *ProviderMapping) (*ProviderMapping, bool, error)
}
