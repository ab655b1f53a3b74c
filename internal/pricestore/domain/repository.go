package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	// EnsurePartition creates the monthly history partition covering t if
	// it does not already exist. Safe to call concurrently and repeatedly.
	EnsurePartition(ctx context.Context, db *gorm.DB, t time.Time) error

	// InsertEvent appends one history row. The target partition must
	// already exist.
	InsertEvent(ctx context.Context, db *gorm.DB, event *PriceEvent) error

	// UpsertCurrent advances the current-price projection. A row whose
	// recorded_at is older than the stored one leaves the projection
	// untouched; an equal timestamp overwrites.
	UpsertCurrent(ctx context.Context, db *gorm.DB, current *CurrentPrice) error

	FindCurrent(ctx context.Context, db *gorm.DB, offerJurisdictionID snowflake.ID) (*CurrentPrice, error)
	ListEvents(ctx context.Context, db *gorm.DB, offerJurisdictionID snowflake.ID, from, to time.Time) ([]PriceEvent, error)
}
