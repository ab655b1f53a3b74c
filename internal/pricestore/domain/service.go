package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// RecordInput carries one provider fetch worth of price observations
// for a single game.
type RecordInput struct {
	GameID         snowflake.ID
	MappingID      *snowflake.ID
	SourceProvider string
	RecordedAt     time.Time
	Observations   []Observation
}

type Service interface {
	// PreparePartitions creates the history partition for recordedAt.
	// Call it before opening the write transaction so partition DDL
	// races cannot abort it.
	PreparePartitions(ctx context.Context, db *gorm.DB, recordedAt time.Time) error

	// RecordPrices appends one history event per valid observation and
	// advances the current-price projection, inside the caller's
	// transaction. Invalid observations are skipped individually.
	// It returns the number of observations written.
	RecordPrices(ctx context.Context, tx *gorm.DB, input RecordInput) (int, error)
}
