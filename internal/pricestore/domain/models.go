package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

var (
	ErrAmountNegative  = errors.New("price amount must not be negative")
	ErrCurrencyMissing = errors.New("price currency is required")
	ErrRegionMissing   = errors.New("price region is required")
)

// PriceEvent is one append-only price history row. Rows are never
// updated after insert.
type PriceEvent struct {
	ID                  snowflake.ID      `gorm:"column:id" json:"id"`
	OfferJurisdictionID snowflake.ID      `gorm:"column:offer_jurisdiction_id" json:"offer_jurisdiction_id"`
	ProviderMappingID   *snowflake.ID     `gorm:"column:provider_mapping_id" json:"provider_mapping_id,omitempty"`
	RecordedAt          time.Time         `gorm:"column:recorded_at" json:"recorded_at"`
	AmountMinor         int64             `gorm:"column:amount_minor" json:"amount_minor"`
	TaxInclusive        bool              `gorm:"column:tax_inclusive" json:"tax_inclusive"`
	Meta                datatypes.JSONMap `gorm:"column:meta" json:"meta,omitempty"`
}

// CurrentPrice is the latest-wins projection over PriceEvent, keyed by
// offer jurisdiction.
type CurrentPrice struct {
	OfferJurisdictionID snowflake.ID `gorm:"column:offer_jurisdiction_id;primaryKey" json:"offer_jurisdiction_id"`
	AmountMinor         int64        `gorm:"column:amount_minor" json:"amount_minor"`
	RecordedAt          time.Time    `gorm:"column:recorded_at" json:"recorded_at"`
	SourceProvider      string       `gorm:"column:source_provider" json:"source_provider"`
	UpdatedAt           time.Time    `gorm:"column:updated_at" json:"updated_at"`
}

func (CurrentPrice) TableName() string { return "current_price" }

// Observation is one provider price reading for a single region,
// validated before it reaches storage.
type Observation struct {
	RegionCode   string
	Currency     string
	AmountMinor  int64
	TaxInclusive bool
}

func (o Observation) Validate() error {
	if o.AmountMinor < 0 {
		return fmt.Errorf("%w: %d", ErrAmountNegative, o.AmountMinor)
	}
	if o.Currency == "" {
		return ErrCurrencyMissing
	}
	if o.RegionCode == "" {
		return ErrRegionMissing
	}
	return nil
}

// PartitionName returns the monthly history partition holding rows
// recorded at t, e.g. prices_y2026m08.
func PartitionName(t time.Time) string {
	t = t.UTC()
	return fmt.Sprintf("prices_y%04dm%02d", t.Year(), int(t.Month()))
}
