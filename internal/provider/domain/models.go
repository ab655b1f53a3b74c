package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/pricedex/pricedex/internal/config"
	"gorm.io/datatypes"
)

// MappingOrigin records how a mapping came to exist.
type MappingOrigin string

const (
	OriginConfig    MappingOrigin = "config"
	OriginSearch    MappingOrigin = "search"
	OriginDiscovery MappingOrigin = "discovery"
)

// ProviderMapping relates one game to its external identifier at one
// provider. At most one row exists per (game, provider); the first
// successful creation wins.
type ProviderMapping struct {
	ID          snowflake.ID      `json:"id" gorm:"primaryKey"`
	GameID      snowflake.ID      `json:"game_id" gorm:"column:game_id;not null;uniqueIndex:idx_game_provider"`
	ProviderKey string            `json:"provider_key" gorm:"type:text;not null;uniqueIndex:idx_game_provider"`
	ExternalID  string            `json:"external_id" gorm:"type:text;not null"`
	RawPayload  datatypes.JSONMap `json:"raw_payload,omitempty" gorm:"type:jsonb"`
	Origin      MappingOrigin     `json:"origin" gorm:"type:text;not null"`
	CreatedAt   time.Time         `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt   time.Time         `json:"updated_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (ProviderMapping) TableName() string { return "provider_mappings" }

// RegionPrice is one extracted price observation for one region.
type RegionPrice struct {
	RegionCode   string
	Currency     string
	AmountMinor  int64
	TaxInclusive bool
}

// MediaItem is one extracted media reference. Media does not vary by
// region, so a fetch yields it at most once.
type MediaItem struct {
	Kind string
	URL  string
}

// StoreReference is a storefront link found inside a catalog response,
// the raw material for cascading discovery.
type StoreReference struct {
	StoreName  string
	ExternalID string
}

// RegionOutcome is what one region's round trip produced after extraction.
type RegionOutcome struct {
	Price     *RegionPrice
	Media     []MediaItem
	StoreRefs []StoreReference
	Raw       map[string]any
}

// Result is what one provider fetch produced after extraction.
type Result struct {
	Prices     []RegionPrice
	Media      []MediaItem
	StoreRefs  []StoreReference
	RawPayload map[string]any
}

// Fetcher is the capability interface every provider adapter implements.
// Fetch issues the network round trips for one mapping across the given
// regions; Search resolves a title to an external id when no mapping
// exists yet.
type Fetcher interface {
	Key() string
	Fetch(ctx context.Context, mapping *ProviderMapping, regions []config.Region) (*Result, error)
	Search(ctx context.Context, title string) (externalID string, ok bool, err error)
}

var (
	ErrProviderNotFound = errors.New("provider_not_found")
	ErrMappingNotFound  = errors.New("mapping_not_found")
	ErrNoRegionData     = errors.New("no_region_data")

	// ErrNotListed marks a region call that reached the provider but found
	// the item not sold there. Unlike a transport failure it is not worth
	// retrying.
	ErrNotListed = errors.New("not_listed")
)
