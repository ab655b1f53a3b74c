package domain

import (
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

// Game is a sellable catalog entity (one game on one platform). Rows are
// created by upstream catalog management; the enrichment core only reads
// them.
type Game struct {
	ID        snowflake.ID `json:"id" gorm:"primaryKey"`
	Title     string       `json:"title" gorm:"type:text;not null;index"`
	Platform  string       `json:"platform" gorm:"type:text;not null"`
	CreatedAt time.Time    `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time    `json:"updated_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (Game) TableName() string { return "games" }

// OfferJurisdiction is the (offer, jurisdiction, currency) key every price
// observation hangs off.
type OfferJurisdiction struct {
	ID         snowflake.ID `json:"id" gorm:"primaryKey"`
	GameID     snowflake.ID `json:"game_id" gorm:"column:game_id;not null;index"`
	RegionCode string       `json:"region_code" gorm:"type:text;not null"`
	Currency   string       `json:"currency" gorm:"type:text;not null"`
	CreatedAt  time.Time    `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt  time.Time    `json:"updated_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (OfferJurisdiction) TableName() string { return "offer_jurisdictions" }

var ErrGameNotFound = errors.New("game_not_found")
