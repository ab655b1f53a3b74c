package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// GameMedia is one artwork asset attached to a game. The same URL can
// be reported by multiple fetches; (game_id, kind, url) is unique.
type GameMedia struct {
	ID             snowflake.ID `gorm:"column:id;primaryKey" json:"id"`
	GameID         snowflake.ID `gorm:"column:game_id" json:"game_id"`
	Kind           string       `gorm:"column:kind" json:"kind"`
	URL            string       `gorm:"column:url" json:"url"`
	SourceProvider string       `gorm:"column:source_provider" json:"source_provider"`
	CreatedAt      time.Time    `gorm:"column:created_at" json:"created_at"`
	UpdatedAt      time.Time    `gorm:"column:updated_at" json:"updated_at"`
}

func (GameMedia) TableName() string { return "game_media" }
