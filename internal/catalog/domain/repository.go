package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	FindGame(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Game, error)
	ListOfferJurisdictions(ctx context.Context, db *gorm.DB, gameID snowflake.ID) ([]OfferJurisdiction, error)
	FindOfferJurisdiction(ctx context.Context, db *gorm.DB, gameID snowflake.ID, regionCode, currency string) (*OfferJurisdiction, error)
	EnsureOfferJurisdiction(ctx context.Context, db *gorm.DB, oj *OfferJurisdiction) (*OfferJurisdiction, error)
}
