package repository

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	catalogdomain "github.com/pricedex/pricedex/internal/catalog/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// dbSeq keeps shared-cache databases apart across test invocations in
// the same process.
var dbSeq atomic.Int64

func setupCatalogRepo(t *testing.T) (catalogdomain.Repository, *gorm.DB, *snowflake.Node) {
	t.Helper()
	dsn := fmt.Sprintf("file:%s_%d?mode=memory&cache=shared", t.Name(), dbSeq.Add(1))
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	require.NoError(t, gdb.Exec(`CREATE TABLE games (
		id BIGINT PRIMARY KEY,
		title TEXT NOT NULL,
		platform TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`).Error)
	require.NoError(t, gdb.Exec(`CREATE TABLE offer_jurisdictions (
		id BIGINT PRIMARY KEY,
		game_id BIGINT NOT NULL,
		region_code TEXT NOT NULL,
		currency TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		UNIQUE (game_id, region_code, currency)
	)`).Error)

	node, err := snowflake.NewNode(3)
	require.NoError(t, err)
	return Provide(node), gdb, node
}

func TestFindGame(t *testing.T) {
	repo, gdb, node := setupCatalogRepo(t)
	ctx := context.Background()

	id := node.Generate()
	require.NoError(t, gdb.Exec(
		`INSERT INTO games (id, title, platform) VALUES (?, ?, ?)`, id, "Portal", "pc",
	).Error)

	game, err := repo.FindGame(ctx, gdb, id)
	require.NoError(t, err)
	require.NotNil(t, game)
	assert.Equal(t, "Portal", game.Title)

	missing, err := repo.FindGame(ctx, gdb, node.Generate())
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestEnsureOfferJurisdictionIdempotent(t *testing.T) {
	repo, gdb, node := setupCatalogRepo(t)
	ctx := context.Background()
	gameID := node.Generate()

	first, err := repo.EnsureOfferJurisdiction(ctx, gdb, &catalogdomain.OfferJurisdiction{
		GameID:     gameID,
		RegionCode: "us",
		Currency:   "usd",
	})
	require.NoError(t, err)
	assert.Equal(t, "US", first.RegionCode)
	assert.Equal(t, "USD", first.Currency)

	// A second ensure for the same key returns the existing row.
	second, err := repo.EnsureOfferJurisdiction(ctx, gdb, &catalogdomain.OfferJurisdiction{
		GameID:     gameID,
		RegionCode: "US",
		Currency:   "USD",
	})
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	other, err := repo.EnsureOfferJurisdiction(ctx, gdb, &catalogdomain.OfferJurisdiction{
		GameID:     gameID,
		RegionCode: "DE",
		Currency:   "EUR",
	})
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, other.ID)

	rows, err := repo.ListOfferJurisdictions(ctx, gdb, gameID)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "DE", rows[0].RegionCode)
	assert.Equal(t, "US", rows[1].RegionCode)
}

func TestFindOfferJurisdictionNormalizesLookup(t *testing.T) {
	repo, gdb, node := setupCatalogRepo(t)
	ctx := context.Background()
	gameID := node.Generate()

	_, err := repo.EnsureOfferJurisdiction(ctx, gdb, &catalogdomain.OfferJurisdiction{
		GameID:     gameID,
		RegionCode: "GB",
		Currency:   "GBP",
	})
	require.NoError(t, err)

	oj, err := repo.FindOfferJurisdiction(ctx, gdb, gameID, "gb", "gbp")
	require.NoError(t, err)
	require.NotNil(t, oj)
	assert.Equal(t, "GB", oj.RegionCode)

	none, err := repo.FindOfferJurisdiction(ctx, gdb, gameID, "JP", "JPY")
	require.NoError(t, err)
	assert.Nil(t, none)
}
