package repository

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	providerdomain "github.com/pricedex/pricedex/internal/provider/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// dbSeq keeps shared-cache databases apart across test invocations in
// the same process.
var dbSeq atomic.Int64

func setupMappingDB(t *testing.T) (*gorm.DB, *snowflake.Node) {
	t.Helper()
	dsn := fmt.Sprintf("file:%s_%d?mode=memory&cache=shared", t.Name(), dbSeq.Add(1))
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	require.NoError(t, gdb.Exec(`CREATE TABLE provider_mappings (
		id BIGINT PRIMARY KEY,
		game_id BIGINT NOT NULL,
		provider_key TEXT NOT NULL,
		external_id TEXT NOT NULL,
		raw_payload TEXT,
		origin TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		UNIQUE (game_id, provider_key)
	)`).Error)

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	return gdb, node
}

func TestCreateMappingIfAbsentIsIdempotent(t *testing.T) {
	gdb, node := setupMappingDB(t)
	repo := Provide(node)
	ctx := context.Background()
	gameID := node.Generate()

	first, created, err := repo.CreateMappingIfAbsent(ctx, gdb, &providerdomain.ProviderMapping{
		GameID:      gameID,
		ProviderKey: "steam",
		ExternalID:  "440",
		Origin:      providerdomain.OriginConfig,
	})
	require.NoError(t, err)
	assert.True(t, created)
	require.NotNil(t, first)

	second, created2, err := repo.CreateMappingIfAbsent(ctx, gdb, &providerdomain.ProviderMapping{
		GameID:      gameID,
		ProviderKey: "steam",
		ExternalID:  "9999",
		Origin:      providerdomain.OriginDiscovery,
	})
	require.NoError(t, err)
	assert.False(t, created2, "second creation must be a no-op")
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "440", second.ExternalID, "first successful creation wins")

	var count int64
	require.NoError(t, gdb.Raw(
		`SELECT COUNT(*) FROM provider_mappings WHERE game_id = ? AND provider_key = ?`,
		gameID, "steam",
	).Scan(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestCreateMappingNormalizesProviderKey(t *testing.T) {
	gdb, node := setupMappingDB(t)
	repo := Provide(node)
	ctx := context.Background()
	gameID := node.Generate()

	_, created, err := repo.CreateMappingIfAbsent(ctx, gdb, &providerdomain.ProviderMapping{
		GameID:      gameID,
		ProviderKey: "  Steam ",
		ExternalID:  "440",
		Origin:      providerdomain.OriginSearch,
	})
	require.NoError(t, err)
	require.True(t, created)

	found, err := repo.FindMapping(ctx, gdb, gameID, "steam")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "steam", found.ProviderKey)
}

func TestCreateMappingRejectsEmptyFields(t *testing.T) {
	gdb, node := setupMappingDB(t)
	repo := Provide(node)
	ctx := context.Background()

	_, _, err := repo.CreateMappingIfAbsent(ctx, gdb, &providerdomain.ProviderMapping{
		GameID:      node.Generate(),
		ProviderKey: "steam",
		ExternalID:  "  ",
		Origin:      providerdomain.OriginConfig,
	})
	assert.Error(t, err)
}

func TestListMappings(t *testing.T) {
	gdb, node := setupMappingDB(t)
	repo := Provide(node)
	ctx := context.Background()
	gameID := node.Generate()

	for _, key := range []string{"steam", "psstore", "nexarda"} {
		_, _, err := repo.CreateMappingIfAbsent(ctx, gdb, &providerdomain.ProviderMapping{
			GameID:      gameID,
			ProviderKey: key,
			ExternalID:  "ext-" + key,
			Origin:      providerdomain.OriginConfig,
		})
		require.NoError(t, err)
	}

	// A mapping for a different game must not leak into the list.
	_, _, err := repo.CreateMappingIfAbsent(ctx, gdb, &providerdomain.ProviderMapping{
		GameID:      node.Generate(),
		ProviderKey: "steam",
		ExternalID:  "other",
		Origin:      providerdomain.OriginConfig,
	})
	require.NoError(t, err)

	mappings, err := repo.ListMappings(ctx, gdb, gameID)
	require.NoError(t, err)
	require.Len(t, mappings, 3)
	assert.Equal(t, "nexarda", mappings[0].ProviderKey)
	assert.Equal(t, "psstore", mappings[1].ProviderKey)
	assert.Equal(t, "steam", mappings[2].ProviderKey)
}
