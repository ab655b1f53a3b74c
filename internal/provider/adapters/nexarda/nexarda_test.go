package nexarda

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/pricedex/pricedex/internal/config"
	"github.com/pricedex/pricedex/internal/provider/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type openLimiter struct{}

func (openLimiter) Acquire(ctx context.Context, providerKey string) error { return nil }

func newAdapter(t *testing.T, handler http.Handler) *Adapter {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(
		config.ProviderDef{Key: "nexarda", BaseURL: srv.URL},
		openLimiter{},
		config.EnrichmentConfig{RequestTimeout: time.Second},
		zap.NewNop(),
	)
}

func TestFetchExtractsStoreReferences(t *testing.T) {
	adapter := newAdapter(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/v3/prices", r.URL.Path)
		require.Equal(t, "game", r.URL.Query().Get("type"))
		require.Equal(t, "hl2", r.URL.Query().Get("id"))
		w.Write([]byte(`{"success":true,
			"info":{"name":"Half-Life 2","cover":"https://img/hl2.jpg"},
			"prices":{"list":[
				{"store":{"name":"Steam"},"item_id":"220","url":"https://store/220"},
				{"store":{"name":"PlayStation Store"},"item_id":"UP1234","url":"https://ps/UP1234"},
				{"store":{"name":"Broken"},"item_id":"","url":""},
				{"store":{"name":""},"item_id":"x","url":""}
			]}}`))
	}))

	result, err := adapter.Fetch(context.Background(),
		&domain.ProviderMapping{ExternalID: "hl2"},
		[]config.Region{{Code: "US", Currency: "USD"}})
	require.NoError(t, err)

	assert.Empty(t, result.Prices)
	require.Len(t, result.Media, 1)
	assert.Equal(t, "cover", result.Media[0].Kind)

	// Entries without a store name or item id never cascade.
	require.Len(t, result.StoreRefs, 2)
	assert.Equal(t, domain.StoreReference{StoreName: "Steam", ExternalID: "220"}, result.StoreRefs[0])
	assert.Equal(t, domain.StoreReference{StoreName: "PlayStation Store", ExternalID: "UP1234"}, result.StoreRefs[1])
}

func TestFetchUnknownGame(t *testing.T) {
	adapter := newAdapter(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success":false}`))
	}))

	_, err := adapter.Fetch(context.Background(),
		&domain.ProviderMapping{ExternalID: "missing"},
		[]config.Region{{Code: "US", Currency: "USD"}})
	assert.ErrorIs(t, err, domain.ErrNoRegionData)
}

func TestSearchReturnsFirstHit(t *testing.T) {
	adapter := newAdapter(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/v3/search", r.URL.Path)
		require.Equal(t, "games", r.URL.Query().Get("type"))
		require.Equal(t, "half-life", r.URL.Query().Get("q"))
		w.Write([]byte(`{"results":{"items":[{"id":1723,"title":"Half-Life 2"}]}}`))
	}))

	id, ok, err := adapter.Search(context.Background(), "half-life")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "1723", id)
}

func TestSearchNoResults(t *testing.T) {
	adapter := newAdapter(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"results":{"items":[]}}`))
	}))

	_, ok, err := adapter.Search(context.Background(), "nothing")
	require.NoError(t, err)
	assert.False(t, ok)
}
