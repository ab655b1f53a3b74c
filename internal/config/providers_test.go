package config

import (
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStaticRegistryFind(t *testing.T) {
	registry := NewStaticProviderRegistry([]ProviderDef{
		{Key: "steam", Kind: KindStorefront, Rate: 1, Burst: 2},
		{Key: "nexarda", Kind: KindCatalog, Rate: 2, Burst: 4},
	})

	def, ok := registry.Find("steam")
	require.True(t, ok)
	assert.Equal(t, KindStorefront, def.Kind)

	def, ok = registry.Find("  Steam ")
	require.True(t, ok, "lookup must normalize case and whitespace")
	assert.Equal(t, "steam", def.Key)

	_, ok = registry.Find("gog")
	assert.False(t, ok)
}

func TestStaticRegistryKindSubsets(t *testing.T) {
	registry := NewStaticProviderRegistry([]ProviderDef{
		{Key: "steam", Kind: KindStorefront, Rate: 1, Burst: 2},
		{Key: "nexarda", Kind: KindCatalog, Rate: 2, Burst: 4},
		{Key: "psstore", Kind: KindStorefront, Rate: 1, Burst: 2},
	})

	fronts := registry.Storefronts()
	require.Len(t, fronts, 2)
	assert.Equal(t, "steam", fronts[0].Key)
	assert.Equal(t, "psstore", fronts[1].Key)

	cats := registry.Catalogs()
	require.Len(t, cats, 1)
	assert.Equal(t, "nexarda", cats[0].Key)
}

func TestDefaultProvidersAreValid(t *testing.T) {
	defs := defaultProviders()
	require.NotEmpty(t, defs)
	for _, def := range defs {
		assert.NoError(t, validateProvider(def), def.Key)
		assert.NotEmpty(t, def.Regions, def.Key)
	}

	registry := NewStaticProviderRegistry(defs)
	_, ok := registry.Find("steam")
	assert.True(t, ok)
	_, ok = registry.Find("nexarda")
	assert.True(t, ok)
}

func TestUnmarshalProvidersValidation(t *testing.T) {
	cases := []struct {
		name string
		def  map[string]any
	}{
		{"missing key", map[string]any{"kind": "storefront", "rate": 1.0, "burst": 2}},
		{"bad kind", map[string]any{"key": "steam", "kind": "marketplace", "rate": 1.0, "burst": 2}},
		{"zero rate", map[string]any{"key": "steam", "kind": "storefront", "rate": 0.0, "burst": 2}},
		{"zero burst", map[string]any{"key": "steam", "kind": "storefront", "rate": 1.0, "burst": 0}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			v := viper.New()
			v.Set("providers", []map[string]any{tc.def})
			_, err := unmarshalProviders(v)
			assert.Error(t, err)
		})
	}
}

func TestUnmarshalProvidersNormalizesKeys(t *testing.T) {
	v := viper.New()
	v.Set("providers", []map[string]any{
		{"key": "  STEAM ", "kind": "storefront", "rate": 1.0, "burst": 2},
	})

	defs, err := unmarshalProviders(v)
	require.NoError(t, err)
	require.Len(t, defs, 1)
	assert.Equal(t, "steam", defs[0].Key)
}

func TestUnmarshalProvidersEmptyFallsBack(t *testing.T) {
	defs, err := unmarshalProviders(viper.New())
	require.NoError(t, err)
	assert.Equal(t, defaultProviders(), defs)
}
