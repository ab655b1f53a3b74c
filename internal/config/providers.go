package config

import (
	"errors"
	"log"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// ProviderKind distinguishes storefronts (sell the game, have prices)
// from catalogs (metadata sources that may link out to storefronts).
type ProviderKind string

const (
	KindStorefront ProviderKind = "storefront"
	KindCatalog    ProviderKind = "catalog"
)

// Region pairs a country code with the currency prices are quoted in there.
type Region struct {
	Code     string `mapstructure:"code"`
	Currency string `mapstructure:"currency"`
}

// ProviderDef describes one external data source and its budget.
type ProviderDef struct {
	Key        string       `mapstructure:"key"`
	Kind       ProviderKind `mapstructure:"kind"`
	Rate       float64      `mapstructure:"rate"`
	Burst      int          `mapstructure:"burst"`
	MaxRetries int          `mapstructure:"max_retries"`
	BaseURL    string       `mapstructure:"base_url"`
	Regions    []Region     `mapstructure:"regions"`
}

type providersFile struct {
	Providers []ProviderDef `mapstructure:"providers"`
}

func defaultProviders() []ProviderDef {
	regions := []Region{
		{Code: "US", Currency: "USD"},
		{Code: "GB", Currency: "GBP"},
		{Code: "DE", Currency: "EUR"},
	}
	return []ProviderDef{
		{Key: "steam", Kind: KindStorefront, Rate: 0.5, Burst: 4, MaxRetries: 3, Regions: regions},
		{Key: "psstore", Kind: KindStorefront, Rate: 1, Burst: 4, MaxRetries: 3, Regions: regions},
		{Key: "nexarda", Kind: KindCatalog, Rate: 2, Burst: 8, MaxRetries: 2, Regions: regions[:1]},
	}
}

// ProviderRegistry holds the active provider set, hot reloaded from
// providers.yml when the file changes.
type ProviderRegistry struct {
	current atomic.Value // holds []ProviderDef
}

// NewProviderRegistry reads providers.yml (search paths: mounted config,
// /etc/pricedex, cwd) and watches it for changes. Missing file falls back
// to the built-in provider set.
func NewProviderRegistry() (*ProviderRegistry, error) {
	v := viper.New()

	v.SetConfigName("providers")
	v.SetConfigType("yml")
	v.AddConfigPath("/var/lib/pricedex/config")
	v.AddConfigPath("/etc/pricedex")
	v.AddConfigPath(".")

	v.SetEnvPrefix("PRICEDEX")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	registry := &ProviderRegistry{}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		registry.current.Store(defaultProviders())
		return registry, nil
	}

	defs, err := unmarshalProviders(v)
	if err != nil {
		return nil, err
	}
	registry.current.Store(defs)

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		updated, err := unmarshalProviders(v)
		if err != nil {
			log.Printf("[providers-config] reload failed: %v", err)
			return
		}
		registry.current.Store(updated)
		log.Printf("[providers-config] reloaded %d providers from %s", len(updated), e.Name)
	})

	return registry, nil
}

// NewStaticProviderRegistry wraps a fixed provider set, used in tests.
func NewStaticProviderRegistry(defs []ProviderDef) *ProviderRegistry {
	registry := &ProviderRegistry{}
	registry.current.Store(defs)
	return registry
}

func unmarshalProviders(v *viper.Viper) ([]ProviderDef, error) {
	var file providersFile
	if err := v.Unmarshal(&file); err != nil {
		return nil, err
	}
	if len(file.Providers) == 0 {
		return defaultProviders(), nil
	}
	for i := range file.Providers {
		if err := validateProvider(file.Providers[i]); err != nil {
			return nil, err
		}
		file.Providers[i].Key = strings.ToLower(strings.TrimSpace(file.Providers[i].Key))
	}
	return file.Providers, nil
}

func validateProvider(def ProviderDef) error {
	if strings.TrimSpace(def.Key) == "" {
		return errors.New("provider key is required")
	}
	if def.Kind != KindStorefront && def.Kind != KindCatalog {
		return errors.New("provider kind must be storefront or catalog")
	}
	if def.Rate <= 0 || def.Burst <= 0 {
		return errors.New("provider rate and burst must be positive")
	}
	return nil
}

// All returns the active provider definitions.
func (r *ProviderRegistry) All() []ProviderDef {
	defs, _ := r.current.Load().([]ProviderDef)
	return defs
}

// Find returns the definition for the given key, if configured.
func (r *ProviderRegistry) Find(key string) (ProviderDef, bool) {
	key = strings.ToLower(strings.TrimSpace(key))
	for _, def := range r.All() {
		if def.Key == key {
			return def, true
		}
	}
	return ProviderDef{}, false
}

// Storefronts returns the storefront subset in configured order.
func (r *ProviderRegistry) Storefronts() []ProviderDef {
	var out []ProviderDef
	for _, def := range r.All() {
		if def.Kind == KindStorefront {
			out = append(out, def)
		}
	}
	return out
}

// Catalogs returns the catalog subset in configured order.
func (r *ProviderRegistry) Catalogs() []ProviderDef {
	var out []ProviderDef
	for _, def := range r.All() {
		if def.Kind == KindCatalog {
			out = append(out, def)
		}
	}
	return out
}
