package adapters

import (
	"strings"

	"github.com/pricedex/pricedex/internal/provider/domain"
)

// Registry holds the closed set of provider adapters, selected by
// provider key at dispatch time.
type Registry struct {
	fetchers map[string]domain.Fetcher
}

func NewRegistry(fetchers ...domain.Fetcher) *Registry {
	registry := &Registry{fetchers: map[string]domain.Fetcher{}}
	for _, fetcher := range fetchers {
		if fetcher == nil {
			continue
		}
		key := strings.ToLower(strings.TrimSpace(fetcher.Key()))
		if key == "" {
			continue
		}
		registry.fetchers[key] = fetcher
	}
	return registry
}

func (r *Registry) Exists(key string) bool {
	if r == nil {
		return false
	}
	key = strings.ToLower(strings.TrimSpace(key))
	_, ok := r.fetchers[key]
	return ok
}

func (r *Registry) Fetcher(key string) (domain.Fetcher, error) {
	if r == nil {
		return nil, domain.ErrProviderNotFound
	}
	key = strings.ToLower(strings.TrimSpace(key))
	fetcher, ok := r.fetchers[key]
	if !ok {
		return nil, domain.ErrProviderNotFound
	}
	return fetcher, nil
}
