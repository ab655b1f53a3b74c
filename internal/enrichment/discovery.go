package enrichment

import (
	"context"

	"github.com/gosimple/slug"
	"github.com/pricedex/pricedex/internal/config"
	providerdomain "github.com/pricedex/pricedex/internal/provider/domain"
	"go.uber.org/zap"
)

// storeAliases maps slugified storefront names, as catalogs report
// them, to canonical provider keys.
var storeAliases = map[string]string{
	"steam":                  "steam",
	"steam-store":            "steam",
	"playstation":            "psstore",
	"playstation-store":      "psstore",
	"ps-store":               "psstore",
	"psn":                    "psstore",
	"playstation-network":    "psstore",
	"sony-playstation-store": "psstore",
}

func canonicalStoreKey(storeName string) (string, bool) {
	key, ok := storeAliases[slug.Make(storeName)]
	return key, ok
}

// discoverStores turns storefront references found in a catalog
// response into new mappings and cascaded fetch tasks. Only mappings
// this call actually created cascade; references to already-known or
// unrecognized storefronts are no-ops.
func (o *Orchestrator) discoverStores(ctx context.Context, task Task, refs []providerdomain.StoreReference) {
	seen := map[string]struct{}{}
	for _, ref := range refs {
		key, ok := canonicalStoreKey(ref.StoreName)
		if !ok {
			o.log.Debug("unrecognized storefront", zap.String("store", ref.StoreName))
			continue
		}
		if key == task.ProviderKey || ref.ExternalID == "" {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}

		def, found := o.providers.Find(key)
		if !found || def.Kind != config.KindStorefront {
			continue
		}

		mapping, created, err := o.mappings.CreateMappingIfAbsent(ctx, o.db, &providerdomain.ProviderMapping{
			GameID:      task.GameID,
			ProviderKey: key,
			ExternalID:  ref.ExternalID,
			Origin:      providerdomain.OriginDiscovery,
		})
		if err != nil {
			o.log.Warn("discovery mapping failed",
				zap.String("provider", key),
				zap.Int64("game_id", int64(task.GameID)),
				zap.Error(err),
			)
			continue
		}
		if !created {
			continue
		}

		o.metrics.IncCascade(key)
		o.log.Info("discovered storefront",
			zap.String("provider", key),
			zap.String("external_id", mapping.ExternalID),
			zap.Int64("game_id", int64(task.GameID)),
		)
		o.dispatcher.Submit(Task{
			Kind:        TaskFetch,
			ProviderKey: key,
			GameID:      task.GameID,
			Title:       task.Title,
			Mapping:     mapping,
		})
	}
}
