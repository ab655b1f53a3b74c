package nexarda

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pricedex/pricedex/internal/config"
	"github.com/pricedex/pricedex/internal/provider/adapters"
	"github.com/pricedex/pricedex/internal/provider/domain"
	"github.com/pricedex/pricedex/internal/ratelimit"
	"go.uber.org/zap"
)

const defaultBaseURL = "https://www.nexarda.com"

// Adapter fetches game metadata from the NEXARDA price comparison
// catalog. Its responses list the storefronts a game is sold on, which
// feeds cascading discovery.
type Adapter struct {
	baseURL string
	client  *http.Client
	limiter ratelimit.Limiter
	timeout time.Duration
	log     *zap.Logger
}

func New(def config.ProviderDef, limiter ratelimit.Limiter, enrichCfg config.EnrichmentConfig, log *zap.Logger) *Adapter {
	baseURL := strings.TrimRight(def.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Adapter{
		baseURL: baseURL,
		client:  &http.Client{},
		limiter: limiter,
		timeout: enrichCfg.RequestTimeout,
		log:     log.Named("nexarda"),
	}
}

func (a *Adapter) Key() string { return "nexarda" }

type pricesResponse struct {
	Success bool `json:"success"`
	Info    struct {
		Name  string `json:"name"`
		Cover string `json:"cover"`
	} `json:"info"`
	Prices struct {
		List []struct {
			Store struct {
				Name string `json:"name"`
			} `json:"store"`
			ItemID string `json:"item_id"`
			URL    string `json:"url"`
		} `json:"list"`
	} `json:"prices"`
}

func (a *Adapter) Fetch(ctx context.Context, mapping *domain.ProviderMapping, regions []config.Region) (*domain.Result, error) {
	// Catalog responses do not vary by region; the registry configures a
	// single region for this provider.
	return adapters.FanOutRegions(ctx, a.limiter, a.Key(), regions, a.timeout, a.log,
		func(ctx context.Context, region config.Region) (*domain.RegionOutcome, error) {
			return a.fetchOnce(ctx, mapping.ExternalID)
		})
}

func (a *Adapter) fetchOnce(ctx context.Context, gameID string) (*domain.RegionOutcome, error) {
	endpoint := fmt.Sprintf("%s/api/v3/prices?type=game&id=%s", a.baseURL, url.QueryEscape(gameID))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	resp, err := a.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("nexarda prices status %d", resp.StatusCode)
	}

	var payload pricesResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode prices: %w", err)
	}
	if !payload.Success {
		return nil, fmt.Errorf("nexarda game %s: %w", gameID, domain.ErrNotListed)
	}

	outcome := &domain.RegionOutcome{
		Raw: map[string]any{"name": payload.Info.Name},
	}
	if payload.Info.Cover != "" {
		outcome.Media = append(outcome.Media, domain.MediaItem{Kind: "cover", URL: payload.Info.Cover})
	}
	for _, offer := range payload.Prices.List {
		if offer.Store.Name == "" || offer.ItemID == "" {
			continue
		}
		outcome.StoreRefs = append(outcome.StoreRefs, domain.StoreReference{
			StoreName:  offer.Store.Name,
			ExternalID: offer.ItemID,
		})
	}
	return outcome, nil
}

type searchResponse struct {
	Results struct {
		Items []struct {
			ID   json.Number `json:"id"`
			Name string      `json:"title"`
		} `json:"items"`
	} `json:"results"`
}

func (a *Adapter) Search(ctx context.Context, title string) (string, bool, error) {
	if err := a.limiter.Acquire(ctx, a.Key()); err != nil {
		return "", false, err
	}

	endpoint := fmt.Sprintf("%s/api/v3/search?type=games&q=%s", a.baseURL, url.QueryEscape(title))

	callCtx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(callCtx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", false, err
	}
	resp, err := a.client.Do(req)
	if err != nil {
		return "", false, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", false, fmt.Errorf("nexarda search status %d", resp.StatusCode)
	}

	var payload searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", false, fmt.Errorf("decode search: %w", err)
	}
	if len(payload.Results.Items) == 0 {
		return "", false, nil
	}
	return payload.Results.Items[0].ID.String(), true, nil
}
