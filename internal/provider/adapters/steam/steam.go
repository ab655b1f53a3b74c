package steam

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

const defaultBaseURL = "https://store.steampowered.com"

// Adapter fetches prices and media from the Steam storefront appdetails
// endpoint, one request per region.
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
		log:     log.Named("steam"),
	}
}

func (a *Adapter) Key() string { return "steam" }

type appDetailsResponse struct {
	Success bool `json:"success"`
	Data    struct {
		Name          string `json:"name"`
		HeaderImage   string `json:"header_image"`
		PriceOverview *struct {
			Currency string `json:"currency"`
			Final    int64  `json:"final"`
		} `json:"price_overview"`
		Screenshots []struct {
			PathFull string `json:"path_full"`
		} `json:"screenshots"`
	} `json:"data"`
}

func (a *Adapter) Fetch(ctx context.Context, mapping *domain.ProviderMapping, regions []config.Region) (*domain.Result, error) {
	return adapters.FanOutRegions(ctx, a.limiter, a.Key(), regions, a.timeout, a.log,
		func(ctx context.Context, region config.Region) (*domain.RegionOutcome, error) {
			return a.fetchRegion(ctx, mapping.ExternalID, region)
		})
}

func (a *Adapter) fetchRegion(ctx context.Context, appID string, region config.Region) (*domain.RegionOutcome, error) {
	endpoint := fmt.Sprintf("%s/api/appdetails?appids=%s&cc=%s&l=en",
		a.baseURL, url.QueryEscape(appID), strings.ToLower(region.Code))

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
		return nil, fmt.Errorf("steam appdetails status %d", resp.StatusCode)
	}

	// The response is keyed by app id.
	var payload map[string]appDetailsResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode appdetails: %w", err)
	}
	entry, ok := payload[appID]
	if !ok || !entry.Success {
		return nil, fmt.Errorf("steam app %s not available in %s: %w", appID, region.Code, domain.ErrNotListed)
	}

	outcome := &domain.RegionOutcome{
		Raw: map[string]any{"name": entry.Data.Name},
	}
	if entry.Data.PriceOverview != nil {
		outcome.Price = &domain.RegionPrice{
			RegionCode:  strings.ToUpper(region.Code),
			Currency:    strings.ToUpper(entry.Data.PriceOverview.Currency),
			AmountMinor: entry.Data.PriceOverview.Final,
			// Steam quotes tax-inclusive prices outside the US.
			TaxInclusive: !strings.EqualFold(region.Code, "US"),
		}
	}
	if entry.Data.HeaderImage != "" {
		outcome.Media = append(outcome.Media, domain.MediaItem{Kind: "cover", URL: entry.Data.HeaderImage})
	}
	for _, shot := range entry.Data.Screenshots {
		if shot.PathFull != "" {
			outcome.Media = append(outcome.Media, domain.MediaItem{Kind: "screenshot", URL: shot.PathFull})
		}
	}
	return outcome, nil
}

type storeSearchResponse struct {
	Items []struct {
		ID   json.Number `json:"id"`
		Name string      `json:"name"`
	} `json:"items"`
}

func (a *Adapter) Search(ctx context.Context, title string) (string, bool, error) {
	if err := a.limiter.Acquire(ctx, a.Key()); err != nil {
		return "", false, err
	}

	endpoint := fmt.Sprintf("%s/api/storesearch/?term=%s&cc=us&l=en",
		a.baseURL, url.QueryEscape(title))

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
		return "", false, fmt.Errorf("steam storesearch status %d", resp.StatusCode)
	}

	var payload storeSearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", false, fmt.Errorf("decode storesearch: %w", err)
	}
	if len(payload.Items) == 0 {
		return "", false, nil
	}
	return payload.Items[0].ID.String(), true, nil
}
