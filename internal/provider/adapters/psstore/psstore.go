package psstore

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

const defaultBaseURL = "https://store.playstation.com"

// Adapter fetches prices and media from the PlayStation Store container
// API, one request per region storefront.
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
		log:     log.Named("psstore"),
	}
}

func (a *Adapter) Key() string { return "psstore" }

type containerResponse struct {
	Name       string `json:"name"`
	DefaultSku *struct {
		Price int64 `json:"price"`
	} `json:"default_sku"`
	Images []struct {
		Type int    `json:"type"`
		URL  string `json:"url"`
	} `json:"images"`
}

func (a *Adapter) Fetch(ctx context.Context, mapping *domain.ProviderMapping, regions []config.Region) (*domain.Result, error) {
	return adapters.FanOutRegions(ctx, a.limiter, a.Key(), regions, a.timeout, a.log,
		func(ctx context.Context, region config.Region) (*domain.RegionOutcome, error) {
			return a.fetchRegion(ctx, mapping.ExternalID, region)
		})
}

func (a *Adapter) fetchRegion(ctx context.Context, productID string, region config.Region) (*domain.RegionOutcome, error) {
	endpoint := fmt.Sprintf("%s/store/api/chihiro/00_09_000/container/%s/en/999/%s",
		a.baseURL, strings.ToUpper(region.Code), url.PathEscape(productID))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	resp, err := a.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("psstore product %s in %s: %w", productID, region.Code, domain.ErrNotListed)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("psstore container status %d", resp.StatusCode)
	}

	var payload containerResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode container: %w", err)
	}

	outcome := &domain.RegionOutcome{
		Raw: map[string]any{"name": payload.Name},
	}
	if payload.DefaultSku != nil {
		// Container prices are quoted in minor units, tax inclusive.
		outcome.Price = &domain.RegionPrice{
			RegionCode:   strings.ToUpper(region.Code),
			Currency:     strings.ToUpper(region.Currency),
			AmountMinor:  payload.DefaultSku.Price,
			TaxInclusive: true,
		}
	}
	for _, img := range payload.Images {
		if img.URL == "" {
			continue
		}
		kind := "screenshot"
		if img.Type == 1 {
			kind = "cover"
		}
		outcome.Media = append(outcome.Media, domain.MediaItem{Kind: kind, URL: img.URL})
	}
	return outcome, nil
}

type containerSearchResponse struct {
	Links []struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"links"`
}

func (a *Adapter) Search(ctx context.Context, title string) (string, bool, error) {
	if err := a.limiter.Acquire(ctx, a.Key()); err != nil {
		return "", false, err
	}

	endpoint := fmt.Sprintf("%s/store/api/chihiro/00_09_000/tumbler/US/en/999/%s",
		a.baseURL, url.PathEscape(title))

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
		return "", false, fmt.Errorf("psstore search status %d", resp.StatusCode)
	}

	var payload containerSearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", false, fmt.Errorf("decode search: %w", err)
	}
	if len(payload.Links) == 0 {
		return "", false, nil
	}
	return payload.Links[0].ID, true, nil
}
