package apininjas

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
	"github.com/svacron/metals/backend/src/models"
	"github.com/svacron/metals/backend/src/processors"
)

const SourceName = "apininjas"

// ErrNoAPIKey means no API Ninjas key is configured, neither in the
// environment nor through the admin dashboard.
var ErrNoAPIKey = errors.New("API Ninjas key not configured")

type commodityResponse struct {
	Exchange string  `json:"exchange"`
	Name     string  `json:"name"`
	Price    float64 `json:"price"`
	Updated  int64   `json:"updated"`
}

// Scraper fetches commodity prices from the API Ninjas commodity endpoint.
// Quotes are USD per troy ounce; gold and silver need a premium subscription,
// so with a free-tier key only platinum succeeds — the orchestrator treats
// that as partial success.
type Scraper struct {
	client   *resty.Client
	baseURL  string
	apiKey   func(ctx context.Context) string
	usdToINR func(ctx context.Context) decimal.Decimal
}

func New(baseURL string, timeout time.Duration, apiKey func(ctx context.Context) string, usdToINR func(ctx context.Context) decimal.Decimal) *Scraper {
	client := resty.New().
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json")
	return &Scraper{client: client, baseURL: baseURL, apiKey: apiKey, usdToINR: usdToINR}
}

func (s *Scraper) Name() string { return SourceName }

func (s *Scraper) FetchObservation(ctx context.Context, metal models.MetalKind) (decimal.Decimal, error) {
	key := s.apiKey(ctx)
	if key == "" {
		return decimal.Zero, ErrNoAPIKey
	}

	var body commodityResponse
	resp, err := s.client.R().
		SetContext(ctx).
		SetHeader("X-Api-Key", key).
		SetQueryParam("name", string(metal)).
		SetResult(&body).
		Get(s.baseURL)
	if err != nil {
		return decimal.Zero, fmt.Errorf("fetching %s from API Ninjas: %w", metal, err)
	}
	if resp.StatusCode() != 200 {
		return decimal.Zero, fmt.Errorf("API Ninjas returned HTTP %d for %s: %s", resp.StatusCode(), metal, resp.String())
	}
	if body.Price <= 0 {
		return decimal.Zero, fmt.Errorf("API Ninjas returned non-positive price %v for %s", body.Price, metal)
	}

	usdPerGram, err := processors.ToPerGram(decimal.NewFromFloat(body.Price), processors.UnitTroyOunce)
	if err != nil {
		return decimal.Zero, err
	}
	return processors.ConvertUSDToINR(usdPerGram, s.usdToINR(ctx)), nil
}
