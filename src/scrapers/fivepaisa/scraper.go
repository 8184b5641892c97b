package fivepaisa

import (
	"context"
	"errors"
	"fmt"
	"net/http/cookiejar"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
	"github.com/svacron/metals/backend/src/models"
	"github.com/svacron/metals/backend/src/processors"
	"golang.org/x/net/publicsuffix"
)

const SourceName = "fivepaisa"

var metalPaths = map[models.MetalKind]string{
	models.Gold:     "/commodity-trading/gold-rate-today",
	models.Silver:   "/commodity-trading/silver-rate-today",
	models.Platinum: "/commodity-trading/platinum",
}

// Quote units on the site: gold and platinum pages show per 10 grams,
// the silver page shows per gram.
var metalUnits = map[models.MetalKind]processors.PriceUnit{
	models.Gold:     processors.UnitTenGram,
	models.Silver:   processors.UnitGram,
	models.Platinum: processors.UnitTenGram,
}

var priceDigits = regexp.MustCompile(`\d+\.?\d*`)

// ErrPriceNotFound means the page fetched fine but the expected price
// element was missing, usually because the site layout changed.
var ErrPriceNotFound = errors.New("price not found in page")

// Scraper extracts live retail prices from the 5paisa commodity pages.
type Scraper struct {
	client  *resty.Client
	baseURL string
}

func New(baseURL string, timeout time.Duration) *Scraper {
	client := resty.New().
		SetTimeout(timeout).
		SetHeader("User-Agent", "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36").
		SetHeader("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8").
		SetHeader("Accept-Language", "en-US,en;q=0.9")

	// The site sets session cookies on first hit; a jar keeps follow-up
	// requests from being bounced to an interstitial.
	if jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List}); err == nil {
		client.SetCookieJar(jar)
	}

	return &Scraper{client: client, baseURL: strings.TrimRight(baseURL, "/")}
}

func (s *Scraper) Name() string { return SourceName }

func (s *Scraper) FetchObservation(ctx context.Context, metal models.MetalKind) (decimal.Decimal, error) {
	path, ok := metalPaths[metal]
	if !ok {
		return decimal.Zero, fmt.Errorf("no 5paisa page for metal %q", metal)
	}

	resp, err := s.client.R().SetContext(ctx).Get(s.baseURL + path)
	if err != nil {
		return decimal.Zero, fmt.Errorf("fetching %s page: %w", metal, err)
	}
	if resp.StatusCode() != 200 {
		return decimal.Zero, fmt.Errorf("fetching %s page: HTTP %d", metal, resp.StatusCode())
	}

	quoted, err := extractPrice(resp.String(), metal)
	if err != nil {
		return decimal.Zero, err
	}
	return processors.ToPerGram(quoted, metalUnits[metal])
}

// extractPrice pulls the quoted price out of a 5paisa commodity page. The
// gold page renders it as `.gold__value strong`; the silver and platinum
// pages use `.gold-price-page__value`.
func extractPrice(html string, metal models.MetalKind) (decimal.Decimal, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return decimal.Zero, fmt.Errorf("parsing %s page: %w", metal, err)
	}

	selector := ".gold-price-page__value"
	if metal == models.Gold {
		selector = ".gold__value strong"
	}

	text := strings.TrimSpace(doc.Find(selector).First().Text())
	if text == "" {
		return decimal.Zero, fmt.Errorf("%s page: %w", metal, ErrPriceNotFound)
	}

	cleaned := strings.NewReplacer("₹", "", ",", "", " ", "").Replace(text)
	match := priceDigits.FindString(cleaned)
	if match == "" {
		return decimal.Zero, fmt.Errorf("%s page: cannot parse price from %q", metal, text)
	}

	price, err := decimal.NewFromString(match)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%s page: invalid price %q: %w", metal, match, err)
	}
	return price, nil
}
