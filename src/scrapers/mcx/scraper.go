package mcx

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
	"github.com/svacron/metals/backend/src/models"
	"github.com/svacron/metals/backend/src/processors"
)

const SourceName = "mcx"

// ErrUnsupportedMetal: MCX spot data carries gold and silver only.
var ErrUnsupportedMetal = errors.New("metal not available in MCX spot data")

// ErrPriceNotFound means the spot table was fetched but no matching
// commodity row had a usable price.
var ErrPriceNotFound = errors.New("commodity not found in MCX spot table")

// Commodity name variants seen in the spot table, per metal.
var commodityNames = map[models.MetalKind][]string{
	models.Gold:   {"GOLD", "GOLD STANDARD", "GOLD 999", "GOLD (999)"},
	models.Silver: {"SILVER", "SILVER 999", "SILVER (999)", "SILVER STANDARD"},
}

// Scraper reads the MCX India spot market price table. Only the first page
// is available without an ASP.NET form postback, which is enough: gold and
// silver rows appear on page one.
type Scraper struct {
	client  *resty.Client
	spotURL string
}

func New(spotURL string, timeout time.Duration) *Scraper {
	client := resty.New().
		SetTimeout(timeout).
		SetHeader("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36").
		SetHeader("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8").
		SetHeader("Accept-Language", "en-US,en;q=0.9")
	return &Scraper{client: client, spotURL: spotURL}
}

func (s *Scraper) Name() string { return SourceName }

func (s *Scraper) FetchObservation(ctx context.Context, metal models.MetalKind) (decimal.Decimal, error) {
	names, ok := commodityNames[metal]
	if !ok {
		return decimal.Zero, fmt.Errorf("%s: %w", metal, ErrUnsupportedMetal)
	}

	resp, err := s.client.R().SetContext(ctx).Get(s.spotURL)
	if err != nil {
		return decimal.Zero, fmt.Errorf("fetching MCX spot page: %w", err)
	}
	if resp.StatusCode() != 200 {
		return decimal.Zero, fmt.Errorf("fetching MCX spot page: HTTP %d", resp.StatusCode())
	}

	return findCommodityPrice(resp.String(), names)
}

// findCommodityPrice walks the spot table rows (commodity, unit, location,
// spot price) and returns the first matching commodity's price converted to
// per gram.
func findCommodityPrice(html string, names []string) (decimal.Decimal, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return decimal.Zero, fmt.Errorf("parsing MCX spot page: %w", err)
	}

	var price decimal.Decimal
	found := false
	doc.Find("table tbody tr").EachWithBreak(func(_ int, row *goquery.Selection) bool {
		cells := row.Find("td")
		if cells.Length() < 4 {
			return true
		}

		commodity := strings.ToUpper(strings.TrimSpace(cells.Eq(0).Text()))
		unit := strings.ToUpper(strings.TrimSpace(cells.Eq(1).Text()))
		spotText := strings.NewReplacer(",", "", "Rs.", "", "₹", "").Replace(strings.TrimSpace(cells.Eq(3).Text()))

		matches := false
		for _, name := range names {
			if strings.Contains(commodity, name) {
				matches = true
				break
			}
		}
		if !matches {
			return true
		}

		spot, err := decimal.NewFromString(strings.TrimSpace(spotText))
		if err != nil || !spot.IsPositive() {
			return true
		}

		perGram, err := processors.ToPerGram(spot, unitFromLabel(unit))
		if err != nil {
			return true
		}
		price = perGram.Round(2)
		found = true
		return false
	})

	if !found {
		return decimal.Zero, ErrPriceNotFound
	}
	return price, nil
}

// unitFromLabel maps the table's unit column to a price unit. Unrecognized
// labels are treated as per gram, matching how the table quotes bare numbers.
func unitFromLabel(label string) processors.PriceUnit {
	switch {
	case strings.Contains(label, "10 GRAM"), strings.Contains(label, "10 GM"), strings.Contains(label, "10GM"):
		return processors.UnitTenGram
	case strings.Contains(label, "KG"), strings.Contains(label, "KILOGRAM"):
		return processors.UnitKilogram
	default:
		return processors.UnitGram
	}
}
