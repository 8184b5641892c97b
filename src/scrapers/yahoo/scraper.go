package yahoo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/piquette/finance-go/quote"
	"github.com/shopspring/decimal"
	"github.com/svacron/metals/backend/src/models"
	"github.com/svacron/metals/backend/src/processors"
)

const SourceName = "yahoo"

// Front-month futures symbols quoted in USD per troy ounce.
var futuresSymbols = map[models.MetalKind]string{
	models.Gold:     "GC=F",
	models.Silver:   "SI=F",
	models.Platinum: "PL=F",
}

// Scraper fetches commodity futures quotes from Yahoo Finance and converts
// them to INR per gram using the configured exchange rate.
type Scraper struct {
	timeout  time.Duration
	usdToINR func(ctx context.Context) decimal.Decimal
}

func New(timeout time.Duration, usdToINR func(ctx context.Context) decimal.Decimal) *Scraper {
	return &Scraper{timeout: timeout, usdToINR: usdToINR}
}

func (s *Scraper) Name() string { return SourceName }

func (s *Scraper) FetchObservation(ctx context.Context, metal models.MetalKind) (decimal.Decimal, error) {
	symbol, ok := futuresSymbols[metal]
	if !ok {
		return decimal.Zero, fmt.Errorf("no futures symbol for metal %q", metal)
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	// The finance-go client has no context support; run it in a goroutine so
	// the caller's deadline still applies.
	type result struct {
		price float64
		err   error
	}
	resultCh := make(chan result, 1)
	go func() {
		q, err := quote.Get(symbol)
		if err != nil {
			resultCh <- result{err: fmt.Errorf("fetching quote for %s: %w", symbol, err)}
			return
		}
		if q == nil {
			resultCh <- result{err: errors.New("no quote data returned from Yahoo Finance")}
			return
		}
		resultCh <- result{price: q.RegularMarketPrice}
	}()

	select {
	case <-ctx.Done():
		return decimal.Zero, fmt.Errorf("quote request for %s timed out: %w", symbol, ctx.Err())
	case res := <-resultCh:
		if res.err != nil {
			return decimal.Zero, res.err
		}
		if res.price <= 0 {
			return decimal.Zero, fmt.Errorf("non-positive quote %v for %s", res.price, symbol)
		}

		usdPerGram, err := processors.ToPerGram(decimal.NewFromFloat(res.price), processors.UnitTroyOunce)
		if err != nil {
			return decimal.Zero, err
		}
		return processors.ConvertUSDToINR(usdPerGram, s.usdToINR(ctx)), nil
	}
}
