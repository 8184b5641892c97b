package scrapers

import (
	"context"

	"github.com/shopspring/decimal"
	"github.com/svacron/metals/backend/src/models"
)

// ObservationSource produces a raw base-purity price observation for a metal,
// already converted to INR per gram. Implementations are interchangeable; the
// reconciliation pipeline never knows which source supplied the number.
type ObservationSource interface {
	Name() string
	FetchObservation(ctx context.Context, metal models.MetalKind) (decimal.Decimal, error)
}

