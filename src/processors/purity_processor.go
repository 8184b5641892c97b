package processors

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/svacron/metals/backend/src/models"
)

// Market multipliers per purity tier, relative to the base (999) price.
// Gold tiers follow the karat fractions (22/24, 18/24, 14/24); silver and
// platinum tiers additionally discount by the 99.9% fineness of the base.
type purityMultiplier struct {
	Purity     string
	Multiplier decimal.Decimal
}

var purityTables = map[models.MetalKind][]purityMultiplier{
	models.Gold: {
		{"999", decimal.NewFromInt(1)},
		{"916", decimal.RequireFromString("0.9167")},
		{"750", decimal.RequireFromString("0.75")},
		{"585", decimal.RequireFromString("0.5833")},
	},
	models.Silver: {
		{"999", decimal.NewFromInt(1)},
		{"925", decimal.RequireFromString("0.924075")}, // 0.925 * 0.999
	},
	models.Platinum: {
		{"999", decimal.NewFromInt(1)},
		{"950", decimal.RequireFromString("0.94905")}, // 0.95 * 0.999
		{"900", decimal.RequireFromString("0.8991")},  // 0.90 * 0.999
	},
}

// DeriveRates expands a base-purity price (currency per gram) into the full
// ordered purity list for a metal. Index 0 is always the base purity.
// Callers must reject non-positive prices before reaching this point.
func DeriveRates(metal models.MetalKind, basePerGram decimal.Decimal) ([]models.PurityPrice, error) {
	table, ok := purityTables[metal]
	if !ok {
		return nil, fmt.Errorf("no purity table for metal %q", metal)
	}

	rates := make([]models.PurityPrice, 0, len(table))
	for _, tier := range table {
		rates = append(rates, models.PurityPrice{
			Purity: tier.Purity,
			Price:  basePerGram.Mul(tier.Multiplier).Round(2),
		})
	}
	return rates, nil
}
