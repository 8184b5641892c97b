package processors

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// PriceUnit is the unit a source quotes a price in. Every observation is
// converted to currency-per-gram before it enters the purity deriver.
type PriceUnit string

const (
	UnitGram      PriceUnit = "gram"
	UnitTenGram   PriceUnit = "10g"
	UnitKilogram  PriceUnit = "kg"
	UnitTroyOunce PriceUnit = "ozt"
)

var (
	ten            = decimal.NewFromInt(10)
	thousand       = decimal.NewFromInt(1000)
	gramsPerTroyOz = decimal.RequireFromString("31.1035")
)

// ToPerGram converts a quoted price to currency-per-gram.
func ToPerGram(price decimal.Decimal, unit PriceUnit) (decimal.Decimal, error) {
	switch unit {
	case UnitGram:
		return price, nil
	case UnitTenGram:
		return price.Div(ten), nil
	case UnitKilogram:
		return price.Div(thousand), nil
	case UnitTroyOunce:
		return price.DivRound(gramsPerTroyOz, 8), nil
	}
	return decimal.Zero, fmt.Errorf("unknown price unit %q", unit)
}

// ConvertUSDToINR applies the configured exchange rate, rounded to 2 decimals.
func ConvertUSDToINR(usd, rate decimal.Decimal) decimal.Decimal {
	return usd.Mul(rate).Round(2)
}
