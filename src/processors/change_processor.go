package processors

import (
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// CalculateChange returns the absolute and percentage change from previous to
// current, both rounded to 2 decimal places.
//
// A previous price of zero (or less) yields a change percent of 0 by policy:
// the first-ever entry for a metal has nothing to compare against, and a
// division by zero must never surface as an error in the display path.
func CalculateChange(current, previous decimal.Decimal) (change, changePercent decimal.Decimal) {
	change = current.Sub(previous).Round(2)
	if previous.IsPositive() {
		changePercent = current.Sub(previous).Div(previous).Mul(hundred).Round(2)
	} else {
		changePercent = decimal.Zero
	}
	return change, changePercent
}
