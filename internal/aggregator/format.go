package aggregator

import (
	"math"
	"strconv"

	"github.com/shopspring/decimal"
)

var (
	million  = decimal.New(1, 6)
	billion  = decimal.New(1, 9)
	trillion = decimal.New(1, 12)
)

// FormatMarketCap renders a market capitalization given in millions, e.g.
// 1500 -> "1.50B". Values too small for a suffix render as plain dollars.
func FormatMarketCap(millions float64) string {
	if math.IsNaN(millions) || math.IsInf(millions, 0) {
		return "N/A"
	}

	// Scale from millions to absolute value before picking a suffix.
	n := decimal.NewFromFloat(millions).Mul(million)

	switch {
	case n.GreaterThanOrEqual(trillion):
		return n.Div(trillion).StringFixed(2) + "T"
	case n.GreaterThanOrEqual(billion):
		return n.Div(billion).StringFixed(2) + "B"
	case n.GreaterThanOrEqual(million):
		return n.Div(million).StringFixed(2) + "M"
	default:
		return n.StringFixed(2)
	}
}

// FormatMarketCapString parses a provider-supplied value before formatting;
// anything non-numeric renders as "N/A".
func FormatMarketCapString(value string) string {
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return "N/A"
	}
	return FormatMarketCap(f)
}
