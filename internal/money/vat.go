// Package money provides VAT conversion and currency-aware formatting for unit prices.
package money

import (
	"strings"

	"github.com/shopspring/decimal"
)

// RateTable maps a unit type (or VAT lookup key) to a VAT percentage.
type RateTable map[string]decimal.Decimal

var (
	hundred = decimal.NewFromInt(100)

	// DefaultRate applies when neither the development table nor DefaultRates maps a unit type.
	DefaultRate = decimal.RequireFromString("13.5")

	// DefaultRates is used for developments without their own rate table.
	DefaultRates = RateTable{
		"house":      decimal.RequireFromString("13.5"),
		"apartment":  decimal.RequireFromString("13.5"),
		"duplex":     decimal.RequireFromString("13.5"),
		"townhouse":  decimal.RequireFromString("13.5"),
		"commercial": decimal.NewFromInt(23),
		"site":       decimal.NewFromInt(23),
	}

	// Tolerance is the maximum drift allowed when an ex-VAT amount is grossed back up.
	Tolerance = decimal.RequireFromString("0.01")
)

// RateFor resolves the VAT percentage for a unit type. The lookup is case-insensitive
// and falls back to DefaultRates, then DefaultRate.
func RateFor(table RateTable, unitType string) decimal.Decimal {
	key := strings.ToLower(strings.TrimSpace(unitType))
	if rate, ok := lookup(table, key); ok {
		return rate
	}
	if rate, ok := lookup(DefaultRates, key); ok {
		return rate
	}
	return DefaultRate
}

func lookup(table RateTable, key string) (decimal.Decimal, bool) {
	if len(table) == 0 || key == "" {
		return decimal.Zero, false
	}
	if rate, ok := table[key]; ok {
		return rate, true
	}
	for k, rate := range table {
		if strings.EqualFold(k, key) {
			return rate, true
		}
	}
	return decimal.Zero, false
}

// ExVAT strips VAT from an inclusive amount and rounds to two decimals.
// ExVAT(x, r) * (1 + r/100) is within Tolerance of x.
func ExVAT(incVAT, ratePercent decimal.Decimal) decimal.Decimal {
	if incVAT.IsZero() {
		return decimal.Zero
	}
	divisor := decimal.NewFromInt(1).Add(ratePercent.Div(hundred))
	if divisor.Sign() <= 0 {
		return incVAT.Round(2)
	}
	return incVAT.DivRound(divisor, 8).Round(2)
}

// IncVAT grosses up an ex-VAT amount, rounded to two decimals.
func IncVAT(exVAT, ratePercent decimal.Decimal) decimal.Decimal {
	multiplier := decimal.NewFromInt(1).Add(ratePercent.Div(hundred))
	return exVAT.Mul(multiplier).Round(2)
}
