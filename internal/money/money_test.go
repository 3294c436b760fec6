package money

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRateForFallbacks(t *testing.T) {
	table := RateTable{"Apartment": decimal.NewFromInt(9)}

	require.True(t, RateFor(table, "apartment").Equal(decimal.NewFromInt(9)))
	require.True(t, RateFor(table, "commercial").Equal(decimal.NewFromInt(23)))
	require.True(t, RateFor(nil, "house").Equal(decimal.RequireFromString("13.5")))
	require.True(t, RateFor(nil, "boathouse").Equal(DefaultRate))
	require.True(t, RateFor(nil, "").Equal(DefaultRate))
}

func TestExVATKnownValues(t *testing.T) {
	got := ExVAT(decimal.NewFromInt(340500), decimal.RequireFromString("13.5"))
	require.Equal(t, "300000", got.String())

	require.True(t, ExVAT(decimal.Zero, decimal.NewFromInt(23)).IsZero())
	require.Equal(t, "100", ExVAT(decimal.NewFromInt(100), decimal.Zero).String())
}

func TestExVATRoundTripWithinTolerance(t *testing.T) {
	amounts := []string{"0", "0.01", "1", "99.99", "1234.56", "299999.99", "450000", "1000000.01", "7777777.77"}
	rates := []string{"0", "4.8", "9", "13.5", "20", "23", "50.5", "99.99"}
	one := decimal.NewFromInt(1)
	for _, a := range amounts {
		for _, r := range rates {
			inc := decimal.RequireFromString(a)
			rate := decimal.RequireFromString(r)
			ex := ExVAT(inc, rate)
			back := ex.Mul(one.Add(rate.Div(decimal.NewFromInt(100))))
			drift := back.Sub(inc).Abs()
			assert.Truef(t, drift.LessThanOrEqual(Tolerance), "amount %s rate %s drift %s", a, r, drift)
		}
	}
}

func TestIncVAT(t *testing.T) {
	rate := decimal.NewFromInt(23)
	require.Equal(t, "123", IncVAT(decimal.NewFromInt(100), rate).String())
}

func TestFormatting(t *testing.T) {
	amount := decimal.RequireFromString("300000.4")
	require.Equal(t, "€300,000", FormatWhole(amount, "EUR"))
	require.Equal(t, "€300,000.40", FormatPrecise(amount, "eur"))
	require.Equal(t, "£1,250,000", FormatWhole(decimal.NewFromInt(1250000), "GBP"))
	require.Equal(t, "¥1,200", FormatPrecise(decimal.NewFromInt(1200), "JPY"))
	require.Equal(t, "€999", FormatWhole(decimal.NewFromInt(999), "not-a-code"))
	require.Equal(t, "-€1,000", FormatWhole(decimal.NewFromInt(-1000), "EUR"))
}

func TestScaleAndRound(t *testing.T) {
	require.Equal(t, int32(2), Scale("EUR"))
	require.Equal(t, int32(0), Scale("JPY"))
	require.Equal(t, "10.13", Round(decimal.RequireFromString("10.125"), "EUR").String())
}
