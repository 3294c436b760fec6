package money

import (
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// DefaultCurrency is assumed for developments without a valid ISO 4217 code.
const DefaultCurrency = "EUR"

var symbols = map[string]string{
	"EUR": "€",
	"GBP": "£",
	"USD": "$",
	"JPY": "¥",
	"CHF": "CHF ",
	"PLN": "zł ",
}

var printer = message.NewPrinter(language.English)

// Currency resolves an ISO code, falling back to DefaultCurrency.
func Currency(code string) currency.Unit {
	unit, err := currency.ParseISO(strings.ToUpper(strings.TrimSpace(code)))
	if err != nil {
		return currency.EUR
	}
	return unit
}

// Scale returns the number of minor-unit digits conventionally displayed for the currency.
func Scale(code string) int32 {
	scale, _ := currency.Standard.Rounding(Currency(code))
	return int32(scale)
}

// Round applies the currency's standard precision.
func Round(amount decimal.Decimal, code string) decimal.Decimal {
	return amount.Round(Scale(code))
}

// Symbol returns the display prefix for a currency.
func Symbol(code string) string {
	iso := Currency(code).String()
	if s, ok := symbols[iso]; ok {
		return s
	}
	return iso + " "
}

// FormatWhole renders an amount with grouping and no decimals, e.g. €300,000.
func FormatWhole(amount decimal.Decimal, code string) string {
	return format(amount, code, 0)
}

// FormatPrecise renders an amount with the currency's minor-unit precision, e.g. €300,000.00.
func FormatPrecise(amount decimal.Decimal, code string) string {
	return format(amount, code, Scale(code))
}

// FormatNumber renders a grouped amount without a currency symbol.
func FormatNumber(amount decimal.Decimal, places int32) string {
	neg := amount.Sign() < 0
	fixed := amount.Abs().StringFixed(places)
	whole, frac, _ := strings.Cut(fixed, ".")
	intPart, err := decimal.NewFromString(whole)
	if err != nil {
		return fixed
	}
	var b strings.Builder
	if neg {
		b.WriteByte('-')
	}
	b.WriteString(printer.Sprintf("%d", intPart.IntPart()))
	if frac != "" {
		b.WriteByte('.')
		b.WriteString(frac)
	}
	return b.String()
}

func format(amount decimal.Decimal, code string, places int32) string {
	body := FormatNumber(amount, places)
	if strings.HasPrefix(body, "-") {
		return "-" + Symbol(code) + strings.TrimPrefix(body, "-")
	}
	return Symbol(code) + body
}
