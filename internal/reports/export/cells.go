// Package export materialises report documents as PDF, XLSX and CSV files.
package export

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/sitebook/sitebook/internal/money"
	"github.com/sitebook/sitebook/internal/reports"
)

const dateLayout = "02 Jan 2006"

// displayText renders a cell for human readers. Formula cells show their
// evaluated value.
func displayText(c reports.Cell, value decimal.Decimal, currency string) string {
	if c.Currency != "" {
		currency = c.Currency
	}
	switch c.Kind {
	case reports.CellText:
		return c.Text
	case reports.CellNumber:
		return money.FormatNumber(c.Number, 0)
	case reports.CellMoney:
		return money.FormatWhole(c.Number, currency)
	case reports.CellFormula:
		return money.FormatWhole(value, currency)
	case reports.CellPercent:
		return money.FormatNumber(c.Number.Shift(2), 1) + "%"
	case reports.CellDate:
		return c.Date.Format(dateLayout)
	}
	return ""
}

// rawText renders a cell for machine consumers: plain numbers at currency
// precision, ISO dates and formulas in A1 notation.
func rawText(c reports.Cell, origin reports.Origin, currency string) (string, error) {
	if c.Currency != "" {
		currency = c.Currency
	}
	switch c.Kind {
	case reports.CellText:
		return sanitiseCSV(c.Text), nil
	case reports.CellNumber, reports.CellPercent:
		return c.Number.String(), nil
	case reports.CellMoney:
		return c.Number.StringFixed(money.Scale(currency)), nil
	case reports.CellDate:
		return c.Date.Format("2006-01-02"), nil
	case reports.CellFormula:
		a1, err := c.Formula.A1(origin)
		if err != nil {
			return "", err
		}
		return "=" + a1, nil
	}
	return "", nil
}

// sanitiseCSV stops user text from being interpreted as a formula.
func sanitiseCSV(s string) string {
	if s != "" && strings.ContainsRune("=+-@", rune(s[0])) {
		return "'" + s
	}
	return s
}
