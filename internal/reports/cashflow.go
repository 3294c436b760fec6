package reports

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/sitebook/sitebook/internal/money"
	"github.com/sitebook/sitebook/internal/period"
	"github.com/sitebook/sitebook/internal/portfolio"
	"github.com/sitebook/sitebook/internal/window"
)

type closedUnit struct {
	dev   portfolio.Development
	unit  portfolio.Unit
	month period.Key
	value decimal.Decimal
}

// BuildCashflow lays out closed units in a development by month matrix.
// Subtotal and grand total cells are SUM formulas so a spreadsheet consumer
// can hide unit rows and still get correct totals.
func BuildCashflow(snap portfolio.Snapshot, opts Options) Document {
	now := opts.now(snap)
	closed := closedUnits(snap, opts.Range.Resolve(now), opts.ExVAT)
	devs := unitDevelopments(closed, func(c closedUnit) portfolio.Development { return c.dev })
	currency := opts.documentCurrency(devs)

	basis := "inc. VAT"
	if opts.ExVAT {
		basis = "ex. VAT"
	}
	doc := Document{
		Kind:        KindCashflow,
		Title:       "Cash Flow",
		Subtitle:    fmt.Sprintf("%s, values %s", opts.Range.Label(), basis),
		Currency:    currency,
		GeneratedAt: now,
		Filename:    Filename(KindCashflow, now),
	}
	doc.Add(BlockFormula, "Cash Flow", cashflowSheet(closed, currency))
	return doc
}

func cashflowSheet(closed []closedUnit, currency string) *Table {
	months := distinctMonths(closed)
	column := make(map[period.Key]int, len(months))
	table := &Table{Columns: []Column{leftCol("Development / Unit")}}
	for i, m := range months {
		column[m] = i + 1
		table.Columns = append(table.Columns, rightCol(m.Label()))
	}
	totalCol := len(months) + 1
	table.Columns = append(table.Columns, rightCol("Total"))

	rowTotal := func(row int) Cell {
		if len(months) == 0 {
			return Money(decimal.Zero, currency)
		}
		return FormulaCell(Sum(RowSpan(row, 1, len(months))), currency)
	}

	groups := groupByDevelopment(closed, func(c closedUnit) portfolio.Development { return c.dev })
	groups.SortEntries(func(a, b closedUnit) bool { return naturalLess(unitLabel(a.unit), unitLabel(b.unit)) })

	var subtotals []int
	for _, grp := range groups.Groups() {
		dev := grp.Entries[0].dev
		table.Append(RowLabel, Text(dev.Name))
		first := len(table.Rows)
		for _, c := range grp.Entries {
			row := len(table.Rows)
			cells := make([]Cell, totalCol+1)
			cells[0] = Text(unitLabel(c.unit))
			for i := 1; i < totalCol; i++ {
				cells[i] = Blank()
			}
			cells[column[c.month]] = Money(c.value, currency)
			cells[totalCol] = rowTotal(row)
			table.Append(RowNormal, cells...)
		}
		last := len(table.Rows) - 1

		row := len(table.Rows)
		cells := make([]Cell, totalCol+1)
		cells[0] = Text(dev.Name + " Subtotal")
		for i := 1; i < totalCol; i++ {
			cells[i] = FormulaCell(Sum(ColumnSpan(i, first, last)), currency)
		}
		cells[totalCol] = rowTotal(row)
		subtotals = append(subtotals, table.Append(RowSubtotal, cells...))
		table.Append(RowSpacer)
	}

	cells := make([]Cell, totalCol+1)
	cells[0] = Text("Grand Total")
	for i := 1; i <= totalCol; i++ {
		if len(subtotals) == 0 {
			cells[i] = Money(decimal.Zero, currency)
			continue
		}
		refs := make([]Operand, len(subtotals))
		for j, sub := range subtotals {
			refs[j] = Ref(sub, i)
		}
		cells[i] = FormulaCell(Sum(refs...), currency)
	}
	table.Append(RowTotal, cells...)
	return table
}

func distinctMonths(closed []closedUnit) []period.Key {
	seen := map[period.Key]bool{}
	var months []period.Key
	for _, c := range closed {
		if !seen[c.month] {
			seen[c.month] = true
			months = append(months, c.month)
		}
	}
	period.SortKeys(months)
	return months
}

// closedUnits selects units with an effective close date whose month lies in bounds.
func closedUnits(snap portfolio.Snapshot, bounds window.Bounds, exVAT bool) []closedUnit {
	var closed []closedUnit
	for _, dev := range snap.Developments {
		for _, u := range dev.Units {
			when, ok := portfolio.EffectiveCloseDate(u)
			if !ok {
				continue
			}
			key := period.MonthKey(when)
			if !bounds.Contains(key) {
				continue
			}
			value := portfolio.EffectivePrice(u)
			if exVAT {
				value = money.ExVAT(value, dev.VATRate(u))
			}
			closed = append(closed, closedUnit{dev: dev, unit: u, month: key, value: value})
		}
	}
	return closed
}
