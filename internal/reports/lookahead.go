package reports

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/sitebook/sitebook/internal/aggregate"
	"github.com/sitebook/sitebook/internal/portfolio"
	"github.com/sitebook/sitebook/internal/window"
)

var lookaheadColumns = []Column{
	leftCol("Unit"),
	leftCol("Type"),
	rightCol("Beds"),
	leftCol("Sales Status"),
	leftCol("Planned Close"),
	rightCol("Days Overdue"),
	rightCol("Price"),
}

// BuildLookahead lays out units due to close in the next 12 weeks, plus the
// overdue backlog, one table per development in alphabetical order.
func BuildLookahead(snap portfolio.Snapshot, opts Options) Document {
	now := opts.now(snap)
	entries := window.Lookahead(snap, now)
	devs := unitDevelopments(entries, func(e window.LookaheadEntry) portfolio.Development { return e.Development })
	currency := opts.documentCurrency(devs)

	doc := Document{
		Kind:        KindLookahead,
		Title:       "12-Week Look-ahead",
		Subtitle:    fmt.Sprintf("Planned closings to %s, including overdue units", now.AddDate(0, 0, window.LookaheadDays).Format("02 Jan 2006")),
		Currency:    currency,
		GeneratedAt: now,
		Filename:    Filename(KindLookahead, now),
	}

	groups := groupByDevelopment(entries, func(e window.LookaheadEntry) portfolio.Development { return e.Development })
	groups.SortEntries(func(a, b window.LookaheadEntry) bool {
		if !a.PlannedClose.Equal(b.PlannedClose) {
			return a.PlannedClose.Before(b.PlannedClose)
		}
		return naturalLess(unitLabel(a.Unit), unitLabel(b.Unit))
	})

	price := func(e window.LookaheadEntry) decimal.Decimal { return portfolio.EffectivePrice(e.Unit) }
	summary := &Table{Columns: []Column{leftCol("Development"), rightCol("Units"), rightCol("Past Due"), rightCol("Value")}}
	pastDue := 0
	for _, grp := range groups.Groups() {
		dev := grp.Entries[0].Development
		devCurrency := dev.CurrencyCode()
		table := &Table{Columns: lookaheadColumns}
		overdue := 0
		for _, e := range grp.Entries {
			style, days := RowNormal, Blank()
			if e.IsPastDue {
				style, days = RowFlagged, Int(*e.DaysOverdue)
				overdue++
			}
			table.Append(style,
				Text(unitLabel(e.Unit)),
				Text(e.Unit.Type),
				Int(e.Unit.Bedrooms),
				Text(string(e.Unit.SalesStatus)),
				Date(e.PlannedClose),
				days,
				Money(price(e), devCurrency),
			)
		}
		table.Append(RowSubtotal,
			Text(fmt.Sprintf("Subtotal (%s)", plural(grp.Count(), "unit"))),
			Blank(), Blank(), Blank(), Blank(),
			Int(overdue),
			Money(grp.Sum(price), devCurrency),
		)
		doc.Add(BlockGrouped, dev.Name, table)
		summary.Append(RowNormal, Text(dev.Name), Int(grp.Count()), Int(overdue), Money(grp.Sum(price), devCurrency))
		pastDue += overdue
	}
	summary.Append(RowTotal, Text("Grand Total"), Int(groups.Count()), Int(pastDue), Money(groups.Total(price), currency))
	doc.Add(BlockSummary, "Grand Total", summary)
	return doc
}

// groupByDevelopment groups entries by development id, ordered by development name.
func groupByDevelopment[E any](entries []E, dev func(E) portfolio.Development) *aggregate.Grouping[string, E] {
	names := map[string]portfolio.Development{}
	g := aggregate.By(entries, func(e E) string {
		d := dev(e)
		names[d.ID] = d
		return d.ID
	})
	return g.SortKeys(func(a, b string) bool { return byDevelopmentName(names[a], names[b]) })
}

func plural(n int, noun string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", noun)
	}
	return fmt.Sprintf("%d %ss", n, noun)
}
