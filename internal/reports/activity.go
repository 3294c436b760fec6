package reports

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/sitebook/sitebook/internal/aggregate"
	"github.com/sitebook/sitebook/internal/portfolio"
	"github.com/sitebook/sitebook/internal/window"
)

const activityWeeks = window.ActivityDays / 7

var activityColumns = []Column{
	leftCol("Unit"),
	leftCol("Type"),
	leftCol("Purchaser"),
	leftCol("Date"),
	rightCol("Weeks Ago"),
	rightCol("Value"),
}

// BuildActivity summarises milestones reached in the trailing four weeks.
func BuildActivity(snap portfolio.Snapshot, opts Options) Document {
	now := opts.now(snap)
	entries := window.Activity(snap, now)
	devs := unitDevelopments(entries, func(e window.ActivityEntry) portfolio.Development { return e.Development })
	currency := opts.documentCurrency(devs)

	doc := Document{
		Kind:        KindActivity,
		Title:       "Sales Activity",
		Subtitle:    fmt.Sprintf("Milestones from %s to %s", now.AddDate(0, 0, -window.ActivityDays).Format("02 Jan 2006"), now.Format("02 Jan 2006")),
		Currency:    currency,
		GeneratedAt: now,
		Filename:    Filename(KindActivity, now),
	}
	value := func(e window.ActivityEntry) decimal.Decimal { return e.Value }

	byWeek := aggregate.By(entries, func(e window.ActivityEntry) int { return e.WeeksAgo })
	weekTable := &Table{Columns: []Column{leftCol("Week"), rightCol("Count"), rightCol("Value")}}
	for w := 0; w <= activityWeeks; w++ {
		count, sum := 0, decimal.Zero
		if grp, ok := byWeek.Get(w); ok {
			count, sum = grp.Count(), grp.Sum(value)
		}
		weekTable.Append(RowNormal, Text(weeksAgoLabel(w)), Int(count), Money(sum, currency))
	}
	weekTable.Append(RowTotal, Text("Total"), Int(byWeek.Count()), Money(byWeek.Total(value), currency))
	doc.Add(BlockSummary, "By Week", weekTable)

	byKind := aggregate.By(entries, func(e window.ActivityEntry) window.ActivityKind { return e.Kind })
	kindTable := &Table{Columns: []Column{leftCol("Activity"), rightCol("Count"), rightCol("Value")}}
	for _, kind := range window.ActivityKinds {
		count, sum := 0, decimal.Zero
		if grp, ok := byKind.Get(kind); ok {
			count, sum = grp.Count(), grp.Sum(value)
		}
		kindTable.Append(RowNormal, Text(kind.Label()), Int(count), Money(sum, currency))
	}
	kindTable.Append(RowTotal, Text("Total"), Int(byKind.Count()), Money(byKind.Total(value), currency))
	doc.Add(BlockSummary, "By Activity", kindTable)

	devGroups := groupByDevelopment(entries, func(e window.ActivityEntry) portfolio.Development { return e.Development })
	for _, devGrp := range devGroups.Groups() {
		dev := devGrp.Entries[0].Development
		devCurrency := dev.CurrencyCode()
		table := &Table{Columns: activityColumns}
		kinds := aggregate.By(devGrp.Entries, func(e window.ActivityEntry) window.ActivityKind { return e.Kind }).
			SortKeys(func(a, b window.ActivityKind) bool { return a.Priority() < b.Priority() }).
			SortEntries(func(a, b window.ActivityEntry) bool {
				if !a.Date.Equal(b.Date) {
					return a.Date.After(b.Date)
				}
				return naturalLess(unitLabel(a.Unit), unitLabel(b.Unit))
			})
		for _, kindGrp := range kinds.Groups() {
			table.Append(RowLabel, Text(kindGrp.Key.Label()))
			for _, e := range kindGrp.Entries {
				table.Append(RowNormal,
					Text(unitLabel(e.Unit)),
					Text(e.Unit.Type),
					Text(e.Unit.Purchaser.Name),
					Date(e.Date),
					Int(e.WeeksAgo),
					Money(e.Value, devCurrency),
				)
			}
			table.Append(RowSubtotal,
				Text(fmt.Sprintf("%s subtotal (%d)", kindGrp.Key.Label(), kindGrp.Count())),
				Blank(), Blank(), Blank(), Blank(),
				Money(kindGrp.Sum(value), devCurrency),
			)
		}
		table.Append(RowTotal,
			Text(fmt.Sprintf("%s total (%d)", dev.Name, devGrp.Count())),
			Blank(), Blank(), Blank(), Blank(),
			Money(devGrp.Sum(value), devCurrency),
		)
		doc.Add(BlockGrouped, dev.Name, table)
	}
	return doc
}

func weeksAgoLabel(w int) string {
	switch w {
	case 0:
		return "This week"
	case 1:
		return "1 week ago"
	}
	return fmt.Sprintf("%d weeks ago", w)
}
