package reports

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/sitebook/sitebook/internal/aggregate"
	"github.com/sitebook/sitebook/internal/portfolio"
)

var detailUnitColumns = []Column{
	leftCol("Unit"),
	leftCol("Type"),
	rightCol("Beds"),
	leftCol("Construction"),
	leftCol("Sales Status"),
	leftCol("Purchaser"),
	leftCol("Planned Close"),
	leftCol("Closed"),
	rightCol("Price"),
}

// BuildDetail reports on a single development: KPIs, status breakdown, a unit
// list and documentation completion.
func BuildDetail(snap portfolio.Snapshot, opts Options) (Document, error) {
	dev, ok := snap.Development(opts.DevelopmentID)
	if !ok {
		return Document{}, fmt.Errorf("%w: %q", ErrDevelopmentNotFound, opts.DevelopmentID)
	}
	now := opts.now(snap)
	currency := dev.CurrencyCode()
	price := portfolio.EffectivePrice

	units := append([]portfolio.Unit(nil), dev.Units...)
	sort.SliceStable(units, func(i, j int) bool { return naturalLess(unitLabel(units[i]), unitLabel(units[j])) })

	subtitle := dev.ProjectCode
	if subtitle == "" {
		subtitle = plural(len(units), "unit")
	}
	doc := Document{
		Kind:        KindDetail,
		Title:       dev.Name,
		Subtitle:    subtitle,
		Currency:    currency,
		GeneratedAt: now,
		Filename:    DevelopmentFilename(dev.Name, now),
	}

	gdv := aggregate.Sum(units, price)
	complete := aggregate.By(units, portfolio.IsSaleComplete)
	completeCount, completeValue := 0, decimal.Zero
	if grp, ok := complete.Get(true); ok {
		completeCount, completeValue = grp.Count(), grp.Sum(price)
	}
	closedCount := aggregate.Count(units, portfolio.IsClosed)
	avg := decimal.Zero
	if len(units) > 0 {
		avg = gdv.DivRound(decimal.NewFromInt(int64(len(units))), 2)
	}
	kpis := &Table{Columns: []Column{leftCol("Metric"), rightCol("Value")}}
	kpis.Append(RowNormal, Text("Gross Development Value"), Money(gdv, currency))
	kpis.Append(RowNormal, Text("Units"), Int(len(units)))
	kpis.Append(RowNormal, Text("Sales Complete"), Int(completeCount))
	kpis.Append(RowNormal, Text("Sales Complete Value"), Money(completeValue, currency))
	kpis.Append(RowNormal, Text("Closed Units"), Int(closedCount))
	kpis.Append(RowNormal, Text("Average Price"), Money(avg, currency))
	doc.Add(BlockSummary, "Summary", kpis)

	byStatus := aggregate.By(units, func(u portfolio.Unit) portfolio.SalesStatus { return u.SalesStatus })
	rank := map[portfolio.SalesStatus]int{}
	for i, s := range portfolio.SalesStatuses {
		rank[s] = i + 1
	}
	byStatus.SortKeys(func(a, b portfolio.SalesStatus) bool {
		ra, rb := rank[a], rank[b]
		if ra == 0 {
			ra = len(rank) + 1
		}
		if rb == 0 {
			rb = len(rank) + 1
		}
		return ra < rb
	})
	statusTable := &Table{Columns: []Column{leftCol("Sales Status"), rightCol("Units"), rightCol("Value")}}
	for _, grp := range byStatus.Groups() {
		label := string(grp.Key)
		if label == "" {
			label = "Unspecified"
		}
		statusTable.Append(RowNormal, Text(label), Int(grp.Count()), Money(grp.Sum(price), currency))
	}
	statusTable.Append(RowTotal, Text("Total"), Int(byStatus.Count()), Money(byStatus.Total(price), currency))
	doc.Add(BlockSummary, "Status Breakdown", statusTable)

	unitTable := &Table{Columns: detailUnitColumns}
	for _, u := range units {
		var planned, closed Cell = Blank(), Blank()
		if u.Milestones.PlannedClose != nil {
			planned = Date(*u.Milestones.PlannedClose)
		}
		if when, ok := portfolio.EffectiveCloseDate(u); ok {
			closed = Date(when)
		}
		unitTable.Append(RowNormal,
			Text(unitLabel(u)),
			Text(u.Type),
			Int(u.Bedrooms),
			Text(string(u.ConstructionStatus)),
			Text(string(u.SalesStatus)),
			Text(u.Purchaser.Name),
			planned,
			closed,
			Money(price(u), currency),
		)
	}
	unitTable.Append(RowTotal, Text(plural(len(units), "unit")), Blank(), Blank(), Blank(), Blank(), Blank(), Blank(), Blank(), Money(gdv, currency))
	doc.Add(BlockGrouped, "Units", unitTable)

	docs := &Table{Columns: []Column{leftCol("Milestone"), rightCol("Completed"), rightCol("Total"), rightCol("Completion")}}
	for _, m := range portfolio.DocumentationMilestones {
		done := aggregate.Count(units, func(u portfolio.Unit) bool {
			_, ok := portfolio.MilestoneDate(u, m)
			return ok
		})
		ratio := decimal.Zero
		if len(units) > 0 {
			ratio = decimal.NewFromInt(int64(done)).DivRound(decimal.NewFromInt(int64(len(units))), 4)
		}
		docs.Append(RowNormal, Text(string(m)), Int(done), Int(len(units)), Percent(ratio))
	}
	doc.Add(BlockSummary, "Documentation", docs)
	return doc, nil
}
