package reports

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/sitebook/sitebook/internal/portfolio"
	"github.com/sitebook/sitebook/internal/window"
)

func day(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

func dec(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func closedAt(id string, when *time.Time, price int64) portfolio.Unit {
	return portfolio.Unit{ID: id, Number: id, Type: "house", PriceIncVAT: dec(price), SalesStatus: portfolio.SalesComplete,
		Milestones: portfolio.Milestones{SaleClosed: when}}
}

func riversideElmwood() portfolio.Snapshot {
	return portfolio.Snapshot{
		TakenAt: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		Developments: []portfolio.Development{
			{ID: "riv", Name: "Riverside", Currency: "EUR", Units: []portfolio.Unit{
				closedAt("A", day(2024, 1, 15), 300000),
				closedAt("B", day(2024, 2, 10), 450000),
				{ID: "open", Number: "open", ListPrice: dec(999999), SalesStatus: portfolio.SalesForSale},
			}},
			{ID: "elm", Name: "Elmwood", Currency: "EUR", Units: []portfolio.Unit{
				closedAt("C", day(2024, 1, 20), 200000),
			}},
		},
	}
}

func rowByLabel(t *testing.T, table *Table, label string) int {
	t.Helper()
	for i, r := range table.Rows {
		if len(r.Cells) > 0 && r.Cells[0].Text == label {
			return i
		}
	}
	t.Fatalf("row %q not found", label)
	return -1
}

func evaluatedRow(values Values, row, cols int) []string {
	out := make([]string, 0, cols)
	for c := 1; c <= cols; c++ {
		out = append(out, values.At(row, c).String())
	}
	return out
}

func TestCashflowScenario(t *testing.T) {
	doc := BuildCashflow(riversideElmwood(), Options{})
	require.Equal(t, "Cash-Flow-2024-03-01", doc.Filename)
	blocks := doc.Tables(BlockFormula)
	require.Len(t, blocks, 1)
	table := blocks[0].Table

	var headers []string
	for _, c := range table.Columns {
		headers = append(headers, c.Title)
	}
	require.Equal(t, []string{"Development / Unit", "Jan '24", "Feb '24", "Total"}, headers)
	require.True(t, table.HasFormulas())

	values, err := table.Evaluate()
	require.NoError(t, err)
	require.Equal(t, []string{"300000", "450000", "750000"}, evaluatedRow(values, rowByLabel(t, table, "Riverside Subtotal"), 3))
	require.Equal(t, []string{"200000", "0", "200000"}, evaluatedRow(values, rowByLabel(t, table, "Elmwood Subtotal"), 3))
	require.Equal(t, []string{"500000", "450000", "950000"}, evaluatedRow(values, rowByLabel(t, table, "Grand Total"), 3))
}

func TestCashflowFormulasReferenceSubtotals(t *testing.T) {
	table := BuildCashflow(riversideElmwood(), Options{}).Blocks[0].Table
	origin := Origin{Row: 2, Col: 1}

	styles := make([]RowStyle, len(table.Rows))
	for i, r := range table.Rows {
		styles[i] = r.Style
	}
	require.Equal(t, []RowStyle{
		RowLabel, RowNormal, RowSubtotal, RowSpacer,
		RowLabel, RowNormal, RowNormal, RowSubtotal, RowSpacer,
		RowTotal,
	}, styles)

	a1 := func(row, col int) string {
		f := table.Rows[row].Cells[col].Formula
		require.NotNil(t, f, "row %d col %d", row, col)
		s, err := f.A1(origin)
		require.NoError(t, err)
		return s
	}
	require.Equal(t, "SUM(B3:B3)", a1(2, 1))
	require.Equal(t, "SUM(B7:B8)", a1(7, 1))
	require.Equal(t, "SUM(B9:C9)", a1(7, 3))
	require.Equal(t, "SUM(B4,B9)", a1(9, 1))
	require.Equal(t, "SUM(D4,D9)", a1(9, 3))
	require.Equal(t, "SUM(B7:C7)", a1(5, 3))

	// value only sits in the unit's own close month
	require.Equal(t, CellMoney, table.Rows[6].Cells[2].Kind)
	require.Equal(t, CellBlank, table.Rows[6].Cells[1].Kind)
}

func TestCashflowFormulaConsistency(t *testing.T) {
	snap := riversideElmwood()
	snap.Developments[1].Units = append(snap.Developments[1].Units,
		closedAt("10", day(2023, 11, 2), 123457),
		portfolio.Unit{ID: "2", Number: "2", ListPrice: dec(80000), Milestones: portfolio.Milestones{ActualClose: day(2024, 2, 28)}},
		portfolio.Unit{ID: "legacy", Number: "9", ListPrice: dec(55000), Milestones: portfolio.Milestones{LegacyClose: day(2023, 11, 30)}},
	)
	table := BuildCashflow(snap, Options{}).Blocks[0].Table
	values, err := table.Evaluate()
	require.NoError(t, err)

	totalCol := len(table.Columns) - 1
	direct := map[string]decimal.Decimal{}
	grand := decimal.Zero
	for _, dev := range snap.Developments {
		for _, u := range dev.Units {
			if portfolio.IsClosed(u) {
				direct[dev.Name] = direct[dev.Name].Add(portfolio.EffectivePrice(u))
				grand = grand.Add(portfolio.EffectivePrice(u))
			}
		}
	}
	for name, want := range direct {
		got := values.At(rowByLabel(t, table, name+" Subtotal"), totalCol)
		require.True(t, want.Equal(got), "%s: want %s got %s", name, want, got)
	}
	require.True(t, grand.Equal(values.At(rowByLabel(t, table, "Grand Total"), totalCol)))

	// natural unit ordering within Elmwood
	var elmwood []string
	for i := rowByLabel(t, table, "Elmwood") + 1; table.Rows[i].Style == RowNormal; i++ {
		elmwood = append(elmwood, table.Rows[i].Cells[0].Text)
	}
	require.Equal(t, []string{"2", "9", "10", "C"}, elmwood)
}

func TestCashflowRangeAndExVAT(t *testing.T) {
	snap := riversideElmwood()
	snap.Developments[0].Units = append(snap.Developments[0].Units, closedAt("old", day(2023, 6, 1), 113500))

	doc := BuildCashflow(snap, Options{Range: window.CalendarYear(2023), ExVAT: true})
	table := doc.Blocks[0].Table
	require.Len(t, table.Columns, 3)
	require.Equal(t, "Jun '23", table.Columns[1].Title)
	values, err := table.Evaluate()
	require.NoError(t, err)
	require.Equal(t, "100000", values.At(rowByLabel(t, table, "Grand Total"), 2).String())
	require.Contains(t, doc.Subtitle, "ex. VAT")

	doc = BuildCashflow(snap, Options{Range: window.Custom("2024-02", "2024-02")})
	values, err = doc.Blocks[0].Table.Evaluate()
	require.NoError(t, err)
	require.Equal(t, "450000", values.At(rowByLabel(t, doc.Blocks[0].Table, "Grand Total"), 2).String())
}

func TestCashflowEmpty(t *testing.T) {
	doc := BuildCashflow(portfolio.Snapshot{}, Options{Now: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)})
	table := doc.Blocks[0].Table
	require.Len(t, table.Rows, 1)
	require.Equal(t, RowTotal, table.Rows[0].Style)
	require.False(t, table.HasFormulas())
	require.Equal(t, "EUR", doc.Currency)
}

func TestEvaluateDetectsCycles(t *testing.T) {
	table := &Table{Columns: []Column{leftCol("a"), rightCol("b")}}
	table.Append(RowNormal, Text("x"), FormulaCell(Sum(Ref(1, 1)), "EUR"))
	table.Append(RowNormal, Text("y"), FormulaCell(Sum(Ref(0, 1)), "EUR"))
	_, err := table.Evaluate()
	require.ErrorIs(t, err, ErrFormulaCycle)

	table = &Table{Columns: []Column{leftCol("a")}}
	table.Append(RowNormal, FormulaCell(Sum(Ref(5, 0)), "EUR"))
	_, err = table.Evaluate()
	require.ErrorIs(t, err, ErrBadReference)
}

func TestLookaheadBuilder(t *testing.T) {
	snap := portfolio.Snapshot{Developments: []portfolio.Development{
		{ID: "z", Name: "Zephyr Court", Units: []portfolio.Unit{
			{ID: "z1", Number: "1", SalesStatus: portfolio.SalesForSale, ListPrice: dec(250000), Milestones: portfolio.Milestones{PlannedClose: day(2024, 5, 1)}},
			{ID: "z2", Number: "2", SalesStatus: portfolio.SalesForSale, PriceIncVAT: dec(300000), ListPrice: dec(1), Milestones: portfolio.Milestones{PlannedClose: day(2024, 2, 15)}},
		}},
		{ID: "a", Name: "Ashgrove", Units: []portfolio.Unit{
			{ID: "a1", Number: "7", SalesStatus: portfolio.SalesReserved, ListPrice: dec(100000), Milestones: portfolio.Milestones{PlannedClose: day(2024, 3, 20)}},
			{ID: "a2", Number: "8", SalesStatus: portfolio.SalesComplete, ListPrice: dec(100000), Milestones: portfolio.Milestones{PlannedClose: day(2024, 3, 20)}},
		}},
	}}
	doc := BuildLookahead(snap, Options{Now: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)})
	require.Equal(t, "Lookahead-2024-03-01", doc.Filename)

	grouped := doc.Tables(BlockGrouped)
	require.Len(t, grouped, 2)
	require.Equal(t, "Ashgrove", grouped[0].Title)
	require.Equal(t, "Zephyr Court", grouped[1].Title)

	zephyr := grouped[1].Table
	require.Len(t, zephyr.Rows, 3)
	require.Equal(t, RowFlagged, zephyr.Rows[0].Style)
	require.Equal(t, "2", zephyr.Rows[0].Cells[0].Text)
	require.Equal(t, "15", zephyr.Rows[0].Cells[5].Number.String())
	require.Equal(t, RowNormal, zephyr.Rows[1].Style)
	require.Equal(t, CellBlank, zephyr.Rows[1].Cells[5].Kind)
	subtotal := zephyr.Rows[2]
	require.Equal(t, RowSubtotal, subtotal.Style)
	require.Equal(t, "Subtotal (2 units)", subtotal.Cells[0].Text)
	require.Equal(t, "550000", subtotal.Cells[6].Number.String())

	summary := doc.Tables(BlockSummary)
	require.Len(t, summary, 1)
	total := summary[0].Table.Rows[len(summary[0].Table.Rows)-1]
	require.Equal(t, RowTotal, total.Style)
	require.Equal(t, "3", total.Cells[1].Number.String())
	require.Equal(t, "1", total.Cells[2].Number.String())
	require.Equal(t, "650000", total.Cells[3].Number.String())
}

func TestActivityBuilder(t *testing.T) {
	now := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	snap := portfolio.Snapshot{Developments: []portfolio.Development{
		{ID: "r", Name: "Riverside", Units: []portfolio.Unit{
			{ID: "r1", Number: "1", ListPrice: dec(300000), Milestones: portfolio.Milestones{
				SaleClosed: day(2024, 2, 20), ContractSigned: day(2024, 2, 5), SANApproved: day(2024, 2, 28),
			}},
			{ID: "r2", Number: "2", ListPrice: dec(200000), Milestones: portfolio.Milestones{SaleClosed: day(2024, 1, 21)}},
		}},
		{ID: "e", Name: "Elmwood", Units: []portfolio.Unit{
			{ID: "e1", Number: "1", ListPrice: dec(150000), Milestones: portfolio.Milestones{ContractSigned: day(2024, 2, 29)}},
		}},
	}}
	doc := BuildActivity(snap, Options{Now: now})
	require.Equal(t, "Sales-Activity-2024-03-01", doc.Filename)

	summaries := doc.Tables(BlockSummary)
	require.Len(t, summaries, 2)
	byWeek := summaries[0].Table
	require.Len(t, byWeek.Rows, 6)
	require.Equal(t, "This week", byWeek.Rows[0].Cells[0].Text)
	require.Equal(t, "2", byWeek.Rows[0].Cells[1].Number.String())
	require.Equal(t, "1", byWeek.Rows[1].Cells[1].Number.String())
	require.Equal(t, "1", byWeek.Rows[3].Cells[1].Number.String())
	require.Equal(t, "4", byWeek.Rows[5].Cells[1].Number.String())
	require.Equal(t, "1050000", byWeek.Rows[5].Cells[2].Number.String())

	byKind := summaries[1].Table
	require.Equal(t, "SAN Approved", byKind.Rows[0].Cells[0].Text)
	require.Equal(t, "2", byKind.Rows[1].Cells[1].Number.String())

	grouped := doc.Tables(BlockGrouped)
	require.Len(t, grouped, 2)
	require.Equal(t, "Elmwood", grouped[0].Title)
	riverside := grouped[1].Table
	var labels []string
	for _, r := range riverside.Rows {
		if r.Style == RowLabel {
			labels = append(labels, r.Cells[0].Text)
		}
	}
	require.Equal(t, []string{"SAN Approved", "Contract Signed", "Sale Closed"}, labels)
	last := riverside.Rows[len(riverside.Rows)-1]
	require.Equal(t, RowTotal, last.Style)
	require.Equal(t, "900000", last.Cells[5].Number.String())
}

func TestDetailBuilder(t *testing.T) {
	snap := riversideElmwood()
	snap.Developments[0].Units[0].Milestones.SANApproved = day(2023, 12, 1)
	snap.Developments[0].Units[0].Milestones.ContractSigned = day(2023, 12, 10)
	snap.Developments[0].Units[1].Milestones.ContractSigned = day(2024, 1, 10)

	_, err := BuildDetail(snap, Options{DevelopmentID: "nope"})
	require.ErrorIs(t, err, ErrDevelopmentNotFound)

	doc, err := BuildDetail(snap, Options{DevelopmentID: "riv", Now: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)})
	require.NoError(t, err)
	require.Equal(t, "Riverside-Report-2024-03-01", doc.Filename)

	summaries := doc.Tables(BlockSummary)
	require.Len(t, summaries, 3)
	kpis := summaries[0].Table
	require.Equal(t, "1749999", kpis.Rows[0].Cells[1].Number.String())
	require.Equal(t, "3", kpis.Rows[1].Cells[1].Number.String())
	require.Equal(t, "2", kpis.Rows[2].Cells[1].Number.String())
	require.Equal(t, "750000", kpis.Rows[3].Cells[1].Number.String())
	require.Equal(t, "583333", kpis.Rows[5].Cells[1].Number.String())

	status := summaries[1].Table
	require.Equal(t, "For Sale", status.Rows[0].Cells[0].Text)
	require.Equal(t, "Complete", status.Rows[1].Cells[0].Text)

	docs := summaries[2].Table
	for _, r := range docs.Rows {
		if r.Cells[0].Text == string(portfolio.MilestoneContractSigned) {
			require.Equal(t, "2", r.Cells[1].Number.String())
			require.Equal(t, "0.6667", r.Cells[3].Number.String())
		}
	}
}

func TestFilenames(t *testing.T) {
	at := time.Date(2024, 3, 1, 17, 0, 0, 0, time.UTC)
	require.Equal(t, "Lookahead-2024-03-01", Filename(KindLookahead, at))
	require.Equal(t, "Sales-Activity-2024-03-01", Filename(KindActivity, at))
	require.Equal(t, "Cash-Flow-2024-03-01", Filename(KindCashflow, at))
	require.Equal(t, "Riverside-Gardens-Phase-2-Report-2024-03-01", DevelopmentFilename("Riverside Gardens Phase 2", at))
	require.Equal(t, "Development-Report-2024-03-01", DevelopmentFilename("  ", at))
}

func TestOffsetClockIsReadAsUTC(t *testing.T) {
	// 22:00 at UTC-5 on Feb 29 is already Mar 1 in UTC.
	at := time.Date(2024, 2, 29, 22, 0, 0, 0, time.FixedZone("UTC-5", -5*3600))
	doc := BuildCashflow(riversideElmwood(), Options{Now: at})
	require.Equal(t, "Cash-Flow-2024-03-01", doc.Filename)
	require.Equal(t, time.UTC, doc.GeneratedAt.Location())
	require.True(t, doc.GeneratedAt.Equal(at))

	snap := riversideElmwood()
	snap.TakenAt = at
	doc = BuildCashflow(snap, Options{})
	require.Equal(t, "Cash-Flow-2024-03-01", doc.Filename)
	require.Equal(t, "Development-Report-2024-03-01", DevelopmentFilename("", at))
}

func TestNaturalLess(t *testing.T) {
	require.True(t, naturalLess("2", "10"))
	require.True(t, naturalLess("A2", "a10"))
	require.False(t, naturalLess("10", "2"))
	require.True(t, naturalLess("B1", "C1"))
	require.True(t, naturalLess("7", "07"))
	require.False(t, naturalLess("x", "x"))
}
