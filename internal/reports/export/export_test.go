package export

import (
	"bytes"
	"context"
	"encoding/csv"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/sitebook/sitebook/internal/portfolio"
	"github.com/sitebook/sitebook/internal/reports"
	"github.com/sitebook/sitebook/report"
)

var now = time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

func day(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

func closedUnit(id string, when *time.Time, price int64) portfolio.Unit {
	return portfolio.Unit{ID: id, Number: id, PriceIncVAT: decimal.NewFromInt(price), SalesStatus: portfolio.SalesComplete,
		Milestones: portfolio.Milestones{SaleClosed: when}}
}

func scenario() portfolio.Snapshot {
	return portfolio.Snapshot{TakenAt: now, Developments: []portfolio.Development{
		{ID: "riv", Name: "Riverside", Currency: "EUR", Units: []portfolio.Unit{
			closedUnit("A", day(2024, 1, 15), 300000),
			closedUnit("B", day(2024, 2, 10), 450000),
			{ID: "late", Number: "late", ListPrice: decimal.NewFromInt(275000), SalesStatus: portfolio.SalesForSale,
				Milestones: portfolio.Milestones{PlannedClose: day(2024, 2, 15)}},
		}},
		{ID: "elm", Name: "Elmwood", Currency: "EUR", Units: []portfolio.Unit{
			closedUnit("C", day(2024, 1, 20), 200000),
		}},
	}}
}

func rowIndex(t *testing.T, table *reports.Table, label string) int {
	t.Helper()
	for i, r := range table.Rows {
		if len(r.Cells) > 0 && r.Cells[0].Text == label {
			return i
		}
	}
	t.Fatalf("row %q not found", label)
	return -1
}

func TestXLSXFormulasEvaluate(t *testing.T) {
	doc := reports.BuildCashflow(scenario(), reports.Options{})
	data, layout, err := WriteXLSX(doc)
	require.NoError(t, err)
	require.Len(t, layout.Origins, 1)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	table := doc.Blocks[0].Table
	origin := layout.Origins[0]
	calc := func(row, col int) string {
		name, err := excelize.CoordinatesToCellName(origin.Col+col, origin.Row+row)
		require.NoError(t, err)
		formula, err := f.GetCellFormula(layout.Sheet, name)
		require.NoError(t, err)
		require.NotEmpty(t, formula, name)
		v, err := f.CalcCellValue(layout.Sheet, name, excelize.Options{RawCellValue: true})
		require.NoError(t, err)
		return v
	}
	expect := map[string][]string{
		"Riverside Subtotal": {"300000", "450000", "750000"},
		"Elmwood Subtotal":   {"200000", "0", "200000"},
		"Grand Total":        {"500000", "450000", "950000"},
	}
	for label, want := range expect {
		row := rowIndex(t, table, label)
		for i, v := range want {
			require.Equal(t, v, calc(row, i+1), "%s column %d", label, i+1)
		}
	}
}

var sumPattern = regexp.MustCompile(`^=SUM\((.*)\)$`)

// csvValue resolves a CSV cell, evaluating SUM formulas against the records.
func csvValue(t *testing.T, records [][]string, name string) decimal.Decimal {
	t.Helper()
	col, row, err := excelize.CellNameToCoordinates(name)
	require.NoError(t, err)
	if row > len(records) || col > len(records[row-1]) {
		return decimal.Zero
	}
	raw := records[row-1][col-1]
	m := sumPattern.FindStringSubmatch(raw)
	if m == nil {
		if raw == "" {
			return decimal.Zero
		}
		return decimal.RequireFromString(raw)
	}
	total := decimal.Zero
	for _, arg := range strings.Split(m[1], ",") {
		from, to, ok := strings.Cut(arg, ":")
		if !ok {
			total = total.Add(csvValue(t, records, from))
			continue
		}
		c1, r1, err := excelize.CellNameToCoordinates(from)
		require.NoError(t, err)
		c2, r2, err := excelize.CellNameToCoordinates(to)
		require.NoError(t, err)
		for r := r1; r <= r2; r++ {
			for c := c1; c <= c2; c++ {
				cell, err := excelize.CoordinatesToCellName(c, r)
				require.NoError(t, err)
				total = total.Add(csvValue(t, records, cell))
			}
		}
	}
	return total
}

func TestCSVFormulasResolveAgainstOwnRows(t *testing.T) {
	doc := reports.BuildCashflow(scenario(), reports.Options{})
	buf := &bytes.Buffer{}
	require.NoError(t, WriteCSV(buf, doc))

	reader := csv.NewReader(bytes.NewReader(buf.Bytes()))
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	require.NoError(t, err)
	require.Equal(t, []string{"Cash Flow", "All time, values inc. VAT"}, records[0])

	find := func(label string) int {
		for i, r := range records {
			if len(r) > 0 && r[0] == label {
				return i + 1
			}
		}
		t.Fatalf("missing %s", label)
		return 0
	}
	require.Equal(t, "300000.00", records[find("A")-1][1])
	require.True(t, strings.HasPrefix(records[find("Riverside Subtotal")-1][1], "=SUM("))

	grand := find("Grand Total")
	require.Equal(t, "950000", csvValue(t, records, "D"+itoa(grand)).String())
	require.Equal(t, "750000", csvValue(t, records, "D"+itoa(find("Riverside Subtotal"))).String())
	require.Equal(t, "0", csvValue(t, records, "C"+itoa(find("Elmwood Subtotal"))).String())
}

func itoa(n int) string { return decimal.NewFromInt(int64(n)).String() }

func TestCSVEscapesFormulaLikeText(t *testing.T) {
	doc := reports.Document{Title: "T", Blocks: []reports.Block{{Kind: reports.BlockSummary, Table: &reports.Table{
		Columns: []reports.Column{{Title: "Name"}},
		Rows:    []reports.Row{{Cells: []reports.Cell{reports.Text("=HYPERLINK(\"x\")")}}},
	}}}}
	buf := &bytes.Buffer{}
	require.NoError(t, WriteCSV(buf, doc))
	require.Contains(t, buf.String(), `'=HYPERLINK`)
}

type gotenbergStub struct {
	srv  *httptest.Server
	html string
	fail bool
}

func newGotenberg(t *testing.T) *gotenbergStub {
	stub := &gotenbergStub{}
	stub.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if stub.fail {
			http.Error(w, "down", http.StatusBadGateway)
			return
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parse form: %v", err)
			return
		}
		file, _, err := r.FormFile("files")
		if err != nil {
			t.Errorf("form file: %v", err)
			return
		}
		defer file.Close()
		body, _ := io.ReadAll(file)
		stub.html = string(body)
		_, _ = w.Write([]byte("%PDF"))
	}))
	t.Cleanup(stub.srv.Close)
	return stub
}

func quiet() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func TestEmitterAllFormats(t *testing.T) {
	stub := newGotenberg(t)
	renderer, err := NewPDFRenderer(report.NewClient(stub.srv.URL, 0))
	require.NoError(t, err)
	emitter := NewEmitter(renderer, quiet())

	doc := reports.BuildCashflow(scenario(), reports.Options{})
	files, err := emitter.Emit(context.Background(), doc, []reports.Format{reports.FormatPDF, reports.FormatXLSX, reports.FormatCSV})
	require.NoError(t, err)
	require.Len(t, files, 3)
	require.Equal(t, "Cash-Flow-2024-03-01.pdf", files[0].Name)
	require.Equal(t, ContentTypePDF, files[0].ContentType)
	require.Equal(t, "%PDF", string(files[0].Data))
	require.Equal(t, "Cash-Flow-2024-03-01.xlsx", files[1].Name)
	require.Equal(t, "Cash-Flow-2024-03-01.csv", files[2].Name)

	require.Contains(t, stub.html, "<h1>Cash Flow</h1>")
	require.Contains(t, stub.html, "€950,000")
	require.Contains(t, stub.html, "€750,000")
	require.Contains(t, stub.html, `class="total"`)
}

func TestLookaheadHTMLFlagsPastDue(t *testing.T) {
	stub := newGotenberg(t)
	renderer, err := NewPDFRenderer(report.NewClient(stub.srv.URL, 0))
	require.NoError(t, err)

	html, err := renderer.HTML(reports.BuildLookahead(scenario(), reports.Options{Now: now}))
	require.NoError(t, err)
	require.Contains(t, html, `<tr class="flagged">`)
	require.Contains(t, html, "15 Feb 2024")
	require.Contains(t, html, "€275,000")
}

func TestEmitterFailureReturnsNoFiles(t *testing.T) {
	stub := newGotenberg(t)
	stub.fail = true
	renderer, err := NewPDFRenderer(report.NewClient(stub.srv.URL, 0))
	require.NoError(t, err)
	emitter := NewEmitter(renderer, quiet())

	doc := reports.BuildActivity(scenario(), reports.Options{Now: now})
	files, err := emitter.Emit(context.Background(), doc, []reports.Format{reports.FormatXLSX, reports.FormatPDF})
	require.ErrorIs(t, err, reports.ErrEmitFailed)
	require.Nil(t, files)

	_, err = NewEmitter(nil, quiet()).Emit(context.Background(), doc, []reports.Format{"docx"})
	require.ErrorIs(t, err, reports.ErrUnknownFormat)
}

func TestSheetName(t *testing.T) {
	require.Equal(t, "Cash Flow", sheetName("Cash Flow"))
	require.Equal(t, "a b", sheetName("a/b"))
	require.Equal(t, "Report", sheetName(" "))
	require.Len(t, []rune(sheetName(strings.Repeat("x", 40))), 31)
}
