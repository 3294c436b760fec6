package export

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/sitebook/sitebook/internal/money"
	"github.com/sitebook/sitebook/internal/reports"
)

// ContentTypeXLSX is the MIME type of workbooks.
const ContentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

const maxSheetName = 31

// Layout records where each table body starts in the sheet, so formulas can
// be resolved against it.
type Layout struct {
	Sheet   string
	Origins []reports.Origin
}

// WriteXLSX renders the document into a single-sheet workbook. Formula cells
// are written as live formulas; the spreadsheet application evaluates them.
func WriteXLSX(doc reports.Document) ([]byte, Layout, error) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	sheet := sheetName(doc.Title)
	layout := Layout{Sheet: sheet}
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return nil, layout, err
	}
	if err := f.SetDocProps(&excelize.DocProperties{
		Title:   doc.Title,
		Subject: doc.Subtitle,
		Creator: "sitebook",
		Created: doc.GeneratedAt.UTC().Format("2006-01-02T15:04:05Z"),
	}); err != nil {
		return nil, layout, err
	}
	w := &sheetWriter{f: f, sheet: sheet, styles: map[string]int{}, currency: doc.Currency}

	if err := w.set(1, 1, doc.Title, w.style("title")); err != nil {
		return nil, layout, err
	}
	if err := w.set(1, 2, doc.Subtitle, 0); err != nil {
		return nil, layout, err
	}
	row := 4
	maxCols := 1
	for _, block := range doc.Blocks {
		if block.Table == nil {
			if err := w.set(1, row, block.Title, w.style("heading")); err != nil {
				return nil, layout, err
			}
			row += 2
			continue
		}
		if block.Title != "" {
			if err := w.set(1, row, block.Title, w.style("heading")); err != nil {
				return nil, layout, err
			}
			row++
		}
		for i, col := range block.Table.Columns {
			if err := w.set(i+1, row, col.Title, w.style("header")); err != nil {
				return nil, layout, err
			}
		}
		if len(block.Table.Columns) > maxCols {
			maxCols = len(block.Table.Columns)
		}
		row++
		origin := reports.Origin{Row: row, Col: 1}
		layout.Origins = append(layout.Origins, origin)
		for _, r := range block.Table.Rows {
			for i, c := range r.Cells {
				if i >= len(block.Table.Columns) {
					break
				}
				if err := w.cell(c, r.Style, origin, i+1, row); err != nil {
					return nil, layout, err
				}
			}
			row++
		}
		row++
	}
	last, err := excelize.ColumnNumberToName(maxCols)
	if err != nil {
		return nil, layout, err
	}
	if err := f.SetColWidth(sheet, "A", "A", 28); err != nil {
		return nil, layout, err
	}
	if maxCols > 1 {
		if err := f.SetColWidth(sheet, "B", last, 14); err != nil {
			return nil, layout, err
		}
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, layout, err
	}
	return bytes.Clone(buf.Bytes()), layout, nil
}

type sheetWriter struct {
	f        *excelize.File
	sheet    string
	styles   map[string]int
	currency string
	err      error
}

func (w *sheetWriter) set(col, row int, value any, style int) error {
	name, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return err
	}
	if err := w.f.SetCellValue(w.sheet, name, value); err != nil {
		return err
	}
	return w.apply(name, style)
}

func (w *sheetWriter) apply(name string, style int) error {
	if w.err != nil {
		return w.err
	}
	if style == 0 {
		return nil
	}
	return w.f.SetCellStyle(w.sheet, name, name, style)
}

func (w *sheetWriter) cell(c reports.Cell, rowStyle reports.RowStyle, origin reports.Origin, col, row int) error {
	name, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return err
	}
	currency := w.currency
	if c.Currency != "" {
		currency = c.Currency
	}
	switch c.Kind {
	case reports.CellText:
		err = w.f.SetCellStr(w.sheet, name, c.Text)
		if err == nil {
			err = w.apply(name, w.rowStyle(rowStyle, ""))
		}
	case reports.CellNumber:
		err = w.f.SetCellValue(w.sheet, name, c.Number.InexactFloat64())
		if err == nil {
			err = w.apply(name, w.rowStyle(rowStyle, "number"))
		}
	case reports.CellPercent:
		err = w.f.SetCellValue(w.sheet, name, c.Number.InexactFloat64())
		if err == nil {
			err = w.apply(name, w.rowStyle(rowStyle, "percent"))
		}
	case reports.CellMoney:
		err = w.f.SetCellValue(w.sheet, name, money.Round(c.Number, currency).InexactFloat64())
		if err == nil {
			err = w.apply(name, w.rowStyle(rowStyle, "money:"+currency))
		}
	case reports.CellDate:
		err = w.f.SetCellValue(w.sheet, name, c.Date)
		if err == nil {
			err = w.apply(name, w.rowStyle(rowStyle, "date"))
		}
	case reports.CellFormula:
		var a1 string
		if a1, err = c.Formula.A1(origin); err == nil {
			err = w.f.SetCellFormula(w.sheet, name, a1)
		}
		if err == nil {
			err = w.apply(name, w.rowStyle(rowStyle, "money:"+currency))
		}
	default:
		err = w.apply(name, w.rowStyle(rowStyle, ""))
	}
	return err
}

// rowStyle returns a style id combining row emphasis with a number format.
func (w *sheetWriter) rowStyle(row reports.RowStyle, format string) int {
	key := string(row) + "|" + format
	if id, ok := w.styles[key]; ok {
		return id
	}
	style := &excelize.Style{}
	switch row {
	case reports.RowFlagged:
		style.Font = &excelize.Font{Color: "9B1C1C"}
		style.Fill = excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"FDE8E8"}}
	case reports.RowSubtotal:
		style.Font = &excelize.Font{Bold: true}
		style.Border = []excelize.Border{{Type: "top", Color: "9FB3C8", Style: 1}}
	case reports.RowTotal:
		style.Font = &excelize.Font{Bold: true}
		style.Fill = excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"D9E2EC"}}
		style.Border = []excelize.Border{{Type: "top", Color: "1F4E79", Style: 2}}
	case reports.RowLabel:
		style.Font = &excelize.Font{Bold: true, Color: "1F4E79"}
	}
	switch {
	case format == "number":
		style.NumFmt = 3
	case format == "percent":
		style.NumFmt = 10
	case format == "date":
		custom := "dd mmm yyyy"
		style.CustomNumFmt = &custom
	case strings.HasPrefix(format, "money:"):
		custom := moneyFormat(strings.TrimPrefix(format, "money:"))
		style.CustomNumFmt = &custom
	}
	if style.Font == nil && style.NumFmt == 0 && style.CustomNumFmt == nil && len(style.Border) == 0 {
		w.styles[key] = 0
		return 0
	}
	id, err := w.f.NewStyle(style)
	if err != nil {
		w.err = err
		return 0
	}
	w.styles[key] = id
	return id
}

func (w *sheetWriter) style(name string) int {
	if id, ok := w.styles[name]; ok {
		return id
	}
	var style *excelize.Style
	switch name {
	case "title":
		style = &excelize.Style{Font: &excelize.Font{Bold: true, Size: 14, Color: "1F4E79"}}
	case "heading":
		style = &excelize.Style{Font: &excelize.Font{Bold: true, Size: 12}}
	default:
		style = &excelize.Style{
			Font: &excelize.Font{Bold: true},
			Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"E4ECF4"}},
		}
	}
	id, err := w.f.NewStyle(style)
	if err != nil {
		w.err = err
		return 0
	}
	w.styles[name] = id
	return id
}

func moneyFormat(currency string) string {
	pattern := "#,##0"
	if scale := money.Scale(currency); scale > 0 {
		pattern += "." + strings.Repeat("0", int(scale))
	}
	return fmt.Sprintf(`"%s"%s;-"%s"%s`, money.Symbol(currency), pattern, money.Symbol(currency), pattern)
}

func sheetName(title string) string {
	name := strings.Map(func(r rune) rune {
		if strings.ContainsRune(`[]:*?/\`, r) {
			return ' '
		}
		return r
	}, title)
	name = strings.TrimSpace(name)
	if name == "" {
		name = "Report"
	}
	if len([]rune(name)) > maxSheetName {
		name = string([]rune(name)[:maxSheetName])
	}
	return name
}
