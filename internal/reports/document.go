// Package reports turns a portfolio snapshot into report documents: the
// look-ahead schedule, the sales-activity digest, the cash-flow sheet and the
// single development report.
package reports

import (
	"time"

	"github.com/shopspring/decimal"
)

// Kind identifies a report type.
type Kind string

const (
	KindLookahead Kind = "lookahead"
	KindActivity  Kind = "activity"
	KindCashflow  Kind = "cashflow"
	KindDetail    Kind = "detail"
)

// Document is the ordered block model handed to an emitter.
type Document struct {
	Kind        Kind      `json:"kind"`
	Title       string    `json:"title"`
	Subtitle    string    `json:"subtitle,omitempty"`
	Currency    string    `json:"currency"`
	GeneratedAt time.Time `json:"generatedAt"`
	// Filename is the download name without extension.
	Filename string  `json:"filename"`
	Blocks   []Block `json:"blocks"`
}

// BlockKind enumerates the document block types.
type BlockKind string

const (
	BlockHeading BlockKind = "heading"
	BlockSummary BlockKind = "summary"
	BlockGrouped BlockKind = "grouped"
	BlockFormula BlockKind = "formula"
)

// Block is one section of a document. Heading blocks carry only Title; the
// table kinds carry a Table.
type Block struct {
	Kind  BlockKind `json:"kind"`
	Title string    `json:"title,omitempty"`
	Level int       `json:"level,omitempty"`
	Table *Table    `json:"table,omitempty"`
}

// Align is the horizontal alignment hint of a column.
type Align string

const (
	AlignLeft  Align = "left"
	AlignRight Align = "right"
)

// Column describes a table column.
type Column struct {
	Title string `json:"title"`
	Align Align  `json:"align"`
}

// RowStyle drives visual treatment in emitted documents.
type RowStyle string

const (
	RowNormal   RowStyle = "normal"
	RowFlagged  RowStyle = "flagged"
	RowSubtotal RowStyle = "subtotal"
	RowTotal    RowStyle = "total"
	RowLabel    RowStyle = "label"
	RowSpacer   RowStyle = "spacer"
)

// Row is a table row. Cells align with the table columns; spacer rows may be empty.
type Row struct {
	Style RowStyle `json:"style"`
	Cells []Cell   `json:"cells"`
}

// CellKind enumerates cell value types.
type CellKind string

const (
	CellBlank   CellKind = "blank"
	CellText    CellKind = "text"
	CellNumber  CellKind = "number"
	CellMoney   CellKind = "money"
	CellPercent CellKind = "percent"
	CellDate    CellKind = "date"
	CellFormula CellKind = "formula"
)

// Cell is a typed table value. Formula cells reference other cells of the same table.
type Cell struct {
	Kind     CellKind        `json:"kind"`
	Text     string          `json:"text,omitempty"`
	Number   decimal.Decimal `json:"number"`
	Date     time.Time       `json:"date,omitempty"`
	Currency string          `json:"currency,omitempty"`
	Formula  *Formula        `json:"formula,omitempty"`
}

// Table is a header plus rows.
type Table struct {
	Columns []Column `json:"columns"`
	Rows    []Row    `json:"rows"`
}

// Blank returns an empty cell.
func Blank() Cell { return Cell{Kind: CellBlank} }

// Text returns a text cell.
func Text(s string) Cell { return Cell{Kind: CellText, Text: s} }

// Int returns a whole-number cell.
func Int(n int) Cell { return Cell{Kind: CellNumber, Number: decimal.NewFromInt(int64(n))} }

// Money returns a currency cell.
func Money(v decimal.Decimal, currency string) Cell {
	return Cell{Kind: CellMoney, Number: v, Currency: currency}
}

// Percent returns a percentage cell; v is a fraction in [0,1].
func Percent(v decimal.Decimal) Cell { return Cell{Kind: CellPercent, Number: v} }

// Date returns a date cell, or a blank one for a zero time.
func Date(t time.Time) Cell {
	if t.IsZero() {
		return Blank()
	}
	return Cell{Kind: CellDate, Date: t}
}

// FormulaCell returns a cell whose value is computed from f.
func FormulaCell(f Formula, currency string) Cell {
	return Cell{Kind: CellFormula, Formula: &f, Currency: currency}
}

// Heading appends a heading block.
func (d *Document) Heading(title string, level int) {
	d.Blocks = append(d.Blocks, Block{Kind: BlockHeading, Title: title, Level: level})
}

// Add appends a table block.
func (d *Document) Add(kind BlockKind, title string, table *Table) {
	d.Blocks = append(d.Blocks, Block{Kind: kind, Title: title, Table: table})
}

// Tables returns every table block of the given kind, in order.
func (d Document) Tables(kind BlockKind) []Block {
	var out []Block
	for _, b := range d.Blocks {
		if b.Kind == kind && b.Table != nil {
			out = append(out, b)
		}
	}
	return out
}

// Append adds a row and returns its zero-based index.
func (t *Table) Append(style RowStyle, cells ...Cell) int {
	t.Rows = append(t.Rows, Row{Style: style, Cells: cells})
	return len(t.Rows) - 1
}

// HasFormulas reports whether any cell is a formula.
func (t *Table) HasFormulas() bool {
	for _, r := range t.Rows {
		for _, c := range r.Cells {
			if c.Kind == CellFormula {
				return true
			}
		}
	}
	return false
}

func leftCol(title string) Column  { return Column{Title: title, Align: AlignLeft} }
func rightCol(title string) Column { return Column{Title: title, Align: AlignRight} }
