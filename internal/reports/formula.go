package reports

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

// CellRef addresses a body cell of a table by zero-based row and column.
type CellRef struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

// CellRange is an inclusive rectangle of body cells.
type CellRange struct {
	From CellRef `json:"from"`
	To   CellRef `json:"to"`
}

// Operand is either a single reference or a range.
type Operand struct {
	Ref   *CellRef   `json:"ref,omitempty"`
	Range *CellRange `json:"range,omitempty"`
}

// Formula is an aggregate over table cells. Only SUM is produced.
type Formula struct {
	Fn   string    `json:"fn"`
	Args []Operand `json:"args"`
}

// Origin is the 1-based sheet position of body cell (0,0).
type Origin struct {
	Row int
	Col int
}

var (
	// ErrFormulaCycle is returned when formulas reference each other circularly.
	ErrFormulaCycle = errors.New("reports: circular formula reference")
	// ErrBadReference is returned for references outside the table.
	ErrBadReference = errors.New("reports: formula references a cell outside the table")
)

// Ref is an operand for one cell.
func Ref(row, col int) Operand {
	return Operand{Ref: &CellRef{Row: row, Col: col}}
}

// ColumnSpan covers rows first..last of one column.
func ColumnSpan(col, first, last int) Operand {
	return Operand{Range: &CellRange{From: CellRef{Row: first, Col: col}, To: CellRef{Row: last, Col: col}}}
}

// RowSpan covers columns first..last of one row.
func RowSpan(row, first, last int) Operand {
	return Operand{Range: &CellRange{From: CellRef{Row: row, Col: first}, To: CellRef{Row: row, Col: last}}}
}

// Sum builds a SUM formula.
func Sum(args ...Operand) Formula {
	return Formula{Fn: "SUM", Args: args}
}

// A1 renders the formula in spreadsheet notation, without the leading '='.
func (f Formula) A1(origin Origin) (string, error) {
	parts := make([]string, 0, len(f.Args))
	for _, arg := range f.Args {
		switch {
		case arg.Ref != nil:
			name, err := cellName(*arg.Ref, origin)
			if err != nil {
				return "", err
			}
			parts = append(parts, name)
		case arg.Range != nil:
			from, err := cellName(arg.Range.From, origin)
			if err != nil {
				return "", err
			}
			to, err := cellName(arg.Range.To, origin)
			if err != nil {
				return "", err
			}
			parts = append(parts, from+":"+to)
		}
	}
	return fmt.Sprintf("%s(%s)", f.Fn, strings.Join(parts, ",")), nil
}

func cellName(ref CellRef, origin Origin) (string, error) {
	return excelize.CoordinatesToCellName(origin.Col+ref.Col, origin.Row+ref.Row)
}

// Values holds evaluated cell values by row and column.
type Values [][]decimal.Decimal

// At returns the value at row, col, or zero when out of range.
func (v Values) At(row, col int) decimal.Decimal {
	if row < 0 || row >= len(v) || col < 0 || col >= len(v[row]) {
		return decimal.Zero
	}
	return v[row][col]
}

// Evaluate computes every cell of the table. Numeric cells yield their value,
// formulas are resolved recursively and everything else is zero.
func (t *Table) Evaluate() (Values, error) {
	ev := evaluator{table: t, values: make(Values, len(t.Rows)), state: make([][]uint8, len(t.Rows))}
	for i, row := range t.Rows {
		ev.values[i] = make([]decimal.Decimal, len(row.Cells))
		ev.state[i] = make([]uint8, len(row.Cells))
	}
	for i, row := range t.Rows {
		for j := range row.Cells {
			if _, err := ev.cell(CellRef{Row: i, Col: j}); err != nil {
				return nil, err
			}
		}
	}
	return ev.values, nil
}

const (
	pending uint8 = iota
	visiting
	done
)

type evaluator struct {
	table  *Table
	values Values
	state  [][]uint8
}

func (e *evaluator) cell(ref CellRef) (decimal.Decimal, error) {
	if ref.Row < 0 || ref.Row >= len(e.table.Rows) {
		return decimal.Zero, fmt.Errorf("%w: row %d", ErrBadReference, ref.Row)
	}
	cells := e.table.Rows[ref.Row].Cells
	if ref.Col < 0 || ref.Col >= len(e.table.Columns) {
		return decimal.Zero, fmt.Errorf("%w: column %d", ErrBadReference, ref.Col)
	}
	if ref.Col >= len(cells) {
		return decimal.Zero, nil
	}
	switch e.state[ref.Row][ref.Col] {
	case done:
		return e.values[ref.Row][ref.Col], nil
	case visiting:
		return decimal.Zero, ErrFormulaCycle
	}
	e.state[ref.Row][ref.Col] = visiting
	c := cells[ref.Col]
	var v decimal.Decimal
	switch c.Kind {
	case CellNumber, CellMoney, CellPercent:
		v = c.Number
	case CellFormula:
		var err error
		if v, err = e.formula(*c.Formula); err != nil {
			return decimal.Zero, err
		}
	}
	e.values[ref.Row][ref.Col] = v
	e.state[ref.Row][ref.Col] = done
	return v, nil
}

func (e *evaluator) formula(f Formula) (decimal.Decimal, error) {
	if f.Fn != "SUM" {
		return decimal.Zero, fmt.Errorf("reports: unsupported formula %s", f.Fn)
	}
	total := decimal.Zero
	for _, arg := range f.Args {
		var refs []CellRef
		switch {
		case arg.Ref != nil:
			refs = []CellRef{*arg.Ref}
		case arg.Range != nil:
			for r := arg.Range.From.Row; r <= arg.Range.To.Row; r++ {
				for c := arg.Range.From.Col; c <= arg.Range.To.Col; c++ {
					refs = append(refs, CellRef{Row: r, Col: c})
				}
			}
		}
		for _, ref := range refs {
			v, err := e.cell(ref)
			if err != nil {
				return decimal.Zero, err
			}
			total = total.Add(v)
		}
	}
	return total, nil
}
