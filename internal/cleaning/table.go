package cleaning

import (
	"math"
	"strconv"
	"strings"
	"time"
)

// ColumnKind classifies the scalar kind a column holds.
type ColumnKind string

const (
	KindNumeric     ColumnKind = "numeric"
	KindText        ColumnKind = "text"
	KindTemporal    ColumnKind = "temporal"
	KindCategorical ColumnKind = "categorical"
)

// CellKind tags the concrete value stored in a cell.
type CellKind uint8

const (
	CellMissing CellKind = iota
	CellNumber
	CellText
	CellTime
)

// Cell is a single table value. A missing cell has kind CellMissing;
// a blank cell is a text cell whose trimmed form is empty. Both count
// as missing for quality scoring.
type Cell struct {
	Kind CellKind
	Num  float64
	Str  string
	Time time.Time
}

// Missing returns the missing cell marker.
func Missing() Cell { return Cell{Kind: CellMissing} }

// Number returns a numeric cell.
func Number(v float64) Cell { return Cell{Kind: CellNumber, Num: v} }

// Text returns a text cell.
func Text(s string) Cell { return Cell{Kind: CellText, Str: s} }

// Timestamp returns a temporal cell.
func Timestamp(t time.Time) Cell { return Cell{Kind: CellTime, Time: t} }

// CellFromString parses a raw string into a cell. Numbers are detected
// eagerly; dates are not (temporal values only appear via dtype coercion,
// the way the loader leaves date columns as text until asked).
// ParseFloat accepts "NaN" and "Inf" spellings; those stay text so that
// medians and z-scores only ever see finite numbers.
func CellFromString(raw string) Cell {
	trimmed := strings.TrimSpace(raw)
	if trimmed != "" {
		if v, err := strconv.ParseFloat(trimmed, 64); err == nil && !math.IsNaN(v) && !math.IsInf(v, 0) {
			return Number(v)
		}
	}
	return Text(raw)
}

// IsMissing reports whether the cell is absent.
func (c Cell) IsMissing() bool { return c.Kind == CellMissing }

// IsBlank reports whether the cell is present but empty after trimming.
func (c Cell) IsBlank() bool {
	return c.Kind == CellText && strings.TrimSpace(c.Str) == ""
}

// String renders the cell the way it is written to CSV output.
// Missing cells render as the empty string.
func (c Cell) String() string {
	switch c.Kind {
	case CellNumber:
		return strconv.FormatFloat(c.Num, 'g', -1, 64)
	case CellText:
		return c.Str
	case CellTime:
		return c.Time.Format("2006-01-02 15:04:05")
	default:
		return ""
	}
}

// keyString renders the cell for row-identity comparison. Unlike String,
// it keeps missing distinguishable from an empty text cell.
func (c Cell) keyString() string {
	if c.Kind == CellMissing {
		return "\x00missing"
	}
	return c.String()
}

// Column is a named, ordered sequence of cells. Kind, when set, records
// a coercion target; otherwise the kind is inferred from the data.
type Column struct {
	Name  string
	Kind  ColumnKind
	Cells []Cell
}

// InferKind returns the declared kind when one was set by coercion, else
// the majority kind of the non-missing cells. An all-missing column
// counts as text.
func (c *Column) InferKind() ColumnKind {
	if c.Kind != "" {
		return c.Kind
	}
	var numbers, times, present int
	for _, cell := range c.Cells {
		switch cell.Kind {
		case CellNumber:
			numbers++
			present++
		case CellTime:
			times++
			present++
		case CellText:
			if !cell.IsBlank() {
				present++
			}
		}
	}
	if present == 0 {
		return KindText
	}
	if numbers*2 > present {
		return KindNumeric
	}
	if times*2 > present {
		return KindTemporal
	}
	return KindText
}

// IsNumeric reports whether the column holds numeric data.
func (c *Column) IsNumeric() bool { return c.InferKind() == KindNumeric }

// Table is an ordered collection of named columns of equal length.
type Table struct {
	Name    string
	Columns []Column
}

// NewTable builds a table from raw header and row strings. Short rows are
// padded with blank cells so every column has the same length.
func NewTable(name string, headers []string, rows [][]string) *Table {
	t := &Table{Name: name, Columns: make([]Column, len(headers))}
	for i, h := range headers {
		t.Columns[i] = Column{
			Name:  strings.TrimSpace(h),
			Cells: make([]Cell, len(rows)),
		}
	}
	for r, row := range rows {
		for c := range headers {
			if c < len(row) {
				t.Columns[c].Cells[r] = CellFromString(row[c])
			} else {
				t.Columns[c].Cells[r] = Text("")
			}
		}
	}
	return t
}

// RowCount returns the number of rows.
func (t *Table) RowCount() int {
	if len(t.Columns) == 0 {
		return 0
	}
	return len(t.Columns[0].Cells)
}

// ColumnCount returns the number of columns.
func (t *Table) ColumnCount() int { return len(t.Columns) }

// Column returns the column with the given name, or nil.
func (t *Table) Column(name string) *Column {
	for i := range t.Columns {
		if t.Columns[i].Name == name {
			return &t.Columns[i]
		}
	}
	return nil
}

// Headers returns the column names in order.
func (t *Table) Headers() []string {
	names := make([]string, len(t.Columns))
	for i := range t.Columns {
		names[i] = t.Columns[i].Name
	}
	return names
}

// NumericColumns returns the names of all numeric columns in order.
func (t *Table) NumericColumns() []string {
	var names []string
	for i := range t.Columns {
		if t.Columns[i].IsNumeric() {
			names = append(names, t.Columns[i].Name)
		}
	}
	return names
}

// TextColumns returns the names of all non-numeric, non-temporal columns.
func (t *Table) TextColumns() []string {
	var names []string
	for i := range t.Columns {
		switch t.Columns[i].InferKind() {
		case KindText, KindCategorical:
			names = append(names, t.Columns[i].Name)
		}
	}
	return names
}

// Clone returns a deep copy. The pipeline always works on a clone so the
// caller's table is never mutated.
func (t *Table) Clone() *Table {
	out := &Table{Name: t.Name, Columns: make([]Column, len(t.Columns))}
	for i, col := range t.Columns {
		cells := make([]Cell, len(col.Cells))
		copy(cells, col.Cells)
		out.Columns[i] = Column{Name: col.Name, Kind: col.Kind, Cells: cells}
	}
	return out
}

// rowKey renders a row identity over the given column indexes.
func (t *Table) rowKey(row int, cols []int) string {
	parts := make([]string, len(cols))
	for i, c := range cols {
		parts[i] = t.Columns[c].Cells[row].keyString()
	}
	return strings.Join(parts, "\x1f")
}

// selectRows keeps only the rows whose flag is true, preserving order.
func (t *Table) selectRows(keep []bool) {
	for i := range t.Columns {
		cells := t.Columns[i].Cells[:0]
		for r, cell := range t.Columns[i].Cells {
			if keep[r] {
				cells = append(cells, cell)
			}
		}
		t.Columns[i].Cells = cells
	}
}

// takeRows returns a new table holding the given rows in the given order.
func (t *Table) takeRows(rows []int) *Table {
	out := &Table{Name: t.Name, Columns: make([]Column, len(t.Columns))}
	for i, col := range t.Columns {
		cells := make([]Cell, len(rows))
		for j, r := range rows {
			cells[j] = col.Cells[r]
		}
		out.Columns[i] = Column{Name: col.Name, Kind: col.Kind, Cells: cells}
	}
	return out
}

// reorderRows permutes rows in place according to order, which must hold
// each row index exactly once.
func (t *Table) reorderRows(order []int) {
	for i := range t.Columns {
		cells := make([]Cell, len(order))
		for j, r := range order {
			cells[j] = t.Columns[i].Cells[r]
		}
		t.Columns[i].Cells = cells
	}
}
