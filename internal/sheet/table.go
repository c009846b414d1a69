// Package sheet reads spreadsheet workbooks into flat tables and writes
// tables back out as single-sheet workbooks.
//
// A [Table] is an ordered list of column names plus positional rows of
// [Value]. Workbooks with several sheets are flattened by [Load] into one
// table, sheets concatenated in file order.
package sheet

import "fmt"

// DefaultPreviewRows is the number of rows returned by Head when n <= 0.
const DefaultPreviewRows = 5

// Table is an in-memory spreadsheet: a header plus data rows.
// Every row has exactly len(Columns) values.
type Table struct {
	Columns []string  `json:"columns"`
	Rows    [][]Value `json:"rows"`
}

// Empty returns a table with no columns and no rows. The loader returns
// it alongside an error when a workbook cannot be used.
func Empty() *Table {
	return &Table{Columns: []string{}, Rows: [][]Value{}}
}

// Len returns the number of data rows.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// IsEmpty reports whether the table has no data rows.
func (t *Table) IsEmpty() bool {
	return t.Len() == 0
}

// ColumnIndex returns the position of the named column, or -1.
func (t *Table) ColumnIndex(name string) int {
	if t == nil {
		return -1
	}
	for i, c := range t.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// HasColumn reports whether the named column exists.
func (t *Table) HasColumn(name string) bool {
	return t.ColumnIndex(name) >= 0
}

// Get returns the value at row i in the named column.
func (t *Table) Get(i int, column string) (Value, error) {
	idx := t.ColumnIndex(column)
	if idx < 0 {
		return Null(), fmt.Errorf("column not found: %q", column)
	}
	if i < 0 || i >= t.Len() {
		return Null(), fmt.Errorf("row %d out of range (rows: %d)", i, t.Len())
	}
	return t.Rows[i][idx], nil
}

// Head returns a table holding the first n rows (DefaultPreviewRows when n <= 0).
// Rows are shared with the receiver, not copied.
func (t *Table) Head(n int) *Table {
	if n <= 0 {
		n = DefaultPreviewRows
	}
	if t == nil {
		return Empty()
	}
	if n > len(t.Rows) {
		n = len(t.Rows)
	}
	return &Table{Columns: t.Columns, Rows: t.Rows[:n]}
}

// Concat stacks tables vertically in the order given.
//
// The result's columns are the union of all input columns in order of first
// appearance; rows coming from a table without a given column hold Null there.
// A single input is returned as-is.
func Concat(tables ...*Table) *Table {
	if len(tables) == 1 {
		return tables[0]
	}

	out := Empty()
	pos := make(map[string]int)
	total := 0
	for _, t := range tables {
		if t == nil {
			continue
		}
		total += t.Len()
		for _, c := range t.Columns {
			if _, ok := pos[c]; !ok {
				pos[c] = len(out.Columns)
				out.Columns = append(out.Columns, c)
			}
		}
	}

	out.Rows = make([][]Value, 0, total)
	for _, t := range tables {
		if t == nil {
			continue
		}
		target := make([]int, len(t.Columns))
		for i, c := range t.Columns {
			target[i] = pos[c]
		}
		for _, row := range t.Rows {
			merged := make([]Value, len(out.Columns))
			for i, v := range row {
				merged[target[i]] = v
			}
			out.Rows = append(out.Rows, merged)
		}
	}
	return out
}
