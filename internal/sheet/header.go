package sheet

import "strconv"

// tableFromGrid turns the cells of one worksheet into a Table.
//
// The first row with any non-empty cell is the header. Header text is kept
// verbatim, surrounding spaces included. The table is as wide as the widest
// row, so data to the right of the last named header still gets a column;
// trailing columns with neither a header nor data are dropped. Blank header
// cells are named "Unnamed: <i>" and repeated names get ".1", ".2", ...
// suffixes so every column name is unique. Data rows that are entirely empty
// are dropped.
// A grid with no header returns nil.
func tableFromGrid(grid [][]Value) *Table {
	start := -1
	for i, row := range grid {
		if !blankRow(row) {
			start = i
			break
		}
	}
	if start < 0 {
		return nil
	}

	raw := grid[start]
	width := 0
	for _, row := range grid[start:] {
		width = max(width, len(row))
	}
	for width > 0 && cellAt(raw, width-1).IsNull() && !columnHasData(grid[start+1:], width-1) {
		width--
	}

	header := make([]string, width)
	for i := range header {
		header[i] = cellAt(raw, i).String()
	}

	t := &Table{Columns: dedupeHeader(header)}
	t.Rows = make([][]Value, 0, len(grid)-start-1)
	for _, row := range grid[start+1:] {
		if blankRow(row) {
			continue
		}
		out := make([]Value, width)
		copy(out, row)
		t.Rows = append(t.Rows, out)
	}
	return t
}

// cellAt returns row[i], or Null past the end of a short row.
func cellAt(row []Value, i int) Value {
	if i < len(row) {
		return row[i]
	}
	return Null()
}

func dedupeHeader(header []string) []string {
	out := make([]string, len(header))
	used := make(map[string]bool, len(header))
	next := make(map[string]int)
	for i, name := range header {
		if name == "" {
			name = "Unnamed: " + strconv.Itoa(i)
		}
		candidate := name
		for used[candidate] {
			next[name]++
			candidate = name + "." + strconv.Itoa(next[name])
		}
		used[candidate] = true
		out[i] = candidate
	}
	return out
}

func blankRow(row []Value) bool {
	for _, v := range row {
		if !v.IsNull() {
			return false
		}
	}
	return true
}

func columnHasData(rows [][]Value, col int) bool {
	for _, row := range rows {
		if col < len(row) && !row[col].IsNull() {
			return true
		}
	}
	return false
}
