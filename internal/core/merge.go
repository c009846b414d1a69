package core

// merge.go implements the lookup merge: a left join of a reference table
// onto a primary table by a single key column, VLOOKUP style.
//
// The merge is a pure function of its inputs. It never modifies the input
// tables and holds no state between calls.

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/JonMunkholm/sheetjoin/internal/sheet"
)

// LookupSuffix is appended to every column copied from the reference table.
const LookupSuffix = "_lookup"

var (
	// ErrNoResultColumns is returned when the merge is asked to copy nothing.
	ErrNoResultColumns = errors.New("no result columns selected")

	// ErrKeyColumnNotFound is returned when a key column is not in its table.
	ErrKeyColumnNotFound = errors.New("key column not found")

	// ErrInvalidResultColumn is returned for a result column that is missing
	// from the reference table, is the reference key, or is listed twice.
	ErrInvalidResultColumn = errors.New("invalid result column")
)

// MergeRequest holds the user's selections for one merge.
type MergeRequest struct {
	PrimaryKey    string   `json:"primaryKey"`    // key column in the primary table
	ReferenceKey  string   `json:"referenceKey"`  // key column in the reference table
	ResultColumns []string `json:"resultColumns"` // reference columns to copy, in output order
}

// MergeResult is the merged table plus counts describing how rows matched.
type MergeResult struct {
	Table *sheet.Table `json:"-"`

	PrimaryRows   int `json:"primaryRows"`   // rows in the primary table
	OutputRows    int `json:"outputRows"`    // rows in the merged table
	MatchedRows   int `json:"matchedRows"`   // primary rows with at least one match
	UnmatchedRows int `json:"unmatchedRows"` // primary rows with no match
	FanOutRows    int `json:"fanOutRows"`    // extra rows produced by duplicate reference keys

	// Collisions lists appended column names that already existed in the
	// primary table. Both columns are kept in the output.
	Collisions []string `json:"collisions,omitempty"`
}

// LookupColumnName returns the output name for a copied reference column.
func LookupColumnName(column string) string {
	return column + LookupSuffix
}

// Validate checks the request's shape without looking at any table.
func (r MergeRequest) Validate() error {
	if len(r.ResultColumns) == 0 {
		return ErrNoResultColumns
	}
	if r.PrimaryKey == "" {
		return fmt.Errorf("%w: primary key column is empty", ErrKeyColumnNotFound)
	}
	if r.ReferenceKey == "" {
		return fmt.Errorf("%w: reference key column is empty", ErrKeyColumnNotFound)
	}

	seen := make(map[string]bool, len(r.ResultColumns))
	for _, c := range r.ResultColumns {
		if c == r.ReferenceKey {
			return fmt.Errorf("%w: %q is the reference key column", ErrInvalidResultColumn, c)
		}
		if seen[c] {
			return fmt.Errorf("%w: %q selected more than once", ErrInvalidResultColumn, c)
		}
		seen[c] = true
	}
	return nil
}

// validateAgainst checks that every named column exists in its table.
func (r MergeRequest) validateAgainst(primary, reference *sheet.Table) error {
	if err := r.Validate(); err != nil {
		return err
	}
	if !primary.HasColumn(r.PrimaryKey) {
		return fmt.Errorf("%w: %q is not a column of the primary file", ErrKeyColumnNotFound, r.PrimaryKey)
	}
	if !reference.HasColumn(r.ReferenceKey) {
		return fmt.Errorf("%w: %q is not a column of the reference file", ErrKeyColumnNotFound, r.ReferenceKey)
	}
	for _, c := range r.ResultColumns {
		if !reference.HasColumn(c) {
			return fmt.Errorf("%w: %q is not a column of the reference file", ErrInvalidResultColumn, c)
		}
	}
	return nil
}

// Merge left-joins the selected reference columns onto the primary table.
//
// For each primary row, in order, every reference row whose key equals the
// primary key (see sheet.Value.Equal) contributes one output row; the
// primary values are repeated as the prefix of each. A primary row with no
// match yields one output row with Null in every appended column.
//
// Output columns are the primary columns in their original order, followed
// by each result column renamed with LookupSuffix, in request order.
func Merge(primary, reference *sheet.Table, req MergeRequest) (*MergeResult, error) {
	if err := req.validateAgainst(primary, reference); err != nil {
		return nil, err
	}

	pk := primary.ColumnIndex(req.PrimaryKey)
	rk := reference.ColumnIndex(req.ReferenceKey)

	// Project the reference table down to the selected columns.
	project := make([]int, len(req.ResultColumns))
	for i, c := range req.ResultColumns {
		project[i] = reference.ColumnIndex(c)
	}

	// Hash the reference key; positions stay in file order for fan-out.
	index := make(map[string][]int, reference.Len())
	for i, row := range reference.Rows {
		k := row[rk].Key()
		index[k] = append(index[k], i)
	}

	result := &MergeResult{PrimaryRows: primary.Len()}

	columns := make([]string, 0, len(primary.Columns)+len(req.ResultColumns))
	columns = append(columns, primary.Columns...)
	for _, c := range req.ResultColumns {
		name := LookupColumnName(c)
		if primary.HasColumn(name) {
			result.Collisions = append(result.Collisions, name)
		}
		columns = append(columns, name)
	}

	width := len(columns)
	rows := make([][]sheet.Value, 0, primary.Len())
	for _, row := range primary.Rows {
		matches := index[row[pk].Key()]
		if len(matches) == 0 {
			out := make([]sheet.Value, width)
			copy(out, row)
			rows = append(rows, out)
			result.UnmatchedRows++
			continue
		}

		result.MatchedRows++
		result.FanOutRows += len(matches) - 1
		for _, m := range matches {
			out := make([]sheet.Value, width)
			n := copy(out, row)
			ref := reference.Rows[m]
			for j, col := range project {
				out[n+j] = ref[col]
			}
			rows = append(rows, out)
		}
	}

	result.Table = &sheet.Table{Columns: columns, Rows: rows}
	result.OutputRows = len(rows)

	if len(result.Collisions) > 0 {
		slog.Warn("lookup columns collide with primary columns", "columns", result.Collisions)
	}
	slog.Debug("lookup merge completed",
		"primary_rows", result.PrimaryRows,
		"output_rows", result.OutputRows,
		"matched", result.MatchedRows,
		"unmatched", result.UnmatchedRows,
		"fan_out", result.FanOutRows,
	)

	return result, nil
}
