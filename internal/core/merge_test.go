package core

import (
	"errors"
	"testing"

	"github.com/JonMunkholm/sheetjoin/internal/sheet"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func txt(s string) sheet.Value  { return sheet.TextValue(s) }
func num(f float64) sheet.Value { return sheet.NumberValue(f) }

func table(cols []string, rows ...[]sheet.Value) *sheet.Table {
	if rows == nil {
		rows = [][]sheet.Value{}
	}
	return &sheet.Table{Columns: cols, Rows: rows}
}

// dropLookup removes every appended column, leaving the primary prefix.
func dropLookup(t *sheet.Table, width int) *sheet.Table {
	out := &sheet.Table{Columns: t.Columns[:width], Rows: make([][]sheet.Value, len(t.Rows))}
	for i, row := range t.Rows {
		out.Rows[i] = row[:width]
	}
	return out
}

func TestMerge_PIDScenario(t *testing.T) {
	a := table([]string{"PID", "name"},
		[]sheet.Value{txt("1"), txt("x")},
		[]sheet.Value{txt("2"), txt("y")},
	)
	b := table([]string{"PID", "age"},
		[]sheet.Value{txt("1"), num(30)},
	)

	res, err := Merge(a, b, MergeRequest{PrimaryKey: "PID", ReferenceKey: "PID", ResultColumns: []string{"age"}})
	require.NoError(t, err)

	assert.Equal(t, []string{"PID", "name", "age_lookup"}, res.Table.Columns)
	require.Len(t, res.Table.Rows, 2)
	assert.Equal(t, []sheet.Value{txt("1"), txt("x"), num(30)}, res.Table.Rows[0])
	assert.Equal(t, []sheet.Value{txt("2"), txt("y"), sheet.Null()}, res.Table.Rows[1])

	assert.Equal(t, 2, res.PrimaryRows)
	assert.Equal(t, 2, res.OutputRows)
	assert.Equal(t, 1, res.MatchedRows)
	assert.Equal(t, 1, res.UnmatchedRows)
	assert.Equal(t, 0, res.FanOutRows)
	assert.Empty(t, res.Collisions)
}

func TestMerge_FanOut(t *testing.T) {
	a := table([]string{"PID", "name"},
		[]sheet.Value{txt("1"), txt("x")},
		[]sheet.Value{txt("2"), txt("y")},
	)
	b := table([]string{"PID", "age"},
		[]sheet.Value{txt("1"), num(30)},
		[]sheet.Value{txt("3"), num(99)},
		[]sheet.Value{txt("1"), num(31)},
	)

	res, err := Merge(a, b, MergeRequest{PrimaryKey: "PID", ReferenceKey: "PID", ResultColumns: []string{"age"}})
	require.NoError(t, err)

	require.Len(t, res.Table.Rows, 3)
	// One row per match, in reference file order, sharing the primary values.
	assert.Equal(t, []sheet.Value{txt("1"), txt("x"), num(30)}, res.Table.Rows[0])
	assert.Equal(t, []sheet.Value{txt("1"), txt("x"), num(31)}, res.Table.Rows[1])
	assert.Equal(t, []sheet.Value{txt("2"), txt("y"), sheet.Null()}, res.Table.Rows[2])

	assert.Equal(t, 3, res.OutputRows)
	assert.Equal(t, 1, res.FanOutRows)
	assert.Greater(t, res.OutputRows, res.PrimaryRows)
}

func TestMerge_EmptySelection(t *testing.T) {
	a := table([]string{"PID"}, []sheet.Value{txt("1")})
	b := table([]string{"PID", "age"}, []sheet.Value{txt("1"), num(30)})

	res, err := Merge(a, b, MergeRequest{PrimaryKey: "PID", ReferenceKey: "PID"})
	assert.ErrorIs(t, err, ErrNoResultColumns)
	assert.Nil(t, res)
	assert.Equal(t, LevelWarning, MapError(err).Level)
}

func TestMerge_DroppingLookupColumnsReproducesPrimary(t *testing.T) {
	a := table([]string{"id", "city", "score"},
		[]sheet.Value{num(1), txt("Oslo"), num(3.5)},
		[]sheet.Value{num(2), txt("Bergen"), sheet.Null()},
		[]sheet.Value{num(3), txt("Oslo"), num(7)},
		[]sheet.Value{sheet.Null(), txt("none"), num(0)},
	)
	b := table([]string{"ref_id", "label", "flag"},
		[]sheet.Value{num(3), txt("three"), sheet.BoolValue(true)},
		[]sheet.Value{num(1), txt("one"), sheet.BoolValue(false)},
	)

	res, err := Merge(a, b, MergeRequest{PrimaryKey: "id", ReferenceKey: "ref_id", ResultColumns: []string{"flag", "label"}})
	require.NoError(t, err)

	// Unique reference keys: same row count, and the prefix is A itself.
	assert.Equal(t, a.Len(), res.OutputRows)
	assert.Equal(t, a, dropLookup(res.Table, len(a.Columns)))

	// Appended columns follow request order.
	assert.Equal(t, []string{"id", "city", "score", "flag_lookup", "label_lookup"}, res.Table.Columns)
	assert.Equal(t, []sheet.Value{sheet.BoolValue(false), txt("one")}, res.Table.Rows[0][3:])
	assert.Equal(t, []sheet.Value{sheet.Null(), sheet.Null()}, res.Table.Rows[1][3:])
}

func TestMerge_AppendedNamesAlwaysSuffixed(t *testing.T) {
	a := table([]string{"k"}, []sheet.Value{txt("a")})
	b := table([]string{"k", "x", "y_lookup"},
		[]sheet.Value{txt("a"), num(1), num(2)},
	)

	res, err := Merge(a, b, MergeRequest{PrimaryKey: "k", ReferenceKey: "k", ResultColumns: []string{"x", "y_lookup"}})
	require.NoError(t, err)

	for _, c := range res.Table.Columns[1:] {
		assert.Regexp(t, LookupSuffix+"$", c)
	}
	assert.Equal(t, []string{"k", "x_lookup", "y_lookup_lookup"}, res.Table.Columns)
}

func TestMerge_Collisions(t *testing.T) {
	a := table([]string{"PID", "age_lookup"}, []sheet.Value{txt("1"), num(1)})
	b := table([]string{"PID", "age"}, []sheet.Value{txt("1"), num(30)})

	res, err := Merge(a, b, MergeRequest{PrimaryKey: "PID", ReferenceKey: "PID", ResultColumns: []string{"age"}})
	require.NoError(t, err)

	assert.Equal(t, []string{"age_lookup"}, res.Collisions)
	assert.Equal(t, []string{"PID", "age_lookup", "age_lookup"}, res.Table.Columns)
	assert.Equal(t, []sheet.Value{txt("1"), num(1), num(30)}, res.Table.Rows[0])
}

func TestMerge_KeyEquality(t *testing.T) {
	tests := []struct {
		name      string
		primary   sheet.Value
		reference sheet.Value
		match     bool
	}{
		{"identical text", txt("000123"), txt("000123"), true},
		{"zero padded text vs number", txt("000123"), num(123), false},
		{"number vs its text form", num(123), txt("123"), false},
		{"equal numbers", num(1), num(1.0), true},
		{"text is case sensitive", txt("abc"), txt("ABC"), false},
		{"null matches null", sheet.Null(), sheet.Null(), true},
		{"null does not match empty text", sheet.Null(), txt(""), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := table([]string{"k"}, []sheet.Value{tt.primary})
			b := table([]string{"k", "v"}, []sheet.Value{tt.reference, txt("hit")})

			res, err := Merge(a, b, MergeRequest{PrimaryKey: "k", ReferenceKey: "k", ResultColumns: []string{"v"}})
			require.NoError(t, err)
			require.Len(t, res.Table.Rows, 1)

			if tt.match {
				assert.Equal(t, txt("hit"), res.Table.Rows[0][1])
				assert.Equal(t, 1, res.MatchedRows)
			} else {
				assert.True(t, res.Table.Rows[0][1].IsNull())
				assert.Equal(t, 1, res.UnmatchedRows)
			}
		})
	}
}

func TestMerge_DoesNotModifyInputs(t *testing.T) {
	a := table([]string{"PID"}, []sheet.Value{txt("1")})
	b := table([]string{"PID", "age"}, []sheet.Value{txt("1"), num(30)})

	_, err := Merge(a, b, MergeRequest{PrimaryKey: "PID", ReferenceKey: "PID", ResultColumns: []string{"age"}})
	require.NoError(t, err)

	assert.Equal(t, []string{"PID"}, a.Columns)
	assert.Len(t, a.Rows[0], 1)
	assert.Equal(t, []string{"PID", "age"}, b.Columns)
}

func TestMerge_EmptyTables(t *testing.T) {
	a := table([]string{"PID", "name"})
	b := table([]string{"PID", "age"}, []sheet.Value{txt("1"), num(30)})

	res, err := Merge(a, b, MergeRequest{PrimaryKey: "PID", ReferenceKey: "PID", ResultColumns: []string{"age"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"PID", "name", "age_lookup"}, res.Table.Columns)
	assert.Empty(t, res.Table.Rows)

	a = table([]string{"PID"}, []sheet.Value{txt("1")})
	b = table([]string{"PID", "age"})
	res, err = Merge(a, b, MergeRequest{PrimaryKey: "PID", ReferenceKey: "PID", ResultColumns: []string{"age"}})
	require.NoError(t, err)
	assert.Equal(t, 1, res.UnmatchedRows)
}

func TestMergeRequest_Errors(t *testing.T) {
	a := table([]string{"PID", "name"}, []sheet.Value{txt("1"), txt("x")})
	b := table([]string{"ID", "age"}, []sheet.Value{txt("1"), num(30)})

	tests := []struct {
		name string
		req  MergeRequest
		want error
	}{
		{"empty selection wins over missing keys", MergeRequest{}, ErrNoResultColumns},
		{"empty primary key", MergeRequest{ReferenceKey: "ID", ResultColumns: []string{"age"}}, ErrKeyColumnNotFound},
		{"empty reference key", MergeRequest{PrimaryKey: "PID", ResultColumns: []string{"age"}}, ErrKeyColumnNotFound},
		{"primary key missing", MergeRequest{PrimaryKey: "nope", ReferenceKey: "ID", ResultColumns: []string{"age"}}, ErrKeyColumnNotFound},
		{"reference key missing", MergeRequest{PrimaryKey: "PID", ReferenceKey: "PID", ResultColumns: []string{"age"}}, ErrKeyColumnNotFound},
		{"result column missing", MergeRequest{PrimaryKey: "PID", ReferenceKey: "ID", ResultColumns: []string{"name"}}, ErrInvalidResultColumn},
		{"result column is reference key", MergeRequest{PrimaryKey: "PID", ReferenceKey: "ID", ResultColumns: []string{"ID"}}, ErrInvalidResultColumn},
		{"duplicate result column", MergeRequest{PrimaryKey: "PID", ReferenceKey: "ID", ResultColumns: []string{"age", "age"}}, ErrInvalidResultColumn},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := Merge(a, b, tt.req)
			assert.Nil(t, res)
			if !errors.Is(err, tt.want) {
				t.Errorf("Merge() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestLookupColumnName(t *testing.T) {
	assert.Equal(t, "Name_lookup", LookupColumnName("Name"))
}
