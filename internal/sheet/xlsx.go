package sheet

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

// readXLSX reads every worksheet of an OOXML workbook as typed cells.
func readXLSX(data []byte) ([]namedGrid, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	use1904 := false
	if props, err := f.GetWorkbookProps(); err == nil && props.Date1904 != nil {
		use1904 = *props.Date1904
	}

	r := &xlsxReader{file: f, use1904: use1904, dateStyles: make(map[int]bool)}

	var out []namedGrid
	for _, name := range f.GetSheetList() {
		cells, err := r.readSheet(name)
		if err != nil {
			return nil, fmt.Errorf("sheet %q: %w", name, err)
		}
		out = append(out, namedGrid{name: name, cells: cells})
	}
	return out, nil
}

type xlsxReader struct {
	file       *excelize.File
	use1904    bool
	dateStyles map[int]bool // style index -> number format is a date
}

func (r *xlsxReader) readSheet(sheet string) ([][]Value, error) {
	rows, err := r.file.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, err
	}

	grid := make([][]Value, len(rows))
	for i, row := range rows {
		vals := make([]Value, len(row))
		for j, raw := range row {
			if raw == "" {
				continue
			}
			cell, err := excelize.CoordinatesToCellName(j+1, i+1)
			if err != nil {
				return nil, err
			}
			v, err := r.cellValue(sheet, cell, raw)
			if err != nil {
				return nil, fmt.Errorf("cell %s: %w", cell, err)
			}
			vals[j] = v
		}
		grid[i] = vals
	}
	return grid, nil
}

// cellValue converts one raw cell into a typed Value using the cell's
// declared type and, for numbers, its number format.
func (r *xlsxReader) cellValue(sheet, cell, raw string) (Value, error) {
	typ, err := r.file.GetCellType(sheet, cell)
	if err != nil {
		return Null(), err
	}

	switch typ {
	case excelize.CellTypeBool:
		return BoolValue(raw == "1" || strings.EqualFold(raw, "true")), nil
	case excelize.CellTypeSharedString, excelize.CellTypeInlineString,
		excelize.CellTypeFormula, excelize.CellTypeError:
		return TextValue(raw), nil
	case excelize.CellTypeDate:
		if t, err := time.Parse(time.RFC3339, raw); err == nil {
			return DateValue(t), nil
		}
		if t, err := time.Parse("2006-01-02T15:04:05", raw); err == nil {
			return DateValue(t), nil
		}
		return TextValue(raw), nil
	}

	// Numeric or untyped cells.
	n, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return TextValue(raw), nil
	}
	isDate, err := r.isDateCell(sheet, cell)
	if err != nil {
		return Null(), err
	}
	if isDate {
		t, err := excelize.ExcelDateToTime(n, r.use1904)
		if err == nil {
			return DateValue(t), nil
		}
	}
	return NumberValue(n), nil
}

func (r *xlsxReader) isDateCell(sheet, cell string) (bool, error) {
	idx, err := r.file.GetCellStyle(sheet, cell)
	if err != nil {
		return false, err
	}
	if isDate, ok := r.dateStyles[idx]; ok {
		return isDate, nil
	}

	isDate := false
	if style, err := r.file.GetStyle(idx); err == nil && style != nil {
		if style.CustomNumFmt != nil {
			isDate = isDateFormat(*style.CustomNumFmt)
		} else {
			isDate = isBuiltinDateFormat(style.NumFmt)
		}
	}
	r.dateStyles[idx] = isDate
	return isDate, nil
}

// isBuiltinDateFormat reports whether a built-in number format id renders
// a date or time (ECMA-376 18.8.30, including the CJK date ids).
func isBuiltinDateFormat(id int) bool {
	switch {
	case id >= 14 && id <= 22:
		return true
	case id >= 27 && id <= 36:
		return true
	case id >= 45 && id <= 47:
		return true
	case id >= 50 && id <= 58:
		return true
	}
	return false
}

// isDateFormat reports whether a custom number format contains date or
// time tokens outside quoted literals and bracketed sections.
func isDateFormat(format string) bool {
	if strings.EqualFold(format, "general") {
		return false
	}
	inQuote, inBracket, escaped := false, false, false
	for _, c := range strings.ToLower(format) {
		switch {
		case escaped:
			escaped = false
		case c == '\\':
			escaped = true
		case c == '"':
			inQuote = !inQuote
		case inQuote:
		case c == '[':
			inBracket = true
		case c == ']':
			inBracket = false
		case inBracket:
		case strings.ContainsRune("ydmhs", c):
			return true
		}
	}
	return false
}
