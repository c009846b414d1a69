package sheet

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/extrame/xls"
)

// readXLS reads a legacy BIFF workbook. The xls decoder hands back display
// strings rather than typed cells, so numbers are recovered with
// legacyCellValue. The decoder panics on some malformed files; that is
// turned into an error here.
func readXLS(data []byte) (sheets []namedGrid, err error) {
	defer func() {
		if r := recover(); r != nil {
			sheets = nil
			err = fmt.Errorf("corrupt xls workbook: %v", r)
		}
	}()

	wb, err := xls.OpenReader(bytes.NewReader(data), "utf-8")
	if err != nil {
		return nil, err
	}

	for i := 0; i < wb.NumSheets(); i++ {
		ws := wb.GetSheet(i)
		if ws == nil {
			continue
		}
		grid := make([][]Value, 0, int(ws.MaxRow)+1)
		for r := 0; r <= int(ws.MaxRow); r++ {
			row := ws.Row(r)
			if row == nil {
				grid = append(grid, nil)
				continue
			}
			last := row.LastCol()
			vals := make([]Value, last)
			for c := row.FirstCol(); c < last; c++ {
				vals[c] = legacyCellValue(row.Col(c))
			}
			grid = append(grid, vals)
		}
		sheets = append(sheets, namedGrid{name: ws.Name, cells: grid})
	}
	return sheets, nil
}

// legacyCellValue types a display string from an xls cell. A string is a
// Number only when formatting the parsed float reproduces it exactly, so
// zero-padded identifiers such as "000123" stay Text.
func legacyCellValue(s string) Value {
	if strings.TrimSpace(s) == "" {
		return Null()
	}
	n, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return TextValue(s)
	}
	if strconv.FormatFloat(n, 'f', -1, 64) != s && formatNumber(n) != s {
		return TextValue(s)
	}
	return NumberValue(n)
}
