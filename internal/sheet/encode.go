package sheet

import (
	"fmt"

	"github.com/xuri/excelize/v2"
)

const (
	// DefaultSheetName is the name of the single sheet Encode writes.
	DefaultSheetName = "Result"

	// ContentType is the MIME type of an encoded workbook.
	ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

	dateTimeFormat = "yyyy-mm-dd hh:mm:ss"
)

// Encode writes t to a new single-sheet xlsx workbook and returns its bytes.
// The header row is bold; Null cells are left empty and dates carry a
// date-time number format. Duplicate column names are written as-is.
func Encode(t *Table, sheetName string) ([]byte, error) {
	if sheetName == "" {
		sheetName = DefaultSheetName
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), sheetName); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Border: []excelize.Border{
			{Type: "left", Color: "000000", Style: 1},
			{Type: "top", Color: "000000", Style: 1},
			{Type: "right", Color: "000000", Style: 1},
			{Type: "bottom", Color: "000000", Style: 1},
		},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		return nil, fmt.Errorf("header style: %w", err)
	}

	dateFmt := dateTimeFormat
	dateStyle, err := f.NewStyle(&excelize.Style{CustomNumFmt: &dateFmt})
	if err != nil {
		return nil, fmt.Errorf("date style: %w", err)
	}

	sw, err := f.NewStreamWriter(sheetName)
	if err != nil {
		return nil, fmt.Errorf("stream writer: %w", err)
	}

	header := make([]interface{}, len(t.Columns))
	for i, c := range t.Columns {
		header[i] = excelize.Cell{StyleID: headerStyle, Value: c}
	}
	if err := sw.SetRow("A1", header); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}

	for i, row := range t.Rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		vals := make([]interface{}, len(row))
		for j, v := range row {
			if v.Kind() == KindDate {
				vals[j] = excelize.Cell{StyleID: dateStyle, Value: v.Time()}
				continue
			}
			vals[j] = v.Interface()
		}
		if err := sw.SetRow(cell, vals); err != nil {
			return nil, fmt.Errorf("write row %d: %w", i+1, err)
		}
	}

	if err := sw.Flush(); err != nil {
		return nil, fmt.Errorf("flush: %w", err)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}
