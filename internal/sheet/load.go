package sheet

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
)

var (
	// ErrUnreadableWorkbook wraps every parse failure: corrupt files,
	// unsupported formats, password-protected workbooks.
	ErrUnreadableWorkbook = errors.New("unreadable workbook")

	// ErrEmptyWorkbook means the workbook parsed but holds no data rows.
	ErrEmptyWorkbook = errors.New("empty file: workbook has no data rows")

	// ErrUnsupportedFormat is returned for files that are neither OOXML nor legacy xls.
	ErrUnsupportedFormat = errors.New("unsupported format: expected .xlsx, .xlsm or .xls")
)

// Format is a workbook container format.
type Format int

const (
	FormatUnknown Format = iota
	FormatXLSX           // Office Open XML (zip): .xlsx, .xlsm
	FormatXLS            // BIFF8 compound document: .xls
)

func (f Format) String() string {
	switch f {
	case FormatXLSX:
		return "xlsx"
	case FormatXLS:
		return "xls"
	default:
		return "unknown"
	}
}

var (
	zipMagic = []byte{'P', 'K', 0x03, 0x04}
	oleMagic = []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}
)

// DetectFormat sniffs the container format from the leading bytes,
// falling back to the file extension when the bytes are inconclusive.
func DetectFormat(data []byte, filename string) Format {
	switch {
	case bytes.HasPrefix(data, zipMagic):
		return FormatXLSX
	case bytes.HasPrefix(data, oleMagic):
		return FormatXLS
	}
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".xlsx", ".xlsm":
		return FormatXLSX
	case ".xls":
		return FormatXLS
	}
	return FormatUnknown
}

// Workbook is a loaded workbook: the flattened table plus the sheets it came from.
type Workbook struct {
	Table  *Table
	Sheets []string
	Format Format
}

// Load reads a workbook from r and flattens it into one table.
// See LoadBytes.
func Load(r io.Reader, filename string) (*Workbook, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return &Workbook{Table: Empty()}, fmt.Errorf("%w: read %s: %v", ErrUnreadableWorkbook, filename, err)
	}
	return LoadBytes(data, filename)
}

// LoadBytes parses a workbook held in memory.
//
// Every sheet with a header row becomes a table; several sheets are
// concatenated in file order (see Concat), a single sheet is returned
// unchanged. On any failure the returned workbook carries an empty table
// and the error describes the cause; callers must not continue with it.
func LoadBytes(data []byte, filename string) (wb *Workbook, err error) {
	wb = &Workbook{Table: Empty()}
	if len(data) == 0 {
		return wb, fmt.Errorf("%s: %w", filename, ErrEmptyWorkbook)
	}

	wb.Format = DetectFormat(data, filename)

	var sheets []namedGrid
	switch wb.Format {
	case FormatXLSX:
		sheets, err = readXLSX(data)
	case FormatXLS:
		sheets, err = readXLS(data)
	default:
		err = ErrUnsupportedFormat
	}
	if err != nil {
		return wb, fmt.Errorf("%w: %s: %v", ErrUnreadableWorkbook, filename, err)
	}

	var tables []*Table
	for _, s := range sheets {
		t := tableFromGrid(s.cells)
		if t == nil {
			slog.Debug("skipping sheet without header", "file", filename, "sheet", s.name)
			continue
		}
		tables = append(tables, t)
		wb.Sheets = append(wb.Sheets, s.name)
	}

	if len(tables) == 0 {
		return wb, fmt.Errorf("%s: %w", filename, ErrEmptyWorkbook)
	}

	table := Concat(tables...)
	if table.IsEmpty() {
		return wb, fmt.Errorf("%s: %w", filename, ErrEmptyWorkbook)
	}

	wb.Table = table
	slog.Debug("workbook loaded",
		"file", filename,
		"format", wb.Format.String(),
		"sheets", len(wb.Sheets),
		"columns", len(table.Columns),
		"rows", table.Len(),
	)
	return wb, nil
}

// namedGrid is the raw cell grid of one worksheet.
type namedGrid struct {
	name  string
	cells [][]Value
}
