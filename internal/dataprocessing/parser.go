// Package dataprocessing turns uploaded CSV and Excel payloads into the
// in-memory table model consumed by the cleaning engine.
package dataprocessing

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"cleanbot/internal/cleaning"
)

// ErrUnsupportedFormat is returned for files that are neither CSV nor a
// modern Excel workbook. Legacy binary .xls is deliberately not handled.
var ErrUnsupportedFormat = errors.New("unsupported file format")

// SupportedExt reports whether the filename extension can be parsed.
func SupportedExt(filename string) bool {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv", ".xlsx", ".xlsm":
		return true
	default:
		return false
	}
}

// Parse dispatches on the filename extension and returns a table named
// after the file (extension removed).
func Parse(filename string, data []byte) (*cleaning.Table, error) {
	name := strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv":
		return ParseCSV(name, bytes.NewReader(data))
	case ".xlsx", ".xlsm":
		return ParseExcel(name, bytes.NewReader(data))
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, filename)
	}
}

// ParseCSV reads a CSV stream whose first record is the header row.
// Ragged records are tolerated; short rows are padded with blank cells.
func ParseCSV(name string, r io.Reader) (*cleaning.Table, error) {
	reader := csv.NewReader(stripBOM(r))
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = false

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse CSV: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("CSV %q has no header row", name)
	}
	return cleaning.NewTable(name, records[0], records[1:]), nil
}

// ParseExcel reads the first sheet that contains at least a header row.
// Sheets are scanned in workbook order since uploads frequently carry
// empty cover sheets before the data.
func ParseExcel(name string, r io.Reader) (*cleaning.Table, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil || len(rows) == 0 {
			continue
		}
		slog.Debug("parsing workbook sheet",
			slog.String("file", name),
			slog.String("sheet", sheet),
			slog.Int("rows", len(rows)))
		return cleaning.NewTable(name, rows[0], rows[1:]), nil
	}
	return nil, fmt.Errorf("workbook %q contains no data sheet", name)
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// stripBOM drops a leading UTF-8 BOM so the first header cell parses
// cleanly. Excel-produced CSVs carry one routinely.
func stripBOM(r io.Reader) io.Reader {
	buf := make([]byte, 3)
	n, _ := io.ReadFull(r, buf)
	if n == 3 && bytes.Equal(buf, utf8BOM) {
		return r
	}
	return io.MultiReader(bytes.NewReader(buf[:n]), r)
}
