// Package exporter renders cleaned tables as downloadable artifacts:
// CSV files and the consolidated zip archive served after a cleaning run.
package exporter

import (
	"encoding/csv"
	"fmt"
	"io"

	"cleanbot/internal/cleaning"
)

// utf8BOM helps Excel recognize UTF-8 CSV output.
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// WriteCSV writes the table as CSV. Missing cells render as empty
// fields. The BOM prefix is optional because split files meant for
// training pipelines are better off without it.
func WriteCSV(w io.Writer, t *cleaning.Table, bomPrefix bool) error {
	if bomPrefix {
		if _, err := w.Write(utf8BOM); err != nil {
			return fmt.Errorf("failed to write BOM: %w", err)
		}
	}

	writer := csv.NewWriter(w)
	if err := writer.Write(t.Headers()); err != nil {
		return fmt.Errorf("failed to write headers: %w", err)
	}

	rows := t.RowCount()
	record := make([]string, t.ColumnCount())
	for r := 0; r < rows; r++ {
		for c := range t.Columns {
			record[c] = t.Columns[c].Cells[r].String()
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write row %d: %w", r, err)
		}
	}
	writer.Flush()
	return writer.Error()
}
