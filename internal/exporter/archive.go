package exporter

import (
	"archive/zip"
	"fmt"
	"io"
	"regexp"

	"cleanbot/internal/cleaning"
)

// unsafeChars matches filename characters that are replaced before a
// table name becomes an archive entry.
var unsafeChars = regexp.MustCompile(`[^\w\-. ]`)

// ReportFilename is the consolidated report entry inside the archive.
const ReportFilename = "CLEANING_REPORT.txt"

// WriteArchive packages every cleaning result as a zip: one cleaned CSV
// per table, train/val/test CSVs when a split was requested, and one
// consolidated text report.
func WriteArchive(w io.Writer, results []*cleaning.CleaningResult) error {
	zw := zip.NewWriter(w)

	for _, result := range results {
		safe := unsafeChars.ReplaceAllString(result.Table.Name, "_")
		if err := addCSV(zw, safe+"_cleaned.csv", result.Table, true); err != nil {
			return err
		}
		if result.Split == nil {
			continue
		}
		parts := []struct {
			suffix string
			table  *cleaning.Table
		}{
			{"_train.csv", result.Split.Train},
			{"_val.csv", result.Split.Val},
			{"_test.csv", result.Split.Test},
		}
		for _, part := range parts {
			if err := addCSV(zw, safe+part.suffix, part.table, false); err != nil {
				return err
			}
		}
	}

	entry, err := zw.Create(ReportFilename)
	if err != nil {
		return fmt.Errorf("failed to create report entry: %w", err)
	}
	if _, err := io.WriteString(entry, cleaning.RenderReport(results)); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}

	return zw.Close()
}

func addCSV(zw *zip.Writer, name string, t *cleaning.Table, bom bool) error {
	entry, err := zw.Create(name)
	if err != nil {
		return fmt.Errorf("failed to create archive entry %s: %w", name, err)
	}
	if err := WriteCSV(entry, t, bom); err != nil {
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	return nil
}
