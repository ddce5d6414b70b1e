package cleaning

import (
	"fmt"
	"math"
	"strings"
)

// Severity is the coarse quality tier derived from the dirty score.
type Severity string

const (
	SeverityClean    Severity = "CLEAN"
	SeverityGood     Severity = "GOOD"
	SeverityWarning  Severity = "WARNING"
	SeverityCritical Severity = "CRITICAL"
)

// Unsalvageability thresholds. These gate whether cleaning may run at all;
// they are deliberately stricter than the severity tiers.
const (
	maxMissingCellPct   = 75.0
	maxDuplicateRowPct  = 50.0
	maxColumnMissingPct = 85.0
)

// QualityStats is a snapshot of how dirty a table is. It is recomputed
// fresh for every table snapshot and never mutated, with one exception:
// the pipeline overwrites ImputedRatio after the fill stage, since the
// ratio is not knowable before cleaning.
type QualityStats struct {
	MissingCells     int      `json:"missing_cells"`
	DuplicateRows    int      `json:"duplicate_rows"`
	TotalCells       int      `json:"total_cells"`
	DirtyScore       float64  `json:"dirty_score"`
	Severity         Severity `json:"severity"`
	ImputedRatio     float64  `json:"imputed_ratio"`
	Unsalvageable    bool     `json:"unsalvageable"`
	UnsalvageReasons []string `json:"unsalvage_reasons,omitempty"`
}

// Score computes quality statistics for a table snapshot. It never
// mutates the table and never fails on malformed data.
func Score(t *Table) QualityStats {
	stats := QualityStats{Severity: SeverityClean}
	if t == nil {
		return stats
	}

	rows := t.RowCount()
	cols := t.ColumnCount()
	stats.TotalCells = rows * cols

	perColumnMissing := make([]int, cols)
	for i := range t.Columns {
		for _, cell := range t.Columns[i].Cells {
			if cell.IsMissing() || cell.IsBlank() {
				stats.MissingCells++
				perColumnMissing[i]++
			}
		}
	}

	stats.DuplicateRows = countDuplicateRows(t)

	if stats.TotalCells > 0 {
		stats.DirtyScore = round2(100 * float64(stats.MissingCells+stats.DuplicateRows) / float64(stats.TotalCells))
	}
	stats.Severity = severityFor(stats.DirtyScore)
	stats.Unsalvageable, stats.UnsalvageReasons = judgeUnsalvageable(t, stats, perColumnMissing)
	return stats
}

// countDuplicateRows counts rows that exactly repeat an earlier row.
// The first occurrence is not counted.
func countDuplicateRows(t *Table) int {
	rows := t.RowCount()
	if rows == 0 || t.ColumnCount() == 0 {
		return 0
	}
	allCols := make([]int, t.ColumnCount())
	for i := range allCols {
		allCols[i] = i
	}
	seen := make(map[string]struct{}, rows)
	dups := 0
	for r := 0; r < rows; r++ {
		key := t.rowKey(r, allCols)
		if _, ok := seen[key]; ok {
			dups++
		} else {
			seen[key] = struct{}{}
		}
	}
	return dups
}

func severityFor(score float64) Severity {
	switch {
	case score == 0:
		return SeverityClean
	case score < 5:
		return SeverityGood
	case score < 15:
		return SeverityWarning
	default:
		return SeverityCritical
	}
}

// judgeUnsalvageable applies the hard-stop heuristics. All triggered
// reasons are reported, not just the first.
func judgeUnsalvageable(t *Table, stats QualityStats, perColumnMissing []int) (bool, []string) {
	var reasons []string
	rows := t.RowCount()

	if stats.TotalCells > 0 {
		missingPct := 100 * float64(stats.MissingCells) / float64(stats.TotalCells)
		if missingPct > maxMissingCellPct {
			reasons = append(reasons, fmt.Sprintf("%.1f%% of all cells are missing or blank", missingPct))
		}
	}

	if rows > 0 {
		dupPct := 100 * float64(stats.DuplicateRows) / float64(rows)
		if dupPct > maxDuplicateRowPct {
			reasons = append(reasons, fmt.Sprintf("%.1f%% of rows are duplicates", dupPct))
		}
	}

	if rows > 0 {
		var offenders []string
		for i, missing := range perColumnMissing {
			if 100*float64(missing)/float64(rows) > maxColumnMissingPct {
				offenders = append(offenders, t.Columns[i].Name)
			}
		}
		if len(offenders) > 0 {
			shown := offenders
			suffix := ""
			if len(offenders) > 3 {
				shown = offenders[:3]
				suffix = fmt.Sprintf(" (+%d more)", len(offenders)-3)
			}
			reasons = append(reasons, fmt.Sprintf("columns almost entirely missing: %s%s", strings.Join(shown, ", "), suffix))
		}
	}

	return len(reasons) > 0, reasons
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
