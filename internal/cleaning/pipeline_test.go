package cleaning

import (
	"context"
	"log/slog"
	"math"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustClean(t *testing.T, table *Table, cfg *Config) *CleaningResult {
	t.Helper()
	result, err := NewPipeline(slog.Default(), nil).Clean(context.Background(), table, cfg)
	require.NoError(t, err)
	return result
}

func TestCleanSpecExampleEndToEnd(t *testing.T) {
	rows := [][]string{
		{"30", "baghdad"},
		{"30", "baghdad"},
		{"25", "erbil"},
		{"25", "erbil"},
		{"", "basra"},
		{"", "mosul"},
		{"", "najaf"},
		{"41", "kirkuk"},
		{"52", "karbala"},
		{"47", "duhok"},
	}
	table := NewTable("people", []string{"age", "city"}, rows)
	cfg := &Config{
		Missing:  &MissingConfig{Fill: map[string]string{"age": "median"}},
		Outliers: &OutliersConfig{ZScore: ZScoreConfig{Columns: nil}},
	}
	result := mustClean(t, table, cfg)

	assert.Equal(t, 25.0, result.Before.DirtyScore)
	assert.Equal(t, SeverityCritical, result.Before.Severity)

	assert.Equal(t, 0, result.After.MissingCells)
	assert.Equal(t, 0, result.After.DuplicateRows)
	assert.Equal(t, 0.0, result.After.DirtyScore)
	assert.Equal(t, SeverityClean, result.After.Severity)

	// One fill entry and one dedup entry, in that order.
	require.Len(t, result.Changes, 2)
	assert.Contains(t, result.Changes[0], "Filled 'age' missing with median")
	assert.Contains(t, result.Changes[1], "Removed 2 duplicate rows")

	// 3 imputed cells over 20 original cells.
	assert.Equal(t, 15.0, result.After.ImputedRatio)
	assert.Equal(t, VerdictFit, result.Verdict)
	assert.Empty(t, result.RemainingIssues)
}

func TestCleanRoundTripNoChanges(t *testing.T) {
	table := NewTable("t", []string{"a", "b"}, [][]string{
		{"1", "x"},
		{"2", "y"},
		{"3", "z"},
	})
	result := mustClean(t, table, nil)

	assert.Empty(t, result.Changes)
	assert.Equal(t, result.Before, result.After)
	assert.Equal(t, VerdictFit, result.Verdict)
}

func TestCleanDoesNotMutateOriginal(t *testing.T) {
	table := NewTable("t", []string{"a"}, [][]string{{""}, {"1"}, {"1"}})
	snapshot := table.Clone()
	mustClean(t, table, nil)
	assert.Equal(t, snapshot, table)
}

func TestCleanIdempotent(t *testing.T) {
	table := NewTable("t", []string{"a", "b"}, [][]string{
		{"1", " X "},
		{"1", " X "},
		{"", "y"},
		{"3", ""},
		{"4", "z"},
	})
	first := mustClean(t, table, nil)
	second := mustClean(t, first.Table, nil)

	assert.Equal(t, 0, second.After.DuplicateRows)
	assert.LessOrEqual(t, second.After.MissingCells, first.After.MissingCells)
	assert.Empty(t, second.Changes)
}

func TestOutlierANDSemantics(t *testing.T) {
	// Column a: one extreme value; column b: well-behaved; column c:
	// constant, so it supplies no outlier signal.
	var rows [][]string
	for i := 0; i < 20; i++ {
		rows = append(rows, []string{"10", "5", "1"})
	}
	rows = append(rows, []string{"1000", "5", "1"}) // outlier in a only
	table := NewTable("t", []string{"a", "b", "c"}, rows)

	cfg := &Config{
		Dtypes:     map[string]string{},
		Missing:    &MissingConfig{},
		Duplicates: &DuplicatesConfig{Subset: []string{"missing_col"}},
		Outliers:   &OutliersConfig{ZScore: ZScoreConfig{Columns: []string{"a", "b", "c"}, Threshold: 3}},
	}
	result := mustClean(t, table, cfg)

	// One extreme column is enough to drop the row; rows inside the
	// threshold on every evaluated column survive.
	assert.Equal(t, 20, result.Table.RowCount())
	found := false
	for _, change := range result.Changes {
		if strings.Contains(change, "outlier") {
			found = true
			assert.Contains(t, change, "Removed 1 outlier rows")
		}
	}
	assert.True(t, found)
}

func TestOutlierSkipsZeroStd(t *testing.T) {
	rows := [][]string{{"1"}, {"1"}, {"1"}}
	table := NewTable("t", []string{"a"}, rows)
	cfg := &Config{
		Duplicates: &DuplicatesConfig{Subset: []string{"nope"}},
		Outliers:   &OutliersConfig{ZScore: ZScoreConfig{Columns: []string{"a"}}},
	}
	result := mustClean(t, table, cfg)
	assert.Equal(t, 3, result.Table.RowCount())
}

func TestDtypeCoercionFailureBecomesMissing(t *testing.T) {
	table := NewTable("t", []string{"n"}, [][]string{
		{"12"},
		{"not-a-number"},
		{"7"},
	})
	cfg := &Config{
		Dtypes:   map[string]string{"n": "float"},
		Missing:  &MissingConfig{Fill: map[string]string{"n": "median"}},
		Outliers: &OutliersConfig{},
	}
	result := mustClean(t, table, cfg)

	// The bad cell surfaced as a fill with the median of 12 and 7.
	require.NotEmpty(t, result.Changes)
	assert.Contains(t, result.Changes[0], "Converted 'n' to float (1 cells became missing)")
	assert.Contains(t, result.Changes[1], "Filled 'n' missing with median (9.5)")
	assert.Equal(t, 0, result.After.MissingCells)
}

func TestNonFiniteInputStaysOutOfStatistics(t *testing.T) {
	table := NewTable("t", []string{"n"}, [][]string{
		{"12"},
		{"NaN"},
		{"Inf"},
		{"7"},
	})
	cfg := &Config{
		Dtypes:   map[string]string{"n": "float"},
		Missing:  &MissingConfig{Fill: map[string]string{"n": "median"}},
		Outliers: &OutliersConfig{},
	}
	result := mustClean(t, table, cfg)

	// NaN/Inf never become numbers: coercion drops them, the median is
	// computed over the finite values only.
	assert.Contains(t, result.Changes[0], "Converted 'n' to float (2 cells became missing)")
	assert.Contains(t, result.Changes[1], "Filled 'n' missing with median (9.5)")
	for _, cell := range result.Table.Column("n").Cells {
		require.Equal(t, CellNumber, cell.Kind)
		assert.False(t, math.IsNaN(cell.Num))
		assert.False(t, math.IsInf(cell.Num, 0))
	}
}

func TestDtypeCoercionTemporal(t *testing.T) {
	table := NewTable("t", []string{"day"}, [][]string{
		{"2024-01-15"},
		{"2024-02-20"},
		{"garbage"},
	})
	cfg := &Config{
		Dtypes:   map[string]string{"day": "datetime"},
		Missing:  &MissingConfig{},
		Outliers: &OutliersConfig{},
	}
	result := mustClean(t, table, cfg)

	col := result.Table.Column("day")
	require.NotNil(t, col)
	assert.Equal(t, KindTemporal, col.InferKind())
	assert.Equal(t, CellTime, col.Cells[0].Kind)
	assert.True(t, col.Cells[2].IsMissing())
}

func TestUnknownDtypeSkippedPermissively(t *testing.T) {
	table := NewTable("t", []string{"a"}, [][]string{{"1"}, {"2"}})
	cfg := &Config{
		Dtypes:   map[string]string{"a": "complex128"},
		Missing:  &MissingConfig{},
		Outliers: &OutliersConfig{},
	}
	result := mustClean(t, table, cfg)

	require.NotEmpty(t, result.Changes)
	assert.Contains(t, result.Changes[0], `Skipped unknown dtype "complex128"`)
	var dtypeOutcome StageOutcome
	for _, outcome := range result.Outcomes {
		if outcome.Stage == StageDtypes {
			dtypeOutcome = outcome
		}
	}
	assert.Equal(t, StageFellBack, dtypeOutcome.Status)
}

func TestFillFallbacks(t *testing.T) {
	tests := []struct {
		name       string
		rows       [][]string
		fill       map[string]string
		wantChange string
	}{
		{
			name:       "median undefined falls back to zero",
			rows:       [][]string{{"", "1"}, {"", "2"}},
			fill:       map[string]string{"a": "median"},
			wantChange: "Fallback fill for 'a' with 0 (median undefined)",
		},
		{
			name:       "mean on text column falls back to unknown",
			rows:       [][]string{{"x", "1"}, {"", "2"}},
			fill:       map[string]string{"a": "mean"},
			wantChange: "Fallback fill for 'a' with 'unknown' (mean not applicable)",
		},
		{
			name:       "mode undefined falls back to unknown",
			rows:       [][]string{{"", "1"}, {"", "2"}},
			fill:       map[string]string{"a": "mode"},
			wantChange: "Fallback fill for 'a' with 'unknown' (mode undefined)",
		},
		{
			name:       "explicit constant",
			rows:       [][]string{{"x", "1"}, {"", "2"}},
			fill:       map[string]string{"a": "n/a"},
			wantChange: "Filled 'a' missing with constant 'n/a'",
		},
		{
			name:       "zero strategy",
			rows:       [][]string{{"5", "1"}, {"", "2"}},
			fill:       map[string]string{"a": "zero"},
			wantChange: "Filled 'a' missing with zero",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			table := NewTable("t", []string{"a", "b"}, tt.rows)
			cfg := &Config{
				Dtypes:   map[string]string{"b": "float"},
				Missing:  &MissingConfig{Fill: tt.fill},
				Outliers: &OutliersConfig{},
			}
			result := mustClean(t, table, cfg)

			joined := strings.Join(result.Changes, "\n")
			assert.Contains(t, joined, tt.wantChange)
			assert.Equal(t, 0, result.After.MissingCells)
		})
	}
}

func TestAutoModeNormalizesAllText(t *testing.T) {
	table := NewTable("t", []string{"city", "n"}, [][]string{
		{"  Baghdad ", "1"},
		{"ERBIL", "2"},
		{"basra", "3"},
	})
	result := mustClean(t, table, nil)

	col := result.Table.Column("city")
	require.NotNil(t, col)
	assert.Equal(t, "baghdad", col.Cells[0].Str)
	assert.Equal(t, "erbil", col.Cells[1].Str)
	joined := strings.Join(result.Changes, "\n")
	assert.Contains(t, joined, "Cleaned text in 'city' (strip + lowercase)")
}

func TestExplicitModeRespectsTextIntent(t *testing.T) {
	table := NewTable("t", []string{"city"}, [][]string{
		{"  Baghdad "},
		{"ERBIL"},
	})
	cfg := &Config{
		Missing:      &MissingConfig{},
		TextCleaning: &TextCleaningConfig{StripSpacesColumns: []string{"city"}},
		Outliers:     &OutliersConfig{},
	}
	result := mustClean(t, table, cfg)

	col := result.Table.Column("city")
	assert.Equal(t, "Baghdad", col.Cells[0].Str)
	assert.Equal(t, "ERBIL", col.Cells[1].Str)
}

func TestRemoveCharsPattern(t *testing.T) {
	table := NewTable("t", []string{"phone"}, [][]string{
		{"07-701-234"},
		{"07-915-555"},
	})
	cfg := &Config{
		Missing: &MissingConfig{},
		TextCleaning: &TextCleaningConfig{
			RemoveChars: RemoveCharsConfig{Columns: []string{"phone"}, Pattern: `[^0-9]`},
		},
		Outliers: &OutliersConfig{},
	}
	result := mustClean(t, table, cfg)
	assert.Equal(t, "07701234", result.Table.Column("phone").Cells[0].Str)
}

func TestDuplicateKeepLast(t *testing.T) {
	table := NewTable("t", []string{"id", "v"}, [][]string{
		{"1", "old"},
		{"2", "keep"},
		{"1", "new"},
	})
	cfg := &Config{
		Missing:    &MissingConfig{},
		Duplicates: &DuplicatesConfig{Subset: []string{"id"}, Keep: "last"},
		Outliers:   &OutliersConfig{},
	}
	result := mustClean(t, table, cfg)

	require.Equal(t, 2, result.Table.RowCount())
	assert.Equal(t, "keep", result.Table.Column("v").Cells[0].Str)
	assert.Equal(t, "new", result.Table.Column("v").Cells[1].Str)
}

func TestDropRowsMissingRequired(t *testing.T) {
	table := NewTable("t", []string{"id", "v"}, [][]string{
		{"1", "a"},
		{"", "b"},
		{"3", ""},
	})
	cfg := &Config{
		Missing:  &MissingConfig{DropRowsIfMissingAnyOf: []string{"id"}},
		Outliers: &OutliersConfig{},
	}
	result := mustClean(t, table, cfg)

	assert.Equal(t, 2, result.Table.RowCount())
	assert.Contains(t, result.Changes[0], "Dropped 1 rows missing required columns")
}

func TestSortStage(t *testing.T) {
	table := NewTable("t", []string{"n", "s"}, [][]string{
		{"3", "c"},
		{"1", "a"},
		{"2", "b"},
		{"", "d"},
	})
	cfg := &Config{
		Missing:  &MissingConfig{},
		Sort:     &SortConfig{By: []string{"n"}, Ascending: []bool{false}},
		Outliers: &OutliersConfig{},
	}
	result := mustClean(t, table, cfg)

	col := result.Table.Column("n")
	assert.Equal(t, 3.0, col.Cells[0].Num)
	assert.Equal(t, 2.0, col.Cells[1].Num)
	assert.Equal(t, 1.0, col.Cells[2].Num)
	// Missing sorts last regardless of direction.
	assert.True(t, col.Cells[3].IsMissing())
	assert.Contains(t, strings.Join(result.Changes, "\n"), "Sorted rows by n (descending)")
}

func TestSortMissingLastBothDirections(t *testing.T) {
	for _, ascending := range []bool{true, false} {
		table := NewTable("t", []string{"n"}, [][]string{
			{"3"}, {"1"}, {""}, {"2"},
		})
		cfg := &Config{
			Missing:  &MissingConfig{},
			Sort:     &SortConfig{By: []string{"n"}, Ascending: []bool{ascending}},
			Outliers: &OutliersConfig{},
		}
		result := mustClean(t, table, cfg)

		col := result.Table.Column("n")
		assert.True(t, col.Cells[3].IsMissing(), "ascending=%v", ascending)
		for i := 0; i < 3; i++ {
			assert.False(t, col.Cells[i].IsMissing(), "ascending=%v row %d", ascending, i)
		}
		if ascending {
			assert.Equal(t, 1.0, col.Cells[0].Num)
			assert.Equal(t, 3.0, col.Cells[2].Num)
		} else {
			assert.Equal(t, 3.0, col.Cells[0].Num)
			assert.Equal(t, 1.0, col.Cells[2].Num)
		}
	}
}

func TestDtypeChangeLogFollowsColumnOrder(t *testing.T) {
	table := NewTable("t", []string{"a", "b", "c", "d", "e"}, [][]string{
		{"x", "x", "x", "x", "x"},
		{"1", "2", "3", "4", "5"},
	})
	cfg := &Config{
		Dtypes: map[string]string{
			"e": "float", "d": "float", "c": "float", "b": "float", "a": "float",
		},
		Missing:  &MissingConfig{},
		Outliers: &OutliersConfig{},
	}

	want := []string{
		"Converted 'a' to float (1 cells became missing)",
		"Converted 'b' to float (1 cells became missing)",
		"Converted 'c' to float (1 cells became missing)",
		"Converted 'd' to float (1 cells became missing)",
		"Converted 'e' to float (1 cells became missing)",
	}
	for run := 0; run < 5; run++ {
		result := mustClean(t, table, cfg)
		require.Len(t, result.Changes, len(want))
		assert.Equal(t, want, result.Changes, "run %d", run)
	}
}

func TestNonexistentColumnsAreNoOps(t *testing.T) {
	table := NewTable("t", []string{"a"}, [][]string{{"1"}, {"2"}})
	cfg := &Config{
		Dtypes:       map[string]string{"ghost": "float"},
		Missing:      &MissingConfig{Fill: map[string]string{"ghost": "median"}, DropRowsIfMissingAnyOf: []string{"ghost"}},
		TextCleaning: &TextCleaningConfig{LowerColumns: []string{"ghost"}},
		Duplicates:   &DuplicatesConfig{Subset: []string{"ghost"}},
		Outliers:     &OutliersConfig{ZScore: ZScoreConfig{Columns: []string{"ghost"}}},
		Sort:         &SortConfig{By: []string{"ghost"}},
	}
	result := mustClean(t, table, cfg)

	assert.Empty(t, result.Changes)
	assert.Equal(t, 2, result.Table.RowCount())
}

func TestVerdictThresholds(t *testing.T) {
	tests := []struct {
		name   string
		before QualityStats
		after  QualityStats
		want   Verdict
	}{
		{
			name:   "clean result is fit",
			before: QualityStats{TotalCells: 100},
			after:  QualityStats{},
			want:   VerdictFit,
		},
		{
			name:   "high imputation is caution",
			before: QualityStats{TotalCells: 100, MissingCells: 45},
			after:  QualityStats{ImputedRatio: 45},
			want:   VerdictCaution,
		},
		{
			name:   "dirty after cleaning is caution",
			before: QualityStats{TotalCells: 100},
			after:  QualityStats{DirtyScore: 12},
			want:   VerdictCaution,
		},
		{
			name:   "very high imputation is not recommended",
			before: QualityStats{TotalCells: 100, MissingCells: 72},
			after:  QualityStats{ImputedRatio: 72},
			want:   VerdictNotRecommended,
		},
		{
			name:   "mostly missing original is not recommended",
			before: QualityStats{TotalCells: 100, MissingCells: 81},
			after:  QualityStats{ImputedRatio: 10},
			want:   VerdictNotRecommended,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, verdictFor(tt.before, tt.after))
		})
	}
}

type recordingObserver struct {
	mu       sync.Mutex
	outcomes []StageOutcome
}

func (o *recordingObserver) StageCompleted(_ context.Context, _ string, outcome StageOutcome) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.outcomes = append(o.outcomes, outcome)
}

func TestObserverSeesStagesInOrder(t *testing.T) {
	observer := &recordingObserver{}
	table := NewTable("t", []string{"a"}, [][]string{{"1"}, {""}})
	_, err := NewPipeline(slog.Default(), observer).Clean(context.Background(), table, nil)
	require.NoError(t, err)

	want := []string{
		StageBlanks, StageDtypes, StageImputation, StageText,
		StageDuplicates, StageOutliers, StageSort,
	}
	require.Len(t, observer.outcomes, len(want))
	for i, stage := range want {
		assert.Equal(t, stage, observer.outcomes[i].Stage)
	}
}

func TestCleanCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	table := NewTable("t", []string{"a"}, [][]string{{"1"}})
	_, err := NewPipeline(slog.Default(), nil).Clean(ctx, table, nil)
	assert.ErrorIs(t, err, context.Canceled)
}
