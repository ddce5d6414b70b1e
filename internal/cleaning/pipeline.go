package cleaning

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"
	"time"
)

// Stage identifiers, in execution order.
const (
	StageBlanks     = "blank_normalization"
	StageDtypes     = "dtype_coercion"
	StageImputation = "imputation"
	StageText       = "text_normalization"
	StageDuplicates = "duplicate_removal"
	StageOutliers   = "outlier_removal"
	StageSort       = "sort"
	StageSplit      = "split"
)

// StageStatus distinguishes how a stage ended. A stage never aborts the
// pipeline; failures degrade to documented fallbacks and surface here and
// in the change log.
type StageStatus string

const (
	StageApplied  StageStatus = "applied"
	StageSkipped  StageStatus = "skipped"
	StageFellBack StageStatus = "fell_back"
)

// StageOutcome records how one stage ended for one table.
type StageOutcome struct {
	Stage  string      `json:"stage"`
	Status StageStatus `json:"status"`
	Detail string      `json:"detail,omitempty"`
}

// StageObserver receives a notification after each stage completes.
// Observers must not block; the pipeline calls them synchronously.
type StageObserver interface {
	StageCompleted(ctx context.Context, table string, outcome StageOutcome)
}

// Verdict is the coarse ML-readiness recommendation for a cleaned table.
type Verdict string

const (
	VerdictFit            Verdict = "fit for training"
	VerdictCaution        Verdict = "usable with caution"
	VerdictNotRecommended Verdict = "not recommended"
)

// SplitResult holds the three partitions produced by the split stage.
type SplitResult struct {
	Train *Table
	Val   *Table
	Test  *Table
}

// CleaningResult is everything one pipeline run produced. The engine
// holds no reference to it after returning.
type CleaningResult struct {
	Table           *Table
	Before          QualityStats
	After           QualityStats
	Changes         []string
	Outcomes        []StageOutcome
	RemainingIssues []string
	Verdict         Verdict
	Split           *SplitResult
}

// Pipeline runs the ordered cleaning stages over a working copy of a
// table. A Pipeline is stateless between runs and safe for concurrent
// use across distinct tables.
type Pipeline struct {
	logger   *slog.Logger
	observer StageObserver
}

// NewPipeline creates a pipeline. logger and observer may be nil.
func NewPipeline(logger *slog.Logger, observer StageObserver) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		logger:   logger.With(slog.String("component", "cleaning_pipeline")),
		observer: observer,
	}
}

// run carries the per-invocation state of one pipeline execution.
type run struct {
	ctx      context.Context
	table    *Table
	resolved *Resolved
	changes  []string
	outcomes []StageOutcome
	imputed  int
}

// Clean scores the table, runs every stage on a working copy, rescores,
// and assembles the result. The input table is never mutated. The only
// error returned is context cancellation between stages; per-cell and
// per-column failures degrade to fallbacks instead.
func (p *Pipeline) Clean(ctx context.Context, t *Table, cfg *Config) (*CleaningResult, error) {
	start := time.Now()
	resolved := Resolve(t, cfg)
	before := Score(t)

	r := &run{ctx: ctx, table: t.Clone(), resolved: resolved}

	stages := []struct {
		name string
		fn   func(*run) StageOutcome
	}{
		{StageBlanks, (*run).normalizeBlanks},
		{StageDtypes, (*run).coerceTypes},
		{StageImputation, (*run).fillMissing},
		{StageText, (*run).normalizeText},
		{StageDuplicates, (*run).dropDuplicates},
		{StageOutliers, (*run).removeOutliers},
		{StageSort, (*run).sortRows},
	}

	var split *SplitResult
	for _, stage := range stages {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		outcome := stage.fn(r)
		outcome.Stage = stage.name
		r.outcomes = append(r.outcomes, outcome)
		p.notify(ctx, t.Name, outcome)
	}
	if resolved.Split.Enabled {
		var outcome StageOutcome
		split, outcome = r.splitRows()
		outcome.Stage = StageSplit
		r.outcomes = append(r.outcomes, outcome)
		p.notify(ctx, t.Name, outcome)
	}

	after := Score(r.table)
	if before.TotalCells > 0 {
		after.ImputedRatio = round2(100 * float64(r.imputed) / float64(before.TotalCells))
	}

	result := &CleaningResult{
		Table:           r.table,
		Before:          before,
		After:           after,
		Changes:         r.changes,
		Outcomes:        r.outcomes,
		RemainingIssues: remainingIssues(after),
		Verdict:         verdictFor(before, after),
		Split:           split,
	}

	p.logger.InfoContext(ctx, "table cleaned",
		slog.String("table", t.Name),
		slog.Float64("dirty_before", before.DirtyScore),
		slog.Float64("dirty_after", after.DirtyScore),
		slog.Int("changes", len(r.changes)),
		slog.Duration("duration", time.Since(start)),
	)
	return result, nil
}

func (p *Pipeline) notify(ctx context.Context, table string, outcome StageOutcome) {
	if p.observer != nil {
		p.observer.StageCompleted(ctx, table, outcome)
	}
}

func (r *run) change(format string, args ...interface{}) {
	r.changes = append(r.changes, fmt.Sprintf(format, args...))
}

// normalizeBlanks converts every whitespace-only cell to the missing
// marker so all later stages see a single notion of missingness.
func (r *run) normalizeBlanks() StageOutcome {
	converted := 0
	for i := range r.table.Columns {
		cells := r.table.Columns[i].Cells
		for j := range cells {
			if cells[j].IsBlank() {
				cells[j] = Missing()
				converted++
			}
		}
	}
	if converted == 0 {
		return StageOutcome{Status: StageSkipped, Detail: "no blank cells"}
	}
	return StageOutcome{Status: StageApplied, Detail: fmt.Sprintf("%d blank cells marked missing", converted)}
}

// coerceTypes applies configured dtype targets. A cell that cannot be
// converted becomes missing; the stage itself never fails.
func (r *run) coerceTypes() StageOutcome {
	applied := 0
	skippedUnknown := 0
	// Walk columns in table order so the change log is deterministic.
	for i := range r.table.Columns {
		name := r.table.Columns[i].Name
		if declared, ok := r.resolved.UnknownDtypes[name]; ok {
			skippedUnknown++
			r.change("Skipped unknown dtype %q for '%s'", declared, name)
			continue
		}
		target, ok := r.resolved.Dtypes[name]
		if !ok {
			continue
		}
		changed, failed := coerceColumn(&r.table.Columns[i], target)
		applied++
		switch {
		case failed > 0:
			r.change("Converted '%s' to %s (%d cells became missing)", name, target, failed)
		case changed > 0:
			r.change("Converted '%s' to %s", name, target)
		}
	}
	if applied == 0 && skippedUnknown == 0 {
		return StageOutcome{Status: StageSkipped, Detail: "no dtype targets"}
	}
	if skippedUnknown > 0 {
		return StageOutcome{Status: StageFellBack, Detail: fmt.Sprintf("%d unknown dtype targets skipped", skippedUnknown)}
	}
	return StageOutcome{Status: StageApplied, Detail: fmt.Sprintf("%d columns coerced", applied)}
}

var temporalLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	time.RFC3339,
	"01/02/2006",
	"2006/01/02",
	"02 Jan 2006",
}

// coerceColumn converts each cell toward the target, returning how many
// cells materially changed and how many became missing.
func coerceColumn(col *Column, target TargetType) (changed, failed int) {
	for i, cell := range col.Cells {
		if cell.IsMissing() {
			continue
		}
		next, ok := coerceCell(cell, target)
		if !ok {
			col.Cells[i] = Missing()
			failed++
			continue
		}
		if next != cell {
			changed++
		}
		col.Cells[i] = next
	}
	switch target {
	case TargetFloat, TargetInteger:
		col.Kind = KindNumeric
	case TargetTemporal:
		col.Kind = KindTemporal
	case TargetCategorical:
		col.Kind = KindCategorical
	case TargetText:
		col.Kind = KindText
	}
	return changed, failed
}

func coerceCell(cell Cell, target TargetType) (Cell, bool) {
	switch target {
	case TargetFloat:
		switch cell.Kind {
		case CellNumber:
			return cell, true
		case CellText:
			if c := CellFromString(cell.Str); c.Kind == CellNumber {
				return c, true
			}
		}
		return Cell{}, false
	case TargetInteger:
		switch cell.Kind {
		case CellNumber:
			return Number(math.Trunc(cell.Num)), true
		case CellText:
			if c := CellFromString(cell.Str); c.Kind == CellNumber {
				return Number(math.Trunc(c.Num)), true
			}
		}
		return Cell{}, false
	case TargetTemporal:
		switch cell.Kind {
		case CellTime:
			return cell, true
		case CellText:
			s := strings.TrimSpace(cell.Str)
			for _, layout := range temporalLayouts {
				if ts, err := time.Parse(layout, s); err == nil {
					return Timestamp(ts), true
				}
			}
		}
		return Cell{}, false
	case TargetCategorical, TargetText:
		// Rendering to string form never fails.
		return Text(cell.String()), true
	default:
		return Cell{}, false
	}
}

// fillMissing drops rows missing required columns, then imputes every
// remaining missing cell per the resolved strategy. Undefined medians
// and modes fall back to the typed zero/"unknown" default, recorded
// distinctly from a normal fill.
func (r *run) fillMissing() StageOutcome {
	dropped := r.dropRowsMissingRequired()

	filled := 0
	fellBack := false
	for i := range r.table.Columns {
		col := &r.table.Columns[i]
		strategy, ok := r.resolved.Fill[col.Name]
		if !ok {
			continue
		}
		missing := 0
		for _, cell := range col.Cells {
			if cell.IsMissing() {
				missing++
			}
		}
		if missing == 0 {
			continue
		}
		if fillColumn(r, col, strategy, missing) {
			fellBack = true
		}
		filled += missing
	}
	r.imputed += filled

	switch {
	case dropped == 0 && filled == 0:
		return StageOutcome{Status: StageSkipped, Detail: "no missing cells"}
	case fellBack:
		return StageOutcome{Status: StageFellBack, Detail: fmt.Sprintf("%d cells filled with fallback defaults", filled)}
	default:
		return StageOutcome{Status: StageApplied, Detail: fmt.Sprintf("%d cells filled, %d rows dropped", filled, dropped)}
	}
}

func (r *run) dropRowsMissingRequired() int {
	var required []int
	for _, name := range r.resolved.DropRowsMissing {
		for i := range r.table.Columns {
			if r.table.Columns[i].Name == name {
				required = append(required, i)
			}
		}
	}
	if len(required) == 0 {
		return 0
	}
	rows := r.table.RowCount()
	keep := make([]bool, rows)
	dropped := 0
	for row := 0; row < rows; row++ {
		keep[row] = true
		for _, c := range required {
			if r.table.Columns[c].Cells[row].IsMissing() {
				keep[row] = false
				dropped++
				break
			}
		}
	}
	if dropped > 0 {
		r.table.selectRows(keep)
		r.change("Dropped %d rows missing required columns", dropped)
	}
	return dropped
}

// fillColumn imputes one column and reports whether a fallback occurred.
func fillColumn(r *run, col *Column, strategy FillStrategy, missing int) bool {
	numeric := col.IsNumeric()

	resolveAuto := func() FillStrategy {
		if numeric {
			return FillStrategy{Kind: FillMedian}
		}
		return FillStrategy{Kind: FillMode}
	}
	if strategy.Kind == FillAuto {
		strategy = resolveAuto()
	}

	fillAll := func(v Cell) {
		for i := range col.Cells {
			if col.Cells[i].IsMissing() {
				col.Cells[i] = v
			}
		}
	}

	switch strategy.Kind {
	case FillZero:
		fillAll(Number(0))
		r.change("Filled '%s' missing with zero (%d cells)", col.Name, missing)
	case FillUnknown:
		fillAll(Text("unknown"))
		r.change("Filled '%s' missing with 'unknown' (%d cells)", col.Name, missing)
	case FillConstant:
		fillAll(constantCell(strategy.Constant, numeric))
		r.change("Filled '%s' missing with constant '%s' (%d cells)", col.Name, strategy.Constant, missing)
	case FillMedian, FillMean:
		v, ok := numericStatistic(col, strategy.Kind)
		if ok {
			fillAll(Number(v))
			r.change("Filled '%s' missing with %s (%s)", col.Name, strategy, Number(v))
			break
		}
		if columnHasText(col) {
			// Type mismatch: a numeric statistic over textual data.
			// Fall back by column kind and keep going.
			fillAll(Text("unknown"))
			r.change("Fallback fill for '%s' with 'unknown' (%s not applicable)", col.Name, strategy)
			return true
		}
		// No values at all, e.g. an all-missing column.
		fillAll(Number(0))
		r.change("Fallback fill for '%s' with 0 (%s undefined)", col.Name, strategy)
		return true
	case FillMode:
		v, ok := modeValue(col)
		if !ok {
			if numeric {
				fillAll(Number(0))
				r.change("Fallback fill for '%s' with 0 (mode undefined)", col.Name)
			} else {
				fillAll(Text("unknown"))
				r.change("Fallback fill for '%s' with 'unknown' (mode undefined)", col.Name)
			}
			return true
		}
		fillAll(v)
		r.change("Filled '%s' missing with mode (%s)", col.Name, v)
	}
	return false
}

func constantCell(literal string, numeric bool) Cell {
	if numeric {
		if c := CellFromString(literal); c.Kind == CellNumber {
			return c
		}
	}
	return Text(literal)
}

// columnHasText reports whether any cell holds non-blank text.
func columnHasText(col *Column) bool {
	for _, cell := range col.Cells {
		if cell.Kind == CellText && !cell.IsBlank() {
			return true
		}
	}
	return false
}

// numericStatistic computes the median or mean over the non-missing
// numeric cells; ok is false when no such cells exist.
func numericStatistic(col *Column, kind FillKind) (float64, bool) {
	var values []float64
	for _, cell := range col.Cells {
		if cell.Kind == CellNumber {
			values = append(values, cell.Num)
		}
	}
	if len(values) == 0 {
		return 0, false
	}
	if kind == FillMean {
		sum := 0.0
		for _, v := range values {
			sum += v
		}
		return sum / float64(len(values)), true
	}
	sort.Float64s(values)
	mid := len(values) / 2
	if len(values)%2 == 1 {
		return values[mid], true
	}
	return (values[mid-1] + values[mid]) / 2, true
}

// modeValue returns the most frequent non-missing value; ties break
// toward the smallest rendered form for determinism.
func modeValue(col *Column) (Cell, bool) {
	counts := make(map[string]int)
	rep := make(map[string]Cell)
	for _, cell := range col.Cells {
		if cell.IsMissing() {
			continue
		}
		key := cell.keyString()
		counts[key]++
		if _, ok := rep[key]; !ok {
			rep[key] = cell
		}
	}
	if len(counts) == 0 {
		return Cell{}, false
	}
	bestKey := ""
	bestCount := -1
	for key, n := range counts {
		if n > bestCount || (n == bestCount && key < bestKey) {
			bestKey, bestCount = key, n
		}
	}
	return rep[bestKey], true
}

// normalizeText applies the configured trim/lowercase/char-removal
// transformations, converting targeted cells to string form first.
func (r *run) normalizeText() StageOutcome {
	lower := toSet(r.resolved.LowerColumns)
	strip := toSet(r.resolved.StripColumns)
	remove := toSet(r.resolved.RemoveColumns)

	touched := 0
	for i := range r.table.Columns {
		col := &r.table.Columns[i]
		doLower := lower[col.Name]
		doStrip := strip[col.Name]
		doRemove := remove[col.Name] && r.resolved.RemovePattern != nil
		if !doLower && !doStrip && !doRemove {
			continue
		}
		changed := 0
		for j, cell := range col.Cells {
			if cell.IsMissing() {
				continue
			}
			s := cell.String()
			if doStrip {
				s = strings.TrimSpace(s)
			}
			if doLower {
				s = strings.ToLower(s)
			}
			if doRemove {
				s = r.resolved.RemovePattern.ReplaceAllString(s, "")
			}
			next := Text(s)
			if next != cell {
				col.Cells[j] = next
				changed++
			}
		}
		if changed == 0 {
			continue
		}
		touched++
		switch {
		case doLower && doStrip && !doRemove:
			r.change("Cleaned text in '%s' (strip + lowercase)", col.Name)
		case doRemove && !doLower && !doStrip:
			r.change("Removed characters matching '%s' from '%s'", r.resolved.RemovePattern, col.Name)
		default:
			r.change("Cleaned text in '%s' (%s)", col.Name, describeTextOps(doStrip, doLower, doRemove))
		}
	}
	if touched == 0 {
		return StageOutcome{Status: StageSkipped, Detail: "no text changes"}
	}
	return StageOutcome{Status: StageApplied, Detail: fmt.Sprintf("%d columns normalized", touched)}
}

func describeTextOps(strip, lower, remove bool) string {
	var ops []string
	if strip {
		ops = append(ops, "strip")
	}
	if lower {
		ops = append(ops, "lowercase")
	}
	if remove {
		ops = append(ops, "remove chars")
	}
	return strings.Join(ops, " + ")
}

func toSet(names []string) map[string]bool {
	set := make(map[string]bool, len(names))
	for _, n := range names {
		set[n] = true
	}
	return set
}

// dropDuplicates removes rows matching on the configured subset (or the
// whole row), keeping the first or last occurrence.
func (r *run) dropDuplicates() StageOutcome {
	var cols []int
	if len(r.resolved.DupSubset) > 0 {
		for _, name := range r.resolved.DupSubset {
			for i := range r.table.Columns {
				if r.table.Columns[i].Name == name {
					cols = append(cols, i)
				}
			}
		}
		if len(cols) == 0 {
			return StageOutcome{Status: StageSkipped, Detail: "subset columns not present"}
		}
	} else {
		cols = make([]int, r.table.ColumnCount())
		for i := range cols {
			cols[i] = i
		}
	}

	rows := r.table.RowCount()
	keep := make([]bool, rows)
	seen := make(map[string]int, rows)
	if r.resolved.DupKeepLast {
		for row := rows - 1; row >= 0; row-- {
			key := r.table.rowKey(row, cols)
			if _, ok := seen[key]; !ok {
				seen[key] = row
				keep[row] = true
			}
		}
	} else {
		for row := 0; row < rows; row++ {
			key := r.table.rowKey(row, cols)
			if _, ok := seen[key]; !ok {
				seen[key] = row
				keep[row] = true
			}
		}
	}

	removed := rows - len(seen)
	if removed == 0 {
		return StageOutcome{Status: StageSkipped, Detail: "no duplicate rows"}
	}
	r.table.selectRows(keep)
	r.change("Removed %d duplicate rows", removed)
	return StageOutcome{Status: StageApplied, Detail: fmt.Sprintf("%d rows removed", removed)}
}

// removeOutliers drops rows whose |z| exceeds the threshold in any
// evaluated column. Columns with zero or undefined standard deviation
// supply no outlier signal and are skipped. Because this runs after
// imputation, filler values participate in mean/std.
func (r *run) removeOutliers() StageOutcome {
	rows := r.table.RowCount()
	if rows == 0 || len(r.resolved.OutlierColumns) == 0 {
		return StageOutcome{Status: StageSkipped, Detail: "no outlier columns"}
	}

	keep := make([]bool, rows)
	for i := range keep {
		keep[i] = true
	}

	evaluated := 0
	for _, name := range r.resolved.OutlierColumns {
		col := r.table.Column(name)
		if col == nil || !col.IsNumeric() {
			continue
		}
		mean, std, ok := meanStd(col)
		if !ok || std == 0 {
			continue
		}
		evaluated++
		for row, cell := range col.Cells {
			if cell.Kind != CellNumber {
				// A value that cannot be scored cannot satisfy the bound.
				keep[row] = false
				continue
			}
			if math.Abs((cell.Num-mean)/std) > r.resolved.OutlierThreshold {
				keep[row] = false
			}
		}
	}
	if evaluated == 0 {
		return StageOutcome{Status: StageSkipped, Detail: "no columns with outlier signal"}
	}

	removed := 0
	for _, k := range keep {
		if !k {
			removed++
		}
	}
	if removed == 0 {
		return StageOutcome{Status: StageSkipped, Detail: "no outliers"}
	}
	r.table.selectRows(keep)
	r.change("Removed %d outlier rows (|z| > %s)", removed, formatThreshold(r.resolved.OutlierThreshold))
	return StageOutcome{Status: StageApplied, Detail: fmt.Sprintf("%d rows removed", removed)}
}

// meanStd computes the mean and sample standard deviation over numeric
// cells; ok is false with fewer than two values.
func meanStd(col *Column) (mean, std float64, ok bool) {
	var values []float64
	for _, cell := range col.Cells {
		if cell.Kind == CellNumber {
			values = append(values, cell.Num)
		}
	}
	if len(values) < 2 {
		return 0, 0, false
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	mean = sum / float64(len(values))
	var sq float64
	for _, v := range values {
		d := v - mean
		sq += d * d
	}
	std = math.Sqrt(sq / float64(len(values)-1))
	return mean, std, true
}

// sortRows performs a stable sort by the resolved key list. Missing
// values order after present ones regardless of direction.
func (r *run) sortRows() StageOutcome {
	var keys []SortKey
	for _, key := range r.resolved.SortBy {
		if r.table.Column(key.Column) != nil {
			keys = append(keys, key)
		}
	}
	if len(keys) == 0 {
		return StageOutcome{Status: StageSkipped, Detail: "no sort keys"}
	}

	rows := r.table.RowCount()
	order := make([]int, rows)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		for _, key := range keys {
			col := r.table.Column(key.Column)
			av, bv := col.Cells[order[a]], col.Cells[order[b]]
			// Missing sorts after any present value, regardless of the
			// key direction, so the rank is decided before the flip.
			if av.IsMissing() || bv.IsMissing() {
				if av.IsMissing() == bv.IsMissing() {
					continue
				}
				return bv.IsMissing()
			}
			c := compareCells(av, bv)
			if c == 0 {
				continue
			}
			if key.Ascending {
				return c < 0
			}
			return c > 0
		}
		return false
	})

	moved := false
	for i, row := range order {
		if i != row {
			moved = true
			break
		}
	}
	if !moved {
		return StageOutcome{Status: StageSkipped, Detail: "already ordered"}
	}
	r.table.reorderRows(order)
	r.change("Sorted rows by %s", describeSortKeys(keys))
	return StageOutcome{Status: StageApplied, Detail: fmt.Sprintf("%d sort keys", len(keys))}
}

// compareCells orders two present cells: numbers numerically,
// timestamps chronologically, everything else by rendered string.
// Missing cells are ranked by the caller before the direction applies.
func compareCells(a, b Cell) int {
	if a.Kind == CellNumber && b.Kind == CellNumber {
		switch {
		case a.Num < b.Num:
			return -1
		case a.Num > b.Num:
			return 1
		default:
			return 0
		}
	}
	if a.Kind == CellTime && b.Kind == CellTime {
		switch {
		case a.Time.Before(b.Time):
			return -1
		case a.Time.After(b.Time):
			return 1
		default:
			return 0
		}
	}
	return strings.Compare(a.String(), b.String())
}

func describeSortKeys(keys []SortKey) string {
	parts := make([]string, len(keys))
	for i, key := range keys {
		dir := "ascending"
		if !key.Ascending {
			dir = "descending"
		}
		parts[i] = fmt.Sprintf("%s (%s)", key.Column, dir)
	}
	return strings.Join(parts, ", ")
}

// remainingIssues restates any still-dirty counts in cleaned form.
func remainingIssues(after QualityStats) []string {
	var issues []string
	if after.MissingCells > 0 {
		issues = append(issues, fmt.Sprintf("Missing values: %d cells (including blanks)", after.MissingCells))
	}
	if after.DuplicateRows > 0 {
		issues = append(issues, fmt.Sprintf("Duplicate rows: %d", after.DuplicateRows))
	}
	return issues
}

// Verdict thresholds, checked in order; the stricter condition wins.
const (
	cautionImputedPct        = 40.0
	cautionDirtyScore        = 10.0
	notRecommendedImputedPct = 70.0
	notRecommendedMissingPct = 80.0
)

func verdictFor(before, after QualityStats) Verdict {
	verdict := VerdictFit
	if after.ImputedRatio > cautionImputedPct || after.DirtyScore > cautionDirtyScore {
		verdict = VerdictCaution
	}
	originalMissingPct := 0.0
	if before.TotalCells > 0 {
		originalMissingPct = 100 * float64(before.MissingCells) / float64(before.TotalCells)
	}
	if after.ImputedRatio > notRecommendedImputedPct || originalMissingPct > notRecommendedMissingPct {
		verdict = VerdictNotRecommended
	}
	return verdict
}
