package cleaning

import (
	"fmt"
	"math"
	"math/rand"
	"sort"
)

// splitSeed fixes the partition shuffle so repeated runs on identical
// input and config produce identical partitions.
const splitSeed = 42

// splitRows partitions the cleaned table into train/val/test. Relative
// sizing comes from val+test combined, then validation is carved from
// that remainder; the fractions are not required to sum to exactly 1.
func (r *run) splitRows() (*SplitResult, StageOutcome) {
	cfg := r.resolved.Split
	rows := r.table.RowCount()
	if rows == 0 {
		return nil, StageOutcome{Status: StageSkipped, Detail: "no rows to split"}
	}

	tempFrac := cfg.ValSize + cfg.TestSize
	if tempFrac <= 0 || tempFrac >= 1 {
		result := &SplitResult{
			Train: r.table.Clone(),
			Val:   r.table.takeRows(nil),
			Test:  r.table.takeRows(nil),
		}
		r.change("Split rows into train/val/test (%d/0/0)", rows)
		return result, StageOutcome{Status: StageFellBack, Detail: "val+test fraction outside (0,1), all rows assigned to train"}
	}
	relVal := cfg.ValSize / tempFrac

	groups := r.splitGroups(cfg)
	rng := rand.New(rand.NewSource(splitSeed))

	var trainIdx, valIdx, testIdx []int
	for _, group := range groups {
		rng.Shuffle(len(group), func(i, j int) {
			group[i], group[j] = group[j], group[i]
		})
		nTemp := int(math.Round(tempFrac * float64(len(group))))
		if nTemp > len(group) {
			nTemp = len(group)
		}
		temp := group[:nTemp]
		trainIdx = append(trainIdx, group[nTemp:]...)

		nVal := int(math.Round(relVal * float64(len(temp))))
		valIdx = append(valIdx, temp[:nVal]...)
		testIdx = append(testIdx, temp[nVal:]...)
	}

	// Keep original row order inside each partition.
	sort.Ints(trainIdx)
	sort.Ints(valIdx)
	sort.Ints(testIdx)

	result := &SplitResult{
		Train: r.table.takeRows(trainIdx),
		Val:   r.table.takeRows(valIdx),
		Test:  r.table.takeRows(testIdx),
	}
	r.change("Split rows into train/val/test (%d/%d/%d)", len(trainIdx), len(valIdx), len(testIdx))
	return result, StageOutcome{
		Status: StageApplied,
		Detail: fmt.Sprintf("train=%d val=%d test=%d", len(trainIdx), len(valIdx), len(testIdx)),
	}
}

// splitGroups returns row-index groups: one per target-column value when
// stratifying, otherwise a single group. Groups are ordered by first
// appearance so the shuffle sequence is deterministic.
func (r *run) splitGroups(cfg SplitConfig) [][]int {
	rows := r.table.RowCount()
	all := make([]int, rows)
	for i := range all {
		all[i] = i
	}
	if !cfg.Stratify || cfg.TargetColumn == "" {
		return [][]int{all}
	}
	col := r.table.Column(cfg.TargetColumn)
	if col == nil {
		return [][]int{all}
	}
	index := make(map[string]int)
	var groups [][]int
	for row := 0; row < rows; row++ {
		key := col.Cells[row].keyString()
		g, ok := index[key]
		if !ok {
			g = len(groups)
			index[key] = g
			groups = append(groups, nil)
		}
		groups[g] = append(groups[g], row)
	}
	return groups
}
