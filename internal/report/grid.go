package report

import (
	"fmt"

	"github.com/montanaflynn/stats"

	"sdtfit/domain/delta"
)

// GridCell is one entry of the condition-pair grid: RT-difference curves at
// each percentile rank, per response mode. Diagonal cells stay blank.
type GridCell struct {
	Filled   bool      `json:"filled"`
	Overall  []float64 `json:"overall,omitempty"`
	Accurate []float64 `json:"accurate,omitempty"`
	Error    []float64 `json:"error,omitempty"`
}

// ParticipantGrid is the full symmetric C x C delta grid for one participant.
// Cell [i][j] holds condition j minus condition i; [j][i] holds the mirrored
// curves.
type ParticipantGrid struct {
	Pnum  int          `json:"pnum"`
	Ranks []float64    `json:"ranks"`
	Cells [][]GridCell `json:"cells"`
}

// ShiftSummary is the cross-condition mean delta-plot shift for one
// participant: hard minus easy, and complex minus simple, averaged over the
// overall-mode percentile vectors.
type ShiftSummary struct {
	Pnum            int     `json:"pnum"`
	DifficultyShift float64 `json:"difficulty_shift"`
	ComplexityShift float64 `json:"complexity_shift"`
}

// BuildGrid fills the condition-pair grid for one participant. Each
// unordered pair (i<j) is computed exactly once and written to both
// triangular positions; this single pass is what produces the complete
// symmetric grid with C(C-1)/2 iterations of real work.
func BuildGrid(table delta.Table, pnum int, conditions int) (ParticipantGrid, error) {
	grid := ParticipantGrid{
		Pnum:  pnum,
		Ranks: append([]float64(nil), table.Ranks...),
		Cells: make([][]GridCell, conditions),
	}
	for i := range grid.Cells {
		grid.Cells[i] = make([]GridCell, conditions)
	}

	for i := 0; i < conditions; i++ {
		for j := i + 1; j < conditions; j++ {
			upper := GridCell{Filled: true}
			lower := GridCell{Filled: true}
			for _, mode := range delta.Modes() {
				rowI, okI := table.Lookup(pnum, i, mode)
				rowJ, okJ := table.Lookup(pnum, j, mode)
				if !okI || !okJ {
					return ParticipantGrid{}, fmt.Errorf(
						"participant %d: missing %s percentiles for condition pair (%d,%d)",
						pnum, mode, i, j)
				}
				diff := make([]float64, len(rowJ.Percentiles))
				mirror := make([]float64, len(rowJ.Percentiles))
				for k := range diff {
					diff[k] = rowJ.Percentiles[k] - rowI.Percentiles[k]
					mirror[k] = -diff[k]
				}
				switch mode {
				case delta.ModeOverall:
					upper.Overall, lower.Overall = diff, mirror
				case delta.ModeAccurate:
					upper.Accurate, lower.Accurate = diff, mirror
				case delta.ModeError:
					upper.Error, lower.Error = diff, mirror
				}
			}
			grid.Cells[i][j] = upper
			grid.Cells[j][i] = lower
		}
	}
	return grid, nil
}

// Condition groupings fixed by condition = stim + 2*difficulty.
var (
	easyConditions    = []int{0, 1}
	hardConditions    = []int{2, 3}
	simpleConditions  = []int{0, 2}
	complexConditions = []int{1, 3}
)

// Shifts computes per-participant mean delta-plot shifts over the overall
// mode: hard minus easy and complex minus simple.
func Shifts(table delta.Table, pnums []int) ([]ShiftSummary, error) {
	out := make([]ShiftSummary, 0, len(pnums))
	for _, pnum := range pnums {
		diffShift, err := groupShift(table, pnum, hardConditions, easyConditions)
		if err != nil {
			return nil, err
		}
		compShift, err := groupShift(table, pnum, complexConditions, simpleConditions)
		if err != nil {
			return nil, err
		}
		out = append(out, ShiftSummary{
			Pnum:            pnum,
			DifficultyShift: diffShift,
			ComplexityShift: compShift,
		})
	}
	return out, nil
}

// groupShift is mean(percentiles of plus-group) - mean(percentiles of
// minus-group), overall mode.
func groupShift(table delta.Table, pnum int, plus, minus []int) (float64, error) {
	plusMean, err := groupMean(table, pnum, plus)
	if err != nil {
		return 0, err
	}
	minusMean, err := groupMean(table, pnum, minus)
	if err != nil {
		return 0, err
	}
	return plusMean - minusMean, nil
}

func groupMean(table delta.Table, pnum int, conditions []int) (float64, error) {
	var values []float64
	for _, cond := range conditions {
		row, ok := table.Lookup(pnum, cond, delta.ModeOverall)
		if !ok {
			return 0, fmt.Errorf("participant %d: no overall percentiles for condition %d", pnum, cond)
		}
		values = append(values, row.Percentiles...)
	}
	return stats.Mean(values)
}
