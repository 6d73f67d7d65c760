package pipeline

import (
	"math"
	"sort"

	"sdtfit/domain/core"
	"sdtfit/domain/delta"
	"sdtfit/domain/trial"
)

// DeltaPlotAggregator computes RT percentile vectors per
// (participant, condition, response mode).
//
// The percentile rule is pinned to linear interpolation between order
// statistics (the R type-7 quantile definition) so that outputs are
// bitwise reproducible across reimplementations.
type DeltaPlotAggregator struct {
	ranks []float64
}

// NewDeltaPlotAggregator creates an aggregator over the configured
// percentile ranks, e.g. [10 30 50 70 90].
func NewDeltaPlotAggregator(ranks []float64) *DeltaPlotAggregator {
	return &DeltaPlotAggregator{ranks: ranks}
}

// Aggregate partitions each observed (pnum, condition) pair into overall,
// accurate and error subsets and computes the percentile vector for each.
// An empty subset is a hard failure carrying the identifying key; it never
// silently yields an undefined vector.
func (a *DeltaPlotAggregator) Aggregate(trials []trial.Trial) (delta.Table, error) {
	rts := make(map[cellKey]map[delta.Mode][]float64)
	for _, t := range trials {
		key := cellKey{pnum: t.Pnum, condition: t.Condition}
		if rts[key] == nil {
			rts[key] = map[delta.Mode][]float64{}
		}
		rts[key][delta.ModeOverall] = append(rts[key][delta.ModeOverall], t.RT)
		if t.Accuracy == 1 {
			rts[key][delta.ModeAccurate] = append(rts[key][delta.ModeAccurate], t.RT)
		} else {
			rts[key][delta.ModeError] = append(rts[key][delta.ModeError], t.RT)
		}
	}

	keys := make([]cellKey, 0, len(rts))
	for k := range rts {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].pnum != keys[j].pnum {
			return keys[i].pnum < keys[j].pnum
		}
		return keys[i].condition < keys[j].condition
	})

	table := delta.Table{Ranks: append([]float64(nil), a.ranks...)}
	for _, key := range keys {
		for _, mode := range delta.Modes() {
			sample := rts[key][mode]
			if len(sample) == 0 {
				return delta.Table{}, core.NewEmptyDistributionError(key.pnum, key.condition, string(mode))
			}
			vec, err := PercentileVector(sample, a.ranks)
			if err != nil {
				return delta.Table{}, err
			}
			table.Rows = append(table.Rows, delta.Row{
				Pnum:        key.pnum,
				Condition:   key.condition,
				Mode:        mode,
				Percentiles: vec,
			})
		}
	}
	return table, nil
}

// PercentileVector computes the given percentile ranks over a sample using
// linear interpolation between order statistics (R type-7):
// h = (n-1)*p/100, result = x[floor(h)] + (h-floor(h))*(x[floor(h)+1]-x[floor(h)]).
// The result is non-decreasing in rank for any non-empty sample.
func PercentileVector(sample []float64, ranks []float64) ([]float64, error) {
	if len(sample) == 0 {
		return nil, core.ErrEmptyDistribution
	}
	sorted := make([]float64, len(sample))
	copy(sorted, sample)
	sort.Float64s(sorted)

	out := make([]float64, len(ranks))
	n := len(sorted)
	for i, p := range ranks {
		h := (float64(n) - 1) * p / 100.0
		lo := int(math.Floor(h))
		if lo >= n-1 {
			out[i] = sorted[n-1]
			continue
		}
		frac := h - float64(lo)
		out[i] = sorted[lo] + frac*(sorted[lo+1]-sorted[lo])
	}
	return out, nil
}
