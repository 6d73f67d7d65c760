package pipeline

import (
	"sort"

	"sdtfit/domain/sdt"
	"sdtfit/domain/trial"
)

// SDTAggregator folds normalized trials into hit/miss/false-alarm/
// correct-rejection counts per (participant, condition).
//
// Completeness policy: a (pnum, condition) pair is emitted only when both a
// signal-present and a signal-absent subgroup exist. Pairs missing one side
// are recorded in Table.Dropped and excluded — this is a documented,
// recoverable policy, not an error. Callers that require full P x 4
// coverage must check it themselves.
type SDTAggregator struct{}

// NewSDTAggregator creates an SDT aggregator.
func NewSDTAggregator() *SDTAggregator {
	return &SDTAggregator{}
}

type signalGroup struct {
	count   int
	correct int
}

type cellKey struct {
	pnum      int
	condition int
}

// Aggregate produces the SDT contingency table from normalized trials.
// Output order is deterministic: ascending (pnum, condition).
func (a *SDTAggregator) Aggregate(trials []trial.Trial) sdt.Table {
	signal := make(map[cellKey]signalGroup)
	noise := make(map[cellKey]signalGroup)
	keySet := make(map[cellKey]bool)

	for _, t := range trials {
		key := cellKey{pnum: t.Pnum, condition: t.Condition}
		keySet[key] = true
		groups := noise
		if t.SignalPresent() {
			groups = signal
		}
		g := groups[key]
		g.count++
		g.correct += t.Accuracy
		groups[key] = g
	}

	keys := make([]cellKey, 0, len(keySet))
	for k := range keySet {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].pnum != keys[j].pnum {
			return keys[i].pnum < keys[j].pnum
		}
		return keys[i].condition < keys[j].condition
	})

	var table sdt.Table
	for _, key := range keys {
		sig, hasSignal := signal[key]
		noi, hasNoise := noise[key]
		if !hasSignal {
			table.Dropped = append(table.Dropped, sdt.DroppedCell{
				Pnum: key.pnum, Condition: key.condition, MissingSide: "signal",
			})
			continue
		}
		if !hasNoise {
			table.Dropped = append(table.Dropped, sdt.DroppedCell{
				Pnum: key.pnum, Condition: key.condition, MissingSide: "noise",
			})
			continue
		}
		table.Cells = append(table.Cells, sdt.Cell{
			Pnum:              key.pnum,
			Condition:         key.condition,
			Hits:              sig.correct,
			Misses:            sig.count - sig.correct,
			FalseAlarms:       noi.count - noi.correct,
			CorrectRejections: noi.correct,
			NSignal:           sig.count,
			NNoise:            noi.count,
		})
	}
	return table
}
