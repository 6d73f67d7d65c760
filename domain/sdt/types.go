package sdt

import (
	"fmt"
	"sort"
)

// Cell is one (participant, condition) contingency summary.
// INVARIANTS:
// - Hits + Misses == NSignal
// - FalseAlarms + CorrectRejections == NNoise
// - all counts non-negative
type Cell struct {
	Pnum              int `json:"pnum" db:"pnum"`
	Condition         int `json:"condition" db:"condition"`
	Hits              int `json:"hits" db:"hits"`
	Misses            int `json:"misses" db:"misses"`
	FalseAlarms       int `json:"false_alarms" db:"false_alarms"`
	CorrectRejections int `json:"correct_rejections" db:"correct_rejections"`
	NSignal           int `json:"n_signal" db:"n_signal"`
	NNoise            int `json:"n_noise" db:"n_noise"`
}

// Validate checks the cell count identities.
func (c Cell) Validate() error {
	if c.Hits < 0 || c.Misses < 0 || c.FalseAlarms < 0 || c.CorrectRejections < 0 {
		return fmt.Errorf("cell (%d,%d): negative count", c.Pnum, c.Condition)
	}
	if c.Hits+c.Misses != c.NSignal {
		return fmt.Errorf("cell (%d,%d): hits+misses=%d != nSignal=%d",
			c.Pnum, c.Condition, c.Hits+c.Misses, c.NSignal)
	}
	if c.FalseAlarms+c.CorrectRejections != c.NNoise {
		return fmt.Errorf("cell (%d,%d): falseAlarms+correctRejections=%d != nNoise=%d",
			c.Pnum, c.Condition, c.FalseAlarms+c.CorrectRejections, c.NNoise)
	}
	return nil
}

// DroppedCell records a (pnum, condition) pair excluded under the
// completeness policy, with the side that was missing.
type DroppedCell struct {
	Pnum        int    `json:"pnum"`
	Condition   int    `json:"condition"`
	MissingSide string `json:"missing_side"` // "signal" or "noise"
}

// Table is the derived SDT summary. It is recomputed per run and treated as
// immutable afterward.
type Table struct {
	Cells   []Cell        `json:"cells"`
	Dropped []DroppedCell `json:"dropped,omitempty"`
}

// Participants returns the sorted unique participant ids present in the table.
func (t Table) Participants() []int {
	seen := make(map[int]bool)
	for _, c := range t.Cells {
		seen[c.Pnum] = true
	}
	ids := make([]int, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// Conditions returns the sorted unique condition indices present in the table.
func (t Table) Conditions() []int {
	seen := make(map[int]bool)
	for _, c := range t.Cells {
		seen[c.Condition] = true
	}
	conds := make([]int, 0, len(seen))
	for c := range seen {
		conds = append(conds, c)
	}
	sort.Ints(conds)
	return conds
}
