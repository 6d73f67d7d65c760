package trial

import (
	"fmt"

	"sdtfit/domain/core"
)

// RawTrial is one trial record as read from the input table, categorical
// fields still as labels.
type RawTrial struct {
	Pnum         int     `json:"pnum"`
	StimulusType string  `json:"stimulus_type"`
	Difficulty   string  `json:"difficulty"`
	Signal       string  `json:"signal"`
	Accuracy     int     `json:"accuracy"`
	RT           float64 `json:"rt"`
}

// Trial is a normalized trial with all categorical columns integer-coded.
// Records are immutable once normalized.
type Trial struct {
	Pnum      int     `json:"pnum"`
	StimCode  int     `json:"stim_code"`  // simple=0, complex=1
	DiffCode  int     `json:"diff_code"`  // easy=0, hard=1
	Signal    int     `json:"signal"`     // absent=0, present=1
	Accuracy  int     `json:"accuracy"`   // 0 or 1
	RT        float64 `json:"rt"`         // seconds, > 0
	Condition int     `json:"condition"`  // stim_code + 2*diff_code
}

// SignalPresent reports whether this was a signal trial.
func (t Trial) SignalPresent() bool { return t.Signal == 1 }

// Codes is the fixed, read-only categorical coding configuration shared by
// the whole pipeline. Constructed once at startup; never mutated.
type Codes struct {
	StimulusType   map[string]int
	Difficulty     map[string]int
	Signal         map[string]int
	ConditionNames map[int]string
	Percentiles    []float64
}

// DefaultCodes returns the fixed 2x2 factorial coding tables and the
// delta-plot percentile set.
func DefaultCodes() Codes {
	return Codes{
		StimulusType: map[string]int{"simple": 0, "complex": 1},
		Difficulty:   map[string]int{"easy": 0, "hard": 1},
		Signal:       map[string]int{"absent": 0, "present": 1},
		ConditionNames: map[int]string{
			0: "Easy Simple",
			1: "Easy Complex",
			2: "Hard Simple",
			3: "Hard Complex",
		},
		Percentiles: []float64{10, 30, 50, 70, 90},
	}
}

// NumConditions is fixed by the 2x2 design.
const NumConditions = 4

// Condition derives the condition index from the two binary codes.
func Condition(stimCode, diffCode int) int {
	return stimCode + 2*diffCode
}

// ConditionName returns the display name for a condition index.
func (c Codes) ConditionName(condition int) string {
	if name, ok := c.ConditionNames[condition]; ok {
		return name
	}
	return "Unknown"
}

// Validate checks a raw trial's non-categorical fields before normalization.
func (r RawTrial) Validate() error {
	if r.Pnum <= 0 {
		return fmt.Errorf("%w: participant id must be positive, got %d", core.ErrInvalidTrial, r.Pnum)
	}
	if r.RT <= 0 {
		return fmt.Errorf("%w: rt must be positive, got %g", core.ErrInvalidTrial, r.RT)
	}
	return nil
}
