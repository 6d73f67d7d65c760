package pipeline

import (
	"sdtfit/domain/core"
	"sdtfit/domain/trial"
)

// Normalizer maps categorical trial columns through the fixed coding tables
// and derives the condition index. It is a pure transformation; the input
// slice is never mutated.
type Normalizer struct {
	codes trial.Codes
}

// NewNormalizer creates a normalizer over a coding configuration.
func NewNormalizer(codes trial.Codes) *Normalizer {
	return &Normalizer{codes: codes}
}

// Normalize converts raw trials to integer-coded trials. Any label missing
// from a coding table aborts with an unknown-category error; nothing is
// skipped silently.
func (n *Normalizer) Normalize(raw []trial.RawTrial) ([]trial.Trial, error) {
	out := make([]trial.Trial, 0, len(raw))
	for _, r := range raw {
		if err := r.Validate(); err != nil {
			return nil, err
		}
		stim, ok := n.codes.StimulusType[r.StimulusType]
		if !ok {
			return nil, core.NewUnknownCategoryError("stimulus_type", r.StimulusType)
		}
		diff, ok := n.codes.Difficulty[r.Difficulty]
		if !ok {
			return nil, core.NewUnknownCategoryError("difficulty", r.Difficulty)
		}
		sig, ok := n.codes.Signal[r.Signal]
		if !ok {
			return nil, core.NewUnknownCategoryError("signal", r.Signal)
		}
		out = append(out, trial.Trial{
			Pnum:      r.Pnum,
			StimCode:  stim,
			DiffCode:  diff,
			Signal:    sig,
			Accuracy:  coerceAccuracy(r.Accuracy),
			RT:        r.RT,
			Condition: trial.Condition(stim, diff),
		})
	}
	return out, nil
}

// coerceAccuracy clamps accuracy to {0,1}. Any nonzero value counts as
// correct, matching how the column is encoded upstream.
func coerceAccuracy(a int) int {
	if a != 0 {
		return 1
	}
	return 0
}
