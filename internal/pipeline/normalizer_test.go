package pipeline

import (
	"testing"

	"sdtfit/domain/core"
	"sdtfit/domain/trial"
)

func TestNormalizer_ConditionDerivation(t *testing.T) {
	n := NewNormalizer(trial.DefaultCodes())

	cases := []struct {
		stim, diff string
		want       int
	}{
		{"simple", "easy", 0},
		{"complex", "easy", 1},
		{"simple", "hard", 2},
		{"complex", "hard", 3},
	}

	for _, tc := range cases {
		t.Run(tc.stim+"_"+tc.diff, func(t *testing.T) {
			trials, err := n.Normalize([]trial.RawTrial{{
				Pnum:         1,
				StimulusType: tc.stim,
				Difficulty:   tc.diff,
				Signal:       "present",
				Accuracy:     1,
				RT:           0.5,
			}})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if trials[0].Condition != tc.want {
				t.Errorf("condition = %d, want %d", trials[0].Condition, tc.want)
			}
			if trials[0].Condition < 0 || trials[0].Condition > 3 {
				t.Errorf("condition %d outside {0,1,2,3}", trials[0].Condition)
			}
		})
	}
}

func TestNormalizer_UnknownCategory(t *testing.T) {
	n := NewNormalizer(trial.DefaultCodes())

	cases := []struct {
		name string
		raw  trial.RawTrial
	}{
		{"bad stimulus", trial.RawTrial{Pnum: 1, StimulusType: "medium", Difficulty: "easy", Signal: "present", RT: 0.5}},
		{"bad difficulty", trial.RawTrial{Pnum: 1, StimulusType: "simple", Difficulty: "impossible", Signal: "present", RT: 0.5}},
		{"bad signal", trial.RawTrial{Pnum: 1, StimulusType: "simple", Difficulty: "easy", Signal: "maybe", RT: 0.5}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := n.Normalize([]trial.RawTrial{tc.raw})
			if err == nil {
				t.Fatal("expected unknown category error")
			}
			if !core.IsUnknownCategory(err) {
				t.Errorf("expected ErrUnknownCategory, got %v", err)
			}
		})
	}
}

func TestNormalizer_AccuracyCoercion(t *testing.T) {
	n := NewNormalizer(trial.DefaultCodes())

	trials, err := n.Normalize([]trial.RawTrial{
		{Pnum: 1, StimulusType: "simple", Difficulty: "easy", Signal: "present", Accuracy: 5, RT: 0.5},
		{Pnum: 1, StimulusType: "simple", Difficulty: "easy", Signal: "absent", Accuracy: 0, RT: 0.5},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if trials[0].Accuracy != 1 {
		t.Errorf("nonzero accuracy should coerce to 1, got %d", trials[0].Accuracy)
	}
	if trials[1].Accuracy != 0 {
		t.Errorf("zero accuracy should stay 0, got %d", trials[1].Accuracy)
	}
}

func TestNormalizer_RejectsInvalidTrials(t *testing.T) {
	n := NewNormalizer(trial.DefaultCodes())

	t.Run("non-positive pnum", func(t *testing.T) {
		_, err := n.Normalize([]trial.RawTrial{{Pnum: 0, StimulusType: "simple", Difficulty: "easy", Signal: "present", RT: 0.5}})
		if err == nil {
			t.Error("expected error for pnum 0")
		}
	})

	t.Run("non-positive rt", func(t *testing.T) {
		_, err := n.Normalize([]trial.RawTrial{{Pnum: 1, StimulusType: "simple", Difficulty: "easy", Signal: "present", RT: 0}})
		if err == nil {
			t.Error("expected error for rt 0")
		}
	})
}
