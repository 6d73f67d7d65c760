package pipeline

import (
	"math"
	"strings"
	"testing"

	"sdtfit/domain/core"
	"sdtfit/domain/delta"
	"sdtfit/domain/trial"
)

var deltaRanks = []float64{10, 30, 50, 70, 90}

func TestPercentileVector_PinnedValues(t *testing.T) {
	// Reference values for the linear (type-7) interpolation rule.
	sample := []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1.0}
	want := []float64{0.19, 0.37, 0.55, 0.73, 0.91}

	got, err := PercentileVector(sample, deltaRanks)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i := range want {
		if math.Abs(got[i]-want[i]) > 1e-12 {
			t.Errorf("p%.0f = %.12f, want %.12f", deltaRanks[i], got[i], want[i])
		}
	}
}

func TestPercentileVector_NonDecreasing(t *testing.T) {
	samples := [][]float64{
		{0.42},
		{0.9, 0.1},
		{0.5, 0.5, 0.5},
		{1.2, 0.3, 0.7, 0.7, 2.5, 0.4, 0.9},
	}
	for _, sample := range samples {
		vec, err := PercentileVector(sample, deltaRanks)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		for i := 1; i < len(vec); i++ {
			if vec[i] < vec[i-1] {
				t.Errorf("sample %v: p%.0f=%.4f < p%.0f=%.4f",
					sample, deltaRanks[i], vec[i], deltaRanks[i-1], vec[i-1])
			}
		}
	}
}

func TestPercentileVector_SingleObservation(t *testing.T) {
	vec, err := PercentileVector([]float64{0.42}, deltaRanks)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i, v := range vec {
		if v != 0.42 {
			t.Errorf("p%.0f = %v, want 0.42", deltaRanks[i], v)
		}
	}
}

func TestDeltaPlotAggregator_ThreeModesPerCell(t *testing.T) {
	trials := []trial.Trial{
		{Pnum: 1, Signal: 1, Accuracy: 1, RT: 0.4, Condition: 0},
		{Pnum: 1, Signal: 1, Accuracy: 0, RT: 0.6, Condition: 0},
		{Pnum: 1, Signal: 0, Accuracy: 1, RT: 0.5, Condition: 0},
		{Pnum: 1, Signal: 0, Accuracy: 0, RT: 0.7, Condition: 0},
	}

	table, err := NewDeltaPlotAggregator(deltaRanks).Aggregate(trials)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(table.Rows) != 3 {
		t.Fatalf("expected 3 rows (one per mode), got %d", len(table.Rows))
	}
	for _, mode := range delta.Modes() {
		row, ok := table.Lookup(1, 0, mode)
		if !ok {
			t.Errorf("missing row for mode %s", mode)
			continue
		}
		if len(row.Percentiles) != len(deltaRanks) {
			t.Errorf("mode %s: %d percentiles, want %d", mode, len(row.Percentiles), len(deltaRanks))
		}
	}

	// Overall percentiles cover the full RT range.
	overall, _ := table.Lookup(1, 0, delta.ModeOverall)
	if overall.Percentiles[0] < 0.4 || overall.Percentiles[len(overall.Percentiles)-1] > 0.7 {
		t.Errorf("overall percentiles %v outside observed RT range", overall.Percentiles)
	}
}

func TestDeltaPlotAggregator_EmptyModeFails(t *testing.T) {
	// Participant 5, condition 2, with no error trials at all.
	trials := []trial.Trial{
		{Pnum: 5, Signal: 1, Accuracy: 1, RT: 0.4, Condition: 2},
		{Pnum: 5, Signal: 0, Accuracy: 1, RT: 0.5, Condition: 2},
	}

	_, err := NewDeltaPlotAggregator(deltaRanks).Aggregate(trials)
	if err == nil {
		t.Fatal("expected empty distribution error")
	}
	if !core.IsEmptyDistribution(err) {
		t.Fatalf("expected ErrEmptyDistribution, got %v", err)
	}
	// The error must identify the failing (pnum, condition, mode).
	msg := err.Error()
	for _, part := range []string{"participant 5", "condition 2", `"error"`} {
		if !strings.Contains(msg, part) {
			t.Errorf("error %q does not identify %s", msg, part)
		}
	}
}
