package app

import (
	"context"
	"fmt"
	"testing"

	"sdtfit/domain/core"
	"sdtfit/domain/delta"
	"sdtfit/domain/model"
	"sdtfit/domain/sdt"
	"sdtfit/domain/trial"
	"sdtfit/internal"
	"sdtfit/ports"
)

type fakeSource struct {
	trials []trial.RawTrial
	err    error
}

func (f *fakeSource) ReadTrials(ctx context.Context) ([]trial.RawTrial, error) {
	return f.trials, f.err
}

type fakeSampler struct {
	posterior *model.Posterior
	err       error
	gotGraph  *model.Graph
	gotOpts   ports.SamplerOptions
}

func (f *fakeSampler) Sample(ctx context.Context, graph *model.Graph, opts ports.SamplerOptions) (*model.Posterior, error) {
	f.gotGraph = graph
	f.gotOpts = opts
	return f.posterior, f.err
}

type memoryStore struct {
	manifest  *ports.RunManifest
	sdtTable  *sdt.Table
	delta     *delta.Table
	summaries []model.Summary
}

func (m *memoryStore) SaveRun(ctx context.Context, manifest ports.RunManifest) error {
	m.manifest = &manifest
	return nil
}

func (m *memoryStore) SaveSDTTable(ctx context.Context, runID core.RunID, table sdt.Table) error {
	m.sdtTable = &table
	return nil
}

func (m *memoryStore) SaveDeltaTable(ctx context.Context, runID core.RunID, table delta.Table) error {
	m.delta = &table
	return nil
}

func (m *memoryStore) SavePosteriorSummaries(ctx context.Context, runID core.RunID, summaries []model.Summary) error {
	m.summaries = summaries
	return nil
}

func (m *memoryStore) GetRun(ctx context.Context, runID core.RunID) (*ports.RunManifest, error) {
	return m.manifest, nil
}

func (m *memoryStore) GetSDTTable(ctx context.Context, runID core.RunID) (*sdt.Table, error) {
	return m.sdtTable, nil
}

func (m *memoryStore) GetDeltaTable(ctx context.Context, runID core.RunID) (*delta.Table, error) {
	return m.delta, nil
}

func (m *memoryStore) GetPosteriorSummaries(ctx context.Context, runID core.RunID) ([]model.Summary, error) {
	return m.summaries, nil
}

// syntheticTrials covers every condition for every participant with both
// signal sides and both accuracy outcomes.
func syntheticTrials(pnums []int) []trial.RawTrial {
	var trials []trial.RawTrial
	rt := 0.3
	for _, pnum := range pnums {
		for _, stim := range []string{"simple", "complex"} {
			for _, diff := range []string{"easy", "hard"} {
				for _, signal := range []string{"present", "absent"} {
					for _, accuracy := range []int{1, 0} {
						trials = append(trials, trial.RawTrial{
							Pnum:         pnum,
							StimulusType: stim,
							Difficulty:   diff,
							Signal:       signal,
							Accuracy:     accuracy,
							RT:           rt,
						})
						rt += 0.01
					}
				}
			}
		}
	}
	return trials
}

func quietLogger() *internal.Logger {
	return internal.NewLogger(internal.LogLevelError)
}

func TestAnalysisService_Run(t *testing.T) {
	pnums := []int{1, 2}
	source := &fakeSource{trials: syntheticTrials(pnums)}
	sampler := &fakeSampler{
		posterior: &model.Posterior{
			Summaries: []model.Summary{{Name: "intercept_d", Mean: 1.2, HDILow: 0.8, HDIHigh: 1.6, RHat: 1.01}},
		},
	}
	store := &memoryStore{}
	service := NewAnalysisService(source, sampler, store, trial.DefaultCodes(), quietLogger())

	opts := ports.SamplerOptions{Draws: 100, Tune: 100, Chains: 2, TargetAccept: 0.44, Seed: 7}
	result, err := service.Run(context.Background(), AnalysisRequest{SourcePath: "trials.csv", Sampling: opts})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	t.Run("manifest counts", func(t *testing.T) {
		if result.Manifest.TrialCount != len(source.trials) {
			t.Errorf("Expected %d trials, got %d", len(source.trials), result.Manifest.TrialCount)
		}
		if result.Manifest.CellCount != 8 {
			t.Errorf("Expected 8 SDT cells, got %d", result.Manifest.CellCount)
		}
		if result.Manifest.DroppedCells != 0 {
			t.Errorf("Expected no dropped cells, got %d", result.Manifest.DroppedCells)
		}
		if result.Manifest.Seed != 7 {
			t.Errorf("Expected seed 7, got %d", result.Manifest.Seed)
		}
		if result.Manifest.RunID.String() == "" {
			t.Error("Expected a run ID to be assigned")
		}
	})

	t.Run("sampler received graph and options", func(t *testing.T) {
		if sampler.gotGraph == nil {
			t.Fatal("Sampler never received a graph")
		}
		if got := len(sampler.gotGraph.Likelihoods); got != 16 {
			t.Errorf("Expected 16 likelihood terms for 8 cells, got %d", got)
		}
		if sampler.gotOpts != opts {
			t.Errorf("Sampler options mismatch: %+v", sampler.gotOpts)
		}
	})

	t.Run("delta table covers all cells and modes", func(t *testing.T) {
		if got := len(result.DeltaTable.Rows); got != 8*3 {
			t.Errorf("Expected 24 delta rows, got %d", got)
		}
	})

	t.Run("artifacts persisted", func(t *testing.T) {
		if store.manifest == nil || store.manifest.RunID != result.Manifest.RunID {
			t.Error("Manifest not persisted")
		}
		if store.sdtTable == nil || len(store.sdtTable.Cells) != 8 {
			t.Error("SDT table not persisted")
		}
		if store.delta == nil || len(store.delta.Rows) != 24 {
			t.Error("Delta table not persisted")
		}
		if len(store.summaries) != 1 {
			t.Error("Posterior summaries not persisted")
		}
	})
}

func TestAnalysisService_RunWithoutStore(t *testing.T) {
	source := &fakeSource{trials: syntheticTrials([]int{1})}
	sampler := &fakeSampler{posterior: &model.Posterior{}}
	service := NewAnalysisService(source, sampler, nil, trial.DefaultCodes(), quietLogger())

	_, err := service.Run(context.Background(), AnalysisRequest{
		SourcePath: "trials.csv",
		Sampling:   ports.SamplerOptions{Draws: 10, Tune: 10, Chains: 1, TargetAccept: 0.44},
	})
	if err != nil {
		t.Fatalf("Run without store failed: %v", err)
	}
}

func TestAnalysisService_SamplerFailure(t *testing.T) {
	source := &fakeSource{trials: syntheticTrials([]int{1})}
	sampler := &fakeSampler{err: fmt.Errorf("%w: chain diverged", core.ErrSamplerFailed)}
	service := NewAnalysisService(source, sampler, nil, trial.DefaultCodes(), quietLogger())

	_, err := service.Run(context.Background(), AnalysisRequest{
		SourcePath: "trials.csv",
		Sampling:   ports.SamplerOptions{Draws: 10, Tune: 10, Chains: 1, TargetAccept: 0.44},
	})
	if err == nil {
		t.Fatal("Expected sampler failure to propagate")
	}
	if !core.IsSamplerError(err) {
		t.Errorf("Expected sampler error, got: %v", err)
	}
}

func TestAnalysisService_ReadFailure(t *testing.T) {
	source := &fakeSource{err: fmt.Errorf("file unreadable")}
	service := NewAnalysisService(source, &fakeSampler{}, nil, trial.DefaultCodes(), quietLogger())

	_, err := service.Run(context.Background(), AnalysisRequest{SourcePath: "trials.csv"})
	if err == nil {
		t.Fatal("Expected read failure to propagate")
	}
}
