package app

import (
	"context"
	"fmt"
	"time"

	"sdtfit/domain/core"
	"sdtfit/domain/delta"
	"sdtfit/domain/model"
	"sdtfit/domain/sdt"
	"sdtfit/domain/trial"
	"sdtfit/internal"
	"sdtfit/internal/modelspec"
	"sdtfit/internal/pipeline"
	"sdtfit/ports"
)

// AnalysisService orchestrates a full run: read, normalize, aggregate both
// summaries, build the model graph and sample its posterior.
type AnalysisService struct {
	source  ports.TrialSource
	sampler ports.PosteriorSampler
	store   ports.RunRepository // nil disables persistence
	codes   trial.Codes
	logger  *internal.Logger
}

// AnalysisRequest defines inputs for a run
type AnalysisRequest struct {
	SourcePath string
	Sampling   ports.SamplerOptions
}

// AnalysisResult contains every artifact a run produces
type AnalysisResult struct {
	Manifest   ports.RunManifest
	SDTTable   sdt.Table
	DeltaTable delta.Table
	Posterior  *model.Posterior
	RuntimeMs  int64
}

// NewAnalysisService creates an analysis service. store may be nil.
func NewAnalysisService(source ports.TrialSource, sampler ports.PosteriorSampler,
	store ports.RunRepository, codes trial.Codes, logger *internal.Logger) *AnalysisService {
	return &AnalysisService{
		source:  source,
		sampler: sampler,
		store:   store,
		codes:   codes,
		logger:  logger,
	}
}

// Run executes the pipeline end to end and persists artifacts when a
// repository is configured.
func (s *AnalysisService) Run(ctx context.Context, req AnalysisRequest) (*AnalysisResult, error) {
	startTime := time.Now()
	runID := core.RunID(core.NewID())
	s.logger.Info("starting analysis run %s", runID)

	raw, err := s.source.ReadTrials(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read trials: %w", err)
	}
	s.logger.Debug("read %d raw trials", len(raw))

	trials, err := pipeline.NewNormalizer(s.codes).Normalize(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to normalize trials: %w", err)
	}

	sdtTable := pipeline.NewSDTAggregator().Aggregate(trials)
	if len(sdtTable.Dropped) > 0 {
		for _, d := range sdtTable.Dropped {
			s.logger.Warn("dropped incomplete cell: participant %d condition %d missing %s trials",
				d.Pnum, d.Condition, d.MissingSide)
		}
	}

	deltaTable, err := pipeline.NewDeltaPlotAggregator(s.codes.Percentiles).Aggregate(trials)
	if err != nil {
		return nil, fmt.Errorf("failed to build delta-plot table: %w", err)
	}

	graph, err := modelspec.NewBuilder().Build(sdtTable)
	if err != nil {
		return nil, fmt.Errorf("failed to build model graph: %w", err)
	}
	s.logger.Info("model graph has %d parameters over %d likelihood terms",
		len(graph.ParameterNames()), len(graph.Likelihoods))

	posterior, err := s.sampler.Sample(ctx, graph, req.Sampling)
	if err != nil {
		return nil, fmt.Errorf("posterior sampling failed: %w", err)
	}

	manifest := ports.RunManifest{
		RunID:        runID,
		SourcePath:   req.SourcePath,
		TrialCount:   len(trials),
		CellCount:    len(sdtTable.Cells),
		DroppedCells: len(sdtTable.Dropped),
		Seed:         req.Sampling.Seed,
		CreatedAt:    core.Now(),
	}

	if s.store != nil {
		if err := s.persist(ctx, manifest, sdtTable, deltaTable, posterior); err != nil {
			return nil, err
		}
	}

	runtimeMs := time.Since(startTime).Milliseconds()
	s.logger.Info("run %s completed in %dms", runID, runtimeMs)

	return &AnalysisResult{
		Manifest:   manifest,
		SDTTable:   sdtTable,
		DeltaTable: deltaTable,
		Posterior:  posterior,
		RuntimeMs:  runtimeMs,
	}, nil
}

func (s *AnalysisService) persist(ctx context.Context, manifest ports.RunManifest,
	sdtTable sdt.Table, deltaTable delta.Table, posterior *model.Posterior) error {

	if err := s.store.SaveRun(ctx, manifest); err != nil {
		return fmt.Errorf("failed to save run manifest: %w", err)
	}
	if err := s.store.SaveSDTTable(ctx, manifest.RunID, sdtTable); err != nil {
		return fmt.Errorf("failed to save sdt table: %w", err)
	}
	if err := s.store.SaveDeltaTable(ctx, manifest.RunID, deltaTable); err != nil {
		return fmt.Errorf("failed to save delta table: %w", err)
	}
	if err := s.store.SavePosteriorSummaries(ctx, manifest.RunID, posterior.Summaries); err != nil {
		return fmt.Errorf("failed to save posterior summaries: %w", err)
	}
	s.logger.Debug("persisted artifacts for run %s", manifest.RunID)
	return nil
}
