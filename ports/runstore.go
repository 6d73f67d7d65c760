package ports

import (
	"context"

	"sdtfit/domain/core"
	"sdtfit/domain/delta"
	"sdtfit/domain/model"
	"sdtfit/domain/sdt"
)

// RunManifest captures what a completed analysis run produced.
type RunManifest struct {
	RunID        core.RunID     `json:"run_id"`
	SourcePath   string         `json:"source_path"`
	TrialCount   int            `json:"trial_count"`
	CellCount    int            `json:"cell_count"`
	DroppedCells int            `json:"dropped_cells"`
	Seed         int64          `json:"seed"`
	CreatedAt    core.Timestamp `json:"created_at"`
}

// RunRepository persists and retrieves run artifacts. Implementations are
// optional; the pipeline runs without one.
type RunRepository interface {
	SaveRun(ctx context.Context, manifest RunManifest) error
	SaveSDTTable(ctx context.Context, runID core.RunID, table sdt.Table) error
	SaveDeltaTable(ctx context.Context, runID core.RunID, table delta.Table) error
	SavePosteriorSummaries(ctx context.Context, runID core.RunID, summaries []model.Summary) error

	GetRun(ctx context.Context, runID core.RunID) (*RunManifest, error)
	GetSDTTable(ctx context.Context, runID core.RunID) (*sdt.Table, error)
	GetDeltaTable(ctx context.Context, runID core.RunID) (*delta.Table, error)
	GetPosteriorSummaries(ctx context.Context, runID core.RunID) ([]model.Summary, error)
}
