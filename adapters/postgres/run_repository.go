package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/jmoiron/sqlx"

	"sdtfit/domain/core"
	"sdtfit/domain/delta"
	"sdtfit/domain/model"
	"sdtfit/domain/sdt"
	"sdtfit/ports"
)

// Schema is the DDL for run artifact storage. Applied by the caller
// (cmd main) at startup when persistence is enabled.
const Schema = `
CREATE TABLE IF NOT EXISTS runs (
	run_id        TEXT PRIMARY KEY,
	source_path   TEXT NOT NULL,
	trial_count   INTEGER NOT NULL,
	cell_count    INTEGER NOT NULL,
	dropped_cells INTEGER NOT NULL,
	seed          BIGINT NOT NULL,
	created_at    TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS sdt_cells (
	run_id             TEXT NOT NULL REFERENCES runs(run_id),
	pnum               INTEGER NOT NULL,
	condition          INTEGER NOT NULL,
	hits               INTEGER NOT NULL,
	misses             INTEGER NOT NULL,
	false_alarms       INTEGER NOT NULL,
	correct_rejections INTEGER NOT NULL,
	n_signal           INTEGER NOT NULL,
	n_noise            INTEGER NOT NULL,
	PRIMARY KEY (run_id, pnum, condition)
);

CREATE TABLE IF NOT EXISTS delta_rows (
	run_id      TEXT NOT NULL REFERENCES runs(run_id),
	pnum        INTEGER NOT NULL,
	condition   INTEGER NOT NULL,
	mode        TEXT NOT NULL,
	ranks       JSONB NOT NULL,
	percentiles JSONB NOT NULL,
	PRIMARY KEY (run_id, pnum, condition, mode)
);

CREATE TABLE IF NOT EXISTS posterior_summaries (
	run_id   TEXT NOT NULL REFERENCES runs(run_id),
	name     TEXT NOT NULL,
	mean     DOUBLE PRECISION NOT NULL,
	hdi_low  DOUBLE PRECISION NOT NULL,
	hdi_high DOUBLE PRECISION NOT NULL,
	r_hat    DOUBLE PRECISION NOT NULL,
	PRIMARY KEY (run_id, name)
);
`

// RunRepository persists run artifacts in Postgres.
type RunRepository struct {
	db *sqlx.DB
}

// NewRunRepository creates a repository over an open connection.
func NewRunRepository(db *sqlx.DB) *RunRepository {
	return &RunRepository{db: db}
}

// EnsureSchema applies the artifact DDL.
func (r *RunRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("failed to apply run schema: %w", err)
	}
	return nil
}

// SaveRun stores the run manifest.
func (r *RunRepository) SaveRun(ctx context.Context, manifest ports.RunManifest) error {
	query := `
		INSERT INTO runs (run_id, source_path, trial_count, cell_count, dropped_cells, seed, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := r.db.ExecContext(ctx, query,
		manifest.RunID.String(),
		manifest.SourcePath,
		manifest.TrialCount,
		manifest.CellCount,
		manifest.DroppedCells,
		manifest.Seed,
		manifest.CreatedAt.Time(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}
	return nil
}

// SaveSDTTable stores all SDT cells of a run.
func (r *RunRepository) SaveSDTTable(ctx context.Context, runID core.RunID, table sdt.Table) error {
	query := `
		INSERT INTO sdt_cells (run_id, pnum, condition, hits, misses, false_alarms, correct_rejections, n_signal, n_noise)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	for _, c := range table.Cells {
		if _, err := r.db.ExecContext(ctx, query,
			runID.String(), c.Pnum, c.Condition,
			c.Hits, c.Misses, c.FalseAlarms, c.CorrectRejections,
			c.NSignal, c.NNoise,
		); err != nil {
			return fmt.Errorf("failed to insert sdt cell (%d,%d): %w", c.Pnum, c.Condition, err)
		}
	}
	return nil
}

// SaveDeltaTable stores all delta-plot rows of a run.
func (r *RunRepository) SaveDeltaTable(ctx context.Context, runID core.RunID, table delta.Table) error {
	ranksJSON, err := json.Marshal(table.Ranks)
	if err != nil {
		return fmt.Errorf("failed to marshal ranks: %w", err)
	}
	query := `
		INSERT INTO delta_rows (run_id, pnum, condition, mode, ranks, percentiles)
		VALUES ($1, $2, $3, $4, $5, $6)`
	for _, row := range table.Rows {
		percentilesJSON, err := json.Marshal(row.Percentiles)
		if err != nil {
			return fmt.Errorf("failed to marshal percentiles: %w", err)
		}
		if _, err := r.db.ExecContext(ctx, query,
			runID.String(), row.Pnum, row.Condition, string(row.Mode),
			ranksJSON, percentilesJSON,
		); err != nil {
			return fmt.Errorf("failed to insert delta row (%d,%d,%s): %w", row.Pnum, row.Condition, row.Mode, err)
		}
	}
	return nil
}

// SavePosteriorSummaries stores per-parameter posterior summaries.
func (r *RunRepository) SavePosteriorSummaries(ctx context.Context, runID core.RunID, summaries []model.Summary) error {
	query := `
		INSERT INTO posterior_summaries (run_id, name, mean, hdi_low, hdi_high, r_hat)
		VALUES ($1, $2, $3, $4, $5, $6)`
	for _, s := range summaries {
		if _, err := r.db.ExecContext(ctx, query,
			runID.String(), s.Name, s.Mean, s.HDILow, s.HDIHigh, s.RHat,
		); err != nil {
			return fmt.Errorf("failed to insert summary %q: %w", s.Name, err)
		}
	}
	return nil
}

// GetRun loads a run manifest, or ErrNotFound.
func (r *RunRepository) GetRun(ctx context.Context, runID core.RunID) (*ports.RunManifest, error) {
	query := `
		SELECT run_id, source_path, trial_count, cell_count, dropped_cells, seed, created_at
		FROM runs WHERE run_id = $1`

	var manifest ports.RunManifest
	var id string
	var createdAt sql.NullTime
	err := r.db.QueryRowContext(ctx, query, runID.String()).Scan(
		&id, &manifest.SourcePath, &manifest.TrialCount,
		&manifest.CellCount, &manifest.DroppedCells, &manifest.Seed, &createdAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("%w: run %s", core.ErrNotFound, runID)
		}
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	manifest.RunID = core.RunID(id)
	if createdAt.Valid {
		manifest.CreatedAt = core.NewTimestamp(createdAt.Time)
	}
	return &manifest, nil
}

// GetSDTTable loads the SDT cells of a run in (pnum, condition) order.
func (r *RunRepository) GetSDTTable(ctx context.Context, runID core.RunID) (*sdt.Table, error) {
	query := `
		SELECT pnum, condition, hits, misses, false_alarms, correct_rejections, n_signal, n_noise
		FROM sdt_cells WHERE run_id = $1 ORDER BY pnum, condition`

	var cells []sdt.Cell
	if err := r.db.SelectContext(ctx, &cells, query, runID.String()); err != nil {
		return nil, fmt.Errorf("failed to get sdt cells: %w", err)
	}
	return &sdt.Table{Cells: cells}, nil
}

// GetDeltaTable loads the delta rows of a run in (pnum, condition, mode) order.
func (r *RunRepository) GetDeltaTable(ctx context.Context, runID core.RunID) (*delta.Table, error) {
	query := `
		SELECT pnum, condition, mode, ranks, percentiles
		FROM delta_rows WHERE run_id = $1 ORDER BY pnum, condition, mode`

	rows, err := r.db.QueryContext(ctx, query, runID.String())
	if err != nil {
		return nil, fmt.Errorf("failed to query delta rows: %w", err)
	}
	defer rows.Close()

	var table delta.Table
	for rows.Next() {
		var row delta.Row
		var mode string
		var ranksJSON, percentilesJSON []byte
		if err := rows.Scan(&row.Pnum, &row.Condition, &mode, &ranksJSON, &percentilesJSON); err != nil {
			return nil, fmt.Errorf("failed to scan delta row: %w", err)
		}
		row.Mode = delta.Mode(mode)
		if err := json.Unmarshal(percentilesJSON, &row.Percentiles); err != nil {
			return nil, fmt.Errorf("failed to unmarshal percentiles: %w", err)
		}
		if table.Ranks == nil {
			if err := json.Unmarshal(ranksJSON, &table.Ranks); err != nil {
				return nil, fmt.Errorf("failed to unmarshal ranks: %w", err)
			}
		}
		table.Rows = append(table.Rows, row)
	}
	return &table, rows.Err()
}

// GetPosteriorSummaries loads per-parameter summaries in name order.
func (r *RunRepository) GetPosteriorSummaries(ctx context.Context, runID core.RunID) ([]model.Summary, error) {
	query := `
		SELECT name, mean, hdi_low, hdi_high, r_hat
		FROM posterior_summaries WHERE run_id = $1 ORDER BY name`

	var summaries []model.Summary
	if err := r.db.SelectContext(ctx, &summaries, query, runID.String()); err != nil {
		return nil, fmt.Errorf("failed to get posterior summaries: %w", err)
	}
	return summaries, nil
}
