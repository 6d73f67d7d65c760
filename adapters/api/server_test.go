package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sdtfit/domain/core"
	"sdtfit/domain/delta"
	"sdtfit/domain/model"
	"sdtfit/domain/sdt"
	"sdtfit/domain/trial"
	"sdtfit/internal"
	"sdtfit/ports"
)

type stubStore struct {
	manifest  *ports.RunManifest
	sdtTable  *sdt.Table
	delta     *delta.Table
	summaries []model.Summary
}

func (s *stubStore) SaveRun(ctx context.Context, manifest ports.RunManifest) error { return nil }
func (s *stubStore) SaveSDTTable(ctx context.Context, runID core.RunID, table sdt.Table) error {
	return nil
}
func (s *stubStore) SaveDeltaTable(ctx context.Context, runID core.RunID, table delta.Table) error {
	return nil
}
func (s *stubStore) SavePosteriorSummaries(ctx context.Context, runID core.RunID, summaries []model.Summary) error {
	return nil
}

func (s *stubStore) GetRun(ctx context.Context, runID core.RunID) (*ports.RunManifest, error) {
	if s.manifest == nil || s.manifest.RunID != runID {
		return nil, core.ErrNotFound
	}
	return s.manifest, nil
}

func (s *stubStore) GetSDTTable(ctx context.Context, runID core.RunID) (*sdt.Table, error) {
	return s.sdtTable, nil
}

func (s *stubStore) GetDeltaTable(ctx context.Context, runID core.RunID) (*delta.Table, error) {
	return s.delta, nil
}

func (s *stubStore) GetPosteriorSummaries(ctx context.Context, runID core.RunID) ([]model.Summary, error) {
	return s.summaries, nil
}

func testStore() *stubStore {
	return &stubStore{
		manifest: &ports.RunManifest{
			RunID:      core.RunID("run-1"),
			SourcePath: "trials.csv",
			TrialCount: 32,
			CellCount:  2,
			Seed:       7,
		},
		sdtTable: &sdt.Table{Cells: []sdt.Cell{
			{Pnum: 1, Condition: 0, Hits: 3, Misses: 1, FalseAlarms: 1, CorrectRejections: 3, NSignal: 4, NNoise: 4},
			{Pnum: 1, Condition: 1, Hits: 2, Misses: 2, FalseAlarms: 2, CorrectRejections: 2, NSignal: 4, NNoise: 4},
		}},
		delta: &delta.Table{
			Ranks: []float64{10, 30, 50, 70, 90},
			Rows:  stubDeltaRows(),
		},
		summaries: []model.Summary{
			{Name: "intercept_d", Mean: 1.1, HDILow: 0.7, HDIHigh: 1.5, RHat: 1.0},
		},
	}
}

func stubDeltaRows() []delta.Row {
	var rows []delta.Row
	for c := 0; c < 4; c++ {
		base := 0.1 + 0.1*float64(c)
		for _, mode := range delta.Modes() {
			rows = append(rows, delta.Row{
				Pnum:      1,
				Condition: c,
				Mode:      mode,
				Percentiles: []float64{
					base, base + 0.1, base + 0.2, base + 0.3, base + 0.4,
				},
			})
		}
	}
	return rows
}

func newTestServer() *Server {
	return NewServer(testStore(), trial.DefaultCodes(), internal.NewLogger(internal.LogLevelError))
}

func get(t *testing.T, server *Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	server.ServeHTTP(rec, req)
	return rec
}

func TestServer_Health(t *testing.T) {
	rec := get(t, newTestServer(), "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestServer_GetRun(t *testing.T) {
	rec := get(t, newTestServer(), "/runs/run-1")
	require.Equal(t, http.StatusOK, rec.Code)

	var manifest ports.RunManifest
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &manifest))
	assert.Equal(t, core.RunID("run-1"), manifest.RunID)
	assert.Equal(t, 32, manifest.TrialCount)
}

func TestServer_GetRunNotFound(t *testing.T) {
	rec := get(t, newTestServer(), "/runs/missing")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServer_GetSDT(t *testing.T) {
	rec := get(t, newTestServer(), "/runs/run-1/sdt")
	require.Equal(t, http.StatusOK, rec.Code)

	var table sdt.Table
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &table))
	assert.Len(t, table.Cells, 2)
}

func TestServer_GetPosterior(t *testing.T) {
	rec := get(t, newTestServer(), "/runs/run-1/posterior")
	require.Equal(t, http.StatusOK, rec.Code)

	var summaries []model.Summary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &summaries))
	require.Len(t, summaries, 1)
	assert.Equal(t, "intercept_d", summaries[0].Name)
}

func TestServer_GetGrid(t *testing.T) {
	rec := get(t, newTestServer(), "/runs/run-1/grid/1")
	require.Equal(t, http.StatusOK, rec.Code)

	var grid struct {
		Pnum  int `json:"pnum"`
		Cells [][]struct {
			Filled  bool      `json:"filled"`
			Overall []float64 `json:"overall"`
		} `json:"cells"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &grid))
	assert.Equal(t, 1, grid.Pnum)
	require.Len(t, grid.Cells, 4)
	assert.False(t, grid.Cells[0][0].Filled)
	assert.True(t, grid.Cells[0][1].Filled)
	assert.InDelta(t, 0.1, grid.Cells[0][1].Overall[0], 1e-12)
	assert.InDelta(t, -0.1, grid.Cells[1][0].Overall[0], 1e-12)
}

func TestServer_GetGridBadParticipant(t *testing.T) {
	rec := get(t, newTestServer(), "/runs/run-1/grid/notanumber")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServer_GetReportHTML(t *testing.T) {
	rec := get(t, newTestServer(), "/runs/run-1/report")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rec.Body.String(), "<table>")
	assert.Contains(t, rec.Body.String(), "run-1")
}
