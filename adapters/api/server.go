package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gomarkdown/markdown"
	mdhtml "github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"

	"sdtfit/domain/core"
	"sdtfit/domain/trial"
	"sdtfit/internal"
	"sdtfit/internal/report"
	"sdtfit/ports"
)

// Server exposes persisted run artifacts over HTTP.
type Server struct {
	router *chi.Mux
	store  ports.RunRepository
	codes  trial.Codes
	logger *internal.Logger
}

// NewServer creates a results server backed by a run repository.
func NewServer(store ports.RunRepository, codes trial.Codes, logger *internal.Logger) *Server {
	s := &Server{
		router: chi.NewRouter(),
		store:  store,
		codes:  codes,
		logger: logger,
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

// ServeHTTP satisfies http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Compress(5))
}

func (s *Server) setupRoutes() {
	s.router.Get("/healthz", s.handleHealth)
	s.router.Get("/runs/{id}", s.handleGetRun)
	s.router.Get("/runs/{id}/sdt", s.handleGetSDT)
	s.router.Get("/runs/{id}/delta", s.handleGetDelta)
	s.router.Get("/runs/{id}/posterior", s.handleGetPosterior)
	s.router.Get("/runs/{id}/grid/{pnum}", s.handleGetGrid)
	s.router.Get("/runs/{id}/report", s.handleGetReport)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	runID, ok := s.runID(w, r)
	if !ok {
		return
	}
	manifest, err := s.store.GetRun(r.Context(), runID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, manifest)
}

func (s *Server) handleGetSDT(w http.ResponseWriter, r *http.Request) {
	runID, ok := s.runID(w, r)
	if !ok {
		return
	}
	table, err := s.store.GetSDTTable(r.Context(), runID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, table)
}

func (s *Server) handleGetDelta(w http.ResponseWriter, r *http.Request) {
	runID, ok := s.runID(w, r)
	if !ok {
		return
	}
	table, err := s.store.GetDeltaTable(r.Context(), runID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, table)
}

func (s *Server) handleGetPosterior(w http.ResponseWriter, r *http.Request) {
	runID, ok := s.runID(w, r)
	if !ok {
		return
	}
	summaries, err := s.store.GetPosteriorSummaries(r.Context(), runID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, summaries)
}

// handleGetGrid serves the condition-pair delta grid for one participant.
func (s *Server) handleGetGrid(w http.ResponseWriter, r *http.Request) {
	runID, ok := s.runID(w, r)
	if !ok {
		return
	}
	pnum, err := strconv.Atoi(chi.URLParam(r, "pnum"))
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid participant id"})
		return
	}
	table, err := s.store.GetDeltaTable(r.Context(), runID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	grid, err := report.BuildGrid(*table, pnum, trial.NumConditions)
	if err != nil {
		s.writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
		return
	}
	s.writeJSON(w, http.StatusOK, grid)
}

// handleGetReport rebuilds the run report from stored artifacts and serves
// it rendered to HTML.
func (s *Server) handleGetReport(w http.ResponseWriter, r *http.Request) {
	runID, ok := s.runID(w, r)
	if !ok {
		return
	}
	ctx := r.Context()

	manifest, err := s.store.GetRun(ctx, runID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	sdtTable, err := s.store.GetSDTTable(ctx, runID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	deltaTable, err := s.store.GetDeltaTable(ctx, runID)
	if err != nil {
		s.writeError(w, err)
		return
	}

	md, err := report.Markdown(*manifest, s.codes, *sdtTable, *deltaTable, nil)
	if err != nil {
		s.writeError(w, fmt.Errorf("failed to render report: %w", err))
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write(renderHTML(md))
}

// renderHTML converts report markdown to a standalone HTML fragment.
func renderHTML(md string) []byte {
	p := parser.NewWithExtensions(parser.CommonExtensions | parser.AutoHeadingIDs)
	renderer := mdhtml.NewRenderer(mdhtml.RendererOptions{
		Flags: mdhtml.CommonFlags | mdhtml.HrefTargetBlank,
	})
	return markdown.ToHTML([]byte(md), p, renderer)
}

func (s *Server) runID(w http.ResponseWriter, r *http.Request) (core.RunID, bool) {
	runID, err := core.ParseRunID(chi.URLParam(r, "id"))
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid run id"})
		return "", false
	}
	return runID, true
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("failed to encode response: %v", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	if errors.Is(err, core.ErrNotFound) {
		s.writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
		return
	}
	s.logger.Error("request failed: %v", err)
	s.writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
}
