package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"loanplan/internal/metrics"
	"loanplan/internal/model"
	"loanplan/internal/plan"
	"loanplan/internal/store"
)

// PlanHandler runs one batch plan for the requested office and week.
func (s *Server) PlanHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeProblem(w, http.StatusMethodNotAllowed, "Method not allowed", "", r.URL.Path)
		return
	}
	var req model.PlanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid JSON body", err.Error(), r.URL.Path)
		return
	}
	weekStart, err := validatePlanRequest(&req)
	if err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid plan request", err.Error(), r.URL.Path)
		return
	}

	cfg := s.Planner
	applyOverrides(&cfg, req)

	snap, err := s.Store.LoadSnapshot(r.Context(), req.Office, weekStart)
	if errors.Is(err, store.ErrNotFound) {
		writeProblem(w, http.StatusNotFound, "No snapshot", "no input snapshot for office/week", r.URL.Path)
		return
	}
	if err != nil {
		writeProblem(w, http.StatusInternalServerError, "Snapshot load failed", err.Error(), r.URL.Path)
		return
	}

	run, err := plan.Plan(r.Context(), snap, cfg)
	if err != nil {
		// Only configuration errors surface here (MODEL_INVALID).
		writeProblem(w, http.StatusBadRequest, "Invalid planner configuration", err.Error(), r.URL.Path)
		return
	}
	run.RunID = uuid.New().String()
	if err := s.Store.SaveRun(r.Context(), run); err != nil {
		writeProblem(w, http.StatusInternalServerError, "Run save failed", err.Error(), r.URL.Path)
		return
	}

	metrics.PlanRuns.WithLabelValues(run.Office, string(run.Status)).Inc()
	metrics.PlanSolveDuration.WithLabelValues(run.Office, string(run.Status)).Observe(float64(run.SolveMs) / 1000)
	metrics.PlanAssignments.WithLabelValues(run.Office).Observe(float64(len(run.Assignments)))
	metrics.PlanIterations.WithLabelValues(run.Office).Observe(float64(run.Iterations))

	s.Events.PublishRun(r.Context(), RunEvent{
		RunID:       run.RunID,
		Office:      run.Office,
		WeekStart:   run.WeekStart.Format("2006-01-02"),
		Status:      string(run.Status),
		Assignments: len(run.Assignments),
		TS:          time.Now().UTC(),
	})
	s.Log.Info("plan run completed",
		zap.String("runId", run.RunID),
		zap.String("office", run.Office),
		zap.String("status", string(run.Status)),
		zap.Int("candidates", run.Candidates),
		zap.Int("assignments", len(run.Assignments)),
		zap.Int64("solveMs", run.SolveMs),
	)
	writeJSON(w, http.StatusOK, run)
}

// RunsIndexHandler lists stored runs with cursor pagination.
func (s *Server) RunsIndexHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeProblem(w, http.StatusMethodNotAllowed, "Method not allowed", "", r.URL.Path)
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	items, next, err := s.Store.ListRuns(r.Context(), r.URL.Query().Get("office"), r.URL.Query().Get("cursor"), limit)
	if err != nil {
		writeProblem(w, http.StatusInternalServerError, "Run list failed", err.Error(), r.URL.Path)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items, "nextCursor": next})
}

// RunByIDHandler returns one stored run with its full audit ledgers.
func (s *Server) RunByIDHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeProblem(w, http.StatusMethodNotAllowed, "Method not allowed", "", r.URL.Path)
		return
	}
	id := strings.TrimPrefix(r.URL.Path, "/v1/runs/")
	if id == "" || strings.Contains(id, "/") {
		writeProblem(w, http.StatusBadRequest, "Invalid run id", "", r.URL.Path)
		return
	}
	run, err := s.Store.GetRun(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		writeProblem(w, http.StatusNotFound, "Run not found", "", r.URL.Path)
		return
	}
	if err != nil {
		writeProblem(w, http.StatusInternalServerError, "Run fetch failed", err.Error(), r.URL.Path)
		return
	}
	writeJSON(w, http.StatusOK, run)
}

func (s *Server) HealthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) ReadyHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func applyOverrides(cfg *plan.Config, req model.PlanRequest) {
	if req.Seed != nil {
		cfg.Seed = *req.Seed
	}
	if req.TimeLimitSeconds != nil {
		cfg.SolverTimeLimit = time.Duration(*req.TimeLimitSeconds) * time.Second
	}
	if req.Workers != nil {
		cfg.Workers = *req.Workers
	}
	if req.EngagementMode != "" {
		cfg.EngagementMode = plan.EngagementMode(req.EngagementMode)
	}
	if req.LambdaFair != nil {
		cfg.LambdaFair = *req.LambdaFair
	}
	if req.EnforceCapHard != nil {
		cfg.EnforceCapHard = *req.EnforceCapHard
	}
	if req.EnforceBudgetHard != nil {
		cfg.EnforceBudgetHard = *req.EnforceBudgetHard
	}
}
