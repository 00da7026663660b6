package server

import (
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/jonathan/wiki-generator/internal/db"
)

// RunDetailResponse is a run with its per-page outcomes.
type RunDetailResponse struct {
	Run   *db.Run         `json:"run"`
	Pages []db.PageResult `json:"pages"`
}

// handleListRuns lists recorded batches, newest first
func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	if s.ledger == nil {
		s.errorFrom(w, &ErrNotConfigured{What: "run history"})
		return
	}

	limit := db.DefaultListLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			s.errorFrom(w, &ErrValidation{Field: "limit", Message: "must be a positive integer"})
			return
		}
		limit = n
	}

	runs, err := s.ledger.ListRuns(r.Context(), r.URL.Query().Get("project_id"), limit)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "Database error: "+err.Error())
		return
	}
	if runs == nil {
		runs = []db.Run{}
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{
		"runs":  runs,
		"count": len(runs),
	})
}

// handleGetRun returns one run and its page results
func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	if s.ledger == nil {
		s.errorFrom(w, &ErrNotConfigured{What: "run history"})
		return
	}

	runID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid run ID format")
		return
	}

	run, err := s.ledger.GetRun(r.Context(), runID)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "Database error: "+err.Error())
		return
	}
	if run == nil {
		s.errorResponse(w, http.StatusNotFound, "Run not found")
		return
	}

	pages, err := s.ledger.ListPageResults(r.Context(), runID)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "Database error: "+err.Error())
		return
	}
	if pages == nil {
		pages = []db.PageResult{}
	}
	s.jsonResponse(w, http.StatusOK, RunDetailResponse{Run: run, Pages: pages})
}
