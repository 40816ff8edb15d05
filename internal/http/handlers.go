package http

import (
	"net/http"
	"time"

	"pennywise/internal/log"
)

type syncResponse struct {
	Generated int        `json:"generated"`
	At        *time.Time `json:"at,omitempty"`
	Error     string     `json:"error,omitempty"`
}

// handleOverview handles GET /api/overview?year=&month=, defaulting to the
// current month.
func (s *Server) handleOverview(w http.ResponseWriter, r *http.Request) {
	year, month, err := parseMonthParams(r.URL.Query(), s.now())
	if err != nil {
		respondError(w, r, "overview", err)
		return
	}
	ov, err := s.app.MonthOverview(r.Context(), year, month)
	if err != nil {
		respondError(w, r, "overview", err)
		return
	}
	writeJSON(w, http.StatusOK, newOverviewView(ov))
}

// handleSync runs recurring evaluation now. A trigger that arrives while a
// cycle is running shares that cycle's result.
func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) {
	if s.scheduler == nil {
		writeError(w, r, http.StatusServiceUnavailable, "recurring scheduler not running in this process")
		return
	}
	ctx := r.Context()
	n, err := s.scheduler.TriggerNow(ctx)
	if err != nil {
		respondError(w, r, "sync", err)
		return
	}
	log.FromContext(ctx).WithComponent(log.ComponentRecurring).InfoContext(ctx, "Manual sync completed",
		log.FieldGenerated, n)
	now := time.Now()
	writeJSON(w, http.StatusOK, syncResponse{Generated: n, At: &now})
}

func (s *Server) handleSyncStatus(w http.ResponseWriter, r *http.Request) {
	if s.scheduler == nil {
		writeError(w, r, http.StatusServiceUnavailable, "recurring scheduler not running in this process")
		return
	}
	last := s.scheduler.LastRun()
	resp := syncResponse{Generated: last.Generated}
	if !last.At.IsZero() {
		resp.At = &last.At
	}
	if last.Err != nil {
		resp.Error = last.Err.Error()
	}
	writeJSON(w, http.StatusOK, resp)
}
