package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"pennywise/internal/core"
	"pennywise/internal/log"
)

type ruleRequest struct {
	CategoryID  string `json:"category_id"`
	Amount      string `json:"amount"`
	Description string `json:"description"`
	Type        string `json:"type"`
	Value       int    `json:"value"`
	Active      *bool  `json:"active,omitempty"`
}

type activeRequest struct {
	Active bool `json:"active"`
}

// toRule converts the request body; new rules start active unless told
// otherwise.
func (req ruleRequest) toRule(id string) (core.RecurringExpense, error) {
	rt, err := core.ParseRecurrenceType(req.Type)
	if err != nil {
		return core.RecurringExpense{}, core.Invalid{Field: "type", Err: err}
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		return core.RecurringExpense{}, err
	}
	active := true
	if req.Active != nil {
		active = *req.Active
	}
	return core.RecurringExpense{
		ID:          id,
		CategoryID:  sanitizeInput(req.CategoryID),
		Amount:      amount,
		Description: sanitizeInput(req.Description),
		Type:        rt,
		Value:       req.Value,
		Active:      active,
	}, nil
}

func (s *Server) handleListRecurring(w http.ResponseWriter, r *http.Request) {
	rules, err := s.app.Recurring.List(r.Context())
	if err != nil {
		respondError(w, r, "list_recurring", err)
		return
	}
	writeJSON(w, http.StatusOK, mapSlice(rules, newRuleView))
}

func (s *Server) handleCreateRecurring(w http.ResponseWriter, r *http.Request) {
	var req ruleRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, r, "create_recurring", err)
		return
	}
	rule, err := req.toRule("")
	if err != nil {
		respondError(w, r, "create_recurring", err)
		return
	}
	created, err := s.app.Recurring.Create(r.Context(), rule)
	if err != nil {
		respondError(w, r, "create_recurring", err)
		return
	}
	log.NewStructuredLogger(log.FromContext(r.Context())).LogRuleSaved(r.Context(), created, log.OpCreate)
	writeJSON(w, http.StatusCreated, newRuleView(created))
}

func (s *Server) handleGetRecurring(w http.ResponseWriter, r *http.Request) {
	rule, err := s.app.Recurring.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, r, "get_recurring", err)
		return
	}
	writeJSON(w, http.StatusOK, newRuleView(rule))
}

// handleUpdateRecurring replaces a rule's editable fields. The generation
// history is kept, so an edit never re-fires the current period.
func (s *Server) handleUpdateRecurring(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req ruleRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, r, "update_recurring", err)
		return
	}
	if req.Active == nil {
		existing, err := s.app.Recurring.Get(r.Context(), id)
		if err != nil {
			respondError(w, r, "update_recurring", err)
			return
		}
		req.Active = &existing.Active
	}
	rule, err := req.toRule(id)
	if err != nil {
		respondError(w, r, "update_recurring", err)
		return
	}
	updated, err := s.app.Recurring.Update(r.Context(), rule)
	if err != nil {
		respondError(w, r, "update_recurring", err)
		return
	}
	log.NewStructuredLogger(log.FromContext(r.Context())).LogRuleSaved(r.Context(), updated, log.OpUpdate)
	writeJSON(w, http.StatusOK, newRuleView(updated))
}

func (s *Server) handleDeleteRecurring(w http.ResponseWriter, r *http.Request) {
	if err := s.app.Recurring.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		respondError(w, r, "delete_recurring", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleSetRecurringActive pauses or resumes a rule.
func (s *Server) handleSetRecurringActive(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req activeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, r, "set_recurring_active", err)
		return
	}
	if err := s.app.Recurring.SetActive(r.Context(), id, req.Active); err != nil {
		respondError(w, r, "set_recurring_active", err)
		return
	}
	rule, err := s.app.Recurring.Get(r.Context(), id)
	if err != nil {
		respondError(w, r, "set_recurring_active", err)
		return
	}
	writeJSON(w, http.StatusOK, newRuleView(rule))
}
