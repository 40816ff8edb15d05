package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"pennywise/internal/core"
	"pennywise/internal/log"
)

type expenseRequest struct {
	CategoryID  string `json:"category_id"`
	Amount      string `json:"amount"`
	Description string `json:"description"`
	OccurredAt  string `json:"occurred_at"`
}

// handleListExpenses handles GET /api/expenses?from=&to= or ?year=&month=.
func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	from, to, err := parseRange(r.URL.Query(), s.now())
	if err != nil {
		respondError(w, r, "list_expenses", err)
		return
	}
	list, err := s.app.Expenses.ListExpenses(r.Context(), from, to)
	if err != nil {
		respondError(w, r, "list_expenses", err)
		return
	}
	writeJSON(w, http.StatusOK, mapSlice(list, newExpenseView))
}

// handleCreateExpense records a manual expense, typically with the amount the
// calculator produced.
func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req expenseRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, r, "create_expense", err)
		return
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		respondError(w, r, "create_expense", err)
		return
	}
	occurredAt, err := parseOccurredAt(req.OccurredAt, s.now())
	if err != nil {
		respondError(w, r, "create_expense", err)
		return
	}

	e := core.Expense{
		CategoryID:  sanitizeInput(req.CategoryID),
		Amount:      amount,
		Description: sanitizeInput(req.Description),
		OccurredAt:  occurredAt,
	}
	if err := e.Validate(); err != nil {
		respondError(w, r, "create_expense", err)
		return
	}
	if _, err := s.app.Budget.GetCategory(ctx, e.CategoryID); err != nil {
		respondError(w, r, "create_expense", err)
		return
	}

	id, err := s.app.Expenses.CreateManualExpense(ctx, e)
	if err != nil {
		respondError(w, r, "create_expense", err)
		return
	}
	saved, err := s.app.Store.GetExpense(ctx, id)
	if err != nil {
		respondError(w, r, "create_expense", err)
		return
	}

	log.NewStructuredLogger(log.FromContext(ctx)).LogExpenseCreated(ctx, saved)
	writeJSON(w, http.StatusCreated, newExpenseView(saved))
}

func (s *Server) handleGetExpense(w http.ResponseWriter, r *http.Request) {
	e, err := s.app.Store.GetExpense(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, r, "get_expense", err)
		return
	}
	writeJSON(w, http.StatusOK, newExpenseView(e))
}

func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	if err := s.app.Expenses.DeleteExpense(r.Context(), chi.URLParam(r, "id")); err != nil {
		respondError(w, r, "delete_expense", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
