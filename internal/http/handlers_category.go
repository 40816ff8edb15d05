package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"pennywise/internal/core"
)

type categoryRequest struct {
	Name        string `json:"name"`
	BudgetLimit string `json:"budget_limit"`
}

type budgetRequest struct {
	BudgetLimit string `json:"budget_limit"`
}

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	cats, err := s.app.Budget.ListCategories(r.Context())
	if err != nil {
		respondError(w, r, "list_categories", err)
		return
	}
	writeJSON(w, http.StatusOK, mapSlice(cats, newCategoryView))
}

func (s *Server) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	var req categoryRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, r, "create_category", err)
		return
	}
	limit, err := parseBudget(req.BudgetLimit)
	if err != nil {
		respondError(w, r, "create_category", err)
		return
	}

	c, err := s.app.CreateCategory(r.Context(), core.Category{
		Name:        sanitizeInput(req.Name),
		BudgetLimit: limit,
	})
	if err != nil {
		respondError(w, r, "create_category", err)
		return
	}
	writeJSON(w, http.StatusCreated, newCategoryView(c))
}

func (s *Server) handleGetCategory(w http.ResponseWriter, r *http.Request) {
	c, err := s.app.Budget.GetCategory(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, r, "get_category", err)
		return
	}
	writeJSON(w, http.StatusOK, newCategoryView(c))
}

// handleSetBudget handles PUT /api/categories/{id}/budget. A zero or empty
// limit removes the budget.
func (s *Server) handleSetBudget(w http.ResponseWriter, r *http.Request) {
	var req budgetRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, r, "set_budget", err)
		return
	}
	limit, err := parseBudget(req.BudgetLimit)
	if err != nil {
		respondError(w, r, "set_budget", err)
		return
	}

	c, err := s.app.SetBudget(r.Context(), chi.URLParam(r, "id"), limit)
	if err != nil {
		respondError(w, r, "set_budget", err)
		return
	}
	writeJSON(w, http.StatusOK, newCategoryView(c))
}
