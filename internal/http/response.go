package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"pennywise/internal/core"
	"pennywise/internal/log"
	"pennywise/internal/middleware/trace"
)

type errorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", log.FieldError, err)
	}
}

// writeError writes a standardised JSON error response.
func writeError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg, RequestID: trace.GetRequestID(r.Context())})
}

// respondError maps err onto a status code. Server-side failures are logged
// and their details kept out of the response.
func respondError(w http.ResponseWriter, r *http.Request, op string, err error) {
	status := errorStatus(err)
	if status < http.StatusInternalServerError {
		writeError(w, r, status, err.Error())
		return
	}
	log.NewStructuredLogger(log.FromContext(r.Context())).LogError(r.Context(), "Request failed", err, log.ComponentHTTP, op, nil)
	writeError(w, r, status, http.StatusText(status))
}

var validationErrors = []error{
	errBadRequest,
	core.ErrInvalidAmount,
	core.ErrEmptyDescription,
	core.ErrDescriptionTooLong,
	core.ErrEmptyCategory,
	core.ErrEmptyName,
	core.ErrInvalidRecurrence,
	core.ErrInvalidRecurrenceAt,
	core.ErrInvalidDate,
}

func errorStatus(err error) int {
	var invalid core.Invalid
	switch {
	case errors.Is(err, core.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, core.ErrConflict):
		return http.StatusConflict
	case errors.As(err, &invalid):
		return http.StatusBadRequest
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	}
	for _, target := range validationErrors {
		if errors.Is(err, target) {
			return http.StatusBadRequest
		}
	}
	return http.StatusInternalServerError
}

type categoryView struct {
	ID               string    `json:"id"`
	Name             string    `json:"name"`
	BudgetLimit      string    `json:"budget_limit"`
	BudgetLimitCents int64     `json:"budget_limit_cents"`
	CreatedAt        time.Time `json:"created_at"`
}

func newCategoryView(c core.Category) categoryView {
	return categoryView{
		ID:               c.ID,
		Name:             c.Name,
		BudgetLimit:      c.BudgetLimit.String(),
		BudgetLimitCents: c.BudgetLimit.Cents,
		CreatedAt:        c.CreatedAt,
	}
}

type expenseView struct {
	ID          string    `json:"id"`
	CategoryID  string    `json:"category_id"`
	Amount      string    `json:"amount"`
	AmountCents int64     `json:"amount_cents"`
	Description string    `json:"description"`
	OccurredAt  time.Time `json:"occurred_at"`
	Source      string    `json:"source"`
	RecurringID string    `json:"recurring_id,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

func newExpenseView(e core.Expense) expenseView {
	return expenseView{
		ID:          e.ID,
		CategoryID:  e.CategoryID,
		Amount:      e.Amount.String(),
		AmountCents: e.Amount.Cents,
		Description: e.Description,
		OccurredAt:  e.OccurredAt,
		Source:      string(e.Source),
		RecurringID: e.RecurringID,
		CreatedAt:   e.CreatedAt,
	}
}

type ruleView struct {
	ID              string     `json:"id"`
	CategoryID      string     `json:"category_id"`
	Amount          string     `json:"amount"`
	AmountCents     int64      `json:"amount_cents"`
	Description     string     `json:"description"`
	Type            string     `json:"type"`
	Value           int        `json:"value"`
	Active          bool       `json:"active"`
	LastGeneratedAt *time.Time `json:"last_generated_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
}

func newRuleView(re core.RecurringExpense) ruleView {
	v := ruleView{
		ID:          re.ID,
		CategoryID:  re.CategoryID,
		Amount:      re.Amount.String(),
		AmountCents: re.Amount.Cents,
		Description: re.Description,
		Type:        string(re.Type),
		Value:       re.Value,
		Active:      re.Active,
		CreatedAt:   re.CreatedAt,
	}
	if !re.NeverGenerated() {
		at := re.LastGeneratedAt
		v.LastGeneratedAt = &at
	}
	return v
}

type categorySpendView struct {
	CategoryID string `json:"category_id"`
	Name       string `json:"name"`
	Spent      string `json:"spent"`
	Budget     string `json:"budget"`
	Remaining  string `json:"remaining"`
	OverBudget bool   `json:"over_budget"`
}

type overviewView struct {
	Year       int                 `json:"year"`
	Month      int                 `json:"month"`
	Total      string              `json:"total"`
	Budget     string              `json:"budget"`
	Categories []categorySpendView `json:"categories"`
}

func newOverviewView(ov core.MonthOverview) overviewView {
	v := overviewView{
		Year:       ov.Year,
		Month:      ov.Month,
		Total:      ov.Total.String(),
		Budget:     ov.Budget.String(),
		Categories: make([]categorySpendView, 0, len(ov.ByCategory)),
	}
	for _, c := range ov.ByCategory {
		v.Categories = append(v.Categories, categorySpendView{
			CategoryID: c.CategoryID,
			Name:       c.Name,
			Spent:      c.Spent.String(),
			Budget:     c.Budget.String(),
			Remaining:  c.Remaining().String(),
			OverBudget: c.OverBudget(),
		})
	}
	return v
}

func mapSlice[T, V any](in []T, fn func(T) V) []V {
	out := make([]V, 0, len(in))
	for _, v := range in {
		out = append(out, fn(v))
	}
	return out
}
