package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"pennywise/internal/adapters"
	"pennywise/internal/core"
	"pennywise/internal/middleware/ratelimit"
	"pennywise/internal/middleware/trace"
	"pennywise/internal/services"
	"pennywise/internal/storage/memory"
)

type fakeSyncer struct {
	generated int
	err       error
	calls     int
	last      services.RunStatus
}

func (f *fakeSyncer) TriggerNow(context.Context) (int, error) {
	f.calls++
	f.last = services.RunStatus{At: time.Now(), Generated: f.generated, Err: f.err}
	return f.generated, f.err
}

func (f *fakeSyncer) LastRun() services.RunStatus { return f.last }

type unreachableStore struct {
	*memory.Store
}

func (unreachableStore) Ping(context.Context) error { return errors.New("database is locked") }

func newTestServer(t *testing.T, opts Options) *Server {
	t.Helper()
	if opts.App == nil {
		store := memory.New(core.Category{ID: "food", Name: "Food", BudgetLimit: core.Money{Cents: 10000}})
		opts.App = adapters.NewApp(store, nil, time.UTC)
	}
	s, err := NewServer(opts)
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	return s
}

func do(t *testing.T, s *Server, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	s.Handler.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rr.Body).Decode(&v); err != nil {
		t.Fatalf("decoding JSON response: %v", err)
	}
	return v
}

func checkStatus(t *testing.T, rr *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rr.Code != want {
		t.Fatalf("status = %d, want %d; body: %s", rr.Code, want, rr.Body.String())
	}
}

func TestHealthAndReady(t *testing.T) {
	s := newTestServer(t, Options{})

	rr := do(t, s, http.MethodGet, "/healthz", nil)
	checkStatus(t, rr, http.StatusOK)
	if rr.Header().Get(trace.HeaderRequestID) == "" {
		t.Error("missing request id header")
	}
	if rr.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Error("missing security headers")
	}

	checkStatus(t, do(t, s, http.MethodGet, "/readyz", nil), http.StatusOK)

	down := newTestServer(t, Options{
		App: adapters.NewApp(unreachableStore{memory.New()}, nil, time.UTC),
	})
	rr = do(t, down, http.MethodGet, "/readyz", nil)
	checkStatus(t, rr, http.StatusServiceUnavailable)
	body := decode[map[string]any](t, rr)
	if body["status"] != "not_ready" {
		t.Errorf("unexpected body: %v", body)
	}
}

func TestUnknownRouteAndProbes(t *testing.T) {
	s := newTestServer(t, Options{})

	rr := do(t, s, http.MethodGet, "/api/nope", nil)
	checkStatus(t, rr, http.StatusNotFound)
	if body := decode[errorResponse](t, rr); body.Error == "" || body.RequestID == "" {
		t.Errorf("unexpected error body: %+v", body)
	}

	checkStatus(t, do(t, s, http.MethodGet, "/wp-admin/setup.php", nil), http.StatusNotFound)
	checkStatus(t, do(t, s, http.MethodPatch, "/api/categories", nil), http.StatusMethodNotAllowed)
}

func TestCalculatorKeys(t *testing.T) {
	s := newTestServer(t, Options{})

	tests := []struct {
		name        string
		keys        []string
		wantDisplay string
		wantValue   float64
		wantAmount  string
		wantError   bool
	}{
		{"addition", []string{"1", "2", "+", "3", "="}, "15", 15, "15.00", false},
		{"decimal typing", []string{"4", ".", "5", "0"}, "4.50", 4.5, "4.50", false},
		{"pending operation", []string{"1", "0", "×", "3"}, "3", 30, "30.00", false},
		{"divide by zero", []string{"5", "÷", "0", "="}, "Error", 0, "", true},
		{"nothing typed", nil, "0", 0, "", false},
		{"equals without operation", []string{"5", "="}, "5", 5, "5.00", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := do(t, s, http.MethodPost, "/api/calculator/keys", calculatorRequest{Keys: tt.keys})
			checkStatus(t, rr, http.StatusOK)
			resp := decode[calculatorResponse](t, rr)
			if resp.State.Display != tt.wantDisplay || resp.Value != tt.wantValue ||
				resp.Amount != tt.wantAmount || resp.State.HasError != tt.wantError {
				t.Errorf("got display=%q value=%v amount=%q error=%v",
					resp.State.Display, resp.Value, resp.Amount, resp.State.HasError)
			}
		})
	}
}

func TestCalculatorKeysContinuesFromState(t *testing.T) {
	s := newTestServer(t, Options{})

	first := decode[calculatorResponse](t, do(t, s, http.MethodPost, "/api/calculator/keys",
		calculatorRequest{Keys: []string{"8", "+"}}))

	rr := do(t, s, http.MethodPost, "/api/calculator/keys",
		calculatorRequest{State: &first.State, Keys: []string{"2", "="}})
	checkStatus(t, rr, http.StatusOK)
	if resp := decode[calculatorResponse](t, rr); resp.State.Display != "10" {
		t.Errorf("display = %q, want 10", resp.State.Display)
	}

	checkStatus(t, do(t, s, http.MethodPost, "/api/calculator/keys",
		calculatorRequest{Keys: []string{"1", "%"}}), http.StatusBadRequest)
	checkStatus(t, do(t, s, http.MethodPost, "/api/calculator/keys",
		map[string]any{"keys": []string{"1"}, "bogus": true}), http.StatusBadRequest)
}

func TestCalculatorKeysRejectsInvalidState(t *testing.T) {
	s := newTestServer(t, Options{})

	tests := []struct {
		name  string
		state map[string]any
	}{
		{"exponent display", map[string]any{"display": "1e5"}},
		{"overlong display", map[string]any{"display": strings.Repeat("9", 200)}},
		{"tiny stored value", map[string]any{"display": "5", "stored_value": "1e-3000000", "operation": "ADD"}},
		{"stored value above max", map[string]any{"display": "5", "stored_value": "5000000000000", "operation": "ADD"}},
		{"error flag with number", map[string]any{"display": "5", "has_error": true}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := do(t, s, http.MethodPost, "/api/calculator/keys",
				map[string]any{"state": tt.state, "keys": []string{"+", "1", "="}})
			checkStatus(t, rr, http.StatusBadRequest)
			if body := decode[errorResponse](t, rr); !strings.Contains(body.Error, "invalid calculator state") {
				t.Errorf("error = %q", body.Error)
			}
		})
	}

	rr := do(t, s, http.MethodPost, "/api/calculator/keys",
		map[string]any{"state": map[string]any{"display": "7", "stored_value": "2.5", "operation": "ADD"}, "keys": []string{"="}})
	checkStatus(t, rr, http.StatusOK)
	if resp := decode[calculatorResponse](t, rr); resp.State.Display != "9.5" {
		t.Errorf("display = %q, want 9.5", resp.State.Display)
	}
}

func TestCategories(t *testing.T) {
	s := newTestServer(t, Options{})

	rr := do(t, s, http.MethodPost, "/api/categories", categoryRequest{Name: "Rent", BudgetLimit: "900"})
	checkStatus(t, rr, http.StatusCreated)
	created := decode[categoryView](t, rr)
	if created.ID == "" || created.BudgetLimitCents != 90000 || created.BudgetLimit != "900.00" {
		t.Fatalf("unexpected category: %+v", created)
	}

	checkStatus(t, do(t, s, http.MethodPost, "/api/categories", categoryRequest{Name: "rent"}), http.StatusConflict)
	checkStatus(t, do(t, s, http.MethodPost, "/api/categories", categoryRequest{Name: "  "}), http.StatusBadRequest)

	rr = do(t, s, http.MethodGet, "/api/categories", nil)
	checkStatus(t, rr, http.StatusOK)
	if list := decode[[]categoryView](t, rr); len(list) != 2 {
		t.Fatalf("categories = %d, want 2", len(list))
	}

	rr = do(t, s, http.MethodPut, "/api/categories/"+created.ID+"/budget", budgetRequest{BudgetLimit: "0"})
	checkStatus(t, rr, http.StatusOK)
	if got := decode[categoryView](t, rr); got.BudgetLimitCents != 0 {
		t.Errorf("budget not cleared: %+v", got)
	}

	checkStatus(t, do(t, s, http.MethodPut, "/api/categories/missing/budget", budgetRequest{BudgetLimit: "1"}), http.StatusNotFound)
	checkStatus(t, do(t, s, http.MethodGet, "/api/categories/missing", nil), http.StatusNotFound)
}

func TestExpensesAndOverview(t *testing.T) {
	s := newTestServer(t, Options{})

	tests := []struct {
		name string
		req  expenseRequest
		want int
	}{
		{"valid", expenseRequest{CategoryID: "food", Amount: "75,50", Description: "Groceries", OccurredAt: "2025-03-10"}, http.StatusCreated},
		{"second", expenseRequest{CategoryID: "food", Amount: "40", Description: "Dinner", OccurredAt: "2025-03-11T20:00:00Z"}, http.StatusCreated},
		{"zero amount", expenseRequest{CategoryID: "food", Amount: "0", Description: "x", OccurredAt: "2025-03-10"}, http.StatusBadRequest},
		{"no description", expenseRequest{CategoryID: "food", Amount: "1", OccurredAt: "2025-03-10"}, http.StatusBadRequest},
		{"bad date", expenseRequest{CategoryID: "food", Amount: "1", Description: "x", OccurredAt: "10/03/2025"}, http.StatusBadRequest},
		{"unknown category", expenseRequest{CategoryID: "nope", Amount: "1", Description: "x", OccurredAt: "2025-03-10"}, http.StatusNotFound},
	}
	var ids []string
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := do(t, s, http.MethodPost, "/api/expenses", tt.req)
			checkStatus(t, rr, tt.want)
			if tt.want == http.StatusCreated {
				e := decode[expenseView](t, rr)
				if e.Source != string(core.SourceManual) || e.ID == "" {
					t.Errorf("unexpected expense: %+v", e)
				}
				ids = append(ids, e.ID)
			}
		})
	}
	if len(ids) != 2 {
		t.Fatalf("created %d expenses, want 2", len(ids))
	}

	rr := do(t, s, http.MethodGet, "/api/expenses?year=2025&month=3", nil)
	checkStatus(t, rr, http.StatusOK)
	list := decode[[]expenseView](t, rr)
	if len(list) != 2 || list[0].Description != "Dinner" {
		t.Fatalf("unexpected listing: %+v", list)
	}

	rr = do(t, s, http.MethodGet, "/api/overview?year=2025&month=3", nil)
	checkStatus(t, rr, http.StatusOK)
	ov := decode[overviewView](t, rr)
	if ov.Total != "115.50" || len(ov.Categories) != 1 || !ov.Categories[0].OverBudget || ov.Categories[0].Remaining != "-15.50" {
		t.Fatalf("unexpected overview: %+v", ov)
	}

	checkStatus(t, do(t, s, http.MethodDelete, "/api/expenses/"+ids[1], nil), http.StatusNoContent)
	checkStatus(t, do(t, s, http.MethodDelete, "/api/expenses/"+ids[1], nil), http.StatusNotFound)
	checkStatus(t, do(t, s, http.MethodGet, "/api/expenses/"+ids[0], nil), http.StatusOK)

	rr = do(t, s, http.MethodGet, "/api/overview?year=2025&month=3", nil)
	if ov := decode[overviewView](t, rr); ov.Total != "75.50" || ov.Categories[0].OverBudget {
		t.Fatalf("overview not refreshed after delete: %+v", ov)
	}

	checkStatus(t, do(t, s, http.MethodGet, "/api/overview?month=13", nil), http.StatusBadRequest)
	checkStatus(t, do(t, s, http.MethodGet, "/api/expenses?from=2025-03-01", nil), http.StatusBadRequest)
}

func TestRecurringRules(t *testing.T) {
	s := newTestServer(t, Options{})

	rr := do(t, s, http.MethodPost, "/api/recurring", ruleRequest{
		CategoryID: "food", Amount: "9.99", Description: "Meal kit", Type: "weekly", Value: 2,
	})
	checkStatus(t, rr, http.StatusCreated)
	rule := decode[ruleView](t, rr)
	if rule.Type != string(core.Weekly) || !rule.Active || rule.LastGeneratedAt != nil {
		t.Fatalf("unexpected rule: %+v", rule)
	}

	invalid := []ruleRequest{
		{CategoryID: "food", Amount: "1", Description: "x", Type: "DAILY", Value: 24},
		{CategoryID: "food", Amount: "1", Description: "x", Type: "YEARLY", Value: 1},
		{CategoryID: "food", Amount: "-1", Description: "x", Type: "MONTHLY", Value: 1},
	}
	for _, req := range invalid {
		checkStatus(t, do(t, s, http.MethodPost, "/api/recurring", req), http.StatusBadRequest)
	}
	checkStatus(t, do(t, s, http.MethodPost, "/api/recurring", ruleRequest{
		CategoryID: "nope", Amount: "1", Description: "x", Type: "MONTHLY", Value: 1,
	}), http.StatusNotFound)

	rr = do(t, s, http.MethodPut, "/api/recurring/"+rule.ID+"/active", activeRequest{Active: false})
	checkStatus(t, rr, http.StatusOK)
	if got := decode[ruleView](t, rr); got.Active {
		t.Fatal("rule still active after pause")
	}

	rr = do(t, s, http.MethodPut, "/api/recurring/"+rule.ID, ruleRequest{
		CategoryID: "food", Amount: "12", Description: "Meal kit", Type: "MONTHLY", Value: 31,
	})
	checkStatus(t, rr, http.StatusOK)
	updated := decode[ruleView](t, rr)
	if updated.Active || updated.AmountCents != 1200 || updated.Value != 31 || updated.ID != rule.ID {
		t.Fatalf("unexpected update: %+v", updated)
	}

	rr = do(t, s, http.MethodGet, "/api/recurring", nil)
	checkStatus(t, rr, http.StatusOK)
	if list := decode[[]ruleView](t, rr); len(list) != 1 {
		t.Fatalf("rules = %d, want 1", len(list))
	}

	checkStatus(t, do(t, s, http.MethodDelete, "/api/recurring/"+rule.ID, nil), http.StatusNoContent)
	checkStatus(t, do(t, s, http.MethodGet, "/api/recurring/"+rule.ID, nil), http.StatusNotFound)
	checkStatus(t, do(t, s, http.MethodPut, "/api/recurring/"+rule.ID+"/active", activeRequest{Active: true}), http.StatusNotFound)
}

func TestSync(t *testing.T) {
	s := newTestServer(t, Options{})
	checkStatus(t, do(t, s, http.MethodPost, "/api/sync", nil), http.StatusServiceUnavailable)

	syncer := &fakeSyncer{generated: 3}
	s = newTestServer(t, Options{Scheduler: syncer})

	rr := do(t, s, http.MethodPost, "/api/sync", nil)
	checkStatus(t, rr, http.StatusOK)
	if resp := decode[syncResponse](t, rr); resp.Generated != 3 || resp.At == nil {
		t.Errorf("unexpected sync response: %+v", resp)
	}

	rr = do(t, s, http.MethodGet, "/api/sync", nil)
	checkStatus(t, rr, http.StatusOK)
	if resp := decode[syncResponse](t, rr); resp.Generated != 3 || resp.Error != "" {
		t.Errorf("unexpected status: %+v", resp)
	}

	syncer.err = errors.New("store unavailable")
	rr = do(t, s, http.MethodPost, "/api/sync", nil)
	checkStatus(t, rr, http.StatusInternalServerError)
	if body := rr.Body.String(); strings.Contains(body, "store unavailable") {
		t.Errorf("internal error leaked to client: %s", body)
	}
	if syncer.calls != 2 {
		t.Errorf("calls = %d, want 2", syncer.calls)
	}
}

func TestRateLimitAppliesToAPI(t *testing.T) {
	limiter := ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: 2})
	s := newTestServer(t, Options{Limiter: limiter})

	for i := 0; i < 2; i++ {
		checkStatus(t, do(t, s, http.MethodGet, "/api/categories", nil), http.StatusOK)
	}
	rr := do(t, s, http.MethodGet, "/api/categories", nil)
	checkStatus(t, rr, http.StatusTooManyRequests)
	if rr.Header().Get("Retry-After") != "60" {
		t.Errorf("Retry-After = %q", rr.Header().Get("Retry-After"))
	}

	// Probes are not rate limited.
	checkStatus(t, do(t, s, http.MethodGet, "/healthz", nil), http.StatusOK)
}

func TestErrorStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{core.ErrNotFound, http.StatusNotFound},
		{errors.Join(errors.New("insert"), core.ErrConflict), http.StatusConflict},
		{core.Invalid{Field: "amount", Err: core.ErrInvalidAmount}, http.StatusBadRequest},
		{core.ErrInvalidDate, http.StatusBadRequest},
		{context.DeadlineExceeded, http.StatusGatewayTimeout},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := errorStatus(tt.err); got != tt.want {
			t.Errorf("errorStatus(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}
