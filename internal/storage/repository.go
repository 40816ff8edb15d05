package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"pennywise/internal/core"

	_ "modernc.org/sqlite"
)

type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	dsn := dataSourceName(dbPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	version, err := Migrate(dsn)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	slog.Debug("SQLite schema ready", "path", dbPath, "schema_version", version)

	repo := &SQLiteRepository{
		db:      db,
		queries: New(db),
	}

	return repo, nil
}

// dataSourceName enables foreign keys and waits on locks instead of failing
// with SQLITE_BUSY when the worker and the server share the file.
func dataSourceName(path string) string {
	return "file:" + path + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// --- categories ---

func (r *SQLiteRepository) InsertCategory(ctx context.Context, c core.Category) error {
	err := r.queries.CreateCategory(ctx, CreateCategoryParams{
		ID:               c.ID,
		Name:             c.Name,
		BudgetLimitCents: c.BudgetLimit.Cents,
		CreatedAt:        toMillis(c.CreatedAt),
	})
	if err != nil {
		return constraintError("create category", err)
	}
	return nil
}

func (r *SQLiteRepository) UpdateCategory(ctx context.Context, c core.Category) error {
	n, err := r.queries.UpdateCategory(ctx, UpdateCategoryParams{
		Name:             c.Name,
		BudgetLimitCents: c.BudgetLimit.Cents,
		ID:               c.ID,
	})
	return affected(n, err, "update category")
}

func (r *SQLiteRepository) GetCategory(ctx context.Context, id string) (core.Category, error) {
	row, err := r.queries.GetCategory(ctx, id)
	if err != nil {
		return core.Category{}, notFound(err, "get category")
	}
	return categoryFromRow(row), nil
}

func (r *SQLiteRepository) ListCategories(ctx context.Context) ([]core.Category, error) {
	rows, err := r.queries.ListCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	out := make([]core.Category, 0, len(rows))
	for _, row := range rows {
		out = append(out, categoryFromRow(row))
	}
	return out, nil
}

// SpendByCategory sums expenses that occurred in [from, to).
func (r *SQLiteRepository) SpendByCategory(ctx context.Context, from, to time.Time) (map[string]core.Money, error) {
	rows, err := r.queries.SumByCategoryBetween(ctx, SumByCategoryBetweenParams{
		From: toMillis(from),
		To:   toMillis(to),
	})
	if err != nil {
		return nil, fmt.Errorf("sum by category: %w", err)
	}
	out := make(map[string]core.Money, len(rows))
	for _, row := range rows {
		out[row.CategoryID] = core.Money{Cents: row.TotalCents}
	}
	return out, nil
}

// --- expenses ---

func (r *SQLiteRepository) InsertExpense(ctx context.Context, e core.Expense) (string, error) {
	var recurringID sql.NullString
	if e.RecurringID != "" {
		recurringID = sql.NullString{String: e.RecurringID, Valid: true}
	}

	err := r.queries.CreateExpense(ctx, CreateExpenseParams{
		ID:          e.ID,
		CategoryID:  e.CategoryID,
		AmountCents: e.Amount.Cents,
		Description: e.Description,
		OccurredAt:  toMillis(e.OccurredAt),
		Source:      string(e.Source),
		RecurringID: recurringID,
		CreatedAt:   toMillis(e.CreatedAt),
	})
	if err != nil {
		return "", constraintError("create expense", err)
	}

	slog.DebugContext(ctx, "Expense saved to SQLite",
		"id", e.ID,
		"amount_cents", e.Amount.Cents,
		"source", e.Source)

	return e.ID, nil
}

func (r *SQLiteRepository) GetExpense(ctx context.Context, id string) (core.Expense, error) {
	row, err := r.queries.GetExpense(ctx, id)
	if err != nil {
		return core.Expense{}, notFound(err, "get expense")
	}
	return expenseFromRow(row), nil
}

func (r *SQLiteRepository) DeleteExpense(ctx context.Context, id string) error {
	n, err := r.queries.DeleteExpense(ctx, id)
	return affected(n, err, "delete expense")
}

// ListExpenses returns expenses that occurred in [from, to), newest first.
func (r *SQLiteRepository) ListExpenses(ctx context.Context, from, to time.Time) ([]core.Expense, error) {
	rows, err := r.queries.ListExpensesBetween(ctx, ListExpensesBetweenParams{
		From: toMillis(from),
		To:   toMillis(to),
	})
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	out := make([]core.Expense, 0, len(rows))
	for _, row := range rows {
		out = append(out, expenseFromRow(row))
	}
	return out, nil
}

// --- recurring expenses ---

func (r *SQLiteRepository) InsertRecurring(ctx context.Context, re core.RecurringExpense) error {
	err := r.queries.CreateRecurring(ctx, CreateRecurringParams{
		ID:              re.ID,
		CategoryID:      re.CategoryID,
		AmountCents:     re.Amount.Cents,
		Description:     re.Description,
		RecurrenceType:  string(re.Type),
		RecurrenceValue: int64(re.Value),
		Active:          re.Active,
		LastGeneratedAt: toMillis(re.LastGeneratedAt),
		CreatedAt:       toMillis(re.CreatedAt),
	})
	if err != nil {
		return constraintError("create recurring expense", err)
	}
	return nil
}

func (r *SQLiteRepository) GetRecurring(ctx context.Context, id string) (core.RecurringExpense, error) {
	row, err := r.queries.GetRecurring(ctx, id)
	if err != nil {
		return core.RecurringExpense{}, notFound(err, "get recurring expense")
	}
	return recurringFromRow(row), nil
}

// UpdateRecurring rewrites the editable fields. The last-generated stamp is
// only written by UpdateRecurringLastGenerated.
func (r *SQLiteRepository) UpdateRecurring(ctx context.Context, re core.RecurringExpense) error {
	n, err := r.queries.UpdateRecurring(ctx, UpdateRecurringParams{
		CategoryID:      re.CategoryID,
		AmountCents:     re.Amount.Cents,
		Description:     re.Description,
		RecurrenceType:  string(re.Type),
		RecurrenceValue: int64(re.Value),
		Active:          re.Active,
		ID:              re.ID,
	})
	return affected(n, err, "update recurring expense")
}

func (r *SQLiteRepository) SetRecurringActive(ctx context.Context, id string, active bool) error {
	n, err := r.queries.SetRecurringActive(ctx, active, id)
	return affected(n, err, "set recurring active")
}

func (r *SQLiteRepository) UpdateRecurringLastGenerated(ctx context.Context, id string, at time.Time) error {
	n, err := r.queries.UpdateRecurringLastGenerated(ctx, toMillis(at), id)
	return affected(n, err, "update last generated")
}

func (r *SQLiteRepository) DeleteRecurring(ctx context.Context, id string) error {
	n, err := r.queries.DeleteRecurring(ctx, id)
	return affected(n, err, "delete recurring expense")
}

func (r *SQLiteRepository) ListRecurring(ctx context.Context) ([]core.RecurringExpense, error) {
	rows, err := r.queries.ListRecurring(ctx)
	if err != nil {
		return nil, fmt.Errorf("list recurring expenses: %w", err)
	}
	return recurringFromRows(rows), nil
}

func (r *SQLiteRepository) ListActiveRecurring(ctx context.Context) ([]core.RecurringExpense, error) {
	rows, err := r.queries.ListActiveRecurring(ctx)
	if err != nil {
		return nil, fmt.Errorf("list active recurring expenses: %w", err)
	}
	return recurringFromRows(rows), nil
}

// --- mapping ---

func categoryFromRow(row Category) core.Category {
	return core.Category{
		ID:          row.ID,
		Name:        row.Name,
		BudgetLimit: core.Money{Cents: row.BudgetLimitCents},
		CreatedAt:   fromMillis(row.CreatedAt),
	}
}

func expenseFromRow(row Expense) core.Expense {
	return core.Expense{
		ID:          row.ID,
		CategoryID:  row.CategoryID,
		Amount:      core.Money{Cents: row.AmountCents},
		Description: row.Description,
		OccurredAt:  fromMillis(row.OccurredAt),
		Source:      core.ExpenseSource(row.Source),
		RecurringID: row.RecurringID.String,
		CreatedAt:   fromMillis(row.CreatedAt),
	}
}

func recurringFromRow(row RecurringExpense) core.RecurringExpense {
	return core.RecurringExpense{
		ID:              row.ID,
		CategoryID:      row.CategoryID,
		Amount:          core.Money{Cents: row.AmountCents},
		Description:     row.Description,
		Type:            core.RecurrenceType(row.RecurrenceType),
		Value:           int(row.RecurrenceValue),
		Active:          row.Active,
		LastGeneratedAt: fromMillis(row.LastGeneratedAt),
		CreatedAt:       fromMillis(row.CreatedAt),
	}
}

func recurringFromRows(rows []RecurringExpense) []core.RecurringExpense {
	out := make([]core.RecurringExpense, 0, len(rows))
	for _, row := range rows {
		out = append(out, recurringFromRow(row))
	}
	return out
}

// toMillis stores the zero time as 0.
func toMillis(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}

func fromMillis(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}

func notFound(err error, op string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", op, core.ErrNotFound)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func affected(n int64, err error, op string) error {
	if err != nil {
		return constraintError(op, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", op, core.ErrNotFound)
	}
	return nil
}

// constraintError maps SQLite constraint failures onto the core sentinels:
// a duplicate key is a conflict, a dangling category reference is not found.
func constraintError(op string, err error) error {
	msg := err.Error()
	switch {
	case strings.Contains(msg, "UNIQUE constraint failed"):
		return fmt.Errorf("%s: %w: %v", op, core.ErrConflict, err)
	case strings.Contains(msg, "FOREIGN KEY constraint failed"):
		return fmt.Errorf("%s: category: %w: %v", op, core.ErrNotFound, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}
