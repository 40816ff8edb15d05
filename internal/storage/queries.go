package storage

import (
	"context"
	"database/sql"
)

type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

type Queries struct {
	db DBTX
}

// --- categories ---

const createCategory = `
INSERT INTO categories (id, name, budget_limit_cents, created_at)
VALUES (?, ?, ?, ?)
`

type CreateCategoryParams struct {
	ID               string
	Name             string
	BudgetLimitCents int64
	CreatedAt        int64
}

func (q *Queries) CreateCategory(ctx context.Context, arg CreateCategoryParams) error {
	_, err := q.db.ExecContext(ctx, createCategory, arg.ID, arg.Name, arg.BudgetLimitCents, arg.CreatedAt)
	return err
}

const getCategory = `
SELECT id, name, budget_limit_cents, created_at FROM categories WHERE id = ?
`

func (q *Queries) GetCategory(ctx context.Context, id string) (Category, error) {
	row := q.db.QueryRowContext(ctx, getCategory, id)
	var i Category
	err := row.Scan(&i.ID, &i.Name, &i.BudgetLimitCents, &i.CreatedAt)
	return i, err
}

const listCategories = `
SELECT id, name, budget_limit_cents, created_at FROM categories ORDER BY name
`

func (q *Queries) ListCategories(ctx context.Context) ([]Category, error) {
	rows, err := q.db.QueryContext(ctx, listCategories)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Category
	for rows.Next() {
		var i Category
		if err := rows.Scan(&i.ID, &i.Name, &i.BudgetLimitCents, &i.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const updateCategory = `
UPDATE categories SET name = ?, budget_limit_cents = ? WHERE id = ?
`

type UpdateCategoryParams struct {
	Name             string
	BudgetLimitCents int64
	ID               string
}

func (q *Queries) UpdateCategory(ctx context.Context, arg UpdateCategoryParams) (int64, error) {
	result, err := q.db.ExecContext(ctx, updateCategory, arg.Name, arg.BudgetLimitCents, arg.ID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// --- expenses ---

const createExpense = `
INSERT INTO expenses (id, category_id, amount_cents, description, occurred_at, source, recurring_id, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
`

type CreateExpenseParams struct {
	ID          string
	CategoryID  string
	AmountCents int64
	Description string
	OccurredAt  int64
	Source      string
	RecurringID sql.NullString
	CreatedAt   int64
}

func (q *Queries) CreateExpense(ctx context.Context, arg CreateExpenseParams) error {
	_, err := q.db.ExecContext(ctx, createExpense,
		arg.ID,
		arg.CategoryID,
		arg.AmountCents,
		arg.Description,
		arg.OccurredAt,
		arg.Source,
		arg.RecurringID,
		arg.CreatedAt,
	)
	return err
}

const getExpense = `
SELECT id, category_id, amount_cents, description, occurred_at, source, recurring_id, created_at
FROM expenses WHERE id = ?
`

func (q *Queries) GetExpense(ctx context.Context, id string) (Expense, error) {
	row := q.db.QueryRowContext(ctx, getExpense, id)
	var i Expense
	err := row.Scan(
		&i.ID,
		&i.CategoryID,
		&i.AmountCents,
		&i.Description,
		&i.OccurredAt,
		&i.Source,
		&i.RecurringID,
		&i.CreatedAt,
	)
	return i, err
}

const deleteExpense = `
DELETE FROM expenses WHERE id = ?
`

func (q *Queries) DeleteExpense(ctx context.Context, id string) (int64, error) {
	result, err := q.db.ExecContext(ctx, deleteExpense, id)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const listExpensesBetween = `
SELECT id, category_id, amount_cents, description, occurred_at, source, recurring_id, created_at
FROM expenses
WHERE occurred_at >= ? AND occurred_at < ?
ORDER BY occurred_at DESC, created_at DESC
`

type ListExpensesBetweenParams struct {
	From int64
	To   int64
}

func (q *Queries) ListExpensesBetween(ctx context.Context, arg ListExpensesBetweenParams) ([]Expense, error) {
	rows, err := q.db.QueryContext(ctx, listExpensesBetween, arg.From, arg.To)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Expense
	for rows.Next() {
		var i Expense
		if err := rows.Scan(
			&i.ID,
			&i.CategoryID,
			&i.AmountCents,
			&i.Description,
			&i.OccurredAt,
			&i.Source,
			&i.RecurringID,
			&i.CreatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const sumByCategoryBetween = `
SELECT category_id, CAST(COALESCE(SUM(amount_cents), 0) AS INTEGER) AS total_cents
FROM expenses
WHERE occurred_at >= ? AND occurred_at < ?
GROUP BY category_id
`

type SumByCategoryBetweenParams struct {
	From int64
	To   int64
}

type SumByCategoryBetweenRow struct {
	CategoryID string
	TotalCents int64
}

func (q *Queries) SumByCategoryBetween(ctx context.Context, arg SumByCategoryBetweenParams) ([]SumByCategoryBetweenRow, error) {
	rows, err := q.db.QueryContext(ctx, sumByCategoryBetween, arg.From, arg.To)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []SumByCategoryBetweenRow
	for rows.Next() {
		var i SumByCategoryBetweenRow
		if err := rows.Scan(&i.CategoryID, &i.TotalCents); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

// --- recurring expenses ---

const recurringColumns = `id, category_id, amount_cents, description, recurrence_type, recurrence_value, active, last_generated_at, created_at`

const createRecurring = `
INSERT INTO recurring_expenses (` + recurringColumns + `)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
`

type CreateRecurringParams struct {
	ID              string
	CategoryID      string
	AmountCents     int64
	Description     string
	RecurrenceType  string
	RecurrenceValue int64
	Active          bool
	LastGeneratedAt int64
	CreatedAt       int64
}

func (q *Queries) CreateRecurring(ctx context.Context, arg CreateRecurringParams) error {
	_, err := q.db.ExecContext(ctx, createRecurring,
		arg.ID,
		arg.CategoryID,
		arg.AmountCents,
		arg.Description,
		arg.RecurrenceType,
		arg.RecurrenceValue,
		arg.Active,
		arg.LastGeneratedAt,
		arg.CreatedAt,
	)
	return err
}

const getRecurring = `
SELECT ` + recurringColumns + ` FROM recurring_expenses WHERE id = ?
`

func (q *Queries) GetRecurring(ctx context.Context, id string) (RecurringExpense, error) {
	row := q.db.QueryRowContext(ctx, getRecurring, id)
	var i RecurringExpense
	err := scanRecurring(row, &i)
	return i, err
}

const listRecurring = `
SELECT ` + recurringColumns + ` FROM recurring_expenses ORDER BY created_at, id
`

func (q *Queries) ListRecurring(ctx context.Context) ([]RecurringExpense, error) {
	return q.queryRecurring(ctx, listRecurring)
}

const listActiveRecurring = `
SELECT ` + recurringColumns + ` FROM recurring_expenses WHERE active = 1 ORDER BY created_at, id
`

func (q *Queries) ListActiveRecurring(ctx context.Context) ([]RecurringExpense, error) {
	return q.queryRecurring(ctx, listActiveRecurring)
}

const updateRecurring = `
UPDATE recurring_expenses
SET category_id = ?, amount_cents = ?, description = ?, recurrence_type = ?, recurrence_value = ?, active = ?
WHERE id = ?
`

type UpdateRecurringParams struct {
	CategoryID      string
	AmountCents     int64
	Description     string
	RecurrenceType  string
	RecurrenceValue int64
	Active          bool
	ID              string
}

func (q *Queries) UpdateRecurring(ctx context.Context, arg UpdateRecurringParams) (int64, error) {
	result, err := q.db.ExecContext(ctx, updateRecurring,
		arg.CategoryID,
		arg.AmountCents,
		arg.Description,
		arg.RecurrenceType,
		arg.RecurrenceValue,
		arg.Active,
		arg.ID,
	)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const setRecurringActive = `
UPDATE recurring_expenses SET active = ? WHERE id = ?
`

func (q *Queries) SetRecurringActive(ctx context.Context, active bool, id string) (int64, error) {
	result, err := q.db.ExecContext(ctx, setRecurringActive, active, id)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const updateRecurringLastGenerated = `
UPDATE recurring_expenses SET last_generated_at = ? WHERE id = ?
`

func (q *Queries) UpdateRecurringLastGenerated(ctx context.Context, lastGeneratedAt int64, id string) (int64, error) {
	result, err := q.db.ExecContext(ctx, updateRecurringLastGenerated, lastGeneratedAt, id)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const deleteRecurring = `
DELETE FROM recurring_expenses WHERE id = ?
`

func (q *Queries) DeleteRecurring(ctx context.Context, id string) (int64, error) {
	result, err := q.db.ExecContext(ctx, deleteRecurring, id)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRecurring(row rowScanner, i *RecurringExpense) error {
	return row.Scan(
		&i.ID,
		&i.CategoryID,
		&i.AmountCents,
		&i.Description,
		&i.RecurrenceType,
		&i.RecurrenceValue,
		&i.Active,
		&i.LastGeneratedAt,
		&i.CreatedAt,
	)
}

func (q *Queries) queryRecurring(ctx context.Context, query string) ([]RecurringExpense, error) {
	rows, err := q.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []RecurringExpense
	for rows.Next() {
		var i RecurringExpense
		if err := scanRecurring(rows, &i); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
