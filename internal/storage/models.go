package storage

import "database/sql"

// Row types mirror the tables one to one. Times are unix milliseconds.

type Category struct {
	ID               string
	Name             string
	BudgetLimitCents int64
	CreatedAt        int64
}

type Expense struct {
	ID          string
	CategoryID  string
	AmountCents int64
	Description string
	OccurredAt  int64
	Source      string
	RecurringID sql.NullString
	CreatedAt   int64
}

type RecurringExpense struct {
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
