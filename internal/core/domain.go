package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	Daily   RecurrenceType = "DAILY"
	Weekly  RecurrenceType = "WEEKLY"
	Monthly RecurrenceType = "MONTHLY"
)

const (
	SourceManual    ExpenseSource = "manual"
	SourceRecurring ExpenseSource = "recurring"
)

const maxDescriptionLen = 200

type (
	RecurrenceType string

	// ExpenseSource tells user-entered expenses apart from generated ones.
	ExpenseSource string

	Category struct {
		ID          string
		Name        string
		BudgetLimit Money
		CreatedAt   time.Time
	}

	Expense struct {
		ID          string
		CategoryID  string
		Amount      Money
		Description string
		OccurredAt  time.Time
		Source      ExpenseSource
		RecurringID string // empty unless Source is SourceRecurring
		CreatedAt   time.Time
	}

	// RecurringExpense is a rule that materializes one Expense per period.
	// Value is interpreted per Type: hour of day (DAILY), day of week with
	// 1 = Sunday (WEEKLY), day of month (MONTHLY).
	RecurringExpense struct {
		ID              string
		CategoryID      string
		Amount          Money
		Description     string
		Type            RecurrenceType
		Value           int
		Active          bool
		LastGeneratedAt time.Time // zero when never generated
		CreatedAt       time.Time
	}
)

var (
	ErrNotFound            = errors.New("not found")
	ErrConflict            = errors.New("already exists")
	ErrInvalidAmount       = errors.New("invalid amount")
	ErrEmptyDescription    = errors.New("empty description")
	ErrDescriptionTooLong  = fmt.Errorf("description too long (max %d characters)", maxDescriptionLen)
	ErrEmptyCategory       = errors.New("empty category")
	ErrEmptyName           = errors.New("empty name")
	ErrInvalidRecurrence   = errors.New("invalid recurrence type")
	ErrInvalidRecurrenceAt = errors.New("recurrence value out of range")
	ErrInvalidDate         = errors.New("date cannot be zero")
)

// ValueRange returns the inclusive range accepted for a rule's Value.
func (t RecurrenceType) ValueRange() (lo, hi int, ok bool) {
	switch t {
	case Daily:
		return 0, 23, true
	case Weekly:
		return 1, 7, true
	case Monthly:
		return 1, 31, true
	default:
		return 0, 0, false
	}
}

func (t RecurrenceType) IsValid() bool {
	_, _, ok := t.ValueRange()
	return ok
}

// ParseRecurrenceType accepts the canonical upper-case names case-insensitively.
func ParseRecurrenceType(s string) (RecurrenceType, error) {
	t := RecurrenceType(strings.ToUpper(strings.TrimSpace(s)))
	if !t.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidRecurrence, s)
	}
	return t, nil
}

func (c Category) Check() ValidationResult {
	if strings.TrimSpace(c.Name) == "" {
		return Invalid{Field: "name", Err: ErrEmptyName}
	}
	if c.BudgetLimit.Cents < 0 {
		return Invalid{Field: "budget_limit", Err: ErrInvalidAmount}
	}
	return Valid{}
}

func (c Category) Validate() error { return AsError(c.Check()) }

func (e Expense) Check() ValidationResult {
	if e.OccurredAt.IsZero() {
		return Invalid{Field: "occurred_at", Err: ErrInvalidDate}
	}
	if r := checkDescription(e.Description); !r.IsValid() {
		return r
	}
	if err := e.Amount.Validate(); err != nil {
		return Invalid{Field: "amount", Err: err}
	}
	if strings.TrimSpace(e.CategoryID) == "" {
		return Invalid{Field: "category_id", Err: ErrEmptyCategory}
	}
	return Valid{}
}

func (e Expense) Validate() error { return AsError(e.Check()) }

// Check validates a rule at creation or edit time. Rules already stored are
// not re-validated by the recurrence engine.
func (re RecurringExpense) Check() ValidationResult {
	lo, hi, ok := re.Type.ValueRange()
	if !ok {
		return Invalid{Field: "type", Err: ErrInvalidRecurrence}
	}
	if re.Value < lo || re.Value > hi {
		return Invalid{
			Field: "value",
			Err:   fmt.Errorf("%w: %d not in [%d, %d] for %s", ErrInvalidRecurrenceAt, re.Value, lo, hi, re.Type),
		}
	}
	if r := checkDescription(re.Description); !r.IsValid() {
		return r
	}
	if err := re.Amount.Validate(); err != nil {
		return Invalid{Field: "amount", Err: err}
	}
	if strings.TrimSpace(re.CategoryID) == "" {
		return Invalid{Field: "category_id", Err: ErrEmptyCategory}
	}
	return Valid{}
}

func (re RecurringExpense) Validate() error { return AsError(re.Check()) }

// NeverGenerated reports whether the rule has not produced an expense yet.
func (re RecurringExpense) NeverGenerated() bool {
	return re.LastGeneratedAt.IsZero()
}

func checkDescription(desc string) ValidationResult {
	if len(strings.TrimSpace(desc)) == 0 {
		return Invalid{Field: "description", Err: ErrEmptyDescription}
	}
	if len(desc) > maxDescriptionLen {
		return Invalid{Field: "description", Err: ErrDescriptionTooLong}
	}
	return Valid{}
}
