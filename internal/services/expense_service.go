package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"pennywise/internal/core"
)

// ExpenseStore is the expense side of persistence.
type ExpenseStore interface {
	InsertExpense(ctx context.Context, e core.Expense) (string, error)
	DeleteExpense(ctx context.Context, id string) error
	ListExpenses(ctx context.Context, from, to time.Time) ([]core.Expense, error)
}

// ExpensePublisher announces expense changes to other processes.
type ExpensePublisher interface {
	PublishExpenseCreated(ctx context.Context, e core.Expense) error
	PublishExpenseDeleted(ctx context.Context, id string) error
}

// ExpenseService orchestrates expense operations across the store and the broker.
// The store is the source of truth; publishing is best effort.
type ExpenseService struct {
	store     ExpenseStore
	publisher ExpensePublisher
	clock     func() time.Time
}

// NewExpenseService creates the service. publisher may be nil.
func NewExpenseService(store ExpenseStore, publisher ExpensePublisher) *ExpenseService {
	return &ExpenseService{
		store:     store,
		publisher: publisher,
		clock:     time.Now,
	}
}

// InsertExpense saves an expense and publishes an expense.created event.
// Missing ids and creation times are filled in.
func (s *ExpenseService) InsertExpense(ctx context.Context, e core.Expense) (string, error) {
	if s.store == nil {
		return "", fmt.Errorf("expense service not properly initialized")
	}
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = s.clock()
	}

	id, err := s.store.InsertExpense(ctx, e)
	if err != nil {
		return "", fmt.Errorf("save expense: %w", err)
	}
	e.ID = id

	if err := s.publishCreated(ctx, e); err != nil {
		slog.ErrorContext(ctx, "Failed to publish expense event",
			"expense_id", id, "error", err)
		// Don't fail the request - expense is saved locally
	}
	return id, nil
}

// CreateManualExpense validates a user-entered expense and saves it.
func (s *ExpenseService) CreateManualExpense(ctx context.Context, e core.Expense) (string, error) {
	e.Source = core.SourceManual
	e.RecurringID = ""
	if err := e.Validate(); err != nil {
		return "", err
	}
	return s.InsertExpense(ctx, e)
}

// DeleteExpense removes an expense and publishes an expense.deleted event.
func (s *ExpenseService) DeleteExpense(ctx context.Context, id string) error {
	if err := s.store.DeleteExpense(ctx, id); err != nil {
		return fmt.Errorf("delete expense: %w", err)
	}

	if s.publisher != nil {
		err := s.publisher.PublishExpenseDeleted(ctx, id)
		recordPublish("expense.deleted", err)
		if err != nil {
			slog.ErrorContext(ctx, "Failed to publish delete event",
				"expense_id", id, "error", err)
		}
	}
	return nil
}

// ListExpenses returns expenses that occurred in [from, to).
func (s *ExpenseService) ListExpenses(ctx context.Context, from, to time.Time) ([]core.Expense, error) {
	if !from.Before(to) {
		return nil, fmt.Errorf("%w: empty range", core.ErrInvalidDate)
	}
	return s.store.ListExpenses(ctx, from, to)
}

func (s *ExpenseService) publishCreated(ctx context.Context, e core.Expense) error {
	if s.publisher == nil {
		slog.DebugContext(ctx, "No publisher configured, skipping expense event")
		return nil
	}
	err := s.publisher.PublishExpenseCreated(ctx, e)
	recordPublish("expense.created", err)
	return err
}

func recordPublish(event string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	expensesPublished.WithLabelValues(event, result).Inc()
}

// Close closes the store and the publisher when they hold resources.
func (s *ExpenseService) Close() error {
	var errs []error

	if c, ok := s.store.(io.Closer); ok && c != nil {
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("storage: %w", err))
		}
	}

	if c, ok := s.publisher.(io.Closer); ok && c != nil {
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("publisher: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close expense service: %v", errs)
	}

	return nil
}
