package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"pennywise/internal/core"
)

// RuleStore is full CRUD over recurring rules.
type RuleStore interface {
	InsertRecurring(ctx context.Context, re core.RecurringExpense) error
	GetRecurring(ctx context.Context, id string) (core.RecurringExpense, error)
	UpdateRecurring(ctx context.Context, re core.RecurringExpense) error
	SetRecurringActive(ctx context.Context, id string, active bool) error
	DeleteRecurring(ctx context.Context, id string) error
	ListRecurring(ctx context.Context) ([]core.RecurringExpense, error)
}

// CategoryLookup resolves a category by id, returning core.ErrNotFound when absent.
type CategoryLookup interface {
	GetCategory(ctx context.Context, id string) (core.Category, error)
}

// RecurringService manages recurring rules on behalf of users. Rules are
// validated here, at creation and edit time, and nowhere else.
type RecurringService struct {
	store      RuleStore
	categories CategoryLookup
	clock      func() time.Time
}

func NewRecurringService(store RuleStore, categories CategoryLookup) *RecurringService {
	return &RecurringService{store: store, categories: categories, clock: time.Now}
}

// Create stores a new rule. The rule has never generated anything yet.
func (s *RecurringService) Create(ctx context.Context, re core.RecurringExpense) (core.RecurringExpense, error) {
	re.ID = uuid.NewString()
	re.CreatedAt = s.clock()
	re.LastGeneratedAt = time.Time{}

	if err := s.check(ctx, re); err != nil {
		return core.RecurringExpense{}, err
	}
	if err := s.store.InsertRecurring(ctx, re); err != nil {
		return core.RecurringExpense{}, fmt.Errorf("insert recurring expense: %w", err)
	}

	slog.InfoContext(ctx, "Created recurring expense",
		"rule_id", re.ID,
		"type", re.Type,
		"value", re.Value,
		"amount_cents", re.Amount.Cents)
	return re, nil
}

// Update replaces the editable fields of an existing rule. Identity, creation
// time and the last-generated stamp are kept, so an edit never re-fires a
// period that already produced an expense.
func (s *RecurringService) Update(ctx context.Context, re core.RecurringExpense) (core.RecurringExpense, error) {
	existing, err := s.store.GetRecurring(ctx, re.ID)
	if err != nil {
		return core.RecurringExpense{}, fmt.Errorf("get recurring expense %s: %w", re.ID, err)
	}
	re.CreatedAt = existing.CreatedAt
	re.LastGeneratedAt = existing.LastGeneratedAt

	if err := s.check(ctx, re); err != nil {
		return core.RecurringExpense{}, err
	}
	if err := s.store.UpdateRecurring(ctx, re); err != nil {
		return core.RecurringExpense{}, fmt.Errorf("update recurring expense: %w", err)
	}
	return re, nil
}

func (s *RecurringService) SetActive(ctx context.Context, id string, active bool) error {
	if err := s.store.SetRecurringActive(ctx, id, active); err != nil {
		return fmt.Errorf("set active on %s: %w", id, err)
	}
	slog.InfoContext(ctx, "Recurring expense toggled", "rule_id", id, "active", active)
	return nil
}

// Delete removes the rule only; expenses it generated stay.
func (s *RecurringService) Delete(ctx context.Context, id string) error {
	if err := s.store.DeleteRecurring(ctx, id); err != nil {
		return fmt.Errorf("delete recurring expense %s: %w", id, err)
	}
	return nil
}

func (s *RecurringService) Get(ctx context.Context, id string) (core.RecurringExpense, error) {
	return s.store.GetRecurring(ctx, id)
}

func (s *RecurringService) List(ctx context.Context) ([]core.RecurringExpense, error) {
	return s.store.ListRecurring(ctx)
}

func (s *RecurringService) check(ctx context.Context, re core.RecurringExpense) error {
	if err := re.Validate(); err != nil {
		return err
	}
	if s.categories == nil {
		return nil
	}
	if _, err := s.categories.GetCategory(ctx, re.CategoryID); err != nil {
		return fmt.Errorf("category %s: %w", re.CategoryID, err)
	}
	return nil
}
