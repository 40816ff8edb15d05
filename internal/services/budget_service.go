package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"pennywise/internal/core"
)

// CategoryStore persists categories and aggregates spend per category.
type CategoryStore interface {
	CategoryLookup
	InsertCategory(ctx context.Context, c core.Category) error
	UpdateCategory(ctx context.Context, c core.Category) error
	ListCategories(ctx context.Context) ([]core.Category, error)
	SpendByCategory(ctx context.Context, from, to time.Time) (map[string]core.Money, error)
}

// BudgetService owns categories and the monthly spend-versus-budget view.
type BudgetService struct {
	store CategoryStore
	loc   *time.Location
	clock func() time.Time
}

// NewBudgetService creates the service. Months are calendar months in loc
// (time.Local when nil).
func NewBudgetService(store CategoryStore, loc *time.Location) *BudgetService {
	if loc == nil {
		loc = time.Local
	}
	return &BudgetService{store: store, loc: loc, clock: time.Now}
}

func (s *BudgetService) CreateCategory(ctx context.Context, c core.Category) (core.Category, error) {
	c.ID = uuid.NewString()
	c.CreatedAt = s.clock()
	if err := c.Validate(); err != nil {
		return core.Category{}, err
	}
	if err := s.store.InsertCategory(ctx, c); err != nil {
		return core.Category{}, fmt.Errorf("insert category: %w", err)
	}
	return c, nil
}

// SetBudget changes a category's monthly limit; zero removes the limit.
func (s *BudgetService) SetBudget(ctx context.Context, id string, limit core.Money) (core.Category, error) {
	c, err := s.store.GetCategory(ctx, id)
	if err != nil {
		return core.Category{}, fmt.Errorf("get category %s: %w", id, err)
	}
	c.BudgetLimit = limit
	if err := c.Validate(); err != nil {
		return core.Category{}, err
	}
	if err := s.store.UpdateCategory(ctx, c); err != nil {
		return core.Category{}, fmt.Errorf("update category: %w", err)
	}
	return c, nil
}

func (s *BudgetService) GetCategory(ctx context.Context, id string) (core.Category, error) {
	return s.store.GetCategory(ctx, id)
}

func (s *BudgetService) ListCategories(ctx context.Context) ([]core.Category, error) {
	return s.store.ListCategories(ctx)
}

// MonthOverview aggregates spend for the given calendar month.
func (s *BudgetService) MonthOverview(ctx context.Context, year int, month time.Month) (core.MonthOverview, error) {
	if month < time.January || month > time.December {
		return core.MonthOverview{}, fmt.Errorf("%w: month %d", core.ErrInvalidDate, month)
	}
	from, to := MonthRange(year, month, s.loc)

	cats, err := s.store.ListCategories(ctx)
	if err != nil {
		return core.MonthOverview{}, fmt.Errorf("list categories: %w", err)
	}
	spent, err := s.store.SpendByCategory(ctx, from, to)
	if err != nil {
		return core.MonthOverview{}, fmt.Errorf("spend by category: %w", err)
	}
	return core.BuildOverview(year, int(month), cats, spent), nil
}

// Location is the zone months are computed in.
func (s *BudgetService) Location() *time.Location { return s.loc }

// MonthRange returns [first instant of month, first instant of next month) in loc.
func MonthRange(year int, month time.Month, loc *time.Location) (time.Time, time.Time) {
	from := time.Date(year, month, 1, 0, 0, 0, 0, loc)
	return from, from.AddDate(0, 1, 0)
}
