package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"pennywise/internal/core"
)

func TestBudgetService_MonthOverview(t *testing.T) {
	store := newMemStore()
	svc := NewBudgetService(store, time.UTC)
	ctx := context.Background()

	food, err := svc.CreateCategory(ctx, core.Category{Name: "Food", BudgetLimit: core.Money{Cents: 10000}})
	if err != nil {
		t.Fatalf("create category: %v", err)
	}
	fun, err := svc.CreateCategory(ctx, core.Category{Name: "Fun", BudgetLimit: core.Money{Cents: 1000}})
	if err != nil {
		t.Fatalf("create category: %v", err)
	}

	expenses := []core.Expense{
		{ID: "1", CategoryID: food.ID, Amount: core.Money{Cents: 3000}, OccurredAt: time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)},
		{ID: "2", CategoryID: food.ID, Amount: core.Money{Cents: 2000}, OccurredAt: time.Date(2025, 3, 31, 23, 59, 0, 0, time.UTC)},
		{ID: "3", CategoryID: fun.ID, Amount: core.Money{Cents: 1500}, OccurredAt: time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC)},
		{ID: "4", CategoryID: food.ID, Amount: core.Money{Cents: 9999}, OccurredAt: time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)},
	}
	for _, e := range expenses {
		if _, err := store.InsertExpense(ctx, e); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}

	ov, err := svc.MonthOverview(ctx, 2025, time.March)
	if err != nil {
		t.Fatalf("overview: %v", err)
	}
	if ov.Total.Cents != 6500 {
		t.Errorf("total = %d, want 6500", ov.Total.Cents)
	}
	if ov.Budget.Cents != 11000 {
		t.Errorf("budget = %d, want 11000", ov.Budget.Cents)
	}

	over := map[string]bool{}
	for _, c := range ov.ByCategory {
		over[c.Name] = c.OverBudget()
	}
	if over["Food"] || !over["Fun"] {
		t.Errorf("unexpected over-budget flags: %v", over)
	}

	if _, err := svc.MonthOverview(ctx, 2025, time.Month(13)); !errors.Is(err, core.ErrInvalidDate) {
		t.Errorf("invalid month err = %v", err)
	}
}

func TestBudgetService_SetBudget(t *testing.T) {
	store := newMemStore()
	svc := NewBudgetService(store, time.UTC)
	ctx := context.Background()

	c, err := svc.CreateCategory(ctx, core.Category{Name: "Rent"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	updated, err := svc.SetBudget(ctx, c.ID, core.Money{Cents: 90000})
	if err != nil {
		t.Fatalf("set budget: %v", err)
	}
	if updated.BudgetLimit.Cents != 90000 {
		t.Fatalf("budget = %d", updated.BudgetLimit.Cents)
	}
	if _, err := svc.SetBudget(ctx, c.ID, core.Money{Cents: -1}); !errors.Is(err, core.ErrInvalidAmount) {
		t.Fatalf("negative budget err = %v", err)
	}
	if _, err := svc.SetBudget(ctx, "missing", core.Money{}); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("missing category err = %v", err)
	}
	if _, err := svc.CreateCategory(ctx, core.Category{Name: " "}); !errors.Is(err, core.ErrEmptyName) {
		t.Fatalf("empty name err = %v", err)
	}
}

func TestMonthRange(t *testing.T) {
	from, to := MonthRange(2024, time.December, time.UTC)
	if !from.Equal(time.Date(2024, 12, 1, 0, 0, 0, 0, time.UTC)) || !to.Equal(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("MonthRange = %v, %v", from, to)
	}
}
