// Package adapters wires the services over one store so the HTTP server
// and the workers share a single composition.
package adapters

import (
	"context"
	"fmt"
	"io"
	"time"

	"pennywise/internal/cache"
	"pennywise/internal/core"
	"pennywise/internal/services"
)

// Store is everything the services need from persistence. Both the SQLite
// repository and the in-memory store satisfy it.
type Store interface {
	services.ExpenseStore
	services.RuleStore
	services.CategoryStore
	services.RecurringStore
	GetExpense(ctx context.Context, id string) (core.Expense, error)
	Ping(ctx context.Context) error
	io.Closer
}

const (
	overviewCacheSize = 24
	overviewCacheTTL  = 5 * time.Minute
)

// App bundles the services. MonthOverview results are cached and purged
// whenever an expense event passes through or a budget changes.
type App struct {
	Store     Store
	Expenses  *services.ExpenseService
	Recurring *services.RecurringService
	Budget    *services.BudgetService
	Processor *services.RecurringProcessor

	overviews *cache.LRUCache[core.MonthOverview]
}

// NewApp builds the services. publisher may be nil.
func NewApp(store Store, publisher services.ExpensePublisher, loc *time.Location) *App {
	if loc == nil {
		loc = time.Local
	}
	overviews := cache.NewLRUCache[core.MonthOverview](overviewCacheSize, overviewCacheTTL)
	expenses := services.NewExpenseService(store, &invalidatingPublisher{next: publisher, cache: overviews})

	return &App{
		Store:     store,
		Expenses:  expenses,
		Recurring: services.NewRecurringService(store, store),
		Budget:    services.NewBudgetService(store, loc),
		Processor: services.NewRecurringProcessor(store, expenses, loc),
		overviews: overviews,
	}
}

// MonthOverview serves the per-category spend for a month from cache.
func (a *App) MonthOverview(ctx context.Context, year int, month time.Month) (core.MonthOverview, error) {
	key := fmt.Sprintf("%04d-%02d", year, int(month))
	if ov, ok := a.overviews.Get(key); ok {
		return ov, nil
	}
	ov, err := a.Budget.MonthOverview(ctx, year, month)
	if err != nil {
		return core.MonthOverview{}, err
	}
	a.overviews.Set(key, ov)
	return ov, nil
}

func (a *App) CreateCategory(ctx context.Context, c core.Category) (core.Category, error) {
	created, err := a.Budget.CreateCategory(ctx, c)
	if err == nil {
		a.overviews.Purge()
	}
	return created, err
}

func (a *App) SetBudget(ctx context.Context, id string, limit core.Money) (core.Category, error) {
	updated, err := a.Budget.SetBudget(ctx, id, limit)
	if err == nil {
		a.overviews.Purge()
	}
	return updated, err
}

// Caches exposes the caches for the janitor.
func (a *App) Caches() []cache.Cleaner {
	return []cache.Cleaner{a.overviews}
}

// Close releases the store and the publisher.
func (a *App) Close() error {
	return a.Expenses.Close()
}

// invalidatingPublisher drops cached overviews on every expense change,
// then forwards to the broker when one is configured.
type invalidatingPublisher struct {
	next  services.ExpensePublisher
	cache cache.Cache[core.MonthOverview]
}

func (p *invalidatingPublisher) PublishExpenseCreated(ctx context.Context, e core.Expense) error {
	p.cache.Purge()
	if p.next == nil {
		return nil
	}
	return p.next.PublishExpenseCreated(ctx, e)
}

func (p *invalidatingPublisher) PublishExpenseDeleted(ctx context.Context, id string) error {
	p.cache.Purge()
	if p.next == nil {
		return nil
	}
	return p.next.PublishExpenseDeleted(ctx, id)
}

func (p *invalidatingPublisher) Close() error {
	if c, ok := p.next.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
