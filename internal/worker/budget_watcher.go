// Package worker holds background consumers of expense events.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"golang.org/x/sync/errgroup"

	"pennywise/internal/amqp"
	"pennywise/internal/core"
)

var (
	budgetAlerts = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "pennywise",
		Subsystem: "budget",
		Name:      "alerts_total",
		Help:      "Over-budget warnings raised, by trigger.",
	}, []string{"trigger"})

	overBudgetCategories = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "pennywise",
		Subsystem: "budget",
		Name:      "over_budget_categories",
		Help:      "Categories over budget in the current month at the last sweep.",
	})
)

// OverviewReader computes a month's spend per category. It must not serve
// stale data: the watcher runs in a different process than the writers.
type OverviewReader interface {
	MonthOverview(ctx context.Context, year int, month time.Month) (core.MonthOverview, error)
}

// EventSource delivers expense events until ctx is done. amqp.Client
// satisfies it.
type EventSource interface {
	ConsumeExpenseEvents(ctx context.Context, handler amqp.Handler) error
}

// BudgetWatcher warns when a category's spend for a month goes past its
// budget limit. Events trigger an immediate check of the expense's month; a
// periodic sweep re-checks the current month in case events were lost.
type BudgetWatcher struct {
	overviews OverviewReader
	loc       *time.Location
	clock     func() time.Time

	mu sync.Mutex
	// alerted remembers the spend last warned about per month and category,
	// so a sweep does not repeat a warning nothing has changed.
	alerted map[string]int64
}

func NewBudgetWatcher(overviews OverviewReader, loc *time.Location) *BudgetWatcher {
	if loc == nil {
		loc = time.Local
	}
	return &BudgetWatcher{
		overviews: overviews,
		loc:       loc,
		clock:     time.Now,
		alerted:   make(map[string]int64),
	}
}

// HandleExpenseEvent is the amqp.Handler for the budget queue. Only created
// events can push a category over budget.
func (w *BudgetWatcher) HandleExpenseEvent(ctx context.Context, ev *amqp.ExpenseEvent) error {
	if ev.Type != amqp.EventExpenseCreated {
		slog.DebugContext(ctx, "Ignoring expense event", "event", ev.Type, "expense_id", ev.ExpenseID)
		return nil
	}

	at := ev.OccurredAt
	if at.IsZero() {
		at = ev.Timestamp
	}
	at = at.In(w.loc)

	ov, err := w.overviews.MonthOverview(ctx, at.Year(), at.Month())
	if err != nil {
		return fmt.Errorf("month overview for %s: %w", ev.ExpenseID, err)
	}
	for _, cs := range ov.ByCategory {
		if cs.CategoryID == ev.CategoryID {
			w.check(ctx, ov, cs, "event")
			break
		}
	}
	return nil
}

// Sweep checks every category for the current month and returns how many
// are over budget.
func (w *BudgetWatcher) Sweep(ctx context.Context) (int, error) {
	now := w.clock().In(w.loc)
	ov, err := w.overviews.MonthOverview(ctx, now.Year(), now.Month())
	if err != nil {
		return 0, fmt.Errorf("month overview: %w", err)
	}

	w.forgetBefore(ov.Year, ov.Month)

	over := 0
	for _, cs := range ov.ByCategory {
		if w.check(ctx, ov, cs, "sweep") {
			over++
		}
	}
	overBudgetCategories.Set(float64(over))
	slog.DebugContext(ctx, "Budget sweep completed",
		"year", ov.Year,
		"month", ov.Month,
		"over_budget", over)
	return over, nil
}

// check warns about cs if it is over budget and its spend changed since the
// last warning. It reports whether cs is over budget.
func (w *BudgetWatcher) check(ctx context.Context, ov core.MonthOverview, cs core.CategorySpend, trigger string) bool {
	if !cs.OverBudget() {
		return false
	}

	key := alertKey(ov.Year, ov.Month) + cs.CategoryID
	w.mu.Lock()
	prev, seen := w.alerted[key]
	w.alerted[key] = cs.Spent.Cents
	w.mu.Unlock()
	if seen && prev == cs.Spent.Cents {
		return true
	}

	budgetAlerts.WithLabelValues(trigger).Inc()
	slog.WarnContext(ctx, "Category over budget",
		"category_id", cs.CategoryID,
		"category", cs.Name,
		"year", ov.Year,
		"month", ov.Month,
		"spent", cs.Spent.String(),
		"budget", cs.Budget.String(),
		"over_by", cs.Spent.Sub(cs.Budget).String(),
		"trigger", trigger)
	return true
}

func alertKey(year, month int) string {
	return fmt.Sprintf("%04d-%02d/", year, month)
}

// forgetBefore drops alert history for months before year/month. Keys sort
// by month, so a string comparison is enough.
func (w *BudgetWatcher) forgetBefore(year, month int) {
	cutoff := alertKey(year, month)
	w.mu.Lock()
	defer w.mu.Unlock()
	for key := range w.alerted {
		if key < cutoff {
			delete(w.alerted, key)
		}
	}
}

// Run consumes events from source and sweeps every interval until ctx is
// done. A sweep also runs at start.
func (w *BudgetWatcher) Run(ctx context.Context, source EventSource, interval time.Duration) error {
	g, ctx := errgroup.WithContext(ctx)

	if source != nil {
		g.Go(func() error {
			err := source.ConsumeExpenseEvents(ctx, w.HandleExpenseEvent)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		})
	}

	g.Go(func() error {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			if _, err := w.Sweep(ctx); err != nil && ctx.Err() == nil {
				slog.ErrorContext(ctx, "Budget sweep failed", "error", err)
			}
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
			}
		}
	})

	return g.Wait()
}
