package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"pennywise/internal/core"
)

// RecurringStore is what the processor needs from rule persistence.
type RecurringStore interface {
	ListActiveRecurring(ctx context.Context) ([]core.RecurringExpense, error)
	UpdateRecurringLastGenerated(ctx context.Context, id string, at time.Time) error
}

// ExpenseInserter persists a generated expense and returns its id.
type ExpenseInserter interface {
	InsertExpense(ctx context.Context, e core.Expense) (string, error)
}

// RecurringProcessor materializes expenses from recurring rules that are due.
//
// A cycle is not atomic: the expense insert and the last-generated update are
// two separate writes, and concurrent cycles are not excluded here. Callers
// that trigger from more than one place serialize through Scheduler.
type RecurringProcessor struct {
	rules    RecurringStore
	expenses ExpenseInserter
	loc      *time.Location
	clock    func() time.Time
}

// NewRecurringProcessor creates a processor that evaluates rules in loc
// (time.Local when nil).
func NewRecurringProcessor(rules RecurringStore, expenses ExpenseInserter, loc *time.Location) *RecurringProcessor {
	if loc == nil {
		loc = time.Local
	}
	return &RecurringProcessor{
		rules:    rules,
		expenses: expenses,
		loc:      loc,
		clock:    time.Now,
	}
}

// WithClock replaces the clock used by EvaluateNow.
func (p *RecurringProcessor) WithClock(clock func() time.Time) *RecurringProcessor {
	p.clock = clock
	return p
}

// EvaluateNow runs a cycle at the current clock time in the processor's location.
func (p *RecurringProcessor) EvaluateNow(ctx context.Context) (int, error) {
	return p.EvaluateAndGenerate(ctx, p.clock().In(p.loc))
}

// EvaluateAndGenerate creates one expense for every active rule due at now and
// returns how many were created. The first failure aborts the cycle and is
// returned as (0, err); the cycle is safe to retry as a whole.
func (p *RecurringProcessor) EvaluateAndGenerate(ctx context.Context, now time.Time) (generated int, err error) {
	if p.rules == nil || p.expenses == nil {
		return 0, fmt.Errorf("processor not properly initialized")
	}

	ctx, span := tracer.Start(ctx, "recurring.evaluate",
		trace.WithAttributes(attribute.String("recurring.now", now.Format(time.RFC3339))))
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			generated, err = 0, fmt.Errorf("recurring cycle panicked: %v", r)
		}
		recurringDuration.Observe(time.Since(start).Seconds())
		if err != nil {
			recurringRuns.WithLabelValues("error").Inc()
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			slog.ErrorContext(ctx, "Recurring expense cycle failed", "error", err)
		} else {
			recurringRuns.WithLabelValues("ok").Inc()
			span.SetAttributes(attribute.Int("recurring.generated", generated))
			span.SetStatus(codes.Ok, "")
		}
		span.End()
	}()

	rules, err := p.rules.ListActiveRecurring(ctx)
	if err != nil {
		return 0, fmt.Errorf("list active recurring expenses: %w", err)
	}
	if len(rules) == 0 {
		return 0, nil
	}

	slog.DebugContext(ctx, "Evaluating recurring expenses",
		"active", len(rules),
		"now", now.Format(time.RFC3339))

	for _, re := range rules {
		checker, err := GetDuenessChecker(re.Type)
		if err != nil {
			return 0, fmt.Errorf("rule %s: %w", re.ID, err)
		}
		if !checker.IsDue(re, now) {
			continue
		}
		if err := p.generate(ctx, re, now); err != nil {
			return 0, err
		}
		generated++
	}

	if generated > 0 {
		slog.InfoContext(ctx, "Recurring expense cycle complete",
			"generated", generated,
			"checked", len(rules))
	}
	return generated, nil
}

// generate snapshots the rule into a new expense, then stamps the rule.
func (p *RecurringProcessor) generate(ctx context.Context, re core.RecurringExpense, now time.Time) error {
	expense := core.Expense{
		ID:          uuid.NewString(),
		CategoryID:  re.CategoryID,
		Amount:      re.Amount,
		Description: re.Description,
		OccurredAt:  OccurrenceTime(re, now),
		Source:      core.SourceRecurring,
		RecurringID: re.ID,
		CreatedAt:   now,
	}

	id, err := p.expenses.InsertExpense(ctx, expense)
	if err != nil {
		return fmt.Errorf("insert expense for rule %s: %w", re.ID, err)
	}
	if err := p.rules.UpdateRecurringLastGenerated(ctx, re.ID, now); err != nil {
		return fmt.Errorf("update last generated for rule %s: %w", re.ID, err)
	}

	recurringGenerated.WithLabelValues(string(re.Type)).Inc()
	slog.InfoContext(ctx, "Created expense from recurring rule",
		"rule_id", re.ID,
		"expense_id", id,
		"type", re.Type,
		"amount_cents", re.Amount.Cents)
	return nil
}
