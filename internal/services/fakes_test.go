package services

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"pennywise/internal/core"
)

// memStore is an in-memory stand-in for the repository used by service tests.
type memStore struct {
	mu         sync.Mutex
	rules      map[string]core.RecurringExpense
	ruleOrder  []string
	expenses   []core.Expense
	categories map[string]core.Category

	listErr   error
	insertErr error
	updateErr error

	listCalls   int
	insertCalls int
}

func newMemStore() *memStore {
	return &memStore{
		rules:      make(map[string]core.RecurringExpense),
		categories: make(map[string]core.Category),
	}
}

func (m *memStore) addRule(re core.RecurringExpense) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rules[re.ID]; !ok {
		m.ruleOrder = append(m.ruleOrder, re.ID)
	}
	m.rules[re.ID] = re
}

func (m *memStore) expenseList() []core.Expense {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]core.Expense(nil), m.expenses...)
}

func (m *memStore) ListActiveRecurring(ctx context.Context) ([]core.RecurringExpense, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listCalls++
	if m.listErr != nil {
		return nil, m.listErr
	}
	var out []core.RecurringExpense
	for _, id := range m.ruleOrder {
		if re, ok := m.rules[id]; ok && re.Active {
			out = append(out, re)
		}
	}
	return out, nil
}

func (m *memStore) UpdateRecurringLastGenerated(ctx context.Context, id string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.updateErr != nil {
		return m.updateErr
	}
	re, ok := m.rules[id]
	if !ok {
		return core.ErrNotFound
	}
	re.LastGeneratedAt = at
	m.rules[id] = re
	return nil
}

func (m *memStore) InsertExpense(ctx context.Context, e core.Expense) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.insertCalls++
	if m.insertErr != nil {
		return "", m.insertErr
	}
	m.expenses = append(m.expenses, e)
	return e.ID, nil
}

func (m *memStore) DeleteExpense(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, e := range m.expenses {
		if e.ID == id {
			m.expenses = append(m.expenses[:i], m.expenses[i+1:]...)
			return nil
		}
	}
	return core.ErrNotFound
}

func (m *memStore) ListExpenses(ctx context.Context, from, to time.Time) ([]core.Expense, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []core.Expense
	for _, e := range m.expenses {
		if !e.OccurredAt.Before(from) && e.OccurredAt.Before(to) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *memStore) InsertRecurring(ctx context.Context, re core.RecurringExpense) error {
	m.addRule(re)
	return nil
}

func (m *memStore) GetRecurring(ctx context.Context, id string) (core.RecurringExpense, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	re, ok := m.rules[id]
	if !ok {
		return core.RecurringExpense{}, core.ErrNotFound
	}
	return re, nil
}

func (m *memStore) UpdateRecurring(ctx context.Context, re core.RecurringExpense) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rules[re.ID]; !ok {
		return core.ErrNotFound
	}
	m.rules[re.ID] = re
	return nil
}

func (m *memStore) SetRecurringActive(ctx context.Context, id string, active bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	re, ok := m.rules[id]
	if !ok {
		return core.ErrNotFound
	}
	re.Active = active
	m.rules[id] = re
	return nil
}

func (m *memStore) DeleteRecurring(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rules[id]; !ok {
		return core.ErrNotFound
	}
	delete(m.rules, id)
	return nil
}

func (m *memStore) ListRecurring(ctx context.Context) ([]core.RecurringExpense, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []core.RecurringExpense
	for _, id := range m.ruleOrder {
		if re, ok := m.rules[id]; ok {
			out = append(out, re)
		}
	}
	return out, nil
}

func (m *memStore) InsertCategory(ctx context.Context, c core.Category) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.categories[c.ID] = c
	return nil
}

func (m *memStore) UpdateCategory(ctx context.Context, c core.Category) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.categories[c.ID]; !ok {
		return core.ErrNotFound
	}
	m.categories[c.ID] = c
	return nil
}

func (m *memStore) GetCategory(ctx context.Context, id string) (core.Category, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.categories[id]
	if !ok {
		return core.Category{}, core.ErrNotFound
	}
	return c, nil
}

func (m *memStore) ListCategories(ctx context.Context) ([]core.Category, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]core.Category, 0, len(m.categories))
	for _, c := range m.categories {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *memStore) SpendByCategory(ctx context.Context, from, to time.Time) (map[string]core.Money, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]core.Money)
	for _, e := range m.expenses {
		if !e.OccurredAt.Before(from) && e.OccurredAt.Before(to) {
			out[e.CategoryID] = out[e.CategoryID].Add(e.Amount)
		}
	}
	return out, nil
}

// recordingPublisher captures published events.
type recordingPublisher struct {
	mu      sync.Mutex
	created []core.Expense
	deleted []string
	err     error
	closed  bool
}

func (p *recordingPublisher) PublishExpenseCreated(ctx context.Context, e core.Expense) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.created = append(p.created, e)
	return nil
}

func (p *recordingPublisher) PublishExpenseDeleted(ctx context.Context, id string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.deleted = append(p.deleted, id)
	return nil
}

func (p *recordingPublisher) Close() error {
	p.closed = true
	return nil
}

var errBoom = errors.New("boom")
