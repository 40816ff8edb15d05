// Package memory is a process-local store with the same contract as the
// SQLite repository. Data is lost on restart.
package memory

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"pennywise/internal/core"
)

type Store struct {
	mu        sync.Mutex
	cats      map[string]core.Category
	expenses  map[string]core.Expense
	rules     map[string]core.RecurringExpense
	ruleOrder []string
}

func New(cats ...core.Category) *Store {
	s := &Store{
		cats:     make(map[string]core.Category),
		expenses: make(map[string]core.Expense),
		rules:    make(map[string]core.RecurringExpense),
	}
	for _, c := range cats {
		s.cats[c.ID] = c
	}
	return s
}

// NewFromFiles seeds categories from base/seed_categories.txt. Each line is
// a name, optionally followed by "=" and a monthly budget ("Food=300.00").
func NewFromFiles(base string) *Store {
	lines := readLines(filepath.Join(base, "seed_categories.txt"))
	if len(lines) == 0 {
		lines = []string{"Home", "Food", "Transport"}
	}
	now := time.Now()
	var cats []core.Category
	for _, line := range lines {
		name, budget, _ := strings.Cut(line, "=")
		c := core.Category{ID: uuid.NewString(), Name: strings.TrimSpace(name), CreatedAt: now}
		if cents, err := core.ParseDecimalToCents(budget); err == nil {
			c.BudgetLimit = core.Money{Cents: cents}
		}
		cats = append(cats, c)
	}
	return New(cats...)
}

func (s *Store) Close() error { return nil }

func (s *Store) Ping(context.Context) error { return nil }

// --- categories ---

func (s *Store) InsertCategory(_ context.Context, c core.Category) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.cats[c.ID]; ok {
		return fmt.Errorf("create category %s: %w", c.ID, core.ErrConflict)
	}
	for _, existing := range s.cats {
		if strings.EqualFold(existing.Name, c.Name) {
			return fmt.Errorf("category name %q: %w", c.Name, core.ErrConflict)
		}
	}
	s.cats[c.ID] = c
	return nil
}

func (s *Store) UpdateCategory(_ context.Context, c core.Category) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.cats[c.ID]; !ok {
		return fmt.Errorf("update category: %w", core.ErrNotFound)
	}
	for id, existing := range s.cats {
		if id != c.ID && strings.EqualFold(existing.Name, c.Name) {
			return fmt.Errorf("category name %q: %w", c.Name, core.ErrConflict)
		}
	}
	s.cats[c.ID] = c
	return nil
}

func (s *Store) GetCategory(_ context.Context, id string) (core.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.cats[id]
	if !ok {
		return core.Category{}, fmt.Errorf("get category: %w", core.ErrNotFound)
	}
	return c, nil
}

func (s *Store) ListCategories(_ context.Context) ([]core.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Category, 0, len(s.cats))
	for _, c := range s.cats {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *Store) SpendByCategory(_ context.Context, from, to time.Time) (map[string]core.Money, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]core.Money)
	for _, e := range s.expenses {
		if inRange(e.OccurredAt, from, to) {
			out[e.CategoryID] = out[e.CategoryID].Add(e.Amount)
		}
	}
	return out, nil
}

// --- expenses ---

func (s *Store) InsertExpense(_ context.Context, e core.Expense) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.cats[e.CategoryID]; !ok {
		return "", fmt.Errorf("create expense: category %s: %w", e.CategoryID, core.ErrNotFound)
	}
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	s.expenses[e.ID] = e
	return e.ID, nil
}

func (s *Store) GetExpense(_ context.Context, id string) (core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.expenses[id]
	if !ok {
		return core.Expense{}, fmt.Errorf("get expense: %w", core.ErrNotFound)
	}
	return e, nil
}

func (s *Store) DeleteExpense(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.expenses[id]; !ok {
		return fmt.Errorf("delete expense: %w", core.ErrNotFound)
	}
	delete(s.expenses, id)
	return nil
}

// ListExpenses returns expenses in [from, to), newest first.
func (s *Store) ListExpenses(_ context.Context, from, to time.Time) ([]core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Expense
	for _, e := range s.expenses {
		if inRange(e.OccurredAt, from, to) {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].OccurredAt.Equal(out[j].OccurredAt) {
			return out[i].OccurredAt.After(out[j].OccurredAt)
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// --- recurring expenses ---

func (s *Store) InsertRecurring(_ context.Context, re core.RecurringExpense) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.cats[re.CategoryID]; !ok {
		return fmt.Errorf("create recurring expense: category %s: %w", re.CategoryID, core.ErrNotFound)
	}
	if _, ok := s.rules[re.ID]; ok {
		return fmt.Errorf("create recurring expense %s: %w", re.ID, core.ErrConflict)
	}
	s.rules[re.ID] = re
	s.ruleOrder = append(s.ruleOrder, re.ID)
	return nil
}

func (s *Store) GetRecurring(_ context.Context, id string) (core.RecurringExpense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	re, ok := s.rules[id]
	if !ok {
		return core.RecurringExpense{}, fmt.Errorf("get recurring expense: %w", core.ErrNotFound)
	}
	return re, nil
}

// UpdateRecurring leaves LastGeneratedAt alone, like the SQLite repository.
func (s *Store) UpdateRecurring(_ context.Context, re core.RecurringExpense) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.rules[re.ID]
	if !ok {
		return fmt.Errorf("update recurring expense: %w", core.ErrNotFound)
	}
	re.LastGeneratedAt = existing.LastGeneratedAt
	re.CreatedAt = existing.CreatedAt
	s.rules[re.ID] = re
	return nil
}

func (s *Store) SetRecurringActive(_ context.Context, id string, active bool) error {
	return s.mutateRule(id, func(re *core.RecurringExpense) { re.Active = active })
}

func (s *Store) UpdateRecurringLastGenerated(_ context.Context, id string, at time.Time) error {
	return s.mutateRule(id, func(re *core.RecurringExpense) { re.LastGeneratedAt = at })
}

func (s *Store) DeleteRecurring(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rules[id]; !ok {
		return fmt.Errorf("delete recurring expense: %w", core.ErrNotFound)
	}
	delete(s.rules, id)
	for i, rid := range s.ruleOrder {
		if rid == id {
			s.ruleOrder = append(s.ruleOrder[:i], s.ruleOrder[i+1:]...)
			break
		}
	}
	return nil
}

func (s *Store) ListRecurring(_ context.Context) ([]core.RecurringExpense, error) {
	return s.listRules(func(core.RecurringExpense) bool { return true }), nil
}

func (s *Store) ListActiveRecurring(_ context.Context) ([]core.RecurringExpense, error) {
	return s.listRules(func(re core.RecurringExpense) bool { return re.Active }), nil
}

func (s *Store) listRules(keep func(core.RecurringExpense) bool) []core.RecurringExpense {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.RecurringExpense, 0, len(s.ruleOrder))
	for _, id := range s.ruleOrder {
		if re := s.rules[id]; keep(re) {
			out = append(out, re)
		}
	}
	return out
}

func (s *Store) mutateRule(id string, fn func(*core.RecurringExpense)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	re, ok := s.rules[id]
	if !ok {
		return fmt.Errorf("recurring expense %s: %w", id, core.ErrNotFound)
	}
	fn(&re)
	s.rules[id] = re
	return nil
}

func inRange(t, from, to time.Time) bool {
	return !t.Before(from) && t.Before(to)
}

func readLines(path string) []string {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()
	var out []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	return dedupe(out)
}

// dedupe drops repeated names, keeping the first line for each.
func dedupe(in []string) []string {
	seen := map[string]struct{}{}
	out := make([]string, 0, len(in))
	for _, v := range in {
		name, _, _ := strings.Cut(v, "=")
		key := strings.ToLower(strings.TrimSpace(name))
		if key == "" {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, v)
	}
	return out
}
