package core

// CategorySpend compares what was spent in a category with its budget.
type CategorySpend struct {
	CategoryID string
	Name       string
	Spent      Money
	Budget     Money
}

// Remaining is negative when the category is over budget.
func (c CategorySpend) Remaining() Money { return c.Budget.Sub(c.Spent) }

// OverBudget is false for categories without a limit.
func (c CategorySpend) OverBudget() bool {
	return c.Budget.Cents > 0 && c.Spent.Cents > c.Budget.Cents
}

// MonthOverview is a compact summary for a specific year+month.
type MonthOverview struct {
	Year       int
	Month      int // 1-12
	Total      Money
	Budget     Money
	ByCategory []CategorySpend
}

// BuildOverview folds per-category spend into a MonthOverview. Categories with
// no expenses are still listed so their budget shows up.
func BuildOverview(year, month int, cats []Category, spent map[string]Money) MonthOverview {
	ov := MonthOverview{Year: year, Month: month}
	for _, c := range cats {
		s := spent[c.ID]
		ov.ByCategory = append(ov.ByCategory, CategorySpend{
			CategoryID: c.ID,
			Name:       c.Name,
			Spent:      s,
			Budget:     c.BudgetLimit,
		})
		ov.Total = ov.Total.Add(s)
		ov.Budget = ov.Budget.Add(c.BudgetLimit)
	}
	return ov
}
