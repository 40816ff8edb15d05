package services

import (
	"errors"
	"testing"
	"time"

	"pennywise/internal/core"
)

func rule(t core.RecurrenceType, value int, last time.Time) core.RecurringExpense {
	return core.RecurringExpense{
		ID:              "r1",
		CategoryID:      "cat",
		Amount:          core.Money{Cents: 1000},
		Description:     "rule",
		Type:            t,
		Value:           value,
		Active:          true,
		LastGeneratedAt: last,
	}
}

func at(y int, m time.Month, d, h, min int) time.Time {
	return time.Date(y, m, d, h, min, 0, 0, time.UTC)
}

func TestDailyChecker_IsDue(t *testing.T) {
	checker := DailyChecker{}

	tests := []struct {
		name  string
		value int
		last  time.Time
		now   time.Time
		want  bool
	}{
		{"never generated after target hour", 9, time.Time{}, at(2025, 3, 10, 10, 0), true},
		{"never generated at target hour", 9, time.Time{}, at(2025, 3, 10, 9, 0), true},
		{"before target hour", 9, time.Time{}, at(2025, 3, 10, 8, 59), false},
		{"generated earlier today", 9, at(2025, 3, 10, 10, 0), at(2025, 3, 10, 10, 30), false},
		{"generated yesterday", 9, at(2025, 3, 10, 10, 0), at(2025, 3, 11, 10, 0), true},
		{"generated yesterday but before hour", 9, at(2025, 3, 10, 10, 0), at(2025, 3, 11, 8, 0), false},
		{"same day one year ago", 9, at(2024, 3, 10, 10, 0), at(2025, 3, 10, 10, 0), true},
		{"midnight rule", 0, at(2025, 3, 9, 0, 0), at(2025, 3, 10, 0, 0), true},
		{"stored value out of range never fires", 24, time.Time{}, at(2025, 3, 10, 23, 59), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := checker.IsDue(rule(core.Daily, tt.value, tt.last), tt.now)
			if got != tt.want {
				t.Errorf("DailyChecker.IsDue() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDailyChecker_ComparesInNowLocation(t *testing.T) {
	loc := time.FixedZone("UTC+2", 2*60*60)
	// 23:30 UTC on the 10th is 01:30 on the 11th in loc.
	last := time.Date(2025, 3, 10, 23, 30, 0, 0, time.UTC)
	now := time.Date(2025, 3, 11, 10, 0, 0, 0, loc)

	if (DailyChecker{}).IsDue(rule(core.Daily, 1, last), now) {
		t.Fatalf("expected same local day to suppress generation")
	}
}

func TestWeeklyChecker_IsDue(t *testing.T) {
	checker := WeeklyChecker{}
	// 2025-03-09 is a Sunday, 2025-03-10 a Monday.
	const sunday, monday, thursday = 1, 2, 5

	tests := []struct {
		name  string
		value int
		last  time.Time
		now   time.Time
		want  bool
	}{
		{"never generated on target day", monday, time.Time{}, at(2025, 3, 10, 6, 0), true},
		{"target day before 05:00", monday, time.Time{}, at(2025, 3, 10, 4, 59), false},
		{"target day at 05:00", monday, time.Time{}, at(2025, 3, 10, 5, 0), true},
		{"wrong weekday", monday, time.Time{}, at(2025, 3, 11, 6, 0), false},
		{"generated earlier this week", monday, at(2025, 3, 10, 6, 0), at(2025, 3, 10, 12, 0), false},
		{"generated last week", monday, at(2025, 3, 3, 6, 0), at(2025, 3, 10, 6, 0), true},
		{"sunday starts a new week", sunday, at(2025, 3, 8, 6, 0), at(2025, 3, 9, 6, 0), true},
		{"sunday already generated", sunday, at(2025, 3, 9, 5, 0), at(2025, 3, 9, 20, 0), false},
		{"week spanning new year", thursday, at(2025, 12, 31, 6, 0), at(2026, 1, 1, 6, 0), false},
		{"first week of new year", thursday, at(2025, 12, 25, 6, 0), at(2026, 1, 1, 6, 0), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := checker.IsDue(rule(core.Weekly, tt.value, tt.last), tt.now)
			if got != tt.want {
				t.Errorf("WeeklyChecker.IsDue() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMonthlyChecker_IsDue(t *testing.T) {
	checker := MonthlyChecker{}

	tests := []struct {
		name  string
		value int
		last  time.Time
		now   time.Time
		want  bool
	}{
		{"target day never generated", 15, time.Time{}, at(2025, 3, 15, 10, 0), true},
		{"target day before 05:00", 15, time.Time{}, at(2025, 3, 15, 4, 0), false},
		{"other day", 15, time.Time{}, at(2025, 3, 16, 10, 0), false},
		{"generated this month", 15, at(2025, 3, 15, 5, 0), at(2025, 3, 15, 10, 0), false},
		{"generated last month", 15, at(2025, 2, 15, 5, 0), at(2025, 3, 15, 10, 0), true},
		{"generated same month last year", 15, at(2024, 3, 15, 5, 0), at(2025, 3, 15, 10, 0), true},
		{"31 clamps to last day of 30-day month", 31, time.Time{}, at(2025, 4, 30, 10, 0), true},
		{"31 not due on day 29 of 30-day month", 31, time.Time{}, at(2025, 4, 29, 10, 0), false},
		{"31 in leap february", 31, time.Time{}, at(2024, 2, 29, 10, 0), true},
		{"31 not on 28 in leap february", 31, time.Time{}, at(2024, 2, 28, 10, 0), false},
		{"30 clamps in february", 30, time.Time{}, at(2025, 2, 28, 10, 0), true},
		{"31 in 31-day month only on 31", 31, time.Time{}, at(2025, 3, 30, 10, 0), false},
		{"31 in 31-day month", 31, time.Time{}, at(2025, 3, 31, 10, 0), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := checker.IsDue(rule(core.Monthly, tt.value, tt.last), tt.now)
			if got != tt.want {
				t.Errorf("MonthlyChecker.IsDue() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestGetDuenessChecker(t *testing.T) {
	tests := []struct {
		typ     core.RecurrenceType
		want    DuenessChecker
		wantErr bool
	}{
		{core.Daily, DailyChecker{}, false},
		{core.Weekly, WeeklyChecker{}, false},
		{core.Monthly, MonthlyChecker{}, false},
		{core.RecurrenceType("YEARLY"), nil, true},
	}

	for _, tt := range tests {
		t.Run(string(tt.typ), func(t *testing.T) {
			got, err := GetDuenessChecker(tt.typ)
			if tt.wantErr {
				if !errors.Is(err, core.ErrInvalidRecurrence) {
					t.Fatalf("expected ErrInvalidRecurrence, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("GetDuenessChecker(%s) = %T, want %T", tt.typ, got, tt.want)
			}
		})
	}
}

type alwaysDue struct{}

func (alwaysDue) IsDue(core.RecurringExpense, time.Time) bool { return true }

func TestRegisterDuenessChecker(t *testing.T) {
	custom := core.RecurrenceType("ALWAYS")
	RegisterDuenessChecker(custom, alwaysDue{})
	t.Cleanup(func() { delete(duenessStrategies, custom) })

	checker, err := GetDuenessChecker(custom)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !checker.IsDue(core.RecurringExpense{}, time.Now()) {
		t.Fatalf("custom checker not used")
	}
}

func TestOccurrenceTime(t *testing.T) {
	now := time.Date(2025, 3, 10, 10, 37, 12, 500, time.UTC)

	tests := []struct {
		typ   core.RecurrenceType
		value int
		want  time.Time
	}{
		{core.Daily, 9, time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)},
		{core.Weekly, 2, time.Date(2025, 3, 10, 5, 0, 0, 0, time.UTC)},
		{core.Monthly, 10, time.Date(2025, 3, 10, 5, 0, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		t.Run(string(tt.typ), func(t *testing.T) {
			got := OccurrenceTime(rule(tt.typ, tt.value, time.Time{}), now)
			if !got.Equal(tt.want) {
				t.Errorf("OccurrenceTime() = %v, want %v", got, tt.want)
			}
		})
	}
}
