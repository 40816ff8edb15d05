// Package services provides business logic and orchestration services.
//
// This file implements the Strategy Pattern for recurring expense dueness checking.
// Each recurrence type (daily, weekly, monthly) has its own strategy that
// decides whether a rule owes an occurrence at a given instant.

package services

import (
	"fmt"
	"time"

	"pennywise/internal/core"
)

// generationHour is the earliest hour at which weekly and monthly rules fire,
// and the time of day stamped on the expenses they generate.
const generationHour = 5

// DuenessChecker is the strategy interface for checking if a recurring expense is due.
// Implementations are pure: they look only at the rule and now, and every calendar
// comparison happens in now's location.
type DuenessChecker interface {
	IsDue(rule core.RecurringExpense, now time.Time) bool
}

// DailyChecker fires once per calendar day, from the rule's target hour on.
type DailyChecker struct{}

func (DailyChecker) IsDue(rule core.RecurringExpense, now time.Time) bool {
	if now.Hour() < rule.Value {
		return false
	}
	if rule.NeverGenerated() {
		return true
	}
	return !sameDay(rule.LastGeneratedAt.In(now.Location()), now)
}

// WeeklyChecker fires on the rule's weekday (1 = Sunday) from 05:00, once per
// calendar week. Weeks start on Sunday.
type WeeklyChecker struct{}

func (WeeklyChecker) IsDue(rule core.RecurringExpense, now time.Time) bool {
	if weekdayNumber(now) != rule.Value || now.Hour() < generationHour {
		return false
	}
	if rule.NeverGenerated() {
		return true
	}
	return !weekStart(rule.LastGeneratedAt.In(now.Location())).Equal(weekStart(now))
}

// MonthlyChecker fires on the rule's day of month from 05:00, once per calendar
// month. A target day past the end of a short month fires on its last day.
type MonthlyChecker struct{}

func (MonthlyChecker) IsDue(rule core.RecurringExpense, now time.Time) bool {
	last := daysIn(now.Year(), now.Month(), now.Location())
	onDay := now.Day() == rule.Value || (rule.Value > last && now.Day() == last)
	if !onDay || now.Hour() < generationHour {
		return false
	}
	if rule.NeverGenerated() {
		return true
	}
	prev := rule.LastGeneratedAt.In(now.Location())
	return prev.Year() != now.Year() || prev.Month() != now.Month()
}

// duenessStrategies maps recurrence types to their corresponding checkers.
var duenessStrategies = map[core.RecurrenceType]DuenessChecker{
	core.Daily:   DailyChecker{},
	core.Weekly:  WeeklyChecker{},
	core.Monthly: MonthlyChecker{},
}

// GetDuenessChecker returns the appropriate dueness checker for a recurrence type.
// Returns an error if the type is not supported.
func GetDuenessChecker(t core.RecurrenceType) (DuenessChecker, error) {
	checker, ok := duenessStrategies[t]
	if !ok {
		return nil, fmt.Errorf("%w: %s", core.ErrInvalidRecurrence, t)
	}
	return checker, nil
}

// RegisterDuenessChecker registers or replaces the checker for a recurrence type.
// It is not safe to call concurrently with GetDuenessChecker; register at init.
func RegisterDuenessChecker(t core.RecurrenceType, checker DuenessChecker) {
	duenessStrategies[t] = checker
}

// OccurrenceTime is the timestamp given to an expense generated at now: now's
// date at the rule's target hour for DAILY rules, 05:00 otherwise.
func OccurrenceTime(rule core.RecurringExpense, now time.Time) time.Time {
	hour := generationHour
	if rule.Type == core.Daily {
		hour = rule.Value
	}
	return time.Date(now.Year(), now.Month(), now.Day(), hour, 0, 0, 0, now.Location())
}

func sameDay(a, b time.Time) bool {
	return a.Year() == b.Year() && a.YearDay() == b.YearDay()
}

// weekdayNumber maps time.Weekday to 1 = Sunday ... 7 = Saturday.
func weekdayNumber(t time.Time) int {
	return int(t.Weekday()) + 1
}

func weekStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day()-int(t.Weekday()), 0, 0, 0, 0, t.Location())
}

func daysIn(year int, month time.Month, loc *time.Location) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, loc).Day()
}
