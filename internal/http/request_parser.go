// Package http serves the JSON API: calculator keystrokes, categories,
// expenses, recurring rules, manual sync and the monthly overview.
//
// This file holds the request parsing helpers shared by the handlers.
package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"pennywise/internal/core"
)

const maxBodyBytes = 1 << 20

const dateLayout = "2006-01-02"

// errBadRequest marks malformed input that never reached a service.
var errBadRequest = errors.New("bad request")

// decodeJSON reads a single JSON object from the body. Unknown fields are
// rejected so typos in field names surface as 400s.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("%w: invalid JSON body: %v", errBadRequest, err)
	}
	return nil
}

// parseMonthParams extracts year and month from query parameters, defaulting
// to the month containing now.
func parseMonthParams(query url.Values, now time.Time) (int, time.Month, error) {
	year, month := now.Year(), now.Month()

	if v := strings.TrimSpace(query.Get("year")); v != "" {
		y, err := strconv.Atoi(v)
		if err != nil || y < 1 || y > 9999 {
			return 0, 0, fmt.Errorf("%w: year %q", errBadRequest, v)
		}
		year = y
	}
	if v := strings.TrimSpace(query.Get("month")); v != "" {
		m, err := strconv.Atoi(v)
		if err != nil || m < 1 || m > 12 {
			return 0, 0, fmt.Errorf("%w: month %q", errBadRequest, v)
		}
		month = time.Month(m)
	}
	return year, month, nil
}

// parseRange returns the half-open interval selected by the query. Either
// from/to dates (both inclusive, YYYY-MM-DD) or year/month may be given; with
// neither the current month is used.
func parseRange(query url.Values, now time.Time) (time.Time, time.Time, error) {
	fromStr := strings.TrimSpace(query.Get("from"))
	toStr := strings.TrimSpace(query.Get("to"))
	if fromStr == "" && toStr == "" {
		year, month, err := parseMonthParams(query, now)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		from := time.Date(year, month, 1, 0, 0, 0, 0, now.Location())
		return from, from.AddDate(0, 1, 0), nil
	}
	if fromStr == "" || toStr == "" {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: from and to go together", errBadRequest)
	}

	from, err := time.ParseInLocation(dateLayout, fromStr, now.Location())
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: from %q", errBadRequest, fromStr)
	}
	to, err := time.ParseInLocation(dateLayout, toStr, now.Location())
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: to %q", errBadRequest, toStr)
	}
	to = to.AddDate(0, 0, 1)
	if !from.Before(to) {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: from is after to", errBadRequest)
	}
	return from, to, nil
}

// parseOccurredAt accepts RFC 3339 timestamps or plain dates. Plain dates
// are taken as midnight in loc; empty means now.
func parseOccurredAt(s string, now time.Time) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return now, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	t, err := time.ParseInLocation(dateLayout, s, now.Location())
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: occurred_at %q", core.ErrInvalidDate, s)
	}
	return t, nil
}

// parseAmount converts a positive decimal string ("12.34" or "12,34").
func parseAmount(s string) (core.Money, error) {
	cents, err := core.ParseDecimalToCents(s)
	if err != nil {
		return core.Money{}, core.Invalid{Field: "amount", Err: err}
	}
	return core.Money{Cents: cents}, nil
}

// parseBudget is parseAmount that also accepts zero, meaning "no limit".
func parseBudget(s string) (core.Money, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return core.Money{}, nil
	}
	if d, err := decimal.NewFromString(strings.ReplaceAll(s, ",", ".")); err == nil && d.IsZero() {
		return core.Money{}, nil
	}
	cents, err := core.ParseDecimalToCents(s)
	if err != nil {
		return core.Money{}, core.Invalid{Field: "budget_limit", Err: err}
	}
	return core.Money{Cents: cents}, nil
}

// sanitizeInput removes control characters except tab, newline and carriage
// return, and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}
