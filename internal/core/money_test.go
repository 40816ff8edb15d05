package core

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func TestParseDecimalToCents(t *testing.T) {
	cases := []struct {
		in  string
		out int64
		ok  bool
	}{
		{"1", 100, true},
		{"1.0", 100, true},
		{"1.23", 123, true},
		{"1,23", 123, true},
		{"0.01", 1, true},
		{".5", 50, true},
		{"3.", 300, true},
		{"1.005", 101, true}, // half-up rounding
		{"12.344", 1234, true},
		{" 2.50 ", 250, true},
		{"-1", 0, false},
		{"+1", 0, false},
		{"1e3", 0, false},
		{"0", 0, false},
		{"0.004", 0, false},
		{"abc", 0, false},
		{"1.2.3", 0, false},
		{"", 0, false},
	}
	for _, tc := range cases {
		got, err := ParseDecimalToCents(tc.in)
		if tc.ok {
			if err != nil || got != tc.out {
				t.Fatalf("%q expected %d, got %d (err=%v)", tc.in, tc.out, got, err)
			}
		} else {
			if !errors.Is(err, ErrInvalidAmount) {
				t.Fatalf("%q expected ErrInvalidAmount, got %v", tc.in, err)
			}
		}
	}
}

func TestMoneyFromFloat(t *testing.T) {
	m, err := MoneyFromFloat(0.1 + 0.2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.Cents != 30 {
		t.Fatalf("expected 30 cents, got %d", m.Cents)
	}

	if _, err := MoneyFromFloat(-5); err == nil {
		t.Fatalf("expected error for negative amount")
	}
}

func TestMoneyStringAndDecimal(t *testing.T) {
	m := Money{Cents: 1230}
	if got := m.String(); got != "12.30" {
		t.Fatalf("String() = %q, want 12.30", got)
	}
	if !m.Decimal().Equal(decimal.RequireFromString("12.3")) {
		t.Fatalf("Decimal() = %s, want 12.3", m.Decimal())
	}
	if got := m.Add(Money{Cents: 70}).Sub(Money{Cents: 300}); got.Cents != 1000 {
		t.Fatalf("Add/Sub = %d, want 1000", got.Cents)
	}
}
