package core

import (
	"errors"
	"math"
	"testing"

	"github.com/shopspring/decimal"
)

func TestPositiveAmount(t *testing.T) {
	cases := []struct {
		in float64
		ok bool
	}{
		{0.01, true},
		{1000, true},
		{0, false},
		{-5, false},
		{math.NaN(), false},
		{math.Inf(1), false},
		{math.Inf(-1), false},
	}
	for i, tc := range cases {
		d, err := PositiveAmount(tc.in)
		if tc.ok {
			if err != nil || !d.Equal(decimal.NewFromFloat(tc.in)) {
				t.Fatalf("case %d expected %v, got %v (err=%v)", i, tc.in, d, err)
			}
			continue
		}
		if !errors.Is(err, ErrInvalidAmount) {
			t.Fatalf("case %d expected ErrInvalidAmount, got %v", i, err)
		}
	}
}

func TestLimitAmountAcceptsZero(t *testing.T) {
	if d, err := LimitAmount(0); err != nil || !d.IsZero() {
		t.Fatalf("expected zero limit to be valid, got %v (err=%v)", d, err)
	}
	for _, v := range []float64{-0.01, math.NaN(), math.Inf(1)} {
		if _, err := LimitAmount(v); !errors.Is(err, ErrInvalidAmount) {
			t.Fatalf("%v expected ErrInvalidAmount, got %v", v, err)
		}
	}
}

func TestNormalizeCategory(t *testing.T) {
	got, err := NormalizeCategory("  Food \t")
	if err != nil || got != "Food" {
		t.Fatalf("expected Food, got %q (err=%v)", got, err)
	}
	for _, in := range []string{"", "   ", "\n\t"} {
		if _, err := NormalizeCategory(in); !errors.Is(err, ErrInvalidCategory) {
			t.Fatalf("%q expected ErrInvalidCategory, got %v", in, err)
		}
	}
}

func TestCloneIsDeep(t *testing.T) {
	r := NewRecord("2024-02")
	r.Expenses = append(r.Expenses, ExpenseEntry{ID: "a", Category: "Food", Amount: decimal.NewFromInt(3)})
	r.Limits["Food"] = decimal.NewFromInt(10)

	c := r.Clone()
	c.Expenses[0].Category = "Rent"
	c.Limits["Food"] = decimal.NewFromInt(99)
	c.Limits["Fun"] = decimal.NewFromInt(1)

	if r.Expenses[0].Category != "Food" {
		t.Fatalf("clone shares expenses backing array")
	}
	if !r.Limits["Food"].Equal(decimal.NewFromInt(10)) || len(r.Limits) != 1 {
		t.Fatalf("clone shares limits map: %v", r.Limits)
	}
}

func TestHasExpenseAndLimit(t *testing.T) {
	r := NewRecord("2024-02")
	r.Expenses = append(r.Expenses, ExpenseEntry{ID: "x1"})
	if !r.HasExpense("x1") || r.HasExpense("x2") {
		t.Fatalf("HasExpense mismatch")
	}
	if _, ok := r.Limit("Food"); ok {
		t.Fatalf("expected no limit")
	}
	r.Limits["Food"] = decimal.Zero
	if l, ok := r.Limit("Food"); !ok || !l.IsZero() {
		t.Fatalf("expected zero limit to be present")
	}
}

func TestLimitStatusWarns(t *testing.T) {
	for s, want := range map[LimitStatus]bool{NoLimit: false, Ok: false, Near: true, Over: true} {
		if s.Warns() != want {
			t.Fatalf("%s.Warns() = %v, want %v", s, s.Warns(), want)
		}
	}
}
