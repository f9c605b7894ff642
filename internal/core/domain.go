package core

import (
	"errors"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

const (
	NoLimit LimitStatus = "no_limit"
	Ok      LimitStatus = "ok"
	Near    LimitStatus = "near"
	Over    LimitStatus = "over"
)

type (
	// LimitStatus classifies how close a category is to its spending limit.
	LimitStatus string

	ExpenseEntry struct {
		ID       string
		Date     string // YYYY-MM-DD
		Category string
		Amount   decimal.Decimal
		Note     string
	}

	// BudgetRecord is the whole state of one calendar month.
	BudgetRecord struct {
		Period   string // YYYY-MM
		Income   decimal.Decimal
		Expenses []ExpenseEntry
		Limits   map[string]decimal.Decimal
	}
)

var (
	ErrInvalidAmount       = errors.New("invalid amount")
	ErrInvalidCategory     = errors.New("invalid category")
	ErrPersistence         = errors.New("persistence failure")
	ErrMalformedStoredData = errors.New("malformed stored data")
	ErrIDCollision         = errors.New("could not generate a unique expense id")
)

// NewRecord returns an empty record for period.
func NewRecord(period string) BudgetRecord {
	return BudgetRecord{
		Period:   period,
		Income:   decimal.Zero,
		Expenses: []ExpenseEntry{},
		Limits:   map[string]decimal.Decimal{},
	}
}

// Clone returns a deep copy so callers can't mutate the store's record.
func (r BudgetRecord) Clone() BudgetRecord {
	out := BudgetRecord{
		Period:   r.Period,
		Income:   r.Income,
		Expenses: make([]ExpenseEntry, len(r.Expenses)),
		Limits:   make(map[string]decimal.Decimal, len(r.Limits)),
	}
	copy(out.Expenses, r.Expenses)
	for k, v := range r.Limits {
		out.Limits[k] = v
	}
	return out
}

// HasExpense reports whether an entry with id is present.
func (r BudgetRecord) HasExpense(id string) bool {
	for _, e := range r.Expenses {
		if e.ID == id {
			return true
		}
	}
	return false
}

// Limit returns the limit set for category, if any.
func (r BudgetRecord) Limit(category string) (decimal.Decimal, bool) {
	l, ok := r.Limits[category]
	return l, ok
}

func (s LimitStatus) String() string {
	return string(s)
}

// Warns reports whether the status deserves a user warning.
func (s LimitStatus) Warns() bool {
	return s == Near || s == Over
}

// PositiveAmount converts v to a decimal, rejecting non-finite and non-positive input.
func PositiveAmount(v float64) (decimal.Decimal, error) {
	if math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
		return decimal.Zero, ErrInvalidAmount
	}
	return decimal.NewFromFloat(v), nil
}

// LimitAmount is like PositiveAmount but accepts zero.
func LimitAmount(v float64) (decimal.Decimal, error) {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return decimal.Zero, ErrInvalidAmount
	}
	return decimal.NewFromFloat(v), nil
}

// NormalizeCategory trims the category name; blank names are rejected.
func NormalizeCategory(category string) (string, error) {
	c := strings.TrimSpace(category)
	if c == "" {
		return "", ErrInvalidCategory
	}
	return c, nil
}
