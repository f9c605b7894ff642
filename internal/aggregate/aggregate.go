// Package aggregate derives read-only views from a budget record.
//
// Every function here is pure: the result depends only on the record passed
// in, never on the clock or on package state, so the same snapshot always
// yields the same view.
package aggregate

import (
	"sort"

	"github.com/shopspring/decimal"

	"bilancio/internal/core"
)

var (
	nearRatio = decimal.RequireFromString("0.9")
	hundred   = decimal.NewFromInt(100)
)

// SpentByCategory sums expense amounts per category. Categories without
// expenses are absent from the result.
func SpentByCategory(r core.BudgetRecord) map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal)
	for _, e := range r.Expenses {
		out[e.Category] = out[e.Category].Add(e.Amount)
	}
	return out
}

// TotalExpenses is the sum of all expense amounts, zero for none.
func TotalExpenses(r core.BudgetRecord) decimal.Decimal {
	total := decimal.Zero
	for _, e := range r.Expenses {
		total = total.Add(e.Amount)
	}
	return total
}

// RemainingBalance is income minus total expenses. It may be negative.
func RemainingBalance(r core.BudgetRecord) decimal.Decimal {
	return r.Income.Sub(TotalExpenses(r))
}

// AllCategories returns the sorted union of limited and spent-on categories.
func AllCategories(r core.BudgetRecord) []string {
	set := make(map[string]struct{}, len(r.Limits))
	for c := range r.Limits {
		set[c] = struct{}{}
	}
	for _, e := range r.Expenses {
		set[e.Category] = struct{}{}
	}
	out := make([]string, 0, len(set))
	for c := range set {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

// Classify compares spent against an optional limit.
//
//	no limit                     -> NoLimit
//	spent > limit                -> Over
//	0.9*limit < spent <= limit   -> Near
//	otherwise                    -> Ok
func Classify(limit *decimal.Decimal, spent decimal.Decimal) core.LimitStatus {
	if limit == nil {
		return core.NoLimit
	}
	if spent.GreaterThan(*limit) {
		return core.Over
	}
	if spent.GreaterThan(limit.Mul(nearRatio)) {
		return core.Near
	}
	return core.Ok
}

// LimitStatus classifies what has been spent so far in category.
func LimitStatus(r core.BudgetRecord, category string) core.LimitStatus {
	return ProjectedLimitStatus(r, category, decimal.Zero)
}

// ProjectedLimitStatus classifies category as if additional were spent on top
// of the current total. Used to warn before committing an expense.
func ProjectedLimitStatus(r core.BudgetRecord, category string, additional decimal.Decimal) core.LimitStatus {
	limit, ok := r.Limit(category)
	if !ok {
		return core.NoLimit
	}
	return Classify(&limit, spentOn(r, category).Add(additional))
}

// CategoryProgressPercent is how much of the limit has been used, capped at 100.
// Without a limit it is 0 when nothing was spent and 100 otherwise; a zero
// limit with any spend is also 100.
func CategoryProgressPercent(limit *decimal.Decimal, spent decimal.Decimal) decimal.Decimal {
	if limit == nil || limit.IsZero() {
		if spent.IsPositive() {
			return hundred
		}
		return decimal.Zero
	}
	return decimal.Min(spent.Mul(hundred).Div(*limit), hundred)
}

// SortedExpenses returns the entries in display order: newest date first,
// insertion order among entries with the same date.
func SortedExpenses(r core.BudgetRecord) []core.ExpenseEntry {
	out := make([]core.ExpenseEntry, len(r.Expenses))
	copy(out, r.Expenses)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Date > out[j].Date
	})
	return out
}

// Summarize builds the full derived view of r.
func Summarize(r core.BudgetRecord) core.BudgetSummary {
	spent := SpentByCategory(r)
	total := TotalExpenses(r)

	cats := AllCategories(r)
	rows := make([]core.CategorySummary, 0, len(cats))
	for _, c := range cats {
		row := core.CategorySummary{Category: c, Spent: spent[c]}
		if l, ok := r.Limit(c); ok {
			row.Limit = &l
		}
		row.Status = Classify(row.Limit, row.Spent)
		row.Percent = CategoryProgressPercent(row.Limit, row.Spent)
		rows = append(rows, row)
	}

	return core.BudgetSummary{
		Period:     r.Period,
		Income:     r.Income,
		Total:      total,
		Remaining:  r.Income.Sub(total),
		Categories: rows,
		Expenses:   SortedExpenses(r),
	}
}

func spentOn(r core.BudgetRecord, category string) decimal.Decimal {
	total := decimal.Zero
	for _, e := range r.Expenses {
		if e.Category == category {
			total = total.Add(e.Amount)
		}
	}
	return total
}
