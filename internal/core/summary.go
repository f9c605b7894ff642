package core

import "github.com/shopspring/decimal"

// CategorySummary is one row of the per-category view.
type CategorySummary struct {
	Category string
	Spent    decimal.Decimal
	Limit    *decimal.Decimal // nil when no limit is set
	Status   LimitStatus
	Percent  decimal.Decimal
}

// BudgetSummary is the derived view of a record used by the presentation layer.
type BudgetSummary struct {
	Period     string
	Income     decimal.Decimal
	Total      decimal.Decimal
	Remaining  decimal.Decimal
	Categories []CategorySummary
	Expenses   []ExpenseEntry // display order
}
