package core

import "github.com/shopspring/decimal"

const (
	OpIncomeAdded    ChangeOp = "income_added"
	OpExpenseAdded   ChangeOp = "expense_added"
	OpExpenseDeleted ChangeOp = "expense_deleted"
	OpLimitSet       ChangeOp = "limit_set"
	OpReset          ChangeOp = "reset"
	OpRollover       ChangeOp = "rollover"
)

// ChangeOp names a committed mutation of the budget record.
type ChangeOp string

// Change describes one committed mutation. Fields that don't apply to Op are zero.
type Change struct {
	Op        ChangeOp
	Period    string
	Category  string
	ExpenseID string
	Amount    decimal.Decimal
	Status    LimitStatus
}
