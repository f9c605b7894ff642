package amqp

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"

	"bilancio/internal/core"
)

// BudgetChangeMessage describes a committed change to the budget record.
// Amount is the amount involved in the change (income added, expense amount,
// new limit) and is zero for resets and rollovers.
type BudgetChangeMessage struct {
	Op        core.ChangeOp    `json:"op"`
	Period    string           `json:"period"`
	Category  string           `json:"category,omitempty"`
	ExpenseID string           `json:"expense_id,omitempty"`
	Amount    decimal.Decimal  `json:"amount"`
	Status    core.LimitStatus `json:"status,omitempty"`
	Timestamp time.Time        `json:"timestamp"`
}

// NewBudgetChangeMessage builds a message for change stamped with the current time.
func NewBudgetChangeMessage(change core.Change) *BudgetChangeMessage {
	return &BudgetChangeMessage{
		Op:        change.Op,
		Period:    change.Period,
		Category:  change.Category,
		ExpenseID: change.ExpenseID,
		Amount:    change.Amount,
		Status:    change.Status,
		Timestamp: time.Now().UTC(),
	}
}

// Warns reports whether the change left its category near or over the limit.
func (m *BudgetChangeMessage) Warns() bool {
	return m.Status.Warns()
}

func (m *BudgetChangeMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func BudgetChangeMessageFromJSON(data []byte) (*BudgetChangeMessage, error) {
	var msg BudgetChangeMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
