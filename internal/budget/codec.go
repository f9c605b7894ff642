package budget

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"bilancio/internal/core"
	"bilancio/internal/period"
)

// storedRecord is the JSON shape kept under the storage key. Pointers tell
// missing fields apart from zero values.
type storedRecord struct {
	Period   *string                `json:"period"`
	Income   *json.Number           `json:"income"`
	Expenses []storedExpense        `json:"expenses"`
	Limits   map[string]json.Number `json:"limits"`
}

type storedExpense struct {
	ID       string      `json:"id"`
	Date     string      `json:"date"`
	Category string      `json:"category"`
	Amount   json.Number `json:"amount"`
	Note     string      `json:"note"`
}

// Encode serializes r. Map keys are sorted, so equal records encode to
// identical bytes.
func Encode(r core.BudgetRecord) (string, error) {
	income := json.Number(r.Income.String())
	p := r.Period
	out := storedRecord{
		Period:   &p,
		Income:   &income,
		Expenses: make([]storedExpense, 0, len(r.Expenses)),
		Limits:   make(map[string]json.Number, len(r.Limits)),
	}
	for _, e := range r.Expenses {
		out.Expenses = append(out.Expenses, storedExpense{
			ID:       e.ID,
			Date:     e.Date,
			Category: e.Category,
			Amount:   json.Number(e.Amount.String()),
			Note:     e.Note,
		})
	}
	for c, l := range r.Limits {
		out.Limits[c] = json.Number(l.String())
	}
	b, err := json.Marshal(out)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Decode parses and validates a stored record. Any structural or value
// problem is reported as core.ErrMalformedStoredData.
func Decode(raw string) (core.BudgetRecord, error) {
	var in storedRecord
	if err := json.Unmarshal([]byte(raw), &in); err != nil {
		return core.BudgetRecord{}, malformed("%v", err)
	}

	if in.Period == nil || !period.ValidPeriod(*in.Period) {
		return core.BudgetRecord{}, malformed("missing or invalid period")
	}
	rec := core.NewRecord(*in.Period)

	if in.Income == nil {
		return core.BudgetRecord{}, malformed("missing income")
	}
	income, err := decimal.NewFromString(in.Income.String())
	if err != nil || income.IsNegative() {
		return core.BudgetRecord{}, malformed("invalid income %q", in.Income.String())
	}
	rec.Income = income

	seen := make(map[string]struct{}, len(in.Expenses))
	for i, e := range in.Expenses {
		if e.ID == "" {
			return core.BudgetRecord{}, malformed("expense %d: missing id", i)
		}
		if _, dup := seen[e.ID]; dup {
			return core.BudgetRecord{}, malformed("expense %d: duplicate id %q", i, e.ID)
		}
		seen[e.ID] = struct{}{}
		if !period.ValidDate(e.Date) {
			return core.BudgetRecord{}, malformed("expense %s: invalid date %q", e.ID, e.Date)
		}
		if e.Category == "" || strings.TrimSpace(e.Category) != e.Category {
			return core.BudgetRecord{}, malformed("expense %s: invalid category %q", e.ID, e.Category)
		}
		amount, err := decimal.NewFromString(e.Amount.String())
		if err != nil || !amount.IsPositive() {
			return core.BudgetRecord{}, malformed("expense %s: invalid amount %q", e.ID, e.Amount.String())
		}
		rec.Expenses = append(rec.Expenses, core.ExpenseEntry{
			ID:       e.ID,
			Date:     e.Date,
			Category: e.Category,
			Amount:   amount,
			Note:     e.Note,
		})
	}

	for c, l := range in.Limits {
		if c == "" || strings.TrimSpace(c) != c {
			return core.BudgetRecord{}, malformed("invalid limit category %q", c)
		}
		limit, err := decimal.NewFromString(l.String())
		if err != nil || limit.IsNegative() {
			return core.BudgetRecord{}, malformed("limit %s: invalid amount %q", c, l.String())
		}
		rec.Limits[c] = limit
	}

	return rec, nil
}

func malformed(format string, args ...any) error {
	return fmt.Errorf("%w: %s", core.ErrMalformedStoredData, fmt.Sprintf(format, args...))
}
