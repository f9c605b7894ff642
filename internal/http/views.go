package http

import (
	"encoding/json"

	"github.com/shopspring/decimal"

	"bilancio/internal/aggregate"
	"bilancio/internal/core"
)

// Views are what the API returns. Amounts are JSON numbers written from
// their exact decimal form.

type budgetView struct {
	Period     string         `json:"period"`
	Income     json.Number    `json:"income"`
	Total      json.Number    `json:"total"`
	Remaining  json.Number    `json:"remaining"`
	Expenses   []expenseView  `json:"expenses"`
	Categories []categoryView `json:"categories"`
	Rollover   *rolloverView  `json:"rollover,omitempty"`
}

type expenseView struct {
	ID       string      `json:"id"`
	Date     string      `json:"date"`
	Category string      `json:"category"`
	Amount   json.Number `json:"amount"`
	Note     string      `json:"note"`
}

type categoryView struct {
	Category string           `json:"category"`
	Spent    json.Number      `json:"spent"`
	Limit    *json.Number     `json:"limit"`
	Status   core.LimitStatus `json:"status"`
	Percent  json.Number      `json:"percent"`
}

// rolloverView tells the client, once, that a new month has started.
type rolloverView struct {
	PreviousPeriod string `json:"previous_period"`
	Period         string `json:"period"`
}

type expenseCreatedView struct {
	Expense expenseView      `json:"expense"`
	Warning core.LimitStatus `json:"warning"`
	Budget  budgetView       `json:"budget"`
}

func number(d decimal.Decimal) json.Number {
	return json.Number(d.String())
}

func newExpenseView(e core.ExpenseEntry) expenseView {
	return expenseView{
		ID:       e.ID,
		Date:     e.Date,
		Category: e.Category,
		Amount:   number(e.Amount),
		Note:     e.Note,
	}
}

func newBudgetView(r core.BudgetRecord) budgetView {
	s := aggregate.Summarize(r)
	v := budgetView{
		Period:     s.Period,
		Income:     number(s.Income),
		Total:      number(s.Total),
		Remaining:  number(s.Remaining),
		Expenses:   make([]expenseView, 0, len(s.Expenses)),
		Categories: make([]categoryView, 0, len(s.Categories)),
	}
	for _, e := range s.Expenses {
		v.Expenses = append(v.Expenses, newExpenseView(e))
	}
	for _, c := range s.Categories {
		row := categoryView{
			Category: c.Category,
			Spent:    number(c.Spent),
			Status:   c.Status,
			Percent:  number(c.Percent.Round(1)),
		}
		if c.Limit != nil {
			l := number(*c.Limit)
			row.Limit = &l
		}
		v.Categories = append(v.Categories, row)
	}
	return v
}
