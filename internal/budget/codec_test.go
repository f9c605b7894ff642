package budget

import (
	"errors"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"bilancio/internal/core"
)

func TestEncodeDecode(t *testing.T) {
	r := core.NewRecord("2024-02")
	r.Income = decimal.RequireFromString("1000.5")
	r.Expenses = append(r.Expenses,
		core.ExpenseEntry{ID: "b", Date: "2024-02-03", Category: "Rent", Amount: decimal.NewFromInt(500)},
		core.ExpenseEntry{ID: "a", Date: "2024-02-01", Category: "Food", Amount: decimal.RequireFromString("0.1"), Note: "bread"},
	)
	r.Limits["Rent"] = decimal.NewFromInt(600)
	r.Limits["Fun"] = decimal.Zero

	raw, err := Encode(r)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	want := `{"period":"2024-02","income":1000.5,"expenses":[` +
		`{"id":"b","date":"2024-02-03","category":"Rent","amount":500,"note":""},` +
		`{"id":"a","date":"2024-02-01","category":"Food","amount":0.1,"note":"bread"}],` +
		`"limits":{"Fun":0,"Rent":600}}`
	if raw != want {
		t.Fatalf("encoded\n%s\nwant\n%s", raw, want)
	}

	got, err := Decode(raw)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	again, _ := Encode(got)
	if again != raw {
		t.Fatalf("re-encoding differs:\n%s\n%s", again, raw)
	}
	if got.Expenses[0].ID != "b" || got.Expenses[1].Note != "bread" {
		t.Fatalf("expense order or fields lost: %+v", got.Expenses)
	}
}

func TestEncodeEmptyRecord(t *testing.T) {
	raw, err := Encode(core.NewRecord("2024-02"))
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if raw != `{"period":"2024-02","income":0,"expenses":[],"limits":{}}` {
		t.Fatalf("unexpected encoding %s", raw)
	}
}

func TestDecodeToleratesMissingCollections(t *testing.T) {
	r, err := Decode(`{"period":"2024-02","income":12,"extra":true}`)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(r.Expenses) != 0 || r.Limits == nil || !r.Income.Equal(decimal.NewFromInt(12)) {
		t.Fatalf("unexpected record %+v", r)
	}
}

func TestDecodeMalformed(t *testing.T) {
	cases := map[string]string{
		"not json":          `{{{`,
		"empty":             ``,
		"null":              `null`,
		"array":             `[]`,
		"missing period":    `{"income":0}`,
		"bad period":        `{"period":"2024-13","income":0}`,
		"missing income":    `{"period":"2024-02"}`,
		"negative income":   `{"period":"2024-02","income":-1}`,
		"string income":     `{"period":"2024-02","income":"abc"}`,
		"expenses object":   `{"period":"2024-02","income":0,"expenses":{}}`,
		"missing id":        `{"period":"2024-02","income":0,"expenses":[{"date":"2024-02-01","category":"A","amount":1}]}`,
		"duplicate id":      `{"period":"2024-02","income":0,"expenses":[{"id":"x","date":"2024-02-01","category":"A","amount":1},{"id":"x","date":"2024-02-01","category":"A","amount":1}]}`,
		"bad date":          `{"period":"2024-02","income":0,"expenses":[{"id":"x","date":"01/02/2024","category":"A","amount":1}]}`,
		"blank category":    `{"period":"2024-02","income":0,"expenses":[{"id":"x","date":"2024-02-01","category":" ","amount":1}]}`,
		"untrimmed":         `{"period":"2024-02","income":0,"expenses":[{"id":"x","date":"2024-02-01","category":"A ","amount":1}]}`,
		"zero amount":       `{"period":"2024-02","income":0,"expenses":[{"id":"x","date":"2024-02-01","category":"A","amount":0}]}`,
		"missing amount":    `{"period":"2024-02","income":0,"expenses":[{"id":"x","date":"2024-02-01","category":"A"}]}`,
		"negative limit":    `{"period":"2024-02","income":0,"limits":{"A":-1}}`,
		"blank limit key":   `{"period":"2024-02","income":0,"limits":{"":1}}`,
		"limit not number":  `{"period":"2024-02","income":0,"limits":{"A":true}}`,
		"trailing garbage":  `{"period":"2024-02","income":0} x`,
		"income wrong type": `{"period":"2024-02","income":[1]}`,
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Decode(raw)
			if !errors.Is(err, core.ErrMalformedStoredData) {
				t.Fatalf("expected ErrMalformedStoredData, got %v", err)
			}
			if !strings.HasPrefix(err.Error(), core.ErrMalformedStoredData.Error()) {
				t.Fatalf("unexpected message %q", err)
			}
		})
	}
}
