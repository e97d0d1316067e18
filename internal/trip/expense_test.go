package trip

import (
	"errors"
	"math"
	"testing"
)

func TestExpenseValidate(t *testing.T) {
	tests := []struct {
		name  string
		e     Expense
		valid bool
	}{
		{"ok", Expense{Date: "2026-02-03", Amount: 1200, Currency: CurrencyJPY}, true},
		{"zero amount", Expense{Date: "2026-02-03", Amount: 0, Currency: CurrencyJPY}, false},
		{"negative amount", Expense{Date: "2026-02-03", Amount: -5, Currency: CurrencyTWD}, false},
		{"unknown currency", Expense{Date: "2026-02-03", Amount: 5, Currency: "USD"}, false},
		{"bad date", Expense{Date: "yesterday", Amount: 5, Currency: CurrencyTWD}, false},
	}

	for _, tt := range tests {
		err := tt.e.Validate()
		if tt.valid && err != nil {
			t.Errorf("%s: unexpected error: %v", tt.name, err)
		}
		if !tt.valid && !errors.Is(err, ErrInvalidExpense) {
			t.Errorf("%s: expected ErrInvalidExpense, got %v", tt.name, err)
		}
	}
}

func TestSummarize(t *testing.T) {
	expenses := []Expense{
		{ID: "1", Amount: 1000, Currency: CurrencyJPY},
		{ID: "2", Amount: 440, Currency: CurrencyTWD},
	}

	s := Summarize(expenses, 0.22)
	if s.Count != 2 || s.ExchangeRate != 0.22 {
		t.Fatalf("unexpected summary: %+v", s)
	}
	if math.Abs(s.TotalTWD-660) > 1e-9 {
		t.Fatalf("expected 660 TWD, got %f", s.TotalTWD)
	}
	if math.Abs(s.TotalJPY-3000) > 1e-9 {
		t.Fatalf("expected 3000 JPY, got %f", s.TotalJPY)
	}
}

func TestRemoveExpense(t *testing.T) {
	expenses := []Expense{{ID: "1"}, {ID: "2"}}

	out, found := RemoveExpense(expenses, "1")
	if !found || len(out) != 1 || out[0].ID != "2" {
		t.Fatalf("unexpected result: %v %v", out, found)
	}
	if _, found := RemoveExpense(expenses, "3"); found {
		t.Fatal("expected unknown id not to be found")
	}
}
