package trip

import (
	"errors"
	"fmt"
	"math"
)

// Currency is an expense currency.
type Currency string

const (
	CurrencyJPY Currency = "JPY"
	CurrencyTWD Currency = "TWD"

	// DefaultExchangeRate is TWD per JPY.
	DefaultExchangeRate = 0.22
)

// ErrInvalidExpense is returned for expenses that fail validation.
var ErrInvalidExpense = errors.New("invalid expense")

// Expense is one recorded spend.
type Expense struct {
	ID          string   `json:"id"`
	Date        string   `json:"date"`
	Amount      float64  `json:"amount"`
	Currency    Currency `json:"currency"`
	Category    string   `json:"category"`
	Description string   `json:"description"`
}

// Validate checks the expense fields.
func (e Expense) Validate() error {
	if e.Amount <= 0 || math.IsNaN(e.Amount) || math.IsInf(e.Amount, 0) {
		return fmt.Errorf("%w: amount must be positive", ErrInvalidExpense)
	}
	if e.Currency != CurrencyJPY && e.Currency != CurrencyTWD {
		return fmt.Errorf("%w: unknown currency %q", ErrInvalidExpense, e.Currency)
	}
	if _, err := ParseDate(e.Date); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidExpense, err)
	}
	return nil
}

// Converted returns the amount in the other currency of the pair.
func (e Expense) Converted(rate float64) (float64, Currency) {
	if e.Currency == CurrencyJPY {
		return e.Amount * rate, CurrencyTWD
	}
	return e.Amount / rate, CurrencyJPY
}

// Summary totals expenses in both currencies.
type Summary struct {
	TotalTWD     float64 `json:"totalTWD"`
	TotalJPY     float64 `json:"totalJPY"`
	ExchangeRate float64 `json:"exchangeRate"`
	Count        int     `json:"count"`
}

// Summarize totals expenses using rate (TWD per JPY).
func Summarize(expenses []Expense, rate float64) Summary {
	s := Summary{ExchangeRate: rate, Count: len(expenses)}
	for _, e := range expenses {
		if e.Currency == CurrencyTWD {
			s.TotalTWD += e.Amount
			s.TotalJPY += e.Amount / rate
		} else {
			s.TotalJPY += e.Amount
			s.TotalTWD += e.Amount * rate
		}
	}
	return s
}

// RemoveExpense returns expenses without the one with id.
func RemoveExpense(expenses []Expense, id string) ([]Expense, bool) {
	out := make([]Expense, 0, len(expenses))
	found := false
	for _, e := range expenses {
		if e.ID == id {
			found = true
			continue
		}
		out = append(out, e)
	}
	return out, found
}
