package model

import "github.com/shopspring/decimal"

// TotalLabel marks the derived total row in every table rendering.
const TotalLabel = "TOTAL"

// Total is the sum of all expenses converted to one currency. It is derived
// on demand and never written to storage.
type Total struct {
	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency"`
	Count    int             `json:"count"`
	// Unconverted lists currencies that had no usable rate and therefore
	// contributed nothing to Amount.
	Unconverted []string `json:"unconverted,omitempty"`
}

// Row renders the total the way the expense table shows it.
func (t Total) Row() []string {
	return []string{TotalLabel, t.Amount.StringFixed(2), t.Currency, "", ""}
}

// CategoryTotal is one line of a per-category breakdown.
type CategoryTotal struct {
	Category string          `json:"category"`
	Amount   decimal.Decimal `json:"amount"`
	Count    int             `json:"count"`
}
