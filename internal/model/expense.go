package model

import (
	"github.com/shopspring/decimal"
)

const (
	// DateLayout is the only accepted date format for expenses.
	DateLayout = "2006-01-02"
	// DatePlaceholder is the hint shown in empty date fields. Submitting it
	// counts as leaving the date blank.
	DatePlaceholder = "YYYY-MM-DD"
)

// Expense is one persisted spending record.
type Expense struct {
	ID       string          `json:"id"`
	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency"` // ISO 4217 code, e.g. "GBP"
	Category string          `json:"category"`
	Payment  string          `json:"payment"`
	Date     string          `json:"date"` // DateLayout
}

// Draft is an expense as typed into a form, before validation.
type Draft struct {
	Amount   string `json:"amount"`
	Currency string `json:"currency"`
	Category string `json:"category"`
	Payment  string `json:"payment"`
	Date     string `json:"date"`
}

// Draft returns the expense as form input, e.g. to prefill an edit form.
func (e Expense) Draft() Draft {
	return Draft{
		Amount:   e.Amount.StringFixed(2),
		Currency: e.Currency,
		Category: e.Category,
		Payment:  e.Payment,
		Date:     e.Date,
	}
}

// Row renders the expense as table cells: amount, currency, category,
// payment, date.
func (e Expense) Row() []string {
	return []string{e.Amount.StringFixed(2), e.Currency, e.Category, e.Payment, e.Date}
}
