package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewService_Defaults(t *testing.T) {
	svc := NewService(Catalog{})

	assert.Equal(t, []string{"USD", "GBP", "EUR", "EGP"}, svc.Currencies())
	assert.Len(t, svc.Categories(), 8)
	assert.Equal(t, []string{"Cash", "Credit Card", "Paypal"}, svc.PaymentMethods())
}

func TestNormalizeCurrency(t *testing.T) {
	svc := NewService(Default())
	tests := []struct {
		input string
		want  string
	}{
		{"usd", "USD"},
		{" gbp ", "GBP"},
		{"EURO", "EUR"},
		{"euro", "EUR"},
		{"EUR", "EUR"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, svc.NormalizeCurrency(tt.input), "NormalizeCurrency(%q)", tt.input)
	}
}

func TestHasCurrency(t *testing.T) {
	svc := NewService(Default())
	assert.True(t, svc.HasCurrency("EGP"))
	assert.True(t, svc.HasCurrency("Euro"), "aliases resolve before lookup")
	assert.False(t, svc.HasCurrency("JPY"))
}

func TestCategoryAndPayment_Canonical(t *testing.T) {
	svc := NewService(Default())

	got, ok := svc.Category("life EXPENSE")
	assert.True(t, ok)
	assert.Equal(t, "Life expense", got)

	got, ok = svc.Payment("credit card")
	assert.True(t, ok)
	assert.Equal(t, "Credit Card", got)

	_, ok = svc.Category("Holidays")
	assert.False(t, ok)
	_, ok = svc.Payment("")
	assert.False(t, ok)
}

func TestNewService_CustomListsDedupe(t *testing.T) {
	svc := NewService(Catalog{
		Currencies:     []string{"jpy", "JPY", "euro", ""},
		Categories:     []string{"Travel", "travel", " "},
		PaymentMethods: []string{"Debit"},
	})

	assert.Equal(t, []string{"JPY", "EUR"}, svc.Currencies())
	assert.Equal(t, []string{"Travel"}, svc.Categories())
	assert.Equal(t, []string{"Debit"}, svc.PaymentMethods())
}
