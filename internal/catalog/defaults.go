package catalog

// Default returns the built-in lists offered by the entry form.
func Default() Catalog {
	return Catalog{
		Currencies: []string{"USD", "GBP", "EUR", "EGP"},
		Categories: []string{
			"Life expense",
			"Electricity",
			"Gas",
			"Rental",
			"Grocery",
			"Saving",
			"Education",
			"Charity",
		},
		PaymentMethods: []string{"Cash", "Credit Card", "Paypal"},
		Aliases:        map[string]string{"EURO": "EUR"},
	}
}
