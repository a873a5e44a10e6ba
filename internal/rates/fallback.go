package rates

import (
	"time"

	"github.com/shopspring/decimal"
)

// DefaultFallback is the static table used when the live lookup fails,
// in units per 1 USD.
func DefaultFallback() map[string]decimal.Decimal {
	return map[string]decimal.Decimal{
		"USD": decimal.NewFromInt(1),
		"GBP": decimal.RequireFromString("0.79"),
		"EUR": decimal.RequireFromString("0.92"),
		"EGP": decimal.RequireFromString("48.50"),
	}
}

// FallbackTable builds a table for base from usdRates (units per 1 USD).
// If base has no rate in usdRates the table only converts base itself.
func FallbackTable(base string, usdRates map[string]decimal.Decimal, now time.Time) Table {
	t := Table{Base: "USD", Rates: make(map[string]decimal.Decimal, len(usdRates)+1), Source: SourceFallback, FetchedAt: now}
	for c, r := range usdRates {
		t.Rates[c] = r
	}
	t.Rates["USD"] = decimal.NewFromInt(1)

	rebased, err := t.Rebase(base)
	if err != nil {
		return Table{Base: base, Rates: map[string]decimal.Decimal{base: decimal.NewFromInt(1)}, Source: SourceFallback, FetchedAt: now}
	}
	return rebased
}
