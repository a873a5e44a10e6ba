// Package rates converts expense amounts into a base currency using live
// exchange rates, with a static table for when the lookup fails.
package rates

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// Source says where a Table came from.
type Source string

const (
	SourceLive     Source = "live"
	SourceFallback Source = "fallback"
)

// Table holds exchange rates quoted as units of each currency per one unit
// of Base.
type Table struct {
	Base      string                     `json:"base"`
	Rates     map[string]decimal.Decimal `json:"rates"`
	Source    Source                     `json:"source"`
	FetchedAt time.Time                  `json:"fetched_at"`
}

// BaseCurrency returns the currency totals are expressed in.
func (t Table) BaseCurrency() string { return t.Base }

// Rate returns units of code per one base unit.
func (t Table) Rate(code string) (decimal.Decimal, bool) {
	if code == t.Base {
		return decimal.NewFromInt(1), true
	}
	r, ok := t.Rates[code]
	if !ok || !r.IsPositive() {
		return decimal.Zero, false
	}
	return r, true
}

// ToBase converts amount in code to the base currency, rounded to 4 decimal
// places. It reports false when there is no usable rate.
func (t Table) ToBase(amount decimal.Decimal, code string) (decimal.Decimal, bool) {
	if code == t.Base {
		return amount, true
	}
	r, ok := t.Rate(code)
	if !ok {
		return decimal.Zero, false
	}
	return amount.DivRound(r, 4), true
}

// Codes returns the currencies with a rate, sorted.
func (t Table) Codes() []string {
	codes := make([]string, 0, len(t.Rates))
	for c, r := range t.Rates {
		if r.IsPositive() {
			codes = append(codes, c)
		}
	}
	sort.Strings(codes)
	return codes
}

// Rebase re-expresses the table relative to base. The table must already
// have a rate for base.
func (t Table) Rebase(base string) (Table, error) {
	if base == t.Base {
		return t, nil
	}
	pivot, ok := t.Rate(base)
	if !ok {
		return Table{}, fmt.Errorf("no %s rate in %s table", base, t.Base)
	}
	out := Table{Base: base, Rates: make(map[string]decimal.Decimal, len(t.Rates)+1), Source: t.Source, FetchedAt: t.FetchedAt}
	out.Rates[t.Base] = decimal.NewFromInt(1).DivRound(pivot, 8)
	for code, r := range t.Rates {
		if !r.IsPositive() {
			continue
		}
		out.Rates[code] = r.DivRound(pivot, 8)
	}
	out.Rates[base] = decimal.NewFromInt(1)
	return out, nil
}

// FillFrom copies rates for currencies t lacks from other, which must share
// t's base.
func (t Table) FillFrom(other Table) Table {
	out := t
	out.Rates = make(map[string]decimal.Decimal, len(t.Rates)+len(other.Rates))
	for c, r := range t.Rates {
		out.Rates[c] = r
	}
	for c, r := range other.Rates {
		if existing, ok := out.Rates[c]; !ok || !existing.IsPositive() {
			out.Rates[c] = r
		}
	}
	return out
}
