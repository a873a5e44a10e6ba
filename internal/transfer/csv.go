package transfer

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/tally-dev/tally/internal/model"
)

// CSVFormat reads and writes comma-separated files with a header row.
// Columns are matched by header name, so order does not matter and extra
// columns (such as id) are ignored on import.
type CSVFormat struct{}

// Header is the column order used on export.
var Header = []string{"id", "amount", "currency", "category", "payment", "date"}

var headerAliases = map[string]string{
	"payment_method": "payment",
	"payment method": "payment",
	"method":         "payment",
}

func (CSVFormat) Name() string      { return "csv" }
func (CSVFormat) Extension() string { return ".csv" }

// Parse reads drafts. The header must name amount, currency, category,
// payment and date columns.
func (CSVFormat) Parse(r io.Reader) ([]model.Draft, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading CSV: %w", err)
	}
	if len(records) == 0 {
		return nil, nil
	}

	cols := map[string]int{}
	for i, name := range records[0] {
		key := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))
		if alias, ok := headerAliases[key]; ok {
			key = alias
		}
		cols[key] = i
	}
	var missing []string
	for _, want := range Header[1:] {
		if _, ok := cols[want]; !ok {
			missing = append(missing, want)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("header is missing %s", strings.Join(missing, ", "))
	}

	get := func(rec []string, name string) string {
		return strings.TrimSpace(rec[cols[name]])
	}
	var drafts []model.Draft
	for _, rec := range records[1:] {
		drafts = append(drafts, model.Draft{
			Amount:   get(rec, "amount"),
			Currency: get(rec, "currency"),
			Category: get(rec, "category"),
			Payment:  get(rec, "payment"),
			Date:     get(rec, "date"),
		})
	}
	return drafts, nil
}

// Write writes list with Header.
func (CSVFormat) Write(w io.Writer, list []model.Expense) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	for i, e := range list {
		row := append([]string{e.ID}, e.Row()...)
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("writing row %d: %w", i, err)
		}
	}
	cw.Flush()
	return cw.Error()
}
