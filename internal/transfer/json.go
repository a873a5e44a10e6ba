package transfer

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"github.com/tally-dev/tally/internal/model"
)

// JSONFormat reads and writes a JSON array of expense objects, the same
// shape as the data file.
type JSONFormat struct{}

func (JSONFormat) Name() string      { return "json" }
func (JSONFormat) Extension() string { return ".json" }

// looseString accepts a JSON string or number.
type looseString string

func (s *looseString) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		*s = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var v string
		if err := json.Unmarshal(b, &v); err != nil {
			return err
		}
		*s = looseString(v)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("expected string or number, got %s", b)
	}
	*s = looseString(n.String())
	return nil
}

type jsonRecord struct {
	Amount   looseString `json:"amount"`
	Currency string      `json:"currency"`
	Category string      `json:"category"`
	Payment  string      `json:"payment"`
	Date     string      `json:"date"`
}

// Parse reads drafts from a JSON array. Ids in the input are ignored.
func (JSONFormat) Parse(r io.Reader) ([]model.Draft, error) {
	var records []jsonRecord
	if err := json.NewDecoder(r).Decode(&records); err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, fmt.Errorf("decoding JSON: %w", err)
	}
	drafts := make([]model.Draft, len(records))
	for i, rec := range records {
		drafts[i] = model.Draft{
			Amount:   string(rec.Amount),
			Currency: rec.Currency,
			Category: rec.Category,
			Payment:  rec.Payment,
			Date:     rec.Date,
		}
	}
	return drafts, nil
}

// Write writes list as an indented JSON array.
func (JSONFormat) Write(w io.Writer, list []model.Expense) error {
	if list == nil {
		list = []model.Expense{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(list); err != nil {
		return fmt.Errorf("encoding JSON: %w", err)
	}
	return nil
}
