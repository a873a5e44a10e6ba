package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/tally-dev/tally/internal/model"
)

// FileStore keeps expenses as a JSON array in a single file. Every Save
// rewrites the whole file.
type FileStore struct {
	path string
}

// NewFileStore returns a store backed by the JSON file at path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the backing file.
func (s *FileStore) Path() string { return s.path }

// Load reads the file. A missing or empty file is an empty list.
func (s *FileStore) Load(_ context.Context) ([]model.Expense, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", s.path, err)
	}
	list, err := DecodeJSON(data)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", s.path, err)
	}
	return list, nil
}

// Save replaces the file contents with list. The data is written to a
// temporary file in the same directory and renamed over the target.
func (s *FileStore) Save(_ context.Context, list []model.Expense) error {
	data, err := EncodeJSON(list)
	if err != nil {
		return err
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating data dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(s.path)+".*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op after a successful rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing %s: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", tmpName, err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return fmt.Errorf("setting permissions on %s: %w", tmpName, err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("replacing %s: %w", s.path, err)
	}
	return nil
}

// EncodeJSON renders list as an indented JSON array. A nil list is "[]".
func EncodeJSON(list []model.Expense) ([]byte, error) {
	if list == nil {
		list = []model.Expense{}
	}
	data, err := json.MarshalIndent(list, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding expenses: %w", err)
	}
	return append(data, '\n'), nil
}

// DecodeJSON parses a JSON array of expenses. Amounts may be JSON strings
// or numbers; see storedAmount for what older files may hold.
func DecodeJSON(data []byte) ([]model.Expense, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}
	var records []storedExpense
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, err
	}
	if records == nil {
		return nil, nil
	}
	list := make([]model.Expense, len(records))
	for i, r := range records {
		list[i] = model.Expense{
			ID:       r.ID,
			Amount:   decimal.Decimal(r.Amount),
			Currency: r.Currency,
			Category: r.Category,
			Payment:  r.Payment,
			Date:     r.Date,
		}
	}
	return list, nil
}

// storedExpense mirrors model.Expense on disk, with a lenient amount.
type storedExpense struct {
	ID       string       `json:"id"`
	Amount   storedAmount `json:"amount"`
	Currency string       `json:"currency"`
	Category string       `json:"category"`
	Payment  string       `json:"payment"`
	Date     string       `json:"date"`
}

// storedAmount decodes whatever older files saved from the amount field:
// numbers, padded strings, digit groups with underscores, or nothing.
// Values that still do not parse decode as zero; the expense service warns
// about them and they add nothing to totals.
type storedAmount decimal.Decimal

func (a *storedAmount) UnmarshalJSON(b []byte) error {
	raw := string(b)
	if len(b) > 0 && b[0] == '"' {
		if err := json.Unmarshal(b, &raw); err != nil {
			return err
		}
	}
	*a = storedAmount(parseAmount(raw))
	return nil
}

// parseAmount reads a stored amount leniently. It returns zero for text that
// is not a number.
func parseAmount(raw string) decimal.Decimal {
	raw = strings.ReplaceAll(strings.TrimSpace(raw), "_", "")
	v, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero
	}
	return v
}

// Close is a no-op; the file is not held open between calls.
func (s *FileStore) Close() error { return nil }
