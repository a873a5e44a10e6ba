// Package store persists the expense list.
package store

import (
	"context"
	"fmt"

	"github.com/tally-dev/tally/internal/config"
	"github.com/tally-dev/tally/internal/model"
)

// Backend is a persistence backend for the complete expense list.
type Backend interface {
	Load(ctx context.Context) ([]model.Expense, error)
	Save(ctx context.Context, list []model.Expense) error
	// Path is the file the backend writes, relative paths resolved.
	Path() string
	Close() error
}

// Open returns the backend selected by cfg for the workspace at root.
func Open(cfg *config.Config, root string) (Backend, error) {
	switch cfg.Storage.Backend {
	case config.BackendJSON, "":
		return NewFileStore(cfg.DataPath(root)), nil
	case config.BackendSQLite:
		s, err := OpenSQLite(cfg.SQLitePath(root))
		if err != nil {
			return nil, fmt.Errorf("opening sqlite store: %w", err)
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
}
