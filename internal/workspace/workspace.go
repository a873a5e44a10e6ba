// Package workspace assembles the services for one tally directory.
package workspace

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/tally-dev/tally/internal/activity"
	"github.com/tally-dev/tally/internal/catalog"
	"github.com/tally-dev/tally/internal/config"
	"github.com/tally-dev/tally/internal/expenses"
	"github.com/tally-dev/tally/internal/gitops"
	"github.com/tally-dev/tally/internal/logging"
	"github.com/tally-dev/tally/internal/model"
	"github.com/tally-dev/tally/internal/rates"
	"github.com/tally-dev/tally/internal/store"
	"github.com/tally-dev/tally/internal/transfer"
)

// Options adjust how a workspace is opened.
type Options struct {
	// Offline skips the live rate lookup and always uses the fallback table.
	Offline bool
	// Logger overrides the logger built from config.
	Logger *logrus.Logger
	// LogOutput is where the config-built logger writes. Defaults to stderr.
	LogOutput io.Writer
	// Provider overrides the HTTP rate provider.
	Provider rates.Provider
	Now      func() time.Time
}

// Workspace holds references to all services of one directory.
type Workspace struct {
	Root      string
	Config    *config.Config
	Log       *logrus.Logger
	Catalog   *catalog.Service
	Store     store.Backend
	Expenses  *expenses.Service
	Rates     *rates.Manager
	Activity  *activity.Log
	Transfers *transfer.Registry

	gitEnabled bool
	now        func() time.Time
}

// Open loads config, storage, rates and the expense service from root.
func Open(ctx context.Context, root string, opts Options) (*Workspace, error) {
	root, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolving path: %w", err)
	}

	cfg, err := config.LoadWorkspace(root)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	log := opts.Logger
	if log == nil {
		log, err = logging.New(logging.Options{Level: cfg.Log.Level, Format: cfg.Log.Format, Output: opts.LogOutput})
		if err != nil {
			return nil, err
		}
	}

	w := &Workspace{
		Root:      root,
		Config:    cfg,
		Log:       log,
		Catalog:   catalog.NewService(cfg.Catalog),
		Activity:  activity.New(root),
		Transfers: transfer.DefaultRegistry(),
		now:       opts.Now,
	}
	if w.now == nil {
		w.now = time.Now
	}
	w.gitEnabled = cfg.Git.AutoCommit && gitops.IsRepo(root) && gitops.Available()

	w.Rates, err = newRateManager(cfg, opts, log, w.now)
	if err != nil {
		return nil, err
	}

	w.Store, err = store.Open(cfg, root)
	if err != nil {
		w.Rates.Close()
		return nil, err
	}

	w.Expenses, err = expenses.Open(ctx, w.Store, w.Catalog, expenses.Options{
		Recorder: w,
		Logger:   log.WithField("component", "expenses"),
	})
	if err != nil {
		w.Store.Close()
		w.Rates.Close()
		return nil, err
	}

	log.WithFields(logrus.Fields{
		"root":     root,
		"backend":  cfg.Storage.Backend,
		"expenses": w.Expenses.Len(),
		"git":      w.gitEnabled,
	}).Debug("workspace opened")
	return w, nil
}

func newRateManager(cfg *config.Config, opts Options, log *logrus.Logger, now func() time.Time) (*rates.Manager, error) {
	// Already checked by cfg.Validate.
	timeout, _ := cfg.Rates.TimeoutDuration()
	ttl, _ := cfg.Rates.TTLDuration()
	fallback, _ := cfg.Rates.FallbackRates()

	var provider rates.Provider
	switch {
	case opts.Offline:
	case opts.Provider != nil:
		provider = opts.Provider
	default:
		provider = rates.NewHTTPProvider(cfg.Rates.Endpoint, timeout)
	}

	return rates.NewManager(rates.ManagerOptions{
		Base:     cfg.Base(),
		Provider: provider,
		Fallback: fallback,
		TTL:      ttl,
		Logger:   log.WithField("component", "rates"),
		Now:      now,
	})
}

// Close releases the store and rate cache.
func (w *Workspace) Close() error {
	w.Rates.Close()
	return w.Store.Close()
}

// Record appends an activity row for ev, committing the data file first
// when git snapshots are enabled.
func (w *Workspace) Record(_ context.Context, ev expenses.Event) error {
	entry := activity.Entry{
		Timestamp:  w.now().UTC(),
		Action:     string(ev.Action),
		ExpenseIDs: ev.ExpenseIDs,
		Details:    ev.Details,
	}

	if w.gitEnabled {
		hash, err := w.commit(ev)
		if err != nil {
			w.Log.WithError(err).Warn("git snapshot failed")
		}
		entry.CommitHash = hash
	}

	if err := w.Activity.Append(entry); err != nil {
		return fmt.Errorf("appending activity: %w", err)
	}
	return nil
}

func (w *Workspace) commit(ev expenses.Event) (string, error) {
	rel, err := filepath.Rel(w.Root, w.Store.Path())
	if err != nil || strings.HasPrefix(rel, "..") {
		return "", fmt.Errorf("data file %s is outside the workspace", w.Store.Path())
	}
	msg := fmt.Sprintf("tally: %s", ev.Action)
	if ev.Details != "" {
		msg += " " + ev.Details
	}
	author := gitops.Author{Name: w.Config.Git.AuthorName, Email: w.Config.Git.AuthorEmail}
	return gitops.Commit(w.Root, msg, author, filepath.ToSlash(rel))
}

// GitEnabled reports whether mutations are committed to git.
func (w *Workspace) GitEnabled() bool { return w.gitEnabled }

// Total returns the grand total in the base currency using current rates.
func (w *Workspace) Total(ctx context.Context) (model.Total, rates.Table) {
	tbl := w.Rates.Current(ctx)
	return w.Expenses.Total(tbl), tbl
}

// Breakdown returns per-category totals using current rates.
func (w *Workspace) Breakdown(ctx context.Context) ([]model.CategoryTotal, rates.Table) {
	tbl := w.Rates.Current(ctx)
	return w.Expenses.Breakdown(tbl), tbl
}

// LogFile opens logs/tally.log for callers that own the terminal.
func LogFile(root string) (io.WriteCloser, error) {
	return logging.OpenFile(filepath.Join(root, "logs"))
}
