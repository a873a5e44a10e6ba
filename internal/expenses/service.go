package expenses

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/tally-dev/tally/internal/catalog"
	"github.com/tally-dev/tally/internal/id"
	"github.com/tally-dev/tally/internal/model"
)

var (
	// ErrNotFound is returned when no expense matches an id or prefix.
	ErrNotFound = errors.New("expense not found")
	// ErrAmbiguous is returned when an id prefix matches several expenses.
	ErrAmbiguous = errors.New("ambiguous expense id")
)

// Store persists the complete expense list. Save always receives every
// record and replaces whatever was stored before.
type Store interface {
	Load(ctx context.Context) ([]model.Expense, error)
	Save(ctx context.Context, list []model.Expense) error
}

// Converter turns amounts into a single base currency.
type Converter interface {
	BaseCurrency() string
	ToBase(amount decimal.Decimal, currency string) (decimal.Decimal, bool)
}

// Action names a kind of mutation.
type Action string

const (
	ActionAdd    Action = "add"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
	ActionClear  Action = "clear"
	ActionImport Action = "import"
	ActionRepair Action = "repair"
)

// Event describes a mutation that has been written to the store.
type Event struct {
	Action     Action
	ExpenseIDs []string
	Details    string
}

// Recorder is notified after every successful mutation.
type Recorder interface {
	Record(ctx context.Context, ev Event) error
}

// RecorderFunc adapts a function to Recorder.
type RecorderFunc func(ctx context.Context, ev Event) error

// Record calls f.
func (f RecorderFunc) Record(ctx context.Context, ev Event) error { return f(ctx, ev) }

// Options tune a Service.
type Options struct {
	Recorder Recorder
	Logger   logrus.FieldLogger
}

// Service owns the in-memory expense list and keeps the store in sync with it.
type Service struct {
	mu       sync.RWMutex
	list     []model.Expense
	store    Store
	catalog  *catalog.Service
	recorder Recorder
	log      logrus.FieldLogger
}

// Open loads the stored expenses. Records with a missing or repeated id are
// given a new one and currency codes are normalized; if anything changed the
// store is rewritten once.
func Open(ctx context.Context, store Store, cat *catalog.Service, opts Options) (*Service, error) {
	s := &Service{
		store:    store,
		catalog:  cat,
		recorder: opts.Recorder,
		log:      opts.Logger,
	}
	if s.log == nil {
		l := logrus.New()
		l.SetLevel(logrus.PanicLevel)
		s.log = l
	}

	list, err := store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading expenses: %w", err)
	}

	var repaired []string
	changed := false
	seen := make(map[string]struct{}, len(list))
	for i := range list {
		e := &list[i]
		if _, dup := seen[e.ID]; e.ID == "" || dup {
			e.ID = id.New()
			repaired = append(repaired, e.ID)
		}
		seen[e.ID] = struct{}{}
		if !e.Amount.IsPositive() {
			s.log.WithFields(logrus.Fields{"id": e.ID, "date": e.Date}).
				Warn("stored expense has no usable amount; counted as 0")
		}
		if c := cat.NormalizeCurrency(e.Currency); c != e.Currency {
			e.Currency = c
			changed = true
		}
	}

	if len(repaired) > 0 || changed {
		if err := store.Save(ctx, list); err != nil {
			return nil, fmt.Errorf("saving repaired expenses: %w", err)
		}
		s.log.WithField("assigned_ids", len(repaired)).Info("repaired stored expenses")
	}
	s.list = list
	if len(repaired) > 0 {
		s.record(ctx, Event{
			Action:     ActionRepair,
			ExpenseIDs: repaired,
			Details:    fmt.Sprintf("assigned %d missing or duplicate ids", len(repaired)),
		})
	}
	return s, nil
}

// Catalog returns the catalog used for validation.
func (s *Service) Catalog() *catalog.Service {
	return s.catalog
}

// List returns a copy of all expenses in insertion order.
func (s *Service) List() []model.Expense {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]model.Expense(nil), s.list...)
}

// Len returns the number of expenses.
func (s *Service) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.list)
}

// Get returns the expense with exactly this id.
func (s *Service) Get(expenseID string) (model.Expense, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := s.indexOf(expenseID); i >= 0 {
		return s.list[i], nil
	}
	return model.Expense{}, fmt.Errorf("%w: %s", ErrNotFound, expenseID)
}

// Resolve finds an expense by full id or unique id prefix.
func (s *Service) Resolve(ref string) (model.Expense, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.resolve(ref)
}

func (s *Service) resolve(ref string) (model.Expense, error) {
	ids := make([]string, len(s.list))
	for i, e := range s.list {
		ids[i] = e.ID
	}
	match, err := id.Match(ref, ids)
	if err != nil {
		var amb *id.AmbiguousError
		if errors.As(err, &amb) {
			return model.Expense{}, fmt.Errorf("%w: %s", ErrAmbiguous, err)
		}
		return model.Expense{}, fmt.Errorf("%w: %s", ErrNotFound, ref)
	}
	return s.list[s.indexOf(match)], nil
}

// Add validates d, stores it as a new expense and returns it.
func (s *Service) Add(ctx context.Context, d model.Draft) (model.Expense, error) {
	exp, verrs := ValidateDraft(d, s.catalog)
	if verrs != nil {
		return model.Expense{}, verrs
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	exp.ID = s.freshID()
	next := append(append(make([]model.Expense, 0, len(s.list)+1), s.list...), exp)
	if err := s.flush(ctx, next); err != nil {
		return model.Expense{}, err
	}
	s.log.WithField("id", exp.ID).Debug("expense added")
	s.record(ctx, Event{Action: ActionAdd, ExpenseIDs: []string{exp.ID}, Details: describe(exp)})
	return exp, nil
}

// Update replaces the fields of an existing expense, keeping its id and
// position.
func (s *Service) Update(ctx context.Context, expenseID string, d model.Draft) (model.Expense, error) {
	exp, verrs := ValidateDraft(d, s.catalog)
	if verrs != nil {
		return model.Expense{}, verrs
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(expenseID)
	if i < 0 {
		return model.Expense{}, fmt.Errorf("%w: %s", ErrNotFound, expenseID)
	}
	exp.ID = expenseID
	next := append([]model.Expense(nil), s.list...)
	next[i] = exp
	if err := s.flush(ctx, next); err != nil {
		return model.Expense{}, err
	}
	s.log.WithField("id", exp.ID).Debug("expense updated")
	s.record(ctx, Event{Action: ActionUpdate, ExpenseIDs: []string{exp.ID}, Details: describe(exp)})
	return exp, nil
}

// Delete removes the listed expenses. If any id is unknown nothing is
// removed. Returns the number of expenses deleted.
func (s *Service) Delete(ctx context.Context, ids ...string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	drop := make(map[string]struct{}, len(ids))
	for _, expenseID := range ids {
		if s.indexOf(expenseID) < 0 {
			return 0, fmt.Errorf("%w: %s", ErrNotFound, expenseID)
		}
		drop[expenseID] = struct{}{}
	}

	next := make([]model.Expense, 0, len(s.list))
	var removed []string
	for _, e := range s.list {
		if _, ok := drop[e.ID]; ok {
			removed = append(removed, e.ID)
			continue
		}
		next = append(next, e)
	}
	if err := s.flush(ctx, next); err != nil {
		return 0, err
	}
	s.log.WithField("count", len(removed)).Debug("expenses deleted")
	s.record(ctx, Event{Action: ActionDelete, ExpenseIDs: removed, Details: fmt.Sprintf("deleted %d", len(removed))})
	return len(removed), nil
}

// Clear removes every expense. Returns how many were removed.
func (s *Service) Clear(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := len(s.list)
	if err := s.flush(ctx, []model.Expense{}); err != nil {
		return 0, err
	}
	s.log.WithField("count", n).Debug("expenses cleared")
	s.record(ctx, Event{Action: ActionClear, Details: fmt.Sprintf("cleared %d", n)})
	return n, nil
}

// Import validates every draft and appends them all, or none if any draft
// is invalid. The error for an invalid draft names its 1-based position.
func (s *Service) Import(ctx context.Context, drafts []model.Draft) ([]model.Expense, error) {
	added := make([]model.Expense, 0, len(drafts))
	for i, d := range drafts {
		exp, verrs := ValidateDraft(d, s.catalog)
		if verrs != nil {
			return nil, fmt.Errorf("record %d: %w", i+1, verrs)
		}
		added = append(added, exp)
	}
	if len(added) == 0 {
		return nil, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	ids := make([]string, len(added))
	for i := range added {
		added[i].ID = s.freshID()
		ids[i] = added[i].ID
	}
	next := append(append(make([]model.Expense, 0, len(s.list)+len(added)), s.list...), added...)
	if err := s.flush(ctx, next); err != nil {
		return nil, err
	}
	s.log.WithField("count", len(added)).Info("expenses imported")
	s.record(ctx, Event{Action: ActionImport, ExpenseIDs: ids, Details: fmt.Sprintf("imported %d", len(added))})
	return added, nil
}

// Total sums every expense in the converter's base currency. Currencies the
// converter cannot handle add nothing and are reported in Unconverted.
func (s *Service) Total(conv Converter) model.Total {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t := model.Total{Amount: decimal.Zero, Currency: conv.BaseCurrency(), Count: len(s.list)}
	missing := map[string]struct{}{}
	for _, e := range s.list {
		v, ok := conv.ToBase(e.Amount, e.Currency)
		if !ok {
			missing[e.Currency] = struct{}{}
			continue
		}
		t.Amount = t.Amount.Add(v)
	}
	for c := range missing {
		t.Unconverted = append(t.Unconverted, c)
	}
	sort.Strings(t.Unconverted)
	return t
}

// Breakdown returns per-category totals in the converter's base currency,
// largest first.
func (s *Service) Breakdown(conv Converter) []model.CategoryTotal {
	s.mu.RLock()
	defer s.mu.RUnlock()

	byCat := map[string]*model.CategoryTotal{}
	var out []model.CategoryTotal
	for _, e := range s.list {
		ct, ok := byCat[e.Category]
		if !ok {
			ct = &model.CategoryTotal{Category: e.Category, Amount: decimal.Zero}
			byCat[e.Category] = ct
		}
		ct.Count++
		if v, ok := conv.ToBase(e.Amount, e.Currency); ok {
			ct.Amount = ct.Amount.Add(v)
		}
	}
	for _, ct := range byCat {
		out = append(out, *ct)
	}
	sort.Slice(out, func(i, j int) bool {
		if c := out[i].Amount.Cmp(out[j].Amount); c != 0 {
			return c > 0
		}
		return out[i].Category < out[j].Category
	})
	return out
}

// flush writes next to the store and, only if that succeeds, makes it the
// in-memory list. Callers hold s.mu.
func (s *Service) flush(ctx context.Context, next []model.Expense) error {
	if err := s.store.Save(ctx, next); err != nil {
		return fmt.Errorf("saving expenses: %w", err)
	}
	s.list = next
	return nil
}

func (s *Service) record(ctx context.Context, ev Event) {
	if s.recorder == nil {
		return
	}
	if err := s.recorder.Record(ctx, ev); err != nil {
		s.log.WithError(err).WithField("action", ev.Action).Warn("recording activity")
	}
}

func (s *Service) indexOf(expenseID string) int {
	for i, e := range s.list {
		if e.ID == expenseID {
			return i
		}
	}
	return -1
}

func (s *Service) freshID() string {
	for {
		n := id.New()
		if s.indexOf(n) < 0 {
			return n
		}
	}
}

func describe(e model.Expense) string {
	return fmt.Sprintf("%s %s %s via %s on %s", e.Amount.StringFixed(2), e.Currency, e.Category, e.Payment, e.Date)
}
