package rates

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dgraph-io/ristretto"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// ErrOffline is returned by Refresh when no provider is configured.
var ErrOffline = errors.New("live rate lookup disabled")

// DefaultTTL is how long a fetched table is served before refetching.
const DefaultTTL = time.Hour

// ManagerOptions configures a Manager.
type ManagerOptions struct {
	Base     string
	Provider Provider // nil means offline: always use the fallback
	Fallback map[string]decimal.Decimal
	TTL      time.Duration
	Logger   logrus.FieldLogger
	Now      func() time.Time
}

// Manager keeps the current rate table, refetching it after the TTL and
// falling back to a static table when the provider fails.
type Manager struct {
	base     string
	provider Provider
	fallback map[string]decimal.Decimal
	ttl      time.Duration
	log      logrus.FieldLogger
	now      func() time.Time

	cache     *ristretto.Cache
	closeOnce sync.Once

	mu        sync.Mutex // serializes refreshes
	lastErr   error
	listeners []func(Table, error)
}

// NewManager returns a Manager. Nothing is fetched until the first Current
// or Refresh call.
func NewManager(opts ManagerOptions) (*Manager, error) {
	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters:        100,
		MaxCost:            1 << 10,
		BufferItems:        64,
		IgnoreInternalCost: true,
	})
	if err != nil {
		return nil, fmt.Errorf("creating rate cache: %w", err)
	}

	m := &Manager{
		base:     opts.Base,
		provider: opts.Provider,
		fallback: opts.Fallback,
		ttl:      opts.TTL,
		log:      opts.Logger,
		now:      opts.Now,
		cache:    cache,
	}
	if m.base == "" {
		m.base = "USD"
	}
	if m.fallback == nil {
		m.fallback = DefaultFallback()
	}
	if m.ttl <= 0 {
		m.ttl = DefaultTTL
	}
	if m.now == nil {
		m.now = time.Now
	}
	if m.log == nil {
		l := logrus.New()
		l.SetLevel(logrus.PanicLevel)
		m.log = l
	}
	return m, nil
}

// Base returns the currency tables are quoted against.
func (m *Manager) Base() string { return m.base }

// Online reports whether a live provider is configured.
func (m *Manager) Online() bool { return m.provider != nil }

func (m *Manager) cacheKey() string { return "rates:" + m.base }

// Current returns the cached table, refreshing it when absent or expired.
// It always returns a usable table; a failed refresh yields the fallback.
func (m *Manager) Current(ctx context.Context) Table {
	if v, ok := m.cache.Get(m.cacheKey()); ok {
		if t, ok := v.(Table); ok {
			return t
		}
	}
	t, _ := m.Refresh(ctx)
	return t
}

// Refresh fetches a new table. On success the live rates, with gaps filled
// from the fallback, become current. On failure the fallback becomes current
// and the error is returned.
func (m *Manager) Refresh(ctx context.Context) (Table, error) {
	m.mu.Lock()
	t, err := m.fetch(ctx)
	m.lastErr = err
	m.cache.SetWithTTL(m.cacheKey(), t, 1, m.ttl)
	m.cache.Wait()
	listeners := append([](func(Table, error))(nil), m.listeners...)
	m.mu.Unlock()

	for _, fn := range listeners {
		fn(t, err)
	}
	return t, err
}

func (m *Manager) fetch(ctx context.Context) (Table, error) {
	fallback := FallbackTable(m.base, m.fallback, m.now())
	if m.provider == nil {
		m.log.WithField("base", m.base).Debug("offline, using fallback rates")
		return fallback, ErrOffline
	}

	live, err := m.provider.Fetch(ctx, m.base)
	if err != nil {
		m.log.WithError(err).WithField("base", m.base).Warn("rate lookup failed, using fallback rates")
		return fallback, err
	}
	m.log.WithFields(logrus.Fields{"base": m.base, "currencies": len(live.Rates)}).Info("fetched live rates")
	return live.FillFrom(fallback), nil
}

// LastError returns the error from the most recent refresh.
func (m *Manager) LastError() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastErr
}

// OnRefresh registers fn to run after every refresh.
func (m *Manager) OnRefresh(fn func(Table, error)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listeners = append(m.listeners, fn)
}

// Close releases the cache. It is safe to call more than once.
func (m *Manager) Close() {
	m.closeOnce.Do(m.cache.Close)
}
