package ui

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tally-dev/tally/internal/catalog"
	"github.com/tally-dev/tally/internal/expenses"
	"github.com/tally-dev/tally/internal/model"
	"github.com/tally-dev/tally/internal/rates"
)

type memStore struct{ list []model.Expense }

func (m *memStore) Load(context.Context) ([]model.Expense, error) { return m.list, nil }
func (m *memStore) Save(_ context.Context, l []model.Expense) error {
	m.list = l
	return nil
}

type stubRates struct {
	table rates.Table
	err   error
}

func (s *stubRates) Current(context.Context) rates.Table { return s.table }
func (s *stubRates) Refresh(context.Context) (rates.Table, error) {
	return s.table, s.err
}

func liveRates() *stubRates {
	return &stubRates{table: rates.Table{
		Base:   "USD",
		Rates:  map[string]decimal.Decimal{"USD": decimal.NewFromInt(1), "GBP": decimal.RequireFromString("0.5")},
		Source: rates.SourceLive,
	}}
}

func newController(t *testing.T, rs *stubRates) *Controller {
	t.Helper()
	svc, err := expenses.Open(context.Background(), &memStore{}, catalog.NewService(catalog.Catalog{}), expenses.Options{})
	require.NoError(t, err)
	now := func() time.Time { return time.Date(2025, 6, 7, 8, 0, 0, 0, time.UTC) }
	return NewController(context.Background(), svc, rs, now)
}

func validDraft(amount, currency string) model.Draft {
	return model.Draft{Amount: amount, Currency: currency, Category: "Gas", Payment: "Cash", Date: "2025-06-01"}
}

func TestNewController_Status(t *testing.T) {
	c := newController(t, liveRates())
	assert.Equal(t, "Loaded 0 expenses.", c.Status())

	offline := &stubRates{table: rates.FallbackTable("USD", rates.DefaultFallback(), time.Time{})}
	c = newController(t, offline)
	assert.Contains(t, c.Status(), "fallback currency rates")
}

func TestDropdownOptionsStartBlank(t *testing.T) {
	c := newController(t, liveRates())
	assert.Equal(t, []string{"", "USD", "GBP", "EUR", "EGP"}, c.Currencies())
	assert.Equal(t, "", c.Categories()[0])
	assert.Equal(t, []string{"", "Cash", "Credit Card", "Paypal"}, c.PaymentMethods())
}

func TestToday(t *testing.T) {
	c := newController(t, liveRates())
	assert.Equal(t, "2025-06-07", c.Today())
}

func TestSubmitAddsAndShowsTotal(t *testing.T) {
	c := newController(t, liveRates())
	ctx := context.Background()

	require.NoError(t, c.Submit(ctx, validDraft("10", "USD")))
	require.NoError(t, c.Submit(ctx, validDraft("5", "GBP")))
	assert.Equal(t, "Expense added (5.00 GBP).", c.Status())

	rows := c.Rows(ctx)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"10.00", "USD", "Gas", "Cash", "2025-06-01"}, rows[0].Cells)
	assert.NotEmpty(t, rows[0].ID)
	assert.True(t, rows[2].Total)
	assert.Equal(t, []string{model.TotalLabel, "20.00", "USD", "", ""}, rows[2].Cells)
}

func TestSubmitValidationFailure(t *testing.T) {
	c := newController(t, liveRates())
	err := c.Submit(context.Background(), model.Draft{Date: model.DatePlaceholder})
	require.Error(t, err)
	assert.Contains(t, c.Status(), "Fix the form: amount: is required")
	assert.Len(t, c.Rows(context.Background()), 1, "only the total row")
}

func TestEditFlow(t *testing.T) {
	c := newController(t, liveRates())
	ctx := context.Background()
	require.NoError(t, c.Submit(ctx, validDraft("10", "USD")))
	row := c.Rows(ctx)[0]

	d, err := c.Edit(row)
	require.NoError(t, err)
	assert.Equal(t, "10.00", d.Amount)
	assert.Equal(t, "Update", c.SubmitLabel())
	id, editing := c.Editing()
	assert.True(t, editing)
	assert.Equal(t, row.ID, id)

	d.Amount = "12"
	require.NoError(t, c.Submit(ctx, d))
	assert.Equal(t, "Add", c.SubmitLabel())
	assert.Contains(t, c.Status(), "Expense updated")

	rows := c.Rows(ctx)
	require.Len(t, rows, 2)
	assert.Equal(t, row.ID, rows[0].ID)
	assert.Equal(t, "12.00", rows[0].Cells[0])
}

func TestEditTotalRowRefused(t *testing.T) {
	c := newController(t, liveRates())
	rows := c.Rows(context.Background())

	_, err := c.Edit(rows[len(rows)-1])
	require.Error(t, err)
	assert.Equal(t, "Cannot edit total row.", c.Status())

	_, err = c.Edit(Row{})
	require.Error(t, err)
	assert.Equal(t, "Select a row to edit.", c.Status())
}

func TestCancelEdit(t *testing.T) {
	c := newController(t, liveRates())
	ctx := context.Background()
	require.NoError(t, c.Submit(ctx, validDraft("10", "USD")))
	_, err := c.Edit(c.Rows(ctx)[0])
	require.NoError(t, err)

	c.CancelEdit()
	_, editing := c.Editing()
	assert.False(t, editing)
	assert.Equal(t, "Edit cancelled.", c.Status())
}

func TestDelete(t *testing.T) {
	c := newController(t, liveRates())
	ctx := context.Background()
	require.NoError(t, c.Submit(ctx, validDraft("10", "USD")))
	require.NoError(t, c.Submit(ctx, validDraft("20", "USD")))
	rows := c.Rows(ctx)

	_, err := c.Edit(rows[0])
	require.NoError(t, err)

	require.NoError(t, c.Delete(ctx, rows[0], rows[2]))
	assert.Equal(t, "Deleted 1 expense(s).", c.Status())
	_, editing := c.Editing()
	assert.False(t, editing, "deleting the edited expense leaves edit mode")
	assert.Len(t, c.Rows(ctx), 2)

	err = c.Delete(ctx, c.Rows(ctx)[1])
	require.Error(t, err)
	assert.Equal(t, "Select a row to delete.", c.Status())
}

func TestClear(t *testing.T) {
	c := newController(t, liveRates())
	ctx := context.Background()
	require.NoError(t, c.Submit(ctx, validDraft("10", "USD")))

	require.NoError(t, c.Clear(ctx))
	assert.Equal(t, "All expenses cleared.", c.Status())
	rows := c.Rows(ctx)
	require.Len(t, rows, 1)
	assert.Equal(t, "0.00", rows[0].Cells[1])
}

func TestRefreshRates(t *testing.T) {
	rs := liveRates()
	c := newController(t, rs)

	require.NoError(t, c.RefreshRates(context.Background()))
	assert.Equal(t, "Rates refreshed.", c.Status())

	rs.err = errors.New("offline")
	require.Error(t, c.RefreshRates(context.Background()))
	assert.Equal(t, "Rates refresh failed; using fallback.", c.Status())
}
