package web

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tally-dev/tally/internal/catalog"
	"github.com/tally-dev/tally/internal/expenses"
	"github.com/tally-dev/tally/internal/logging"
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
	table     rates.Table
	err       error
	refreshes int
}

func (s *stubRates) Current(context.Context) rates.Table { return s.table }
func (s *stubRates) Refresh(context.Context) (rates.Table, error) {
	s.refreshes++
	return s.table, s.err
}

type fixture struct {
	srv   *Server
	svc   *expenses.Service
	store *memStore
	rates *stubRates
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := &memStore{}
	svc, err := expenses.Open(context.Background(), store, catalog.NewService(catalog.Catalog{}), expenses.Options{})
	require.NoError(t, err)
	rs := &stubRates{table: rates.Table{
		Base:   "USD",
		Rates:  map[string]decimal.Decimal{"USD": decimal.NewFromInt(1), "GBP": decimal.RequireFromString("0.5")},
		Source: rates.SourceLive,
	}}
	srv, err := NewServer(svc, rs, logging.Discard())
	require.NoError(t, err)
	srv.now = func() time.Time { return time.Date(2025, 4, 5, 0, 0, 0, 0, time.UTC) }
	return &fixture{srv: srv, svc: svc, store: store, rates: rs}
}

func (f *fixture) do(method, target string, form url.Values) *httptest.ResponseRecorder {
	var body *strings.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	} else {
		body = strings.NewReader("")
	}
	req := httptest.NewRequest(method, target, body)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	rec := httptest.NewRecorder()
	f.srv.ServeHTTP(rec, req)
	return rec
}

func validForm() url.Values {
	return url.Values{
		"amount":   {"12.50"},
		"currency": {"GBP"},
		"category": {"Grocery"},
		"payment":  {"Cash"},
		"date":     {"2025-04-01"},
	}
}

func TestHealthz(t *testing.T) {
	f := newFixture(t)
	rec := f.do(http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

func TestIndex_Empty(t *testing.T) {
	f := newFixture(t)
	rec := f.do(http.MethodGet, "/", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `placeholder="YYYY-MM-DD"`)
	assert.Contains(t, body, "TOTAL")
	assert.Contains(t, body, "0.00")
	assert.Contains(t, body, `<option value="Credit Card"`)
}

func TestCreate(t *testing.T) {
	f := newFixture(t)
	rec := f.do(http.MethodPost, "/expenses", validForm())
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Contains(t, rec.Header().Get("Location"), "/?msg=")

	list := f.svc.List()
	require.Len(t, list, 1)
	assert.Equal(t, "GBP", list[0].Currency)
	assert.Len(t, f.store.list, 1, "flushed to the store")

	page := f.do(http.MethodGet, rec.Header().Get("Location"), nil).Body.String()
	assert.Contains(t, page, "Expense added (12.50 GBP).")
	assert.Contains(t, page, "25.00", "12.50 GBP at 0.5 is 25 USD")
}

func TestCreate_ValidationFailure(t *testing.T) {
	f := newFixture(t)
	form := validForm()
	form.Set("amount", "-1")
	form.Set("date", "YYYY-MM-DD")

	rec := f.do(http.MethodPost, "/expenses", form)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "must be greater than zero")
	assert.Contains(t, body, "is required")
	assert.Contains(t, body, `value="-1"`, "input is kept")
	assert.Empty(t, f.svc.List())
}

func TestCreate_TodayButton(t *testing.T) {
	f := newFixture(t)
	form := validForm()
	form.Set("date", "")
	form.Set("action", "today")

	rec := f.do(http.MethodPost, "/expenses", form)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `value="2025-04-05"`)
	assert.Empty(t, f.svc.List(), "today does not save")
}

func TestEditAndUpdate(t *testing.T) {
	f := newFixture(t)
	exp, err := f.svc.Add(context.Background(), validForm2Draft())
	require.NoError(t, err)

	rec := f.do(http.MethodGet, "/?edit="+exp.ID[:8], nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `action="/expenses/`+exp.ID+`"`)
	assert.Contains(t, body, "Update")
	assert.Contains(t, body, `value="7.00"`)

	form := validForm()
	form.Set("amount", "8")
	rec = f.do(http.MethodPost, "/expenses/"+exp.ID, form)
	require.Equal(t, http.StatusSeeOther, rec.Code)

	got, err := f.svc.Get(exp.ID)
	require.NoError(t, err)
	assert.Equal(t, "8.00", got.Amount.StringFixed(2))
}

func validForm2Draft() model.Draft {
	return model.Draft{Amount: "7", Currency: "USD", Category: "Gas", Payment: "Paypal", Date: "2025-04-02"}
}

func TestEdit_Unknown(t *testing.T) {
	f := newFixture(t)
	rec := f.do(http.MethodGet, "/?edit=nope", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = f.do(http.MethodPost, "/expenses/nope", validForm())
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDelete(t *testing.T) {
	f := newFixture(t)
	exp, err := f.svc.Add(context.Background(), validForm2Draft())
	require.NoError(t, err)

	rec := f.do(http.MethodPost, "/expenses/"+exp.ID+"/delete", url.Values{})
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Empty(t, f.svc.List())

	rec = f.do(http.MethodPost, "/expenses/"+exp.ID+"/delete", url.Values{})
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Contains(t, rec.Header().Get("Location"), url.QueryEscape("Expense record not found."))
}

func TestClear(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Add(context.Background(), validForm2Draft())
	require.NoError(t, err)

	rec := f.do(http.MethodPost, "/expenses/clear", url.Values{})
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Len(t, f.svc.List(), 1, "clear needs confirmation")

	rec = f.do(http.MethodPost, "/expenses/clear", url.Values{"confirm": {"yes"}})
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Empty(t, f.svc.List())
	assert.NotNil(t, f.store.list)
}

func TestRefreshRates(t *testing.T) {
	f := newFixture(t)
	rec := f.do(http.MethodPost, "/rates/refresh", url.Values{})
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, 1, f.rates.refreshes)
	assert.Contains(t, rec.Header().Get("Location"), url.QueryEscape("Rates refreshed."))

	f.rates.err = errors.New("down")
	rec = f.do(http.MethodPost, "/rates/refresh", url.Values{})
	assert.Contains(t, rec.Header().Get("Location"), url.QueryEscape("Rates refresh failed; using fallback."))
}

func TestAPIExpenses(t *testing.T) {
	f := newFixture(t)
	rec := f.do(http.MethodGet, "/api/expenses", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "[]", rec.Body.String())

	exp, err := f.svc.Add(context.Background(), validForm2Draft())
	require.NoError(t, err)

	rec = f.do(http.MethodGet, "/api/expenses", nil)
	var got []model.Expense
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got, 1)
	assert.Equal(t, exp.ID, got[0].ID)
}

func TestAPITotal(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.svc.Add(ctx, validForm2Draft())
	require.NoError(t, err)
	_, err = f.svc.Add(ctx, model.Draft{Amount: "100", Currency: "EGP", Category: "Rental", Payment: "Cash", Date: "2025-04-03"})
	require.NoError(t, err)

	rec := f.do(http.MethodGet, "/api/total", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var got struct {
		Total struct {
			Amount      string   `json:"amount"`
			Currency    string   `json:"currency"`
			Count       int      `json:"count"`
			Unconverted []string `json:"unconverted"`
		} `json:"total"`
		ByCategory []struct {
			Category string `json:"category"`
		} `json:"by_category"`
		Source string `json:"rate_source"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "7", got.Total.Amount)
	assert.Equal(t, "USD", got.Total.Currency)
	assert.Equal(t, 2, got.Total.Count)
	assert.Equal(t, []string{"EGP"}, got.Total.Unconverted)
	assert.Len(t, got.ByCategory, 2)
	assert.Equal(t, "live", got.Source)
}

func TestListenAndServe_StopsOnCancel(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- f.srv.ListenAndServe(ctx, "127.0.0.1:0") }()

	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
