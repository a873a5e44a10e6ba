// Package ui is the terminal front end: an entry form above a table of
// expenses with a total row.
package ui

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/tally-dev/tally/internal/expenses"
	"github.com/tally-dev/tally/internal/model"
	"github.com/tally-dev/tally/internal/rates"
)

// RateSource supplies conversion tables.
type RateSource interface {
	Current(ctx context.Context) rates.Table
	Refresh(ctx context.Context) (rates.Table, error)
}

// Row is one line of the expense table.
type Row struct {
	ID    string // empty for the total row
	Cells []string
	Total bool
}

// Controller holds the editing state and carries out every action the
// screen offers. It never touches the terminal, so it can be tested alone.
type Controller struct {
	svc     *expenses.Service
	rates   RateSource
	now     func() time.Time
	editing string
	status  string
}

// NewController returns a controller with a status line describing how
// rates were loaded.
func NewController(ctx context.Context, svc *expenses.Service, rs RateSource, now func() time.Time) *Controller {
	if now == nil {
		now = time.Now
	}
	c := &Controller{svc: svc, rates: rs, now: now}
	tbl := rs.Current(ctx)
	switch {
	case tbl.Source == rates.SourceFallback:
		c.status = fmt.Sprintf("Loaded %d expenses. Using fallback currency rates (offline).", svc.Len())
	default:
		c.status = fmt.Sprintf("Loaded %d expenses.", svc.Len())
	}
	return c
}

// Status is the message for the status bar.
func (c *Controller) Status() string { return c.status }

// Editing returns the id of the expense loaded into the form, if any.
func (c *Controller) Editing() (string, bool) {
	return c.editing, c.editing != ""
}

// SubmitLabel is the caption of the form's submit button.
func (c *Controller) SubmitLabel() string {
	if c.editing != "" {
		return "Update"
	}
	return "Add"
}

// Today returns the current date in the form's layout.
func (c *Controller) Today() string {
	return c.now().Format(model.DateLayout)
}

// Currencies returns dropdown options with a leading blank.
func (c *Controller) Currencies() []string {
	return withBlank(c.svc.Catalog().Currencies())
}

// Categories returns dropdown options with a leading blank.
func (c *Controller) Categories() []string {
	return withBlank(c.svc.Catalog().Categories())
}

// PaymentMethods returns dropdown options with a leading blank.
func (c *Controller) PaymentMethods() []string {
	return withBlank(c.svc.Catalog().PaymentMethods())
}

func withBlank(opts []string) []string {
	return append([]string{""}, opts...)
}

// Submit adds d, or updates the expense being edited. On success the form
// should be cleared; on failure it keeps its contents.
func (c *Controller) Submit(ctx context.Context, d model.Draft) error {
	if c.editing != "" {
		exp, err := c.svc.Update(ctx, c.editing, d)
		if err != nil {
			c.status = failure(err, "Could not find expense to update.")
			return err
		}
		c.editing = ""
		c.status = fmt.Sprintf("Expense updated (%s %s).", exp.Amount.StringFixed(2), exp.Currency)
		return nil
	}

	exp, err := c.svc.Add(ctx, d)
	if err != nil {
		c.status = failure(err, "")
		return err
	}
	c.status = fmt.Sprintf("Expense added (%s %s).", exp.Amount.StringFixed(2), exp.Currency)
	return nil
}

func failure(err error, notFound string) string {
	var verrs expenses.ValidationErrors
	switch {
	case errors.As(err, &verrs):
		return "Fix the form: " + verrs.Summary()
	case errors.Is(err, expenses.ErrNotFound) && notFound != "":
		return notFound
	default:
		return "Error: " + err.Error()
	}
}

// Edit loads the expense in row into the form and returns its values.
func (c *Controller) Edit(row Row) (model.Draft, error) {
	switch {
	case row.Total:
		c.status = "Cannot edit total row."
		return model.Draft{}, errors.New("total row selected")
	case row.ID == "":
		c.status = "Select a row to edit."
		return model.Draft{}, errors.New("no row selected")
	}
	exp, err := c.svc.Get(row.ID)
	if err != nil {
		c.status = "Expense record not found."
		return model.Draft{}, err
	}
	c.editing = exp.ID
	c.status = "Editing mode: make changes and press Update."
	return exp.Draft(), nil
}

// CancelEdit leaves editing mode without saving.
func (c *Controller) CancelEdit() {
	if c.editing != "" {
		c.editing = ""
		c.status = "Edit cancelled."
	}
}

// Delete removes the expenses in rows. The total row is ignored.
func (c *Controller) Delete(ctx context.Context, rows ...Row) error {
	var ids []string
	for _, r := range rows {
		if !r.Total && r.ID != "" {
			ids = append(ids, r.ID)
		}
	}
	if len(ids) == 0 {
		c.status = "Select a row to delete."
		return errors.New("no row selected")
	}
	n, err := c.svc.Delete(ctx, ids...)
	if err != nil {
		c.status = failure(err, "Expense record not found.")
		return err
	}
	for _, id := range ids {
		if id == c.editing {
			c.editing = ""
		}
	}
	c.status = fmt.Sprintf("Deleted %d expense(s).", n)
	return nil
}

// Clear removes every expense. The caller asks for confirmation first.
func (c *Controller) Clear(ctx context.Context) error {
	if _, err := c.svc.Clear(ctx); err != nil {
		c.status = failure(err, "")
		return err
	}
	c.editing = ""
	c.status = "All expenses cleared."
	return nil
}

// RefreshRates fetches new rates. The fallback table is used on failure.
func (c *Controller) RefreshRates(ctx context.Context) error {
	_, err := c.rates.Refresh(ctx)
	c.NoteRefresh(err)
	return err
}

// NoteRefresh updates the status after a refresh done elsewhere.
func (c *Controller) NoteRefresh(err error) {
	if err != nil {
		c.status = "Rates refresh failed; using fallback."
		return
	}
	c.status = "Rates refreshed."
}

// Rows returns every expense followed by the total row.
func (c *Controller) Rows(ctx context.Context) []Row {
	list := c.svc.List()
	rows := make([]Row, 0, len(list)+1)
	for _, e := range list {
		rows = append(rows, Row{ID: e.ID, Cells: e.Row()})
	}
	total := c.svc.Total(c.rates.Current(ctx))
	rows = append(rows, Row{Cells: total.Row(), Total: true})
	return rows
}

// Header is the table's column captions.
func Header() []string {
	return []string{"Amount", "Currency", "Category", "Payment", "Date"}
}
