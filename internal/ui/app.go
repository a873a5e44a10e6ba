package ui

import (
	"context"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/tally-dev/tally/internal/model"
	"github.com/tally-dev/tally/internal/rates"
)

const (
	pageMain    = "main"
	pageConfirm = "confirm"

	labelAmount   = "Amount"
	labelCurrency = "Currency"
	labelCategory = "Category"
	labelPayment  = "Payment Method"
	labelDate     = "Date"
)

// App is the tview screen. All behaviour lives in the Controller; App only
// moves values between widgets and the controller.
type App struct {
	ctx  context.Context
	ctrl *Controller

	app      *tview.Application
	pages    *tview.Pages
	form     *tview.Form
	amount   *tview.InputField
	currency *tview.DropDown
	category *tview.DropDown
	payment  *tview.DropDown
	date     *tview.InputField
	table    *tview.Table
	status   *tview.TextView

	rows []Row

	// queue runs fn on the event loop and redraws.
	queue func(fn func())
}

// RefreshNotifier reports every finished rate refresh, whoever started it.
type RefreshNotifier interface {
	OnRefresh(fn func(rates.Table, error))
}

// NewApp builds the screen around ctrl.
func NewApp(ctx context.Context, ctrl *Controller) *App {
	a := &App{ctx: ctx, ctrl: ctrl, app: tview.NewApplication()}
	a.queue = func(fn func()) { a.app.QueueUpdateDraw(fn) }

	a.amount = tview.NewInputField().SetLabel(labelAmount).SetFieldWidth(14)
	a.currency = tview.NewDropDown().SetLabel(labelCurrency).SetOptions(ctrl.Currencies(), nil).SetCurrentOption(0)
	a.category = tview.NewDropDown().SetLabel(labelCategory).SetOptions(ctrl.Categories(), nil).SetCurrentOption(0)
	a.payment = tview.NewDropDown().SetLabel(labelPayment).SetOptions(ctrl.PaymentMethods(), nil).SetCurrentOption(0)
	a.date = tview.NewInputField().SetLabel(labelDate).SetFieldWidth(12).SetPlaceholder(model.DatePlaceholder)

	a.form = tview.NewForm().
		AddFormItem(a.amount).
		AddFormItem(a.currency).
		AddFormItem(a.category).
		AddFormItem(a.payment).
		AddFormItem(a.date).
		AddButton("Add", a.submit).
		AddButton("Today", a.today).
		AddButton("Edit", a.editSelected).
		AddButton("Delete", a.deleteSelected).
		AddButton("Refresh Rates", a.refreshRates).
		AddButton("Clear All", a.confirmClear)
	a.form.SetCancelFunc(a.cancel)
	a.form.SetBorder(true)
	a.form.SetTitle(" New expense ")

	a.table = tview.NewTable().SetSelectable(true, false).SetFixed(1, 0)
	a.table.SetBorder(true)
	a.table.SetTitle(" Expenses (Enter: edit, d: delete, Tab: form, q: quit) ")
	a.table.SetSelectedFunc(func(row, _ int) { a.editRow(row) })
	a.table.SetInputCapture(a.tableKeys)

	a.status = tview.NewTextView().SetDynamicColors(false)

	layout := tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(a.form, 13, 0, true).
		AddItem(a.table, 0, 1, false).
		AddItem(a.status, 1, 0, false)

	a.pages = tview.NewPages().AddPage(pageMain, layout, true, true)
	a.app.SetRoot(a.pages, true).EnableMouse(true)

	a.refresh()
	return a
}

// Run blocks until the user quits.
func (a *App) Run() error {
	return a.app.Run()
}

// Stop ends Run.
func (a *App) Stop() { a.app.Stop() }

// Follow redraws the screen after each refresh src reports. The Refresh
// Rates button relies on it too.
func (a *App) Follow(src RefreshNotifier) {
	src.OnRefresh(func(_ rates.Table, err error) { a.RatesChanged(err) })
}

// RatesChanged redraws after a background refresh. Safe to call from any
// goroutine.
func (a *App) RatesChanged(err error) {
	a.queue(func() {
		a.ctrl.NoteRefresh(err)
		a.refresh()
	})
}

func (a *App) refresh() {
	a.rows = a.ctrl.Rows(a.ctx)

	selected, _ := a.table.GetSelection()
	a.table.Clear()
	for col, h := range Header() {
		a.table.SetCell(0, col, tview.NewTableCell(h).
			SetAttributes(tcell.AttrBold).
			SetSelectable(false).
			SetExpansion(1))
	}
	for i, r := range a.rows {
		for col, text := range r.Cells {
			cell := tview.NewTableCell(text).SetExpansion(1)
			if col == 0 {
				cell.SetAlign(tview.AlignRight)
			}
			if r.Total {
				cell.SetTextColor(tcell.ColorYellow).SetAttributes(tcell.AttrBold)
			}
			a.table.SetCell(i+1, col, cell)
		}
	}
	if selected < 1 || selected > len(a.rows) {
		selected = 1
	}
	a.table.Select(selected, 0)

	if a.form.GetButtonCount() > 0 {
		a.form.GetButton(0).SetLabel(a.ctrl.SubmitLabel())
	}
	a.status.SetText(a.ctrl.Status())
}

func (a *App) draft() model.Draft {
	_, currency := a.currency.GetCurrentOption()
	_, category := a.category.GetCurrentOption()
	_, payment := a.payment.GetCurrentOption()
	return model.Draft{
		Amount:   a.amount.GetText(),
		Currency: currency,
		Category: category,
		Payment:  payment,
		Date:     a.date.GetText(),
	}
}

func (a *App) fill(d model.Draft) {
	a.amount.SetText(d.Amount)
	a.currency.SetCurrentOption(indexOf(a.ctrl.Currencies(), d.Currency))
	a.category.SetCurrentOption(indexOf(a.ctrl.Categories(), d.Category))
	a.payment.SetCurrentOption(indexOf(a.ctrl.PaymentMethods(), d.Payment))
	a.date.SetText(d.Date)
}

func indexOf(opts []string, v string) int {
	for i, o := range opts {
		if o == v {
			return i
		}
	}
	return 0
}

func (a *App) submit() {
	if err := a.ctrl.Submit(a.ctx, a.draft()); err == nil {
		a.fill(model.Draft{})
		a.form.SetFocus(0)
	}
	a.refresh()
}

func (a *App) today() {
	a.date.SetText(a.ctrl.Today())
}

func (a *App) selectedRow() Row {
	r, _ := a.table.GetSelection()
	if r < 1 || r > len(a.rows) {
		return Row{}
	}
	return a.rows[r-1]
}

func (a *App) editRow(tableRow int) {
	if tableRow < 1 || tableRow > len(a.rows) {
		return
	}
	if d, err := a.ctrl.Edit(a.rows[tableRow-1]); err == nil {
		a.fill(d)
		a.form.SetFocus(0)
		a.app.SetFocus(a.form)
	}
	a.refresh()
}

func (a *App) editSelected() {
	r, _ := a.table.GetSelection()
	a.editRow(r)
}

func (a *App) deleteSelected() {
	_ = a.ctrl.Delete(a.ctx, a.selectedRow())
	a.refresh()
}

func (a *App) cancel() {
	if _, editing := a.ctrl.Editing(); editing {
		a.ctrl.CancelEdit()
		a.fill(model.Draft{})
		a.refresh()
		return
	}
	a.app.SetFocus(a.table)
}

func (a *App) refreshRates() {
	a.status.SetText("Refreshing rates...")
	// Follow's listener redraws once the refresh finishes.
	go a.ctrl.rates.Refresh(a.ctx)
}

func (a *App) confirmClear() {
	modal := tview.NewModal().
		SetText("Delete ALL expenses?").
		AddButtons([]string{"Cancel", "Delete all"}).
		SetDoneFunc(func(_ int, label string) {
			if label == "Delete all" {
				_ = a.ctrl.Clear(a.ctx)
				a.fill(model.Draft{})
			}
			a.pages.RemovePage(pageConfirm)
			a.refresh()
			a.app.SetFocus(a.form)
		})
	a.pages.AddPage(pageConfirm, modal, false, true)
	a.app.SetFocus(modal)
}

func (a *App) tableKeys(ev *tcell.EventKey) *tcell.EventKey {
	switch ev.Key() {
	case tcell.KeyTab, tcell.KeyEscape:
		a.app.SetFocus(a.form)
		return nil
	case tcell.KeyDelete:
		a.deleteSelected()
		return nil
	}
	switch ev.Rune() {
	case 'd':
		a.deleteSelected()
		return nil
	case 'e':
		a.editSelected()
		return nil
	case 'r':
		a.refreshRates()
		return nil
	case 'q':
		a.app.Stop()
		return nil
	}
	return ev
}
