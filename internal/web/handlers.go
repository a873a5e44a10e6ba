package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/tally-dev/tally/internal/expenses"
	"github.com/tally-dev/tally/internal/model"
	"github.com/tally-dev/tally/internal/rates"
)

type pageRow struct {
	ID    string
	Short string
	Cells []string
}

type pageData struct {
	Status      string
	Error       bool
	Form        model.Draft
	Errors      map[string]string
	EditID      string
	Rows        []pageRow
	Total       model.Total
	Breakdown   []model.CategoryTotal
	Rates       rates.Table
	Currencies  []string
	Categories  []string
	Payments    []string
	Placeholder string
}

func (s *Server) page(r *http.Request) pageData {
	cat := s.svc.Catalog()
	tbl := s.rates.Current(r.Context())
	list := s.svc.List()

	rows := make([]pageRow, len(list))
	for i, e := range list {
		short := e.ID
		if len(short) > 8 {
			short = short[:8]
		}
		rows[i] = pageRow{ID: e.ID, Short: short, Cells: e.Row()}
	}
	return pageData{
		Status:      r.URL.Query().Get("msg"),
		Errors:      map[string]string{},
		Rows:        rows,
		Total:       s.svc.Total(tbl),
		Breakdown:   s.svc.Breakdown(tbl),
		Rates:       tbl,
		Currencies:  cat.Currencies(),
		Categories:  cat.Categories(),
		Payments:    cat.PaymentMethods(),
		Placeholder: model.DatePlaceholder,
	}
}

func (s *Server) render(w http.ResponseWriter, status int, data pageData) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := s.tmpl.ExecuteTemplate(w, "index.html", data); err != nil {
		s.log.WithError(err).Error("rendering page")
	}
}

func redirectWithStatus(w http.ResponseWriter, r *http.Request, msg string) {
	http.Redirect(w, r, "/?msg="+url.QueryEscape(msg), http.StatusSeeOther)
}

func draftFromForm(r *http.Request) model.Draft {
	return model.Draft{
		Amount:   r.PostFormValue("amount"),
		Currency: r.PostFormValue("currency"),
		Category: r.PostFormValue("category"),
		Payment:  r.PostFormValue("payment"),
		Date:     r.PostFormValue("date"),
	}
}

// formFailure re-renders the form with its input kept and the problems shown.
func (s *Server) formFailure(w http.ResponseWriter, r *http.Request, d model.Draft, editID string, err error) {
	data := s.page(r)
	data.Form = d
	data.EditID = editID
	data.Error = true

	var verrs expenses.ValidationErrors
	switch {
	case errors.As(err, &verrs):
		for _, ve := range verrs {
			data.Errors[ve.Field] = ve.Message
		}
		data.Status = "Fix the highlighted fields."
		s.render(w, http.StatusUnprocessableEntity, data)
	case errors.Is(err, expenses.ErrNotFound):
		data.Status = "Expense record not found."
		data.EditID = ""
		s.render(w, http.StatusNotFound, data)
	default:
		s.log.WithError(err).Error("saving expense")
		data.Status = "Error: " + err.Error()
		s.render(w, http.StatusInternalServerError, data)
	}
}

func (s *Server) handleIndex() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		data := s.page(r)
		if ref := r.URL.Query().Get("edit"); ref != "" {
			exp, err := s.svc.Resolve(ref)
			if err != nil {
				data.Status = "Expense record not found."
				data.Error = true
				s.render(w, http.StatusNotFound, data)
				return
			}
			data.EditID = exp.ID
			data.Form = exp.Draft()
			if data.Status == "" {
				data.Status = "Editing mode: make changes and press Update."
			}
		}
		s.render(w, http.StatusOK, data)
	}
}

func (s *Server) handleCreate() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		d := draftFromForm(r)
		if r.PostFormValue("action") == "today" {
			data := s.page(r)
			d.Date = s.now().Format(model.DateLayout)
			data.Form = d
			s.render(w, http.StatusOK, data)
			return
		}

		exp, err := s.svc.Add(r.Context(), d)
		if err != nil {
			s.formFailure(w, r, d, "", err)
			return
		}
		redirectWithStatus(w, r, fmt.Sprintf("Expense added (%s %s).", exp.Amount.StringFixed(2), exp.Currency))
	}
}

func (s *Server) handleUpdate() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		d := draftFromForm(r)
		if r.PostFormValue("action") == "today" {
			data := s.page(r)
			d.Date = s.now().Format(model.DateLayout)
			data.Form = d
			data.EditID = id
			s.render(w, http.StatusOK, data)
			return
		}

		if _, err := s.svc.Update(r.Context(), id, d); err != nil {
			s.formFailure(w, r, d, id, err)
			return
		}
		redirectWithStatus(w, r, "Expense updated.")
	}
}

func (s *Server) handleDelete() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		n, err := s.svc.Delete(r.Context(), id)
		if errors.Is(err, expenses.ErrNotFound) {
			redirectWithStatus(w, r, "Expense record not found.")
			return
		}
		if err != nil {
			s.log.WithError(err).Error("deleting expense")
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		redirectWithStatus(w, r, fmt.Sprintf("Deleted %d expense(s).", n))
	}
}

func (s *Server) handleClear() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.PostFormValue("confirm") != "yes" {
			redirectWithStatus(w, r, "Clear cancelled.")
			return
		}
		if _, err := s.svc.Clear(r.Context()); err != nil {
			s.log.WithError(err).Error("clearing expenses")
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		redirectWithStatus(w, r, "All expenses cleared.")
	}
}

func (s *Server) handleRefreshRates() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, err := s.rates.Refresh(r.Context()); err != nil {
			redirectWithStatus(w, r, "Rates refresh failed; using fallback.")
			return
		}
		redirectWithStatus(w, r, "Rates refreshed.")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) handleAPIExpenses() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list := s.svc.List()
		if list == nil {
			list = []model.Expense{}
		}
		writeJSON(w, http.StatusOK, list)
	}
}

type totalResponse struct {
	Total      model.Total           `json:"total"`
	ByCategory []model.CategoryTotal `json:"by_category"`
	Source     rates.Source          `json:"rate_source"`
	FetchedAt  time.Time             `json:"rates_fetched_at"`
}

func (s *Server) handleAPITotal() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tbl := s.rates.Current(r.Context())
		by := s.svc.Breakdown(tbl)
		if by == nil {
			by = []model.CategoryTotal{}
		}
		writeJSON(w, http.StatusOK, totalResponse{
			Total:      s.svc.Total(tbl),
			ByCategory: by,
			Source:     tbl.Source,
			FetchedAt:  tbl.FetchedAt,
		})
	}
}
