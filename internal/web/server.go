// Package web serves the expense form and table to a local browser.
package web

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"

	"github.com/tally-dev/tally/internal/expenses"
	"github.com/tally-dev/tally/internal/rates"
)

//go:embed templates/*.html
var templatesFS embed.FS

// RateSource supplies conversion tables.
type RateSource interface {
	Current(ctx context.Context) rates.Table
	Refresh(ctx context.Context) (rates.Table, error)
}

// Server renders the expense page and a small JSON API.
type Server struct {
	svc    *expenses.Service
	rates  RateSource
	log    logrus.FieldLogger
	tmpl   *template.Template
	now    func() time.Time
	router chi.Router
}

// NewServer builds the router.
func NewServer(svc *expenses.Service, rs RateSource, log logrus.FieldLogger) (*Server, error) {
	tmpl, err := template.New("").Funcs(template.FuncMap{
		"selected": func(a, b string) bool { return a == b },
	}).ParseFS(templatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parsing templates: %w", err)
	}

	s := &Server{svc: svc, rates: rs, log: log, tmpl: tmpl, now: time.Now}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.requestLogger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})

	r.Get("/", s.handleIndex())
	r.Route("/expenses", func(r chi.Router) {
		r.Post("/", s.handleCreate())
		r.Post("/clear", s.handleClear())
		r.Post("/{id}", s.handleUpdate())
		r.Post("/{id}/delete", s.handleDelete())
	})
	r.Post("/rates/refresh", s.handleRefreshRates())

	r.Route("/api", func(r chi.Router) {
		r.Get("/expenses", s.handleAPIExpenses())
		r.Get("/total", s.handleAPITotal())
	})

	s.router = r
	return s, nil
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.log.WithFields(logrus.Fields{
			"method":     r.Method,
			"path":       r.URL.Path,
			"status":     ww.Status(),
			"bytes":      ww.BytesWritten(),
			"duration":   time.Since(start).String(),
			"request_id": middleware.GetReqID(r.Context()),
		}).Debug("http request")
	})
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.WithField("addr", addr).Info("web server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serving http: %w", err)
	case <-ctx.Done():
	}

	s.log.Info("shutting down web server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down http server: %w", err)
	}
	return nil
}
