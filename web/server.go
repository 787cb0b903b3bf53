// Package web serves the shopping list to the family's browsers: a password gate, a form to add items, the
// checklist grouped by store, and archive and export actions.
package web

import (
	"bytes"
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/nicolagi/shopping"
	"github.com/nicolagi/shopping/export"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
)

const (
	wrongPassword   = "Falsches Passwort!"
	shutdownTimeout = 5 * time.Second
)

// Server is an http.Handler for the list pages.
type Server struct {
	service  *shopping.Service
	password string
	stores   []string
	symbols  []string
	pdf      bool

	sessions *sessions
	metrics  *metrics
	mux      *http.ServeMux
}

// Option configures a Server.
type Option func(*Server)

// WithStores sets the store choices of the add form. Groups follow this order on the page.
func WithStores(stores ...string) Option {
	return func(s *Server) {
		s.stores = stores
	}
}

// WithSymbols sets the symbol choices of the add form.
func WithSymbols(symbols ...string) Option {
	return func(s *Server) {
		s.symbols = symbols
	}
}

// New returns a server guarding service with password, which must not be empty.
func New(service *shopping.Service, password string, opts ...Option) (*Server, error) {
	if password == "" {
		return nil, errors.New("a password is required: set web.password or SHOPPING_PASSWORD")
	}
	s := &Server{
		service:  service,
		password: password,
		stores:   []string{shopping.DefaultStore},
		sessions: newSessions(),
		metrics:  newMetrics(),
		mux:      http.NewServeMux(),
	}
	for _, opt := range opts {
		opt(s)
	}
	_, err := export.NewRenderer("pdf")
	s.pdf = err == nil

	s.mux.HandleFunc("GET /{$}", s.handleIndex)
	s.mux.HandleFunc("POST /login", s.handleLogin)
	s.mux.HandleFunc("POST /logout", s.handleLogout)
	s.mux.HandleFunc("POST /items", s.requireLogin(s.handleAdd))
	s.mux.HandleFunc("POST /items/{id}/toggle", s.requireLogin(s.handleToggle))
	s.mux.HandleFunc("GET /items/{id}/delete", s.requireLogin(s.handleConfirmDelete))
	s.mux.HandleFunc("POST /items/{id}/delete", s.requireLogin(s.handleDelete))
	s.mux.HandleFunc("POST /archive", s.requireLogin(s.handleArchive))
	s.mux.HandleFunc("GET /export", s.requireLogin(s.handleExport))
	s.mux.Handle("GET /metrics", promhttp.HandlerFor(s.metrics.registry, promhttp.HandlerOpts{}))
	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// ListenAndServe serves on addr until ctx is done, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() {
		errc <- srv.ListenAndServe()
	}()
	log.WithField("addr", addr).Info("Serving")
	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(sctx)
	}
}

func (s *Server) requireLogin(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !s.sessions.valid(r) {
			http.Redirect(w, r, "/", http.StatusSeeOther)
			return
		}
		h(w, r)
	}
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if !s.sessions.valid(r) {
		s.render(w, http.StatusOK, "login", pageData{})
		return
	}
	data := pageData{}
	q := r.URL.Query()
	if id := q.Get("added"); id != "" {
		data.Notice = s.addedNotice(r.Context(), id)
	}
	if name := q.Get("archived"); name != "" {
		data.Notice = fmt.Sprintf("Liste archiviert als %s.", name)
	}
	s.renderList(w, r, http.StatusOK, data)
}

func (s *Server) addedNotice(ctx context.Context, id string) string {
	items, err := s.service.Items(ctx)
	if err != nil {
		return ""
	}
	for _, item := range items {
		if item.ID == id {
			return strings.TrimSpace(fmt.Sprintf("%s %s wurde hinzugefügt!", item.Symbol, item.Name))
		}
	}
	return ""
}

func (s *Server) renderList(w http.ResponseWriter, r *http.Request, status int, data pageData) {
	items, err := s.service.Items(r.Context())
	if err != nil {
		s.fail(w, "list", err)
		return
	}
	for _, item := range items {
		if item.Done {
			data.Done++
		} else {
			data.Pending++
		}
	}
	s.metrics.items.WithLabelValues("pending").Set(float64(data.Pending))
	s.metrics.items.WithLabelValues("done").Set(float64(data.Done))

	sort.Stable(shopping.ItemsByStoreAndCategory(items))
	data.Groups = shopping.GroupItems(items, shopping.ByStore)
	shopping.SortGroups(data.Groups, s.stores...)
	data.Stores = s.stores
	data.Symbols = s.symbols
	data.Categories = s.service.Categorizer().Categories()
	data.PDF = s.pdf
	if archives, err := s.service.Archives(r.Context()); err == nil {
		data.Archives = archives
	}
	s.render(w, status, "list", data)
}

func (s *Server) render(w http.ResponseWriter, status int, name string, data pageData) {
	var buf bytes.Buffer
	if err := pages.ExecuteTemplate(&buf, name, data); err != nil {
		s.fail(w, "render "+name, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if _, err := buf.WriteTo(w); err != nil {
		log.WithField("cause", err).Debug("Could not write response")
	}
}

func (s *Server) fail(w http.ResponseWriter, op string, err error) {
	log.WithFields(log.Fields{
		"op":    op,
		"cause": err,
	}).Warning("Request failed")
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, shopping.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, shopping.ErrConflict):
		status = http.StatusConflict
	}
	http.Error(w, http.StatusText(status), status)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	given := r.PostFormValue("password")
	if subtle.ConstantTimeCompare([]byte(given), []byte(s.password)) != 1 {
		s.metrics.logins.WithLabelValues("denied").Inc()
		s.render(w, http.StatusUnauthorized, "login", pageData{Error: wrongPassword})
		return
	}
	token, err := s.sessions.create()
	if err != nil {
		s.fail(w, "login", err)
		return
	}
	s.metrics.logins.WithLabelValues("ok").Inc()
	http.SetCookie(w, sessionCookieFor(token, int(sessionTTL/time.Second)))
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.sessions.destroy(r)
	http.SetCookie(w, sessionCookieFor("", -1))
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handleAdd(w http.ResponseWriter, r *http.Request) {
	d := shopping.Draft{
		Name:      r.PostFormValue("name"),
		Quantity:  r.PostFormValue("quantity"),
		Category:  r.PostFormValue("category"),
		Store:     r.PostFormValue("store"),
		OrderedBy: r.PostFormValue("ordered_by"),
		Symbol:    r.PostFormValue("symbol"),
	}
	item, err := s.service.Add(r.Context(), d)
	s.metrics.observe("add", err)
	if errors.Is(err, shopping.ErrEmptyName) {
		s.renderList(w, r, http.StatusBadRequest, pageData{Error: "Bitte einen Produktnamen eingeben."})
		return
	}
	if err != nil {
		s.fail(w, "add", err)
		return
	}
	http.Redirect(w, r, "/?added="+item.ID, http.StatusSeeOther)
}

func (s *Server) handleToggle(w http.ResponseWriter, r *http.Request) {
	_, err := s.service.Toggle(r.Context(), r.PathValue("id"))
	s.metrics.observe("toggle", err)
	if err != nil {
		s.fail(w, "toggle", err)
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handleConfirmDelete(w http.ResponseWriter, r *http.Request) {
	items, err := s.service.Items(r.Context())
	if err != nil {
		s.fail(w, "confirm delete", err)
		return
	}
	id := r.PathValue("id")
	for _, item := range items {
		if item.ID == id {
			s.render(w, http.StatusOK, "confirm", pageData{Item: item})
			return
		}
	}
	s.fail(w, "confirm delete", fmt.Errorf("%s: %w", id, shopping.ErrNotFound))
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	err := s.service.Delete(r.Context(), r.PathValue("id"))
	s.metrics.observe("delete", err)
	if err != nil {
		s.fail(w, "delete", err)
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handleArchive(w http.ResponseWriter, r *http.Request) {
	info, err := s.service.Archive(r.Context(), r.PostFormValue("clear") != "")
	s.metrics.observe("archive", err)
	if err != nil {
		s.fail(w, "archive", err)
		return
	}
	http.Redirect(w, r, "/?archived="+info.Name(), http.StatusSeeOther)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	renderer, err := export.NewRenderer(q.Get("format"))
	if errors.Is(err, export.ErrUnavailable) {
		s.renderList(w, r, http.StatusNotImplemented, pageData{Error: "Dieses Exportformat ist in dieser Version nicht verfügbar."})
		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	group := shopping.ByCategory
	if g, ok := shopping.ParseGroupKey(q.Get("group")); ok && q.Get("group") != "" {
		group = g
	}
	items, err := s.service.Items(r.Context())
	if err != nil {
		s.fail(w, "export", err)
		return
	}
	order := s.service.Categorizer().Categories()
	if group == shopping.ByStore {
		order = s.stores
	}
	now := time.Now()
	b, err := renderer.Render(items, export.Options{Group: group, Order: order, Created: now})
	s.metrics.observe("export", err)
	if err != nil {
		s.fail(w, "export", err)
		return
	}
	w.Header().Set("Content-Type", renderer.ContentType())
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=%q", "einkaufsliste_"+now.Format("2006-01-02")+renderer.Extension()))
	if _, err := w.Write(b); err != nil {
		log.WithField("cause", err).Debug("Could not write response")
	}
}
