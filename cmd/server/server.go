package main

import (
	"html/template"
	"net/http"
	"path/filepath"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Simplici0/markup/internal/leads"
	"github.com/Simplici0/markup/internal/logger"
	"github.com/Simplici0/markup/internal/markup"
	"github.com/Simplici0/markup/internal/notify"
	"github.com/Simplici0/markup/internal/sessionstore"
	"github.com/Simplici0/markup/internal/wizard"
)

type server struct {
	auth       *authService
	leads      *leads.Store
	sessions   sessionstore.Store
	dispatcher *notify.Dispatcher
	log        logger.Logger
	webDir     string
	now        func() time.Time
}

type baseViewData struct {
	ErrorMessage   string
	SuccessMessage string
	Admin          bool
}

var templateFuncs = template.FuncMap{
	"br":        markup.BR,
	"brPercent": markup.BRPercent,
	"fixed2":    markup.Fixed2,
	"fixed3":    markup.Fixed3,
	"stepLabel": func(s wizard.Step) string { return s.Label() },
}

func (s *server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.requestLogger)

	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.Dir(filepath.Join(s.webDir, "static")))))
	r.Handle("/metrics", promhttp.Handler())

	r.Get("/", s.handleWizard)
	r.Route("/wizard", func(r chi.Router) {
		r.Post("/fields", s.handleFields)
		r.Post("/advance", s.handleAdvance)
		r.Post("/back", s.handleBack)
		r.Post("/jump/{step}", s.handleJump)
		r.Post("/submit", s.handleSubmit)
		r.Post("/restart", s.handleRestart)
		r.Post("/price", s.handlePrice)
	})
	r.Get("/result/composition", s.handleComposition)

	r.Get("/login", s.handleLoginForm)
	r.Post("/login", s.handleLoginSubmit)
	r.Post("/logout", s.handleLogout)
	r.Group(func(r chi.Router) {
		r.Use(s.auth.requireAdmin)
		r.Get("/admin/leads", s.handleAdminLeads)
	})

	return r
}

func (s *server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.log.Debug("http request", map[string]interface{}{
			"method":     r.Method,
			"path":       r.URL.Path,
			"status":     ww.Status(),
			"duration":   time.Since(start).String(),
			"request_id": middleware.GetReqID(r.Context()),
		})
	})
}

func (s *server) renderTemplate(w http.ResponseWriter, status int, page string, data any) {
	templates, err := template.New("layout.html").Funcs(templateFuncs).ParseFiles(
		filepath.Join(s.webDir, "templates", "layout.html"),
		filepath.Join(s.webDir, "templates", page),
	)
	if err != nil {
		s.log.WithError(err).Error("parse template", map[string]interface{}{"page": page})
		http.Error(w, "failed to parse template", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := templates.ExecuteTemplate(w, "layout.html", data); err != nil {
		s.log.WithError(err).Error("render template", map[string]interface{}{"page": page})
	}
}
