package main

import (
	"net/http"
	"strings"

	"github.com/Simplici0/markup/internal/leads"
	"github.com/Simplici0/markup/internal/markup"
)

type loginViewData struct {
	baseViewData
}

type leadListItem struct {
	CreatedAt string
	Name      string
	Phone     string
	Sum       string
	Divisor   string
	CostBasis string
	Price     string
}

type leadsViewData struct {
	baseViewData
	Query string
	Leads []leadListItem
}

func (s *server) handleLoginForm(w http.ResponseWriter, r *http.Request) {
	if s.auth.isAuthenticated(r) {
		http.Redirect(w, r, "/admin/leads", http.StatusSeeOther)
		return
	}
	s.renderTemplate(w, http.StatusOK, "login.html", loginViewData{})
}

func (s *server) handleLoginSubmit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}

	email := strings.TrimSpace(r.FormValue("email"))
	password := r.FormValue("password")
	valid, err := s.auth.validateCredentials(r.Context(), email, password)
	if err != nil {
		s.log.WithError(err).Error("validate credentials", nil)
		http.Error(w, "authentication error", http.StatusInternalServerError)
		return
	}
	if !valid {
		s.log.Warn("admin login rejected", map[string]interface{}{"email": email})
		s.renderTemplate(w, http.StatusUnauthorized, "login.html", loginViewData{
			baseViewData: baseViewData{ErrorMessage: "Credenciais inválidas. Tente novamente."},
		})
		return
	}

	s.auth.setSessionCookie(w, email)
	http.Redirect(w, r, "/admin/leads", http.StatusSeeOther)
}

func (s *server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.auth.clearSessionCookie(w)
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

func (s *server) handleAdminLeads(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	list, err := s.leads.List(r.Context(), query)
	if err != nil {
		s.log.WithError(err).Error("list leads", map[string]interface{}{"query": query})
		http.Error(w, "failed to load leads", http.StatusInternalServerError)
		return
	}

	s.renderTemplate(w, http.StatusOK, "admin_leads.html", leadsViewData{
		baseViewData: baseViewData{Admin: true},
		Query:        query,
		Leads:        toLeadItems(list),
	})
}

func toLeadItems(list []leads.Lead) []leadListItem {
	items := make([]leadListItem, 0, len(list))
	for _, l := range list {
		items = append(items, leadListItem{
			CreatedAt: l.CreatedAt.Format("02/01/2006 15:04"),
			Name:      l.Name,
			Phone:     l.Phone,
			Sum:       markup.BRPercent(l.SumPercent),
			Divisor:   markup.BR(l.MarkupDivisor),
			CostBasis: markup.BR(l.CostBasis),
			Price:     markup.BR(l.Price),
		})
	}
	return items
}
