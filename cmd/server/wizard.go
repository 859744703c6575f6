package main

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/Simplici0/markup/internal/markup"
	"github.com/Simplici0/markup/internal/metrics"
	"github.com/Simplici0/markup/internal/notify"
	"github.com/Simplici0/markup/internal/sessionstore"
	"github.com/Simplici0/markup/internal/wizard"
)

const wizardCookieName = "markup_session"

type stepView struct {
	Number  int
	Label   string
	Current bool
	Reached bool
}

type fieldView struct {
	Name        string
	Label       string
	Value       string
	Error       string
	InputMode   string
	Disableable bool
	Disabled    bool
}

type resultRow struct {
	Label    string
	Percent  string
	Disabled bool
}

type resultView struct {
	Rows      []resultRow
	Sum       string
	Fraction  string
	Divisor   string
	CostBasis string
	Price     string
	CostError string
}

type wizardViewData struct {
	baseViewData
	Step       int
	StepLabel  string
	Steps      []stepView
	Fields     []fieldView
	TotalError string
	First      bool
	LastInput  bool
	Result     *resultView
}

type compositionResponse struct {
	CostBasis     float64        `json:"costBasis"`
	Price         float64        `json:"price"`
	MarkupDivisor float64        `json:"markupDivisor"`
	Slices        []markup.Slice `json:"slices"`
}

// loadSession returns the visitor's session, starting a new one (and setting
// the cookie) when none is stored.
func (s *server) loadSession(w http.ResponseWriter, r *http.Request) (wizard.Session, error) {
	sess, err := s.existingSession(r)
	if err == nil {
		return sess, nil
	}
	if !errors.Is(err, sessionstore.ErrNotFound) {
		return wizard.Session{}, err
	}

	sess = wizard.New(uuid.NewString())
	http.SetCookie(w, &http.Cookie{
		Name:     wizardCookieName,
		Value:    sess.ID,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return sess, nil
}

// existingSession looks up the visitor's stored session without starting one.
// It returns sessionstore.ErrNotFound when there is no cookie or no session.
func (s *server) existingSession(r *http.Request) (wizard.Session, error) {
	cookie, err := r.Cookie(wizardCookieName)
	if err != nil || cookie.Value == "" {
		return wizard.Session{}, sessionstore.ErrNotFound
	}
	return s.sessions.Load(r.Context(), cookie.Value)
}

func (s *server) handleWizard(w http.ResponseWriter, r *http.Request) {
	sess, err := s.loadSession(w, r)
	if err != nil {
		s.log.WithError(err).Error("load wizard session", nil)
		http.Error(w, "failed to load session", http.StatusInternalServerError)
		return
	}
	if err := s.sessions.Save(r.Context(), sess); err != nil {
		s.log.WithError(err).Error("save wizard session", nil)
		http.Error(w, "failed to save session", http.StatusInternalServerError)
		return
	}

	s.renderTemplate(w, http.StatusOK, "wizard.html", newWizardView(sess))
}

func (s *server) handleFields(w http.ResponseWriter, r *http.Request) {
	s.transition(w, r, "fields", func(sess wizard.Session) wizard.Session {
		return sess
	})
}

func (s *server) handleAdvance(w http.ResponseWriter, r *http.Request) {
	s.transition(w, r, "advance", func(sess wizard.Session) wizard.Session {
		if sess.Step == wizard.LastInputStep {
			return wizard.SubmitFinal(sess, s.now().UTC())
		}
		return wizard.Advance(sess)
	})
}

func (s *server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	s.transition(w, r, "submit", func(sess wizard.Session) wizard.Session {
		return wizard.SubmitFinal(sess, s.now().UTC())
	})
}

func (s *server) handleBack(w http.ResponseWriter, r *http.Request) {
	s.transition(w, r, "back", wizard.Retreat)
}

func (s *server) handleJump(w http.ResponseWriter, r *http.Request) {
	n, err := strconv.Atoi(chi.URLParam(r, "step"))
	if err != nil || !wizard.Step(n).Valid() {
		http.Error(w, "invalid step", http.StatusBadRequest)
		return
	}

	s.transition(w, r, "jump", func(sess wizard.Session) wizard.Session {
		return wizard.JumpTo(sess, wizard.Step(n))
	})
}

func (s *server) handleRestart(w http.ResponseWriter, r *http.Request) {
	s.transition(w, r, "restart", wizard.Restart)
}

func (s *server) handlePrice(w http.ResponseWriter, r *http.Request) {
	s.transition(w, r, "price", func(sess wizard.Session) wizard.Session {
		next, err := wizard.Reprice(sess, r.PostFormValue(string(markup.FieldCostBasis)))
		if err != nil {
			s.log.WithError(err).Warn("reprice rejected", map[string]interface{}{"session_id": sess.ID})
			return sess
		}
		return next
	})
}

// transition applies the posted fields of the current step, runs fn and
// stores the result. Every wizard POST answers with a redirect to the wizard
// page.
func (s *server) transition(w http.ResponseWriter, r *http.Request, action string, fn func(wizard.Session) wizard.Session) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}

	sess, err := s.loadSession(w, r)
	if err != nil {
		s.log.WithError(err).Error("load wizard session", nil)
		http.Error(w, "failed to load session", http.StatusInternalServerError)
		return
	}

	before := sess
	if action != "restart" && action != "price" {
		sess = applyForm(sess, r)
	}
	after := fn(sess)

	if err := s.sessions.Save(r.Context(), after); err != nil {
		s.log.WithError(err).Error("save wizard session", nil)
		http.Error(w, "failed to save session", http.StatusInternalServerError)
		return
	}

	s.record(action, before, after)
	if (action == "advance" || action == "submit") && before.Step == wizard.LastInputStep && after.Step == wizard.StepResult {
		s.submitted(after)
	}

	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *server) record(action string, before, after wizard.Session) {
	outcome := "ok"
	if after.HasErrors() {
		outcome = "invalid"
		for f, fe := range after.Errors {
			metrics.WizardValidationErrors.WithLabelValues(string(f), fe.Code()).Inc()
		}
	}
	metrics.WizardTransitions.WithLabelValues(action, outcome).Inc()

	s.log.Debug("wizard transition", map[string]interface{}{
		"session_id": after.ID,
		"action":     action,
		"from":       int(before.Step),
		"to":         int(after.Step),
		"errors":     len(after.Errors),
	})
}

func (s *server) submitted(sess wizard.Session) {
	metrics.MarkupDivisor.Observe(sess.Result.MarkupDivisor)

	sub, err := notify.NewSubmission(sess)
	if err != nil {
		s.log.WithError(err).Error("build lead submission", map[string]interface{}{"session_id": sess.ID})
		return
	}
	s.log.Info("lead captured", map[string]interface{}{
		"session_id":    sess.ID,
		"submission_id": sub.ID,
		"divisor":       sub.MarkupDivisor,
	})
	s.dispatcher.Dispatch(sub)
}

// applyForm copies the posted inputs of the current step into the session.
// Forms rendered for another step (a stale browser tab) are ignored.
func applyForm(sess wizard.Session, r *http.Request) wizard.Session {
	if r.PostFormValue("step") != strconv.Itoa(int(sess.Step)) {
		return sess
	}

	for _, f := range sess.Step.Fields() {
		if values, ok := r.PostForm[string(f)]; ok && len(values) > 0 {
			sess = wizard.SetField(sess, f, values[0])
		}
		if wizard.Disableable(f) {
			sess, _ = wizard.SetDisabled(sess, f, r.PostFormValue(string(f)+"Disabled") != "")
		}
	}
	return sess
}

func (s *server) handleComposition(w http.ResponseWriter, r *http.Request) {
	sess, err := s.existingSession(r)
	if err != nil {
		if errors.Is(err, sessionstore.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": wizard.ErrNoResult.Error()})
			return
		}
		http.Error(w, "failed to load session", http.StatusInternalServerError)
		return
	}

	slices, err := sess.Composition()
	if err != nil {
		status := http.StatusUnprocessableEntity
		if errors.Is(err, wizard.ErrNoResult) {
			status = http.StatusNotFound
		}
		writeJSON(w, status, map[string]string{"error": err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, compositionResponse{
		CostBasis:     sess.Sale.CostBasis,
		Price:         sess.Sale.Price,
		MarkupDivisor: sess.Result.Divisor(),
		Slices:        slices,
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func newWizardView(sess wizard.Session) wizardViewData {
	view := wizardViewData{
		Step:       int(sess.Step),
		StepLabel:  sess.Step.Label(),
		TotalError: sess.Errors.Message(markup.FieldTotal),
		First:      sess.Step == wizard.FirstStep,
		LastInput:  sess.Step == wizard.LastInputStep,
	}

	for _, step := range wizard.Steps() {
		view.Steps = append(view.Steps, stepView{
			Number:  int(step),
			Label:   step.Label(),
			Current: step == sess.Step,
			Reached: step <= sess.Reached,
		})
	}

	for _, f := range sess.Step.Fields() {
		view.Fields = append(view.Fields, fieldView{
			Name:        string(f),
			Label:       wizard.FieldLabel(f),
			Value:       sess.Form.Get(f),
			Error:       sess.Errors.Message(f),
			InputMode:   inputMode(f),
			Disableable: wizard.Disableable(f),
			Disabled:    sess.Disabled.Has(f),
		})
	}

	if sess.Step == wizard.StepResult && sess.Result != nil && sess.Sale != nil {
		view.Result = newResultView(sess)
	}
	return view
}

func newResultView(sess wizard.Session) *resultView {
	r := sess.Result
	p := r.Percentages
	rows := []struct {
		category markup.Category
		field    markup.Field
		value    float64
	}{
		{markup.CategoryTax, markup.FieldTax, p.Tax},
		{markup.CategoryCommission, markup.FieldCommission, p.Commission},
		{markup.CategoryCardFee, markup.FieldCardFee, p.CardFee},
		{markup.CategoryOtherCost, markup.FieldOtherCost, p.OtherCost},
		{markup.CategoryProfitMargin, markup.FieldProfitMargin, p.ProfitMargin},
	}

	view := &resultView{
		Sum:       markup.BRPercent(r.SumPercent),
		Fraction:  strings.Replace(markup.Fixed3(r.Fraction()), ".", ",", 1),
		Divisor:   markup.BR(r.Divisor()),
		CostBasis: markup.BR(sess.Sale.CostBasis),
		Price:     markup.BR(sess.Sale.Price),
		CostError: sess.Errors.Message(markup.FieldCostBasis),
	}
	for _, row := range rows {
		view.Rows = append(view.Rows, resultRow{
			Label:    markup.Labels[row.category],
			Percent:  markup.BRPercent(row.value),
			Disabled: sess.Disabled.Has(row.field),
		})
	}
	return view
}

func inputMode(f markup.Field) string {
	switch f {
	case wizard.FieldLeadName:
		return "text"
	case wizard.FieldLeadPhone:
		return "tel"
	}
	return "decimal"
}
