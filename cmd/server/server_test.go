package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Simplici0/markup/internal/db"
	"github.com/Simplici0/markup/internal/leads"
	"github.com/Simplici0/markup/internal/logger"
	"github.com/Simplici0/markup/internal/markup"
	"github.com/Simplici0/markup/internal/migrations"
	"github.com/Simplici0/markup/internal/notify"
	"github.com/Simplici0/markup/internal/seed"
	"github.com/Simplici0/markup/internal/sessionstore"
)

type captureNotifier struct {
	mu   sync.Mutex
	subs []notify.Submission
}

func (c *captureNotifier) Name() string { return "capture" }

func (c *captureNotifier) Notify(_ context.Context, sub notify.Submission) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.subs = append(c.subs, sub)
	return nil
}

func (c *captureNotifier) all() []notify.Submission {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]notify.Submission(nil), c.subs...)
}

type testEnv struct {
	srv     *server
	http    *httptest.Server
	client  *http.Client
	capture *captureNotifier
	db      *sql.DB
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	database, err := db.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close() })
	require.NoError(t, migrations.Up(context.Background(), database))

	_, err = seed.Run(database, seed.Config{AdminEmail: "admin@markup.local", AdminPassword: "segredo"})
	require.NoError(t, err)

	log := logger.NewTest(t)
	leadStore := leads.NewStore(database)
	capture := &captureNotifier{}

	srv := &server{
		auth:       newAuthService(database, "test-secret"),
		leads:      leadStore,
		sessions:   sessionstore.NewMemory(time.Hour),
		dispatcher: notify.NewDispatcher(notify.Multi{capture, notify.NewLeadLog(leadStore)}, time.Second, log),
		log:        log,
		webDir:     "../../web",
		now:        func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) },
	}

	ts := httptest.NewServer(srv.routes())
	t.Cleanup(ts.Close)

	t.Cleanup(srv.dispatcher.Wait)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)

	return &testEnv{
		srv:     srv,
		http:    ts,
		client:  &http.Client{Jar: jar},
		capture: capture,
		db:      database,
	}
}

func (e *testEnv) get(t *testing.T, path string) (int, string) {
	t.Helper()

	resp, err := e.client.Get(e.http.URL + path)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(body)
}

func (e *testEnv) post(t *testing.T, path string, form url.Values) (int, string) {
	t.Helper()

	resp, err := e.client.PostForm(e.http.URL+path, form)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(body)
}

func stepForm(step string, pairs ...string) url.Values {
	form := url.Values{"step": {step}}
	for i := 0; i+1 < len(pairs); i += 2 {
		form.Set(pairs[i], pairs[i+1])
	}
	return form
}

// completeWizard drives a fresh visitor to the result page with
// 10 + 5 + 3 + 2 + 17 = 37% and a cost of 100.
func (e *testEnv) completeWizard(t *testing.T) string {
	t.Helper()

	_, body := e.get(t, "/")
	require.Contains(t, body, "Custos variáveis")

	_, body = e.post(t, "/wizard/advance", stepForm("1", "tax", "10", "commission", "5", "cardFee", "3"))
	require.Contains(t, body, "<h1>Outros custos</h1>")

	_, body = e.post(t, "/wizard/advance", stepForm("2", "otherCost", "2"))
	require.Contains(t, body, "<h1>Margem e custo</h1>")

	_, body = e.post(t, "/wizard/advance", stepForm("3", "profitMargin", "17", "costBasis", "100"))
	require.Contains(t, body, "<h1>Seus dados</h1>")

	status, body := e.post(t, "/wizard/submit", stepForm("4", "leadName", "Ana Souza", "leadPhone", "(11) 91234-5678"))
	require.Equal(t, http.StatusOK, status)
	require.Contains(t, body, "<h1>Resultado</h1>")
	return body
}

func TestWizardFullFlowShowsResultAndNotifiesOnce(t *testing.T) {
	env := newTestEnv(t)

	body := env.completeWizard(t)
	assert.Contains(t, body, "<strong>1,59</strong>")
	assert.Contains(t, body, "R$ 159,00")
	assert.Contains(t, body, "37% ÷ 100 = 0,370")

	env.srv.dispatcher.Wait()
	subs := env.capture.all()
	require.Len(t, subs, 1)
	assert.Equal(t, "Ana Souza", subs[0].Name)
	assert.Equal(t, 159.0, subs[0].Price)
	assert.Equal(t, 1.59, subs[0].MarkupDivisor)
	assert.Equal(t, time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC), subs[0].Timestamp)

	// Revisiting an earlier step and jumping back to the result does not
	// capture the lead again.
	_, body = env.post(t, "/wizard/jump/2", nil)
	assert.Contains(t, body, "<h1>Outros custos</h1>")
	_, body = env.post(t, "/wizard/jump/5", nil)
	assert.Contains(t, body, "<h1>Resultado</h1>")

	env.srv.dispatcher.Wait()
	assert.Len(t, env.capture.all(), 1)
}

func TestWizardAdvanceFromLeadStepSubmits(t *testing.T) {
	env := newTestEnv(t)

	env.get(t, "/")
	env.post(t, "/wizard/advance", stepForm("1", "tax", "10", "commission", "5", "cardFee", "3"))
	env.post(t, "/wizard/advance", stepForm("2", "otherCost", "2"))
	env.post(t, "/wizard/advance", stepForm("3", "profitMargin", "17", "costBasis", "100"))
	_, body := env.post(t, "/wizard/advance", stepForm("4", "leadName", "Ana", "leadPhone", "11912345678"))
	assert.Contains(t, body, "<h1>Resultado</h1>")

	env.srv.dispatcher.Wait()
	assert.Len(t, env.capture.all(), 1)
}

func TestWizardShowsFieldErrors(t *testing.T) {
	env := newTestEnv(t)

	_, body := env.post(t, "/wizard/advance", stepForm("1", "tax", "", "commission", "150", "cardFee", "3"))
	assert.Contains(t, body, "<h1>Custos variáveis</h1>")
	assert.Contains(t, body, "Este campo é obrigatório")
	assert.Contains(t, body, "O valor não pode ser maior que 100%")
}

func TestWizardRejectsUnsatisfiableTotal(t *testing.T) {
	env := newTestEnv(t)

	env.get(t, "/")
	env.post(t, "/wizard/advance", stepForm("1", "tax", "50", "commission", "30", "cardFee", "10"))
	env.post(t, "/wizard/advance", stepForm("2", "otherCost", "5"))
	_, body := env.post(t, "/wizard/advance", stepForm("3", "profitMargin", "10", "costBasis", "100"))

	assert.Contains(t, body, "<h1>Margem e custo</h1>")
	assert.Contains(t, body, "A soma dos percentuais deve ser menor que 100%")
}

func TestWizardDisabledFieldKeepsValue(t *testing.T) {
	env := newTestEnv(t)

	env.get(t, "/")
	_, body := env.post(t, "/wizard/fields", stepForm("1", "tax", "10", "commission", "7", "commissionDisabled", "on", "cardFee", "3"))
	assert.Contains(t, body, `name="commissionDisabled" checked`)
	assert.Contains(t, body, `value="7"`)

	// An unparseable disabled field does not block the step.
	_, body = env.post(t, "/wizard/advance", stepForm("1", "tax", "10", "commission", "", "commissionDisabled", "on", "cardFee", "3"))
	assert.Contains(t, body, "<h1>Outros custos</h1>")
}

func TestWizardIgnoresStaleStepForm(t *testing.T) {
	env := newTestEnv(t)

	env.get(t, "/")
	env.post(t, "/wizard/advance", stepForm("1", "tax", "10", "commission", "5", "cardFee", "3"))

	_, body := env.post(t, "/wizard/fields", stepForm("1", "tax", "99"))
	assert.Contains(t, body, "<h1>Outros custos</h1>")

	_, body = env.post(t, "/wizard/back", nil)
	assert.Contains(t, body, `value="10"`)
	assert.NotContains(t, body, `value="99"`)
}

func TestWizardBackJumpAndRestart(t *testing.T) {
	env := newTestEnv(t)

	env.get(t, "/")
	env.post(t, "/wizard/advance", stepForm("1", "tax", "10", "commission", "5", "cardFee", "3"))
	env.post(t, "/wizard/advance", stepForm("2", "otherCost", "2"))

	_, body := env.post(t, "/wizard/back", stepForm("3", "profitMargin", "17"))
	assert.Contains(t, body, "<h1>Outros custos</h1>")

	_, body = env.post(t, "/wizard/jump/1", nil)
	assert.Contains(t, body, "<h1>Custos variáveis</h1>")

	_, body = env.post(t, "/wizard/jump/3", nil)
	assert.Contains(t, body, "<h1>Margem e custo</h1>")
	assert.Contains(t, body, `value="17"`, "values typed before going back are kept")

	_, body = env.post(t, "/wizard/jump/4", nil)
	assert.Contains(t, body, "<h1>Margem e custo</h1>", "step 4 was never reached")

	status, _ := env.post(t, "/wizard/jump/9", nil)
	assert.Equal(t, http.StatusBadRequest, status)

	_, body = env.post(t, "/wizard/restart", nil)
	assert.Contains(t, body, "<h1>Custos variáveis</h1>")
	assert.NotContains(t, body, `value="10"`)
}

func TestCompositionEndpoint(t *testing.T) {
	env := newTestEnv(t)

	status, _ := env.get(t, "/result/composition")
	assert.Equal(t, http.StatusNotFound, status)

	env.completeWizard(t)

	status, body := env.get(t, "/result/composition")
	require.Equal(t, http.StatusOK, status)

	var resp compositionResponse
	require.NoError(t, json.Unmarshal([]byte(body), &resp))
	assert.Equal(t, 159.0, resp.Price)
	assert.Equal(t, 100.0, resp.CostBasis)
	assert.Equal(t, 1.59, resp.MarkupDivisor)
	require.Len(t, resp.Slices, 6)
	assert.Equal(t, markup.CategoryTax, resp.Slices[0].Category)
	assert.InDelta(t, 15.9, resp.Slices[0].Amount, 1e-9)
	assert.Equal(t, markup.CategoryInputCost, resp.Slices[5].Category)
	assert.InDelta(t, 0.63*159, resp.Slices[5].Amount, 1e-9)
	assertSumsToPrice(t, resp)

	_, _ = env.post(t, "/wizard/price", url.Values{"costBasis": {"98765,43"}})
	status, body = env.get(t, "/result/composition")
	require.Equal(t, http.StatusOK, status)

	resp = compositionResponse{}
	require.NoError(t, json.Unmarshal([]byte(body), &resp))
	assert.Equal(t, 98765.43, resp.CostBasis)
	assertSumsToPrice(t, resp)
}

func assertSumsToPrice(t *testing.T, resp compositionResponse) {
	t.Helper()

	var amounts, percents float64
	for _, s := range resp.Slices {
		amounts += s.Amount
		percents += s.Percent
	}
	assert.InDelta(t, resp.Price, amounts, 0.01)
	assert.InDelta(t, 100, percents, 0.1)
}

func TestCompositionWithoutCookieSetsNoSession(t *testing.T) {
	env := newTestEnv(t)

	resp, err := env.http.Client().Get(env.http.URL + "/result/composition")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Empty(t, resp.Cookies())
}

func TestRepriceOnResultPage(t *testing.T) {
	env := newTestEnv(t)
	env.completeWizard(t)

	_, body := env.post(t, "/wizard/price", url.Values{"costBasis": {"200"}})
	assert.Contains(t, body, "R$ 318,00")

	_, body = env.post(t, "/wizard/price", url.Values{"costBasis": {"0"}})
	assert.Contains(t, body, "Digite um valor válido")
	assert.Contains(t, body, "R$ 318,00", "the last valid price stays visible")

	env.srv.dispatcher.Wait()
	assert.Len(t, env.capture.all(), 1, "repricing does not capture a new lead")
}

func TestRepriceBeforeResultIsIgnored(t *testing.T) {
	env := newTestEnv(t)

	_, body := env.post(t, "/wizard/price", url.Values{"costBasis": {"200"}})
	assert.Contains(t, body, "<h1>Custos variáveis</h1>")
}

func TestAdminLeadsRequiresLogin(t *testing.T) {
	env := newTestEnv(t)

	status, body := env.get(t, "/admin/leads")
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, "Área administrativa")

	status, body = env.post(t, "/login", url.Values{"email": {"admin@markup.local"}, "password": {"errada"}})
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Contains(t, body, "Credenciais inválidas")
}

func TestAdminLeadsListsCapturedLeads(t *testing.T) {
	env := newTestEnv(t)
	env.completeWizard(t)
	env.srv.dispatcher.Wait()

	status, body := env.post(t, "/login", url.Values{"email": {"admin@markup.local"}, "password": {"segredo"}})
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, "<h1>Leads</h1>")
	assert.Contains(t, body, "Ana Souza")
	assert.Contains(t, body, "159,00")

	_, body = env.get(t, "/admin/leads?q=bruno")
	assert.Contains(t, body, "Nenhum lead encontrado.")

	_, body = env.post(t, "/logout", nil)
	assert.Contains(t, body, "Área administrativa")
}

func TestMetricsEndpoint(t *testing.T) {
	env := newTestEnv(t)
	env.post(t, "/wizard/advance", stepForm("1", "tax", ""))

	status, body := env.get(t, "/metrics")
	require.Equal(t, http.StatusOK, status)
	assert.True(t, strings.Contains(body, "markup_wizard_transitions_total"))
	assert.True(t, strings.Contains(body, "markup_wizard_validation_errors_total"))
}

func TestSessionValueSignature(t *testing.T) {
	auth := newAuthService(nil, "secret")

	value := auth.createSessionValue("admin@markup.local")
	email, ok := auth.verifySessionValue(value)
	require.True(t, ok)
	assert.Equal(t, "admin@markup.local", email)

	_, ok = newAuthService(nil, "other").verifySessionValue(value)
	assert.False(t, ok)

	_, ok = auth.verifySessionValue("no-dot")
	assert.False(t, ok)
}
