package notify

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/Simplici0/markup/internal/config"
	"github.com/Simplici0/markup/internal/db"
	"github.com/Simplici0/markup/internal/leads"
	"github.com/Simplici0/markup/internal/logger"
	"github.com/Simplici0/markup/internal/markup"
	"github.com/Simplici0/markup/internal/migrations"
	"github.com/Simplici0/markup/internal/wizard"
)

// ==========================
// Mock Implementations
// ==========================

type mockSES struct {
	SendEmailFunc func(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

func (m *mockSES) SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error) {
	return m.SendEmailFunc(ctx, params, optFns...)
}

type mockSNS struct {
	PublishFunc func(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

func (m *mockSNS) Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error) {
	return m.PublishFunc(ctx, params, optFns...)
}

type funcNotifier struct {
	name string
	fn   func(ctx context.Context, sub Submission) error
}

func (f funcNotifier) Name() string { return f.name }

func (f funcNotifier) Notify(ctx context.Context, sub Submission) error { return f.fn(ctx, sub) }

// ==========================
// Helpers
// ==========================

func completedSession(t *testing.T) wizard.Session {
	t.Helper()

	s := wizard.New("sess-1")
	s = wizard.SetField(s, markup.FieldTax, "10")
	s = wizard.SetField(s, markup.FieldCommission, "5")
	s = wizard.SetField(s, markup.FieldCardFee, "3")
	s = wizard.Advance(s)
	s = wizard.SetField(s, markup.FieldOtherCost, "2")
	s = wizard.Advance(s)
	s = wizard.SetField(s, markup.FieldProfitMargin, "17")
	s = wizard.SetField(s, markup.FieldCostBasis, "100")
	s = wizard.Advance(s)
	s = wizard.SetField(s, wizard.FieldLeadName, "Ana Souza")
	s = wizard.SetField(s, wizard.FieldLeadPhone, "(11) 91234-5678")
	s = wizard.SubmitFinal(s, time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC))
	require.Equal(t, wizard.StepResult, s.Step, "errors: %v", s.Errors)
	return s
}

func sampleSubmission(t *testing.T) Submission {
	t.Helper()
	sub, err := NewSubmission(completedSession(t))
	require.NoError(t, err)
	return sub
}

// ==========================
// Tests
// ==========================

func TestNewSubmission(t *testing.T) {
	sub := sampleSubmission(t)

	assert.NotEmpty(t, sub.ID)
	assert.Equal(t, "Ana Souza", sub.Name)
	assert.Equal(t, "(11) 91234-5678", sub.Phone)
	assert.Equal(t, 10.0, sub.Tax)
	assert.Equal(t, 17.0, sub.ProfitMargin)
	assert.Equal(t, 37.0, sub.SumPercent)
	assert.Equal(t, 1.59, sub.MarkupDivisor)
	assert.Equal(t, 100.0, sub.CostBasis)
	assert.Equal(t, 159.0, sub.Price)
	assert.Equal(t, time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC), sub.Timestamp)

	other, err := NewSubmission(completedSession(t))
	require.NoError(t, err)
	assert.NotEqual(t, sub.ID, other.ID)
}

func TestNewSubmissionRequiresResult(t *testing.T) {
	_, err := NewSubmission(wizard.New("x"))
	assert.ErrorIs(t, err, wizard.ErrNoResult)
}

func TestSubmissionJSONKeys(t *testing.T) {
	raw, err := json.Marshal(sampleSubmission(t))
	require.NoError(t, err)

	var payload map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &payload))

	for _, key := range []string{
		"id", "name", "phone", "tax", "commission", "cardFee", "otherCost",
		"profitMargin", "sumPercent", "markupDivisor", "costBasis", "price", "timestamp",
	} {
		assert.Contains(t, payload, key)
	}
	assert.Len(t, payload, 13)
}

func TestWebhookPostsJSON(t *testing.T) {
	var received Submission
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		body, _ := io.ReadAll(r.Body)
		assert.NoError(t, json.Unmarshal(body, &received))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	sub := sampleSubmission(t)
	require.NoError(t, NewWebhook(server.URL, server.Client()).Notify(context.Background(), sub))
	assert.Equal(t, sub.ID, received.ID)
	assert.Equal(t, sub.Price, received.Price)
}

func TestWebhookFailsOnNon2xx(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	err := NewWebhook(server.URL, nil).Notify(context.Background(), sampleSubmission(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}

func TestEmailBuildsSESInput(t *testing.T) {
	var got *ses.SendEmailInput
	client := &mockSES{SendEmailFunc: func(ctx context.Context, params *ses.SendEmailInput, _ ...func(*ses.Options)) (*ses.SendEmailOutput, error) {
		got = params
		return &ses.SendEmailOutput{}, nil
	}}

	require.NoError(t, NewEmail(client, "noreply@markup.local", "vendas@markup.local").Notify(context.Background(), sampleSubmission(t)))
	require.NotNil(t, got)
	assert.Equal(t, "noreply@markup.local", *got.Source)
	assert.Equal(t, []string{"vendas@markup.local"}, got.Destination.ToAddresses)
	assert.Equal(t, "Novo lead: Ana Souza", *got.Message.Subject.Data)
	assert.Contains(t, *got.Message.Body.Text.Data, "Preço de venda: R$ 159,00")
	assert.Contains(t, *got.Message.Body.Text.Data, "Markup divisor: 1,59")
	assert.Contains(t, *got.Message.Body.Text.Data, "Total: 37%")
}

func TestEmailWrapsError(t *testing.T) {
	boom := errors.New("throttled")
	client := &mockSES{SendEmailFunc: func(context.Context, *ses.SendEmailInput, ...func(*ses.Options)) (*ses.SendEmailOutput, error) {
		return nil, boom
	}}

	err := NewEmail(client, "a@b.c", "d@e.f").Notify(context.Background(), sampleSubmission(t))
	assert.ErrorIs(t, err, boom)
}

func TestSMSPublishes(t *testing.T) {
	var got *sns.PublishInput
	client := &mockSNS{PublishFunc: func(ctx context.Context, params *sns.PublishInput, _ ...func(*sns.Options)) (*sns.PublishOutput, error) {
		got = params
		return &sns.PublishOutput{}, nil
	}}

	require.NoError(t, NewSMS(client, "+5511999990000").Notify(context.Background(), sampleSubmission(t)))
	require.NotNil(t, got)
	assert.Equal(t, "+5511999990000", *got.PhoneNumber)
	assert.Equal(t, "Novo lead Ana Souza ((11) 91234-5678): markup 1,59, preço R$ 159,00", *got.Message)
}

func TestLeadLogWritesToStore(t *testing.T) {
	database, err := db.Open(":memory:")
	require.NoError(t, err)
	defer database.Close()
	require.NoError(t, migrations.Up(context.Background(), database))

	store := leads.NewStore(database)
	sub := sampleSubmission(t)
	require.NoError(t, NewLeadLog(store).Notify(context.Background(), sub))

	list, err := store.List(context.Background(), "")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, sub.ID, list[0].SubmissionID)
	assert.Equal(t, 159.0, list[0].Price)
	assert.Equal(t, 5.0, list[0].Percentages.Commission)
	assert.Equal(t, sub.Timestamp, list[0].CreatedAt)
}

func TestMultiRunsEveryNotifierAndJoinsErrors(t *testing.T) {
	var calls atomic.Int32
	boom := errors.New("down")

	m := Multi{
		funcNotifier{name: "ok", fn: func(context.Context, Submission) error { calls.Add(1); return nil }},
		funcNotifier{name: "bad", fn: func(context.Context, Submission) error { calls.Add(1); return boom }},
		funcNotifier{name: "ok2", fn: func(context.Context, Submission) error { calls.Add(1); return nil }},
	}

	err := m.Notify(context.Background(), sampleSubmission(t))
	assert.Equal(t, int32(3), calls.Load())
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "bad: down")
}

func TestDispatcherDeliversInBackground(t *testing.T) {
	var (
		mu  sync.Mutex
		got []Submission
	)
	n := funcNotifier{name: "capture", fn: func(ctx context.Context, sub Submission) error {
		_, hasDeadline := ctx.Deadline()
		assert.True(t, hasDeadline)
		mu.Lock()
		got = append(got, sub)
		mu.Unlock()
		return nil
	}}

	d := NewDispatcher(n, time.Second, logger.NewTest(t))
	sub := sampleSubmission(t)
	d.Dispatch(sub)
	d.Wait()

	require.Len(t, got, 1)
	assert.Equal(t, sub.ID, got[0].ID)
}

func TestDispatcherSwallowsAndLogsFailures(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	log := logger.Wrap(zap.New(core))

	n := funcNotifier{name: "broken", fn: func(ctx context.Context, sub Submission) error {
		<-ctx.Done()
		return ctx.Err()
	}}

	d := NewDispatcher(n, 20*time.Millisecond, log)
	d.Dispatch(sampleSubmission(t))
	d.Wait()

	entries := logs.FilterMessage("lead notification failed").All()
	require.Len(t, entries, 1)
	assert.Equal(t, zapcore.WarnLevel, entries[0].Level)
	assert.Equal(t, "broken", entries[0].ContextMap()["notifier"])
}

func TestNilDispatcherIsNoOp(t *testing.T) {
	var d *Dispatcher
	d.Dispatch(Submission{})
	d.Wait()
}

func TestFromConfigSelectsChannels(t *testing.T) {
	database, err := db.Open(":memory:")
	require.NoError(t, err)
	defer database.Close()

	channels, err := FromConfig(context.Background(), config.NotifyConfig{
		LeadLog:    true,
		WebhookURL: "http://localhost:9/hook",
		Timeout:    time.Second,
	}, leads.NewStore(database))
	require.NoError(t, err)
	assert.Equal(t, []string{"leadlog", "webhook"}, channels.Names())

	channels, err = FromConfig(context.Background(), config.NotifyConfig{LeadLog: true}, nil)
	require.NoError(t, err)
	assert.Empty(t, channels)
	assert.NoError(t, channels.Notify(context.Background(), Submission{}))
}
