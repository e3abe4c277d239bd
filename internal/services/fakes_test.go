package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/TraderInsightsLab/Sistem/internal/analysis"
	"github.com/TraderInsightsLab/Sistem/internal/models"
	"github.com/TraderInsightsLab/Sistem/internal/payment"
	"github.com/TraderInsightsLab/Sistem/internal/report"
	"github.com/TraderInsightsLab/Sistem/internal/repository"
	"github.com/TraderInsightsLab/Sistem/internal/session"
)

type fakeAnalyzer struct {
	mu     sync.Mutex
	calls  int
	err    error
	result models.AnalysisResult
}

func (f *fakeAnalyzer) Analyze(_ context.Context, in analysis.Input) (models.AnalysisResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return models.AnalysisResult{}, f.err
	}
	if f.result.Archetype.Name == "" {
		return analysis.Fallback(in.UserProfile), nil
	}
	return f.result, nil
}

type fakeGateway struct {
	mu        sync.Mutex
	checkouts []payment.CheckoutRequest
	err       error
	event     payment.Event
	parseErr  error
}

func (f *fakeGateway) CreateCheckout(_ context.Context, req payment.CheckoutRequest) (payment.Checkout, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return payment.Checkout{}, f.err
	}
	f.checkouts = append(f.checkouts, req)
	return payment.Checkout{ID: "cs_" + req.SessionID.String()[:8], URL: "https://pay.example/" + req.SessionID.String()}, nil
}

func (f *fakeGateway) ParseWebhook(_ []byte, _ string) (payment.Event, error) {
	if f.parseErr != nil {
		return payment.Event{}, f.parseErr
	}
	return f.event, nil
}

type fakeRenderer struct {
	mu    sync.Mutex
	fails int
	calls int
}

func (f *fakeRenderer) Render(_ context.Context, doc report.Document) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.fails > 0 {
		f.fails--
		return nil, errors.New("chrome crashed")
	}
	return []byte("%PDF-1.4 " + doc.Result.Archetype.Name), nil
}

type sentMail struct {
	to  string
	pdf []byte
}

type fakeMailer struct {
	mu    sync.Mutex
	fails int
	sent  []sentMail
}

func (f *fakeMailer) SendReport(_ context.Context, to string, _ report.Document, pdf []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fails > 0 {
		f.fails--
		return errors.New("smtp unavailable")
	}
	f.sent = append(f.sent, sentMail{to: to, pdf: pdf})
	return nil
}

type fakeDispatcher struct {
	mu  sync.Mutex
	ids []uuid.UUID
}

func (f *fakeDispatcher) DeliverAsync(id uuid.UUID) {
	f.mu.Lock()
	f.ids = append(f.ids, id)
	f.mu.Unlock()
}

type fixture struct {
	store     *repository.MemoryStore
	sessions  *session.Service
	analyzer  *fakeAnalyzer
	gateway   *fakeGateway
	analytics *Analytics
	funnel    *Funnel
	clock     *testClock
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	catalog, err := models.LoadCatalog("../../config/questions.yaml")
	require.NoError(t, err)

	clock := &testClock{now: time.Date(2025, 5, 2, 10, 0, 0, 0, time.UTC)}
	store := repository.NewMemoryStore()
	sessions := session.NewService(store, catalog, zap.NewNop()).WithClock(clock.Now)
	analyzer := &fakeAnalyzer{}
	gateway := &fakeGateway{}
	analytics := NewAnalytics(store, zap.NewNop())

	return &fixture{
		store:     store,
		sessions:  sessions,
		analyzer:  analyzer,
		gateway:   gateway,
		analytics: analytics,
		funnel: NewFunnel(sessions, analyzer, gateway, Pricing{AmountMinorUnits: 4900, Currency: "ron"},
			analytics, nil, zap.NewNop()),
		clock: clock,
	}
}

func testProfile() models.UserProfile {
	return models.UserProfile{
		Email:            "Ana@Example.com ",
		Age:              29,
		ExperienceLevel:  models.Beginner,
		RiskTolerance:    models.RiskToleranceHigh,
		TradingGoals:     []string{"income"},
		PreferredMarkets: []string{"crypto"},
	}
}

// answered starts a session and records one scale answer.
func (f *fixture) answered(t *testing.T) *models.Session {
	t.Helper()
	ctx := context.Background()
	sess, err := f.funnel.StartSession(ctx, testProfile())
	require.NoError(t, err)

	f.clock.Advance(3 * time.Second)
	_, err = f.funnel.RecordAnswer(ctx, sess.ID, models.Answer{
		QuestionID:   "auto_1",
		Value:        models.NumberValue(4),
		Timestamp:    f.clock.Now().UnixMilli(),
		ResponseTime: 2500,
	})
	require.NoError(t, err)
	return sess
}

// paid drives a session through analysis and a confirmed payment.
func (f *fixture) paid(t *testing.T) *models.Session {
	t.Helper()
	sess := f.answered(t)
	_, err := f.funnel.ProcessResults(context.Background(), sess.ID)
	require.NoError(t, err)
	_, _, err = f.sessions.ApplyPayment(context.Background(), sess.ID, models.PaymentCompleted)
	require.NoError(t, err)
	return sess
}

func eventNames(events []models.AnalyticsEvent) []string {
	names := make([]string, len(events))
	for i, e := range events {
		names[i] = e.Name
	}
	return names
}
