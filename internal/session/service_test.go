package session_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/TraderInsightsLab/Sistem/internal/apperr"
	"github.com/TraderInsightsLab/Sistem/internal/games"
	"github.com/TraderInsightsLab/Sistem/internal/models"
	"github.com/TraderInsightsLab/Sistem/internal/repository"
	"github.com/TraderInsightsLab/Sistem/internal/session"
)

var t0 = time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

func testCatalog(t *testing.T) *models.Catalog {
	t.Helper()
	scale := &models.ScaleBounds{Min: 1, Max: 5}
	c, err := models.NewCatalog("test", []models.Question{
		{ID: "auto_1", Section: models.SectionSelfPortrait, Type: models.ScaleQuestion, Scale: scale},
		{ID: "auto_2", Section: models.SectionSelfPortrait, Type: models.ScaleQuestion, Scale: scale},
		{ID: "auto_3", Section: models.SectionSelfPortrait, Type: models.ScaleQuestion, Scale: scale},
		{ID: "cog_3", Section: models.SectionCognitive, Type: models.CognitiveGame, Game: &games.Config{
			Type: games.EmotionalControl,
			Emotional: &games.EmotionalConfig{Events: []games.StressEvent{
				{Text: "Ai pierdut 20% din portofoliu într-o zi!", Impact: -15},
				{Text: "O investiție a crescut cu 50% peste noapte!", Impact: 10},
			}},
		}},
	})
	require.NoError(t, err)
	return c
}

func profile() models.UserProfile {
	return models.UserProfile{
		Email:           "a@b.com",
		Age:             28,
		ExperienceLevel: models.Intermediate,
		RiskTolerance:   models.RiskToleranceMedium,
	}
}

func newService(t *testing.T) (*session.Service, *repository.MemoryStore) {
	store := repository.NewMemoryStore()
	svc := session.NewService(store, testCatalog(t), zap.NewNop()).WithClock(func() time.Time { return t0 })
	return svc, store
}

func scaleAnswer(id string, v float64, offset time.Duration) models.Answer {
	return models.Answer{
		QuestionID:   id,
		Value:        models.NumberValue(v),
		Timestamp:    t0.Add(offset).UnixMilli(),
		ResponseTime: 1500,
	}
}

func TestTransitionGuard(t *testing.T) {
	legal := [][2]models.SessionState{
		{models.StateCreated, models.StateInProgress},
		{models.StateCreated, models.StateAbandoned},
		{models.StateInProgress, models.StateCompleted},
		{models.StateInProgress, models.StateAbandoned},
		{models.StateCompleted, models.StatePaid},
		{models.StatePaid, models.StateReported},
	}
	for _, tr := range legal {
		assert.NoError(t, session.Transition(tr[0], tr[1]))
	}

	err := session.Transition(models.StateCompleted, models.StateInProgress)
	var te *apperr.TransitionError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, "completed", te.From)
	assert.Equal(t, "in-progress", te.To)
	assert.ErrorIs(t, err, apperr.ErrInvalidTransition)

	for _, tr := range [][2]models.SessionState{
		{models.StateCreated, models.StateCompleted},
		{models.StatePaid, models.StateAbandoned},
		{models.StateReported, models.StatePaid},
		{models.StateAbandoned, models.StateInProgress},
	} {
		assert.ErrorIs(t, session.Transition(tr[0], tr[1]), apperr.ErrInvalidTransition)
	}
}

func TestStartValidatesProfile(t *testing.T) {
	svc, _ := newService(t)
	_, err := svc.Start(context.Background(), models.UserProfile{Email: "a@b.com", Age: 16})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	sess, err := svc.Start(context.Background(), profile())
	require.NoError(t, err)
	assert.Equal(t, models.StateCreated, sess.State)
	assert.Equal(t, models.PaymentPending, sess.PaymentStatus)
	assert.Equal(t, models.ReportPending, sess.ReportStatus)
	assert.Equal(t, "test", sess.CatalogVersion)
	assert.Empty(t, sess.Answers)
}

func TestEndToEndScenario(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t)

	sess, err := svc.Start(ctx, profile())
	require.NoError(t, err)

	for i, v := range []float64{4, 5, 3} {
		got, err := svc.RecordAnswer(ctx, sess.ID, scaleAnswer([]string{"auto_1", "auto_2", "auto_3"}[i], v, time.Duration(i+1)*time.Second))
		require.NoError(t, err)
		assert.Equal(t, models.StateInProgress, got.State)
	}

	game, err := games.New(*mustQuestion(t, svc, "cog_3").Game, nil)
	require.NoError(t, err)
	start := t0.Add(10 * time.Second)
	game.Reset(start)
	require.NoError(t, game.Submit(games.Event{Kind: games.EventChoice, Choice: "calm", At: start.Add(3 * time.Second)}))
	require.NoError(t, game.Submit(games.Event{Kind: games.EventChoice, Choice: "panic", At: start.Add(6 * time.Second)}))
	require.True(t, game.Done())
	result, err := game.Result()
	require.NoError(t, err)
	assert.Equal(t, 50.0, result.Metrics["stabilityPercentage"])
	assert.Equal(t, 6.0, result.Metrics["totalScore"])

	_, err = svc.RecordAnswer(ctx, sess.ID, models.Answer{
		QuestionID:   "cog_3",
		Value:        models.TextValue("completed"),
		Timestamp:    start.Add(6 * time.Second).UnixMilli(),
		ResponseTime: 6000,
		GameResults:  &result,
	})
	require.NoError(t, err)

	done, err := svc.Complete(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StateCompleted, done.State)
	require.NotNil(t, done.CompletedAt)

	_, err = svc.Complete(ctx, sess.ID)
	assert.ErrorIs(t, err, apperr.ErrInvalidTransition)

	answers, err := svc.Answers(ctx, sess.ID)
	require.NoError(t, err)
	require.Len(t, answers, 4)
	assert.Equal(t, 6.0, answers[3].GameResults.Score)

	_, err = svc.RecordAnswer(ctx, sess.ID, scaleAnswer("auto_1", 1, time.Minute))
	assert.ErrorIs(t, err, apperr.ErrSessionClosed)
}

func mustQuestion(t *testing.T, svc *session.Service, id string) models.Question {
	q, ok := svc.Catalog().Question(id)
	require.True(t, ok)
	return q
}

func TestCompleteWithoutAnswers(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t)
	sess, err := svc.Start(ctx, profile())
	require.NoError(t, err)

	_, err = svc.Complete(ctx, sess.ID)
	assert.ErrorIs(t, err, apperr.ErrIncompleteSession)

	got, err := svc.Get(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StateCreated, got.State)
}

func TestCompleteWithFailingPrepareKeepsState(t *testing.T) {
	ctx := context.Background()
	svc, store := newService(t)
	sess, err := svc.Start(ctx, profile())
	require.NoError(t, err)
	_, err = svc.RecordAnswer(ctx, sess.ID, scaleAnswer("auto_1", 3, time.Second))
	require.NoError(t, err)

	_, err = svc.CompleteWith(ctx, sess.ID, func(*models.Session) ([]byte, error) {
		return nil, apperr.Analysis("analyze", errors.New("model unavailable"))
	})
	assert.ErrorIs(t, err, apperr.ErrAnalysis)

	got, err := store.GetSession(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StateInProgress, got.State)
	assert.Nil(t, got.Analysis)

	done, err := svc.CompleteWith(ctx, sess.ID, func(s *models.Session) ([]byte, error) {
		assert.Len(t, s.Answers, 1)
		return []byte(`{"archetype":{"name":"Analytical Trader"}}`), nil
	})
	require.NoError(t, err)
	assert.Equal(t, models.StateCompleted, done.State)
	got, err = store.GetSession(ctx, sess.ID)
	require.NoError(t, err)
	assert.JSONEq(t, `{"archetype":{"name":"Analytical Trader"}}`, string(got.Analysis))
}

func TestUnknownSession(t *testing.T) {
	svc, _ := newService(t)
	_, err := svc.RecordAnswer(context.Background(), uuid.New(), scaleAnswer("auto_1", 3, time.Second))
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

// failingAppends is a store whose answer writes fail.
type failingAppends struct {
	*repository.MemoryStore
}

func (failingAppends) AppendAnswer(context.Context, uuid.UUID, models.Answer) error {
	return errors.New("db down")
}

func TestFailedAppendKeepsSessionCreated(t *testing.T) {
	ctx := context.Background()
	store := failingAppends{repository.NewMemoryStore()}
	svc := session.NewService(store, testCatalog(t), zap.NewNop()).WithClock(func() time.Time { return t0 })

	sess, err := svc.Start(ctx, profile())
	require.NoError(t, err)

	_, err = svc.RecordAnswer(ctx, sess.ID, scaleAnswer("auto_1", 3, time.Second))
	assert.ErrorIs(t, err, apperr.ErrPersistence)

	got, err := store.GetSession(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StateCreated, got.State)
	assert.Empty(t, got.Answers)
}

func completedSession(t *testing.T, svc *session.Service) uuid.UUID {
	t.Helper()
	ctx := context.Background()
	sess, err := svc.Start(ctx, profile())
	require.NoError(t, err)
	_, err = svc.RecordAnswer(ctx, sess.ID, scaleAnswer("auto_1", 3, time.Second))
	require.NoError(t, err)
	_, err = svc.Complete(ctx, sess.ID)
	require.NoError(t, err)
	return sess.ID
}

func TestApplyPaymentIsIdempotent(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t)
	id := completedSession(t, svc)

	sess, applied, err := svc.ApplyPayment(ctx, id, models.PaymentCompleted)
	require.NoError(t, err)
	assert.True(t, applied)
	assert.Equal(t, models.StatePaid, sess.State)
	assert.Equal(t, models.PaymentCompleted, sess.PaymentStatus)

	sess, applied, err = svc.ApplyPayment(ctx, id, models.PaymentCompleted)
	require.NoError(t, err)
	assert.False(t, applied)
	assert.Equal(t, models.StatePaid, sess.State)

	_, applied, err = svc.ApplyPayment(ctx, id, models.PaymentFailed)
	require.NoError(t, err)
	assert.False(t, applied)
}

func TestApplyPaymentFailure(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t)
	id := completedSession(t, svc)

	sess, applied, err := svc.ApplyPayment(ctx, id, models.PaymentFailed)
	require.NoError(t, err)
	assert.True(t, applied)
	assert.Equal(t, models.StateCompleted, sess.State)
	assert.Equal(t, models.PaymentFailed, sess.PaymentStatus)

	// A retried checkout can still succeed.
	sess, applied, err = svc.ApplyPayment(ctx, id, models.PaymentCompleted)
	require.NoError(t, err)
	assert.True(t, applied)
	assert.Equal(t, models.StatePaid, sess.State)
}

func TestApplyPaymentBeforeCompletion(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t)
	sess, err := svc.Start(ctx, profile())
	require.NoError(t, err)

	_, _, err = svc.ApplyPayment(ctx, sess.ID, models.PaymentCompleted)
	assert.ErrorIs(t, err, apperr.ErrInvalidTransition)
	_, _, err = svc.ApplyPayment(ctx, sess.ID, models.PaymentFailed)
	assert.ErrorIs(t, err, apperr.ErrInvalidTransition)
}

func TestApplyReport(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t)
	id := completedSession(t, svc)

	_, err := svc.ApplyReport(ctx, id, models.ReportGenerated)
	assert.ErrorIs(t, err, apperr.ErrInvalidTransition)

	_, _, err = svc.ApplyPayment(ctx, id, models.PaymentCompleted)
	require.NoError(t, err)

	sess, err := svc.ApplyReport(ctx, id, models.ReportGenerated)
	require.NoError(t, err)
	assert.Equal(t, models.ReportGenerated, sess.ReportStatus)
	assert.Equal(t, models.StatePaid, sess.State)

	sess, err = svc.ApplyReport(ctx, id, models.ReportPending)
	require.NoError(t, err)
	assert.Equal(t, models.ReportPending, sess.ReportStatus)

	sess, err = svc.ApplyReport(ctx, id, models.ReportSent)
	require.NoError(t, err)
	assert.Equal(t, models.StateReported, sess.State)
	assert.Equal(t, models.ReportSent, sess.ReportStatus)

	_, err = svc.ApplyReport(ctx, id, models.ReportSent)
	assert.ErrorIs(t, err, apperr.ErrInvalidTransition)
}

func TestAbandon(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t)
	sess, err := svc.Start(ctx, profile())
	require.NoError(t, err)

	require.NoError(t, svc.Abandon(ctx, sess.ID))
	_, err = svc.RecordAnswer(ctx, sess.ID, scaleAnswer("auto_1", 3, time.Second))
	assert.ErrorIs(t, err, apperr.ErrSessionClosed)
	assert.ErrorIs(t, svc.Abandon(ctx, sess.ID), apperr.ErrInvalidTransition)

	id := completedSession(t, svc)
	assert.ErrorIs(t, svc.Abandon(ctx, id), apperr.ErrInvalidTransition)
}

func TestConcurrentAnswersAreSerialized(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t)
	sess, err := svc.Start(ctx, profile())
	require.NoError(t, err)

	ids := []string{"auto_1", "auto_2", "auto_3"}
	var wg sync.WaitGroup
	for round := 0; round < 10; round++ {
		for i, id := range ids {
			wg.Add(1)
			go func(id string, v float64) {
				defer wg.Done()
				_, err := svc.RecordAnswer(ctx, sess.ID, scaleAnswer(id, v, time.Second))
				assert.NoError(t, err)
			}(id, float64(1+(round+i)%5))
		}
	}
	wg.Wait()

	answers, err := svc.Answers(ctx, sess.ID)
	require.NoError(t, err)
	assert.Len(t, answers, 3)
	seen := map[string]bool{}
	for _, a := range answers {
		assert.False(t, seen[a.QuestionID])
		seen[a.QuestionID] = true
	}
}
