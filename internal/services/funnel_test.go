package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TraderInsightsLab/Sistem/internal/apperr"
	"github.com/TraderInsightsLab/Sistem/internal/games"
	"github.com/TraderInsightsLab/Sistem/internal/models"
)

func TestProcessResults(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sess := f.answered(t)

	res, err := f.funnel.ProcessResults(ctx, sess.ID)
	require.NoError(t, err)

	assert.Equal(t, "Aggressive Speculator", res.Teaser.Archetype)
	assert.Equal(t, "Abordare metodică", res.Teaser.MainStrength)
	assert.Equal(t, "https://pay.example/"+sess.ID.String(), res.PaymentURL)
	assert.False(t, res.Paid)

	require.Len(t, f.gateway.checkouts, 1)
	co := f.gateway.checkouts[0]
	assert.Equal(t, int64(4900), co.AmountMinorUnits)
	assert.Equal(t, "ron", co.Currency)
	assert.Equal(t, "ana@example.com", co.CustomerEmail)

	stored, err := f.sessions.Get(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StateCompleted, stored.State)
	assert.Equal(t, res.CheckoutID, stored.CheckoutID)
	assert.NotEmpty(t, stored.Analysis)

	assert.Equal(t, []string{models.EventTestStarted, models.EventAnswerSaved, models.EventTestCompleted},
		eventNames(f.store.Analytics()))
}

func TestProcessResultsAnalysisFailureKeepsState(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sess := f.answered(t)
	f.analyzer.err = apperr.Analysis("request", errors.New("503"))

	_, err := f.funnel.ProcessResults(ctx, sess.ID)
	assert.ErrorIs(t, err, apperr.ErrAnalysis)

	stored, err := f.sessions.Get(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StateInProgress, stored.State)
	assert.Empty(t, stored.Analysis)
	assert.Empty(t, f.gateway.checkouts)
}

func TestProcessResultsRetriesCheckoutOnly(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sess := f.answered(t)
	f.gateway.err = errors.New("stripe down")

	_, err := f.funnel.ProcessResults(ctx, sess.ID)
	assert.ErrorIs(t, err, apperr.ErrPayment)

	stored, err := f.sessions.Get(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StateCompleted, stored.State)

	f.gateway.err = nil
	res, err := f.funnel.ProcessResults(ctx, sess.ID)
	require.NoError(t, err)
	assert.NotEmpty(t, res.PaymentURL)
	assert.Equal(t, 1, f.analyzer.calls)
}

func TestProcessResultsWithoutAnswers(t *testing.T) {
	f := newFixture(t)
	sess, err := f.funnel.StartSession(context.Background(), testProfile())
	require.NoError(t, err)

	_, err = f.funnel.ProcessResults(context.Background(), sess.ID)
	assert.ErrorIs(t, err, apperr.ErrIncompleteSession)
	assert.Zero(t, f.analyzer.calls)
}

func TestProcessResultsAfterPayment(t *testing.T) {
	f := newFixture(t)
	sess := f.paid(t)

	res, err := f.funnel.ProcessResults(context.Background(), sess.ID)
	require.NoError(t, err)
	assert.True(t, res.Paid)
	assert.Empty(t, res.PaymentURL)
	assert.Len(t, f.gateway.checkouts, 1)
}

func TestResultsView(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sess := f.answered(t)

	_, err := f.funnel.Results(ctx, sess.ID)
	assert.ErrorIs(t, err, apperr.ErrInvalidTransition)

	_, err = f.funnel.ProcessResults(ctx, sess.ID)
	require.NoError(t, err)
	view, err := f.funnel.Results(ctx, sess.ID)
	require.NoError(t, err)
	assert.Nil(t, view.Analysis)
	assert.Equal(t, "Aggressive Speculator", view.Teaser.Archetype)

	_, _, err = f.sessions.ApplyPayment(ctx, sess.ID, models.PaymentCompleted)
	require.NoError(t, err)
	view, err = f.funnel.Results(ctx, sess.ID)
	require.NoError(t, err)
	require.NotNil(t, view.Analysis)
	assert.Equal(t, models.PaymentCompleted, view.PaymentStatus)
	assert.Equal(t, "Day Trading", view.Analysis.TradingRecommendations.OptimalStyle)
}

func TestRecordAnswerRejectsUnknownQuestion(t *testing.T) {
	f := newFixture(t)
	sess, err := f.funnel.StartSession(context.Background(), testProfile())
	require.NoError(t, err)

	_, err = f.funnel.RecordAnswer(context.Background(), sess.ID, models.Answer{
		QuestionID: "nope", Value: models.TextValue("a"), Timestamp: f.clock.Now().UnixMilli(),
	})
	assert.ErrorIs(t, err, apperr.ErrValidation)
	assert.Equal(t, []string{models.EventTestStarted}, eventNames(f.store.Analytics()))
}

func TestRecordAnswerRejectsGameResultsFromClient(t *testing.T) {
	f := newFixture(t)
	sess, err := f.funnel.StartSession(context.Background(), testProfile())
	require.NoError(t, err)

	_, err = f.funnel.RecordAnswer(context.Background(), sess.ID, models.Answer{
		QuestionID:  "cog_3",
		Value:       models.TextValue("completed"),
		Timestamp:   f.clock.Now().UnixMilli(),
		GameResults: &games.Result{Score: 9999, Metrics: map[string]float64{"stabilityPercentage": 500, "finalEmotionalState": -40}},
	})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	got, err := f.sessions.Get(context.Background(), sess.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Answers)
	assert.Equal(t, models.StateCreated, got.State)
}
