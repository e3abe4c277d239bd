package ledger

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TraderInsightsLab/Sistem/internal/apperr"
	"github.com/TraderInsightsLab/Sistem/internal/games"
	"github.com/TraderInsightsLab/Sistem/internal/models"
)

var started = time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

func testCatalog(t *testing.T) *models.Catalog {
	t.Helper()
	c, err := models.NewCatalog("test", []models.Question{
		{ID: "s1", Section: models.SectionSelfPortrait, Type: models.ScaleQuestion, Scale: &models.ScaleBounds{Min: 1, Max: 5}},
		{ID: "s2", Section: models.SectionSelfPortrait, Type: models.ScaleQuestion, Scale: &models.ScaleBounds{Min: 1, Max: 5}},
		{ID: "s3", Section: models.SectionScenarios, Type: models.ScaleQuestion, Scale: &models.ScaleBounds{Min: 1, Max: 5}},
		{ID: "c1", Section: models.SectionScenarios, Type: models.SingleChoice, Options: []models.Option{{ID: "a", Value: 1}, {ID: "b", Value: 2}}},
		{ID: "g1", Section: models.SectionCognitive, Type: models.CognitiveGame, Game: &games.Config{
			Type:      games.EmotionalControl,
			Emotional: &games.EmotionalConfig{Events: []games.StressEvent{{Text: "x", Impact: -5}}},
		}},
	})
	require.NoError(t, err)
	return c
}

func newSession() *models.Session {
	return &models.Session{ID: uuid.New(), State: models.StateInProgress, StartedAt: started}
}

func scale(id string, v float64, offset time.Duration) models.Answer {
	return models.Answer{
		QuestionID:   id,
		Value:        models.NumberValue(v),
		Timestamp:    started.Add(offset).UnixMilli(),
		ResponseTime: 800,
	}
}

func TestRecordAppendsInOrder(t *testing.T) {
	c, s := testCatalog(t), newSession()

	for i, id := range []string{"s2", "s1", "s3"} {
		replaced, err := Record(s, c, scale(id, float64(i+1), time.Duration(i+1)*time.Second))
		require.NoError(t, err)
		assert.False(t, replaced)
	}

	var ids []string
	for _, a := range All(s) {
		ids = append(ids, a.QuestionID)
	}
	assert.Equal(t, []string{"s2", "s1", "s3"}, ids)
}

func TestRecordReplacesInPlace(t *testing.T) {
	c, s := testCatalog(t), newSession()

	_, err := Record(s, c, scale("s1", 4, time.Second))
	require.NoError(t, err)
	_, err = Record(s, c, scale("s2", 5, 2*time.Second))
	require.NoError(t, err)
	replaced, err := Record(s, c, scale("s1", 2, 3*time.Second))
	require.NoError(t, err)
	assert.True(t, replaced)

	all := All(s)
	require.Len(t, all, 2)
	assert.Equal(t, "s1", all[0].QuestionID)
	assert.Equal(t, 2.0, all[0].Value.Number())
	assert.Equal(t, "s2", all[1].QuestionID)
}

func TestRecordKeepsOneAnswerPerQuestion(t *testing.T) {
	c, s := testCatalog(t), newSession()
	seq := []struct {
		id string
		v  float64
	}{{"s1", 1}, {"s2", 2}, {"s1", 3}, {"s3", 4}, {"s2", 5}, {"s1", 5}}

	for i, step := range seq {
		_, err := Record(s, c, scale(step.id, step.v, time.Duration(i+1)*time.Second))
		require.NoError(t, err)
	}
	all := All(s)
	require.Len(t, all, 3)
	assert.Equal(t, []string{"s1", "s2", "s3"}, []string{all[0].QuestionID, all[1].QuestionID, all[2].QuestionID})
	assert.Equal(t, []float64{5, 5, 4}, []float64{all[0].Value.Number(), all[1].Value.Number(), all[2].Value.Number()})
}

func TestRecordRejectsClosedSessions(t *testing.T) {
	c := testCatalog(t)
	for _, state := range []models.SessionState{models.StateCompleted, models.StatePaid, models.StateReported, models.StateAbandoned} {
		s := newSession()
		s.State = state
		_, err := Record(s, c, scale("s1", 3, time.Second))
		assert.ErrorIs(t, err, apperr.ErrSessionClosed, string(state))
		assert.Empty(t, s.Answers)
	}

	s := newSession()
	s.State = models.StateCreated
	_, err := Record(s, c, scale("s1", 3, time.Second))
	assert.NoError(t, err)
}

func TestRecordValidation(t *testing.T) {
	c := testCatalog(t)
	results := &games.Result{Score: 5, Metrics: map[string]float64{"totalScore": 5}}
	cases := map[string]models.Answer{
		"missing question":  {Value: models.NumberValue(3), Timestamp: started.UnixMilli() + 1},
		"missing value":     {QuestionID: "s1", Timestamp: started.UnixMilli() + 1},
		"missing timestamp": {QuestionID: "s1", Value: models.NumberValue(3)},
		"before start":      {QuestionID: "s1", Value: models.NumberValue(3), Timestamp: started.UnixMilli() - 1},
		"negative latency":  {QuestionID: "s1", Value: models.NumberValue(3), Timestamp: started.UnixMilli(), ResponseTime: -1},
		"unknown question":  {QuestionID: "zz", Value: models.NumberValue(3), Timestamp: started.UnixMilli()},
		"wrong shape":       {QuestionID: "c1", Value: models.NumberValue(1), Timestamp: started.UnixMilli()},
		"game w/o results":  {QuestionID: "g1", Value: models.TextValue("completed"), Timestamp: started.UnixMilli()},
		"results on choice": {QuestionID: "c1", Value: models.TextValue("a"), Timestamp: started.UnixMilli(), GameResults: results},
	}
	for name, a := range cases {
		s := newSession()
		_, err := Record(s, c, a)
		assert.ErrorIs(t, err, apperr.ErrValidation, name)
		assert.Empty(t, s.Answers, name)
	}
}

func TestAllReturnsACopy(t *testing.T) {
	c, s := testCatalog(t), newSession()
	_, err := Record(s, c, models.Answer{
		QuestionID:  "g1",
		Value:       models.TextValue("completed"),
		Timestamp:   started.Add(time.Minute).UnixMilli(),
		GameResults: &games.Result{Score: 5, Metrics: map[string]float64{"totalScore": 5}},
	})
	require.NoError(t, err)

	view := All(s)
	view[0].GameResults.Metrics["totalScore"] = 0
	view[0].QuestionID = "changed"

	assert.Equal(t, "g1", s.Answers[0].QuestionID)
	assert.Equal(t, 5.0, s.Answers[0].GameResults.Metrics["totalScore"])
}

func TestUpsert(t *testing.T) {
	answers := Upsert(nil, models.Answer{QuestionID: "a", Timestamp: 1})
	answers = Upsert(answers, models.Answer{QuestionID: "b", Timestamp: 2})
	answers = Upsert(answers, models.Answer{QuestionID: "a", Timestamp: 3})
	require.Len(t, answers, 2)
	assert.Equal(t, int64(3), answers[0].Timestamp)
	assert.Equal(t, "b", answers[1].QuestionID)
}
