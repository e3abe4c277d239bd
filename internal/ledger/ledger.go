// Package ledger keeps the ordered per-question answer list of a session.
//
// The ledger does not lock: callers serialize writes per session.
package ledger

import (
	"github.com/TraderInsightsLab/Sistem/internal/apperr"
	"github.com/TraderInsightsLab/Sistem/internal/models"
)

// Validate checks answer against the catalog and the session without mutating anything.
func Validate(session *models.Session, catalog *models.Catalog, answer models.Answer) error {
	if !session.State.Open() {
		return apperr.SessionClosed(session.ID.String(), string(session.State))
	}
	if answer.QuestionID == "" {
		return apperr.Validation("questionId is required")
	}
	if answer.Value.IsZero() {
		return apperr.Validation("answer value is required for question %s", answer.QuestionID)
	}
	if answer.Timestamp <= 0 {
		return apperr.Validation("timestamp is required for question %s", answer.QuestionID)
	}
	if answer.Timestamp < session.StartedAtMillis() {
		return apperr.Validation("timestamp %d of question %s precedes the session start", answer.Timestamp, answer.QuestionID)
	}
	if answer.ResponseTime < 0 {
		return apperr.Validation("responseTime must not be negative")
	}
	q, ok := catalog.Question(answer.QuestionID)
	if !ok {
		return apperr.Validation("unknown question %s", answer.QuestionID)
	}
	return q.Accepts(answer.Value, answer.GameResults)
}

// Record validates answer and stores it on session. A resubmission for the same question
// replaces the earlier entry in place; new questions are appended.
// It reports whether the question was answered before.
func Record(session *models.Session, catalog *models.Catalog, answer models.Answer) (bool, error) {
	if err := Validate(session, catalog, answer); err != nil {
		return false, err
	}
	answer = answer.Clone()
	if i := indexOf(session.Answers, answer.QuestionID); i >= 0 {
		session.Answers[i] = answer
		return true, nil
	}
	session.Answers = append(session.Answers, answer)
	return false, nil
}

// All returns a copy of the answers in first-answered order.
func All(session *models.Session) []models.Answer {
	out := make([]models.Answer, len(session.Answers))
	for i, a := range session.Answers {
		out[i] = a.Clone()
	}
	return out
}

// Upsert applies the replace-or-append rule without validation. Stores use it to keep
// their copy consistent with Record.
func Upsert(answers []models.Answer, answer models.Answer) []models.Answer {
	if i := indexOf(answers, answer.QuestionID); i >= 0 {
		answers[i] = answer
		return answers
	}
	return append(answers, answer)
}

func indexOf(answers []models.Answer, questionID string) int {
	for i, a := range answers {
		if a.QuestionID == questionID {
			return i
		}
	}
	return -1
}
