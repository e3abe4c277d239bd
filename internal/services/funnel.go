package services

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/TraderInsightsLab/Sistem/internal/analysis"
	"github.com/TraderInsightsLab/Sistem/internal/apperr"
	"github.com/TraderInsightsLab/Sistem/internal/metrics"
	"github.com/TraderInsightsLab/Sistem/internal/models"
	"github.com/TraderInsightsLab/Sistem/internal/payment"
	"github.com/TraderInsightsLab/Sistem/internal/session"
)

// Pricing is what the full report costs.
type Pricing struct {
	AmountMinorUnits int64
	Currency         string
}

// Results is returned once a session has been analysed.
type Results struct {
	SessionID  uuid.UUID     `json:"sessionId"`
	Teaser     models.Teaser `json:"teaser"`
	PaymentURL string        `json:"paymentUrl,omitempty"`
	CheckoutID string        `json:"checkoutId,omitempty"`
	Paid       bool          `json:"paid"`
}

// ResultsView is the results page: the teaser before payment, the full analysis after.
type ResultsView struct {
	SessionID     uuid.UUID              `json:"sessionId"`
	State         models.SessionState    `json:"state"`
	PaymentStatus models.PaymentStatus   `json:"paymentStatus"`
	ReportStatus  models.ReportStatus    `json:"reportStatus"`
	Teaser        models.Teaser          `json:"teaser"`
	Analysis      *models.AnalysisResult `json:"analysis,omitempty"`
}

// Funnel drives a visitor from profile to checkout.
type Funnel struct {
	sessions  *session.Service
	builder   analysis.Builder
	analyzer  analysis.Analyzer
	gateway   payment.Gateway
	pricing   Pricing
	analytics *Analytics
	metrics   *metrics.Funnel
	log       *zap.Logger
}

func NewFunnel(
	sessions *session.Service,
	analyzer analysis.Analyzer,
	gateway payment.Gateway,
	pricing Pricing,
	analytics *Analytics,
	m *metrics.Funnel,
	log *zap.Logger,
) *Funnel {
	return &Funnel{
		sessions:  sessions,
		builder:   analysis.Builder{Catalog: sessions.Catalog()},
		analyzer:  analyzer,
		gateway:   gateway,
		pricing:   pricing,
		analytics: analytics,
		metrics:   m,
		log:       log,
	}
}

func (f *Funnel) Sessions() *session.Service { return f.sessions }

func (f *Funnel) StartSession(ctx context.Context, profile models.UserProfile) (*models.Session, error) {
	sess, err := f.sessions.Start(ctx, profile)
	if err != nil {
		return nil, err
	}
	f.metrics.SessionStarted()
	f.analytics.Track(ctx, models.EventTestStarted, sess.ID, map[string]any{
		"experienceLevel": string(sess.Profile.ExperienceLevel),
		"riskTolerance":   string(sess.Profile.RiskTolerance),
	})
	return sess, nil
}

// RecordAnswer stores a client-submitted answer. Cognitive-game questions are only
// answered by playing the game through GameService.
func (f *Funnel) RecordAnswer(ctx context.Context, id uuid.UUID, answer models.Answer) (*models.Session, error) {
	if q, ok := f.sessions.Catalog().Question(answer.QuestionID); ok && q.Type == models.CognitiveGame {
		return nil, apperr.Validation("question %s is answered by playing its game", answer.QuestionID)
	}
	return f.recordAnswer(ctx, id, answer)
}

func (f *Funnel) recordAnswer(ctx context.Context, id uuid.UUID, answer models.Answer) (*models.Session, error) {
	sess, err := f.sessions.RecordAnswer(ctx, id, answer)
	if err != nil {
		return nil, err
	}
	section, _ := f.sessions.Catalog().SectionOf(answer.QuestionID)
	f.metrics.AnswerRecorded(string(section))
	f.analytics.Track(ctx, models.EventAnswerSaved, id, map[string]any{
		"questionId":   answer.QuestionID,
		"section":      string(section),
		"responseTime": answer.ResponseTime,
	})
	return sess, nil
}

// ProcessResults analyses the answers, completes the session and opens a checkout.
// A session that is already completed skips straight to checkout, so the call can be
// retried after a payment failure.
func (f *Funnel) ProcessResults(ctx context.Context, id uuid.UUID) (Results, error) {
	sess, err := f.sessions.Get(ctx, id)
	if err != nil {
		return Results{}, err
	}

	switch {
	case sess.State == models.StateCompleted && len(sess.Analysis) > 0:
	case sess.State == models.StatePaid || sess.State == models.StateReported:
		result, err := decodeAnalysis(sess)
		if err != nil {
			return Results{}, err
		}
		return Results{SessionID: id, Teaser: result.Teaser(), Paid: true}, nil
	default:
		var totalTime int64
		sess, err = f.sessions.CompleteWith(ctx, id, func(snap *models.Session) ([]byte, error) {
			in, err := f.builder.Build(snap)
			if err != nil {
				return nil, err
			}
			totalTime = in.Metadata.TotalTimeMs

			start := time.Now()
			result, err := f.analyzer.Analyze(ctx, in)
			f.metrics.Analysis(time.Since(start), err)
			if err != nil {
				return nil, apperr.Analysis("analyze session", err)
			}
			data, err := json.Marshal(result)
			if err != nil {
				return nil, apperr.Analysis("encode result", err)
			}
			return data, nil
		})
		if err != nil {
			f.log.Warn("Failed to complete session", zap.String("sessionID", id.String()), zap.Error(err))
			return Results{}, err
		}
		f.metrics.SessionCompleted()
		f.analytics.Track(ctx, models.EventTestCompleted, id, map[string]any{
			"answers":   len(sess.Answers),
			"totalTime": totalTime,
		})
	}

	result, err := decodeAnalysis(sess)
	if err != nil {
		return Results{}, err
	}

	checkout, err := f.gateway.CreateCheckout(ctx, payment.CheckoutRequest{
		SessionID:        id,
		AmountMinorUnits: f.pricing.AmountMinorUnits,
		Currency:         f.pricing.Currency,
		CustomerEmail:    sess.Profile.Email,
	})
	if err != nil {
		f.log.Error("Failed to create checkout", zap.String("sessionID", id.String()), zap.Error(err))
		return Results{}, apperr.Payment("create checkout", err)
	}
	if err := f.sessions.AttachCheckout(ctx, id, checkout.ID); err != nil {
		return Results{}, err
	}

	return Results{
		SessionID:  id,
		Teaser:     result.Teaser(),
		PaymentURL: checkout.URL,
		CheckoutID: checkout.ID,
	}, nil
}

// Results returns the results page for a completed session.
func (f *Funnel) Results(ctx context.Context, id uuid.UUID) (ResultsView, error) {
	sess, err := f.sessions.Get(ctx, id)
	if err != nil {
		return ResultsView{}, err
	}
	switch sess.State {
	case models.StateCompleted, models.StatePaid, models.StateReported:
	default:
		return ResultsView{}, apperr.Transition(string(sess.State), string(models.StateCompleted))
	}
	result, err := decodeAnalysis(sess)
	if err != nil {
		return ResultsView{}, err
	}
	view := ResultsView{
		SessionID:     id,
		State:         sess.State,
		PaymentStatus: sess.PaymentStatus,
		ReportStatus:  sess.ReportStatus,
		Teaser:        result.Teaser(),
	}
	if sess.State != models.StateCompleted {
		view.Analysis = &result
	}
	return view, nil
}

func decodeAnalysis(sess *models.Session) (models.AnalysisResult, error) {
	var result models.AnalysisResult
	if len(sess.Analysis) == 0 {
		return result, apperr.Analysis("session "+sess.ID.String()+" has no stored analysis", nil)
	}
	if err := json.Unmarshal(sess.Analysis, &result); err != nil {
		return result, apperr.Persistence("decode stored analysis", err)
	}
	return result, nil
}
