package services

import (
	"context"
	"errors"
	"sync"
	"time"

	backoff "github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/TraderInsightsLab/Sistem/internal/apperr"
	"github.com/TraderInsightsLab/Sistem/internal/metrics"
	"github.com/TraderInsightsLab/Sistem/internal/models"
	"github.com/TraderInsightsLab/Sistem/internal/report"
	"github.com/TraderInsightsLab/Sistem/internal/session"
)

// RetryPolicy bounds DeliverWithRetry.
type RetryPolicy struct {
	InitialInterval time.Duration
	MaxInterval     time.Duration
	MaxElapsedTime  time.Duration
}

// ReportService renders and mails the paid report.
type ReportService struct {
	sessions  *session.Service
	renderer  report.Renderer
	mailer    report.Mailer
	retry     RetryPolicy
	analytics *Analytics
	metrics   *metrics.Funnel
	log       *zap.Logger
	now       func() time.Time

	mu       sync.Mutex
	inflight map[uuid.UUID]struct{}
	wg       sync.WaitGroup
}

func NewReportService(
	sessions *session.Service,
	renderer report.Renderer,
	mailer report.Mailer,
	retry RetryPolicy,
	analytics *Analytics,
	m *metrics.Funnel,
	log *zap.Logger,
) *ReportService {
	if retry.InitialInterval <= 0 {
		retry.InitialInterval = 2 * time.Second
	}
	if retry.MaxInterval <= 0 {
		retry.MaxInterval = time.Minute
	}
	if retry.MaxElapsedTime <= 0 {
		retry.MaxElapsedTime = 10 * time.Minute
	}
	return &ReportService{
		sessions:  sessions,
		renderer:  renderer,
		mailer:    mailer,
		retry:     retry,
		analytics: analytics,
		metrics:   m,
		log:       log,
		now:       time.Now,
		inflight:  make(map[uuid.UUID]struct{}),
	}
}

// Deliver renders and sends the report once. A reported session is left alone. On any
// failure the report status returns to pending so the delivery can be attempted again.
func (s *ReportService) Deliver(ctx context.Context, id uuid.UUID) error {
	if !s.claim(id) {
		return apperr.ErrReportInProgress
	}
	defer s.release(id)

	sess, err := s.sessions.Get(ctx, id)
	if err != nil {
		return err
	}
	if sess.State == models.StateReported {
		return nil
	}
	if sess.State != models.StatePaid {
		return apperr.Transition(string(sess.State), string(models.StateReported))
	}
	result, err := decodeAnalysis(sess)
	if err != nil {
		return s.fail(ctx, id, err)
	}

	doc := report.Document{
		SessionID:   id,
		Email:       sess.Profile.Email,
		GeneratedAt: s.now().UTC(),
		Profile:     sess.Profile,
		Result:      result,
	}
	pdf, err := s.renderer.Render(ctx, doc)
	if err != nil {
		return s.fail(ctx, id, err)
	}
	if _, err := s.sessions.ApplyReport(ctx, id, models.ReportGenerated); err != nil {
		return s.fail(ctx, id, err)
	}
	if err := s.mailer.SendReport(ctx, sess.Profile.Email, doc, pdf); err != nil {
		return s.fail(ctx, id, err)
	}
	if _, err := s.sessions.ApplyReport(ctx, id, models.ReportSent); err != nil {
		return s.fail(ctx, id, err)
	}

	s.metrics.Report(nil)
	s.analytics.Track(ctx, models.EventReportSent, id, map[string]any{"bytes": len(pdf)})
	s.log.Info("Report delivered", zap.String("sessionID", id.String()), zap.String("to", sess.Profile.Email))
	return nil
}

func (s *ReportService) fail(ctx context.Context, id uuid.UUID, cause error) error {
	if _, err := s.sessions.ApplyReport(ctx, id, models.ReportPending); err != nil {
		s.log.Error("Failed to revert report status", zap.String("sessionID", id.String()), zap.Error(err))
	}
	s.metrics.Report(cause)
	s.analytics.Track(ctx, models.EventReportError, id, map[string]any{"error": cause.Error()})
	s.log.Error("Report delivery failed", zap.String("sessionID", id.String()), zap.Error(cause))
	return apperr.Reporting("deliver report", cause)
}

// DeliverWithRetry retries Deliver with exponential backoff. Lifecycle and lookup
// errors stop immediately.
func (s *ReportService) DeliverWithRetry(ctx context.Context, id uuid.UUID) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = s.retry.InitialInterval
	b.MaxInterval = s.retry.MaxInterval
	b.MaxElapsedTime = s.retry.MaxElapsedTime

	attempt := 0
	return backoff.Retry(func() error {
		attempt++
		err := s.Deliver(ctx, id)
		switch {
		case err == nil:
			return nil
		case errors.Is(err, apperr.ErrReportInProgress),
			errors.Is(err, apperr.ErrInvalidTransition),
			errors.Is(err, apperr.ErrNotFound),
			errors.Is(err, apperr.ErrValidation):
			return backoff.Permanent(err)
		}
		s.log.Warn("Report attempt failed", zap.String("sessionID", id.String()), zap.Int("attempt", attempt), zap.Error(err))
		return err
	}, backoff.WithContext(b, ctx))
}

// DeliverAsync starts DeliverWithRetry in the background.
func (s *ReportService) DeliverAsync(id uuid.UUID) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), s.retry.MaxElapsedTime+time.Minute)
		defer cancel()
		if err := s.DeliverWithRetry(ctx, id); err != nil && !errors.Is(err, apperr.ErrReportInProgress) {
			s.log.Error("Report delivery gave up", zap.String("sessionID", id.String()), zap.Error(err))
		}
	}()
}

// Wait blocks until background deliveries finish.
func (s *ReportService) Wait() {
	s.wg.Wait()
}

func (s *ReportService) claim(id uuid.UUID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, busy := s.inflight[id]; busy {
		return false
	}
	s.inflight[id] = struct{}{}
	return true
}

func (s *ReportService) release(id uuid.UUID) {
	s.mu.Lock()
	delete(s.inflight, id)
	s.mu.Unlock()
}
