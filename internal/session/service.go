package session

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/TraderInsightsLab/Sistem/internal/apperr"
	"github.com/TraderInsightsLab/Sistem/internal/ledger"
	"github.com/TraderInsightsLab/Sistem/internal/models"
)

// Service applies lifecycle operations. Every mutation of one session runs under that
// session's lock; different sessions proceed in parallel.
type Service struct {
	store   Store
	catalog *models.Catalog
	locks   *Locks
	log     *zap.Logger
	now     func() time.Time
}

func NewService(store Store, catalog *models.Catalog, log *zap.Logger) *Service {
	return &Service{
		store:   store,
		catalog: catalog,
		locks:   NewLocks(),
		log:     log,
		now:     time.Now,
	}
}

// WithClock replaces the wall clock, for tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

func (s *Service) Catalog() *models.Catalog { return s.catalog }

// Start validates the profile and creates an empty session in state created.
func (s *Service) Start(ctx context.Context, profile models.UserProfile) (*models.Session, error) {
	profile = profile.Normalize()
	if err := profile.Validate(); err != nil {
		return nil, err
	}
	sess := &models.Session{
		ID:             uuid.New(),
		Profile:        profile,
		CatalogVersion: s.catalog.Version,
		Answers:        []models.Answer{},
		State:          models.StateCreated,
		StartedAt:      s.now().UTC().Truncate(time.Millisecond),
		PaymentStatus:  models.PaymentPending,
		ReportStatus:   models.ReportPending,
	}
	if err := s.store.CreateSession(ctx, sess); err != nil {
		return nil, apperr.Persistence("create session", err)
	}
	s.log.Info("Session started", zap.String("sessionID", sess.ID.String()), zap.String("riskTolerance", string(profile.RiskTolerance)))
	return sess.Clone(), nil
}

// Get loads a session.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*models.Session, error) {
	sess, err := s.store.GetSession(ctx, id)
	if err != nil {
		return nil, apperr.Persistence("get session", err)
	}
	return sess, nil
}

// RecordAnswer stores answer, moving a fresh session to in-progress on its first answer.
func (s *Service) RecordAnswer(ctx context.Context, id uuid.UUID, answer models.Answer) (*models.Session, error) {
	unlock := s.locks.Lock(id)
	defer unlock()

	sess, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	replaced, err := ledger.Record(sess, s.catalog, answer)
	if err != nil {
		return nil, err
	}
	// Append before moving state: a failed append leaves the session untouched.
	if err := s.store.AppendAnswer(ctx, id, answer.Clone()); err != nil {
		return nil, apperr.Persistence("append answer", err)
	}
	if sess.State == models.StateCreated {
		if err := s.setState(ctx, sess, models.StateInProgress); err != nil {
			return nil, err
		}
	}
	s.log.Debug("Answer recorded",
		zap.String("sessionID", id.String()),
		zap.String("questionID", answer.QuestionID),
		zap.Bool("replaced", replaced),
	)
	return sess, nil
}

// Answers returns the session's answers in first-answered order.
func (s *Service) Answers(ctx context.Context, id uuid.UUID) ([]models.Answer, error) {
	sess, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return ledger.All(sess), nil
}

// Prepare runs against a snapshot of a session about to be completed. Its output is
// persisted as the session's analysis.
type Prepare func(sess *models.Session) ([]byte, error)

// Complete closes the answer list.
func (s *Service) Complete(ctx context.Context, id uuid.UUID) (*models.Session, error) {
	return s.CompleteWith(ctx, id, nil)
}

// CompleteWith holds the session lock across prepare and commits the completion only
// when prepare succeeds, so a failed analysis leaves the session where it was.
func (s *Service) CompleteWith(ctx context.Context, id uuid.UUID, prepare Prepare) (*models.Session, error) {
	unlock := s.locks.Lock(id)
	defer unlock()

	sess, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if sess.State.Open() && len(sess.Answers) == 0 {
		return nil, apperr.Incomplete(id.String())
	}
	if err := Transition(sess.State, models.StateCompleted); err != nil {
		return nil, err
	}
	if prepare != nil {
		analysis, err := prepare(sess.Clone())
		if err != nil {
			return nil, err
		}
		if analysis != nil {
			if err := s.store.SaveAnalysis(ctx, id, analysis); err != nil {
				return nil, apperr.Persistence("save analysis", err)
			}
			sess.Analysis = analysis
		}
	}
	if err := s.setState(ctx, sess, models.StateCompleted); err != nil {
		return nil, err
	}
	s.log.Info("Session completed", zap.String("sessionID", id.String()), zap.Int("answers", len(sess.Answers)))
	return sess, nil
}

// AttachCheckout stores the payment collaborator's checkout reference.
func (s *Service) AttachCheckout(ctx context.Context, id uuid.UUID, checkoutID string) error {
	unlock := s.locks.Lock(id)
	defer unlock()
	return apperr.Persistence("save checkout", s.store.SaveCheckout(ctx, id, checkoutID))
}

// ApplyPayment records the payment collaborator's verdict. A completed payment moves the
// session to paid; repeating it on a paid or reported session is a no-op reported by
// applied=false. A failed payment only marks the payment status.
func (s *Service) ApplyPayment(ctx context.Context, id uuid.UUID, status models.PaymentStatus) (sess *models.Session, applied bool, err error) {
	unlock := s.locks.Lock(id)
	defer unlock()

	sess, err = s.Get(ctx, id)
	if err != nil {
		return nil, false, err
	}
	switch status {
	case models.PaymentCompleted:
		if sess.State == models.StatePaid || sess.State == models.StateReported {
			return sess, false, nil
		}
		if err := Transition(sess.State, models.StatePaid); err != nil {
			return nil, false, err
		}
		if err := s.setPayment(ctx, sess, status); err != nil {
			return nil, false, err
		}
		if err := s.setState(ctx, sess, models.StatePaid); err != nil {
			return nil, false, err
		}
	case models.PaymentFailed:
		if sess.State == models.StatePaid || sess.State == models.StateReported {
			// A late failure never downgrades a confirmed payment.
			return sess, false, nil
		}
		if sess.State != models.StateCompleted {
			return nil, false, apperr.Transition(string(sess.State), string(models.StatePaid))
		}
		if sess.PaymentStatus == models.PaymentFailed {
			return sess, false, nil
		}
		if err := s.setPayment(ctx, sess, status); err != nil {
			return nil, false, err
		}
	default:
		return nil, false, apperr.Validation("unsupported payment status %q", status)
	}
	s.log.Info("Payment applied", zap.String("sessionID", id.String()), zap.String("status", string(status)))
	return sess, true, nil
}

// ApplyReport records the reporting collaborator's progress on a paid session.
// Sent moves the session to reported; pending reverts a failed attempt.
func (s *Service) ApplyReport(ctx context.Context, id uuid.UUID, status models.ReportStatus) (*models.Session, error) {
	unlock := s.locks.Lock(id)
	defer unlock()

	sess, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if sess.State != models.StatePaid {
		return nil, apperr.Transition(string(sess.State), string(models.StateReported))
	}
	switch status {
	case models.ReportPending, models.ReportGenerated:
		if err := s.setReport(ctx, sess, status); err != nil {
			return nil, err
		}
	case models.ReportSent:
		if err := s.setReport(ctx, sess, status); err != nil {
			return nil, err
		}
		if err := s.setState(ctx, sess, models.StateReported); err != nil {
			return nil, err
		}
	default:
		return nil, apperr.Validation("unsupported report status %q", status)
	}
	return sess, nil
}

// Abandon closes an unfinished session for good.
func (s *Service) Abandon(ctx context.Context, id uuid.UUID) error {
	unlock := s.locks.Lock(id)
	defer unlock()

	sess, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.setState(ctx, sess, models.StateAbandoned); err != nil {
		return err
	}
	s.log.Info("Session abandoned", zap.String("sessionID", id.String()))
	return nil
}

func (s *Service) setState(ctx context.Context, sess *models.Session, to models.SessionState) error {
	if err := Transition(sess.State, to); err != nil {
		return err
	}
	now := s.now().UTC()
	if err := s.store.SetSessionState(ctx, sess.ID, to, now); err != nil {
		return apperr.Persistence("set session state", err)
	}
	sess.State = to
	if to == models.StateCompleted {
		sess.CompletedAt = &now
	}
	return nil
}

func (s *Service) setPayment(ctx context.Context, sess *models.Session, status models.PaymentStatus) error {
	if err := s.store.SetPaymentStatus(ctx, sess.ID, status); err != nil {
		return apperr.Persistence("set payment status", err)
	}
	sess.PaymentStatus = status
	return nil
}

func (s *Service) setReport(ctx context.Context, sess *models.Session, status models.ReportStatus) error {
	if err := s.store.SetReportStatus(ctx, sess.ID, status); err != nil {
		return apperr.Persistence("set report status", err)
	}
	sess.ReportStatus = status
	return nil
}
