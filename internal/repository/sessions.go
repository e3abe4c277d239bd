// internal/repository/sessions.go
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/TraderInsightsLab/Sistem/internal/apperr"
	"github.com/TraderInsightsLab/Sistem/internal/ledger"
	"github.com/TraderInsightsLab/Sistem/internal/models"
	"github.com/TraderInsightsLab/Sistem/internal/session"
)

var _ session.Store = (*GormStore)(nil)

var errDuplicate = errors.New("session already exists")

// GormStore persists sessions in PostgreSQL.
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) CreateSession(ctx context.Context, sess *models.Session) error {
	err := s.db.WithContext(ctx).Create(sess).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		err = errDuplicate
	}
	return apperr.Persistence("create session", err)
}

func (s *GormStore) GetSession(ctx context.Context, id uuid.UUID) (*models.Session, error) {
	var sess models.Session
	if err := s.db.WithContext(ctx).First(&sess, "id = ?", id).Error; err != nil {
		return nil, notFound(id, err)
	}
	return &sess, nil
}

// AppendAnswer locks the session row so concurrent writers cannot lose an answer.
func (s *GormStore) AppendAnswer(ctx context.Context, id uuid.UUID, answer models.Answer) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var sess models.Session
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Select("id", "answers").
			First(&sess, "id = ?", id).Error
		if err != nil {
			return notFound(id, err)
		}
		answers := datatypes.JSONSlice[models.Answer](ledger.Upsert(sess.Answers, answer))
		return tx.Model(&models.Session{}).Where("id = ?", id).Update("answers", answers).Error
	})
	return apperr.Persistence("append answer", err)
}

func (s *GormStore) SetSessionState(ctx context.Context, id uuid.UUID, state models.SessionState, at time.Time) error {
	fields := map[string]interface{}{"state": state}
	if state == models.StateCompleted {
		fields["completed_at"] = at
	}
	return s.update(ctx, "set session state", id, fields)
}

func (s *GormStore) SetPaymentStatus(ctx context.Context, id uuid.UUID, status models.PaymentStatus) error {
	return s.update(ctx, "set payment status", id, map[string]interface{}{"payment_status": status})
}

func (s *GormStore) SetReportStatus(ctx context.Context, id uuid.UUID, status models.ReportStatus) error {
	return s.update(ctx, "set report status", id, map[string]interface{}{"report_status": status})
}

func (s *GormStore) SaveAnalysis(ctx context.Context, id uuid.UUID, analysis []byte) error {
	return s.update(ctx, "save analysis", id, map[string]interface{}{"analysis": datatypes.JSON(analysis)})
}

func (s *GormStore) SaveCheckout(ctx context.Context, id uuid.UUID, checkoutID string) error {
	return s.update(ctx, "save checkout", id, map[string]interface{}{"checkout_id": checkoutID})
}

func (s *GormStore) update(ctx context.Context, op string, id uuid.UUID, fields map[string]interface{}) error {
	res := s.db.WithContext(ctx).Model(&models.Session{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return apperr.Persistence(op, res.Error)
	}
	if res.RowsAffected == 0 {
		return apperr.NotFound("session %s", id)
	}
	return nil
}

// RecordWebhookEvent inserts the event id; a conflicting id means a replay.
func (s *GormStore) RecordWebhookEvent(ctx context.Context, ev models.WebhookEvent) (bool, error) {
	res := s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&ev)
	if res.Error != nil {
		return false, apperr.Persistence("record webhook event", res.Error)
	}
	return res.RowsAffected == 1, nil
}

func (s *GormStore) ForgetWebhookEvent(ctx context.Context, id string) error {
	err := s.db.WithContext(ctx).Delete(&models.WebhookEvent{}, "id = ?", id).Error
	return apperr.Persistence("forget webhook event", err)
}

func (s *GormStore) LogAnalytics(ctx context.Context, ev models.AnalyticsEvent) error {
	return apperr.Persistence("log analytics", s.db.WithContext(ctx).Create(&ev).Error)
}

func (s *GormStore) StaleSessions(ctx context.Context, before time.Time, limit int) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := s.db.WithContext(ctx).Model(&models.Session{}).
		Where("state IN ? AND started_at < ?", []models.SessionState{models.StateCreated, models.StateInProgress}, before).
		Order("started_at").
		Limit(limit).
		Pluck("id", &ids).Error
	return ids, apperr.Persistence("list stale sessions", err)
}

func (s *GormStore) PaidUnreported(ctx context.Context, limit int) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := s.db.WithContext(ctx).Model(&models.Session{}).
		Where("state = ? AND report_status = ?", models.StatePaid, models.ReportPending).
		Order("started_at").
		Limit(limit).
		Pluck("id", &ids).Error
	return ids, apperr.Persistence("list unreported sessions", err)
}

func notFound(id uuid.UUID, err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.NotFound("session %s", id)
	}
	return apperr.Persistence("load session", err)
}
