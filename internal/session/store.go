package session

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/TraderInsightsLab/Sistem/internal/models"
)

// Store is the persistence collaborator. Implementations return apperr.ErrNotFound for
// unknown sessions and wrap every other failure as a persistence error. The service
// never retries a failed call.
type Store interface {
	CreateSession(ctx context.Context, s *models.Session) error
	GetSession(ctx context.Context, id uuid.UUID) (*models.Session, error)
	// AppendAnswer replaces the answer for the same question in place, or appends it.
	AppendAnswer(ctx context.Context, id uuid.UUID, answer models.Answer) error
	// SetSessionState moves the session to state; at is stored as the completion time
	// when state is completed.
	SetSessionState(ctx context.Context, id uuid.UUID, state models.SessionState, at time.Time) error
	SetPaymentStatus(ctx context.Context, id uuid.UUID, status models.PaymentStatus) error
	SetReportStatus(ctx context.Context, id uuid.UUID, status models.ReportStatus) error
	SaveAnalysis(ctx context.Context, id uuid.UUID, analysis []byte) error
	SaveCheckout(ctx context.Context, id uuid.UUID, checkoutID string) error

	// RecordWebhookEvent stores ev and reports whether it was seen for the first time.
	RecordWebhookEvent(ctx context.Context, ev models.WebhookEvent) (bool, error)
	// ForgetWebhookEvent removes a recorded event so a redelivery is processed again.
	ForgetWebhookEvent(ctx context.Context, id string) error
	LogAnalytics(ctx context.Context, ev models.AnalyticsEvent) error

	// StaleSessions lists open sessions started before the cutoff.
	StaleSessions(ctx context.Context, before time.Time, limit int) ([]uuid.UUID, error)
	// PaidUnreported lists paid sessions whose report is still pending.
	PaidUnreported(ctx context.Context, limit int) ([]uuid.UUID, error)
}
