package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/TraderInsightsLab/Sistem/internal/metrics"
	"github.com/TraderInsightsLab/Sistem/internal/models"
	"github.com/TraderInsightsLab/Sistem/internal/payment"
	"github.com/TraderInsightsLab/Sistem/internal/session"
)

// WebhookLog remembers processed payment events.
type WebhookLog interface {
	RecordWebhookEvent(ctx context.Context, ev models.WebhookEvent) (bool, error)
	ForgetWebhookEvent(ctx context.Context, id string) error
}

// ReportDispatcher starts report delivery for a paid session.
type ReportDispatcher interface {
	DeliverAsync(id uuid.UUID)
}

type WebhookOutcome string

const (
	WebhookApplied   WebhookOutcome = "applied"
	WebhookNoop      WebhookOutcome = "noop"
	WebhookDuplicate WebhookOutcome = "duplicate"
	WebhookIgnored   WebhookOutcome = "ignored"
	WebhookRejected  WebhookOutcome = "rejected"
)

// PaymentWebhook applies verified payment events to sessions exactly once.
type PaymentWebhook struct {
	gateway   payment.Gateway
	sessions  *session.Service
	events    WebhookLog
	reports   ReportDispatcher
	analytics *Analytics
	metrics   *metrics.Funnel
	log       *zap.Logger
}

func NewPaymentWebhook(
	gateway payment.Gateway,
	sessions *session.Service,
	events WebhookLog,
	reports ReportDispatcher,
	analytics *Analytics,
	m *metrics.Funnel,
	log *zap.Logger,
) *PaymentWebhook {
	return &PaymentWebhook{
		gateway:   gateway,
		sessions:  sessions,
		events:    events,
		reports:   reports,
		analytics: analytics,
		metrics:   m,
		log:       log,
	}
}

// Handle verifies and applies one delivery. A failed application forgets the event so
// the provider's redelivery is processed again.
func (w *PaymentWebhook) Handle(ctx context.Context, payload []byte, signature string) (WebhookOutcome, error) {
	ev, err := w.gateway.ParseWebhook(payload, signature)
	if err != nil {
		w.metrics.Webhook(string(WebhookRejected))
		w.log.Warn("Rejected payment webhook", zap.Error(err))
		return WebhookRejected, err
	}
	if !ev.Relevant() {
		w.metrics.Webhook(string(WebhookIgnored))
		w.log.Debug("Ignoring payment event", zap.String("eventID", ev.ID), zap.String("type", ev.Type))
		return WebhookIgnored, nil
	}

	first, err := w.events.RecordWebhookEvent(ctx, models.WebhookEvent{
		ID:        ev.ID,
		Type:      ev.Type,
		SessionID: ev.SessionID,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		return "", err
	}
	if !first {
		w.metrics.Webhook(string(WebhookDuplicate))
		w.log.Info("Duplicate payment event", zap.String("eventID", ev.ID))
		return WebhookDuplicate, nil
	}

	_, applied, err := w.sessions.ApplyPayment(ctx, ev.SessionID, ev.Status)
	if err != nil {
		if ferr := w.events.ForgetWebhookEvent(ctx, ev.ID); ferr != nil {
			w.log.Error("Failed to forget payment event", zap.String("eventID", ev.ID), zap.Error(ferr))
		}
		w.log.Error("Failed to apply payment event",
			zap.String("eventID", ev.ID),
			zap.String("sessionID", ev.SessionID.String()),
			zap.Error(err))
		return "", err
	}
	if !applied {
		w.metrics.Webhook(string(WebhookNoop))
		return WebhookNoop, nil
	}

	w.metrics.Webhook(string(WebhookApplied))
	w.metrics.Payment(string(ev.Status))
	switch ev.Status {
	case models.PaymentCompleted:
		w.analytics.Track(ctx, models.EventPaymentCompleted, ev.SessionID, map[string]any{"eventId": ev.ID})
		if w.reports != nil {
			w.reports.DeliverAsync(ev.SessionID)
		}
	case models.PaymentFailed:
		w.analytics.Track(ctx, models.EventPaymentFailed, ev.SessionID, map[string]any{"eventId": ev.ID})
	}
	return WebhookApplied, nil
}
