package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"github.com/TraderInsightsLab/Sistem/internal/models"
)

// AnalyticsSink stores funnel events.
type AnalyticsSink interface {
	LogAnalytics(ctx context.Context, ev models.AnalyticsEvent) error
}

// Analytics writes funnel events. Failures are logged and never reach the caller.
type Analytics struct {
	sink AnalyticsSink
	log  *zap.Logger
}

func NewAnalytics(sink AnalyticsSink, log *zap.Logger) *Analytics {
	return &Analytics{sink: sink, log: log}
}

func (a *Analytics) Track(ctx context.Context, name string, sessionID uuid.UUID, payload map[string]any) {
	if a == nil || a.sink == nil {
		return
	}
	ev := models.AnalyticsEvent{
		Name:      name,
		SessionID: sessionID,
		Payload:   datatypes.JSONMap(payload),
		CreatedAt: time.Now().UTC(),
	}
	if err := a.sink.LogAnalytics(ctx, ev); err != nil {
		a.log.Warn("Failed to log analytics event",
			zap.String("event", name),
			zap.String("sessionID", sessionID.String()),
			zap.Error(err))
	}
}
