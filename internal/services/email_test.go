package services

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wneessen/go-mail"
	"go.uber.org/zap"

	"github.com/TraderInsightsLab/Sistem/internal/apperr"
	"github.com/TraderInsightsLab/Sistem/internal/models"
	"github.com/TraderInsightsLab/Sistem/internal/report"
)

func TestSendReportBuildsMessage(t *testing.T) {
	s := NewEmailService(EmailConfig{Host: "smtp.example.com", Port: 587, From: "raport@example.com", FromName: "Trader Insights"}, zap.NewNop())
	var captured *mail.Msg
	s.send = func(_ context.Context, msg *mail.Msg) error {
		captured = msg
		return nil
	}

	doc := report.Document{
		SessionID: uuid.MustParse("0b9c7a1e-3f4d-4c55-9d1e-7a0c2b3d4e5f"),
		Result:    models.AnalysisResult{Archetype: models.Archetype{Name: "Disciplined Trader"}},
	}
	require.NoError(t, s.SendReport(context.Background(), "ana@example.com", doc, []byte("%PDF")))
	require.NotNil(t, captured)

	rcpts, err := captured.GetRecipients()
	require.NoError(t, err)
	assert.Equal(t, []string{"ana@example.com"}, rcpts)
	assert.Contains(t, captured.GetGenHeader(mail.HeaderSubject)[0], "Raportul")

	attachments := captured.GetAttachments()
	require.Len(t, attachments, 1)
	assert.Equal(t, "raport-profil-trader-0b9c7a1e.pdf", attachments[0].Name)
}

func TestSendReportErrors(t *testing.T) {
	s := NewEmailService(EmailConfig{Host: "smtp.example.com", Port: 587, From: "raport@example.com"}, zap.NewNop())
	s.send = func(context.Context, *mail.Msg) error { return errors.New("connection refused") }

	err := s.SendReport(context.Background(), "ana@example.com", report.Document{SessionID: uuid.New()}, nil)
	assert.ErrorIs(t, err, apperr.ErrReporting)

	err = s.SendReport(context.Background(), "not an address", report.Document{SessionID: uuid.New()}, nil)
	assert.ErrorIs(t, err, apperr.ErrReporting)
}
