package services

import (
	"bytes"
	"context"
	"fmt"

	"github.com/wneessen/go-mail"
	"go.uber.org/zap"

	"github.com/TraderInsightsLab/Sistem/internal/apperr"
	"github.com/TraderInsightsLab/Sistem/internal/report"
)

type EmailConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	FromName string
}

// EmailService sends the paid report over SMTP.
type EmailService struct {
	cfg  EmailConfig
	log  *zap.Logger
	send func(ctx context.Context, msg *mail.Msg) error
}

func NewEmailService(cfg EmailConfig, log *zap.Logger) *EmailService {
	s := &EmailService{cfg: cfg, log: log}
	s.send = s.dialAndSend
	return s
}

func (s *EmailService) dialAndSend(ctx context.Context, msg *mail.Msg) error {
	opts := []mail.Option{
		mail.WithPort(s.cfg.Port),
		mail.WithTLSPolicy(mail.TLSOpportunistic),
	}
	if s.cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(s.cfg.Username),
			mail.WithPassword(s.cfg.Password),
		)
	}
	client, err := mail.NewClient(s.cfg.Host, opts...)
	if err != nil {
		return err
	}
	return client.DialAndSendWithContext(ctx, msg)
}

// SendReport mails the PDF to the visitor.
func (s *EmailService) SendReport(ctx context.Context, to string, doc report.Document, pdf []byte) error {
	msg := mail.NewMsg()
	if err := msg.FromFormat(s.cfg.FromName, s.cfg.From); err != nil {
		return apperr.Reporting("set sender", err)
	}
	if err := msg.To(to); err != nil {
		return apperr.Reporting("set recipient", err)
	}
	msg.Subject("Raportul tău complet de profil psihologic pentru trading")
	msg.SetBodyString(mail.TypeTextPlain, reportText(doc))
	msg.AttachReadSeeker(report.FileName(doc.SessionID), bytes.NewReader(pdf),
		mail.WithFileContentType("application/pdf"))

	if err := s.send(ctx, msg); err != nil {
		return apperr.Reporting("send email", err)
	}
	s.log.Info("Report email sent", zap.String("to", to), zap.String("sessionID", doc.SessionID.String()))
	return nil
}

func reportText(doc report.Document) string {
	return fmt.Sprintf(`Bună,

Îți mulțumim pentru încredere! Găsești atașat raportul complet al profilului tău de trader.

Arhetipul tău: %s

Raportul include punctele forte și slabe, analiza diferențelor dintre percepție și realitate,
recomandări de trading și un plan de dezvoltare personalizat.

Echipa Trader Insights Lab
`, doc.Result.Archetype.Name)
}
