// internal/handlers/webhook.go
package handlers

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/TraderInsightsLab/Sistem/internal/apperr"
	"github.com/TraderInsightsLab/Sistem/internal/services"
)

// maxWebhookBody matches the payload ceiling the payment provider documents.
const maxWebhookBody = 65536

type WebhookHandler struct {
	log     *zap.Logger
	webhook *services.PaymentWebhook
}

func NewWebhookHandler(webhook *services.PaymentWebhook, log *zap.Logger) *WebhookHandler {
	return &WebhookHandler{log: log, webhook: webhook}
}

// Stripe verifies and applies a payment notification. Anything other than a 2xx makes
// the provider redeliver, so only rejected signatures and server failures return errors.
func (h *WebhookHandler) Stripe(c *gin.Context) {
	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		fail(c, h.log, apperr.Validation("unreadable webhook body: %v", err))
		return
	}

	outcome, err := h.webhook.Handle(c.Request.Context(), payload, c.GetHeader("Stripe-Signature"))
	if err != nil {
		fail(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"received": true, "outcome": outcome})
}
