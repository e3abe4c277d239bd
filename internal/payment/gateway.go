// Package payment creates checkouts for the full report and reads payment confirmations.
package payment

import (
	"context"

	"github.com/google/uuid"

	"github.com/TraderInsightsLab/Sistem/internal/models"
)

// CheckoutRequest is what the funnel asks the provider to charge.
type CheckoutRequest struct {
	SessionID        uuid.UUID
	AmountMinorUnits int64
	Currency         string
	CustomerEmail    string
}

// Checkout is the provider's reference and the page the visitor is sent to.
type Checkout struct {
	ID  string
	URL string
}

// Event is a verified webhook notification. Events the funnel does not care about have
// Status == "" and are acknowledged without effect.
type Event struct {
	ID        string
	Type      string
	SessionID uuid.UUID
	Status    models.PaymentStatus
}

// Relevant reports whether the event changes a session's payment status.
func (e Event) Relevant() bool {
	return e.Status != "" && e.SessionID != uuid.Nil
}

type Gateway interface {
	CreateCheckout(ctx context.Context, req CheckoutRequest) (Checkout, error)
	ParseWebhook(payload []byte, signature string) (Event, error)
}
