package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/client"
	"github.com/stripe/stripe-go/v79/webhook"
	"go.uber.org/zap"

	"github.com/TraderInsightsLab/Sistem/internal/apperr"
	"github.com/TraderInsightsLab/Sistem/internal/models"
)

// MinAmount is the smallest charge accepted, in minor units.
const MinAmount = 50

const metadataSessionID = "sessionId"

type Config struct {
	SecretKey     string
	WebhookSecret string
	ProductName   string
	// SuccessURL and CancelURL may contain {sessionId}, replaced per checkout.
	SuccessURL string
	CancelURL  string
}

// StripeGateway talks to Stripe Checkout.
type StripeGateway struct {
	cfg Config
	api *client.API
	log *zap.Logger
}

func NewStripeGateway(cfg Config, log *zap.Logger) (*StripeGateway, error) {
	return newStripeGateway(cfg, nil, log)
}

func newStripeGateway(cfg Config, backends *stripe.Backends, log *zap.Logger) (*StripeGateway, error) {
	if cfg.SecretKey == "" {
		return nil, apperr.Configuration("payment secret key is required")
	}
	if cfg.WebhookSecret == "" {
		return nil, apperr.Configuration("payment webhook secret is required")
	}
	if cfg.ProductName == "" {
		cfg.ProductName = "Raport complet de profil psihologic"
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &StripeGateway{
		cfg: cfg,
		api: client.New(cfg.SecretKey, backends),
		log: log.Named("payment"),
	}, nil
}

func (g *StripeGateway) CreateCheckout(ctx context.Context, req CheckoutRequest) (Checkout, error) {
	if req.AmountMinorUnits < MinAmount {
		return Checkout{}, apperr.Validation("amount %d is below the minimum of %d", req.AmountMinorUnits, MinAmount)
	}
	if strings.TrimSpace(req.Currency) == "" {
		return Checkout{}, apperr.Validation("currency is required")
	}
	sid := req.SessionID.String()

	params := &stripe.CheckoutSessionParams{
		Mode:               stripe.String(string(stripe.CheckoutSessionModePayment)),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		LineItems: []*stripe.CheckoutSessionLineItemParams{{
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:   stripe.String(strings.ToLower(req.Currency)),
				UnitAmount: stripe.Int64(req.AmountMinorUnits),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name: stripe.String(g.cfg.ProductName),
				},
			},
			Quantity: stripe.Int64(1),
		}},
		ClientReferenceID: stripe.String(sid),
		SuccessURL:        stripe.String(expandURL(g.cfg.SuccessURL, sid)),
		CancelURL:         stripe.String(expandURL(g.cfg.CancelURL, sid)),
		PaymentIntentData: &stripe.CheckoutSessionPaymentIntentDataParams{
			Metadata: map[string]string{metadataSessionID: sid},
		},
	}
	if req.CustomerEmail != "" {
		params.CustomerEmail = stripe.String(req.CustomerEmail)
	}
	params.Context = ctx
	params.AddMetadata(metadataSessionID, sid)

	cs, err := g.api.CheckoutSessions.New(params)
	if err != nil {
		return Checkout{}, apperr.Payment("create checkout", err)
	}
	g.log.Info("Checkout created", zap.String("session_id", sid), zap.String("checkout_id", cs.ID))
	return Checkout{ID: cs.ID, URL: cs.URL}, nil
}

func expandURL(tmpl, sessionID string) string {
	return strings.ReplaceAll(tmpl, "{sessionId}", sessionID)
}

// ParseWebhook verifies the signature and maps the event onto a payment status.
func (g *StripeGateway) ParseWebhook(payload []byte, signature string) (Event, error) {
	ev, err := webhook.ConstructEventWithOptions(payload, signature, g.cfg.WebhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		return Event{}, apperr.Validation("webhook signature: %v", err)
	}
	out := Event{ID: ev.ID, Type: string(ev.Type)}
	if ev.Data == nil {
		return out, nil
	}

	var metadata map[string]string
	switch out.Type {
	case "checkout.session.completed", "checkout.session.async_payment_succeeded",
		"checkout.session.async_payment_failed":
		var cs stripe.CheckoutSession
		if err := json.Unmarshal(ev.Data.Raw, &cs); err != nil {
			return Event{}, apperr.Payment("decode checkout session", err)
		}
		metadata = cs.Metadata
		if metadata[metadataSessionID] == "" && cs.ClientReferenceID != "" {
			metadata = map[string]string{metadataSessionID: cs.ClientReferenceID}
		}
		switch {
		case out.Type == "checkout.session.async_payment_failed":
			out.Status = models.PaymentFailed
		case cs.PaymentStatus == stripe.CheckoutSessionPaymentStatusUnpaid:
			// Delayed methods confirm later through async_payment_succeeded.
		default:
			out.Status = models.PaymentCompleted
		}
	case "payment_intent.succeeded", "payment_intent.payment_failed":
		var pi stripe.PaymentIntent
		if err := json.Unmarshal(ev.Data.Raw, &pi); err != nil {
			return Event{}, apperr.Payment("decode payment intent", err)
		}
		metadata = pi.Metadata
		out.Status = models.PaymentCompleted
		if out.Type == "payment_intent.payment_failed" {
			out.Status = models.PaymentFailed
		}
	default:
		return out, nil
	}

	raw := metadata[metadataSessionID]
	if raw == "" {
		g.log.Warn("Payment event without session reference", zap.String("event_id", out.ID), zap.String("type", out.Type))
		out.Status = ""
		return out, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return Event{}, apperr.Validation("event %s carries invalid session id %q", out.ID, raw)
	}
	out.SessionID = id
	return out, nil
}

func (e Event) String() string {
	return fmt.Sprintf("%s(%s) session=%s status=%s", e.Type, e.ID, e.SessionID, e.Status)
}
