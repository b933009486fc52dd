package billing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/stripe/stripe-go/v78"
	"github.com/stripe/stripe-go/v78/client"
	"github.com/stripe/stripe-go/v78/webhook"

	"iconforge/internal/domain"
)

const eventCheckoutCompleted = "checkout.session.completed"

type stripeSessionAPI interface {
	New(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
}

type StripeOptions struct {
	APIKey        string
	WebhookSecret string
	Backends      *stripe.Backends
	// Sessions replaces the live checkout API. Tests only.
	Sessions stripeSessionAPI
}

// StripeProcessor sells credit packages through Stripe Checkout.
type StripeProcessor struct {
	sessions      stripeSessionAPI
	webhookSecret string
}

func NewStripeProcessor(opts StripeOptions) (*StripeProcessor, error) {
	secret := strings.TrimSpace(opts.WebhookSecret)
	if secret == "" {
		return nil, errors.New("stripe: webhook secret is required")
	}
	sessions := opts.Sessions
	if sessions == nil {
		key := strings.TrimSpace(opts.APIKey)
		if key == "" {
			return nil, errors.New("stripe: api key is required")
		}
		sessions = client.New(key, opts.Backends).CheckoutSessions
	}
	return &StripeProcessor{sessions: sessions, webhookSecret: secret}, nil
}

func (p *StripeProcessor) CreateCheckout(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error) {
	pkg := req.Package
	params := &stripe.CheckoutSessionParams{
		Mode:              stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL:        stripe.String(req.SuccessURL),
		CancelURL:         stripe.String(req.CancelURL),
		CustomerEmail:     stripe.String(req.AccountKey),
		ClientReferenceID: stripe.String(req.Reference),
		LineItems: []*stripe.CheckoutSessionLineItemParams{{
			Quantity: stripe.Int64(1),
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:   stripe.String(pkg.Currency),
				UnitAmount: stripe.Int64(pkg.PriceCents),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name:        stripe.String(fmt.Sprintf("%d IconForge Credits", pkg.Credits)),
					Description: stripe.String(pkg.Name + " package"),
				},
			},
		}},
	}
	params.Context = ctx
	params.AddMetadata("account_key", req.AccountKey)
	params.AddMetadata("package_id", pkg.ID)

	session, err := p.sessions.New(params)
	if err != nil {
		return nil, fmt.Errorf("stripe: create checkout session: %w", err)
	}
	return &CheckoutSession{OrderID: session.ID, URL: session.URL}, nil
}

// ParseWebhook verifies the Stripe-Signature header and extracts the checkout
// session id. Events other than checkout completion come back with Paid false.
func (p *StripeProcessor) ParseWebhook(payload []byte, signature string) (*WebhookEvent, error) {
	event, err := webhook.ConstructEventWithOptions(payload, signature, p.webhookSecret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidSignature, err)
	}
	out := &WebhookEvent{ID: event.ID, Type: string(event.Type)}
	if out.Type != eventCheckoutCompleted || event.Data == nil {
		return out, nil
	}
	var session stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
		return nil, fmt.Errorf("stripe: decode checkout session: %w", err)
	}
	out.OrderID = session.ID
	out.Paid = session.PaymentStatus == stripe.CheckoutSessionPaymentStatusPaid ||
		session.PaymentStatus == stripe.CheckoutSessionPaymentStatusNoPaymentRequired
	return out, nil
}

var _ PaymentProcessor = (*StripeProcessor)(nil)
