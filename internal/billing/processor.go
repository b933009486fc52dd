package billing

import (
	"context"

	"iconforge/internal/domain"
)

type CheckoutRequest struct {
	AccountKey string
	Package    domain.CreditPackage
	Reference  string
	SuccessURL string
	CancelURL  string
}

// CheckoutSession is the processor-side order the caller pays on.
type CheckoutSession struct {
	OrderID string
	URL     string
}

// WebhookEvent is the processor-neutral view of a verified notification.
type WebhookEvent struct {
	ID      string
	Type    string
	OrderID string
	// Paid is true only for completed orders whose payment settled.
	Paid bool
}

// PaymentProcessor creates orders and verifies notifications about them.
type PaymentProcessor interface {
	CreateCheckout(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error)
	ParseWebhook(payload []byte, signature string) (*WebhookEvent, error)
}
