// Package billing sells credit packages and settles paid orders into the
// ledger.
package billing

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"iconforge/internal/domain"
	"iconforge/internal/infra"
)

// ErrPaymentsDisabled is returned when no processor is configured.
var ErrPaymentsDisabled = errors.New("billing: payments are not configured")

// Creditor is the ledger surface billing needs.
type Creditor interface {
	Balance(ctx context.Context, accountKey string) (int, error)
	Credit(ctx context.Context, accountKey string, n int) (int, error)
}

type Options struct {
	Processor    PaymentProcessor
	Transactions domain.TransactionRepository
	Ledger       Creditor
	// PublicBaseURL is where the checkout returns to.
	PublicBaseURL string
	Logger        *infra.Logger
	Now           func() time.Time
}

type Service struct {
	processor PaymentProcessor
	txs       domain.TransactionRepository
	ledger    Creditor
	baseURL   string
	logger    *infra.Logger
	now       func() time.Time
}

type Order struct {
	OrderID     string
	CheckoutURL string
	Package     domain.CreditPackage
}

// WebhookResult reports what a notification did.
type WebhookResult struct {
	OrderID   string
	Credited  int
	Balance   int
	Duplicate bool
	Ignored   bool
}

func NewService(opts Options) (*Service, error) {
	if opts.Transactions == nil || opts.Ledger == nil {
		return nil, errors.New("billing: transactions and ledger are required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = infra.DiscardLogger()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Service{
		processor: opts.Processor,
		txs:       opts.Transactions,
		ledger:    opts.Ledger,
		baseURL:   strings.TrimRight(strings.TrimSpace(opts.PublicBaseURL), "/"),
		logger:    logger,
		now:       now,
	}, nil
}

// Enabled reports whether orders can be created.
func (s *Service) Enabled() bool {
	return s.processor != nil
}

// CreateOrder opens a checkout for packageID and records a pending transaction.
func (s *Service) CreateOrder(ctx context.Context, accountKey, packageID string) (*Order, error) {
	accountKey = strings.TrimSpace(accountKey)
	if accountKey == "" {
		return nil, &domain.ValidationError{Field: "email", Reason: "is required"}
	}
	pkg, err := LookupPackage(packageID)
	if err != nil {
		return nil, err
	}
	if s.processor == nil {
		return nil, ErrPaymentsDisabled
	}
	if _, err := s.ledger.Balance(ctx, accountKey); err != nil {
		return nil, err
	}
	txID := uuid.NewString()
	session, err := s.processor.CreateCheckout(ctx, CheckoutRequest{
		AccountKey: accountKey,
		Package:    pkg,
		Reference:  txID,
		SuccessURL: s.baseURL + "/?payment=success",
		CancelURL:  s.baseURL + "/?payment=cancelled",
	})
	if err != nil {
		return nil, err
	}
	tx := &domain.Transaction{
		ID:          txID,
		AccountKey:  accountKey,
		OrderID:     session.OrderID,
		PackageID:   pkg.ID,
		AmountCents: pkg.PriceCents,
		Credits:     pkg.Credits,
		Status:      domain.TransactionPending,
		CreatedAt:   s.now().UTC(),
	}
	if err := s.txs.Create(ctx, tx); err != nil {
		return nil, fmt.Errorf("billing: record transaction: %w", err)
	}
	s.logger.Info().
		Str("account", accountKey).
		Str("order_id", session.OrderID).
		Str("package", pkg.ID).
		Msg("billing: order created")
	return &Order{OrderID: session.OrderID, CheckoutURL: session.URL, Package: pkg}, nil
}

// HandleWebhook verifies a notification and credits the account for a newly
// completed order. Replays of the same order are acknowledged without
// crediting again.
func (s *Service) HandleWebhook(ctx context.Context, payload []byte, signature string) (*WebhookResult, error) {
	if s.processor == nil {
		return nil, ErrPaymentsDisabled
	}
	event, err := s.processor.ParseWebhook(payload, signature)
	if err != nil {
		return nil, err
	}
	if !event.Paid || event.OrderID == "" {
		s.logger.Debug().Str("event_type", event.Type).Str("event_id", event.ID).Msg("billing: webhook ignored")
		return &WebhookResult{OrderID: event.OrderID, Ignored: true}, nil
	}
	tx, balance, err := s.txs.Settle(ctx, event.OrderID, func(ctx context.Context, tx *domain.Transaction) (int, error) {
		return s.ledger.Credit(ctx, tx.AccountKey, tx.Credits)
	})
	if errors.Is(err, domain.ErrDuplicateOperation) {
		s.logger.Info().Str("order_id", event.OrderID).Msg("billing: duplicate completion ignored")
		return &WebhookResult{OrderID: event.OrderID, Duplicate: true}, nil
	}
	if err != nil {
		s.logger.Error().Err(err).Str("order_id", event.OrderID).Msg("billing: settlement failed; order left pending")
		return nil, err
	}
	s.logger.Info().
		Str("order_id", tx.OrderID).
		Str("account", tx.AccountKey).
		Int("credits", tx.Credits).
		Int("balance", balance).
		Msg("billing: order completed")
	return &WebhookResult{OrderID: tx.OrderID, Credited: tx.Credits, Balance: balance}, nil
}
