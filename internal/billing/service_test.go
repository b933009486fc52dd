package billing

import (
	"context"
	"errors"
	"testing"

	"iconforge/internal/domain"
	"iconforge/internal/ledger"
)

type stubProcessor struct {
	event     *WebhookEvent
	err       error
	checkouts int
}

func (s *stubProcessor) CreateCheckout(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error) {
	s.checkouts++
	if s.err != nil {
		return nil, s.err
	}
	return &CheckoutSession{OrderID: "order-1", URL: "https://pay/order-1"}, nil
}

func (s *stubProcessor) ParseWebhook(payload []byte, signature string) (*WebhookEvent, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.event, nil
}

func newBilling(t *testing.T, proc PaymentProcessor) (*Service, *ledger.Service) {
	t.Helper()
	led, err := ledger.NewService(ledger.Options{Store: ledger.NewMemoryStore()})
	if err != nil {
		t.Fatalf("ledger: %v", err)
	}
	svc, err := NewService(Options{
		Processor:     proc,
		Transactions:  NewMemoryTransactions(),
		Ledger:        led,
		PublicBaseURL: "https://iconforge.test/",
	})
	if err != nil {
		t.Fatalf("NewService error: %v", err)
	}
	return svc, led
}

func TestCreateOrderAndSettle(t *testing.T) {
	proc := &stubProcessor{event: &WebhookEvent{Type: eventCheckoutCompleted, OrderID: "order-1", Paid: true}}
	svc, led := newBilling(t, proc)
	ctx := context.Background()

	order, err := svc.CreateOrder(ctx, "buyer@example.com", "Starter")
	if err != nil {
		t.Fatalf("CreateOrder error: %v", err)
	}
	if order.OrderID != "order-1" || order.Package.Credits != 10 {
		t.Fatalf("unexpected order %+v", order)
	}

	res, err := svc.HandleWebhook(ctx, []byte("{}"), "sig")
	if err != nil {
		t.Fatalf("HandleWebhook error: %v", err)
	}
	if res.Credited != 10 || res.Balance != 10 {
		t.Fatalf("unexpected result %+v", res)
	}

	replay, err := svc.HandleWebhook(ctx, []byte("{}"), "sig")
	if err != nil || !replay.Duplicate {
		t.Fatalf("replay = %+v, %v", replay, err)
	}
	if b, _ := led.Balance(ctx, "buyer@example.com"); b != 10 {
		t.Fatalf("balance after replay = %d, want 10", b)
	}
}

func TestWebhookUnknownOrder(t *testing.T) {
	proc := &stubProcessor{event: &WebhookEvent{OrderID: "nope", Paid: true}}
	svc, _ := newBilling(t, proc)
	if _, err := svc.HandleWebhook(context.Background(), nil, ""); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestWebhookIgnoresUnpaid(t *testing.T) {
	proc := &stubProcessor{event: &WebhookEvent{OrderID: "order-1"}}
	svc, _ := newBilling(t, proc)
	res, err := svc.HandleWebhook(context.Background(), nil, "")
	if err != nil || !res.Ignored {
		t.Fatalf("res = %+v, %v", res, err)
	}
}

func TestCreateOrderValidation(t *testing.T) {
	proc := &stubProcessor{}
	svc, _ := newBilling(t, proc)
	ctx := context.Background()
	if _, err := svc.CreateOrder(ctx, "", "starter"); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, err := svc.CreateOrder(ctx, "a@example.com", "enterprise"); !errors.Is(err, domain.ErrUnknownPackage) {
		t.Fatalf("expected ErrUnknownPackage, got %v", err)
	}
	if proc.checkouts != 0 {
		t.Fatalf("processor called %d times", proc.checkouts)
	}

	disabled, _ := newBilling(t, nil)
	if _, err := disabled.CreateOrder(ctx, "a@example.com", "pro"); !errors.Is(err, ErrPaymentsDisabled) {
		t.Fatalf("expected ErrPaymentsDisabled, got %v", err)
	}
	if disabled.Enabled() {
		t.Fatal("expected disabled service")
	}
}

type flakyCreditor struct {
	*ledger.Service
	failures int
}

func (f *flakyCreditor) Credit(ctx context.Context, accountKey string, n int) (int, error) {
	if f.failures > 0 {
		f.failures--
		return 0, errors.New("transient db error")
	}
	return f.Service.Credit(ctx, accountKey, n)
}

func TestWebhookRedeliveryAfterFailedCredit(t *testing.T) {
	led, err := ledger.NewService(ledger.Options{Store: ledger.NewMemoryStore()})
	if err != nil {
		t.Fatalf("ledger: %v", err)
	}
	proc := &stubProcessor{event: &WebhookEvent{Type: eventCheckoutCompleted, OrderID: "order-1", Paid: true}}
	svc, err := NewService(Options{
		Processor:     proc,
		Transactions:  NewMemoryTransactions(),
		Ledger:        &flakyCreditor{Service: led, failures: 1},
		PublicBaseURL: "https://iconforge.test/",
	})
	if err != nil {
		t.Fatalf("NewService error: %v", err)
	}
	ctx := context.Background()
	if _, err := svc.CreateOrder(ctx, "buyer@example.com", "starter"); err != nil {
		t.Fatalf("CreateOrder error: %v", err)
	}

	if _, err := svc.HandleWebhook(ctx, []byte("{}"), "sig"); err == nil {
		t.Fatal("expected first delivery to fail")
	}
	res, err := svc.HandleWebhook(ctx, []byte("{}"), "sig")
	if err != nil {
		t.Fatalf("redelivery error: %v", err)
	}
	if res.Duplicate || res.Credited != 10 {
		t.Fatalf("redelivery = %+v", res)
	}
	if b, _ := led.Balance(ctx, "buyer@example.com"); b != 10 {
		t.Fatalf("balance = %d, want 10", b)
	}

	replay, err := svc.HandleWebhook(ctx, []byte("{}"), "sig")
	if err != nil || !replay.Duplicate {
		t.Fatalf("replay = %+v, %v", replay, err)
	}
}
