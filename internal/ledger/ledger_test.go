package ledger

import (
	"context"
	"errors"
	"sync"
	"testing"

	"iconforge/internal/domain"
)

func newService(t *testing.T, grant int) *Service {
	t.Helper()
	svc, err := NewService(Options{Store: NewMemoryStore(), OnboardingGrant: grant})
	if err != nil {
		t.Fatalf("NewService error: %v", err)
	}
	return svc
}

func TestDebitEmptyAccountFails(t *testing.T) {
	svc := newService(t, 0)
	ctx := context.Background()
	if _, err := svc.Debit(ctx, "a@example.com"); !errors.Is(err, domain.ErrInsufficientCredits) {
		t.Fatalf("expected ErrInsufficientCredits, got %v", err)
	}
	balance, err := svc.Balance(ctx, "a@example.com")
	if err != nil || balance != 0 {
		t.Fatalf("balance = %d, %v; want 0", balance, err)
	}
}

func TestDebitRefundNetsToZero(t *testing.T) {
	svc := newService(t, 3)
	ctx := context.Background()
	after, err := svc.Debit(ctx, "a@example.com")
	if err != nil || after != 2 {
		t.Fatalf("Debit = %d, %v", after, err)
	}
	refunded, err := svc.Refund(ctx, "a@example.com")
	if err != nil || refunded != 3 {
		t.Fatalf("Refund = %d, %v", refunded, err)
	}
}

func TestOnboardingGrantAppliedOnce(t *testing.T) {
	svc := newService(t, 2)
	ctx := context.Background()
	if b, _ := svc.Balance(ctx, " a@example.com "); b != 2 {
		t.Fatalf("first balance = %d", b)
	}
	if _, err := svc.Debit(ctx, "a@example.com"); err != nil {
		t.Fatalf("Debit error: %v", err)
	}
	if b, _ := svc.Balance(ctx, "a@example.com"); b != 1 {
		t.Fatalf("balance after debit = %d, want 1", b)
	}
}

func TestConcurrentDebitsAtBalanceOne(t *testing.T) {
	for run := 0; run < 50; run++ {
		svc := newService(t, 1)
		ctx := context.Background()
		var wg sync.WaitGroup
		results := make([]error, 2)
		start := make(chan struct{})
		for i := range results {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				<-start
				_, results[i] = svc.Debit(ctx, "race@example.com")
			}(i)
		}
		close(start)
		wg.Wait()
		var ok, insufficient int
		for _, err := range results {
			switch {
			case err == nil:
				ok++
			case errors.Is(err, domain.ErrInsufficientCredits):
				insufficient++
			default:
				t.Fatalf("unexpected error: %v", err)
			}
		}
		if ok != 1 || insufficient != 1 {
			t.Fatalf("run %d: ok=%d insufficient=%d", run, ok, insufficient)
		}
		if b, _ := svc.Balance(ctx, "race@example.com"); b != 0 {
			t.Fatalf("balance = %d, want 0", b)
		}
	}
}

func TestCredit(t *testing.T) {
	svc := newService(t, 0)
	ctx := context.Background()
	balance, err := svc.Credit(ctx, "buyer@example.com", 50)
	if err != nil || balance != 50 {
		t.Fatalf("Credit = %d, %v", balance, err)
	}
	if _, err := svc.Credit(ctx, "buyer@example.com", 0); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestBlankAccountKey(t *testing.T) {
	svc := newService(t, 0)
	if _, err := svc.Debit(context.Background(), "  "); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestNewServiceValidation(t *testing.T) {
	if _, err := NewService(Options{}); err == nil {
		t.Fatal("expected error without store")
	}
	if _, err := NewService(Options{Store: NewMemoryStore(), OnboardingGrant: -1}); err == nil {
		t.Fatal("expected error for negative grant")
	}
}

type failingStore struct{ domain.CreditRepository }

func (failingStore) Ensure(context.Context, string, int) (int, error) {
	return 0, errors.New("db down")
}

func TestDebitStoreFailureIsNotInsufficient(t *testing.T) {
	svc, _ := NewService(Options{Store: failingStore{}})
	_, err := svc.Debit(context.Background(), "a@example.com")
	if err == nil || errors.Is(err, domain.ErrInsufficientCredits) {
		t.Fatalf("expected store error, got %v", err)
	}
}
