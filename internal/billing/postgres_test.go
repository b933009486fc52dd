package billing

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"iconforge/internal/domain"
	"iconforge/internal/sqlinline"
)

type scanFunc func(dest ...any) error

func (f scanFunc) Scan(dest ...any) error { return f(dest...) }

type stubExecutor struct {
	rows    map[string]scanFunc
	queries []string
}

func (s *stubExecutor) Exec(ctx context.Context, query string, args ...any) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, errors.New("not implemented")
}

func (s *stubExecutor) QueryRow(ctx context.Context, query string, args ...any) pgx.Row {
	s.queries = append(s.queries, query)
	if row, ok := s.rows[query]; ok {
		return row
	}
	return scanFunc(func(...any) error { return pgx.ErrNoRows })
}

func (s *stubExecutor) Query(ctx context.Context, query string, args ...any) (pgx.Rows, error) {
	return nil, errors.New("not implemented")
}

func settledRow(dest ...any) error {
	completed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	*dest[0].(*string) = "tx-1"
	*dest[1].(*string) = "buyer@example.com"
	*dest[2].(*string) = "order-1"
	*dest[3].(*string) = "starter"
	*dest[4].(*int64) = 500
	*dest[5].(*int) = 10
	*dest[6].(*string) = "completed"
	*dest[7].(*time.Time) = completed.Add(-time.Minute)
	*dest[8].(**time.Time) = &completed
	*dest[9].(*int) = 13
	return nil
}

func TestPostgresSettleCreditsInOneStatement(t *testing.T) {
	exec := &stubExecutor{rows: map[string]scanFunc{sqlinline.QSettleTransaction: settledRow}}
	called := false
	tx, balance, err := NewPostgresTransactions(exec).Settle(context.Background(), "order-1", func(context.Context, *domain.Transaction) (int, error) {
		called = true
		return 0, nil
	})
	if err != nil {
		t.Fatalf("Settle error: %v", err)
	}
	if called {
		t.Fatal("credit callback should not run for the postgres store")
	}
	if tx.Status != domain.TransactionCompleted || tx.Credits != 10 || balance != 13 {
		t.Fatalf("tx=%+v balance=%d", tx, balance)
	}
	if len(exec.queries) != 1 {
		t.Fatalf("expected a single statement, ran %d", len(exec.queries))
	}
	if !strings.Contains(sqlinline.QSettleTransaction, "insert into accounts") {
		t.Fatal("settle statement must credit the account")
	}
}

func TestPostgresSettleMissingAndDuplicate(t *testing.T) {
	missing := &stubExecutor{rows: map[string]scanFunc{}}
	if _, _, err := NewPostgresTransactions(missing).Settle(context.Background(), "nope", nil); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	done := &stubExecutor{rows: map[string]scanFunc{
		sqlinline.QSelectTransactionStatus: func(dest ...any) error {
			*dest[0].(*string) = "completed"
			return nil
		},
	}}
	if _, _, err := NewPostgresTransactions(done).Settle(context.Background(), "order-1", nil); !errors.Is(err, domain.ErrDuplicateOperation) {
		t.Fatalf("expected ErrDuplicateOperation, got %v", err)
	}
}

func TestPostgresSettlePropagatesFailure(t *testing.T) {
	exec := &stubExecutor{rows: map[string]scanFunc{
		sqlinline.QSettleTransaction: func(...any) error { return errors.New("connection reset") },
	}}
	if _, _, err := NewPostgresTransactions(exec).Settle(context.Background(), "order-1", nil); err == nil || errors.Is(err, domain.ErrDuplicateOperation) {
		t.Fatalf("expected raw failure, got %v", err)
	}
}
