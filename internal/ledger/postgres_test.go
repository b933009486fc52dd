package ledger

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"iconforge/internal/domain"
	"iconforge/internal/sqlinline"
)

type stubExecutor struct {
	rows    map[string]stubRow
	queries []string
	args    [][]any
}

func (s *stubExecutor) Exec(ctx context.Context, query string, args ...any) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, errors.New("not implemented")
}

func (s *stubExecutor) QueryRow(ctx context.Context, query string, args ...any) pgx.Row {
	s.queries = append(s.queries, query)
	s.args = append(s.args, args)
	return s.rows[query]
}

func (s *stubExecutor) Query(ctx context.Context, query string, args ...any) (pgx.Rows, error) {
	return nil, errors.New("not implemented")
}

type stubRow struct {
	value int
	err   error
}

func (r stubRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	*dest[0].(*int) = r.value
	return nil
}

func TestPostgresStoreDecrement(t *testing.T) {
	exec := &stubExecutor{rows: map[string]stubRow{sqlinline.QDecrementCredits: {value: 4}}}
	store := NewPostgresStore(exec)
	balance, ok, err := store.Decrement(context.Background(), "a@example.com")
	if err != nil || !ok || balance != 4 {
		t.Fatalf("Decrement = %d, %v, %v", balance, ok, err)
	}
	if exec.args[0][0] != "a@example.com" {
		t.Fatalf("args = %v", exec.args[0])
	}
}

func TestPostgresStoreDecrementAtZero(t *testing.T) {
	exec := &stubExecutor{rows: map[string]stubRow{sqlinline.QDecrementCredits: {err: pgx.ErrNoRows}}}
	_, ok, err := NewPostgresStore(exec).Decrement(context.Background(), "a@example.com")
	if err != nil || ok {
		t.Fatalf("expected refused debit, got ok=%v err=%v", ok, err)
	}
}

func TestPostgresStoreEnsureAndIncrement(t *testing.T) {
	exec := &stubExecutor{rows: map[string]stubRow{
		sqlinline.QEnsureAccount:    {value: 5},
		sqlinline.QIncrementCredits: {err: pgx.ErrNoRows},
	}}
	store := NewPostgresStore(exec)
	balance, err := store.Ensure(context.Background(), "a@example.com", 5)
	if err != nil || balance != 5 {
		t.Fatalf("Ensure = %d, %v", balance, err)
	}
	if exec.args[0][1] != 5 {
		t.Fatalf("grant arg = %v", exec.args[0][1])
	}
	if _, err := store.Increment(context.Background(), "missing", 1); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestPostgresStoreEnsureLosingConcurrentInsert(t *testing.T) {
	exec := &stubExecutor{rows: map[string]stubRow{
		sqlinline.QEnsureAccount:        {err: pgx.ErrNoRows},
		sqlinline.QSelectAccountCredits: {value: 3},
	}}
	balance, err := NewPostgresStore(exec).Ensure(context.Background(), "new@example.com", 3)
	if err != nil || balance != 3 {
		t.Fatalf("Ensure = %d, %v", balance, err)
	}
	if len(exec.queries) != 2 || exec.queries[1] != sqlinline.QSelectAccountCredits {
		t.Fatalf("expected a follow-up read, ran %d queries", len(exec.queries))
	}
	if exec.args[1][0] != "new@example.com" {
		t.Fatalf("args = %v", exec.args[1])
	}
}

func TestPostgresStoreEnsureFailsWhenAccountStillMissing(t *testing.T) {
	exec := &stubExecutor{rows: map[string]stubRow{
		sqlinline.QEnsureAccount:        {err: pgx.ErrNoRows},
		sqlinline.QSelectAccountCredits: {err: pgx.ErrNoRows},
	}}
	if _, err := NewPostgresStore(exec).Ensure(context.Background(), "ghost@example.com", 0); err == nil {
		t.Fatal("expected error")
	}
}
