package ledger

import (
	"context"

	"iconforge/internal/domain"
	"iconforge/internal/infra"
	"iconforge/internal/sqlinline"
)

// PostgresStore keeps balances in the accounts table. The debit is a single
// conditional UPDATE, so the database serializes concurrent debits.
type PostgresStore struct {
	sql infra.SQLExecutor
}

func NewPostgresStore(sql infra.SQLExecutor) *PostgresStore {
	return &PostgresStore{sql: sql}
}

// Ensure reads the balance again in a fresh statement when a concurrent first
// request created the account.
func (p *PostgresStore) Ensure(ctx context.Context, accountKey string, grant int) (int, error) {
	var credits int
	err := p.sql.QueryRow(ctx, sqlinline.QEnsureAccount, accountKey, grant).Scan(&credits)
	if infra.IsNoRows(err) {
		err = p.sql.QueryRow(ctx, sqlinline.QSelectAccountCredits, accountKey).Scan(&credits)
	}
	if err != nil {
		return 0, err
	}
	return credits, nil
}

func (p *PostgresStore) Decrement(ctx context.Context, accountKey string) (int, bool, error) {
	var credits int
	err := p.sql.QueryRow(ctx, sqlinline.QDecrementCredits, accountKey).Scan(&credits)
	if infra.IsNoRows(err) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return credits, true, nil
}

func (p *PostgresStore) Increment(ctx context.Context, accountKey string, n int) (int, error) {
	var credits int
	err := p.sql.QueryRow(ctx, sqlinline.QIncrementCredits, accountKey, n).Scan(&credits)
	if infra.IsNoRows(err) {
		return 0, domain.ErrNotFound
	}
	if err != nil {
		return 0, err
	}
	return credits, nil
}

var _ domain.CreditRepository = (*PostgresStore)(nil)
