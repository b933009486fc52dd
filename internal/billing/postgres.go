package billing

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"

	"iconforge/internal/domain"
	"iconforge/internal/infra"
	"iconforge/internal/sqlinline"
)

const uniqueViolation = "23505"

type PostgresTransactions struct {
	sql infra.SQLExecutor
}

func NewPostgresTransactions(sql infra.SQLExecutor) *PostgresTransactions {
	return &PostgresTransactions{sql: sql}
}

func (p *PostgresTransactions) Create(ctx context.Context, tx *domain.Transaction) error {
	_, err := p.sql.Exec(ctx, sqlinline.QInsertTransaction,
		tx.ID, tx.AccountKey, tx.OrderID, tx.PackageID, tx.AmountCents, tx.Credits, tx.CreatedAt)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return domain.ErrDuplicateOperation
	}
	return err
}

// Settle completes the order and credits the accounts table in a single
// statement, so a failure leaves both untouched. credit is not called. The
// status = 'pending' predicate lets only one concurrent delivery win.
func (p *PostgresTransactions) Settle(ctx context.Context, orderID string, _ domain.SettleFunc) (*domain.Transaction, int, error) {
	var tx domain.Transaction
	var status string
	var balance int
	err := p.sql.QueryRow(ctx, sqlinline.QSettleTransaction, orderID).Scan(
		&tx.ID, &tx.AccountKey, &tx.OrderID, &tx.PackageID, &tx.AmountCents, &tx.Credits, &status, &tx.CreatedAt, &tx.CompletedAt, &balance)
	if err == nil {
		tx.Status = domain.TransactionStatus(status)
		return &tx, balance, nil
	}
	if !infra.IsNoRows(err) {
		return nil, 0, err
	}
	err = p.sql.QueryRow(ctx, sqlinline.QSelectTransactionStatus, orderID).Scan(&status)
	if infra.IsNoRows(err) {
		return nil, 0, domain.ErrNotFound
	}
	if err != nil {
		return nil, 0, err
	}
	return nil, 0, domain.ErrDuplicateOperation
}

var _ domain.TransactionRepository = (*PostgresTransactions)(nil)
