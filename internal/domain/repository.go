package domain

import "context"

// CreditRepository persists per-account balances. Decrement must be a
// conditional update so concurrent callers cannot drive a balance below zero.
type CreditRepository interface {
	// Ensure returns the current balance, creating the account with grant
	// credits if it does not exist yet.
	Ensure(ctx context.Context, accountKey string, grant int) (int, error)
	// Decrement removes one credit when the balance is positive. ok is false
	// when the balance was already zero.
	Decrement(ctx context.Context, accountKey string) (balance int, ok bool, err error)
	// Increment adds n credits and returns the new balance.
	Increment(ctx context.Context, accountKey string, n int) (int, error)
}

// IconRepository stores archived generations.
type IconRepository interface {
	Save(ctx context.Context, icon *Icon) error
	ListByAccount(ctx context.Context, accountKey string, limit int) ([]Icon, error)
	Get(ctx context.Context, id, accountKey string) (*Icon, error)
	Delete(ctx context.Context, id, accountKey string) error
	SetFavorite(ctx context.Context, id, accountKey string, favorite bool) error
}

// TransactionRepository stores credit purchases.
type TransactionRepository interface {
	Create(ctx context.Context, tx *Transaction) error
	// Settle completes a pending order and credits its account in one step,
	// returning the transaction and the new balance. An order whose credit
	// fails stays pending. It returns ErrNotFound for unknown orders and
	// ErrDuplicateOperation when already completed.
	//
	// Stores that share a database with the ledger may credit the account in
	// the same statement instead of calling credit.
	Settle(ctx context.Context, orderID string, credit SettleFunc) (*Transaction, int, error)
}

// SettleFunc credits the account of a pending order and returns its balance.
type SettleFunc func(ctx context.Context, tx *Transaction) (int, error)

// UsageRepository records generation usage.
type UsageRepository interface {
	Record(ctx context.Context, event UsageEvent) error
}
