package ledger

import (
	"context"
	"sync"

	"iconforge/internal/domain"
)

type memAccount struct {
	mu      sync.Mutex
	credits int
}

// MemoryStore is a process-local CreditRepository. Each account has its own
// mutex so debits on one account serialize without blocking the others.
type MemoryStore struct {
	mu       sync.Mutex
	accounts map[string]*memAccount
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{accounts: make(map[string]*memAccount)}
}

func (m *MemoryStore) account(key string, grant int, create bool) *memAccount {
	m.mu.Lock()
	defer m.mu.Unlock()
	acct, ok := m.accounts[key]
	if !ok && create {
		acct = &memAccount{credits: grant}
		m.accounts[key] = acct
	}
	return acct
}

func (m *MemoryStore) Ensure(ctx context.Context, accountKey string, grant int) (int, error) {
	acct := m.account(accountKey, grant, true)
	acct.mu.Lock()
	defer acct.mu.Unlock()
	return acct.credits, nil
}

func (m *MemoryStore) Decrement(ctx context.Context, accountKey string) (int, bool, error) {
	acct := m.account(accountKey, 0, false)
	if acct == nil {
		return 0, false, nil
	}
	acct.mu.Lock()
	defer acct.mu.Unlock()
	if acct.credits <= 0 {
		return acct.credits, false, nil
	}
	acct.credits--
	return acct.credits, true, nil
}

func (m *MemoryStore) Increment(ctx context.Context, accountKey string, n int) (int, error) {
	acct := m.account(accountKey, 0, false)
	if acct == nil {
		return 0, domain.ErrNotFound
	}
	acct.mu.Lock()
	defer acct.mu.Unlock()
	acct.credits += n
	return acct.credits, nil
}

var _ domain.CreditRepository = (*MemoryStore)(nil)
