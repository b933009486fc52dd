package billing

import (
	"context"
	"sync"
	"time"

	"iconforge/internal/domain"
)

// MemoryTransactions is a TransactionRepository for deployments without a
// database.
type MemoryTransactions struct {
	mu      sync.Mutex
	byOrder map[string]domain.Transaction
	now     func() time.Time
}

func NewMemoryTransactions() *MemoryTransactions {
	return &MemoryTransactions{byOrder: make(map[string]domain.Transaction), now: time.Now}
}

func (m *MemoryTransactions) Create(ctx context.Context, tx *domain.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byOrder[tx.OrderID]; ok {
		return domain.ErrDuplicateOperation
	}
	m.byOrder[tx.OrderID] = *tx
	return nil
}

// Settle holds the store lock across the credit, so concurrent deliveries of
// one order cannot both credit it.
func (m *MemoryTransactions) Settle(ctx context.Context, orderID string, credit domain.SettleFunc) (*domain.Transaction, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	tx, ok := m.byOrder[orderID]
	if !ok {
		return nil, 0, domain.ErrNotFound
	}
	if tx.Status == domain.TransactionCompleted {
		return nil, 0, domain.ErrDuplicateOperation
	}
	balance, err := credit(ctx, &tx)
	if err != nil {
		return nil, 0, err
	}
	completed := m.now().UTC()
	tx.Status = domain.TransactionCompleted
	tx.CompletedAt = &completed
	m.byOrder[orderID] = tx
	return &tx, balance, nil
}

var _ domain.TransactionRepository = (*MemoryTransactions)(nil)
