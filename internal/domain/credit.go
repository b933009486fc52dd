package domain

import "time"

// CreditAccount is the prepaid balance attached to an account key.
type CreditAccount struct {
	AccountKey string
	Balance    int
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// CreditPackage is a purchasable bundle of credits.
type CreditPackage struct {
	ID         string
	Name       string
	Credits    int
	PriceCents int64
	Currency   string
}

// TransactionStatus enumerates purchase states.
type TransactionStatus string

const (
	TransactionPending   TransactionStatus = "pending"
	TransactionCompleted TransactionStatus = "completed"
)

// Transaction tracks a credit purchase from order creation to settlement.
type Transaction struct {
	ID          string
	AccountKey  string
	OrderID     string
	PackageID   string
	AmountCents int64
	Credits     int
	Status      TransactionStatus
	CreatedAt   time.Time
	CompletedAt *time.Time
}

// UsageEvent is written once per successful generation.
type UsageEvent struct {
	AccountKey string
	Prompt     string
	Provider   string
	Country    string
	LatencyMS  int64
	CreatedAt  time.Time
}
