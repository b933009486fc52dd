// Package ledger keeps the per-account credit balance. Balances change only
// through Debit and Refund on the generation path, and through Credit when a
// purchase settles.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"iconforge/internal/domain"
	"iconforge/internal/infra"
)

type Options struct {
	Store domain.CreditRepository
	// OnboardingGrant is the balance a new account starts with.
	OnboardingGrant int
	Logger          *infra.Logger
}

type Service struct {
	store  domain.CreditRepository
	grant  int
	logger *infra.Logger
}

func NewService(opts Options) (*Service, error) {
	if opts.Store == nil {
		return nil, errors.New("ledger: store is required")
	}
	if opts.OnboardingGrant < 0 {
		return nil, errors.New("ledger: onboarding grant must not be negative")
	}
	logger := opts.Logger
	if logger == nil {
		logger = infra.DiscardLogger()
	}
	return &Service{store: opts.Store, grant: opts.OnboardingGrant, logger: logger}, nil
}

// Debit removes one credit. It returns domain.ErrInsufficientCredits without
// touching the balance when the account is empty.
func (s *Service) Debit(ctx context.Context, accountKey string) (int, error) {
	key, err := normalizeKey(accountKey)
	if err != nil {
		return 0, err
	}
	if _, err := s.store.Ensure(ctx, key, s.grant); err != nil {
		return 0, fmt.Errorf("ledger: ensure account: %w", err)
	}
	balance, ok, err := s.store.Decrement(ctx, key)
	if err != nil {
		return 0, fmt.Errorf("ledger: debit: %w", err)
	}
	if !ok {
		return balance, domain.ErrInsufficientCredits
	}
	s.logger.Debug().Str("account", key).Int("balance", balance).Msg("ledger: debited")
	return balance, nil
}

// Refund gives back one credit. Callers issue at most one refund per debit.
func (s *Service) Refund(ctx context.Context, accountKey string) (int, error) {
	key, err := normalizeKey(accountKey)
	if err != nil {
		return 0, err
	}
	balance, err := s.store.Increment(ctx, key, 1)
	if err != nil {
		return 0, fmt.Errorf("ledger: refund: %w", err)
	}
	s.logger.Info().Str("account", key).Int("balance", balance).Msg("ledger: refunded")
	return balance, nil
}

// Balance returns the current balance, opening the account on first sight.
func (s *Service) Balance(ctx context.Context, accountKey string) (int, error) {
	key, err := normalizeKey(accountKey)
	if err != nil {
		return 0, err
	}
	balance, err := s.store.Ensure(ctx, key, s.grant)
	if err != nil {
		return 0, fmt.Errorf("ledger: balance: %w", err)
	}
	return balance, nil
}

// Credit adds purchased credits.
func (s *Service) Credit(ctx context.Context, accountKey string, n int) (int, error) {
	key, err := normalizeKey(accountKey)
	if err != nil {
		return 0, err
	}
	if n <= 0 {
		return 0, &domain.ValidationError{Field: "credits", Reason: "must be positive"}
	}
	if _, err := s.store.Ensure(ctx, key, s.grant); err != nil {
		return 0, fmt.Errorf("ledger: ensure account: %w", err)
	}
	balance, err := s.store.Increment(ctx, key, n)
	if err != nil {
		return 0, fmt.Errorf("ledger: credit: %w", err)
	}
	s.logger.Info().Str("account", key).Int("credits", n).Int("balance", balance).Msg("ledger: credited")
	return balance, nil
}

func normalizeKey(accountKey string) (string, error) {
	key := strings.TrimSpace(accountKey)
	if key == "" {
		return "", &domain.ValidationError{Field: "email", Reason: "is required"}
	}
	return key, nil
}
