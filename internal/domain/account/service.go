package account

import (
	"context"
	"errors"
	"fmt"

	"finansix/internal/shared/logger"
)

// Service contains the business logic for account operations
type Service struct {
	repo Repository
}

// NewService creates a new account service
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// GetAccount retrieves an account by ID and verifies household ownership
func (s *Service) GetAccount(ctx context.Context, accountID, householdID string) (*Account, error) {
	account, err := s.repo.GetByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}

	if account.HouseholdID != householdID {
		return nil, ErrForbidden
	}

	return account, nil
}

// ListAccounts retrieves all accounts of a household
func (s *Service) ListAccounts(ctx context.Context, householdID string) ([]*Account, error) {
	if householdID == "" {
		return nil, errors.New("household ID is required")
	}
	return s.repo.ListByHousehold(ctx, householdID)
}

// RecomputeBalances runs update_account_balance for every account of the
// household and reports how many were refreshed. It stops at the first failure.
func (s *Service) RecomputeBalances(ctx context.Context, householdID string) (int, error) {
	accounts, err := s.ListAccounts(ctx, householdID)
	if err != nil {
		return 0, fmt.Errorf("failed to list accounts: %w", err)
	}

	log := logger.FromContext(ctx)
	for i, acc := range accounts {
		balance, err := s.repo.RecomputeBalance(ctx, acc.ID)
		if err != nil {
			return i, fmt.Errorf("failed to recompute balance of account %s: %w", acc.ID, err)
		}
		if !balance.Equal(acc.CurrentBalance) {
			log.Info().
				Str("account_id", acc.ID).
				Str("previous", acc.CurrentBalance.StringFixed(2)).
				Str("current", balance.StringFixed(2)).
				Msg("Account balance corrected")
		}
	}

	return len(accounts), nil
}
