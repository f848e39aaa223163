package transaction

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"finansix/internal/domain/billing"
	"finansix/internal/domain/creditcard"
	"finansix/internal/shared/logger"
)

// InstallmentExploder generates the installment schedule of a purchase.
type InstallmentExploder interface {
	// Allow checks the actor's explosion budget without consuming any state
	// other than the budget itself.
	Allow(ctx context.Context, actorID string) error
	// ExplodePurchase persists the schedule and returns how many installments were written.
	ExplodePurchase(ctx context.Context, tx *Transaction) (int, error)
}

// CardReader loads the billing configuration of a credit card.
type CardReader interface {
	GetByID(ctx context.Context, householdID, id string) (*creditcard.CreditCard, error)
}

// Service contains the business logic for transaction operations
type Service struct {
	repo     Repository
	cards    CardReader
	balances BalanceUpdater
	exploder InstallmentExploder
}

// NewService creates a new transaction service
func NewService(repo Repository, cards CardReader, balances BalanceUpdater, exploder InstallmentExploder) *Service {
	return &Service{
		repo:     repo,
		cards:    cards,
		balances: balances,
		exploder: exploder,
	}
}

// CreateTransaction validates and stores a transaction. Card purchases get
// their billing month from the card cycle. Completed account-side
// transactions trigger a balance recompute, and installment purchases are
// exploded right away.
//
// A failure after the row is stored (balance recompute or explosion) is
// logged, not returned: the reconcile job repairs both.
func (s *Service) CreateTransaction(ctx context.Context, actorID string, params CreateParams) (*Transaction, error) {
	if params.ID == "" {
		params.ID = uuid.NewString()
	}
	if params.Status == "" {
		params.Status = StatusCompleted
		// A card charge stays pending until its invoice is paid.
		if params.CreditCardID != nil && *params.CreditCardID != "" {
			params.Status = StatusPending
		}
	}
	if params.TotalInstallments == 0 {
		params.TotalInstallments = 1
	}
	params.CreatedBy = actorID
	params.IsCarryForward = false

	if err := params.Validate(); err != nil {
		return nil, err
	}

	if params.IsInstallment {
		if err := s.exploder.Allow(ctx, actorID); err != nil {
			return nil, err
		}
	}

	if params.CreditCardID != nil {
		card, err := s.cards.GetByID(ctx, params.HouseholdID, *params.CreditCardID)
		if err != nil {
			return nil, err
		}
		cycle, err := billing.Calculate(params.TransactionDate, card.Cycle(), 0)
		if err != nil {
			return nil, fmt.Errorf("failed to compute billing month: %w", err)
		}
		params.BillingMonth = &cycle.BillingMonth
	}

	tx, err := s.repo.Create(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("failed to create transaction: %w", err)
	}

	log := logger.FromContext(ctx)

	if tx.AccountID != nil && tx.Status == StatusCompleted {
		if _, err := s.balances.RecomputeBalance(ctx, *tx.AccountID); err != nil {
			log.Error().Err(err).Str("account_id", *tx.AccountID).Msg("Failed to update account balance")
		}
	}

	if tx.IsInstallment {
		n, err := s.exploder.ExplodePurchase(ctx, tx)
		if err != nil {
			log.Error().Err(err).Str("transaction_id", tx.ID).Msg("Failed to explode installment purchase")
		} else {
			log.Debug().Str("transaction_id", tx.ID).Int("installments", n).Msg("Installments created")
		}
	}

	return tx, nil
}

// GetTransaction returns a transaction of the household with its display details.
func (s *Service) GetTransaction(ctx context.Context, householdID, id string) (*TransactionWithDetails, error) {
	tx, err := s.repo.GetWithDetails(ctx, householdID, id)
	if err != nil {
		return nil, err
	}
	return tx, nil
}

// DeleteTransaction soft-deletes a transaction. The row stays in the store
// with deleted_at set and disappears from every read.
func (s *Service) DeleteTransaction(ctx context.Context, householdID, id string) error {
	tx, err := s.repo.GetByID(ctx, householdID, id)
	if err != nil {
		return err
	}

	if err := s.repo.SoftDelete(ctx, householdID, id); err != nil {
		if errors.Is(err, ErrTransactionNotFound) {
			return err
		}
		return fmt.Errorf("failed to delete transaction: %w", err)
	}

	if tx.AccountID != nil && tx.Status == StatusCompleted {
		if _, err := s.balances.RecomputeBalance(ctx, *tx.AccountID); err != nil {
			log := logger.FromContext(ctx)
			log.Error().Err(err).Str("account_id", *tx.AccountID).Msg("Failed to update account balance")
		}
	}

	return nil
}
