package account

import (
	"context"

	"github.com/shopspring/decimal"
)

// Repository defines the interface for account data access
// This interface is defined in the domain layer, but implemented in the infrastructure layer
type Repository interface {
	// GetByID retrieves an account by its ID
	GetByID(ctx context.Context, id string) (*Account, error)

	// ListByHousehold retrieves all accounts of a household
	ListByHousehold(ctx context.Context, householdID string) ([]*Account, error)

	// SumCurrentBalances returns the sum of current_balance over a household's accounts
	SumCurrentBalances(ctx context.Context, householdID string) (decimal.Decimal, error)

	// RecomputeBalance invokes update_account_balance and returns the new balance
	RecomputeBalance(ctx context.Context, id string) (decimal.Decimal, error)
}
