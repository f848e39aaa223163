package transaction

import (
	"context"

	"github.com/shopspring/decimal"
)

// Repository defines the interface for transaction data access.
// Every read ignores soft-deleted rows.
type Repository interface {
	Create(ctx context.Context, params CreateParams) (*Transaction, error)
	GetByID(ctx context.Context, householdID, id string) (*Transaction, error)
	GetWithDetails(ctx context.Context, householdID, id string) (*TransactionWithDetails, error)
	List(ctx context.Context, filter Filter) ([]*Transaction, error)
	// SoftDelete stamps deleted_at on the transaction. Its installments drop
	// out of every read because installment queries join the parent.
	SoftDelete(ctx context.Context, householdID, id string) error
	// ListUnexploded returns installment purchases that have no installments yet.
	ListUnexploded(ctx context.Context, householdID string) ([]*Transaction, error)
	// ListHouseholdIDs returns every household that owns at least one account or card.
	ListHouseholdIDs(ctx context.Context) ([]string, error)
}

// BalanceUpdater recomputes an account's derived balance.
type BalanceUpdater interface {
	RecomputeBalance(ctx context.Context, accountID string) (decimal.Decimal, error)
}
