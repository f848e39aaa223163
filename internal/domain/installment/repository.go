package installment

import (
	"context"

	"cloud.google.com/go/civil"
)

// Repository defines the interface for installment data access
type Repository interface {
	// CountByTransaction returns how many installments exist for a transaction.
	CountByTransaction(ctx context.Context, transactionID string) (int, error)

	// CreateBatch writes the whole schedule in one statement and sets the
	// parent's billing_month, inside one database transaction. Rows that
	// collide on (transaction_id, installment_number) are skipped; the number
	// actually inserted is returned. Anything other than 0 or len(batch)
	// rolls back with ErrPartialBatch.
	CreateBatch(ctx context.Context, batch []*Installment, billingMonth civil.Date) (int, error)

	List(ctx context.Context, filter Filter) ([]*Installment, error)
}
