package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"finansix/internal/domain/invoice"
)

type InvoiceRepository struct {
	db *DB
}

func NewInvoiceRepository(db *DB) *InvoiceRepository {
	return &InvoiceRepository{db: db}
}

// Settle marks the invoice items paid and stores the carry-forward, all in
// one database transaction.
func (r *InvoiceRepository) Settle(ctx context.Context, s invoice.Settlement) error {
	return r.db.WithTx(ctx, func(tx *sql.Tx) error {
		return settle(ctx, tx, s)
	})
}

// settle requires every listed item to flip from pending. A payment racing
// another one on the same invoice fails before its carry-forward is written.
func settle(ctx context.Context, q execer, s invoice.Settlement) error {
	if len(s.InstallmentIDs) > 0 {
		result, err := q.ExecContext(ctx, `
			UPDATE installments
			SET status = 'paid', paid_at = CURRENT_TIMESTAMP
			WHERE id = ANY($1) AND household_id = $2 AND status = 'pending'`,
			pq.Array(s.InstallmentIDs), s.HouseholdID,
		)
		if err != nil {
			return fmt.Errorf("failed to mark installments paid: %w", err)
		}
		if err := requireAffected(result, len(s.InstallmentIDs), "installments"); err != nil {
			return err
		}
	}

	if len(s.TransactionIDs) > 0 {
		result, err := q.ExecContext(ctx, `
			UPDATE transactions
			SET status = 'completed', updated_at = CURRENT_TIMESTAMP
			WHERE id = ANY($1) AND household_id = $2 AND status = 'pending' AND deleted_at IS NULL`,
			pq.Array(s.TransactionIDs), s.HouseholdID,
		)
		if err != nil {
			return fmt.Errorf("failed to mark purchases completed: %w", err)
		}
		if err := requireAffected(result, len(s.TransactionIDs), "purchases"); err != nil {
			return err
		}
	}

	if s.CarryForward != nil {
		if err := insertTransaction(ctx, q, *s.CarryForward); err != nil {
			return fmt.Errorf("failed to create carry-forward: %w", err)
		}
	}

	return nil
}

func requireAffected(result sql.Result, want int, what string) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows != int64(want) {
		return fmt.Errorf("%w: %d of %d %s still pending", invoice.ErrSettlementConflict, rows, want, what)
	}
	return nil
}
