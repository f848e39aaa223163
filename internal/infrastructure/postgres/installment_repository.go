package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"cloud.google.com/go/civil"
	"github.com/lib/pq"

	"finansix/internal/domain/installment"
)

type InstallmentRepository struct {
	db *DB
}

func NewInstallmentRepository(db *DB) *InstallmentRepository {
	return &InstallmentRepository{db: db}
}

func (r *InstallmentRepository) CountByTransaction(ctx context.Context, transactionID string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT count(*) FROM installments WHERE transaction_id = $1`,
		transactionID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count installments: %w", err)
	}
	return n, nil
}

// CreateBatch inserts the schedule with a single multi-row INSERT. Rows that
// already exist for (transaction_id, installment_number) are skipped, so a
// repeated explosion inserts nothing.
func (r *InstallmentRepository) CreateBatch(ctx context.Context, batch []*installment.Installment, billingMonth civil.Date) (int, error) {
	if len(batch) == 0 {
		return 0, nil
	}

	const cols = 10
	valueStrings := make([]string, 0, len(batch))
	valueArgs := make([]any, 0, len(batch)*cols)

	for i, inst := range batch {
		placeholders := make([]string, cols)
		for j := range placeholders {
			placeholders[j] = fmt.Sprintf("$%d", i*cols+j+1)
		}
		valueStrings = append(valueStrings, "("+strings.Join(placeholders, ", ")+")")
		valueArgs = append(valueArgs,
			inst.ID, inst.HouseholdID, inst.TransactionID, inst.CreditCardID,
			inst.InstallmentNumber, inst.TotalInstallments, inst.Amount,
			dateArg(inst.BillingMonth), dateArg(inst.DueDate), string(inst.Status),
		)
	}

	query := fmt.Sprintf(`
		INSERT INTO installments (
			id, household_id, transaction_id, credit_card_id,
			installment_number, total_installments, amount,
			billing_month, due_date, status
		)
		VALUES %s
		ON CONFLICT (transaction_id, installment_number) DO NOTHING`,
		strings.Join(valueStrings, ", "),
	)

	var inserted int64
	err := r.db.WithTx(ctx, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx, query, valueArgs...)
		if err != nil {
			return fmt.Errorf("failed to insert installments: %w", err)
		}

		inserted, err = result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get affected rows: %w", err)
		}

		switch {
		case inserted == 0:
			return nil
		case inserted != int64(len(batch)):
			return fmt.Errorf("%w: %d of %d rows", installment.ErrPartialBatch, inserted, len(batch))
		}

		_, err = tx.ExecContext(ctx,
			`UPDATE transactions SET billing_month = $1, updated_at = CURRENT_TIMESTAMP WHERE id = $2`,
			dateArg(billingMonth), batch[0].TransactionID,
		)
		if err != nil {
			return fmt.Errorf("failed to update parent transaction: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	return int(inserted), nil
}

func buildInstallmentFilter(f installment.Filter) (string, []any) {
	conditions := []string{"i.household_id = $1", "t.deleted_at IS NULL"}
	args := []any{f.HouseholdID}
	argIndex := 2

	if len(f.Statuses) > 0 {
		statuses := make([]string, len(f.Statuses))
		for i, s := range f.Statuses {
			statuses[i] = string(s)
		}
		conditions = append(conditions, fmt.Sprintf("i.status = ANY($%d)", argIndex))
		args = append(args, pq.Array(statuses))
		argIndex++
	}

	if f.DueFrom != nil {
		conditions = append(conditions, fmt.Sprintf("i.due_date >= $%d", argIndex))
		args = append(args, dateArg(*f.DueFrom))
		argIndex++
	}

	if f.DueTo != nil {
		conditions = append(conditions, fmt.Sprintf("i.due_date <= $%d", argIndex))
		args = append(args, dateArg(*f.DueTo))
		argIndex++
	}

	if f.TransactionID != "" {
		conditions = append(conditions, fmt.Sprintf("i.transaction_id = $%d", argIndex))
		args = append(args, f.TransactionID)
		argIndex++
	}

	if f.CreditCardID != "" {
		conditions = append(conditions, fmt.Sprintf("i.credit_card_id = $%d", argIndex))
		args = append(args, f.CreditCardID)
		argIndex++
	}

	if f.BillingMonth != nil {
		conditions = append(conditions, fmt.Sprintf("i.billing_month = $%d", argIndex))
		args = append(args, dateArg(*f.BillingMonth))
	}

	return "WHERE " + strings.Join(conditions, " AND "), args
}

func (r *InstallmentRepository) List(ctx context.Context, filter installment.Filter) ([]*installment.Installment, error) {
	where, args := buildInstallmentFilter(filter)
	query := `
		SELECT i.id, i.household_id, i.transaction_id, i.credit_card_id,
		       i.installment_number, i.total_installments, i.amount,
		       i.billing_month, i.due_date, i.status, i.paid_at, i.created_at
		FROM installments i
		JOIN transactions t ON t.id = i.transaction_id
		` + where + `
		ORDER BY i.due_date, i.transaction_id, i.installment_number`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list installments: %w", err)
	}
	defer rows.Close()

	var installments []*installment.Installment
	for rows.Next() {
		var inst installment.Installment
		var billingMonth, dueDate sql.NullTime

		err := rows.Scan(
			&inst.ID, &inst.HouseholdID, &inst.TransactionID, &inst.CreditCardID,
			&inst.InstallmentNumber, &inst.TotalInstallments, &inst.Amount,
			&billingMonth, &dueDate, &inst.Status, &inst.PaidAt, &inst.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan installment: %w", err)
		}
		inst.BillingMonth = civil.DateOf(billingMonth.Time)
		inst.DueDate = civil.DateOf(dueDate.Time)

		installments = append(installments, &inst)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating installments: %w", err)
	}

	return installments, nil
}
