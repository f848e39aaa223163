package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"cloud.google.com/go/civil"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"finansix/internal/domain/transaction"
)

type TransactionRepository struct {
	db *DB
}

func NewTransactionRepository(db *DB) *TransactionRepository {
	return &TransactionRepository{db: db}
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

const transactionColumns = `
	t.id, t.household_id, t.account_id, t.credit_card_id, t.category_id, t.description,
	t.amount, t.type, t.status, t.transaction_date, t.billing_month,
	t.is_installment, t.total_installments, t.is_reimbursable, t.reimbursed_at,
	t.is_carry_forward, t.created_by, t.created_at, t.updated_at, t.deleted_at`

func scanTransaction(row interface{ Scan(...any) error }, extra ...any) (*transaction.Transaction, error) {
	var t transaction.Transaction
	var txDate sql.NullTime
	var billingMonth sql.NullTime

	dest := []any{
		&t.ID, &t.HouseholdID, &t.AccountID, &t.CreditCardID, &t.CategoryID, &t.Description,
		&t.Amount, &t.Type, &t.Status, &txDate, &billingMonth,
		&t.IsInstallment, &t.TotalInstallments, &t.IsReimbursable, &t.ReimbursedAt,
		&t.IsCarryForward, &t.CreatedBy, &t.CreatedAt, &t.UpdatedAt, &t.DeletedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}

	if txDate.Valid {
		t.TransactionDate = civil.DateOf(txDate.Time)
	}
	t.BillingMonth = nullDate(billingMonth)
	return &t, nil
}

func insertTransaction(ctx context.Context, q execer, p transaction.CreateParams) error {
	query := `
		INSERT INTO transactions (
			id, household_id, account_id, credit_card_id, category_id, description,
			amount, type, status, transaction_date, billing_month,
			is_installment, total_installments, is_reimbursable, is_carry_forward, created_by
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	`

	_, err := q.ExecContext(ctx, query,
		p.ID, p.HouseholdID, p.AccountID, p.CreditCardID, p.CategoryID, p.Description,
		p.Amount, string(p.Type), string(p.Status), dateArg(p.TransactionDate), nullDateArg(p.BillingMonth),
		p.IsInstallment, p.TotalInstallments, p.IsReimbursable, p.IsCarryForward, p.CreatedBy,
	)
	return err
}

func (r *TransactionRepository) Create(ctx context.Context, params transaction.CreateParams) (*transaction.Transaction, error) {
	if err := insertTransaction(ctx, r.db, params); err != nil {
		return nil, fmt.Errorf("failed to create transaction: %w", err)
	}
	return r.GetByID(ctx, params.HouseholdID, params.ID)
}

func (r *TransactionRepository) GetByID(ctx context.Context, householdID, id string) (*transaction.Transaction, error) {
	query := `SELECT ` + transactionColumns + `
		FROM transactions t
		WHERE t.id = $1 AND t.household_id = $2 AND t.deleted_at IS NULL`

	t, err := scanTransaction(r.db.QueryRowContext(ctx, query, id, householdID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, transaction.ErrTransactionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}
	return t, nil
}

func (r *TransactionRepository) GetWithDetails(ctx context.Context, householdID, id string) (*transaction.TransactionWithDetails, error) {
	query := `SELECT ` + transactionColumns + `,
			a.name, c.name, cat.name,
			COALESCE(inst.created, 0), COALESCE(inst.paid, 0), inst.remaining
		FROM transactions t
		LEFT JOIN accounts a ON a.id = t.account_id
		LEFT JOIN credit_cards c ON c.id = t.credit_card_id
		LEFT JOIN categories cat ON cat.id = t.category_id
		LEFT JOIN LATERAL (
			SELECT count(*) AS created,
			       count(*) FILTER (WHERE i.status = 'paid') AS paid,
			       SUM(i.amount) FILTER (WHERE i.status = 'pending') AS remaining
			FROM installments i
			WHERE i.transaction_id = t.id
		) inst ON t.is_installment
		WHERE t.id = $1 AND t.household_id = $2 AND t.deleted_at IS NULL`

	var d transaction.TransactionWithDetails
	var remaining decimal.NullDecimal

	t, err := scanTransaction(r.db.QueryRowContext(ctx, query, id, householdID),
		&d.AccountName, &d.CreditCardName, &d.CategoryName,
		&d.InstallmentsCreated, &d.InstallmentsPaid, &remaining,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, transaction.ErrTransactionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction details: %w", err)
	}

	d.Transaction = *t
	if remaining.Valid {
		d.InstallmentRemaining = &remaining.Decimal
	}
	return &d, nil
}

// buildTransactionFilter renders f as a WHERE clause over alias t, starting
// placeholders at $1.
func buildTransactionFilter(f transaction.Filter) (string, []any) {
	conditions := []string{"t.household_id = $1", "t.deleted_at IS NULL"}
	args := []any{f.HouseholdID}
	argIndex := 2

	if len(f.Statuses) > 0 {
		statuses := make([]string, len(f.Statuses))
		for i, s := range f.Statuses {
			statuses[i] = string(s)
		}
		conditions = append(conditions, fmt.Sprintf("t.status = ANY($%d)", argIndex))
		args = append(args, pq.Array(statuses))
		argIndex++
	}

	if len(f.Types) > 0 {
		types := make([]string, len(f.Types))
		for i, tp := range f.Types {
			types[i] = string(tp)
		}
		conditions = append(conditions, fmt.Sprintf("t.type = ANY($%d)", argIndex))
		args = append(args, pq.Array(types))
		argIndex++
	}

	if f.DateFrom != nil {
		conditions = append(conditions, fmt.Sprintf("t.transaction_date >= $%d", argIndex))
		args = append(args, dateArg(*f.DateFrom))
		argIndex++
	}

	if f.DateTo != nil {
		conditions = append(conditions, fmt.Sprintf("t.transaction_date <= $%d", argIndex))
		args = append(args, dateArg(*f.DateTo))
		argIndex++
	}

	if f.CreditCardID != nil {
		conditions = append(conditions, fmt.Sprintf("t.credit_card_id = $%d", argIndex))
		args = append(args, *f.CreditCardID)
		argIndex++
	}

	if f.BillingMonth != nil {
		conditions = append(conditions, fmt.Sprintf("t.billing_month = $%d", argIndex))
		args = append(args, dateArg(*f.BillingMonth))
		argIndex++
	}

	if f.CarryForward != nil {
		conditions = append(conditions, fmt.Sprintf("t.is_carry_forward = $%d", argIndex))
		args = append(args, *f.CarryForward)
		argIndex++
	}

	if f.CardOnly {
		conditions = append(conditions, "t.credit_card_id IS NOT NULL")
	}
	if f.ExcludeInstallment {
		conditions = append(conditions, "NOT t.is_installment")
	}
	if f.UnreimbursedOnly {
		conditions = append(conditions, "t.is_reimbursable AND t.reimbursed_at IS NULL")
	}

	return "WHERE " + strings.Join(conditions, " AND "), args
}

func (r *TransactionRepository) List(ctx context.Context, filter transaction.Filter) ([]*transaction.Transaction, error) {
	where, args := buildTransactionFilter(filter)
	query := `SELECT ` + transactionColumns + ` FROM transactions t ` + where +
		` ORDER BY t.transaction_date, t.created_at`

	return r.queryTransactions(ctx, query, args...)
}

func (r *TransactionRepository) queryTransactions(ctx context.Context, query string, args ...any) ([]*transaction.Transaction, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	defer rows.Close()

	var transactions []*transaction.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		transactions = append(transactions, t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transactions: %w", err)
	}

	return transactions, nil
}

// SoftDelete stamps deleted_at. Installments are not touched: every
// installment read joins its parent and drops deleted purchases.
func (r *TransactionRepository) SoftDelete(ctx context.Context, householdID, id string) error {
	query := `
		UPDATE transactions
		SET deleted_at = CURRENT_TIMESTAMP, updated_at = CURRENT_TIMESTAMP
		WHERE id = $1 AND household_id = $2 AND deleted_at IS NULL
	`

	result, err := r.db.ExecContext(ctx, query, id, householdID)
	if err != nil {
		return fmt.Errorf("failed to delete transaction: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}

	if rows == 0 {
		return transaction.ErrTransactionNotFound
	}

	return nil
}

func (r *TransactionRepository) ListUnexploded(ctx context.Context, householdID string) ([]*transaction.Transaction, error) {
	query := `SELECT ` + transactionColumns + `
		FROM transactions t
		WHERE t.household_id = $1
		  AND t.deleted_at IS NULL
		  AND t.is_installment
		  AND NOT EXISTS (SELECT 1 FROM installments i WHERE i.transaction_id = t.id)
		ORDER BY t.created_at`

	return r.queryTransactions(ctx, query, householdID)
}

func (r *TransactionRepository) ListHouseholdIDs(ctx context.Context) ([]string, error) {
	query := `
		SELECT household_id FROM accounts
		UNION
		SELECT household_id FROM credit_cards
		ORDER BY 1
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list households: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan household id: %w", err)
		}
		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating households: %w", err)
	}

	return ids, nil
}
