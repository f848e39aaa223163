package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"finansix/internal/domain/account"
)

type AccountRepository struct {
	db *DB
}

func NewAccountRepository(db *DB) *AccountRepository {
	return &AccountRepository{db: db}
}

const accountColumns = `id, household_id, name, type, initial_balance, current_balance, created_at, updated_at`

func scanAccount(row interface{ Scan(...any) error }) (*account.Account, error) {
	var a account.Account
	err := row.Scan(
		&a.ID, &a.HouseholdID, &a.Name, &a.Type,
		&a.InitialBalance, &a.CurrentBalance, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *AccountRepository) GetByID(ctx context.Context, id string) (*account.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1`

	a, err := scanAccount(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, account.ErrAccountNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	return a, nil
}

func (r *AccountRepository) ListByHousehold(ctx context.Context, householdID string) ([]*account.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE household_id = $1 ORDER BY name`

	rows, err := r.db.QueryContext(ctx, query, householdID)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	defer rows.Close()

	var accounts []*account.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		accounts = append(accounts, a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating accounts: %w", err)
	}

	return accounts, nil
}

func (r *AccountRepository) SumCurrentBalances(ctx context.Context, householdID string) (decimal.Decimal, error) {
	query := `SELECT COALESCE(SUM(current_balance), 0) FROM accounts WHERE household_id = $1`

	var total decimal.Decimal
	if err := r.db.QueryRowContext(ctx, query, householdID).Scan(&total); err != nil {
		return decimal.Zero, fmt.Errorf("failed to sum account balances: %w", err)
	}
	return total, nil
}

// RecomputeBalance calls update_account_balance, the single place where
// current_balance is written.
func (r *AccountRepository) RecomputeBalance(ctx context.Context, id string) (decimal.Decimal, error) {
	var balance decimal.Decimal
	err := r.db.QueryRowContext(ctx, `SELECT update_account_balance($1)`, id).Scan(&balance)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "P0002" {
			return decimal.Zero, account.ErrAccountNotFound
		}
		return decimal.Zero, fmt.Errorf("failed to update account balance: %w", err)
	}
	return balance, nil
}
