package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"finansix/internal/domain/creditcard"
)

type CreditCardRepository struct {
	db *DB
}

func NewCreditCardRepository(db *DB) *CreditCardRepository {
	return &CreditCardRepository{db: db}
}

// used_limit counts every unpaid charge on the card: pending installments
// plus pending purchases that were not split into installments.
const creditCardSelect = `
	SELECT c.id, c.household_id, c.name, c.credit_limit, c.closing_day, c.due_day,
	       COALESCE((
	           SELECT SUM(i.amount) FROM installments i
	           JOIN transactions t ON t.id = i.transaction_id
	           WHERE i.credit_card_id = c.id AND i.status = 'pending' AND t.deleted_at IS NULL
	       ), 0) + COALESCE((
	           SELECT SUM(-t.amount) FROM transactions t
	           WHERE t.credit_card_id = c.id AND t.status = 'pending'
	             AND NOT t.is_installment AND t.deleted_at IS NULL
	       ), 0) AS used_limit,
	       c.created_at, c.updated_at
	FROM credit_cards c
`

func scanCreditCard(row interface{ Scan(...any) error }) (*creditcard.CreditCard, error) {
	var c creditcard.CreditCard
	err := row.Scan(
		&c.ID, &c.HouseholdID, &c.Name, &c.CreditLimit, &c.ClosingDay, &c.DueDay,
		&c.UsedLimit, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *CreditCardRepository) GetByID(ctx context.Context, householdID, id string) (*creditcard.CreditCard, error) {
	query := creditCardSelect + ` WHERE c.id = $1 AND c.household_id = $2`

	c, err := scanCreditCard(r.db.QueryRowContext(ctx, query, id, householdID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, creditcard.ErrCardNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get credit card: %w", err)
	}
	return c, nil
}

func (r *CreditCardRepository) ListByHousehold(ctx context.Context, householdID string) ([]*creditcard.CreditCard, error) {
	query := creditCardSelect + ` WHERE c.household_id = $1 ORDER BY c.name`

	rows, err := r.db.QueryContext(ctx, query, householdID)
	if err != nil {
		return nil, fmt.Errorf("failed to list credit cards: %w", err)
	}
	defer rows.Close()

	var cards []*creditcard.CreditCard
	for rows.Next() {
		c, err := scanCreditCard(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan credit card: %w", err)
		}
		cards = append(cards, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating credit cards: %w", err)
	}

	return cards, nil
}
