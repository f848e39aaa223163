package postgres

import (
	"context"
	"fmt"

	"finansix/internal/domain/subscription"
)

type SubscriptionRepository struct {
	db *DB
}

func NewSubscriptionRepository(db *DB) *SubscriptionRepository {
	return &SubscriptionRepository{db: db}
}

func (r *SubscriptionRepository) ListActive(ctx context.Context, householdID string) ([]*subscription.Subscription, error) {
	query := `
		SELECT id, household_id, name, amount, billing_day, credit_card_id, is_active, created_at
		FROM subscriptions
		WHERE household_id = $1 AND is_active
		ORDER BY billing_day, name
	`

	rows, err := r.db.QueryContext(ctx, query, householdID)
	if err != nil {
		return nil, fmt.Errorf("failed to list subscriptions: %w", err)
	}
	defer rows.Close()

	var subs []*subscription.Subscription
	for rows.Next() {
		var s subscription.Subscription
		if err := rows.Scan(
			&s.ID, &s.HouseholdID, &s.Name, &s.Amount, &s.BillingDay,
			&s.CreditCardID, &s.IsActive, &s.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan subscription: %w", err)
		}
		subs = append(subs, &s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating subscriptions: %w", err)
	}

	return subs, nil
}
