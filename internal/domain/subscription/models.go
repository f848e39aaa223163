// Package subscription models recurring-charge templates. A subscription is
// never a transaction itself; it only feeds balance projections.
package subscription

import (
	"context"
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"

	"finansix/internal/domain/billing"
)

type Subscription struct {
	ID           string          `json:"id"`
	HouseholdID  string          `json:"householdId"`
	Name         string          `json:"name"`
	Amount       decimal.Decimal `json:"amount"` // positive magnitude of each charge
	BillingDay   int             `json:"billingDay"`
	CreditCardID *string         `json:"creditCardId,omitempty"`
	IsActive     bool            `json:"isActive"`
	CreatedAt    time.Time       `json:"createdAt"`
}

// ChargesBetween lists the dates in (from, to] on which the subscription
// bills. BillingDay is clamped to the length of each month.
func (s *Subscription) ChargesBetween(from, to civil.Date) []civil.Date {
	if !s.IsActive || s.BillingDay < 1 || !from.Before(to) {
		return nil
	}

	var dates []civil.Date
	for month := billing.FirstOfMonth(from); !month.After(to); month = billing.AddMonths(month, 1) {
		d := billing.DayInMonth(month, s.BillingDay)
		if d.After(from) && !d.After(to) {
			dates = append(dates, d)
		}
	}
	return dates
}

// Repository defines the interface for subscription data access
type Repository interface {
	ListActive(ctx context.Context, householdID string) ([]*Subscription, error)
}
