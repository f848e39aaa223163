package creditcard

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"finansix/internal/domain/billing"
)

var ErrCardNotFound = errors.New("credit card not found")

// CreditCard is a revolving-credit entity. UsedLimit is derived from the
// card's unpaid installments and purchases.
type CreditCard struct {
	ID          string          `json:"id"`
	HouseholdID string          `json:"householdId"`
	Name        string          `json:"name"`
	CreditLimit decimal.Decimal `json:"creditLimit"`
	ClosingDay  int             `json:"closingDay"`
	DueDay      int             `json:"dueDay"`
	UsedLimit   decimal.Decimal `json:"usedLimit"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

// Cycle returns the closing/due configuration used by the billing calculator.
func (c *CreditCard) Cycle() billing.CardCycle {
	return billing.CardCycle{ClosingDay: c.ClosingDay, DueDay: c.DueDay}
}

// AvailableLimit is what can still be spent. It goes negative when the card
// is over its limit.
func (c *CreditCard) AvailableLimit() decimal.Decimal {
	return c.CreditLimit.Sub(c.UsedLimit)
}
