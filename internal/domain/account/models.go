package account

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var accountTypes = map[string]struct{}{
	"checking":   {},
	"savings":    {},
	"investment": {},
	"cash":       {},
}

// Domain errors
var (
	ErrAccountNotFound    = errors.New("account not found")
	ErrForbidden          = errors.New("access forbidden")
	ErrInvalidAccountType = errors.New("invalid account type")
)

// Account is a cash-holding entity. CurrentBalance is derived: it is
// recomputed by the data layer from InitialBalance and completed
// transactions, never incremented by callers.
type Account struct {
	ID             string          `json:"id"`
	HouseholdID    string          `json:"householdId"`
	Name           string          `json:"name"`
	Type           string          `json:"type"`
	InitialBalance decimal.Decimal `json:"initialBalance"`
	CurrentBalance decimal.Decimal `json:"currentBalance"`
	CreatedAt      time.Time       `json:"createdAt"`
	UpdatedAt      time.Time       `json:"updatedAt"`
}

// IsValidAccountType checks if the provided account type is valid.
func IsValidAccountType(t string) bool {
	_, ok := accountTypes[t]
	return ok
}
