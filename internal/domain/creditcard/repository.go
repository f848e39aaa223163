package creditcard

import "context"

// Repository defines the interface for credit card data access
type Repository interface {
	// GetByID returns ErrCardNotFound when the card does not exist in the household.
	GetByID(ctx context.Context, householdID, id string) (*CreditCard, error)
	ListByHousehold(ctx context.Context, householdID string) ([]*CreditCard, error)
}
