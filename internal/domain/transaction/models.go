package transaction

import (
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
)

type Type string

const (
	TypeIncome   Type = "income"
	TypeExpense  Type = "expense"
	TypeTransfer Type = "transfer"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
)

// Domain errors
var (
	ErrTransactionNotFound = errors.New("transaction not found")
	ErrInvalidInput        = errors.New("invalid input")
	ErrSignMismatch        = errors.New("amount sign does not match transaction type")
	ErrInvalidInstallment  = errors.New("installment purchases need a credit card and more than one installment")
)

// Transaction is a single money movement. Amount is signed: income is
// positive, expense is negative, transfers carry the direction of the
// movement on AccountID.
type Transaction struct {
	ID                string          `json:"id"`
	HouseholdID       string          `json:"householdId"`
	AccountID         *string         `json:"accountId,omitempty"`
	CreditCardID      *string         `json:"creditCardId,omitempty"`
	CategoryID        *string         `json:"categoryId,omitempty"`
	Description       string          `json:"description"`
	Amount            decimal.Decimal `json:"amount"`
	Type              Type            `json:"type"`
	Status            Status          `json:"status"`
	TransactionDate   civil.Date      `json:"transactionDate"`
	BillingMonth      *civil.Date     `json:"billingMonth,omitempty"`
	IsInstallment     bool            `json:"isInstallment"`
	TotalInstallments int             `json:"totalInstallments"`
	IsReimbursable    bool            `json:"isReimbursable"`
	ReimbursedAt      *time.Time      `json:"reimbursedAt,omitempty"`
	IsCarryForward    bool            `json:"isCarryForward"`
	CreatedBy         string          `json:"createdBy"`
	CreatedAt         time.Time       `json:"createdAt"`
	UpdatedAt         time.Time       `json:"updatedAt"`
	DeletedAt         *time.Time      `json:"deletedAt,omitempty"`
}

// IsCardPurchase reports whether the transaction is billed through a credit card.
func (t *Transaction) IsCardPurchase() bool {
	return t.CreditCardID != nil && *t.CreditCardID != ""
}

// TransactionWithDetails is a transaction with the display names of the
// entities it references, resolved by the data layer. Names are nil when
// the reference is absent.
type TransactionWithDetails struct {
	Transaction
	AccountName          *string          `json:"accountName,omitempty"`
	CreditCardName       *string          `json:"creditCardName,omitempty"`
	CategoryName         *string          `json:"categoryName,omitempty"`
	InstallmentsCreated  int              `json:"installmentsCreated"`
	InstallmentsPaid     int              `json:"installmentsPaid"`
	InstallmentRemaining *decimal.Decimal `json:"installmentRemaining,omitempty"`
}

type CreateParams struct {
	ID                string
	HouseholdID       string
	AccountID         *string
	CreditCardID      *string
	CategoryID        *string
	Description       string
	Amount            decimal.Decimal
	Type              Type
	Status            Status
	TransactionDate   civil.Date
	BillingMonth      *civil.Date
	IsInstallment     bool
	TotalInstallments int
	IsReimbursable    bool
	IsCarryForward    bool
	CreatedBy         string
}

// Validate checks the sign convention and the installment invariant.
func (p CreateParams) Validate() error {
	if p.HouseholdID == "" {
		return fmt.Errorf("%w: household is required", ErrInvalidInput)
	}
	if p.Description == "" {
		return fmt.Errorf("%w: description is required", ErrInvalidInput)
	}
	if !p.TransactionDate.IsValid() {
		return fmt.Errorf("%w: transaction date is required", ErrInvalidInput)
	}
	if p.Amount.Exponent() < -2 && !p.Amount.Equal(p.Amount.Round(2)) {
		return fmt.Errorf("%w: amount has more than two decimal places", ErrInvalidInput)
	}

	switch p.Type {
	case TypeIncome:
		if !p.Amount.IsPositive() {
			return ErrSignMismatch
		}
	case TypeExpense:
		if !p.Amount.IsNegative() {
			return ErrSignMismatch
		}
	case TypeTransfer:
		if p.Amount.IsZero() {
			return ErrSignMismatch
		}
	default:
		return fmt.Errorf("%w: unknown type %q", ErrInvalidInput, p.Type)
	}

	switch p.Status {
	case StatusPending, StatusCompleted:
	default:
		return fmt.Errorf("%w: unknown status %q", ErrInvalidInput, p.Status)
	}

	hasAccount := p.AccountID != nil && *p.AccountID != ""
	hasCard := p.CreditCardID != nil && *p.CreditCardID != ""
	if hasAccount == hasCard {
		return fmt.Errorf("%w: exactly one of account or credit card is required", ErrInvalidInput)
	}
	if hasCard && p.Type != TypeExpense {
		return fmt.Errorf("%w: credit card transactions must be expenses", ErrInvalidInput)
	}

	if p.IsInstallment {
		if !hasCard || p.TotalInstallments <= 1 {
			return ErrInvalidInstallment
		}
	} else if p.TotalInstallments > 1 {
		return ErrInvalidInstallment
	}

	if hasCard && p.Status != StatusPending {
		return fmt.Errorf("%w: credit card purchases are settled by paying their invoice", ErrInvalidInput)
	}

	return nil
}

// Filter selects non-deleted transactions of one household. Zero-valued
// fields do not constrain the query; date bounds are inclusive.
type Filter struct {
	HouseholdID        string
	Statuses           []Status
	Types              []Type
	DateFrom           *civil.Date
	DateTo             *civil.Date
	CreditCardID       *string
	BillingMonth       *civil.Date
	CardOnly           bool
	ExcludeInstallment bool
	CarryForward       *bool
	UnreimbursedOnly   bool
}
