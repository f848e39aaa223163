// Package invoice groups a credit card's charges by billing month and
// settles them, carrying any unpaid remainder into the next month.
package invoice

import (
	"context"
	"errors"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"

	"finansix/internal/domain/transaction"
)

type Status string

const (
	StatusOpen    Status = "open"
	StatusClosed  Status = "closed"
	StatusPaid    Status = "paid"
	StatusOverdue Status = "overdue"
)

var (
	ErrInvalidAmount   = errors.New("payment amount must be positive with at most two decimal places")
	ErrNotPayable      = errors.New("invoice is not payable")
	ErrOverpayment     = errors.New("payment exceeds the invoice remaining balance")
	ErrInvalidMonth    = errors.New("billing month must be the first day of a month")
	ErrNothingToSettle = errors.New("invoice has no pending items")
	// ErrSettlementConflict means another payment settled some of the items
	// first. Nothing from the losing payment is stored.
	ErrSettlementConflict = errors.New("invoice was settled concurrently")
)

type ItemKind string

const (
	ItemInstallment ItemKind = "installment"
	ItemPurchase    ItemKind = "purchase"
)

// Item is one charge on an invoice. Amount is a positive magnitude.
type Item struct {
	Kind              ItemKind        `json:"kind"`
	ID                string          `json:"id"`
	TransactionID     string          `json:"transactionId"`
	Description       string          `json:"description,omitempty"`
	InstallmentNumber int             `json:"installmentNumber,omitempty"`
	TotalInstallments int             `json:"totalInstallments,omitempty"`
	Amount            decimal.Decimal `json:"amount"`
	Paid              bool            `json:"paid"`
}

// Invoice is the set of charges a card bills in one billing month.
type Invoice struct {
	CreditCardID string          `json:"creditCardId"`
	BillingMonth civil.Date      `json:"billingMonth"`
	ClosingDate  civil.Date      `json:"closingDate"`
	DueDate      civil.Date      `json:"dueDate"`
	Status       Status          `json:"status"`
	Items        []Item          `json:"items"`
	Total        decimal.Decimal `json:"total"`
	Paid         decimal.Decimal `json:"paid"`
	Remaining    decimal.Decimal `json:"remaining"`
}

// Settlement is what a payment changes in the store.
type Settlement struct {
	HouseholdID    string
	InstallmentIDs []string
	TransactionIDs []string
	// CarryForward is the remainder expense for the next billing month, or
	// nil when the invoice is paid in full.
	CarryForward *transaction.CreateParams
}

// Repository applies settlements atomically. Settle fails with
// ErrSettlementConflict unless every listed item is still pending.
type Repository interface {
	Settle(ctx context.Context, s Settlement) error
}

// PaymentResult reports a payment and the invoice after it.
type PaymentResult struct {
	Invoice      *Invoice        `json:"invoice"`
	AmountPaid   decimal.Decimal `json:"amountPaid"`
	CarryForward decimal.Decimal `json:"carryForward"`
	// CarryForwardID is the transaction created for the remainder.
	CarryForwardID string `json:"carryForwardId,omitempty"`
}
