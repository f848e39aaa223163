package installment

import (
	"errors"
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusPending Status = "pending"
	StatusPaid    Status = "paid"
)

var (
	// ErrNotApplicable marks a transaction that has nothing to explode. The
	// exploder reports it as an outcome, never as a failure.
	ErrNotApplicable = errors.New("installment explosion not applicable")

	// ErrPartialBatch means the store accepted only some of the installments
	// of a schedule. The batch is rolled back.
	ErrPartialBatch = errors.New("installment batch partially inserted")
)

// Installment is one scheduled slice of an installment purchase. Amount is
// the positive magnitude billed in BillingMonth.
type Installment struct {
	ID                string          `json:"id"`
	HouseholdID       string          `json:"householdId"`
	TransactionID     string          `json:"transactionId"`
	CreditCardID      string          `json:"creditCardId"`
	InstallmentNumber int             `json:"installmentNumber"`
	TotalInstallments int             `json:"totalInstallments"`
	Amount            decimal.Decimal `json:"amount"`
	BillingMonth      civil.Date      `json:"billingMonth"`
	DueDate           civil.Date      `json:"dueDate"`
	Status            Status          `json:"status"`
	PaidAt            *time.Time      `json:"paidAt,omitempty"`
	CreatedAt         time.Time       `json:"createdAt"`
}

// Filter selects installments of one household whose parent transaction is
// not soft-deleted. Zero-valued fields do not constrain the query.
type Filter struct {
	HouseholdID   string
	Statuses      []Status
	DueFrom       *civil.Date
	DueTo         *civil.Date
	TransactionID string
	CreditCardID  string
	BillingMonth  *civil.Date
}
