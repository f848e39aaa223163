package balance

import (
	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
)

type LineKind string

const (
	LineCurrentBalance        LineKind = "current_balance"
	LinePendingExpenses       LineKind = "pending_expenses"
	LineCreditCardDue         LineKind = "credit_card_due"
	LineExpectedIncome        LineKind = "expected_income"
	LineExpectedExpenses      LineKind = "expected_expenses"
	LineSubscriptions         LineKind = "subscriptions"
	LinePendingReimbursements LineKind = "pending_reimbursements"
)

// LineItem is one term of the free balance. Amount is the signed
// contribution: the free balance is exactly the sum of all line items.
type LineItem struct {
	Kind   LineKind        `json:"kind"`
	Amount decimal.Decimal `json:"amount"`
	Count  int             `json:"count"`
}

// Projection is the "money free to spend" figure for a household at
// TargetDate. Disabled means there was no household to compute for; every
// other field is then zero and must not be shown as a real value.
type Projection struct {
	Disabled           bool            `json:"disabled"`
	HouseholdID        string          `json:"householdId,omitempty"`
	TargetDate         civil.Date      `json:"targetDate"`
	IncludeProjections bool            `json:"includeProjections"`
	Horizon            civil.Date      `json:"horizon"`
	FreeBalance        decimal.Decimal `json:"freeBalance"`
	Breakdown          []LineItem      `json:"breakdown"`
}

// Line returns the line item of the given kind, or a zero item when the
// projection does not include it.
func (p *Projection) Line(kind LineKind) LineItem {
	for _, l := range p.Breakdown {
		if l.Kind == kind {
			return l
		}
	}
	return LineItem{Kind: kind}
}

// Bucket aggregates the payments of one class.
type Bucket struct {
	Count int             `json:"count"`
	Total decimal.Decimal `json:"total"`
}

func (b *Bucket) add(amount decimal.Decimal) {
	b.Count++
	b.Total = b.Total.Add(amount)
}

// PaymentSummary partitions the payments of a period. Totals are positive
// magnitudes except PartialBalance, which is negative: it is debt rolled
// into a later cycle.
type PaymentSummary struct {
	Disabled       bool       `json:"disabled"`
	From           civil.Date `json:"from"`
	To             civil.Date `json:"to"`
	Today          civil.Date `json:"today"`
	Pending        Bucket     `json:"pending"`
	Overdue        Bucket     `json:"overdue"`
	Paid           Bucket     `json:"paid"`
	PartialBalance Bucket     `json:"partialBalance"`
}
