package installment

import (
	"fmt"

	"finansix/internal/domain/billing"
	"finansix/internal/domain/transaction"
)

// CheckApplicable reports why tx cannot be exploded, wrapping
// ErrNotApplicable, or nil when it can.
func CheckApplicable(tx *transaction.Transaction) error {
	switch {
	case !tx.IsInstallment:
		return fmt.Errorf("%w: not an installment purchase", ErrNotApplicable)
	case tx.TotalInstallments <= 1:
		return fmt.Errorf("%w: %d installments", ErrNotApplicable, tx.TotalInstallments)
	case !tx.IsCardPurchase():
		return fmt.Errorf("%w: no credit card", ErrNotApplicable)
	}
	return nil
}

// BuildSchedule computes the installments of tx in memory. Installment i+1
// bills into the cycle at offset i from the purchase date and carries the
// i-th part of the split amount.
func BuildSchedule(tx *transaction.Transaction, card billing.CardCycle, policy billing.RoundingPolicy, newID func() string) ([]*Installment, error) {
	if err := CheckApplicable(tx); err != nil {
		return nil, err
	}

	amounts, err := billing.Split(tx.Amount.Abs(), tx.TotalInstallments, policy)
	if err != nil {
		return nil, err
	}

	schedule := make([]*Installment, tx.TotalInstallments)
	for i := range schedule {
		cycle, err := billing.Calculate(tx.TransactionDate, card, i)
		if err != nil {
			return nil, err
		}
		schedule[i] = &Installment{
			ID:                newID(),
			HouseholdID:       tx.HouseholdID,
			TransactionID:     tx.ID,
			CreditCardID:      *tx.CreditCardID,
			InstallmentNumber: i + 1,
			TotalInstallments: tx.TotalInstallments,
			Amount:            amounts[i],
			BillingMonth:      cycle.BillingMonth,
			DueDate:           cycle.DueDate,
			Status:            StatusPending,
		}
	}

	return schedule, nil
}
