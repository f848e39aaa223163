package balance

import (
	"context"
	"fmt"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"

	"finansix/internal/domain/installment"
	"finansix/internal/domain/transaction"
)

// PaymentSummary classifies the expenses dated and installments due in
// [from, to]. Unpaid items due before today are overdue; an item due today
// is still pending. Pending carry-forward transactions only count toward the
// partial balance.
func (p *Projector) PaymentSummary(ctx context.Context, householdID string, from, to, today civil.Date) (*PaymentSummary, error) {
	if householdID == "" {
		return &PaymentSummary{Disabled: true}, nil
	}
	if to.Before(from) {
		return nil, fmt.Errorf("%w: %s is before %s", ErrInvalidPeriod, to, from)
	}

	ctx, span := projectorTracer.Start(ctx, "balance.PaymentSummary")
	defer span.End()

	txs, err := p.transactions.List(ctx, transaction.Filter{
		HouseholdID:        householdID,
		Types:              []transaction.Type{transaction.TypeExpense},
		DateFrom:           &from,
		DateTo:             &to,
		ExcludeInstallment: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}

	insts, err := p.installments.List(ctx, installment.Filter{
		HouseholdID: householdID,
		DueFrom:     &from,
		DueTo:       &to,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list installments: %w", err)
	}

	s := &PaymentSummary{From: from, To: to, Today: today}

	for _, tx := range txs {
		amount := tx.Amount.Abs()
		switch {
		case tx.Status == transaction.StatusCompleted:
			s.Paid.add(amount)
		case tx.IsCarryForward:
			s.PartialBalance.add(amount.Neg())
		default:
			classifyUnpaid(s, tx.TransactionDate, today, amount)
		}
	}

	for _, inst := range insts {
		if inst.Status == installment.StatusPaid {
			s.Paid.add(inst.Amount)
			continue
		}
		classifyUnpaid(s, inst.DueDate, today, inst.Amount)
	}

	return s, nil
}

func classifyUnpaid(s *PaymentSummary, due, today civil.Date, amount decimal.Decimal) {
	if due.Before(today) {
		s.Overdue.add(amount)
		return
	}
	s.Pending.add(amount)
}
