package invoice

import (
	"context"
	"fmt"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"finansix/internal/domain/billing"
	"finansix/internal/domain/creditcard"
	"finansix/internal/domain/installment"
	"finansix/internal/domain/transaction"
	"finansix/internal/shared/logger"
)

type CardReader interface {
	GetByID(ctx context.Context, householdID, id string) (*creditcard.CreditCard, error)
}

type InstallmentLister interface {
	List(ctx context.Context, filter installment.Filter) ([]*installment.Installment, error)
}

type TransactionLister interface {
	List(ctx context.Context, filter transaction.Filter) ([]*transaction.Transaction, error)
}

type Service struct {
	repo         Repository
	cards        CardReader
	installments InstallmentLister
	transactions TransactionLister
	newID        func() string
}

func NewService(repo Repository, cards CardReader, installments InstallmentLister, transactions TransactionLister) *Service {
	return &Service{
		repo:         repo,
		cards:        cards,
		installments: installments,
		transactions: transactions,
		newID:        uuid.NewString,
	}
}

// GetInvoice assembles the invoice of card for billingMonth as seen on today.
func (s *Service) GetInvoice(ctx context.Context, householdID, cardID string, billingMonth, today civil.Date) (*Invoice, error) {
	if billingMonth.Day != 1 || !billingMonth.IsValid() {
		return nil, ErrInvalidMonth
	}

	card, err := s.cards.GetByID(ctx, householdID, cardID)
	if err != nil {
		return nil, err
	}

	insts, err := s.installments.List(ctx, installment.Filter{
		HouseholdID:  householdID,
		CreditCardID: cardID,
		BillingMonth: &billingMonth,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list installments: %w", err)
	}

	purchases, err := s.transactions.List(ctx, transaction.Filter{
		HouseholdID:        householdID,
		Types:              []transaction.Type{transaction.TypeExpense},
		CreditCardID:       &cardID,
		BillingMonth:       &billingMonth,
		ExcludeInstallment: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list card purchases: %w", err)
	}

	inv := &Invoice{
		CreditCardID: card.ID,
		BillingMonth: billingMonth,
		ClosingDate:  billing.ClosingDate(billingMonth, card.Cycle()),
		DueDate:      billing.DueDate(billingMonth, card.Cycle()),
	}

	for _, i := range insts {
		inv.Items = append(inv.Items, Item{
			Kind:              ItemInstallment,
			ID:                i.ID,
			TransactionID:     i.TransactionID,
			InstallmentNumber: i.InstallmentNumber,
			TotalInstallments: i.TotalInstallments,
			Amount:            i.Amount,
			Paid:              i.Status == installment.StatusPaid,
		})
	}
	for _, tx := range purchases {
		inv.Items = append(inv.Items, Item{
			Kind:          ItemPurchase,
			ID:            tx.ID,
			TransactionID: tx.ID,
			Description:   tx.Description,
			Amount:        tx.Amount.Abs(),
			Paid:          tx.Status == transaction.StatusCompleted,
		})
	}

	inv.Total, inv.Paid = decimal.Zero, decimal.Zero
	for _, item := range inv.Items {
		inv.Total = inv.Total.Add(item.Amount)
		if item.Paid {
			inv.Paid = inv.Paid.Add(item.Amount)
		}
	}
	inv.Remaining = inv.Total.Sub(inv.Paid)
	inv.Status = statusOf(inv, today)

	return inv, nil
}

// statusOf applies the invoice lifecycle: open until the closing date, then
// closed until the due date, and overdue after it unless nothing remains.
func statusOf(inv *Invoice, today civil.Date) Status {
	switch {
	case today.Before(inv.ClosingDate):
		return StatusOpen
	case !inv.Remaining.IsPositive():
		return StatusPaid
	case !today.After(inv.DueDate):
		return StatusClosed
	default:
		return StatusOverdue
	}
}

// Pay settles a closed or overdue invoice. Every pending item is marked paid.
// When amount is less than what remains, the difference becomes a new
// pending expense on the card, billed into the next month; the old items are
// never partially mutated.
func (s *Service) Pay(ctx context.Context, actorID, householdID, cardID string, billingMonth civil.Date, amount decimal.Decimal, today civil.Date) (*PaymentResult, error) {
	if !amount.IsPositive() || !amount.Equal(amount.Round(2)) {
		return nil, ErrInvalidAmount
	}

	inv, err := s.GetInvoice(ctx, householdID, cardID, billingMonth, today)
	if err != nil {
		return nil, err
	}

	switch inv.Status {
	case StatusClosed, StatusOverdue:
	case StatusPaid:
		return nil, fmt.Errorf("%w: already paid", ErrNotPayable)
	default:
		return nil, fmt.Errorf("%w: invoice closes on %s", ErrNotPayable, inv.ClosingDate)
	}

	if amount.GreaterThan(inv.Remaining) {
		return nil, fmt.Errorf("%w: remaining %s", ErrOverpayment, inv.Remaining.StringFixed(2))
	}

	settlement := Settlement{HouseholdID: householdID}
	for _, item := range inv.Items {
		if item.Paid {
			continue
		}
		switch item.Kind {
		case ItemInstallment:
			settlement.InstallmentIDs = append(settlement.InstallmentIDs, item.ID)
		case ItemPurchase:
			settlement.TransactionIDs = append(settlement.TransactionIDs, item.ID)
		}
	}
	if len(settlement.InstallmentIDs)+len(settlement.TransactionIDs) == 0 {
		return nil, ErrNothingToSettle
	}

	result := &PaymentResult{AmountPaid: amount, CarryForward: inv.Remaining.Sub(amount)}

	if result.CarryForward.IsPositive() {
		next := billing.AddMonths(billingMonth, 1)
		carry := &transaction.CreateParams{
			ID:                s.newID(),
			HouseholdID:       householdID,
			CreditCardID:      &cardID,
			Description:       fmt.Sprintf("Remaining balance of invoice %04d-%02d", billingMonth.Year, int(billingMonth.Month)),
			Amount:            result.CarryForward.Neg(),
			Type:              transaction.TypeExpense,
			Status:            transaction.StatusPending,
			TransactionDate:   next,
			BillingMonth:      &next,
			TotalInstallments: 1,
			IsCarryForward:    true,
			CreatedBy:         actorID,
		}
		if err := carry.Validate(); err != nil {
			return nil, fmt.Errorf("invalid carry-forward: %w", err)
		}
		settlement.CarryForward = carry
		result.CarryForwardID = carry.ID
	}

	if err := s.repo.Settle(ctx, settlement); err != nil {
		return nil, fmt.Errorf("failed to settle invoice: %w", err)
	}

	log := logger.FromContext(ctx)
	log.Info().
		Str("credit_card_id", cardID).
		Str("billing_month", billingMonth.String()).
		Str("paid", amount.StringFixed(2)).
		Str("carry_forward", result.CarryForward.StringFixed(2)).
		Msg("Invoice settled")

	for i := range inv.Items {
		inv.Items[i].Paid = true
	}
	inv.Paid = inv.Total
	inv.Remaining = decimal.Zero
	inv.Status = StatusPaid
	result.Invoice = inv

	return result, nil
}
