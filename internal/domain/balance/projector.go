package balance

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"finansix/internal/domain/installment"
	"finansix/internal/domain/subscription"
	"finansix/internal/domain/transaction"
)

var projectorTracer = otel.Tracer("finansix/balance")

// DefaultWindowDays is how far ahead projections look when enabled.
const DefaultWindowDays = 30

var ErrInvalidPeriod = errors.New("invalid period")

type AccountReader interface {
	SumCurrentBalances(ctx context.Context, householdID string) (decimal.Decimal, error)
}

type TransactionLister interface {
	List(ctx context.Context, filter transaction.Filter) ([]*transaction.Transaction, error)
}

type InstallmentLister interface {
	List(ctx context.Context, filter installment.Filter) ([]*installment.Installment, error)
}

type SubscriptionLister interface {
	ListActive(ctx context.Context, householdID string) ([]*subscription.Subscription, error)
}

// Projector computes free balances and payment summaries from the
// household's accounts, transactions, installments and subscriptions.
type Projector struct {
	accounts      AccountReader
	transactions  TransactionLister
	installments  InstallmentLister
	subscriptions SubscriptionLister
	windowDays    int
}

func NewProjector(
	accounts AccountReader,
	transactions TransactionLister,
	installments InstallmentLister,
	subscriptions SubscriptionLister,
	windowDays int,
) *Projector {
	if windowDays <= 0 {
		windowDays = DefaultWindowDays
	}
	return &Projector{
		accounts:      accounts,
		transactions:  transactions,
		installments:  installments,
		subscriptions: subscriptions,
		windowDays:    windowDays,
	}
}

// FreeBalance computes
//
//	current - pending expenses - card due + expected income - expected expenses - subscriptions + reimbursements
//
// Pending expenses are unpaid expenses dated up to target. Installment
// purchases are left out of them because their cost is counted through
// their installments in card due. The expected terms and subscriptions
// cover (target, target+window] and are only present with includeProjections.
func (p *Projector) FreeBalance(ctx context.Context, householdID string, target civil.Date, includeProjections bool) (proj *Projection, err error) {
	if householdID == "" {
		return &Projection{Disabled: true}, nil
	}

	ctx, span := projectorTracer.Start(ctx, "balance.FreeBalance")
	defer span.End()
	span.SetAttributes(
		attribute.String("target_date", target.String()),
		attribute.Bool("include_projections", includeProjections),
	)
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
	}()

	horizon := target
	if includeProjections {
		horizon = target.AddDays(p.windowDays)
	}

	current, err := p.accounts.SumCurrentBalances(ctx, householdID)
	if err != nil {
		return nil, fmt.Errorf("failed to sum account balances: %w", err)
	}

	pendingExpenses, err := p.transactions.List(ctx, transaction.Filter{
		HouseholdID:        householdID,
		Statuses:           []transaction.Status{transaction.StatusPending},
		Types:              []transaction.Type{transaction.TypeExpense},
		DateTo:             &target,
		ExcludeInstallment: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list pending expenses: %w", err)
	}

	cardDue, err := p.installments.List(ctx, installment.Filter{
		HouseholdID: householdID,
		Statuses:    []installment.Status{installment.StatusPending},
		DueTo:       &horizon,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list pending installments: %w", err)
	}

	reimbursable, err := p.transactions.List(ctx, transaction.Filter{
		HouseholdID:      householdID,
		UnreimbursedOnly: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list reimbursable transactions: %w", err)
	}

	proj = &Projection{
		HouseholdID:        householdID,
		TargetDate:         target,
		IncludeProjections: includeProjections,
		Horizon:            horizon,
	}

	proj.Breakdown = append(proj.Breakdown, LineItem{Kind: LineCurrentBalance, Amount: current})
	proj.Breakdown = append(proj.Breakdown, outflow(LinePendingExpenses, transactionMagnitudes(pendingExpenses)))
	proj.Breakdown = append(proj.Breakdown, outflow(LineCreditCardDue, installmentAmounts(cardDue)))

	if includeProjections {
		windowStart := target.AddDays(1)
		upcoming, err := p.transactions.List(ctx, transaction.Filter{
			HouseholdID:        householdID,
			Statuses:           []transaction.Status{transaction.StatusPending},
			Types:              []transaction.Type{transaction.TypeIncome, transaction.TypeExpense},
			DateFrom:           &windowStart,
			DateTo:             &horizon,
			ExcludeInstallment: true,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to list upcoming transactions: %w", err)
		}

		var income, expenses []decimal.Decimal
		for _, tx := range upcoming {
			if tx.Type == transaction.TypeIncome {
				income = append(income, tx.Amount.Abs())
			} else {
				expenses = append(expenses, tx.Amount.Abs())
			}
		}

		subs, err := p.subscriptions.ListActive(ctx, householdID)
		if err != nil {
			return nil, fmt.Errorf("failed to list subscriptions: %w", err)
		}
		var charges []decimal.Decimal
		for _, s := range subs {
			for range s.ChargesBetween(target, horizon) {
				charges = append(charges, s.Amount.Abs())
			}
		}

		proj.Breakdown = append(proj.Breakdown, inflow(LineExpectedIncome, income))
		proj.Breakdown = append(proj.Breakdown, outflow(LineExpectedExpenses, expenses))
		proj.Breakdown = append(proj.Breakdown, outflow(LineSubscriptions, charges))
	}

	proj.Breakdown = append(proj.Breakdown, inflow(LinePendingReimbursements, transactionMagnitudes(reimbursable)))

	proj.FreeBalance = decimal.Zero
	for _, l := range proj.Breakdown {
		proj.FreeBalance = proj.FreeBalance.Add(l.Amount)
	}

	span.SetAttributes(attribute.String("free_balance", proj.FreeBalance.StringFixed(2)))
	return proj, nil
}

func inflow(kind LineKind, amounts []decimal.Decimal) LineItem {
	return LineItem{Kind: kind, Amount: sum(amounts), Count: len(amounts)}
}

func outflow(kind LineKind, amounts []decimal.Decimal) LineItem {
	return LineItem{Kind: kind, Amount: sum(amounts).Neg(), Count: len(amounts)}
}

func sum(amounts []decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, a := range amounts {
		total = total.Add(a)
	}
	return total
}

func transactionMagnitudes(txs []*transaction.Transaction) []decimal.Decimal {
	out := make([]decimal.Decimal, len(txs))
	for i, tx := range txs {
		out[i] = tx.Amount.Abs()
	}
	return out
}

func installmentAmounts(insts []*installment.Installment) []decimal.Decimal {
	out := make([]decimal.Decimal, len(insts))
	for i, inst := range insts {
		out[i] = inst.Amount
	}
	return out
}
