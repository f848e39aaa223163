package installment

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"

	"finansix/internal/domain/billing"
	"finansix/internal/domain/creditcard"
	"finansix/internal/domain/transaction"
	"finansix/internal/shared/logger"
	"finansix/internal/shared/ratelimit"
)

var (
	explodeTracer   = otel.Tracer("finansix/installment")
	explodeMeter    = otel.Meter("finansix/installment")
	explodeTotal, _ = explodeMeter.Int64Counter("installments.explode.total",
		metric.WithDescription("Installment explosions by outcome"))
)

type Outcome string

const (
	OutcomeCreated         Outcome = "created"
	OutcomeAlreadyExploded Outcome = "already_exploded"
	OutcomeNotApplicable   Outcome = "not_applicable"
	outcomeFailed          Outcome = "failed"
)

// Result describes what an explosion did. Installments is set only for
// OutcomeCreated.
type Result struct {
	TransactionID string         `json:"transactionId"`
	Outcome       Outcome        `json:"outcome"`
	Reason        string         `json:"reason,omitempty"`
	Installments  []*Installment `json:"installments,omitempty"`
}

// Request identifies the transaction to explode and who asked for it.
type Request struct {
	ActorID       string
	HouseholdID   string
	TransactionID string
}

type TransactionReader interface {
	GetByID(ctx context.Context, householdID, id string) (*transaction.Transaction, error)
}

type CardReader interface {
	GetByID(ctx context.Context, householdID, id string) (*creditcard.CreditCard, error)
}

// Exploder turns an installment purchase into its N installment rows.
type Exploder struct {
	installments Repository
	transactions TransactionReader
	cards        CardReader
	limiter      ratelimit.Limiter
	limit        ratelimit.Limit
	policy       billing.RoundingPolicy
	newID        func() string
}

func NewExploder(
	installments Repository,
	transactions TransactionReader,
	cards CardReader,
	limiter ratelimit.Limiter,
	limit ratelimit.Limit,
	policy billing.RoundingPolicy,
) *Exploder {
	return &Exploder{
		installments: installments,
		transactions: transactions,
		cards:        cards,
		limiter:      limiter,
		limit:        limit,
		policy:       policy,
		newID:        uuid.NewString,
	}
}

// Allow consumes one unit of the actor's explosion budget.
func (e *Exploder) Allow(ctx context.Context, actorID string) error {
	return ratelimit.Check(ctx, e.limiter, "explode:"+actorID, e.limit)
}

// Explode loads the transaction named by req and explodes it. A rate-limited
// actor gets ratelimit.ErrRateLimited before anything is read or written.
func (e *Exploder) Explode(ctx context.Context, req Request) (*Result, error) {
	if err := e.Allow(ctx, req.ActorID); err != nil {
		explodeTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", "rate_limited")))
		return nil, err
	}

	tx, err := e.transactions.GetByID(ctx, req.HouseholdID, req.TransactionID)
	if err != nil {
		return nil, err
	}

	return e.explode(ctx, tx)
}

// ExplodePurchase explodes an already loaded transaction without consuming
// rate-limit budget. Callers check Allow themselves.
func (e *Exploder) ExplodePurchase(ctx context.Context, tx *transaction.Transaction) (int, error) {
	res, err := e.explode(ctx, tx)
	if err != nil {
		return 0, err
	}
	return len(res.Installments), nil
}

// Reconcile loads a purchase and explodes it if that has not happened yet.
// It is used by background paths and does not consume rate-limit budget.
func (e *Exploder) Reconcile(ctx context.Context, householdID, transactionID string) (*Result, error) {
	tx, err := e.transactions.GetByID(ctx, householdID, transactionID)
	if err != nil {
		return nil, err
	}
	return e.explode(ctx, tx)
}

func (e *Exploder) explode(ctx context.Context, tx *transaction.Transaction) (res *Result, err error) {
	ctx, span := explodeTracer.Start(ctx, "installment.Explode")
	defer span.End()

	span.SetAttributes(
		attribute.String("transaction.id", tx.ID),
		attribute.Int("installments.total", tx.TotalInstallments),
	)

	defer func() {
		outcome := outcomeFailed
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else {
			outcome = res.Outcome
		}
		span.SetAttributes(attribute.String("outcome", string(outcome)))
		explodeTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", string(outcome))))
	}()

	log := logger.FromContext(ctx).With().Str("transaction_id", tx.ID).Logger()

	if err := CheckApplicable(tx); err != nil {
		log.Debug().Err(err).Msg("Skipping explosion")
		return &Result{TransactionID: tx.ID, Outcome: OutcomeNotApplicable, Reason: err.Error()}, nil
	}

	existing, err := e.installments.CountByTransaction(ctx, tx.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to count installments: %w", err)
	}
	if existing > 0 {
		return &Result{TransactionID: tx.ID, Outcome: OutcomeAlreadyExploded}, nil
	}

	card, err := e.cards.GetByID(ctx, tx.HouseholdID, *tx.CreditCardID)
	if err != nil {
		if errors.Is(err, creditcard.ErrCardNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to load credit card: %w", err)
	}

	schedule, err := BuildSchedule(tx, card.Cycle(), e.policy, e.newID)
	if err != nil {
		return nil, err
	}

	inserted, err := e.installments.CreateBatch(ctx, schedule, schedule[0].BillingMonth)
	if err != nil {
		return nil, fmt.Errorf("failed to persist installments: %w", err)
	}
	if inserted == 0 {
		// A concurrent explosion won the race between the count and the insert.
		return &Result{TransactionID: tx.ID, Outcome: OutcomeAlreadyExploded}, nil
	}

	log.Info().
		Int("installments", inserted).
		Str("first_billing_month", schedule[0].BillingMonth.String()).
		Msg("Installment purchase exploded")

	return &Result{TransactionID: tx.ID, Outcome: OutcomeCreated, Installments: schedule}, nil
}
