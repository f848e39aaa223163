package installment

import (
	"context"
	"errors"
	"testing"
	"time"

	"cloud.google.com/go/civil"

	"finansix/internal/domain/billing"
	"finansix/internal/domain/creditcard"
	"finansix/internal/domain/transaction"
	"finansix/internal/shared/ratelimit"
)

// MockRepository is a mock implementation of Repository interface
type MockRepository struct {
	CountByTransactionFunc func(ctx context.Context, transactionID string) (int, error)
	CreateBatchFunc        func(ctx context.Context, batch []*Installment, billingMonth civil.Date) (int, error)
	ListFunc               func(ctx context.Context, filter Filter) ([]*Installment, error)
}

func (m *MockRepository) CountByTransaction(ctx context.Context, transactionID string) (int, error) {
	if m.CountByTransactionFunc != nil {
		return m.CountByTransactionFunc(ctx, transactionID)
	}
	return 0, nil
}

func (m *MockRepository) CreateBatch(ctx context.Context, batch []*Installment, billingMonth civil.Date) (int, error) {
	if m.CreateBatchFunc != nil {
		return m.CreateBatchFunc(ctx, batch, billingMonth)
	}
	return len(batch), nil
}

func (m *MockRepository) List(ctx context.Context, filter Filter) ([]*Installment, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, filter)
	}
	return nil, nil
}

type mockTransactions struct {
	tx  *transaction.Transaction
	err error
}

func (m mockTransactions) GetByID(ctx context.Context, householdID, id string) (*transaction.Transaction, error) {
	if m.err != nil {
		return nil, m.err
	}
	if m.tx == nil || m.tx.ID != id || m.tx.HouseholdID != householdID {
		return nil, transaction.ErrTransactionNotFound
	}
	return m.tx, nil
}

type mockCards struct {
	card *creditcard.CreditCard
	err  error
}

func (m mockCards) GetByID(ctx context.Context, householdID, id string) (*creditcard.CreditCard, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.card, nil
}

type mockLimiter struct {
	allowed bool
	keys    []string
}

func (m *mockLimiter) Allow(ctx context.Context, key string, limit ratelimit.Limit) (bool, error) {
	m.keys = append(m.keys, key)
	return m.allowed, nil
}

var testLimit = ratelimit.Limit{MaxRequests: 100, Window: time.Minute}

func newTestExploder(repo Repository, txs TransactionReader, cards CardReader, limiter ratelimit.Limiter) *Exploder {
	e := NewExploder(repo, txs, cards, limiter, testLimit, billing.RemainderToLast)
	e.newID = sequentialIDs()
	return e
}

func TestExplode(t *testing.T) {
	ctx := context.Background()
	card := &creditcard.CreditCard{ID: "card-1", HouseholdID: "hh-1", ClosingDay: 15, DueDay: 22}
	req := Request{ActorID: "user-1", HouseholdID: "hh-1", TransactionID: "tx-1"}

	tests := []struct {
		name        string
		tx          *transaction.Transaction
		repo        func(written *[]*Installment) *MockRepository
		cards       mockCards
		allowed     bool
		wantOutcome Outcome
		wantCount   int
		wantErr     error
	}{
		{
			name: "creates the full schedule",
			tx:   purchase("-300.00", 3, date(2024, 1, 20)),
			repo: func(written *[]*Installment) *MockRepository {
				return &MockRepository{
					CreateBatchFunc: func(ctx context.Context, batch []*Installment, billingMonth civil.Date) (int, error) {
						if billingMonth != date(2024, 2, 1) {
							t.Errorf("parent billing month = %s, want 2024-02-01", billingMonth)
						}
						*written = batch
						return len(batch), nil
					},
				}
			},
			cards:       mockCards{card: card},
			allowed:     true,
			wantOutcome: OutcomeCreated,
			wantCount:   3,
		},
		{
			name: "already exploded is a no-op",
			tx:   purchase("-300.00", 3, date(2024, 1, 20)),
			repo: func(written *[]*Installment) *MockRepository {
				return &MockRepository{
					CountByTransactionFunc: func(ctx context.Context, transactionID string) (int, error) {
						return 3, nil
					},
					CreateBatchFunc: func(ctx context.Context, batch []*Installment, billingMonth civil.Date) (int, error) {
						*written = batch
						return len(batch), nil
					},
				}
			},
			cards:       mockCards{card: card},
			allowed:     true,
			wantOutcome: OutcomeAlreadyExploded,
		},
		{
			name: "conflict on insert is a no-op",
			tx:   purchase("-300.00", 3, date(2024, 1, 20)),
			repo: func(written *[]*Installment) *MockRepository {
				return &MockRepository{
					CreateBatchFunc: func(ctx context.Context, batch []*Installment, billingMonth civil.Date) (int, error) {
						return 0, nil
					},
				}
			},
			cards:       mockCards{card: card},
			allowed:     true,
			wantOutcome: OutcomeAlreadyExploded,
		},
		{
			name:        "single purchase is not applicable",
			tx:          purchase("-30.00", 1, date(2024, 1, 20)),
			repo:        func(written *[]*Installment) *MockRepository { return &MockRepository{} },
			cards:       mockCards{card: card},
			allowed:     true,
			wantOutcome: OutcomeNotApplicable,
		},
		{
			name:    "missing card aborts",
			tx:      purchase("-300.00", 3, date(2024, 1, 20)),
			repo:    func(written *[]*Installment) *MockRepository { return &MockRepository{} },
			cards:   mockCards{err: creditcard.ErrCardNotFound},
			allowed: true,
			wantErr: creditcard.ErrCardNotFound,
		},
		{
			name: "partial batch surfaces an error",
			tx:   purchase("-300.00", 3, date(2024, 1, 20)),
			repo: func(written *[]*Installment) *MockRepository {
				return &MockRepository{
					CreateBatchFunc: func(ctx context.Context, batch []*Installment, billingMonth civil.Date) (int, error) {
						return 0, ErrPartialBatch
					},
				}
			},
			cards:   mockCards{card: card},
			allowed: true,
			wantErr: ErrPartialBatch,
		},
		{
			name:    "rate limited",
			tx:      purchase("-300.00", 3, date(2024, 1, 20)),
			repo:    func(written *[]*Installment) *MockRepository { return &MockRepository{} },
			cards:   mockCards{card: card},
			allowed: false,
			wantErr: ratelimit.ErrRateLimited,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var written []*Installment
			limiter := &mockLimiter{allowed: tt.allowed}
			e := newTestExploder(tt.repo(&written), mockTransactions{tx: tt.tx}, tt.cards, limiter)

			res, err := e.Explode(ctx, req)

			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Explode() error = %v, want %v", err, tt.wantErr)
				}
				if len(written) != 0 {
					t.Errorf("Explode() wrote %d installments on failure", len(written))
				}
				return
			}
			if err != nil {
				t.Fatalf("Explode() unexpected error: %v", err)
			}
			if res.Outcome != tt.wantOutcome {
				t.Errorf("Outcome = %s, want %s", res.Outcome, tt.wantOutcome)
			}
			if len(res.Installments) != tt.wantCount {
				t.Errorf("Installments = %d, want %d", len(res.Installments), tt.wantCount)
			}
			if tt.wantOutcome == OutcomeAlreadyExploded && len(written) != 0 {
				t.Errorf("already exploded transaction wrote %d installments", len(written))
			}
			if len(limiter.keys) != 1 || limiter.keys[0] != "explode:user-1" {
				t.Errorf("limiter keys = %v, want [explode:user-1]", limiter.keys)
			}
		})
	}
}

func TestExplode_RateLimitedReadsNothing(t *testing.T) {
	e := newTestExploder(&MockRepository{}, mockTransactions{err: errors.New("should not be called")}, mockCards{}, &mockLimiter{allowed: false})

	_, err := e.Explode(context.Background(), Request{ActorID: "user-1", HouseholdID: "hh-1", TransactionID: "tx-1"})
	if !errors.Is(err, ratelimit.ErrRateLimited) {
		t.Errorf("Explode() error = %v, want ErrRateLimited", err)
	}
}

func TestExplode_OtherHouseholdNotFound(t *testing.T) {
	tx := purchase("-300.00", 3, date(2024, 1, 20))
	e := newTestExploder(&MockRepository{}, mockTransactions{tx: tx}, mockCards{}, &mockLimiter{allowed: true})

	_, err := e.Explode(context.Background(), Request{ActorID: "user-2", HouseholdID: "hh-2", TransactionID: "tx-1"})
	if !errors.Is(err, transaction.ErrTransactionNotFound) {
		t.Errorf("Explode() error = %v, want ErrTransactionNotFound", err)
	}
}

func TestExplodePurchase_SkipsRateLimit(t *testing.T) {
	card := &creditcard.CreditCard{ID: "card-1", ClosingDay: 25, DueDay: 10}
	limiter := &mockLimiter{allowed: false}
	e := newTestExploder(&MockRepository{}, mockTransactions{}, mockCards{card: card}, limiter)

	n, err := e.ExplodePurchase(context.Background(), purchase("-100.00", 4, date(2024, 6, 26)))
	if err != nil {
		t.Fatalf("ExplodePurchase() unexpected error: %v", err)
	}
	if n != 4 {
		t.Errorf("ExplodePurchase() = %d, want 4", n)
	}
	if len(limiter.keys) != 0 {
		t.Errorf("ExplodePurchase() consulted the limiter: %v", limiter.keys)
	}
}

func TestReconcile_DoesNotConsumeBudget(t *testing.T) {
	limiter := &mockLimiter{allowed: false}
	card := &creditcard.CreditCard{ID: "card-1", HouseholdID: "hh-1", ClosingDay: 15, DueDay: 22}
	e := newTestExploder(&MockRepository{}, mockTransactions{tx: purchase("-90.00", 3, date(2024, 1, 20))}, mockCards{card: card}, limiter)

	res, err := e.Reconcile(context.Background(), "hh-1", "tx-1")
	if err != nil {
		t.Fatalf("Reconcile() error: %v", err)
	}
	if res.Outcome != OutcomeCreated {
		t.Errorf("Outcome = %s, want %s", res.Outcome, OutcomeCreated)
	}
	if len(limiter.keys) != 0 {
		t.Errorf("limiter consulted %d times, want 0", len(limiter.keys))
	}

	if _, err := e.Reconcile(context.Background(), "hh-2", "tx-1"); !errors.Is(err, transaction.ErrTransactionNotFound) {
		t.Errorf("Reconcile() other household error = %v, want ErrTransactionNotFound", err)
	}
}
