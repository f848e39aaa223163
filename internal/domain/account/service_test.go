package account

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

// MockRepository is a mock implementation of Repository interface
type MockRepository struct {
	GetByIDFunc            func(ctx context.Context, id string) (*Account, error)
	ListByHouseholdFunc    func(ctx context.Context, householdID string) ([]*Account, error)
	SumCurrentBalancesFunc func(ctx context.Context, householdID string) (decimal.Decimal, error)
	RecomputeBalanceFunc   func(ctx context.Context, id string) (decimal.Decimal, error)
}

func (m *MockRepository) GetByID(ctx context.Context, id string) (*Account, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, nil
}

func (m *MockRepository) ListByHousehold(ctx context.Context, householdID string) ([]*Account, error) {
	if m.ListByHouseholdFunc != nil {
		return m.ListByHouseholdFunc(ctx, householdID)
	}
	return nil, nil
}

func (m *MockRepository) SumCurrentBalances(ctx context.Context, householdID string) (decimal.Decimal, error) {
	if m.SumCurrentBalancesFunc != nil {
		return m.SumCurrentBalancesFunc(ctx, householdID)
	}
	return decimal.Zero, nil
}

func (m *MockRepository) RecomputeBalance(ctx context.Context, id string) (decimal.Decimal, error) {
	if m.RecomputeBalanceFunc != nil {
		return m.RecomputeBalanceFunc(ctx, id)
	}
	return decimal.Zero, nil
}

func TestGetAccount(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name        string
		accountID   string
		householdID string
		mock        func() *MockRepository
		wantErr     bool
		errType     error
	}{
		{
			name:        "Success",
			accountID:   "acc-123",
			householdID: "hh-1",
			mock: func() *MockRepository {
				return &MockRepository{
					GetByIDFunc: func(ctx context.Context, id string) (*Account, error) {
						return &Account{ID: id, HouseholdID: "hh-1"}, nil
					},
				}
			},
		},
		{
			name:        "Not Found",
			accountID:   "acc-999",
			householdID: "hh-1",
			mock: func() *MockRepository {
				return &MockRepository{
					GetByIDFunc: func(ctx context.Context, id string) (*Account, error) {
						return nil, ErrAccountNotFound
					},
				}
			},
			wantErr: true,
			errType: ErrAccountNotFound,
		},
		{
			name:        "Other household",
			accountID:   "acc-123",
			householdID: "hh-2",
			mock: func() *MockRepository {
				return &MockRepository{
					GetByIDFunc: func(ctx context.Context, id string) (*Account, error) {
						return &Account{ID: id, HouseholdID: "hh-1"}, nil
					},
				}
			},
			wantErr: true,
			errType: ErrForbidden,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service := NewService(tt.mock())

			acc, err := service.GetAccount(ctx, tt.accountID, tt.householdID)

			if tt.wantErr {
				if err == nil {
					t.Fatalf("GetAccount() expected error, got nil")
				}
				if tt.errType != nil && !errors.Is(err, tt.errType) {
					t.Errorf("GetAccount() expected error %v, got %v", tt.errType, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("GetAccount() unexpected error: %v", err)
			}
			if acc == nil || acc.ID != tt.accountID {
				t.Errorf("GetAccount() = %+v, want account %s", acc, tt.accountID)
			}
		})
	}
}

func TestRecomputeBalances(t *testing.T) {
	ctx := context.Background()

	t.Run("recomputes every account", func(t *testing.T) {
		var recomputed []string
		repo := &MockRepository{
			ListByHouseholdFunc: func(ctx context.Context, householdID string) ([]*Account, error) {
				return []*Account{
					{ID: "a1", CurrentBalance: decimal.NewFromInt(10)},
					{ID: "a2", CurrentBalance: decimal.NewFromInt(20)},
				}, nil
			},
			RecomputeBalanceFunc: func(ctx context.Context, id string) (decimal.Decimal, error) {
				recomputed = append(recomputed, id)
				return decimal.NewFromInt(15), nil
			},
		}

		n, err := NewService(repo).RecomputeBalances(ctx, "hh-1")
		if err != nil {
			t.Fatalf("RecomputeBalances() unexpected error: %v", err)
		}
		if n != 2 || len(recomputed) != 2 {
			t.Errorf("RecomputeBalances() = %d (calls %v), want 2", n, recomputed)
		}
	})

	t.Run("stops at first failure", func(t *testing.T) {
		dbErr := errors.New("db error")
		repo := &MockRepository{
			ListByHouseholdFunc: func(ctx context.Context, householdID string) ([]*Account, error) {
				return []*Account{{ID: "a1"}, {ID: "a2"}, {ID: "a3"}}, nil
			},
			RecomputeBalanceFunc: func(ctx context.Context, id string) (decimal.Decimal, error) {
				if id == "a2" {
					return decimal.Zero, dbErr
				}
				return decimal.Zero, nil
			},
		}

		n, err := NewService(repo).RecomputeBalances(ctx, "hh-1")
		if !errors.Is(err, dbErr) {
			t.Errorf("RecomputeBalances() error = %v, want %v", err, dbErr)
		}
		if n != 1 {
			t.Errorf("RecomputeBalances() = %d, want 1", n)
		}
	})

	t.Run("requires household", func(t *testing.T) {
		if _, err := NewService(&MockRepository{}).RecomputeBalances(ctx, ""); err == nil {
			t.Error("RecomputeBalances() expected error for empty household")
		}
	})
}
