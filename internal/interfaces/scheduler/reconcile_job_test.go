package scheduler

import (
	"context"
	"errors"
	"testing"

	"finansix/internal/domain/installment"
)

type mockBackfiller struct {
	result *installment.BackfillResult
	err    error
	calls  []string
}

func (m *mockBackfiller) BackfillHousehold(ctx context.Context, householdID string) (*installment.BackfillResult, error) {
	m.calls = append(m.calls, householdID)
	if m.err != nil {
		return nil, m.err
	}
	return m.result, nil
}

type mockBalances struct {
	n     int
	err   error
	calls []string
}

func (m *mockBalances) RecomputeBalances(ctx context.Context, householdID string) (int, error) {
	m.calls = append(m.calls, householdID)
	return m.n, m.err
}

type mockHouseholds struct {
	ids []string
	err error
}

func (m mockHouseholds) ListHouseholdIDs(ctx context.Context) ([]string, error) {
	return m.ids, m.err
}

func TestReconcileJob_Execute(t *testing.T) {
	tests := []struct {
		name             string
		backfiller       *mockBackfiller
		balances         *mockBalances
		wantErr          bool
		wantRecomputeRun bool
	}{
		{
			name:             "clean run",
			backfiller:       &mockBackfiller{result: &installment.BackfillResult{TransactionsChecked: 2, Exploded: 2}},
			balances:         &mockBalances{n: 3},
			wantRecomputeRun: true,
		},
		{
			name:       "backfill failure skips recompute",
			backfiller: &mockBackfiller{err: errors.New("db down")},
			balances:   &mockBalances{},
			wantErr:    true,
		},
		{
			name:             "partial backfill still recomputes",
			backfiller:       &mockBackfiller{result: &installment.BackfillResult{TransactionsChecked: 2, Exploded: 1, Errors: []string{"tx-2: card missing"}}},
			balances:         &mockBalances{n: 1},
			wantErr:          true,
			wantRecomputeRun: true,
		},
		{
			name:             "recompute failure",
			backfiller:       &mockBackfiller{result: &installment.BackfillResult{}},
			balances:         &mockBalances{err: errors.New("account vanished")},
			wantErr:          true,
			wantRecomputeRun: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			job := NewReconcileJob("hh-1", tt.backfiller, tt.balances)

			err := job.Execute(context.Background())
			if (err != nil) != tt.wantErr {
				t.Fatalf("Execute() error = %v, wantErr %v", err, tt.wantErr)
			}
			if ran := len(tt.balances.calls) > 0; ran != tt.wantRecomputeRun {
				t.Errorf("recompute ran = %v, want %v", ran, tt.wantRecomputeRun)
			}
		})
	}
}

func TestReconcileJobProvider(t *testing.T) {
	backfiller := &mockBackfiller{result: &installment.BackfillResult{}}
	balances := &mockBalances{}

	provider := ReconcileJobProvider(mockHouseholds{ids: []string{"hh-1", "hh-2"}}, backfiller, balances)
	jobs, err := provider(context.Background())
	if err != nil {
		t.Fatalf("provider() error: %v", err)
	}
	if len(jobs) != 2 || jobs[0].HouseholdID() != "hh-1" || jobs[1].HouseholdID() != "hh-2" {
		t.Fatalf("jobs = %v", jobs)
	}

	failing := ReconcileJobProvider(mockHouseholds{err: errors.New("timeout")}, backfiller, balances)
	if _, err := failing(context.Background()); err == nil {
		t.Error("provider() expected error when households cannot be listed")
	}
}
