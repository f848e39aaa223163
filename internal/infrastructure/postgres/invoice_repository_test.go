package postgres

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"testing"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"

	"finansix/internal/domain/invoice"
	"finansix/internal/domain/transaction"
)

type fakeResult struct {
	rows int64
	err  error
}

func (r fakeResult) LastInsertId() (int64, error) { return 0, nil }
func (r fakeResult) RowsAffected() (int64, error) { return r.rows, r.err }

// fakeExecer answers each ExecContext with the next result and records the
// statements it saw.
type fakeExecer struct {
	results []sql.Result
	queries []string
}

func (f *fakeExecer) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	f.queries = append(f.queries, query)
	if len(f.queries) > len(f.results) {
		return fakeResult{rows: 1}, nil
	}
	return f.results[len(f.queries)-1], nil
}

func (f *fakeExecer) inserted() bool {
	for _, q := range f.queries {
		if strings.Contains(q, "INSERT INTO transactions") {
			return true
		}
	}
	return false
}

func partialSettlement() invoice.Settlement {
	next := civil.Date{Year: 2024, Month: 4, Day: 1}
	card := "card-1"
	return invoice.Settlement{
		HouseholdID:    "hh-1",
		InstallmentIDs: []string{"inst-1", "inst-2"},
		TransactionIDs: []string{"tx-1"},
		CarryForward: &transaction.CreateParams{
			ID:                "tx-cf",
			HouseholdID:       "hh-1",
			CreditCardID:      &card,
			Description:       "Remaining balance of invoice 2024-03",
			Amount:            decimal.RequireFromString("-40.00"),
			Type:              transaction.TypeExpense,
			Status:            transaction.StatusPending,
			TransactionDate:   next,
			BillingMonth:      &next,
			TotalInstallments: 1,
			IsCarryForward:    true,
		},
	}
}

func TestSettle(t *testing.T) {
	rowsErr := errors.New("driver does not report rows")

	tests := []struct {
		name         string
		results      []sql.Result
		wantErr      error
		wantInserted bool
	}{
		{
			name:         "every item still pending",
			results:      []sql.Result{fakeResult{rows: 2}, fakeResult{rows: 1}},
			wantInserted: true,
		},
		{
			name:    "installments already paid by another payment",
			results: []sql.Result{fakeResult{rows: 0}},
			wantErr: invoice.ErrSettlementConflict,
		},
		{
			name:    "some installments already paid",
			results: []sql.Result{fakeResult{rows: 1}},
			wantErr: invoice.ErrSettlementConflict,
		},
		{
			name:    "purchase already completed",
			results: []sql.Result{fakeResult{rows: 2}, fakeResult{rows: 0}},
			wantErr: invoice.ErrSettlementConflict,
		},
		{
			name:    "rows affected unavailable",
			results: []sql.Result{fakeResult{err: rowsErr}},
			wantErr: rowsErr,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := &fakeExecer{results: tt.results}

			err := settle(context.Background(), q, partialSettlement())
			if tt.wantErr == nil && err != nil {
				t.Fatalf("settle() unexpected error: %v", err)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Fatalf("settle() error = %v, want %v", err, tt.wantErr)
			}
			if q.inserted() != tt.wantInserted {
				t.Errorf("carry-forward inserted = %v, want %v", q.inserted(), tt.wantInserted)
			}
		})
	}
}

func TestSettle_FullPaymentWritesNoCarryForward(t *testing.T) {
	s := partialSettlement()
	s.CarryForward = nil
	q := &fakeExecer{results: []sql.Result{fakeResult{rows: 2}, fakeResult{rows: 1}}}

	if err := settle(context.Background(), q, s); err != nil {
		t.Fatalf("settle() unexpected error: %v", err)
	}
	if len(q.queries) != 2 || q.inserted() {
		t.Errorf("statements = %d, inserted = %v; want 2 updates only", len(q.queries), q.inserted())
	}
}
