package invoice

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"

	"finansix/internal/domain/creditcard"
	"finansix/internal/domain/installment"
	"finansix/internal/domain/transaction"
)

func date(y, m, d int) civil.Date {
	return civil.Date{Year: y, Month: time.Month(m), Day: d}
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

type MockRepository struct {
	SettleFunc func(ctx context.Context, s Settlement) error
}

func (m *MockRepository) Settle(ctx context.Context, s Settlement) error {
	if m.SettleFunc != nil {
		return m.SettleFunc(ctx, s)
	}
	return nil
}

type mockCards struct {
	card *creditcard.CreditCard
	err  error
}

func (m mockCards) GetByID(ctx context.Context, householdID, id string) (*creditcard.CreditCard, error) {
	return m.card, m.err
}

type mockInstallments struct {
	rows []*installment.Installment
	got  installment.Filter
}

func (m *mockInstallments) List(ctx context.Context, filter installment.Filter) ([]*installment.Installment, error) {
	m.got = filter
	return m.rows, nil
}

type mockTransactions struct {
	rows []*transaction.Transaction
	got  transaction.Filter
}

func (m *mockTransactions) List(ctx context.Context, filter transaction.Filter) ([]*transaction.Transaction, error) {
	m.got = filter
	return m.rows, nil
}

// Card closes on the 15th and is due on the 22nd; the March 2024 invoice
// closes 2024-03-15 and is due 2024-03-22.
func newFixture(paid bool) (*Service, *MockRepository, *mockInstallments, *mockTransactions) {
	card := &creditcard.CreditCard{ID: "card-1", HouseholdID: "hh-1", ClosingDay: 15, DueDay: 22}

	instStatus := installment.StatusPending
	txStatus := transaction.StatusPending
	if paid {
		instStatus = installment.StatusPaid
		txStatus = transaction.StatusCompleted
	}

	insts := &mockInstallments{rows: []*installment.Installment{
		{ID: "inst-1", TransactionID: "tx-1", InstallmentNumber: 2, TotalInstallments: 3, Amount: dec("100.00"), Status: instStatus},
		{ID: "inst-2", TransactionID: "tx-2", InstallmentNumber: 1, TotalInstallments: 10, Amount: dec("50.00"), Status: installment.StatusPaid},
	}}
	txs := &mockTransactions{rows: []*transaction.Transaction{
		{ID: "tx-3", Description: "Coffee", Amount: dec("-25.50"), Type: transaction.TypeExpense, Status: txStatus},
	}}
	repo := &MockRepository{}

	svc := NewService(repo, mockCards{card: card}, insts, txs)
	svc.newID = func() string { return "carry-1" }
	return svc, repo, insts, txs
}

func TestGetInvoice(t *testing.T) {
	svc, _, insts, txs := newFixture(false)

	inv, err := svc.GetInvoice(context.Background(), "hh-1", "card-1", date(2024, 3, 1), date(2024, 3, 18))
	if err != nil {
		t.Fatalf("GetInvoice() unexpected error: %v", err)
	}

	if inv.ClosingDate != date(2024, 3, 15) || inv.DueDate != date(2024, 3, 22) {
		t.Errorf("closing/due = %s/%s, want 2024-03-15/2024-03-22", inv.ClosingDate, inv.DueDate)
	}
	if len(inv.Items) != 3 {
		t.Fatalf("Items = %d, want 3", len(inv.Items))
	}
	if !inv.Total.Equal(dec("175.50")) || !inv.Paid.Equal(dec("50.00")) || !inv.Remaining.Equal(dec("125.50")) {
		t.Errorf("total/paid/remaining = %s/%s/%s, want 175.50/50.00/125.50", inv.Total, inv.Paid, inv.Remaining)
	}
	if inv.Status != StatusClosed {
		t.Errorf("Status = %s, want closed", inv.Status)
	}

	if insts.got.BillingMonth == nil || *insts.got.BillingMonth != date(2024, 3, 1) || insts.got.CreditCardID != "card-1" {
		t.Errorf("installment filter = %+v", insts.got)
	}
	if !txs.got.ExcludeInstallment || txs.got.CreditCardID == nil || *txs.got.CreditCardID != "card-1" {
		t.Errorf("transaction filter = %+v", txs.got)
	}
}

func TestGetInvoice_Status(t *testing.T) {
	tests := []struct {
		name  string
		paid  bool
		today civil.Date
		want  Status
	}{
		{"before closing", false, date(2024, 3, 14), StatusOpen},
		{"on closing day", false, date(2024, 3, 15), StatusClosed},
		{"on due day", false, date(2024, 3, 22), StatusClosed},
		{"after due day", false, date(2024, 3, 23), StatusOverdue},
		{"paid after closing", true, date(2024, 3, 16), StatusPaid},
		{"paid long after due", true, date(2024, 5, 1), StatusPaid},
		{"paid but still open", true, date(2024, 3, 2), StatusOpen},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _, _, _ := newFixture(tt.paid)
			inv, err := svc.GetInvoice(context.Background(), "hh-1", "card-1", date(2024, 3, 1), tt.today)
			if err != nil {
				t.Fatalf("GetInvoice() unexpected error: %v", err)
			}
			if inv.Status != tt.want {
				t.Errorf("Status = %s, want %s", inv.Status, tt.want)
			}
		})
	}
}

func TestGetInvoice_Errors(t *testing.T) {
	svc, _, _, _ := newFixture(false)
	if _, err := svc.GetInvoice(context.Background(), "hh-1", "card-1", date(2024, 3, 2), date(2024, 3, 18)); !errors.Is(err, ErrInvalidMonth) {
		t.Errorf("GetInvoice() error = %v, want ErrInvalidMonth", err)
	}

	svc.cards = mockCards{err: creditcard.ErrCardNotFound}
	if _, err := svc.GetInvoice(context.Background(), "hh-1", "card-x", date(2024, 3, 1), date(2024, 3, 18)); !errors.Is(err, creditcard.ErrCardNotFound) {
		t.Errorf("GetInvoice() error = %v, want ErrCardNotFound", err)
	}
}

func TestPay_Full(t *testing.T) {
	svc, repo, _, _ := newFixture(false)

	var got Settlement
	repo.SettleFunc = func(ctx context.Context, s Settlement) error {
		got = s
		return nil
	}

	res, err := svc.Pay(context.Background(), "user-1", "hh-1", "card-1", date(2024, 3, 1), dec("125.50"), date(2024, 3, 20))
	if err != nil {
		t.Fatalf("Pay() unexpected error: %v", err)
	}

	if len(got.InstallmentIDs) != 1 || got.InstallmentIDs[0] != "inst-1" {
		t.Errorf("settled installments = %v, want [inst-1]", got.InstallmentIDs)
	}
	if len(got.TransactionIDs) != 1 || got.TransactionIDs[0] != "tx-3" {
		t.Errorf("settled transactions = %v, want [tx-3]", got.TransactionIDs)
	}
	if got.CarryForward != nil {
		t.Errorf("full payment created carry-forward %+v", got.CarryForward)
	}
	if !res.CarryForward.IsZero() || res.CarryForwardID != "" {
		t.Errorf("CarryForward = %s (%q), want none", res.CarryForward, res.CarryForwardID)
	}
	if res.Invoice.Status != StatusPaid || !res.Invoice.Remaining.IsZero() {
		t.Errorf("invoice after payment = %s remaining %s", res.Invoice.Status, res.Invoice.Remaining)
	}
}

func TestPay_PartialCarriesRemainderForward(t *testing.T) {
	svc, repo, _, _ := newFixture(false)

	var got Settlement
	repo.SettleFunc = func(ctx context.Context, s Settlement) error {
		got = s
		return nil
	}

	res, err := svc.Pay(context.Background(), "user-1", "hh-1", "card-1", date(2024, 3, 1), dec("100.00"), date(2024, 3, 25))
	if err != nil {
		t.Fatalf("Pay() unexpected error: %v", err)
	}

	carry := got.CarryForward
	if carry == nil {
		t.Fatal("partial payment did not create a carry-forward")
	}
	if !carry.Amount.Equal(dec("-25.50")) {
		t.Errorf("carry amount = %s, want -25.50", carry.Amount)
	}
	if carry.BillingMonth == nil || *carry.BillingMonth != date(2024, 4, 1) {
		t.Errorf("carry billing month = %v, want 2024-04-01", carry.BillingMonth)
	}
	if carry.TransactionDate != date(2024, 4, 1) {
		t.Errorf("carry date = %s, want 2024-04-01", carry.TransactionDate)
	}
	if carry.Status != transaction.StatusPending || carry.Type != transaction.TypeExpense || !carry.IsCarryForward {
		t.Errorf("carry = %+v, want pending carry-forward expense", carry)
	}
	if carry.CreditCardID == nil || *carry.CreditCardID != "card-1" || carry.CreatedBy != "user-1" {
		t.Errorf("carry not attached to card/actor: %+v", carry)
	}
	if len(got.InstallmentIDs)+len(got.TransactionIDs) != 2 {
		t.Errorf("settled %d items, want every pending item", len(got.InstallmentIDs)+len(got.TransactionIDs))
	}
	if !res.CarryForward.Equal(dec("25.50")) || res.CarryForwardID != "carry-1" {
		t.Errorf("result carry = %s (%q)", res.CarryForward, res.CarryForwardID)
	}
}

func TestPay_Rejections(t *testing.T) {
	tests := []struct {
		name    string
		paid    bool
		amount  string
		today   civil.Date
		wantErr error
	}{
		{"zero amount", false, "0", date(2024, 3, 20), ErrInvalidAmount},
		{"negative amount", false, "-10", date(2024, 3, 20), ErrInvalidAmount},
		{"sub-cent amount", false, "10.001", date(2024, 3, 20), ErrInvalidAmount},
		{"still open", false, "10", date(2024, 3, 10), ErrNotPayable},
		{"already paid", true, "10", date(2024, 3, 20), ErrNotPayable},
		{"overpayment", false, "125.51", date(2024, 3, 20), ErrOverpayment},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, repo, _, _ := newFixture(tt.paid)
			repo.SettleFunc = func(ctx context.Context, s Settlement) error {
				t.Error("Settle called for a rejected payment")
				return nil
			}
			_, err := svc.Pay(context.Background(), "user-1", "hh-1", "card-1", date(2024, 3, 1), dec(tt.amount), tt.today)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Pay() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestPay_SettleFailure(t *testing.T) {
	svc, repo, _, _ := newFixture(false)
	dbErr := errors.New("db error")
	repo.SettleFunc = func(ctx context.Context, s Settlement) error { return dbErr }

	if _, err := svc.Pay(context.Background(), "user-1", "hh-1", "card-1", date(2024, 3, 1), dec("50"), date(2024, 3, 20)); !errors.Is(err, dbErr) {
		t.Errorf("Pay() error = %v, want %v", err, dbErr)
	}
}

func TestPay_ConcurrentSettlement(t *testing.T) {
	svc, repo, _, _ := newFixture(false)
	repo.SettleFunc = func(ctx context.Context, s Settlement) error {
		return fmt.Errorf("%w: 0 of 2 installments still pending", ErrSettlementConflict)
	}

	result, err := svc.Pay(context.Background(), "user-1", "hh-1", "card-1", date(2024, 3, 1), dec("50"), date(2024, 3, 20))
	if !errors.Is(err, ErrSettlementConflict) {
		t.Errorf("Pay() error = %v, want ErrSettlementConflict", err)
	}
	if result != nil {
		t.Errorf("Pay() result = %+v, want nil", result)
	}
}
