package billing

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// RoundingPolicy decides how a purchase amount is divided across installments.
type RoundingPolicy string

const (
	// RemainderToLast rounds amount/n to cents for every installment and lets
	// the last one absorb the residual, so the parts always sum to the total.
	RemainderToLast RoundingPolicy = "remainder_to_last"

	// FloorEach floors amount/n to cents for every installment and never
	// reconciles the residual. Up to n-1 cents of the total are not billed.
	// Kept for parity with schedules created before RemainderToLast existed.
	FloorEach RoundingPolicy = "floor"
)

var ErrInvalidInstallmentCount = errors.New("installment count must be at least 1")

// ParseRoundingPolicy maps a configuration value onto a policy.
func ParseRoundingPolicy(s string) (RoundingPolicy, error) {
	switch p := RoundingPolicy(s); p {
	case RemainderToLast, FloorEach:
		return p, nil
	default:
		return "", fmt.Errorf("unknown rounding policy %q", s)
	}
}

// Split divides amount into n installment amounts according to policy.
// amount is expected to be a non-negative magnitude in currency units.
func Split(amount decimal.Decimal, n int, policy RoundingPolicy) ([]decimal.Decimal, error) {
	if n < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidInstallmentCount, n)
	}

	count := decimal.NewFromInt(int64(n))
	parts := make([]decimal.Decimal, n)

	switch policy {
	case FloorEach:
		each := amount.Div(count).RoundFloor(2)
		for i := range parts {
			parts[i] = each
		}

	case RemainderToLast, "":
		each := amount.Div(count).Round(2)
		if each.Mul(decimal.NewFromInt(int64(n - 1))).GreaterThan(amount) {
			// Rounding up n-1 times would overshoot tiny amounts and leave a
			// negative last installment.
			each = amount.Div(count).RoundFloor(2)
		}
		for i := 0; i < n-1; i++ {
			parts[i] = each
		}
		parts[n-1] = amount.Sub(each.Mul(decimal.NewFromInt(int64(n - 1))))

	default:
		return nil, fmt.Errorf("unknown rounding policy %q", policy)
	}

	return parts, nil
}

// Drift is total minus the sum of parts: what a schedule failed to bill.
func Drift(total decimal.Decimal, parts []decimal.Decimal) decimal.Decimal {
	sum := decimal.Zero
	for _, p := range parts {
		sum = sum.Add(p)
	}
	return total.Sub(sum)
}
