package creditcard

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestAvailableLimit(t *testing.T) {
	tests := []struct {
		name  string
		limit string
		used  string
		want  string
	}{
		{"unused", "5000.00", "0", "5000.00"},
		{"partially used", "5000.00", "1234.56", "3765.44"},
		{"over limit", "1000.00", "1200.00", "-200.00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &CreditCard{
				CreditLimit: decimal.RequireFromString(tt.limit),
				UsedLimit:   decimal.RequireFromString(tt.used),
			}
			if got := c.AvailableLimit(); !got.Equal(decimal.RequireFromString(tt.want)) {
				t.Errorf("AvailableLimit() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestCycle(t *testing.T) {
	c := &CreditCard{ClosingDay: 25, DueDay: 10}
	cycle := c.Cycle()
	if cycle.ClosingDay != 25 || cycle.DueDay != 10 {
		t.Errorf("Cycle() = %+v, want closing 25 due 10", cycle)
	}
	if err := cycle.Validate(); err != nil {
		t.Errorf("Validate() unexpected error: %v", err)
	}
}
