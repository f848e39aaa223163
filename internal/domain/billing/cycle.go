// Package billing maps credit-card purchases onto billing cycles and splits
// installment purchases into per-installment amounts. Everything here is pure:
// no I/O, no clock.
package billing

import (
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/civil"
)

var ErrInvalidDay = errors.New("day of month must be between 1 and 31")

// CardCycle is the billing configuration of a credit card.
type CardCycle struct {
	ClosingDay int
	DueDay     int
}

func (c CardCycle) Validate() error {
	if c.ClosingDay < 1 || c.ClosingDay > 31 {
		return fmt.Errorf("%w: closing day %d", ErrInvalidDay, c.ClosingDay)
	}
	if c.DueDay < 1 || c.DueDay > 31 {
		return fmt.Errorf("%w: due day %d", ErrInvalidDay, c.DueDay)
	}
	return nil
}

// Cycle is where one installment lands: the invoice month it is billed in
// (always the first day of that month) and the date payment is due.
type Cycle struct {
	BillingMonth civil.Date
	DueDate      civil.Date
}

// Calculate returns the cycle of the offset-th installment after the first of
// a purchase made on purchaseDate.
//
// A purchase on or after the closing day misses the cutoff and bills into the
// next month. The due date is in the billing month when the due day is on or
// after the closing day, and in the following month otherwise. Days past the
// end of a short month clamp to its last day.
func Calculate(purchaseDate civil.Date, card CardCycle, offset int) (Cycle, error) {
	if err := card.Validate(); err != nil {
		return Cycle{}, err
	}
	if offset < 0 {
		return Cycle{}, fmt.Errorf("installment offset must not be negative, got %d", offset)
	}

	base := FirstOfMonth(purchaseDate)
	if purchaseDate.Day >= card.ClosingDay {
		base = AddMonths(base, 1)
	}
	billingMonth := AddMonths(base, offset)

	dueMonth := billingMonth
	if card.DueDay < card.ClosingDay {
		dueMonth = AddMonths(billingMonth, 1)
	}

	return Cycle{
		BillingMonth: billingMonth,
		DueDate:      DayInMonth(dueMonth, card.DueDay),
	}, nil
}

// ClosingDate is the day the invoice for billingMonth stops accepting purchases.
func ClosingDate(billingMonth civil.Date, card CardCycle) civil.Date {
	return DayInMonth(billingMonth, card.ClosingDay)
}

// DueDate is the payment deadline of the invoice for billingMonth.
func DueDate(billingMonth civil.Date, card CardCycle) civil.Date {
	dueMonth := FirstOfMonth(billingMonth)
	if card.DueDay < card.ClosingDay {
		dueMonth = AddMonths(dueMonth, 1)
	}
	return DayInMonth(dueMonth, card.DueDay)
}

// FirstOfMonth returns the first day of d's month.
func FirstOfMonth(d civil.Date) civil.Date {
	return civil.Date{Year: d.Year, Month: d.Month, Day: 1}
}

// AddMonths moves the first-of-month of d by n calendar months.
func AddMonths(d civil.Date, n int) civil.Date {
	t := time.Date(d.Year, d.Month+time.Month(n), 1, 0, 0, 0, 0, time.UTC)
	return civil.DateOf(t)
}

// DayInMonth returns day of the month containing d, clamped to the month's
// last day.
func DayInMonth(d civil.Date, day int) civil.Date {
	if last := DaysInMonth(d.Year, d.Month); day > last {
		day = last
	}
	return civil.Date{Year: d.Year, Month: d.Month, Day: day}
}

// DaysInMonth reports the number of days in the given month.
func DaysInMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
