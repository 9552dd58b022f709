// Package ledger derives a tenant's outstanding balance and payment status
// from lease terms and payment history. Everything here is a pure function
// of its inputs; nothing is cached or stored.
package ledger

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Strob0t/rentledger/internal/domain"
)

// MonthMode selects how elapsed lease months are counted.
type MonthMode string

const (
	// MonthsFixed30 counts every full 30-day period as one month.
	MonthsFixed30 MonthMode = "fixed30"
	// MonthsCalendar counts a month each time the lease day-of-month is
	// reached. Leases starting on the 29th-31st roll on the last day of
	// shorter months.
	MonthsCalendar MonthMode = "calendar"
)

// ParseMonthMode converts a configuration string to a MonthMode.
// An empty string selects MonthsFixed30.
func ParseMonthMode(s string) (MonthMode, error) {
	switch MonthMode(s) {
	case "", MonthsFixed30:
		return MonthsFixed30, nil
	case MonthsCalendar:
		return MonthsCalendar, nil
	}
	return "", fmt.Errorf("unknown month mode %q: must be fixed30 or calendar", s)
}

// Status is the payment standing derived from a balance.
type Status string

const (
	StatusCurrent Status = "current"
	StatusDue     Status = "due"
	StatusOverdue Status = "overdue"
)

// ParseStatus validates a status filter value.
func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusCurrent, StatusDue, StatusOverdue:
		return Status(s), nil
	}
	return "", domain.Validationf("payment_status must be one of: current, due, overdue")
}

// Terms are the lease facts the calculator needs.
type Terms struct {
	TenantID    string
	MonthlyRent decimal.Decimal
	LeaseStart  time.Time
	LeaseEnd    *time.Time
}

// Entry is one payment as seen by the calculator.
type Entry struct {
	TenantID string
	Amount   decimal.Decimal
	Date     time.Time
}

// Options tune the calculation.
type Options struct {
	Mode MonthMode
	// StopAtLeaseEnd stops rent from accruing after the lease end date.
	StopAtLeaseEnd bool
}

// Ledger is the derived account view of one tenant.
type Ledger struct {
	TenantID      string          `json:"tenant_id"`
	AsOf          time.Time       `json:"as_of"`
	MonthlyRent   decimal.Decimal `json:"monthly_rent"`
	MonthsElapsed int             `json:"months_elapsed"`
	TotalOwed     decimal.Decimal `json:"total_owed"`
	TotalPaid     decimal.Decimal `json:"total_paid"`
	Balance       decimal.Decimal `json:"balance"`
	Credit        decimal.Decimal `json:"credit"`
	MonthsBehind  int             `json:"months_behind"`
	Status        Status          `json:"status"`
	LastPayment   *time.Time      `json:"last_payment,omitempty"`
	PaymentCount  int             `json:"payment_count"`
}

const fixedMonth = 30 * 24 * time.Hour

// MonthsElapsed returns the number of whole lease months between start and
// now. A lease that has not started yet has zero elapsed months.
func MonthsElapsed(start, now time.Time, mode MonthMode) int {
	if !now.After(start) {
		return 0
	}
	if mode == MonthsCalendar {
		return calendarMonths(start, now)
	}
	return int(now.Sub(start) / fixedMonth)
}

func calendarMonths(start, now time.Time) int {
	now = now.In(start.Location())
	months := (now.Year()-start.Year())*12 + int(now.Month()) - int(start.Month())
	if anniversary(start, now.Year(), now.Month()).After(now) {
		months--
	}
	return max(months, 0)
}

// anniversary is the point in year/month at which another lease month
// from start has elapsed.
func anniversary(start time.Time, year int, month time.Month) time.Time {
	day := min(start.Day(), daysIn(year, month))
	return time.Date(year, month, day,
		start.Hour(), start.Minute(), start.Second(), start.Nanosecond(), start.Location())
}

func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// StatusFor classifies a balance against one month's rent.
func StatusFor(balance, monthlyRent decimal.Decimal) Status {
	switch {
	case !balance.IsPositive():
		return StatusCurrent
	case balance.LessThanOrEqual(monthlyRent):
		return StatusDue
	default:
		return StatusOverdue
	}
}

// Compute derives the ledger for terms.TenantID as of now. Entries belonging
// to other tenants are ignored.
func Compute(terms Terms, entries []Entry, now time.Time, opts Options) (Ledger, error) {
	if terms.MonthlyRent.IsNegative() {
		return Ledger{}, domain.Validationf("monthly_rent must not be negative")
	}
	if terms.LeaseStart.IsZero() {
		return Ledger{}, domain.Validationf("lease_start is required")
	}

	accrueUntil := now
	if opts.StopAtLeaseEnd && terms.LeaseEnd != nil && terms.LeaseEnd.Before(now) {
		accrueUntil = *terms.LeaseEnd
	}
	months := MonthsElapsed(terms.LeaseStart, accrueUntil, opts.Mode)
	owed := terms.MonthlyRent.Mul(decimal.NewFromInt(int64(months)))

	paid := decimal.Zero
	var last *time.Time
	count := 0
	for i := range entries {
		e := &entries[i]
		if e.TenantID != terms.TenantID {
			continue
		}
		if e.Amount.IsNegative() {
			return Ledger{}, domain.Validationf("payment amount must not be negative")
		}
		paid = paid.Add(e.Amount)
		count++
		if last == nil || e.Date.After(*last) {
			d := e.Date
			last = &d
		}
	}

	diff := owed.Sub(paid)
	balance := decimal.Max(decimal.Zero, diff)

	behind := 0
	if terms.MonthlyRent.IsPositive() {
		behind = int(balance.Div(terms.MonthlyRent).Ceil().IntPart())
	}

	return Ledger{
		TenantID:      terms.TenantID,
		AsOf:          now,
		MonthlyRent:   terms.MonthlyRent,
		MonthsElapsed: months,
		TotalOwed:     owed,
		TotalPaid:     paid,
		Balance:       balance,
		Credit:        decimal.Max(decimal.Zero, diff.Neg()),
		MonthsBehind:  behind,
		Status:        StatusFor(balance, terms.MonthlyRent),
		LastPayment:   last,
		PaymentCount:  count,
	}, nil
}
