package ledger

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Strob0t/rentledger/internal/domain"
)

var now = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func dec(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

// threeMonthLease starts exactly three 30-day months before now.
func threeMonthLease() Terms {
	return Terms{
		TenantID:    "t1",
		MonthlyRent: dec(25000),
		LeaseStart:  now.Add(-3 * fixedMonth),
	}
}

func pay(tenantID string, amount int64, daysAgo int) Entry {
	return Entry{TenantID: tenantID, Amount: dec(amount), Date: now.AddDate(0, 0, -daysAgo)}
}

func mustCompute(t *testing.T, terms Terms, entries []Entry, opts Options) Ledger {
	t.Helper()
	l, err := Compute(terms, entries, now, opts)
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	return l
}

func TestCompute_NoPayments(t *testing.T) {
	l := mustCompute(t, threeMonthLease(), nil, Options{})

	if l.MonthsElapsed != 3 {
		t.Fatalf("expected 3 months, got %d", l.MonthsElapsed)
	}
	if !l.TotalOwed.Equal(dec(75000)) {
		t.Errorf("expected owed 75000, got %s", l.TotalOwed)
	}
	if !l.Balance.Equal(dec(75000)) {
		t.Errorf("expected balance 75000, got %s", l.Balance)
	}
	if l.Status != StatusOverdue {
		t.Errorf("expected overdue, got %s", l.Status)
	}
	if l.MonthsBehind != 3 {
		t.Errorf("expected 3 months behind, got %d", l.MonthsBehind)
	}
	if l.LastPayment != nil {
		t.Errorf("expected no last payment, got %v", l.LastPayment)
	}
}

func TestCompute_OnePayment(t *testing.T) {
	l := mustCompute(t, threeMonthLease(), []Entry{pay("t1", 25000, 10)}, Options{})

	if !l.Balance.Equal(dec(50000)) {
		t.Fatalf("expected balance 50000, got %s", l.Balance)
	}
	if l.Status != StatusOverdue {
		t.Fatalf("expected overdue, got %s", l.Status)
	}
	if l.PaymentCount != 1 {
		t.Fatalf("expected 1 payment, got %d", l.PaymentCount)
	}
}

func TestCompute_FullyPaid(t *testing.T) {
	entries := []Entry{pay("t1", 25000, 60), pay("t1", 50000, 5)}
	l := mustCompute(t, threeMonthLease(), entries, Options{})

	if !l.Balance.IsZero() {
		t.Fatalf("expected zero balance, got %s", l.Balance)
	}
	if l.Status != StatusCurrent {
		t.Fatalf("expected current, got %s", l.Status)
	}
	if l.LastPayment == nil || !l.LastPayment.Equal(now.AddDate(0, 0, -5)) {
		t.Fatalf("expected last payment 5 days ago, got %v", l.LastPayment)
	}
}

func TestCompute_Due(t *testing.T) {
	l := mustCompute(t, threeMonthLease(), []Entry{pay("t1", 50000, 1)}, Options{})
	if l.Status != StatusDue {
		t.Fatalf("expected due, got %s", l.Status)
	}
	if l.MonthsBehind != 1 {
		t.Fatalf("expected 1 month behind, got %d", l.MonthsBehind)
	}
}

func TestCompute_OverpaymentReportsCredit(t *testing.T) {
	l := mustCompute(t, threeMonthLease(), []Entry{pay("t1", 80000, 1)}, Options{})
	if !l.Balance.IsZero() {
		t.Fatalf("expected zero balance, got %s", l.Balance)
	}
	if !l.Credit.Equal(dec(5000)) {
		t.Fatalf("expected credit 5000, got %s", l.Credit)
	}
	if l.Status != StatusCurrent {
		t.Fatalf("expected current, got %s", l.Status)
	}
}

func TestCompute_IgnoresOtherTenants(t *testing.T) {
	entries := []Entry{pay("t2", 75000, 1), pay("t1", 25000, 1)}
	l := mustCompute(t, threeMonthLease(), entries, Options{})
	if !l.TotalPaid.Equal(dec(25000)) {
		t.Fatalf("expected paid 25000, got %s", l.TotalPaid)
	}
}

func TestCompute_FutureLease(t *testing.T) {
	terms := threeMonthLease()
	terms.LeaseStart = now.AddDate(0, 2, 0)
	l := mustCompute(t, terms, nil, Options{})
	if l.MonthsElapsed != 0 || !l.TotalOwed.IsZero() || l.Status != StatusCurrent {
		t.Fatalf("expected nothing owed for future lease, got %+v", l)
	}
}

func TestCompute_Idempotent(t *testing.T) {
	entries := []Entry{pay("t1", 10000, 3), pay("t1", 5000, 2)}
	a := mustCompute(t, threeMonthLease(), entries, Options{})
	b := mustCompute(t, threeMonthLease(), entries, Options{})
	if !a.Balance.Equal(b.Balance) || a.Status != b.Status || a.PaymentCount != b.PaymentCount {
		t.Fatalf("expected identical results, got %+v and %+v", a, b)
	}
}

func TestCompute_StopAtLeaseEnd(t *testing.T) {
	terms := threeMonthLease()
	end := terms.LeaseStart.Add(fixedMonth)
	terms.LeaseEnd = &end

	open := mustCompute(t, terms, nil, Options{})
	if open.MonthsElapsed != 3 {
		t.Fatalf("expected accrual past lease end by default, got %d", open.MonthsElapsed)
	}

	stopped := mustCompute(t, terms, nil, Options{StopAtLeaseEnd: true})
	if stopped.MonthsElapsed != 1 {
		t.Fatalf("expected 1 month with StopAtLeaseEnd, got %d", stopped.MonthsElapsed)
	}
	if !stopped.Balance.Equal(dec(25000)) {
		t.Fatalf("expected balance 25000, got %s", stopped.Balance)
	}
}

func TestCompute_Rejects(t *testing.T) {
	tests := []struct {
		name    string
		terms   Terms
		entries []Entry
	}{
		{"negative rent", Terms{TenantID: "t1", MonthlyRent: dec(-1), LeaseStart: now}, nil},
		{"zero lease start", Terms{TenantID: "t1", MonthlyRent: dec(100)}, nil},
		{"negative payment", threeMonthLease(), []Entry{pay("t1", -5, 1)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Compute(tt.terms, tt.entries, now, Options{})
			if !errors.Is(err, domain.ErrValidation) {
				t.Fatalf("expected ErrValidation, got %v", err)
			}
		})
	}
}

func TestMonthsElapsed_Fixed30(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		now  time.Time
		want int
	}{
		{start, 0},
		{start.AddDate(0, 0, 29), 0},
		{start.AddDate(0, 0, 30), 1},
		// Jan 1 to Mar 1 is 60 days in a leap year.
		{time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), 2},
		// Calendar year is 366 days: 12 full 30-day periods.
		{time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), 12},
		{start.AddDate(0, 0, -10), 0},
	}
	for _, tt := range tests {
		if got := MonthsElapsed(start, tt.now, MonthsFixed30); got != tt.want {
			t.Errorf("MonthsElapsed(%s) = %d, want %d", tt.now.Format(domain.DateLayout), got, tt.want)
		}
	}
}

func TestMonthsElapsed_Calendar(t *testing.T) {
	tests := []struct {
		start, now string
		want       int
	}{
		{"2024-01-15", "2024-02-14", 0},
		{"2024-01-15", "2024-02-15", 1},
		{"2024-01-15", "2025-01-15", 12},
		{"2024-01-31", "2024-02-28", 0},
		{"2024-01-31", "2024-02-29", 1},
		{"2023-01-31", "2023-02-28", 1},
		{"2024-01-31", "2024-03-30", 1},
		{"2024-01-31", "2024-03-31", 2},
		{"2024-05-01", "2024-04-01", 0},
	}
	for _, tt := range tests {
		start, _ := time.Parse(domain.DateLayout, tt.start)
		at, _ := time.Parse(domain.DateLayout, tt.now)
		if got := MonthsElapsed(start, at, MonthsCalendar); got != tt.want {
			t.Errorf("MonthsElapsed(%s, %s) = %d, want %d", tt.start, tt.now, got, tt.want)
		}
	}
}

func TestStatusFor(t *testing.T) {
	rent := dec(1000)
	tests := []struct {
		balance int64
		want    Status
	}{
		{0, StatusCurrent},
		{1, StatusDue},
		{1000, StatusDue},
		{1001, StatusOverdue},
	}
	for _, tt := range tests {
		if got := StatusFor(dec(tt.balance), rent); got != tt.want {
			t.Errorf("StatusFor(%d) = %s, want %s", tt.balance, got, tt.want)
		}
	}
}

func TestParseMonthMode(t *testing.T) {
	for in, want := range map[string]MonthMode{"": MonthsFixed30, "fixed30": MonthsFixed30, "calendar": MonthsCalendar} {
		got, err := ParseMonthMode(in)
		if err != nil || got != want {
			t.Errorf("ParseMonthMode(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := ParseMonthMode("lunar"); err == nil {
		t.Error("expected error for unknown mode")
	}
}
