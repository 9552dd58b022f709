// Package analytics aggregates portfolio figures from tenants, their
// ledgers, properties and payments.
package analytics

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/Strob0t/rentledger/internal/domain"
	"github.com/Strob0t/rentledger/internal/domain/ledger"
	"github.com/Strob0t/rentledger/internal/domain/payment"
	"github.com/Strob0t/rentledger/internal/domain/property"
	"github.com/Strob0t/rentledger/internal/domain/tenant"
)

const (
	DefaultCollectionMonths = 6
	MaxCollectionMonths     = 36
)

// MethodTotal is the amount collected through one payment method.
type MethodTotal struct {
	Method   payment.Method  `json:"method"`
	Total    decimal.Decimal `json:"total"`
	Payments int             `json:"payments"`
}

// Summary is a snapshot of the whole portfolio.
type Summary struct {
	AsOf                   time.Time                  `json:"as_of"`
	Properties             int                        `json:"properties"`
	TotalUnits             int                        `json:"total_units"`
	OccupiedUnits          int                        `json:"occupied_units"`
	OccupancyRate          decimal.Decimal            `json:"occupancy_rate"`
	Tenants                int                        `json:"tenants"`
	TenantsByLeaseStatus   map[tenant.LeaseStatus]int `json:"tenants_by_lease_status"`
	TenantsByPaymentStatus map[ledger.Status]int      `json:"tenants_by_payment_status"`
	ExpectedMonthlyRent    decimal.Decimal            `json:"expected_monthly_rent"`
	TotalCollected         decimal.Decimal            `json:"total_collected"`
	TotalOutstanding       decimal.Decimal            `json:"total_outstanding"`
	TotalCredit            decimal.Decimal            `json:"total_credit"`
	CollectionRate         decimal.Decimal            `json:"collection_rate"`
	ByMethod               []MethodTotal              `json:"by_method"`
}

// MonthlyCollection is the money received in one calendar month.
type MonthlyCollection struct {
	Month     string          `json:"month"` // YYYY-MM
	Collected decimal.Decimal `json:"collected"`
	Payments  int             `json:"payments"`
}

// Summarize builds the portfolio summary. Rates are fractions in [0, 1]
// rounded to four places.
func Summarize(views []tenant.View, properties []property.Property, payments []payment.Payment, asOf time.Time) Summary {
	s := Summary{
		AsOf:                   asOf,
		Properties:             len(properties),
		Tenants:                len(views),
		TenantsByLeaseStatus:   map[tenant.LeaseStatus]int{tenant.LeasePending: 0, tenant.LeaseActive: 0, tenant.LeaseInactive: 0},
		TenantsByPaymentStatus: map[ledger.Status]int{ledger.StatusCurrent: 0, ledger.StatusDue: 0, ledger.StatusOverdue: 0},
		ExpectedMonthlyRent:    decimal.Zero,
		TotalCollected:         decimal.Zero,
		TotalOutstanding:       decimal.Zero,
		TotalCredit:            decimal.Zero,
		OccupancyRate:          decimal.Zero,
		CollectionRate:         decimal.Zero,
	}
	for i := range properties {
		s.TotalUnits += properties[i].Units
	}

	for i := range views {
		v := &views[i]
		s.TenantsByLeaseStatus[v.LeaseStatus]++
		s.TenantsByPaymentStatus[v.Ledger.Status]++
		s.TotalOutstanding = s.TotalOutstanding.Add(v.Ledger.Balance)
		s.TotalCredit = s.TotalCredit.Add(v.Ledger.Credit)
		if v.LeaseStatus == tenant.LeaseActive {
			s.OccupiedUnits++
			s.ExpectedMonthlyRent = s.ExpectedMonthlyRent.Add(v.MonthlyRent)
		}
	}
	if s.TotalUnits > 0 {
		occupied := min(s.OccupiedUnits, s.TotalUnits)
		s.OccupancyRate = decimal.NewFromInt(int64(occupied)).
			Div(decimal.NewFromInt(int64(s.TotalUnits))).Round(4)
	}

	byMethod := make(map[payment.Method]*MethodTotal, len(payment.Methods))
	for _, m := range payment.Methods {
		s.ByMethod = append(s.ByMethod, MethodTotal{Method: m, Total: decimal.Zero})
	}
	for i := range s.ByMethod {
		byMethod[s.ByMethod[i].Method] = &s.ByMethod[i]
	}
	for i := range payments {
		p := &payments[i]
		s.TotalCollected = s.TotalCollected.Add(p.Amount)
		if mt, ok := byMethod[p.Method]; ok {
			mt.Total = mt.Total.Add(p.Amount)
			mt.Payments++
		}
	}

	if denom := s.TotalCollected.Add(s.TotalOutstanding); denom.IsPositive() {
		s.CollectionRate = s.TotalCollected.Div(denom).Round(4)
	}
	return s
}

// NormalizeMonths applies the default window and rejects out-of-range values.
func NormalizeMonths(n int) (int, error) {
	switch {
	case n == 0:
		return DefaultCollectionMonths, nil
	case n < 0 || n > MaxCollectionMonths:
		return 0, domain.Validationf("months must be between 1 and %d", MaxCollectionMonths)
	}
	return n, nil
}

// Collections returns collected totals for the months calendar months ending
// with the month containing now, oldest first. Months without payments are
// reported as zero.
func Collections(payments []payment.Payment, now time.Time, months int) []MonthlyCollection {
	if months < 1 {
		return nil
	}
	now = now.UTC()
	first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, -(months - 1), 0)

	out := make([]MonthlyCollection, months)
	index := make(map[string]int, months)
	for i := range out {
		key := first.AddDate(0, i, 0).Format("2006-01")
		out[i] = MonthlyCollection{Month: key, Collected: decimal.Zero}
		index[key] = i
	}
	for i := range payments {
		key := payments[i].PaymentDate.UTC().Format("2006-01")
		if j, ok := index[key]; ok {
			out[j].Collected = out[j].Collected.Add(payments[i].Amount)
			out[j].Payments++
		}
	}
	return out
}
