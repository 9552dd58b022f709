// Package payment defines rent payment records.
package payment

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Strob0t/rentledger/internal/domain"
	"github.com/Strob0t/rentledger/internal/domain/ledger"
)

// Method is how a payment was made.
type Method string

const (
	MethodCash         Method = "cash"
	MethodBankTransfer Method = "bank_transfer"
	MethodMobileMoney  Method = "mobile_money"
	MethodCheck        Method = "check"
	MethodOnline       Method = "online"
)

// Methods lists every accepted payment method in display order.
var Methods = []Method{MethodCash, MethodBankTransfer, MethodMobileMoney, MethodCheck, MethodOnline}

// ParseMethod validates s as a payment method.
func ParseMethod(s string) (Method, error) {
	for _, m := range Methods {
		if string(m) == s {
			return m, nil
		}
	}
	return "", domain.Validationf("method must be one of: cash, bank_transfer, mobile_money, check, online")
}

// Payment is one recorded transfer from a tenant to the landlord.
type Payment struct {
	ID          string          `json:"id"`
	WorkspaceID string          `json:"workspace_id"`
	TenantID    string          `json:"tenant_id"`
	Amount      decimal.Decimal `json:"amount"`
	PaymentDate time.Time       `json:"payment_date"`
	Method      Method          `json:"method"`
	Reference   string          `json:"reference,omitempty"`
	Notes       string          `json:"notes,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// Entry returns the payment as a ledger entry.
func (p *Payment) Entry() ledger.Entry {
	return ledger.Entry{TenantID: p.TenantID, Amount: p.Amount, Date: p.PaymentDate}
}

// Entries converts payments to ledger entries.
func Entries(payments []Payment) []ledger.Entry {
	out := make([]ledger.Entry, len(payments))
	for i := range payments {
		out[i] = payments[i].Entry()
	}
	return out
}

// Recorded is the result of recording a payment: the stored payment and the
// tenant's ledger recomputed after the write.
type Recorded struct {
	Payment Payment       `json:"payment"`
	Ledger  ledger.Ledger `json:"ledger"`
}

// CreateRequest holds the fields of a new payment.
type CreateRequest struct {
	TenantID    string          `json:"tenant_id" validate:"required,max=64"`
	Amount      decimal.Decimal `json:"amount"`
	PaymentDate string          `json:"payment_date"`
	Method      string          `json:"method" validate:"required"`
	Reference   string          `json:"reference,omitempty" validate:"max=120"`
	Notes       string          `json:"notes,omitempty" validate:"max=2000"`
}

// UpdateRequest replaces every editable field of a payment.
type UpdateRequest = CreateRequest

// Normalize validates the request and returns the payment it describes.
func (r *CreateRequest) Normalize() (*Payment, error) {
	r.TenantID = strings.TrimSpace(r.TenantID)
	if err := domain.ValidateStruct(r); err != nil {
		return nil, err
	}
	if !r.Amount.IsPositive() {
		return nil, domain.Validationf("amount must be greater than zero")
	}
	if err := domain.CheckAmount("amount", r.Amount); err != nil {
		return nil, err
	}
	date, err := domain.ParseDate("payment_date", r.PaymentDate)
	if err != nil {
		return nil, err
	}
	method, err := ParseMethod(r.Method)
	if err != nil {
		return nil, err
	}
	return &Payment{
		TenantID:    r.TenantID,
		Amount:      r.Amount,
		PaymentDate: date,
		Method:      method,
		Reference:   strings.TrimSpace(r.Reference),
		Notes:       r.Notes,
	}, nil
}

// ListFilter narrows a payment listing. Zero values match everything.
type ListFilter struct {
	TenantID string
	Method   Method
	From     *time.Time // inclusive
	To       *time.Time // inclusive
}

// Matches reports whether p passes the filter.
func (f *ListFilter) Matches(p *Payment) bool {
	if f.TenantID != "" && p.TenantID != f.TenantID {
		return false
	}
	if f.Method != "" && p.Method != f.Method {
		return false
	}
	if f.From != nil && p.PaymentDate.Before(*f.From) {
		return false
	}
	if f.To != nil && p.PaymentDate.After(*f.To) {
		return false
	}
	return true
}
