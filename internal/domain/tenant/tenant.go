// Package tenant defines the lessee domain model.
package tenant

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Strob0t/rentledger/internal/domain"
	"github.com/Strob0t/rentledger/internal/domain/ledger"
)

// LeaseStatus is the operator-managed lifecycle state of a lease.
// Payment standing is never stored; see ledger.Status.
type LeaseStatus string

const (
	LeasePending  LeaseStatus = "pending"
	LeaseActive   LeaseStatus = "active"
	LeaseInactive LeaseStatus = "inactive"
)

// ParseLeaseStatus validates s. The empty string maps to LeaseActive.
func ParseLeaseStatus(s string) (LeaseStatus, error) {
	switch LeaseStatus(s) {
	case "":
		return LeaseActive, nil
	case LeasePending, LeaseActive, LeaseInactive:
		return LeaseStatus(s), nil
	case "late":
		return "", domain.Validationf("lease_status %q cannot be set: lateness is derived from payments", s)
	}
	return "", domain.Validationf("lease_status must be one of: pending, active, inactive")
}

// Tenant is a lessee with rent terms.
type Tenant struct {
	ID          string          `json:"id"`
	WorkspaceID string          `json:"workspace_id"`
	PropertyID  string          `json:"property_id,omitempty"`
	Name        string          `json:"name"`
	Email       string          `json:"email,omitempty"`
	Phone       string          `json:"phone,omitempty"`
	Unit        string          `json:"unit,omitempty"`
	MonthlyRent decimal.Decimal `json:"monthly_rent"`
	LeaseStart  time.Time       `json:"lease_start"`
	LeaseEnd    *time.Time      `json:"lease_end,omitempty"`
	LeaseStatus LeaseStatus     `json:"lease_status"`
	Notes       string          `json:"notes,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// Terms returns the lease terms used by the ledger calculator.
func (t *Tenant) Terms() ledger.Terms {
	return ledger.Terms{
		TenantID:    t.ID,
		MonthlyRent: t.MonthlyRent,
		LeaseStart:  t.LeaseStart,
		LeaseEnd:    t.LeaseEnd,
	}
}

// View is a tenant together with its derived ledger.
type View struct {
	Tenant
	Ledger ledger.Ledger `json:"ledger"`
}

// CreateRequest holds the fields required to create a tenant.
type CreateRequest struct {
	PropertyID  string              `json:"property_id,omitempty" validate:"max=64"`
	Name        string              `json:"name" validate:"required,max=200"`
	Email       string              `json:"email,omitempty" validate:"omitempty,email,max=254"`
	Phone       string              `json:"phone,omitempty" validate:"max=40"`
	Unit        string              `json:"unit,omitempty" validate:"max=40"`
	MonthlyRent decimal.NullDecimal `json:"monthly_rent"`
	LeaseStart  string              `json:"lease_start"`
	LeaseEnd    string              `json:"lease_end,omitempty"`
	LeaseStatus string              `json:"lease_status,omitempty"`
	Notes       string              `json:"notes,omitempty" validate:"max=2000"`
}

// UpdateRequest replaces every editable field of a tenant.
type UpdateRequest = CreateRequest

// Normalize validates the request and returns the tenant it describes.
// ID, workspace and timestamps are left for the store to assign.
func (r *CreateRequest) Normalize() (*Tenant, error) {
	r.Name = strings.TrimSpace(r.Name)
	r.Email = strings.TrimSpace(r.Email)
	if err := domain.ValidateStruct(r); err != nil {
		return nil, err
	}
	if !r.MonthlyRent.Valid {
		return nil, domain.Validationf("monthly_rent is required")
	}
	rent := r.MonthlyRent.Decimal
	if rent.IsNegative() {
		return nil, domain.Validationf("monthly_rent must not be negative")
	}
	if err := domain.CheckAmount("monthly_rent", rent); err != nil {
		return nil, err
	}
	start, err := domain.ParseDate("lease_start", r.LeaseStart)
	if err != nil {
		return nil, err
	}
	end, err := domain.ParseOptionalDate("lease_end", r.LeaseEnd)
	if err != nil {
		return nil, err
	}
	if end != nil && !end.After(start) {
		return nil, domain.Validationf("lease_end must be after lease_start")
	}
	status, err := ParseLeaseStatus(r.LeaseStatus)
	if err != nil {
		return nil, err
	}
	return &Tenant{
		PropertyID:  strings.TrimSpace(r.PropertyID),
		Name:        r.Name,
		Email:       r.Email,
		Phone:       strings.TrimSpace(r.Phone),
		Unit:        strings.TrimSpace(r.Unit),
		MonthlyRent: rent,
		LeaseStart:  start,
		LeaseEnd:    end,
		LeaseStatus: status,
		Notes:       r.Notes,
	}, nil
}

// ListFilter narrows a tenant listing. Zero values match everything.
type ListFilter struct {
	LeaseStatus LeaseStatus
	PropertyID  string
	// Query matches name, email or unit, case-insensitively.
	Query string
}

// Matches reports whether t passes the filter.
func (f *ListFilter) Matches(t *Tenant) bool {
	if f.LeaseStatus != "" && t.LeaseStatus != f.LeaseStatus {
		return false
	}
	if f.PropertyID != "" && t.PropertyID != f.PropertyID {
		return false
	}
	if f.Query != "" {
		q := strings.ToLower(f.Query)
		if !strings.Contains(strings.ToLower(t.Name), q) &&
			!strings.Contains(strings.ToLower(t.Email), q) &&
			!strings.Contains(strings.ToLower(t.Unit), q) {
			return false
		}
	}
	return true
}
