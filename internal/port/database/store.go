// Package database defines the database store port (interface).
package database

import (
	"context"

	"github.com/Strob0t/rentledger/internal/domain/payment"
	"github.com/Strob0t/rentledger/internal/domain/property"
	"github.com/Strob0t/rentledger/internal/domain/tenant"
)

// All methods are scoped to the workspace carried in ctx
// (see middleware.WorkspaceIDFromContext). Records belonging to another
// workspace behave as if they do not exist.

// PropertyStore persists properties.
type PropertyStore interface {
	ListProperties(ctx context.Context) ([]property.Property, error)
	GetProperty(ctx context.Context, id string) (*property.Property, error)
	CreateProperty(ctx context.Context, p *property.Property) (*property.Property, error)
	UpdateProperty(ctx context.Context, p *property.Property) (*property.Property, error)
	// DeleteProperty returns domain.ErrConflict while tenants still reference it.
	DeleteProperty(ctx context.Context, id string) error
}

// TenantStore persists tenants.
type TenantStore interface {
	ListTenants(ctx context.Context, filter tenant.ListFilter) ([]tenant.Tenant, error)
	GetTenant(ctx context.Context, id string) (*tenant.Tenant, error)
	CreateTenant(ctx context.Context, t *tenant.Tenant) (*tenant.Tenant, error)
	UpdateTenant(ctx context.Context, t *tenant.Tenant) (*tenant.Tenant, error)
	// DeleteTenant also removes the tenant's payments.
	DeleteTenant(ctx context.Context, id string) error
}

// PaymentStore persists payments. Listings are ordered newest payment date first.
type PaymentStore interface {
	ListPayments(ctx context.Context, filter payment.ListFilter) ([]payment.Payment, error)
	ListPaymentsByTenant(ctx context.Context, tenantID string) ([]payment.Payment, error)
	GetPayment(ctx context.Context, id string) (*payment.Payment, error)
	// CreatePayment returns domain.ErrValidation when the tenant does not exist.
	CreatePayment(ctx context.Context, p *payment.Payment) (*payment.Payment, error)
	UpdatePayment(ctx context.Context, p *payment.Payment) (*payment.Payment, error)
	DeletePayment(ctx context.Context, id string) error
}

// Store is the port interface for database operations.
type Store interface {
	PropertyStore
	TenantStore
	PaymentStore

	Ping(ctx context.Context) error
}
