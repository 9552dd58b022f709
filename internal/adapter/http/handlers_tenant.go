package http

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/Strob0t/rentledger/internal/domain"
	"github.com/Strob0t/rentledger/internal/domain/ledger"
	"github.com/Strob0t/rentledger/internal/domain/payment"
	"github.com/Strob0t/rentledger/internal/domain/tenant"
	"github.com/Strob0t/rentledger/internal/service"
)

const tenantNotFound = "tenant not found"

// ListTenants handles GET /api/v1/tenants
// Query: lease_status, property_id, payment_status, q.
func (h *Handlers) ListTenants(w http.ResponseWriter, r *http.Request) {
	filter, err := tenantFilterFromQuery(r)
	if err != nil {
		writeDomainError(w, r, err, tenantNotFound)
		return
	}
	views, err := h.Tenants.List(r.Context(), filter)
	if err != nil {
		writeDomainError(w, r, err, tenantNotFound)
		return
	}
	if views == nil {
		views = []tenant.View{}
	}
	writeJSON(w, http.StatusOK, views)
}

func tenantFilterFromQuery(r *http.Request) (service.TenantListFilter, error) {
	q := r.URL.Query()
	var f service.TenantListFilter

	if raw := strings.TrimSpace(q.Get("lease_status")); raw != "" {
		status, err := tenant.ParseLeaseStatus(raw)
		if err != nil {
			return f, err
		}
		f.LeaseStatus = status
	}
	if raw := strings.TrimSpace(q.Get("payment_status")); raw != "" {
		status, err := ledger.ParseStatus(raw)
		if err != nil {
			return f, err
		}
		f.PaymentStatus = status
	}
	f.PropertyID = strings.TrimSpace(q.Get("property_id"))
	f.Query = strings.TrimSpace(q.Get("q"))
	if len(f.Query) > maxQueryLength {
		return f, domain.Validationf("q must be at most %d characters", maxQueryLength)
	}
	return f, nil
}

// CreateTenant handles POST /api/v1/tenants
func (h *Handlers) CreateTenant(w http.ResponseWriter, r *http.Request) {
	handleCreate(h.Tenants.Create)(w, r)
}

// GetTenant handles GET /api/v1/tenants/{id}
func (h *Handlers) GetTenant(w http.ResponseWriter, r *http.Request) {
	handleGet(h.Tenants.Get, tenantNotFound)(w, r)
}

// UpdateTenant handles PUT /api/v1/tenants/{id}
func (h *Handlers) UpdateTenant(w http.ResponseWriter, r *http.Request) {
	handleUpdate[tenant.UpdateRequest](h.Tenants.Update, tenantNotFound)(w, r)
}

// DeleteTenant handles DELETE /api/v1/tenants/{id}
// The tenant's payments are removed with it.
func (h *Handlers) DeleteTenant(w http.ResponseWriter, r *http.Request) {
	handleDelete(h.Tenants.Delete, tenantNotFound)(w, r)
}

// GetTenantLedger handles GET /api/v1/tenants/{id}/ledger
// An as_of date computes the ledger for that day instead of today.
func (h *Handlers) GetTenantLedger(w http.ResponseWriter, r *http.Request) {
	asOf, err := queryDate(r, "as_of")
	if err != nil {
		writeDomainError(w, r, err, tenantNotFound)
		return
	}
	l, err := h.Tenants.Ledger(r.Context(), chi.URLParam(r, "id"), asOf)
	if err != nil {
		writeDomainError(w, r, err, tenantNotFound)
		return
	}
	writeJSON(w, http.StatusOK, l)
}

// ListTenantPayments handles GET /api/v1/tenants/{id}/payments
func (h *Handlers) ListTenantPayments(w http.ResponseWriter, r *http.Request) {
	handleListByParam("id", h.Payments.ListByTenant, tenantNotFound)(w, r)
}

// CreateTenantPayment handles POST /api/v1/tenants/{id}/payments
// The tenant in the path wins over any tenant_id in the body.
func (h *Handlers) CreateTenantPayment(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[payment.CreateRequest](w, r)
	if !ok {
		return
	}
	req.TenantID = chi.URLParam(r, "id")
	rec, err := h.Payments.Record(r.Context(), req)
	if err != nil {
		writeDomainError(w, r, err, tenantNotFound)
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}
