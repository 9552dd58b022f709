package http

import (
	"net/http"
	"strings"

	"github.com/Strob0t/rentledger/internal/domain"
	"github.com/Strob0t/rentledger/internal/domain/payment"
)

const paymentNotFound = "payment not found"

// ListPayments handles GET /api/v1/payments
// Query: tenant_id, method, from, to (dates inclusive).
func (h *Handlers) ListPayments(w http.ResponseWriter, r *http.Request) {
	filter, err := paymentFilterFromQuery(r)
	if err != nil {
		writeDomainError(w, r, err, paymentNotFound)
		return
	}
	items, err := h.Payments.List(r.Context(), filter)
	if err != nil {
		writeDomainError(w, r, err, paymentNotFound)
		return
	}
	if items == nil {
		items = []payment.Payment{}
	}
	writeJSON(w, http.StatusOK, items)
}

func paymentFilterFromQuery(r *http.Request) (payment.ListFilter, error) {
	q := r.URL.Query()
	f := payment.ListFilter{TenantID: strings.TrimSpace(q.Get("tenant_id"))}

	if raw := strings.TrimSpace(q.Get("method")); raw != "" {
		m, err := payment.ParseMethod(raw)
		if err != nil {
			return f, err
		}
		f.Method = m
	}
	var err error
	if f.From, err = queryDate(r, "from"); err != nil {
		return f, err
	}
	if f.To, err = queryDate(r, "to"); err != nil {
		return f, err
	}
	if f.From != nil && f.To != nil && f.To.Before(*f.From) {
		return f, domain.Validationf("to must not be before from")
	}
	return f, nil
}

// CreatePayment handles POST /api/v1/payments
// Responds with the payment and the tenant's recomputed ledger.
func (h *Handlers) CreatePayment(w http.ResponseWriter, r *http.Request) {
	handleCreate(h.Payments.Record)(w, r)
}

// GetPayment handles GET /api/v1/payments/{id}
func (h *Handlers) GetPayment(w http.ResponseWriter, r *http.Request) {
	handleGet(h.Payments.Get, paymentNotFound)(w, r)
}

// UpdatePayment handles PUT /api/v1/payments/{id}
func (h *Handlers) UpdatePayment(w http.ResponseWriter, r *http.Request) {
	handleUpdate[payment.UpdateRequest](h.Payments.Update, paymentNotFound)(w, r)
}

// DeletePayment handles DELETE /api/v1/payments/{id}
func (h *Handlers) DeletePayment(w http.ResponseWriter, r *http.Request) {
	handleDelete(h.Payments.Delete, paymentNotFound)(w, r)
}
