package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Strob0t/rentledger/internal/domain/property"
	"github.com/Strob0t/rentledger/internal/domain/tenant"
	"github.com/Strob0t/rentledger/internal/service"
)

const propertyNotFound = "property not found"

// ListProperties handles GET /api/v1/properties
func (h *Handlers) ListProperties(w http.ResponseWriter, r *http.Request) {
	handleList(h.Properties.List)(w, r)
}

// CreateProperty handles POST /api/v1/properties
func (h *Handlers) CreateProperty(w http.ResponseWriter, r *http.Request) {
	handleCreate(h.Properties.Create)(w, r)
}

// GetProperty handles GET /api/v1/properties/{id}
func (h *Handlers) GetProperty(w http.ResponseWriter, r *http.Request) {
	handleGet(h.Properties.Get, propertyNotFound)(w, r)
}

// UpdateProperty handles PUT /api/v1/properties/{id}
func (h *Handlers) UpdateProperty(w http.ResponseWriter, r *http.Request) {
	handleUpdate[property.UpdateRequest](h.Properties.Update, propertyNotFound)(w, r)
}

// DeleteProperty handles DELETE /api/v1/properties/{id}
// Returns 409 while tenants still reference the property.
func (h *Handlers) DeleteProperty(w http.ResponseWriter, r *http.Request) {
	handleDelete(h.Properties.Delete, propertyNotFound)(w, r)
}

// ListPropertyTenants handles GET /api/v1/properties/{id}/tenants
func (h *Handlers) ListPropertyTenants(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := h.Properties.Get(r.Context(), id); err != nil {
		writeDomainError(w, r, err, propertyNotFound)
		return
	}
	views, err := h.Tenants.List(r.Context(), service.TenantListFilter{
		ListFilter: tenant.ListFilter{PropertyID: id},
	})
	if err != nil {
		writeInternalError(w, r, err)
		return
	}
	if views == nil {
		views = []tenant.View{}
	}
	writeJSON(w, http.StatusOK, views)
}
