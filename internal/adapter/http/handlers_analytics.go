package http

import (
	"net/http"

	"github.com/Strob0t/rentledger/internal/domain/analytics"
)

// GetSummary handles GET /api/v1/analytics/summary
func (h *Handlers) GetSummary(w http.ResponseWriter, r *http.Request) {
	sum, err := h.Analytics.Summary(r.Context())
	if err != nil {
		writeInternalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

// GetCollections handles GET /api/v1/analytics/collections?months=N
func (h *Handlers) GetCollections(w http.ResponseWriter, r *http.Request) {
	months, err := queryInt(r, "months", 0)
	if err != nil {
		writeDomainError(w, r, err, "not found")
		return
	}
	items, err := h.Analytics.Collections(r.Context(), months)
	if err != nil {
		writeDomainError(w, r, err, "not found")
		return
	}
	if items == nil {
		items = []analytics.MonthlyCollection{}
	}
	writeJSON(w, http.StatusOK, items)
}
