package http

import (
	"context"
	"net/http"
	"time"

	"github.com/Strob0t/rentledger/internal/service"
)

// HealthCheck is a named readiness check.
type HealthCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

// Handlers holds the services the HTTP API dispatches to.
type Handlers struct {
	Version    string
	Properties *service.PropertyService
	Tenants    *service.TenantService
	Payments   *service.PaymentService
	Analytics  *service.AnalyticsService
	// Checks run on /health/ready. Any failure reports 503.
	Checks []HealthCheck
}

// readyTimeout bounds the whole readiness check.
const readyTimeout = 3 * time.Second

type healthStatus struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// Health reports liveness. It never touches dependencies.
func (h *Handlers) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, healthStatus{Status: "ok"})
}

// Ready runs every readiness check.
func (h *Handlers) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
	defer cancel()

	status := healthStatus{Status: "ok", Checks: make(map[string]string, len(h.Checks))}
	code := http.StatusOK
	for _, c := range h.Checks {
		if err := c.Check(ctx); err != nil {
			status.Checks[c.Name] = err.Error()
			status.Status = "unavailable"
			code = http.StatusServiceUnavailable
			continue
		}
		status.Checks[c.Name] = "ok"
	}
	writeJSON(w, code, status)
}

// GetVersion returns the build version.
func (h *Handlers) GetVersion(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"version": h.Version})
}
