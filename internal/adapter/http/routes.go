package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/Strob0t/rentledger/internal/middleware"
)

// RouterConfig wires the optional pieces around the API routes. Nil
// middleware and handlers are skipped.
type RouterConfig struct {
	CORSOrigin     string
	RequestTimeout time.Duration

	// Tracing wraps every request, typically otelhttp.
	Tracing func(http.Handler) http.Handler
	// RateLimit and Auth guard everything except the health endpoints.
	RateLimit func(http.Handler) http.Handler
	Auth      func(http.Handler) http.Handler
	// Idempotency applies to /api/v1 only.
	Idempotency func(http.Handler) http.Handler

	WebSocket http.HandlerFunc
	MCPPath   string
	MCP       http.Handler
}

// NewRouter builds the full HTTP handler: the shared middleware chain,
// health endpoints, the websocket and MCP endpoints and the /api/v1 routes.
func NewRouter(h *Handlers, cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(CORS(cfg.CORSOrigin))
	r.Use(SecurityHeaders)
	r.Use(middleware.WorkspaceID)
	r.Use(Logger)
	r.Use(optional(cfg.Tracing))

	r.Get("/health", h.Health)
	r.Get("/health/ready", h.Ready)

	r.Group(func(r chi.Router) {
		r.Use(optional(cfg.RateLimit))
		r.Use(optional(cfg.Auth))

		if cfg.WebSocket != nil {
			r.Get("/ws", cfg.WebSocket)
		}
		if cfg.MCP != nil && cfg.MCPPath != "" {
			r.Handle(cfg.MCPPath, cfg.MCP)
		}

		r.Route("/api/v1", func(r chi.Router) {
			if cfg.RequestTimeout > 0 {
				r.Use(chimw.Timeout(cfg.RequestTimeout))
			}
			r.Use(optional(cfg.Idempotency))
			MountRoutes(r, h)
		})
	})

	return r
}

// MountRoutes registers the /api/v1 routes on r.
func MountRoutes(r chi.Router, h *Handlers) {
	// Version
	r.Get("/", h.GetVersion)

	// Properties
	r.Get("/properties", h.ListProperties)
	r.Post("/properties", h.CreateProperty)
	r.Get("/properties/{id}", h.GetProperty)
	r.Put("/properties/{id}", h.UpdateProperty)
	r.Delete("/properties/{id}", h.DeleteProperty)
	r.Get("/properties/{id}/tenants", h.ListPropertyTenants)

	// Tenants
	r.Get("/tenants", h.ListTenants)
	r.Post("/tenants", h.CreateTenant)
	r.Get("/tenants/{id}", h.GetTenant)
	r.Put("/tenants/{id}", h.UpdateTenant)
	r.Delete("/tenants/{id}", h.DeleteTenant)
	r.Get("/tenants/{id}/ledger", h.GetTenantLedger)

	// Payments (nested under tenants)
	r.Get("/tenants/{id}/payments", h.ListTenantPayments)
	r.Post("/tenants/{id}/payments", h.CreateTenantPayment)

	// Payments (direct access)
	r.Get("/payments", h.ListPayments)
	r.Post("/payments", h.CreatePayment)
	r.Get("/payments/{id}", h.GetPayment)
	r.Put("/payments/{id}", h.UpdatePayment)
	r.Delete("/payments/{id}", h.DeletePayment)

	// Analytics
	r.Get("/analytics/summary", h.GetSummary)
	r.Get("/analytics/collections", h.GetCollections)
}

func optional(mw func(http.Handler) http.Handler) func(http.Handler) http.Handler {
	if mw == nil {
		return func(next http.Handler) http.Handler { return next }
	}
	return mw
}
