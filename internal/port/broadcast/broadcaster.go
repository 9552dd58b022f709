// Package broadcast defines the port for broadcasting real-time events to connected clients.
package broadcast

import (
	"context"

	"github.com/Strob0t/rentledger/internal/domain/ledger"
)

// EventLedgerUpdated carries a tenant's freshly computed ledger.
const EventLedgerUpdated = "ledger.updated"

// LedgerUpdatedEvent is the payload of EventLedgerUpdated.
type LedgerUpdatedEvent struct {
	TenantID string        `json:"tenant_id"`
	Deleted  bool          `json:"deleted,omitempty"`
	Ledger   ledger.Ledger `json:"ledger"`
}

// Broadcaster sends real-time events to connected clients.
type Broadcaster interface {
	// BroadcastEvent sends a typed event to every client of the workspace in ctx.
	BroadcastEvent(ctx context.Context, eventType string, payload any)
}

// Discard drops every event.
type Discard struct{}

func (Discard) BroadcastEvent(context.Context, string, any) {}
