// Package messagequeue defines the message queue port (interface).
package messagequeue

import "context"

// Handler processes a message received from the queue.
// The context carries request-scoped values such as the request ID.
type Handler func(ctx context.Context, subject string, data []byte) error

// Queue is the port interface for publishing and subscribing to messages.
type Queue interface {
	// Publish sends a message to the given subject.
	Publish(ctx context.Context, subject string, data []byte) error

	// Subscribe registers a handler for messages on the given subject.
	// The returned function cancels the subscription.
	Subscribe(ctx context.Context, subject string, handler Handler) (cancel func(), err error)

	// Drain gracefully drains all subscriptions before closing.
	// Pending messages are processed; no new messages are accepted.
	Drain() error

	// Close shuts down the queue connection immediately.
	Close() error

	// IsConnected reports whether the queue is currently connected.
	IsConnected() bool
}

// Subjects published by the service.
const (
	SubjectPaymentRecorded   = "payments.recorded"
	SubjectPaymentUpdated    = "payments.updated"
	SubjectPaymentDeleted    = "payments.deleted"
	SubjectTenantChanged     = "tenants.changed"
	SubjectLedgerInvalidated = "ledger.invalidated" // cross-replica cache eviction
)

// Discard is a Queue that accepts and drops every message. It stands in
// when messaging is disabled.
type Discard struct{}

var _ Queue = Discard{}

func (Discard) Publish(context.Context, string, []byte) error { return nil }

func (Discard) Subscribe(context.Context, string, Handler) (func(), error) {
	return func() {}, nil
}

func (Discard) Drain() error      { return nil }
func (Discard) Close() error      { return nil }
func (Discard) IsConnected() bool { return false }
