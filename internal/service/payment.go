package service

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	cfotel "github.com/Strob0t/rentledger/internal/adapter/otel"
	"github.com/Strob0t/rentledger/internal/domain"
	"github.com/Strob0t/rentledger/internal/domain/ledger"
	"github.com/Strob0t/rentledger/internal/domain/payment"
	"github.com/Strob0t/rentledger/internal/middleware"
	"github.com/Strob0t/rentledger/internal/port/broadcast"
	"github.com/Strob0t/rentledger/internal/port/database"
	"github.com/Strob0t/rentledger/internal/port/messagequeue"
)

// PaymentService records payments and keeps the derived ledgers in step.
type PaymentService struct {
	store   database.Store
	ledgers *LedgerService
	events  *EventPublisher
	hub     broadcast.Broadcaster
	metrics *cfotel.Metrics
}

// NewPaymentService creates a PaymentService. hub may be nil.
func NewPaymentService(store database.Store, ledgers *LedgerService, events *EventPublisher, hub broadcast.Broadcaster) *PaymentService {
	if hub == nil {
		hub = broadcast.Discard{}
	}
	return &PaymentService{store: store, ledgers: ledgers, events: events, hub: hub}
}

// SetMetrics enables payment counters.
func (s *PaymentService) SetMetrics(m *cfotel.Metrics) {
	s.metrics = m
}

// Get returns a payment by ID.
func (s *PaymentService) Get(ctx context.Context, id string) (*payment.Payment, error) {
	return s.store.GetPayment(ctx, id)
}

// List returns the workspace's payments, newest first.
func (s *PaymentService) List(ctx context.Context, filter payment.ListFilter) ([]payment.Payment, error) {
	return s.store.ListPayments(ctx, filter)
}

// ListByTenant returns one tenant's payments, newest first.
func (s *PaymentService) ListByTenant(ctx context.Context, tenantID string) ([]payment.Payment, error) {
	if _, err := s.store.GetTenant(ctx, tenantID); err != nil {
		return nil, err
	}
	return s.store.ListPaymentsByTenant(ctx, tenantID)
}

// Record validates and stores a payment, then returns it with the tenant's
// ledger recomputed after the insert.
func (s *PaymentService) Record(ctx context.Context, req payment.CreateRequest) (*payment.Recorded, error) {
	p, err := req.Normalize()
	if err != nil {
		return nil, err
	}
	ctx, span := cfotel.StartPaymentSpan(ctx, "record", p.TenantID)
	defer span.End()

	if _, err := s.store.GetTenant(ctx, p.TenantID); err != nil {
		return nil, fmt.Errorf("record payment: %w", notFoundAsValidation(err, p.TenantID))
	}
	created, err := s.store.CreatePayment(ctx, p)
	if err != nil {
		return nil, fmt.Errorf("record payment: %w", err)
	}

	l, err := s.refresh(ctx, created.TenantID)
	if err != nil {
		return nil, err
	}

	s.publish(ctx, messagequeue.SubjectPaymentRecorded, created, "")
	if s.metrics != nil {
		attrs := metric.WithAttributes(attribute.String("method", string(created.Method)))
		s.metrics.PaymentsRecorded.Add(ctx, 1, attrs)
		s.metrics.AmountCollected.Add(ctx, created.Amount.InexactFloat64(), attrs)
	}
	slog.InfoContext(ctx, "payment recorded", "payment_id", created.ID, "tenant_id", created.TenantID, "amount", created.Amount.String())

	return &payment.Recorded{Payment: *created, Ledger: *l}, nil
}

// Update overwrites every editable field of a payment. When the payment
// moves to another tenant both ledgers are refreshed.
func (s *PaymentService) Update(ctx context.Context, id string, req payment.UpdateRequest) (*payment.Recorded, error) {
	p, err := req.Normalize()
	if err != nil {
		return nil, err
	}
	ctx, span := cfotel.StartPaymentSpan(ctx, "update", p.TenantID)
	defer span.End()

	old, err := s.store.GetPayment(ctx, id)
	if err != nil {
		return nil, err
	}
	if old.TenantID != p.TenantID {
		if _, err := s.store.GetTenant(ctx, p.TenantID); err != nil {
			return nil, fmt.Errorf("update payment %s: %w", id, notFoundAsValidation(err, p.TenantID))
		}
	}

	p.ID = id
	updated, err := s.store.UpdatePayment(ctx, p)
	if err != nil {
		return nil, fmt.Errorf("update payment %s: %w", id, err)
	}

	previous := ""
	if old.TenantID != updated.TenantID {
		previous = old.TenantID
		if _, err := s.refresh(ctx, old.TenantID); err != nil {
			slog.WarnContext(ctx, "refresh previous tenant ledger", "tenant_id", old.TenantID, "error", err)
		}
	}
	l, err := s.refresh(ctx, updated.TenantID)
	if err != nil {
		return nil, err
	}

	s.publish(ctx, messagequeue.SubjectPaymentUpdated, updated, previous)
	return &payment.Recorded{Payment: *updated, Ledger: *l}, nil
}

// Delete removes a payment and refreshes its tenant's ledger.
func (s *PaymentService) Delete(ctx context.Context, id string) error {
	old, err := s.store.GetPayment(ctx, id)
	if err != nil {
		return err
	}
	ctx, span := cfotel.StartPaymentSpan(ctx, "delete", old.TenantID)
	defer span.End()

	if err := s.store.DeletePayment(ctx, id); err != nil {
		return fmt.Errorf("delete payment %s: %w", id, err)
	}
	if _, err := s.refresh(ctx, old.TenantID); err != nil {
		slog.WarnContext(ctx, "refresh ledger after delete", "tenant_id", old.TenantID, "error", err)
	}

	s.publish(ctx, messagequeue.SubjectPaymentDeleted, old, "")
	if s.metrics != nil {
		s.metrics.PaymentsDeleted.Add(ctx, 1)
	}
	return nil
}

// refresh invalidates the tenant's cached ledger, recomputes it from the
// store and pushes it to live dashboards.
func (s *PaymentService) refresh(ctx context.Context, tenantID string) (*ledger.Ledger, error) {
	s.ledgers.Invalidate(ctx, tenantID)
	l, err := s.ledgers.ForTenant(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("recompute ledger: %w", err)
	}
	s.hub.BroadcastEvent(ctx, broadcast.EventLedgerUpdated, broadcast.LedgerUpdatedEvent{TenantID: tenantID, Ledger: *l})
	return l, nil
}

func (s *PaymentService) publish(ctx context.Context, subject string, p *payment.Payment, previousTenant string) {
	s.events.Publish(ctx, subject, messagequeue.PaymentEventPayload{
		WorkspaceID:      middleware.WorkspaceIDFromContext(ctx),
		PaymentID:        p.ID,
		TenantID:         p.TenantID,
		PreviousTenantID: previousTenant,
		Amount:           p.Amount.String(),
		PaymentDate:      p.PaymentDate.Format(domain.DateLayout),
		Method:           string(p.Method),
	})
}
