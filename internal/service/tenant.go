package service

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Strob0t/rentledger/internal/domain/ledger"
	"github.com/Strob0t/rentledger/internal/domain/payment"
	"github.com/Strob0t/rentledger/internal/domain/tenant"
	"github.com/Strob0t/rentledger/internal/middleware"
	"github.com/Strob0t/rentledger/internal/port/broadcast"
	"github.com/Strob0t/rentledger/internal/port/database"
	"github.com/Strob0t/rentledger/internal/port/messagequeue"
)

// TenantListFilter extends the stored-field filter with the derived
// payment status.
type TenantListFilter struct {
	tenant.ListFilter
	PaymentStatus ledger.Status
}

// TenantService manages tenants and exposes them with their ledgers.
type TenantService struct {
	store   database.Store
	ledgers *LedgerService
	events  *EventPublisher
	hub     broadcast.Broadcaster
}

// NewTenantService creates a TenantService. hub may be nil.
func NewTenantService(store database.Store, ledgers *LedgerService, events *EventPublisher, hub broadcast.Broadcaster) *TenantService {
	if hub == nil {
		hub = broadcast.Discard{}
	}
	return &TenantService{store: store, ledgers: ledgers, events: events, hub: hub}
}

// List returns tenants with ledgers as of now. Tenants and payments are
// loaded concurrently and each ledger is computed in memory.
func (s *TenantService) List(ctx context.Context, filter TenantListFilter) ([]tenant.View, error) {
	var (
		tenants  []tenant.Tenant
		payments []payment.Payment
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		tenants, err = s.store.ListTenants(gctx, filter.ListFilter)
		return err
	})
	g.Go(func() error {
		var err error
		payments, err = s.store.ListPayments(gctx, payment.ListFilter{})
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("list tenants: %w", err)
	}

	views, err := s.ledgers.Views(tenants, payments, s.ledgers.Now())
	if err != nil {
		return nil, err
	}
	if filter.PaymentStatus == "" {
		return views, nil
	}
	out := views[:0]
	for i := range views {
		if views[i].Ledger.Status == filter.PaymentStatus {
			out = append(out, views[i])
		}
	}
	return out, nil
}

// Get returns a tenant with its current ledger.
func (s *TenantService) Get(ctx context.Context, id string) (*tenant.View, error) {
	t, err := s.store.GetTenant(ctx, id)
	if err != nil {
		return nil, err
	}
	l, err := s.ledgers.ForTenant(ctx, id)
	if err != nil {
		return nil, err
	}
	return &tenant.View{Tenant: *t, Ledger: *l}, nil
}

// Ledger returns the tenant's ledger. A nil asOf reads the cached current
// ledger; any other date is computed fresh.
func (s *TenantService) Ledger(ctx context.Context, id string, asOf *time.Time) (*ledger.Ledger, error) {
	if asOf == nil {
		return s.ledgers.ForTenant(ctx, id)
	}
	return s.ledgers.AsOf(ctx, id, *asOf)
}

// Create validates and stores a tenant.
func (s *TenantService) Create(ctx context.Context, req tenant.CreateRequest) (*tenant.View, error) {
	t, err := req.Normalize()
	if err != nil {
		return nil, err
	}
	created, err := s.store.CreateTenant(ctx, t)
	if err != nil {
		return nil, err
	}
	s.changed(ctx, created.ID, "created")
	return s.view(ctx, created)
}

// Update overwrites every editable field of a tenant. Rent terms may have
// changed, so the cached ledger is dropped and recomputed.
func (s *TenantService) Update(ctx context.Context, id string, req tenant.UpdateRequest) (*tenant.View, error) {
	t, err := req.Normalize()
	if err != nil {
		return nil, err
	}
	t.ID = id
	updated, err := s.store.UpdateTenant(ctx, t)
	if err != nil {
		return nil, err
	}
	s.ledgers.Invalidate(ctx, id)
	s.changed(ctx, id, "updated")

	v, err := s.view(ctx, updated)
	if err != nil {
		return nil, err
	}
	s.hub.BroadcastEvent(ctx, broadcast.EventLedgerUpdated, broadcast.LedgerUpdatedEvent{TenantID: id, Ledger: v.Ledger})
	return v, nil
}

// Delete removes a tenant together with its payments.
func (s *TenantService) Delete(ctx context.Context, id string) error {
	if err := s.store.DeleteTenant(ctx, id); err != nil {
		return err
	}
	s.ledgers.Invalidate(ctx, id)
	s.changed(ctx, id, "deleted")
	s.hub.BroadcastEvent(ctx, broadcast.EventLedgerUpdated, broadcast.LedgerUpdatedEvent{TenantID: id, Deleted: true})
	return nil
}

func (s *TenantService) view(ctx context.Context, t *tenant.Tenant) (*tenant.View, error) {
	l, err := s.ledgers.ForTenant(ctx, t.ID)
	if err != nil {
		return nil, err
	}
	return &tenant.View{Tenant: *t, Ledger: *l}, nil
}

func (s *TenantService) changed(ctx context.Context, id, action string) {
	s.events.Publish(ctx, messagequeue.SubjectTenantChanged, messagequeue.TenantChangedPayload{
		WorkspaceID: middleware.WorkspaceIDFromContext(ctx),
		TenantID:    id,
		Action:      action,
	})
}
