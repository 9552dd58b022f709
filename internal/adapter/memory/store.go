// Package memory provides an in-process database.Store. Each workspace gets
// its own record set; nothing survives a restart. Referential integrity
// matches the postgres adapter.
package memory

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Strob0t/rentledger/internal/domain"
	"github.com/Strob0t/rentledger/internal/domain/payment"
	"github.com/Strob0t/rentledger/internal/domain/property"
	"github.com/Strob0t/rentledger/internal/domain/tenant"
	"github.com/Strob0t/rentledger/internal/middleware"
	"github.com/Strob0t/rentledger/internal/port/database"
)

type workspace struct {
	properties map[string]property.Property
	tenants    map[string]tenant.Tenant
	payments   map[string]payment.Payment
}

// Store is a mutex-guarded in-memory store.
type Store struct {
	mu         sync.RWMutex
	workspaces map[string]*workspace
	now        func() time.Time
}

var _ database.Store = (*Store)(nil)

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{
		workspaces: make(map[string]*workspace),
		now:        time.Now,
	}
}

// Ping always succeeds.
func (s *Store) Ping(_ context.Context) error { return nil }

// read returns the caller's workspace or nil. Callers hold s.mu.
func (s *Store) read(ctx context.Context) *workspace {
	return s.workspaces[middleware.WorkspaceIDFromContext(ctx)]
}

// write returns the caller's workspace, creating it. Callers hold s.mu for writing.
func (s *Store) write(ctx context.Context) (*workspace, string) {
	id := middleware.WorkspaceIDFromContext(ctx)
	ws, ok := s.workspaces[id]
	if !ok {
		ws = &workspace{
			properties: make(map[string]property.Property),
			tenants:    make(map[string]tenant.Tenant),
			payments:   make(map[string]payment.Payment),
		}
		s.workspaces[id] = ws
	}
	return ws, id
}

func (s *Store) stamp() time.Time {
	return s.now().UTC()
}

// --- Properties ---

func (s *Store) ListProperties(ctx context.Context) ([]property.Property, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []property.Property{}
	if ws := s.read(ctx); ws != nil {
		for _, p := range ws.properties {
			out = append(out, p)
		}
	}
	slices.SortFunc(out, func(a, b property.Property) int {
		return cmp.Or(cmp.Compare(a.Name, b.Name), a.CreatedAt.Compare(b.CreatedAt))
	})
	return out, nil
}

func (s *Store) GetProperty(ctx context.Context, id string) (*property.Property, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if ws := s.read(ctx); ws != nil {
		if p, ok := ws.properties[id]; ok {
			return &p, nil
		}
	}
	return nil, fmt.Errorf("get property %s: %w", id, domain.ErrNotFound)
}

func (s *Store) CreateProperty(ctx context.Context, in *property.Property) (*property.Property, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ws, wid := s.write(ctx)
	p := *in
	p.ID = uuid.NewString()
	p.WorkspaceID = wid
	p.CreatedAt = s.stamp()
	p.UpdatedAt = p.CreatedAt
	ws.properties[p.ID] = p
	return &p, nil
}

func (s *Store) UpdateProperty(ctx context.Context, in *property.Property) (*property.Property, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ws, _ := s.write(ctx)
	old, ok := ws.properties[in.ID]
	if !ok {
		return nil, fmt.Errorf("update property %s: %w", in.ID, domain.ErrNotFound)
	}
	p := *in
	p.WorkspaceID = old.WorkspaceID
	p.CreatedAt = old.CreatedAt
	p.UpdatedAt = s.stamp()
	ws.properties[p.ID] = p
	return &p, nil
}

func (s *Store) DeleteProperty(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ws := s.read(ctx)
	if ws == nil {
		return fmt.Errorf("delete property %s: %w", id, domain.ErrNotFound)
	}
	if _, ok := ws.properties[id]; !ok {
		return fmt.Errorf("delete property %s: %w", id, domain.ErrNotFound)
	}
	for i := range ws.tenants {
		if ws.tenants[i].PropertyID == id {
			return fmt.Errorf("delete property %s: tenants still reference it: %w", id, domain.ErrConflict)
		}
	}
	delete(ws.properties, id)
	return nil
}

// --- Tenants ---

func (s *Store) ListTenants(ctx context.Context, filter tenant.ListFilter) ([]tenant.Tenant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []tenant.Tenant{}
	if ws := s.read(ctx); ws != nil {
		for id := range ws.tenants {
			t := ws.tenants[id]
			if filter.Matches(&t) {
				out = append(out, t)
			}
		}
	}
	slices.SortFunc(out, func(a, b tenant.Tenant) int {
		return cmp.Or(cmp.Compare(a.Name, b.Name), a.CreatedAt.Compare(b.CreatedAt))
	})
	return out, nil
}

func (s *Store) GetTenant(ctx context.Context, id string) (*tenant.Tenant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if ws := s.read(ctx); ws != nil {
		if t, ok := ws.tenants[id]; ok {
			return &t, nil
		}
	}
	return nil, fmt.Errorf("get tenant %s: %w", id, domain.ErrNotFound)
}

func checkProperty(ws *workspace, propertyID string) error {
	if propertyID == "" {
		return nil
	}
	if _, ok := ws.properties[propertyID]; !ok {
		return domain.Validationf("property %s does not exist", propertyID)
	}
	return nil
}

func (s *Store) CreateTenant(ctx context.Context, in *tenant.Tenant) (*tenant.Tenant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ws, wid := s.write(ctx)
	if err := checkProperty(ws, in.PropertyID); err != nil {
		return nil, fmt.Errorf("create tenant: %w", err)
	}
	t := *in
	t.ID = uuid.NewString()
	t.WorkspaceID = wid
	t.CreatedAt = s.stamp()
	t.UpdatedAt = t.CreatedAt
	ws.tenants[t.ID] = t
	return &t, nil
}

func (s *Store) UpdateTenant(ctx context.Context, in *tenant.Tenant) (*tenant.Tenant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ws, _ := s.write(ctx)
	old, ok := ws.tenants[in.ID]
	if !ok {
		return nil, fmt.Errorf("update tenant %s: %w", in.ID, domain.ErrNotFound)
	}
	if err := checkProperty(ws, in.PropertyID); err != nil {
		return nil, fmt.Errorf("update tenant %s: %w", in.ID, err)
	}
	t := *in
	t.WorkspaceID = old.WorkspaceID
	t.CreatedAt = old.CreatedAt
	t.UpdatedAt = s.stamp()
	ws.tenants[t.ID] = t
	return &t, nil
}

// DeleteTenant removes the tenant and its payments.
func (s *Store) DeleteTenant(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ws := s.read(ctx)
	if ws == nil {
		return fmt.Errorf("delete tenant %s: %w", id, domain.ErrNotFound)
	}
	if _, ok := ws.tenants[id]; !ok {
		return fmt.Errorf("delete tenant %s: %w", id, domain.ErrNotFound)
	}
	delete(ws.tenants, id)
	for pid := range ws.payments {
		if ws.payments[pid].TenantID == id {
			delete(ws.payments, pid)
		}
	}
	return nil
}

// --- Payments ---

func (s *Store) ListPayments(ctx context.Context, filter payment.ListFilter) ([]payment.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []payment.Payment{}
	if ws := s.read(ctx); ws != nil {
		for id := range ws.payments {
			p := ws.payments[id]
			if filter.Matches(&p) {
				out = append(out, p)
			}
		}
	}
	slices.SortFunc(out, func(a, b payment.Payment) int {
		return cmp.Or(b.PaymentDate.Compare(a.PaymentDate), b.CreatedAt.Compare(a.CreatedAt), strings.Compare(a.ID, b.ID))
	})
	return out, nil
}

func (s *Store) ListPaymentsByTenant(ctx context.Context, tenantID string) ([]payment.Payment, error) {
	return s.ListPayments(ctx, payment.ListFilter{TenantID: tenantID})
}

func (s *Store) GetPayment(ctx context.Context, id string) (*payment.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if ws := s.read(ctx); ws != nil {
		if p, ok := ws.payments[id]; ok {
			return &p, nil
		}
	}
	return nil, fmt.Errorf("get payment %s: %w", id, domain.ErrNotFound)
}

func (s *Store) CreatePayment(ctx context.Context, in *payment.Payment) (*payment.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ws, wid := s.write(ctx)
	if _, ok := ws.tenants[in.TenantID]; !ok {
		return nil, fmt.Errorf("create payment: %w", domain.Validationf("tenant %s does not exist", in.TenantID))
	}
	p := *in
	p.ID = uuid.NewString()
	p.WorkspaceID = wid
	p.CreatedAt = s.stamp()
	p.UpdatedAt = p.CreatedAt
	ws.payments[p.ID] = p
	return &p, nil
}

func (s *Store) UpdatePayment(ctx context.Context, in *payment.Payment) (*payment.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ws, _ := s.write(ctx)
	old, ok := ws.payments[in.ID]
	if !ok {
		return nil, fmt.Errorf("update payment %s: %w", in.ID, domain.ErrNotFound)
	}
	if _, ok := ws.tenants[in.TenantID]; !ok {
		return nil, fmt.Errorf("update payment %s: %w", in.ID, domain.Validationf("tenant %s does not exist", in.TenantID))
	}
	p := *in
	p.WorkspaceID = old.WorkspaceID
	p.CreatedAt = old.CreatedAt
	p.UpdatedAt = s.stamp()
	ws.payments[p.ID] = p
	return &p, nil
}

func (s *Store) DeletePayment(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ws := s.read(ctx)
	if ws == nil {
		return fmt.Errorf("delete payment %s: %w", id, domain.ErrNotFound)
	}
	if _, ok := ws.payments[id]; !ok {
		return fmt.Errorf("delete payment %s: %w", id, domain.ErrNotFound)
	}
	delete(ws.payments, id)
	return nil
}
