package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	cfotel "github.com/Strob0t/rentledger/internal/adapter/otel"
	"github.com/Strob0t/rentledger/internal/domain"
	"github.com/Strob0t/rentledger/internal/domain/ledger"
	"github.com/Strob0t/rentledger/internal/domain/payment"
	"github.com/Strob0t/rentledger/internal/domain/tenant"
	"github.com/Strob0t/rentledger/internal/middleware"
	"github.com/Strob0t/rentledger/internal/port/cache"
	"github.com/Strob0t/rentledger/internal/port/database"
	"github.com/Strob0t/rentledger/internal/port/messagequeue"
)

// LedgerService serves derived tenant ledgers through the cache.
type LedgerService struct {
	store   database.Store
	cache   cache.Cache
	events  *EventPublisher
	opts    ledger.Options
	ttl     time.Duration
	metrics *cfotel.Metrics

	// origin tags invalidations from this process so it can ignore its own echoes.
	origin string
	group  singleflight.Group
	now    func() time.Time
}

// NewLedgerService creates a LedgerService. c and events may be nil.
func NewLedgerService(store database.Store, c cache.Cache, events *EventPublisher, opts ledger.Options, ttl time.Duration) *LedgerService {
	return &LedgerService{
		store:  store,
		cache:  c,
		events: events,
		opts:   opts,
		ttl:    ttl,
		origin: uuid.NewString(),
		now:    time.Now,
	}
}

// SetMetrics enables cache hit/miss and compute time recording.
func (s *LedgerService) SetMetrics(m *cfotel.Metrics) {
	s.metrics = m
}

// Now returns the service clock in UTC.
func (s *LedgerService) Now() time.Time {
	return s.now().UTC()
}

// Options returns the calculation options in effect.
func (s *LedgerService) Options() ledger.Options {
	return s.opts
}

func cacheKey(workspaceID, tenantID string, asOf time.Time) string {
	return fmt.Sprintf("ledger:%s:%s:%s", workspaceID, tenantID, asOf.Format(domain.DateLayout))
}

// ForTenant returns the tenant's ledger as of now, from cache when possible.
// Keys carry the as-of date, so a cached value never outlives its day.
func (s *LedgerService) ForTenant(ctx context.Context, tenantID string) (*ledger.Ledger, error) {
	now := s.Now()
	key := cacheKey(middleware.WorkspaceIDFromContext(ctx), tenantID, now)

	if s.cache != nil {
		data, ok, err := s.cache.Get(ctx, key)
		if err != nil {
			slog.WarnContext(ctx, "ledger cache get failed", "key", key, "error", err)
		}
		if ok {
			var l ledger.Ledger
			if err := json.Unmarshal(data, &l); err == nil {
				s.count(ctx, true)
				return &l, nil
			}
			slog.WarnContext(ctx, "discarding corrupt ledger cache entry", "key", key)
		}
	}
	s.count(ctx, false)

	v, err, _ := s.group.Do(key, func() (any, error) {
		// Shared by every waiter on key; one caller going away must not fail the rest.
		ctx := context.WithoutCancel(ctx)
		l, err := s.compute(ctx, tenantID, now)
		if err != nil {
			return nil, err
		}
		if s.cache != nil {
			if data, err := json.Marshal(l); err == nil {
				if err := s.cache.Set(ctx, key, data, s.ttl); err != nil {
					slog.WarnContext(ctx, "ledger cache set failed", "key", key, "error", err)
				}
			}
		}
		return l, nil
	})
	if err != nil {
		return nil, err
	}
	l := *v.(*ledger.Ledger)
	return &l, nil
}

// AsOf computes the tenant's ledger at an arbitrary date, bypassing the cache.
func (s *LedgerService) AsOf(ctx context.Context, tenantID string, asOf time.Time) (*ledger.Ledger, error) {
	return s.compute(ctx, tenantID, asOf)
}

func (s *LedgerService) compute(ctx context.Context, tenantID string, asOf time.Time) (*ledger.Ledger, error) {
	ctx, span := cfotel.StartLedgerSpan(ctx, middleware.WorkspaceIDFromContext(ctx), tenantID)
	defer span.End()
	start := time.Now()

	t, err := s.store.GetTenant(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	payments, err := s.store.ListPaymentsByTenant(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("load payments for tenant %s: %w", tenantID, err)
	}
	l, err := s.Compute(t, payments, asOf)
	if err != nil {
		return nil, fmt.Errorf("compute ledger for tenant %s: %w", tenantID, err)
	}

	if s.metrics != nil {
		s.metrics.LedgerComputeTime.Record(ctx, time.Since(start).Seconds())
	}
	return &l, nil
}

// Compute runs the calculator over already loaded data.
func (s *LedgerService) Compute(t *tenant.Tenant, payments []payment.Payment, asOf time.Time) (ledger.Ledger, error) {
	return ledger.Compute(t.Terms(), payment.Entries(payments), asOf, s.opts)
}

// Views pairs every tenant with its ledger, grouping payments by tenant once.
func (s *LedgerService) Views(tenants []tenant.Tenant, payments []payment.Payment, asOf time.Time) ([]tenant.View, error) {
	byTenant := make(map[string][]payment.Payment, len(tenants))
	for i := range payments {
		byTenant[payments[i].TenantID] = append(byTenant[payments[i].TenantID], payments[i])
	}
	views := make([]tenant.View, 0, len(tenants))
	for i := range tenants {
		l, err := s.Compute(&tenants[i], byTenant[tenants[i].ID], asOf)
		if err != nil {
			return nil, fmt.Errorf("compute ledger for tenant %s: %w", tenants[i].ID, err)
		}
		views = append(views, tenant.View{Tenant: tenants[i], Ledger: l})
	}
	return views, nil
}

// Invalidate evicts the tenant's cached ledger here and, through the
// message queue, on every other replica.
func (s *LedgerService) Invalidate(ctx context.Context, tenantID string) {
	wid := middleware.WorkspaceIDFromContext(ctx)
	s.evict(ctx, wid, tenantID)
	s.events.Publish(ctx, messagequeue.SubjectLedgerInvalidated, messagequeue.LedgerInvalidatedPayload{
		WorkspaceID: wid,
		TenantID:    tenantID,
		Origin:      s.origin,
	})
}

func (s *LedgerService) evict(ctx context.Context, workspaceID, tenantID string) {
	if s.cache == nil {
		return
	}
	key := cacheKey(workspaceID, tenantID, s.Now())
	s.group.Forget(key)
	if err := s.cache.Delete(ctx, key); err != nil {
		slog.WarnContext(ctx, "ledger cache delete failed", "key", key, "error", err)
	}
}

// HandleInvalidation is the messagequeue.Handler for ledger.invalidated.
func (s *LedgerService) HandleInvalidation(ctx context.Context, _ string, data []byte) error {
	var p messagequeue.LedgerInvalidatedPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return fmt.Errorf("decode ledger invalidation: %w", err)
	}
	if p.Origin == s.origin {
		return nil
	}
	s.evict(ctx, p.WorkspaceID, p.TenantID)
	return nil
}

// SubscribeInvalidations starts evicting on invalidations from other replicas.
func (s *LedgerService) SubscribeInvalidations(ctx context.Context) (func(), error) {
	if s.events == nil {
		return func() {}, nil
	}
	cancel, err := s.events.Subscribe(ctx, messagequeue.SubjectLedgerInvalidated, s.HandleInvalidation)
	if err != nil {
		return nil, fmt.Errorf("subscribe ledger invalidations: %w", err)
	}
	return cancel, nil
}

func (s *LedgerService) count(ctx context.Context, hit bool) {
	if s.metrics == nil {
		return
	}
	if hit {
		s.metrics.LedgerCacheHits.Add(ctx, 1)
	} else {
		s.metrics.LedgerCacheMisses.Add(ctx, 1)
	}
}

// notFoundAsValidation turns a missing referenced tenant into a caller error.
func notFoundAsValidation(err error, tenantID string) error {
	if errors.Is(err, domain.ErrNotFound) {
		return domain.Validationf("tenant %s does not exist", tenantID)
	}
	return err
}
