package service

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	cfotel "github.com/Strob0t/rentledger/internal/adapter/otel"
	"github.com/Strob0t/rentledger/internal/domain/analytics"
	"github.com/Strob0t/rentledger/internal/domain/payment"
	"github.com/Strob0t/rentledger/internal/domain/property"
	"github.com/Strob0t/rentledger/internal/domain/tenant"
	"github.com/Strob0t/rentledger/internal/port/database"
)

// AnalyticsService aggregates portfolio figures.
type AnalyticsService struct {
	store   database.Store
	ledgers *LedgerService
}

// NewAnalyticsService creates a new AnalyticsService.
func NewAnalyticsService(store database.Store, ledgers *LedgerService) *AnalyticsService {
	return &AnalyticsService{store: store, ledgers: ledgers}
}

// Summary returns the portfolio snapshot as of now.
func (s *AnalyticsService) Summary(ctx context.Context) (*analytics.Summary, error) {
	ctx, span := cfotel.StartAnalyticsSpan(ctx, "summary")
	defer span.End()

	var (
		tenants    []tenant.Tenant
		payments   []payment.Payment
		properties []property.Property
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		tenants, err = s.store.ListTenants(gctx, tenant.ListFilter{})
		return err
	})
	g.Go(func() error {
		var err error
		payments, err = s.store.ListPayments(gctx, payment.ListFilter{})
		return err
	})
	g.Go(func() error {
		var err error
		properties, err = s.store.ListProperties(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("analytics summary: %w", err)
	}

	now := s.ledgers.Now()
	views, err := s.ledgers.Views(tenants, payments, now)
	if err != nil {
		return nil, err
	}
	sum := analytics.Summarize(views, properties, payments, now)
	return &sum, nil
}

// Collections returns monthly collected totals for the last months,
// oldest first.
func (s *AnalyticsService) Collections(ctx context.Context, months int) ([]analytics.MonthlyCollection, error) {
	months, err := analytics.NormalizeMonths(months)
	if err != nil {
		return nil, err
	}
	ctx, span := cfotel.StartAnalyticsSpan(ctx, "collections")
	defer span.End()

	payments, err := s.store.ListPayments(ctx, payment.ListFilter{})
	if err != nil {
		return nil, fmt.Errorf("analytics collections: %w", err)
	}
	return analytics.Collections(payments, s.ledgers.Now(), months), nil
}
