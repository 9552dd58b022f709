package postgres_test

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/Strob0t/rentledger/internal/adapter/postgres"
	"github.com/Strob0t/rentledger/internal/domain"
	"github.com/Strob0t/rentledger/internal/domain/payment"
	"github.com/Strob0t/rentledger/internal/domain/property"
	"github.com/Strob0t/rentledger/internal/domain/tenant"
	"github.com/Strob0t/rentledger/internal/middleware"
)

// setupStore creates a pgxpool connection, runs all migrations, and returns a
// ready-to-use Store. The pool is closed via t.Cleanup.
func setupStore(t *testing.T) *postgres.Store {
	t.Helper()

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("requires DATABASE_URL")
	}

	ctx := context.Background()
	if err := postgres.RunMigrations(ctx, dsn); err != nil {
		t.Fatalf("run migrations: %v", err)
	}

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("create pool: %v", err)
	}
	t.Cleanup(pool.Close)

	return postgres.NewStore(pool)
}

// freshWorkspace returns a context scoped to a new random workspace so tests
// never see each other's rows.
func freshWorkspace() context.Context {
	return middleware.WithWorkspaceID(context.Background(), uuid.NewString())
}

func date(s string) time.Time {
	d, err := time.Parse(domain.DateLayout, s)
	if err != nil {
		panic(err)
	}
	return d
}

func createTenant(t *testing.T, ctx context.Context, s *postgres.Store, propertyID string) *tenant.Tenant {
	t.Helper()
	tn, err := s.CreateTenant(ctx, &tenant.Tenant{
		PropertyID:  propertyID,
		Name:        "Jane Doe",
		Email:       "jane@example.com",
		Unit:        "2B",
		MonthlyRent: decimal.RequireFromString("1200.00"),
		LeaseStart:  date("2025-01-01"),
		LeaseStatus: tenant.LeaseActive,
	})
	if err != nil {
		t.Fatalf("create tenant: %v", err)
	}
	return tn
}

func TestPropertyLifecycle(t *testing.T) {
	s := setupStore(t)
	ctx := freshWorkspace()

	p, err := s.CreateProperty(ctx, &property.Property{Name: "Maple Court", Kind: property.KindApartment, Units: 4})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if p.ID == "" || p.WorkspaceID != middleware.WorkspaceIDFromContext(ctx) {
		t.Fatalf("unexpected property: %+v", p)
	}

	p.City = "Lisbon"
	updated, err := s.UpdateProperty(ctx, p)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.City != "Lisbon" {
		t.Errorf("City = %q, want Lisbon", updated.City)
	}

	list, err := s.ListProperties(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("len = %d, want 1", len(list))
	}

	tn := createTenant(t, ctx, s, p.ID)
	if err := s.DeleteProperty(ctx, p.ID); !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("delete referenced property: got %v, want ErrConflict", err)
	}
	if err := s.DeleteTenant(ctx, tn.ID); err != nil {
		t.Fatalf("delete tenant: %v", err)
	}
	if err := s.DeleteProperty(ctx, p.ID); err != nil {
		t.Fatalf("delete property: %v", err)
	}
	if _, err := s.GetProperty(ctx, p.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("get deleted: got %v, want ErrNotFound", err)
	}
}

func TestWorkspaceIsolation(t *testing.T) {
	s := setupStore(t)
	ctxA := freshWorkspace()
	ctxB := freshWorkspace()

	tn := createTenant(t, ctxA, s, "")

	if _, err := s.GetTenant(ctxB, tn.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("cross-workspace get: got %v, want ErrNotFound", err)
	}
	list, err := s.ListTenants(ctxB, tenant.ListFilter{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 0 {
		t.Fatalf("workspace B sees %d tenants, want 0", len(list))
	}
	_, err = s.CreatePayment(ctxB, &payment.Payment{
		TenantID: tn.ID, Amount: decimal.NewFromInt(10), PaymentDate: date("2025-02-01"), Method: payment.MethodCash,
	})
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("cross-workspace payment: got %v, want ErrValidation", err)
	}
}

func TestTenantUnknownProperty(t *testing.T) {
	s := setupStore(t)
	ctx := freshWorkspace()

	_, err := s.CreateTenant(ctx, &tenant.Tenant{
		PropertyID:  uuid.NewString(),
		Name:        "Nobody",
		MonthlyRent: decimal.NewFromInt(100),
		LeaseStart:  date("2025-01-01"),
		LeaseStatus: tenant.LeaseActive,
	})
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("got %v, want ErrValidation", err)
	}
}

func TestTenantListFilter(t *testing.T) {
	s := setupStore(t)
	ctx := freshWorkspace()

	createTenant(t, ctx, s, "")
	other, err := s.CreateTenant(ctx, &tenant.Tenant{
		Name:        "Bob 100%",
		MonthlyRent: decimal.NewFromInt(800),
		LeaseStart:  date("2025-03-01"),
		LeaseStatus: tenant.LeasePending,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := s.ListTenants(ctx, tenant.ListFilter{LeaseStatus: tenant.LeasePending})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 1 || got[0].ID != other.ID {
		t.Fatalf("status filter = %+v", got)
	}

	got, err = s.ListTenants(ctx, tenant.ListFilter{Query: "100%"})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 1 || got[0].ID != other.ID {
		t.Fatalf("query filter = %+v", got)
	}
}

func TestPaymentLifecycle(t *testing.T) {
	s := setupStore(t)
	ctx := freshWorkspace()
	tn := createTenant(t, ctx, s, "")

	first, err := s.CreatePayment(ctx, &payment.Payment{
		TenantID: tn.ID, Amount: decimal.RequireFromString("600.50"), PaymentDate: date("2025-02-01"), Method: payment.MethodBankTransfer,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if !first.Amount.Equal(decimal.RequireFromString("600.50")) {
		t.Errorf("Amount = %s", first.Amount)
	}
	second, err := s.CreatePayment(ctx, &payment.Payment{
		TenantID: tn.ID, Amount: decimal.NewFromInt(600), PaymentDate: date("2025-03-01"), Method: payment.MethodCash,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	list, err := s.ListPaymentsByTenant(ctx, tn.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 || list[0].ID != second.ID {
		t.Fatalf("want newest first, got %+v", list)
	}

	from := date("2025-02-15")
	list, err = s.ListPayments(ctx, payment.ListFilter{From: &from})
	if err != nil {
		t.Fatalf("list from: %v", err)
	}
	if len(list) != 1 || list[0].ID != second.ID {
		t.Fatalf("date filter = %+v", list)
	}

	first.Amount = decimal.NewFromInt(650)
	updated, err := s.UpdatePayment(ctx, first)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if !updated.Amount.Equal(decimal.NewFromInt(650)) {
		t.Errorf("Amount = %s, want 650", updated.Amount)
	}

	if err := s.DeletePayment(ctx, second.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := s.DeletePayment(ctx, second.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("double delete: got %v, want ErrNotFound", err)
	}

	if err := s.DeleteTenant(ctx, tn.ID); err != nil {
		t.Fatalf("delete tenant: %v", err)
	}
	if _, err := s.GetPayment(ctx, first.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("payment survived tenant delete: %v", err)
	}
}

func TestMalformedIDIsNotFound(t *testing.T) {
	s := setupStore(t)
	ctx := freshWorkspace()

	if _, err := s.GetTenant(ctx, "not-a-uuid"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("got %v, want ErrNotFound", err)
	}
	if err := s.DeletePayment(ctx, "42"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("got %v, want ErrNotFound", err)
	}
}
