package mcp_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	mcplib "github.com/mark3labs/mcp-go/mcp"
	"github.com/shopspring/decimal"

	cfmcp "github.com/Strob0t/rentledger/internal/adapter/mcp"
	"github.com/Strob0t/rentledger/internal/domain"
	"github.com/Strob0t/rentledger/internal/domain/analytics"
	"github.com/Strob0t/rentledger/internal/domain/ledger"
	"github.com/Strob0t/rentledger/internal/domain/payment"
	"github.com/Strob0t/rentledger/internal/domain/tenant"
	"github.com/Strob0t/rentledger/internal/service"
)

// --- Mocks ---

type mockTenants struct {
	views      []tenant.View
	lastFilter service.TenantListFilter
	lastAsOf   *time.Time
	err        error
}

func (m *mockTenants) List(_ context.Context, filter service.TenantListFilter) ([]tenant.View, error) {
	m.lastFilter = filter
	return m.views, m.err
}

func (m *mockTenants) Ledger(_ context.Context, id string, asOf *time.Time) (*ledger.Ledger, error) {
	m.lastAsOf = asOf
	for i := range m.views {
		if m.views[i].ID == id {
			return &m.views[i].Ledger, nil
		}
	}
	return nil, domain.ErrNotFound
}

type mockPayments struct {
	payments   []payment.Payment
	lastFilter payment.ListFilter
}

func (m *mockPayments) List(_ context.Context, filter payment.ListFilter) ([]payment.Payment, error) {
	m.lastFilter = filter
	return m.payments, nil
}

type mockSummary struct {
	summary analytics.Summary
	err     error
}

func (m *mockSummary) Summary(_ context.Context) (*analytics.Summary, error) {
	return &m.summary, m.err
}

func newServer(deps cfmcp.ServerDeps) *cfmcp.Server {
	return cfmcp.NewServer(cfmcp.ServerConfig{Name: "test", Version: "0.1.0"}, deps)
}

func callTool(t *testing.T, s *cfmcp.Server, name string, args map[string]any) *mcplib.CallToolResult {
	t.Helper()
	tool, ok := s.MCPServer().ListTools()[name]
	if !ok {
		t.Fatalf("%s tool not found", name)
	}
	result, err := tool.Handler(context.Background(), mcplib.CallToolRequest{
		Params: mcplib.CallToolParams{Name: name, Arguments: args},
	})
	if err != nil {
		t.Fatalf("handler error: %v", err)
	}
	return result
}

func resultText(t *testing.T, result *mcplib.CallToolResult) string {
	t.Helper()
	if result.IsError {
		t.Fatalf("tool returned error: %v", result.Content)
	}
	text, ok := result.Content[0].(mcplib.TextContent)
	if !ok {
		t.Fatal("expected TextContent")
	}
	return text.Text
}

// --- Tests ---

func TestToolRegistration(t *testing.T) {
	s := newServer(cfmcp.ServerDeps{})

	tools := s.MCPServer().ListTools()
	expected := map[string]bool{
		"list_tenants":          false,
		"get_tenant_ledger":     false,
		"list_payments":         false,
		"get_portfolio_summary": false,
	}
	if len(tools) != len(expected) {
		t.Fatalf("expected %d tools, got %d", len(expected), len(tools))
	}
	for name := range tools {
		if _, ok := expected[name]; !ok {
			t.Errorf("unexpected tool: %s", name)
		}
		expected[name] = true
	}
	for name, found := range expected {
		if !found {
			t.Errorf("expected tool %q not registered", name)
		}
	}
}

func TestHandleListTenants(t *testing.T) {
	tenants := &mockTenants{views: []tenant.View{
		{Tenant: tenant.Tenant{ID: "t1", Name: "Ana"}, Ledger: ledger.Ledger{Status: ledger.StatusDue}},
	}}
	s := newServer(cfmcp.ServerDeps{Tenants: tenants})

	text := resultText(t, callTool(t, s, "list_tenants", map[string]any{
		"payment_status": "due",
		"lease_status":   "active",
	}))
	var views []tenant.View
	if err := json.Unmarshal([]byte(text), &views); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(views) != 1 || views[0].Ledger.Status != ledger.StatusDue {
		t.Fatalf("views = %+v", views)
	}
	if tenants.lastFilter.PaymentStatus != ledger.StatusDue || tenants.lastFilter.LeaseStatus != tenant.LeaseActive {
		t.Errorf("filter = %+v", tenants.lastFilter)
	}
}

func TestHandleListTenantsBadFilter(t *testing.T) {
	s := newServer(cfmcp.ServerDeps{Tenants: &mockTenants{}})

	if !callTool(t, s, "list_tenants", map[string]any{"payment_status": "late"}).IsError {
		t.Fatal("expected error result for unknown payment status")
	}
}

func TestHandleGetTenantLedger(t *testing.T) {
	tenants := &mockTenants{views: []tenant.View{
		{Tenant: tenant.Tenant{ID: "t1"}, Ledger: ledger.Ledger{TenantID: "t1", Balance: decimal.NewFromInt(250)}},
	}}
	s := newServer(cfmcp.ServerDeps{Tenants: tenants})

	text := resultText(t, callTool(t, s, "get_tenant_ledger", map[string]any{"tenant_id": "t1", "as_of": "2025-03-31"}))
	var l ledger.Ledger
	if err := json.Unmarshal([]byte(text), &l); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !l.Balance.Equal(decimal.NewFromInt(250)) {
		t.Errorf("balance = %s", l.Balance)
	}
	if tenants.lastAsOf == nil || tenants.lastAsOf.Format(domain.DateLayout) != "2025-03-31" {
		t.Errorf("as_of = %v", tenants.lastAsOf)
	}

	if !callTool(t, s, "get_tenant_ledger", nil).IsError {
		t.Error("expected error result for missing tenant_id")
	}
	if !callTool(t, s, "get_tenant_ledger", map[string]any{"tenant_id": "nope"}).IsError {
		t.Error("expected error result for unknown tenant")
	}
	if !callTool(t, s, "get_tenant_ledger", map[string]any{"tenant_id": "t1", "as_of": "yesterday"}).IsError {
		t.Error("expected error result for bad as_of")
	}
}

func TestHandleListPayments(t *testing.T) {
	payments := &mockPayments{payments: []payment.Payment{{ID: "p1", Amount: decimal.NewFromInt(10)}}}
	s := newServer(cfmcp.ServerDeps{Payments: payments})

	text := resultText(t, callTool(t, s, "list_payments", map[string]any{
		"tenant_id": "t1",
		"method":    "mobile_money",
		"from":      "2025-01-01",
	}))
	var got []payment.Payment
	if err := json.Unmarshal([]byte(text), &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("payments = %d", len(got))
	}
	f := payments.lastFilter
	if f.TenantID != "t1" || f.Method != payment.MethodMobileMoney || f.From == nil || f.To != nil {
		t.Errorf("filter = %+v", f)
	}

	if !callTool(t, s, "list_payments", map[string]any{"method": "barter"}).IsError {
		t.Error("expected error result for bad method")
	}
}

func TestHandleGetPortfolioSummary(t *testing.T) {
	s := newServer(cfmcp.ServerDeps{Analytics: &mockSummary{summary: analytics.Summary{Tenants: 7}}})

	var sum analytics.Summary
	if err := json.Unmarshal([]byte(resultText(t, callTool(t, s, "get_portfolio_summary", nil))), &sum); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if sum.Tenants != 7 {
		t.Errorf("tenants = %d", sum.Tenants)
	}

	failing := newServer(cfmcp.ServerDeps{Analytics: &mockSummary{err: errors.New("db down")}})
	if !callTool(t, failing, "get_portfolio_summary", nil).IsError {
		t.Error("expected error result when analytics fails")
	}
}

func TestHandleNilDeps(t *testing.T) {
	s := newServer(cfmcp.ServerDeps{})

	for _, name := range []string{"list_tenants", "list_payments", "get_portfolio_summary"} {
		if !callTool(t, s, name, nil).IsError {
			t.Errorf("%s: expected error result when deps are nil", name)
		}
	}
}

func TestHandlerIsMountable(t *testing.T) {
	if newServer(cfmcp.ServerDeps{}).Handler() == nil {
		t.Fatal("Handler() returned nil")
	}
}
