package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	mcplib "github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/Strob0t/rentledger/internal/domain"
	"github.com/Strob0t/rentledger/internal/domain/ledger"
	"github.com/Strob0t/rentledger/internal/domain/payment"
	"github.com/Strob0t/rentledger/internal/domain/tenant"
	"github.com/Strob0t/rentledger/internal/service"
)

// registerTools registers all MCP tools on the server.
func (s *Server) registerTools() {
	s.mcpServer.AddTools(
		s.listTenantsTool(),
		s.getTenantLedgerTool(),
		s.listPaymentsTool(),
		s.getPortfolioSummaryTool(),
	)
}

func (s *Server) listTenantsTool() mcpserver.ServerTool {
	tool := mcplib.NewTool("list_tenants",
		mcplib.WithDescription("List tenants with their current balance and payment status"),
		mcplib.WithString("lease_status",
			mcplib.Description("Filter by lease status"),
			mcplib.Enum(string(tenant.LeasePending), string(tenant.LeaseActive), string(tenant.LeaseInactive)),
		),
		mcplib.WithString("payment_status",
			mcplib.Description("Filter by derived payment status"),
			mcplib.Enum(string(ledger.StatusCurrent), string(ledger.StatusDue), string(ledger.StatusOverdue)),
		),
		mcplib.WithString("property_id", mcplib.Description("Only tenants of this property")),
		mcplib.WithString("query", mcplib.Description("Case-insensitive match on name, email or unit")),
	)
	return mcpserver.ServerTool{Tool: tool, Handler: s.handleListTenants}
}

func (s *Server) getTenantLedgerTool() mcpserver.ServerTool {
	tool := mcplib.NewTool("get_tenant_ledger",
		mcplib.WithDescription("Get a tenant's ledger: rent owed, paid, balance, credit and status"),
		mcplib.WithString("tenant_id",
			mcplib.Required(),
			mcplib.Description("The tenant ID to look up"),
		),
		mcplib.WithString("as_of", mcplib.Description("Compute as of this date (YYYY-MM-DD) instead of today")),
	)
	return mcpserver.ServerTool{Tool: tool, Handler: s.handleGetTenantLedger}
}

func (s *Server) listPaymentsTool() mcpserver.ServerTool {
	tool := mcplib.NewTool("list_payments",
		mcplib.WithDescription("List payments, newest first"),
		mcplib.WithString("tenant_id", mcplib.Description("Only payments of this tenant")),
		mcplib.WithString("method", mcplib.Description("Only payments made with this method")),
		mcplib.WithString("from", mcplib.Description("Earliest payment date, inclusive (YYYY-MM-DD)")),
		mcplib.WithString("to", mcplib.Description("Latest payment date, inclusive (YYYY-MM-DD)")),
	)
	return mcpserver.ServerTool{Tool: tool, Handler: s.handleListPayments}
}

func (s *Server) getPortfolioSummaryTool() mcpserver.ServerTool {
	tool := mcplib.NewTool("get_portfolio_summary",
		mcplib.WithDescription("Get occupancy, collection and arrears figures for the whole portfolio"),
	)
	return mcpserver.ServerTool{Tool: tool, Handler: s.handleGetPortfolioSummary}
}

func (s *Server) handleListTenants(ctx context.Context, req mcplib.CallToolRequest) (*mcplib.CallToolResult, error) { //nolint:gocritic // hugeParam: mcp-go handler signature
	if s.deps.Tenants == nil {
		return mcplib.NewToolResultError("tenant reader not configured"), nil
	}
	filter := service.TenantListFilter{
		ListFilter: tenant.ListFilter{
			PropertyID: req.GetString("property_id", ""),
			Query:      req.GetString("query", ""),
		},
	}
	if v := req.GetString("lease_status", ""); v != "" {
		st, err := tenant.ParseLeaseStatus(v)
		if err != nil {
			return mcplib.NewToolResultError(err.Error()), nil
		}
		filter.LeaseStatus = st
	}
	if v := req.GetString("payment_status", ""); v != "" {
		st, err := ledger.ParseStatus(v)
		if err != nil {
			return mcplib.NewToolResultError(err.Error()), nil
		}
		filter.PaymentStatus = st
	}

	views, err := s.deps.Tenants.List(ctx, filter)
	if err != nil {
		return mcplib.NewToolResultErrorFromErr("failed to list tenants", err), nil
	}
	return jsonResult(views, "tenants")
}

func (s *Server) handleGetTenantLedger(ctx context.Context, req mcplib.CallToolRequest) (*mcplib.CallToolResult, error) { //nolint:gocritic // hugeParam: mcp-go handler signature
	if s.deps.Tenants == nil {
		return mcplib.NewToolResultError("tenant reader not configured"), nil
	}
	tenantID := req.GetString("tenant_id", "")
	if tenantID == "" {
		return mcplib.NewToolResultError("tenant_id is required"), nil
	}
	asOf, err := domain.ParseOptionalDate("as_of", req.GetString("as_of", ""))
	if err != nil {
		return mcplib.NewToolResultError(err.Error()), nil
	}

	l, err := s.deps.Tenants.Ledger(ctx, tenantID, asOf)
	if err != nil {
		return mcplib.NewToolResultErrorFromErr(fmt.Sprintf("failed to get ledger for tenant %s", tenantID), err), nil
	}
	return jsonResult(l, "ledger")
}

func (s *Server) handleListPayments(ctx context.Context, req mcplib.CallToolRequest) (*mcplib.CallToolResult, error) { //nolint:gocritic // hugeParam: mcp-go handler signature
	if s.deps.Payments == nil {
		return mcplib.NewToolResultError("payment lister not configured"), nil
	}
	filter := payment.ListFilter{TenantID: req.GetString("tenant_id", "")}
	if v := req.GetString("method", ""); v != "" {
		m, err := payment.ParseMethod(v)
		if err != nil {
			return mcplib.NewToolResultError(err.Error()), nil
		}
		filter.Method = m
	}
	var err error
	if filter.From, err = domain.ParseOptionalDate("from", req.GetString("from", "")); err != nil {
		return mcplib.NewToolResultError(err.Error()), nil
	}
	if filter.To, err = domain.ParseOptionalDate("to", req.GetString("to", "")); err != nil {
		return mcplib.NewToolResultError(err.Error()), nil
	}

	payments, err := s.deps.Payments.List(ctx, filter)
	if err != nil {
		return mcplib.NewToolResultErrorFromErr("failed to list payments", err), nil
	}
	return jsonResult(payments, "payments")
}

func (s *Server) handleGetPortfolioSummary(ctx context.Context, _ mcplib.CallToolRequest) (*mcplib.CallToolResult, error) { //nolint:gocritic // hugeParam: mcp-go handler signature
	if s.deps.Analytics == nil {
		return mcplib.NewToolResultError("analytics not configured"), nil
	}
	summary, err := s.deps.Analytics.Summary(ctx)
	if err != nil {
		return mcplib.NewToolResultErrorFromErr("failed to get portfolio summary", err), nil
	}
	return jsonResult(summary, "summary")
}

func jsonResult(v any, what string) (*mcplib.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return mcplib.NewToolResultErrorFromErr("failed to marshal "+what, err), nil
	}
	return mcplib.NewToolResultText(string(data)), nil
}
