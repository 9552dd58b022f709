// Package mcp exposes read-only rentledger tools and resources over the
// Model Context Protocol (streamable HTTP transport).
package mcp

import (
	"context"
	"net/http"
	"time"

	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/Strob0t/rentledger/internal/domain/analytics"
	"github.com/Strob0t/rentledger/internal/domain/ledger"
	"github.com/Strob0t/rentledger/internal/domain/payment"
	"github.com/Strob0t/rentledger/internal/domain/tenant"
	"github.com/Strob0t/rentledger/internal/middleware"
	"github.com/Strob0t/rentledger/internal/service"
)

// TenantReader lists tenants with their ledgers.
type TenantReader interface {
	List(ctx context.Context, filter service.TenantListFilter) ([]tenant.View, error)
	Ledger(ctx context.Context, id string, asOf *time.Time) (*ledger.Ledger, error)
}

// PaymentLister lists payments.
type PaymentLister interface {
	List(ctx context.Context, filter payment.ListFilter) ([]payment.Payment, error)
}

// SummaryReader produces the portfolio summary.
type SummaryReader interface {
	Summary(ctx context.Context) (*analytics.Summary, error)
}

// ServerConfig holds MCP server identity and mount path.
type ServerConfig struct {
	Name    string
	Version string
	Path    string
}

// ServerDeps are the read models behind the tools. Nil entries make the
// corresponding tools report "not configured".
type ServerDeps struct {
	Tenants   TenantReader
	Payments  PaymentLister
	Analytics SummaryReader
}

// Server wraps an mcp-go server with rentledger tools and resources.
type Server struct {
	cfg       ServerConfig
	deps      ServerDeps
	mcpServer *mcpserver.MCPServer
}

// NewServer creates the MCP server and registers every tool and resource.
func NewServer(cfg ServerConfig, deps ServerDeps) *Server {
	if cfg.Path == "" {
		cfg.Path = "/mcp"
	}
	s := &Server{
		cfg:  cfg,
		deps: deps,
		mcpServer: mcpserver.NewMCPServer(cfg.Name, cfg.Version,
			mcpserver.WithToolCapabilities(false),
			mcpserver.WithResourceCapabilities(false, false),
			mcpserver.WithRecovery(),
		),
	}
	s.registerTools()
	s.registerResources()
	return s
}

// MCPServer returns the underlying mcp-go server.
func (s *Server) MCPServer() *mcpserver.MCPServer {
	return s.mcpServer
}

// Handler returns the streamable HTTP endpoint. It is mounted behind the
// API middleware chain, so the workspace of the HTTP request carries into
// every tool call.
func (s *Server) Handler() http.Handler {
	return mcpserver.NewStreamableHTTPServer(s.mcpServer,
		mcpserver.WithEndpointPath(s.cfg.Path),
		mcpserver.WithStateLess(true),
		mcpserver.WithHTTPContextFunc(func(ctx context.Context, r *http.Request) context.Context {
			return middleware.WithWorkspaceID(ctx, middleware.WorkspaceIDFromContext(r.Context()))
		}),
	)
}
