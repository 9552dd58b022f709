package mcp

import (
	"context"
	"encoding/json"

	mcplib "github.com/mark3labs/mcp-go/mcp"
)

const summaryURI = "rentledger://analytics/summary"

// registerResources registers all MCP resources on the server.
func (s *Server) registerResources() {
	s.mcpServer.AddResource(
		mcplib.NewResource(
			summaryURI,
			"Portfolio Summary",
			mcplib.WithResourceDescription("Occupancy, collection and arrears figures for the workspace"),
			mcplib.WithMIMEType("application/json"),
		),
		s.handleSummaryResource,
	)
}

func (s *Server) handleSummaryResource(ctx context.Context, req mcplib.ReadResourceRequest) ([]mcplib.ResourceContents, error) { //nolint:gocritic // hugeParam: mcp-go handler signature
	if s.deps.Analytics == nil {
		return []mcplib.ResourceContents{
			mcplib.TextResourceContents{
				URI:      req.Params.URI,
				MIMEType: "application/json",
				Text:     `{"error":"analytics not configured"}`,
			},
		}, nil
	}
	summary, err := s.deps.Analytics.Summary(ctx)
	if err != nil {
		return nil, err
	}
	data, err := json.Marshal(summary)
	if err != nil {
		return nil, err
	}
	return []mcplib.ResourceContents{
		mcplib.TextResourceContents{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}
