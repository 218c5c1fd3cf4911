package tools

import (
	"context"
	"fmt"

	mcptypes "github.com/mark3labs/mcp-go/mcp"
)

// MCPClient is the subset of an mcp-go client the registry needs.
// *client.Client satisfies it once initialized.
type MCPClient interface {
	ListTools(ctx context.Context, request mcptypes.ListToolsRequest) (*mcptypes.ListToolsResult, error)
	CallTool(ctx context.Context, request mcptypes.CallToolRequest) (*mcptypes.CallToolResult, error)
}

// MCPRegistry delegates tool listing and execution to an MCP server.
type MCPRegistry struct {
	client MCPClient
}

func NewMCPRegistry(c MCPClient) *MCPRegistry {
	return &MCPRegistry{client: c}
}

func (r *MCPRegistry) ListTools(ctx context.Context) ([]mcptypes.Tool, error) {
	res, err := r.client.ListTools(ctx, mcptypes.ListToolsRequest{})
	if err != nil {
		return nil, fmt.Errorf("failed to list MCP tools: %w", err)
	}
	return res.Tools, nil
}

func (r *MCPRegistry) Execute(ctx context.Context, name string, args map[string]any) (*mcptypes.CallToolResult, error) {
	req := mcptypes.CallToolRequest{}
	req.Params.Name = name
	req.Params.Arguments = args

	return r.client.CallTool(ctx, req)
}
