// Package tools defines the tool registry contract the session orchestrator
// consumes, concrete registries, and descriptor converters for each backend
// tool format.
package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	mcptypes "github.com/mark3labs/mcp-go/mcp"
)

// Registry lists available tools and executes them by name. A nil Registry
// is valid wherever one is consumed: no tools advertised, none executed.
type Registry interface {
	ListTools(ctx context.Context) ([]mcptypes.Tool, error)
	Execute(ctx context.Context, name string, args map[string]any) (*mcptypes.CallToolResult, error)
}

// Handler implements one in-process tool.
type Handler func(ctx context.Context, args map[string]any) (string, error)

// FuncRegistry serves tools implemented as in-process Go functions. Tools
// are listed in registration order.
type FuncRegistry struct {
	mu       sync.RWMutex
	tools    []mcptypes.Tool
	handlers map[string]Handler
}

func NewFuncRegistry() *FuncRegistry {
	return &FuncRegistry{handlers: make(map[string]Handler)}
}

// Register adds a tool. Re-registering a name replaces its handler but keeps
// the original listing position.
func (r *FuncRegistry) Register(tool mcptypes.Tool, h Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.handlers[tool.Name]; !exists {
		r.tools = append(r.tools, tool)
	}
	r.handlers[tool.Name] = h
}

func (r *FuncRegistry) ListTools(ctx context.Context) ([]mcptypes.Tool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return append([]mcptypes.Tool(nil), r.tools...), nil
}

func (r *FuncRegistry) Execute(ctx context.Context, name string, args map[string]any) (*mcptypes.CallToolResult, error) {
	r.mu.RLock()
	h, ok := r.handlers[name]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("unknown tool: %s", name)
	}

	out, err := h(ctx, args)
	if err != nil {
		return nil, err
	}
	return mcptypes.NewToolResultText(out), nil
}

// ResultText flattens a tool result's content into a single string for
// user-visible summaries and replay to the model.
func ResultText(res *mcptypes.CallToolResult) string {
	if res == nil || len(res.Content) == 0 {
		return "tool executed successfully (no output)"
	}

	parts := make([]string, 0, len(res.Content))
	for _, c := range res.Content {
		if tc, ok := c.(mcptypes.TextContent); ok {
			parts = append(parts, tc.Text)
			continue
		}
		b, err := json.Marshal(c)
		if err != nil {
			continue
		}
		parts = append(parts, string(b))
	}
	return strings.Join(parts, "\n")
}
