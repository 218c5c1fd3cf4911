// Package testutil provides scriptable fakes for the provider and registry
// contracts.
package testutil

import (
	"context"
	"fmt"

	mcptypes "github.com/mark3labs/mcp-go/mcp"

	"tandem/model"
	"tandem/stream"
)

// MockProvider implements provider.Provider for testing. Every OpenStream
// request is recorded; the response is scripted via OpenStreamFunc or
// defaults to one text fragment followed by Done.
type MockProvider struct {
	NameValue  string
	ModelValue string

	OpenStreamFunc func(ctx context.Context, req *model.Request) (stream.Events, error)
	PingFunc       func(ctx context.Context) error

	Requests []*model.Request
}

func NewMockProvider(modelName string) *MockProvider {
	return &MockProvider{NameValue: "mock", ModelValue: modelName}
}

func (m *MockProvider) Name() string {
	return m.NameValue
}

func (m *MockProvider) Model() string {
	return m.ModelValue
}

func (m *MockProvider) SetModel(model string) {
	m.ModelValue = model
}

func (m *MockProvider) OpenStream(ctx context.Context, req *model.Request) (stream.Events, error) {
	m.Requests = append(m.Requests, req)
	if m.OpenStreamFunc != nil {
		return m.OpenStreamFunc(ctx, req)
	}
	return EventsOf(stream.Text("Mock response"), stream.Done()), nil
}

func (m *MockProvider) Ping(ctx context.Context) error {
	if m.PingFunc != nil {
		return m.PingFunc(ctx)
	}
	return nil
}

// EventsOf builds a canned event sequence.
func EventsOf(events ...stream.Event) stream.Events {
	return func(yield func(stream.Event) bool) {
		for _, ev := range events {
			if !yield(ev) {
				return
			}
		}
	}
}

// MockRegistry implements tools.Registry. Execution order is recorded in
// Calls; behavior per tool is scripted via ExecuteFunc.
type MockRegistry struct {
	Tools       []mcptypes.Tool
	ExecuteFunc func(ctx context.Context, name string, args map[string]any) (*mcptypes.CallToolResult, error)

	Calls []string
}

func (m *MockRegistry) ListTools(ctx context.Context) ([]mcptypes.Tool, error) {
	return m.Tools, nil
}

func (m *MockRegistry) Execute(ctx context.Context, name string, args map[string]any) (*mcptypes.CallToolResult, error) {
	m.Calls = append(m.Calls, name)
	if m.ExecuteFunc != nil {
		return m.ExecuteFunc(ctx, name, args)
	}
	return mcptypes.NewToolResultText(fmt.Sprintf("%s executed", name)), nil
}
