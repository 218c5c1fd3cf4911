// Package provider implements the backend adapters behind one Provider
// contract: a remote OpenAI-wire SSE backend, a local inference engine, and
// Anthropic's native streaming API.
//
// Adapters translate a per-turn request context into one backend request and
// hand back the decoded protocol event stream. All provider-specific wire
// handling stays inside this package; the session orchestrator only ever
// sees stream.Event values.
package provider

import (
	"context"

	"tandem/model"
	"tandem/stream"
)

// Provider is the contract the session orchestrator drives. OpenStream
// builds the backend-specific request for one turn and returns the decoded
// event sequence; an error return means the stream never opened (a
// transport failure). In-stream failures arrive as StreamError events.
//
// The returned sequence owns the underlying connection or engine session:
// exhausting or abandoning it releases the resource.
type Provider interface {
	Name() string
	Model() string
	SetModel(model string)
	OpenStream(ctx context.Context, req *model.Request) (stream.Events, error)
	Ping(ctx context.Context) error
}

// Type identifies the provider implementation.
type Type string

const (
	TypeRemote    Type = "remote"
	TypeLocal     Type = "local"
	TypeAnthropic Type = "anthropic"
)

// Config holds provider-specific configuration.
type Config struct {
	Type    Type
	BaseURL string
	Model   string
	APIKey  string // unused for the local engine
}
