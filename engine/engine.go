// Package engine defines the boundary to local on-device inference engines.
//
// Engines guarantee no cross-turn memory: callers create a fresh Session for
// every turn, replay the conversation as ordered context chunks, then
// generate. The session handle is exclusively owned by its creator and must
// never be shared between turns.
package engine

import (
	"context"
	"iter"

	mcptypes "github.com/mark3labs/mcp-go/mcp"
)

// SessionConfig carries sampling parameters and tool descriptors for one
// generation session.
type SessionConfig struct {
	Model       string
	Temperature float64
	TopK        int
	TokenBuffer int
	Seed        int
	Tools       []mcptypes.Tool
}

// TokenKind tags the native response variants an engine can produce.
type TokenKind int

const (
	TokenText TokenKind = iota
	TokenThinking
	TokenToolCall
)

// Token is one native engine response piece. ToolName and ToolArgs are set
// only for TokenToolCall; engines surface tool arguments already structured.
type Token struct {
	Kind     TokenKind
	Text     string
	ToolName string
	ToolArgs map[string]any
}

// Engine creates single-turn generation sessions.
type Engine interface {
	NewSession(ctx context.Context, cfg SessionConfig) (Session, error)
}

// Session is one turn's inference context. AddChunk submits context in
// conversation order; Generate may be driven once, after all chunks. The
// returned sequence yields tokens until the engine finishes, or one non-nil
// error if generation fails. Close releases engine resources.
type Session interface {
	AddChunk(ctx context.Context, role, content string) error
	Generate(ctx context.Context) iter.Seq2[Token, error]
	Close() error
}
