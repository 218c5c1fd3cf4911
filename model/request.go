package model

import (
	mcptypes "github.com/mark3labs/mcp-go/mcp"
)

// Request is the per-turn provider request context. It is rebuilt for every
// turn and never persisted: neither backend guarantees cross-turn session
// memory, so the replay set must carry all prior context. History holds the
// prior turns only; the current prompt travels separately and is sent
// exactly once.
type Request struct {
	SystemPrompt string
	History      []Message
	Prompt       string
	Attachments  []Attachment
	Sampling     SamplingConfig
	Tools        []mcptypes.Tool
}
