package model

import "time"

// Roles shared by every backend wire format.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// Attachment is an opaque reference to content supplied alongside a prompt.
// The engine never interprets attachments; adapters forward them as-is.
type Attachment struct {
	Name string
	URI  string
}

// Message represents a single conversation turn entry.
type Message struct {
	Role        string
	Content     string
	Attachments []Attachment
	Timestamp   time.Time
}

// ToolCall is a finalized tool invocation decoded from a response stream.
type ToolCall struct {
	ID        string
	Name      string
	Arguments map[string]any
}

// ToolResult records the outcome of executing one tool call.
type ToolResult struct {
	ToolName string
	Success  bool
	Content  string
	Err      string
}

// SamplingConfig carries generation parameters for one turn. TokenBuffer
// bounds the response length (max_tokens on the remote wire, num_predict on
// the local engine). A zero Seed means the adapter picks one per turn.
type SamplingConfig struct {
	Temperature float64
	TopK        int
	TokenBuffer int
	Seed        int
}
