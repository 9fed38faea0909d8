// Package llm normalizes the chat-completion APIs of the supported model
// vendors behind a single Provider interface with function calling.
package llm

import (
	"context"
	"encoding/json"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// ToolCall is a function invocation requested by the model. Arguments is the
// raw JSON object the model produced.
type ToolCall struct {
	ID        string
	Name      string
	Arguments json.RawMessage
}

// Message is one turn of the conversation sent to a provider. Assistant turns
// may carry ToolCalls; tool turns carry the ToolCallID they answer.
type Message struct {
	Role       Role
	Content    string
	ToolCallID string
	ToolCalls  []ToolCall
}

// ToolDef declares a function the model may call. Parameters is a JSON
// Schema object.
type ToolDef struct {
	Name        string
	Description string
	Parameters  map[string]interface{}
}

// Request is a provider-agnostic completion request.
type Request struct {
	Model       string
	System      string
	Messages    []Message
	Tools       []ToolDef
	Temperature float64
	MaxTokens   int64
}

// Result is the normalized completion. A result may carry text, tool calls,
// or both.
type Result struct {
	Text      string
	ToolCalls []ToolCall
}

// Provider generates one completion. Implementations must be safe for
// concurrent use.
type Provider interface {
	Generate(ctx context.Context, req Request) (*Result, error)
	Name() string
}
