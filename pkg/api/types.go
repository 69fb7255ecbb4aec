package api

import (
	"encoding/json"
	"time"
)

// Role identifies the author of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Message is a single conversation turn. Messages are immutable once
// constructed; an ordered slice of them forms a conversation.
type Message struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	ID        string    `json:"id,omitempty"`
	Timestamp time.Time `json:"timestamp,omitzero"`
}

// ToolDefinition describes a function the backend may ask the caller to
// execute. Names must be unique within a single request.
type ToolDefinition struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Parameters  json.RawMessage `json:"parameters,omitempty"`
}

// ToolInvocationRequest is a complete, validated tool call reconstructed
// from stream deltas. Arguments is always well-formed JSON; partial
// fragments never surface here.
type ToolInvocationRequest struct {
	ID        string          `json:"id,omitempty"`
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

// ToolChoice controls how the backend selects tools: "auto", "none",
// "required", or a specific function name.
type ToolChoice struct {
	Mode     string `json:"mode,omitempty"`
	Function string `json:"function,omitempty"`
}

// CompletionRequest is the canonical request shape accepted by every
// provider adapter. Legacy call shapes are normalized into this type at
// the boundary (see NormalizeLegacyRequest).
type CompletionRequest struct {
	Messages    []Message        `json:"messages"`
	Model       string           `json:"model"`
	Temperature *float64         `json:"temperature,omitempty"`
	MaxTokens   *int             `json:"max_tokens,omitempty"`
	Tools       []ToolDefinition `json:"tools,omitempty"`
	ToolChoice  *ToolChoice      `json:"tool_choice,omitempty"`
	Stream      bool             `json:"stream,omitempty"`
}

// Usage reports token counts for a completion.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// CompletionResult is the final outcome of a completion, whether produced
// by a single round trip or collected from a stream.
type CompletionResult struct {
	ID           string                  `json:"id"`
	Model        string                  `json:"model"`
	Content      string                  `json:"content"`
	FinishReason string                  `json:"finish_reason"`
	Usage        *Usage                  `json:"usage,omitempty"`
	ToolCalls    []ToolInvocationRequest `json:"tool_calls,omitempty"`
}

// ModelInfo describes a model served by a provider.
type ModelInfo struct {
	ID      string `json:"id"`
	OwnedBy string `json:"owned_by,omitempty"`
}
