// Package llm is the model boundary: one request with history and tool
// specs in, one assistant message out. Provider differences stay behind the
// litellm adapter.
package llm

import (
	"context"

	"github.com/voocel/pilot/schema"
)

// ChatModel is the unified model interface the run loop depends on.
type ChatModel interface {
	Generate(ctx context.Context, req *Request) (*Response, error)
	SupportsTools() bool
	Info() ModelInfo
}

// Request encapsulates a single generation request.
type Request struct {
	Messages    []schema.Message `json:"messages"`
	Tools       []ToolSpec       `json:"tools,omitempty"`
	Temperature float64          `json:"temperature,omitempty"`
	MaxTokens   int              `json:"max_tokens,omitempty"`
}

// Response encapsulates model output and metadata.
type Response struct {
	Message      schema.Message `json:"message"`
	Usage        TokenUsage     `json:"usage"`
	FinishReason string         `json:"finish_reason"`
}

// ToolSpec describes a callable tool the model may invoke.
type ToolSpec struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

// TokenUsage statistics.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// ModelInfo basic model information.
type ModelInfo struct {
	Name     string `json:"name"`
	Provider string `json:"provider"`
}
