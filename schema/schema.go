package schema

import (
	"encoding/json"
	"time"
)

// Role defines message roles.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
	RoleTool      Role = "tool"
)

// Message represents a chat message exchanged with a model.
type Message struct {
	Role       Role       `json:"role"`
	Content    string     `json:"content,omitempty"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
}

// SystemMessage builds a system message.
func SystemMessage(content string) Message {
	return Message{Role: RoleSystem, Content: content}
}

// UserMessage builds a user message.
func UserMessage(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

// AssistantMessage builds an assistant message.
func AssistantMessage(content string, calls ...ToolCall) Message {
	return Message{Role: RoleAssistant, Content: content, ToolCalls: calls}
}

// ToolMessage builds a tool result message correlated to a prior call.
func ToolMessage(callID, content string) Message {
	return Message{Role: RoleTool, Content: content, ToolCallID: callID}
}

// ToolCall is the unit a model emits: a tool name plus an untyped JSON
// argument object. Each tool parses Args itself, substituting safe defaults
// for missing or mistyped optional fields.
type ToolCall struct {
	ID   string          `json:"id"`
	Name string          `json:"name"`
	Args json.RawMessage `json:"args,omitempty"`
}

// ImagePayload carries inline visual output for vision-capable consumers.
type ImagePayload struct {
	Base64   string `json:"base64"`
	MIMEType string `json:"mime_type"`
}

// ToolExecutionResult is the normalized outcome of one tool call. Exactly one
// of Text (on success) or Error (on failure) is meaningful. DurationMS covers
// the full call, including time spent waiting on a human.
type ToolExecutionResult struct {
	ToolCallID string        `json:"tool_call_id"`
	ToolName   string        `json:"tool_name"`
	Success    bool          `json:"success"`
	Text       string        `json:"text,omitempty"`
	Error      string        `json:"error,omitempty"`
	DurationMS int64         `json:"duration_ms"`
	Image      *ImagePayload `json:"image,omitempty"`
}

// Duration returns the recorded wall-clock duration.
func (r ToolExecutionResult) Duration() time.Duration {
	return time.Duration(r.DurationMS) * time.Millisecond
}

// Summary returns the human-facing text of the result regardless of outcome.
func (r ToolExecutionResult) Summary() string {
	if r.Success {
		return r.Text
	}
	return r.Error
}
