package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/voocel/litellm"

	"github.com/voocel/pilot/schema"
)

// LiteLLM adapts the litellm client to ChatModel. The provider is inferred
// from the model name so callers configure one string.
type LiteLLM struct {
	client   *litellm.Client
	model    string
	provider string

	temperature float64
	maxTokens   int
}

// Config for the adapter. Temperature and MaxTokens act as request defaults.
type Config struct {
	Model       string
	APIKey      string
	BaseURL     string
	Temperature float64
	MaxTokens   int
}

// NewLiteLLM creates the adapter. The API key is required; BaseURL overrides
// the provider default for gateways and proxies.
func NewLiteLLM(cfg Config) (*LiteLLM, error) {
	if cfg.Model == "" {
		return nil, fmt.Errorf("model is required")
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("API key is required")
	}
	if cfg.Temperature == 0 {
		cfg.Temperature = 0.7
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = 4096
	}

	provider := providerFor(cfg.Model)

	var opt litellm.ClientOption
	switch provider {
	case "anthropic":
		if cfg.BaseURL != "" {
			opt = litellm.WithAnthropic(cfg.APIKey, cfg.BaseURL)
		} else {
			opt = litellm.WithAnthropic(cfg.APIKey)
		}
	case "google":
		if cfg.BaseURL != "" {
			opt = litellm.WithGemini(cfg.APIKey, cfg.BaseURL)
		} else {
			opt = litellm.WithGemini(cfg.APIKey)
		}
	default:
		if cfg.BaseURL != "" {
			opt = litellm.WithOpenAI(cfg.APIKey, cfg.BaseURL)
		} else {
			opt = litellm.WithOpenAI(cfg.APIKey)
		}
	}

	client := litellm.New(opt, litellm.WithDefaults(cfg.MaxTokens, cfg.Temperature))
	return &LiteLLM{
		client:      client,
		model:       cfg.Model,
		provider:    provider,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
	}, nil
}

// Generate implements ChatModel.
func (m *LiteLLM) Generate(ctx context.Context, req *Request) (*Response, error) {
	litellmReq := &litellm.Request{
		Model:    m.model,
		Messages: convertMessages(req.Messages),
		Tools:    convertTools(req.Tools),
	}

	temperature := req.Temperature
	if temperature == 0 {
		temperature = m.temperature
	}
	litellmReq.Temperature = litellm.Float64Ptr(temperature)

	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = m.maxTokens
	}
	litellmReq.MaxTokens = litellm.IntPtr(maxTokens)

	resp, err := m.client.Complete(ctx, litellmReq)
	if err != nil {
		return nil, fmt.Errorf("completion failed: %w", err)
	}
	return convertResponse(resp), nil
}

// SupportsTools implements ChatModel. Every family the adapter recognizes
// does tool calling.
func (m *LiteLLM) SupportsTools() bool {
	return true
}

// Info implements ChatModel.
func (m *LiteLLM) Info() ModelInfo {
	return ModelInfo{Name: m.model, Provider: m.provider}
}

// providerFor infers the provider from the model name.
func providerFor(model string) string {
	switch {
	case strings.HasPrefix(model, "claude"):
		return "anthropic"
	case strings.HasPrefix(model, "gemini"):
		return "google"
	case strings.HasPrefix(model, "gpt"), strings.HasPrefix(model, "o3"), strings.HasPrefix(model, "o4"):
		return "openai"
	default:
		// Unknown names go through the OpenAI-compatible path.
		return "openai"
	}
}

// convertMessages converts conversation history to litellm format.
func convertMessages(messages []schema.Message) []litellm.Message {
	result := make([]litellm.Message, len(messages))
	for i, msg := range messages {
		out := litellm.Message{
			Role:       string(msg.Role),
			Content:    msg.Content,
			ToolCallID: msg.ToolCallID,
		}
		if len(msg.ToolCalls) > 0 {
			out.ToolCalls = make([]litellm.ToolCall, len(msg.ToolCalls))
			for j, tc := range msg.ToolCalls {
				out.ToolCalls[j] = litellm.ToolCall{
					ID:   tc.ID,
					Type: "function",
					Function: litellm.FunctionCall{
						Name:      tc.Name,
						Arguments: string(tc.Args),
					},
				}
			}
		}
		result[i] = out
	}
	return result
}

// convertTools converts tool specs to litellm format.
func convertTools(tools []ToolSpec) []litellm.Tool {
	if len(tools) == 0 {
		return nil
	}
	result := make([]litellm.Tool, len(tools))
	for i, tool := range tools {
		result[i] = litellm.Tool{
			Type: "function",
			Function: litellm.FunctionSchema{
				Name:        tool.Name,
				Description: tool.Description,
				Parameters:  tool.Parameters,
			},
		}
	}
	return result
}

// convertResponse converts the provider reply to our unified shape.
func convertResponse(resp *litellm.Response) *Response {
	msg := schema.Message{
		Role:    schema.RoleAssistant,
		Content: resp.Content,
	}

	finishReason := resp.FinishReason
	if len(resp.ToolCalls) > 0 {
		msg.ToolCalls = make([]schema.ToolCall, len(resp.ToolCalls))
		for i, tc := range resp.ToolCalls {
			args := json.RawMessage(tc.Function.Arguments)
			if len(args) == 0 {
				args = json.RawMessage(`{}`)
			}
			msg.ToolCalls[i] = schema.ToolCall{
				ID:   tc.ID,
				Name: tc.Function.Name,
				Args: args,
			}
		}
		if finishReason == "" {
			finishReason = "tool_calls"
		}
	} else if finishReason == "" {
		finishReason = "stop"
	}

	return &Response{
		Message:      msg,
		FinishReason: finishReason,
		Usage: TokenUsage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		},
	}
}
