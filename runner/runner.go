// Package runner drives the conversation loop: send the history to the
// model, execute whatever tool calls come back one at a time, feed the
// results in, and repeat until the model answers in plain text.
package runner

import (
	"context"
	"fmt"
	"sync"

	"github.com/voocel/pilot/llm"
	"github.com/voocel/pilot/logx"
	"github.com/voocel/pilot/schema"
)

// ErrMaxTurns reports a run that was still issuing tool calls when the turn
// budget ran out.
var ErrMaxTurns = fmt.Errorf("run reached the maximum number of turns")

// ToolExecutor executes one tool call and advertises the available tools.
type ToolExecutor interface {
	Execute(ctx context.Context, call schema.ToolCall) schema.ToolExecutionResult
	Specs() []llm.ToolSpec
}

// Config controls Runner behavior.
type Config struct {
	Model    llm.ChatModel
	Executor ToolExecutor

	// SystemPrompt is prepended to every model request. Empty means the
	// default operator prompt.
	SystemPrompt string

	// MaxTurns caps model invocations per Run call.
	MaxTurns int

	// HistoryLimit caps retained messages. Trimming happens at turn
	// boundaries so tool results never lose the assistant message that
	// requested them.
	HistoryLimit int
}

const (
	defaultMaxTurns     = 16
	defaultHistoryLimit = 200
)

// DefaultSystemPrompt is used when Config.SystemPrompt is empty.
const DefaultSystemPrompt = `You are operating a Linux desktop inside a virtual machine on the user's behalf.
Work in small steps: look at the screen state before acting, prefer keyboard input over pixel-precise clicks, and verify the effect of each action.
Never guess credentials; call fetch_credentials and type the placeholders exactly as given.
When you are unsure what the user wants, ask before acting.`

// Runner owns one conversation with the model. Run calls are serialized; the
// history persists across them until Reset.
type Runner struct {
	cfg Config

	mu      sync.Mutex
	history []schema.Message
}

// New creates a Runner and fills default config.
func New(cfg Config) *Runner {
	if cfg.MaxTurns <= 0 {
		cfg.MaxTurns = defaultMaxTurns
	}
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = defaultHistoryLimit
	}
	if cfg.SystemPrompt == "" {
		cfg.SystemPrompt = DefaultSystemPrompt
	}
	return &Runner{cfg: cfg}
}

// Run appends the user's input to the conversation and loops until the model
// produces a plain-text answer, a turn runs out of budget, or ctx ends.
func (r *Runner) Run(ctx context.Context, input string) (string, error) {
	if r.cfg.Model == nil {
		return "", fmt.Errorf("runner has no model")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.history = append(r.history, schema.UserMessage(input))

	var specs []llm.ToolSpec
	if r.cfg.Executor != nil {
		specs = r.cfg.Executor.Specs()
	}

	for turn := 0; turn < r.cfg.MaxTurns; turn++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		resp, err := r.cfg.Model.Generate(ctx, &llm.Request{
			Messages: r.requestMessages(),
			Tools:    specs,
		})
		if err != nil {
			return "", fmt.Errorf("model request failed: %w", err)
		}
		r.history = append(r.history, resp.Message)
		logx.Log.Debug().
			Int("turn", turn).
			Int("tool_calls", len(resp.Message.ToolCalls)).
			Int("tokens", resp.Usage.TotalTokens).
			Msg("model turn")

		if len(resp.Message.ToolCalls) == 0 {
			r.trim()
			return resp.Message.Content, nil
		}
		if r.cfg.Executor == nil {
			return "", fmt.Errorf("model issued tool calls but no executor is configured")
		}

		// Strictly sequential: each result can change what the next call
		// should do, and the guest has one keyboard and one mouse.
		for _, call := range resp.Message.ToolCalls {
			if err := ctx.Err(); err != nil {
				return "", err
			}
			result := r.cfg.Executor.Execute(ctx, call)
			r.history = append(r.history, toolMessage(result))
		}
		r.trim()
	}

	return "", ErrMaxTurns
}

// toolMessage converts an execution result into the message the model reads.
func toolMessage(result schema.ToolExecutionResult) schema.Message {
	content := result.Text
	if !result.Success {
		content = "Error: " + result.Error
	} else if content == "" {
		content = "OK"
	}
	return schema.ToolMessage(result.ToolCallID, content)
}

func (r *Runner) requestMessages() []schema.Message {
	msgs := make([]schema.Message, 0, len(r.history)+1)
	msgs = append(msgs, schema.SystemMessage(r.cfg.SystemPrompt))
	msgs = append(msgs, r.history...)
	return msgs
}

// trim drops the oldest turns once the history exceeds its limit. The cut
// always lands on a user message so no tool result is ever orphaned from the
// assistant message that requested it.
func (r *Runner) trim() {
	if len(r.history) <= r.cfg.HistoryLimit {
		return
	}
	start := len(r.history) - r.cfg.HistoryLimit
	for start < len(r.history) && r.history[start].Role != schema.RoleUser {
		start++
	}
	if start >= len(r.history) {
		// A single oversized turn; keep it whole rather than tear it.
		return
	}
	r.history = append([]schema.Message(nil), r.history[start:]...)
}

// History returns a copy of the conversation so far, without the system
// prompt.
func (r *Runner) History() []schema.Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]schema.Message, len(r.history))
	copy(out, r.history)
	return out
}

// Reset clears the conversation.
func (r *Runner) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.history = nil
}

// Restore replaces the conversation with a previously saved transcript.
func (r *Runner) Restore(messages []schema.Message) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.history = cloneMessages(messages)
}
