package runner

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/voocel/pilot/llm"
	"github.com/voocel/pilot/schema"
)

type fakeModel struct {
	mu        sync.Mutex
	responses []*llm.Response
	err       error
	requests  []*llm.Request
}

func (m *fakeModel) Generate(_ context.Context, req *llm.Request) (*llm.Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	snapshot := *req
	snapshot.Messages = append([]schema.Message(nil), req.Messages...)
	m.requests = append(m.requests, &snapshot)
	if m.err != nil {
		return nil, m.err
	}
	if len(m.responses) == 0 {
		return nil, errors.New("fake model has no scripted response")
	}
	resp := m.responses[0]
	if len(m.responses) > 1 {
		m.responses = m.responses[1:]
	}
	return resp, nil
}

func (m *fakeModel) SupportsTools() bool { return true }

func (m *fakeModel) Info() llm.ModelInfo { return llm.ModelInfo{Name: "fake", Provider: "test"} }

func (m *fakeModel) requestCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}

func (m *fakeModel) request(i int) *llm.Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.requests[i]
}

type fakeExecutor struct {
	mu      sync.Mutex
	calls   []schema.ToolCall
	failOn  string
	replies map[string]string
}

func (e *fakeExecutor) Execute(_ context.Context, call schema.ToolCall) schema.ToolExecutionResult {
	e.mu.Lock()
	e.calls = append(e.calls, call)
	e.mu.Unlock()

	result := schema.ToolExecutionResult{ToolCallID: call.ID, ToolName: call.Name}
	if call.Name == e.failOn {
		result.Error = "deliberate failure"
		return result
	}
	result.Success = true
	if e.replies != nil {
		result.Text = e.replies[call.Name]
	}
	if result.Text == "" {
		result.Text = "done"
	}
	return result
}

func (e *fakeExecutor) Specs() []llm.ToolSpec {
	return []llm.ToolSpec{{Name: schema.ToolLaunchApp, Description: "launch", Parameters: map[string]any{"type": "object"}}}
}

func (e *fakeExecutor) recorded() []schema.ToolCall {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]schema.ToolCall, len(e.calls))
	copy(out, e.calls)
	return out
}

func textResponse(content string) *llm.Response {
	return &llm.Response{
		Message:      schema.Message{Role: schema.RoleAssistant, Content: content},
		FinishReason: "stop",
	}
}

func toolResponse(calls ...schema.ToolCall) *llm.Response {
	return &llm.Response{
		Message:      schema.Message{Role: schema.RoleAssistant, ToolCalls: calls},
		FinishReason: "tool_calls",
	}
}

func tc(id, name, args string) schema.ToolCall {
	return schema.ToolCall{ID: id, Name: name, Args: json.RawMessage(args)}
}

func TestRunPlainAnswer(t *testing.T) {
	model := &fakeModel{responses: []*llm.Response{textResponse("All set.")}}
	r := New(Config{Model: model, Executor: &fakeExecutor{}})

	answer, err := r.Run(context.Background(), "are you there?")
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if answer != "All set." {
		t.Errorf("Expected answer, got %q", answer)
	}

	history := r.History()
	if len(history) != 2 {
		t.Fatalf("Expected 2 history messages, got %d", len(history))
	}
	if history[0].Role != schema.RoleUser || history[1].Role != schema.RoleAssistant {
		t.Errorf("Expected user then assistant, got %v then %v", history[0].Role, history[1].Role)
	}
}

func TestRunExecutesToolCallsInOrder(t *testing.T) {
	model := &fakeModel{responses: []*llm.Response{
		toolResponse(
			tc("call_1", schema.ToolLaunchApp, `{"name":"firefox"}`),
			tc("call_2", schema.ToolClickMouse, `{"x":10,"y":20}`),
		),
		textResponse("Opened the browser."),
	}}
	exec := &fakeExecutor{replies: map[string]string{schema.ToolLaunchApp: "Launched firefox."}}
	r := New(Config{Model: model, Executor: exec})

	answer, err := r.Run(context.Background(), "open firefox and click")
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if answer != "Opened the browser." {
		t.Errorf("Expected final answer, got %q", answer)
	}

	calls := exec.recorded()
	if len(calls) != 2 {
		t.Fatalf("Expected 2 executed calls, got %d", len(calls))
	}
	if calls[0].ID != "call_1" || calls[1].ID != "call_2" {
		t.Errorf("Expected sequential order call_1, call_2; got %s, %s", calls[0].ID, calls[1].ID)
	}

	// The second model request must carry the tool results.
	if model.requestCount() != 2 {
		t.Fatalf("Expected 2 model requests, got %d", model.requestCount())
	}
	second := model.request(1)
	var toolMsgs []schema.Message
	for _, msg := range second.Messages {
		if msg.Role == schema.RoleTool {
			toolMsgs = append(toolMsgs, msg)
		}
	}
	if len(toolMsgs) != 2 {
		t.Fatalf("Expected 2 tool messages in second request, got %d", len(toolMsgs))
	}
	if toolMsgs[0].ToolCallID != "call_1" || toolMsgs[0].Content != "Launched firefox." {
		t.Errorf("Unexpected first tool message: %+v", toolMsgs[0])
	}
}

func TestRunFeedsFailuresBack(t *testing.T) {
	model := &fakeModel{responses: []*llm.Response{
		toolResponse(tc("call_1", schema.ToolRunCommand, `{"command":"false"}`)),
		textResponse("The command failed; I will try another way."),
	}}
	exec := &fakeExecutor{failOn: schema.ToolRunCommand}
	r := New(Config{Model: model, Executor: exec})

	if _, err := r.Run(context.Background(), "run it"); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	second := model.request(1)
	found := false
	for _, msg := range second.Messages {
		if msg.Role == schema.RoleTool && strings.Contains(msg.Content, "Error: deliberate failure") {
			found = true
		}
	}
	if !found {
		t.Error("Expected the failure text in a tool message")
	}
}

func TestRunStopsAtMaxTurns(t *testing.T) {
	model := &fakeModel{responses: []*llm.Response{
		toolResponse(tc("call_x", schema.ToolWait, `{}`)),
	}}
	r := New(Config{Model: model, Executor: &fakeExecutor{}, MaxTurns: 3})

	_, err := r.Run(context.Background(), "loop forever")
	if !errors.Is(err, ErrMaxTurns) {
		t.Fatalf("Expected ErrMaxTurns, got %v", err)
	}
	if model.requestCount() != 3 {
		t.Errorf("Expected exactly 3 model requests, got %d", model.requestCount())
	}
}

func TestRunPropagatesModelError(t *testing.T) {
	model := &fakeModel{err: errors.New("rate limited")}
	r := New(Config{Model: model, Executor: &fakeExecutor{}})

	_, err := r.Run(context.Background(), "hello")
	if err == nil || !strings.Contains(err.Error(), "rate limited") {
		t.Errorf("Expected model error, got %v", err)
	}
}

func TestRunCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	model := &fakeModel{responses: []*llm.Response{textResponse("never")}}
	r := New(Config{Model: model, Executor: &fakeExecutor{}})

	_, err := r.Run(ctx, "hello")
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}

func TestSystemPromptLeadsEveryRequest(t *testing.T) {
	model := &fakeModel{responses: []*llm.Response{textResponse("hi")}}
	r := New(Config{Model: model, Executor: &fakeExecutor{}, SystemPrompt: "You are a careful operator."})

	if _, err := r.Run(context.Background(), "hello"); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	first := model.request(0)
	if len(first.Messages) == 0 || first.Messages[0].Role != schema.RoleSystem {
		t.Fatal("Expected a leading system message")
	}
	if first.Messages[0].Content != "You are a careful operator." {
		t.Errorf("Expected custom prompt, got %q", first.Messages[0].Content)
	}
	if len(first.Tools) != 1 || first.Tools[0].Name != schema.ToolLaunchApp {
		t.Errorf("Expected executor specs on the request, got %+v", first.Tools)
	}
}

func TestTrimPreservesTurnBoundaries(t *testing.T) {
	responses := make([]*llm.Response, 0, 12)
	for i := 0; i < 12; i++ {
		responses = append(responses, textResponse(fmt.Sprintf("answer %d", i)))
	}
	model := &fakeModel{responses: responses}
	r := New(Config{Model: model, Executor: &fakeExecutor{}, HistoryLimit: 5})

	for i := 0; i < 12; i++ {
		if _, err := r.Run(context.Background(), fmt.Sprintf("question %d", i)); err != nil {
			t.Fatalf("Run %d failed: %v", i, err)
		}
	}

	history := r.History()
	if len(history) > 5 {
		t.Errorf("Expected history capped at 5, got %d", len(history))
	}
	if history[0].Role != schema.RoleUser {
		t.Errorf("Expected trimmed history to start on a user message, got %v", history[0].Role)
	}
}

func TestTranscriptRoundTrip(t *testing.T) {
	model := &fakeModel{responses: []*llm.Response{textResponse("saved")}}
	r := New(Config{Model: model, Executor: &fakeExecutor{}})
	if _, err := r.Run(context.Background(), "remember this"); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	store := NewMemoryTranscripts()
	snap := r.Snapshot("sess-1")
	if err := store.Save(context.Background(), snap); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := store.Load(context.Background(), "sess-1")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(loaded.Messages) != 2 {
		t.Fatalf("Expected 2 messages, got %d", len(loaded.Messages))
	}

	// Mutating the loaded copy must not reach the stored transcript.
	loaded.Messages[0].Content = "tampered"
	again, err := store.Load(context.Background(), "sess-1")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if again.Messages[0].Content == "tampered" {
		t.Error("Expected stored transcript isolated from loaded copies")
	}

	restored := New(Config{Model: model, Executor: &fakeExecutor{}})
	restored.Restore(loaded.Messages)
	if got := restored.History(); len(got) != 2 || got[1].Content != "saved" {
		t.Errorf("Expected restored history, got %+v", got)
	}

	if _, err := store.Load(context.Background(), "missing"); err == nil {
		t.Error("Expected error for unknown session")
	}
}

func TestFileTranscriptsRoundTrip(t *testing.T) {
	store, err := NewFileTranscripts(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileTranscripts failed: %v", err)
	}

	snap := Transcript{
		SessionID: "sess/one",
		Messages: []schema.Message{
			schema.UserMessage("remember this"),
			schema.AssistantMessage("saved"),
		},
	}
	if err := store.Save(context.Background(), snap); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := store.Load(context.Background(), "sess/one")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(loaded.Messages) != 2 || loaded.Messages[1].Content != "saved" {
		t.Errorf("Expected saved messages back, got %+v", loaded.Messages)
	}

	// A second save for the same session replaces the first.
	snap.Messages = append(snap.Messages, schema.UserMessage("more"))
	if err := store.Save(context.Background(), snap); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	loaded, err = store.Load(context.Background(), "sess/one")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(loaded.Messages) != 3 {
		t.Errorf("Expected 3 messages after resave, got %d", len(loaded.Messages))
	}

	if _, err := store.Load(context.Background(), "missing"); !errors.Is(err, ErrTranscriptNotFound) {
		t.Errorf("Expected ErrTranscriptNotFound, got %v", err)
	}
	if err := store.Save(context.Background(), Transcript{}); err == nil {
		t.Error("Expected error for empty session id")
	}
}
