package pilot

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/voocel/pilot/hitl"
	"github.com/voocel/pilot/llm"
	"github.com/voocel/pilot/schema"
)

type stubGuest struct {
	typed    []string
	launched []string
	commands []string
}

func (g *stubGuest) Connected() bool                                   { return true }
func (g *stubGuest) MoveMouse(ctx context.Context, x, y float64) error { return nil }
func (g *stubGuest) ClickMouse(ctx context.Context, p schema.ClickMouseParams) error {
	return nil
}
func (g *stubGuest) DragMouse(ctx context.Context, p schema.DragMouseParams) error { return nil }
func (g *stubGuest) TypeText(ctx context.Context, text string) error {
	g.typed = append(g.typed, text)
	return nil
}
func (g *stubGuest) PressKey(ctx context.Context, p schema.PressKeyParams) error { return nil }
func (g *stubGuest) Scroll(ctx context.Context, p schema.ScrollParams) error     { return nil }
func (g *stubGuest) RunCommand(ctx context.Context, command string, timeout time.Duration) (schema.CommandResult, error) {
	g.commands = append(g.commands, command)
	return schema.CommandResult{Output: "ok", ExitCode: 0}, nil
}
func (g *stubGuest) ReadFile(ctx context.Context, path string) (schema.FileContent, error) {
	return schema.FileContent{Text: "content"}, nil
}
func (g *stubGuest) MoveFile(ctx context.Context, source, destination string) error { return nil }
func (g *stubGuest) OpenFile(ctx context.Context, path string) error                { return nil }
func (g *stubGuest) LaunchApp(ctx context.Context, name string, args []string) error {
	g.launched = append(g.launched, name)
	return nil
}
func (g *stubGuest) Wait(ctx context.Context, d time.Duration) error { return nil }
func (g *stubGuest) ReadAccessibilityTree(ctx context.Context) (schema.AXNode, error) {
	return schema.AXNode{Role: "desktop"}, nil
}
func (g *stubGuest) CheckHealth(ctx context.Context) (schema.HealthReport, error) {
	return schema.HealthReport{Status: "ok", ProtocolVersion: schema.ProtocolVersion}, nil
}

type scriptedModel struct {
	responses []*llm.Response
	calls     int
}

func (m *scriptedModel) Generate(ctx context.Context, req *llm.Request) (*llm.Response, error) {
	if m.calls >= len(m.responses) {
		return m.responses[len(m.responses)-1], nil
	}
	resp := m.responses[m.calls]
	m.calls++
	return resp, nil
}

func (m *scriptedModel) SupportsTools() bool { return true }
func (m *scriptedModel) Info() llm.ModelInfo { return llm.ModelInfo{Name: "scripted"} }

func say(text string) *llm.Response {
	return &llm.Response{Message: schema.AssistantMessage(text)}
}

func callTool(name, args string) *llm.Response {
	msg := schema.Message{
		Role: schema.RoleAssistant,
		ToolCalls: []schema.ToolCall{
			{ID: "call-1", Name: name, Args: json.RawMessage(args)},
		},
	}
	return &llm.Response{Message: msg}
}

func TestSessionRunDrivesGuest(t *testing.T) {
	guest := &stubGuest{}
	model := &scriptedModel{responses: []*llm.Response{
		callTool(schema.ToolTypeText, `{"text":"hello"}`),
		say("typed it"),
	}}

	s, err := NewSession(context.Background(), WithModel(model), WithGuest(guest))
	if err != nil {
		t.Fatalf("NewSession returned error: %v", err)
	}
	defer s.Close()

	answer, err := s.Run(context.Background(), "type hello")
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if answer != "typed it" {
		t.Errorf("Expected final answer, got %q", answer)
	}
	if len(guest.typed) != 1 || guest.typed[0] != "hello" {
		t.Errorf("Expected guest to type hello, got %v", guest.typed)
	}
	if len(s.History()) == 0 {
		t.Error("Expected history after a run")
	}
}

func TestSessionRunWithoutModel(t *testing.T) {
	s, err := NewSession(context.Background(), WithGuest(&stubGuest{}))
	if err != nil {
		t.Fatalf("NewSession returned error: %v", err)
	}
	defer s.Close()

	if _, err := s.Run(context.Background(), "hi"); !errors.Is(err, ErrNoModel) {
		t.Errorf("Expected ErrNoModel, got %v", err)
	}
}

func TestSessionExecuteDirect(t *testing.T) {
	guest := &stubGuest{}
	s, err := NewSession(context.Background(), WithGuest(guest))
	if err != nil {
		t.Fatalf("NewSession returned error: %v", err)
	}
	defer s.Close()

	res := s.Execute(context.Background(), schema.ToolCall{
		ID:   "c1",
		Name: schema.ToolLaunchApp,
		Args: json.RawMessage(`{"name":"firefox"}`),
	})
	if !res.Success {
		t.Fatalf("Expected success, got error %q", res.Error)
	}
	if len(guest.launched) != 1 || guest.launched[0] != "firefox" {
		t.Errorf("Expected firefox launch, got %v", guest.launched)
	}
}

func TestSessionCommandWaitsForApproval(t *testing.T) {
	guest := &stubGuest{}
	s, err := NewSession(context.Background(), WithGuest(guest))
	if err != nil {
		t.Fatalf("NewSession returned error: %v", err)
	}
	defer s.Close()

	done := make(chan schema.ToolExecutionResult, 1)
	go func() {
		done <- s.Execute(context.Background(), schema.ToolCall{
			ID:   "c1",
			Name: schema.ToolRunCommand,
			Args: json.RawMessage(`{"command":"rm -rf /tmp/scratch"}`),
		})
	}()

	req := waitForPermission(t, s.Center())
	if err := s.Center().Decide(req.ID, hitl.Decision{Approved: true}); err != nil {
		t.Fatalf("Decide returned error: %v", err)
	}

	res := <-done
	if !res.Success {
		t.Fatalf("Expected approved command to run, got error %q", res.Error)
	}
	if len(guest.commands) != 1 {
		t.Errorf("Expected one command on the guest, got %v", guest.commands)
	}
}

func TestSessionCommandApprovalDisabled(t *testing.T) {
	guest := &stubGuest{}
	s, err := NewSession(context.Background(), WithGuest(guest), WithCommandApproval(false))
	if err != nil {
		t.Fatalf("NewSession returned error: %v", err)
	}
	defer s.Close()

	res := s.Execute(context.Background(), schema.ToolCall{
		ID:   "c1",
		Name: schema.ToolRunCommand,
		Args: json.RawMessage(`{"command":"uptime"}`),
	})
	if !res.Success {
		t.Fatalf("Expected command to run without approval, got error %q", res.Error)
	}
	if s.Center().PendingCount() != 0 {
		t.Errorf("Expected no pending interactions, got %d", s.Center().PendingCount())
	}
}

func TestSessionConnectNeedsEndpoint(t *testing.T) {
	s, err := NewSession(context.Background())
	if err != nil {
		t.Fatalf("NewSession returned error: %v", err)
	}
	defer s.Close()

	if err := s.Connect(context.Background()); err == nil {
		t.Error("Expected Connect to fail without an endpoint")
	}
}

func waitForPermission(t *testing.T, c *hitl.Center) hitl.PermissionRequest {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if req, ok := c.PendingPermission(); ok {
			return req
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("no permission request appeared")
	return hitl.PermissionRequest{}
}
