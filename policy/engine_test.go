package policy

import (
	"context"
	"testing"
)

func TestDefaultPolicy(t *testing.T) {
	engine, err := NewEngine(context.Background(), DefaultPolicy)
	if err != nil {
		t.Fatalf("NewEngine failed: %v", err)
	}

	tests := []struct {
		name     string
		input    Input
		decision string
	}{
		{
			name:     "command with approval toggle on",
			input:    Input{ToolName: "run_command", Args: map[string]any{"command": "ls"}, CommandApproval: true},
			decision: DecisionRequireApproval,
		},
		{
			name:     "command with approval toggle off",
			input:    Input{ToolName: "run_command", Args: map[string]any{"command": "ls"}, CommandApproval: false},
			decision: DecisionAllow,
		},
		{
			name:     "harmless tool",
			input:    Input{ToolName: "move_mouse", Args: map[string]any{"x": 1.0, "y": 2.0}, CommandApproval: true},
			decision: DecisionAllow,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := engine.Evaluate(context.Background(), tt.input)
			if err != nil {
				t.Fatalf("Evaluate failed: %v", err)
			}
			if got != tt.decision {
				t.Errorf("Expected %s, got %s", tt.decision, got)
			}
		})
	}
}

func TestCustomBlockPolicy(t *testing.T) {
	const src = `
package pilot.gate

default decision = "allow"

decision = "block" {
	input.tool_name == "move_file"
}
`
	engine, err := NewEngine(context.Background(), src)
	if err != nil {
		t.Fatalf("NewEngine failed: %v", err)
	}

	got, err := engine.Evaluate(context.Background(), Input{ToolName: "move_file", Args: map[string]any{"source": "/a", "destination": "/b"}})
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if got != DecisionBlock {
		t.Errorf("Expected block, got %s", got)
	}
}

func TestBadPolicySource(t *testing.T) {
	if _, err := NewEngine(context.Background(), "this is not rego"); err == nil {
		t.Error("expected error for invalid policy source")
	}
}
