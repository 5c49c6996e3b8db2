// Package policy gates tool calls through an OPA rego policy. The default
// policy sends shell execution through human approval; operators can replace
// it wholesale with their own rules.
package policy

import (
	"context"
	"fmt"

	"github.com/open-policy-agent/opa/rego"
)

// Decisions a policy evaluation can return.
const (
	DecisionAllow           = "allow"
	DecisionRequireApproval = "require_approval"
	DecisionBlock           = "block"
)

// Input is what the policy sees for one tool call.
type Input struct {
	ToolName        string
	Args            map[string]any
	CommandApproval bool
}

// Engine evaluates tool calls against a prepared rego query.
type Engine struct {
	query rego.PreparedEvalQuery
}

// NewEngine compiles the policy source and prepares it for evaluation.
func NewEngine(ctx context.Context, source string) (*Engine, error) {
	r := rego.New(
		rego.Query("data.pilot.gate.decision"),
		rego.Module("pilot_gate.rego", source),
	)
	query, err := r.PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("prepare policy: %w", err)
	}
	return &Engine{query: query}, nil
}

// Evaluate returns the decision for one tool call. An empty result set falls
// back to allow; a policy that says nothing about a tool does not block it.
func (e *Engine) Evaluate(ctx context.Context, input Input) (string, error) {
	in := map[string]any{
		"tool_name":        input.ToolName,
		"args":             input.Args,
		"command_approval": input.CommandApproval,
	}
	results, err := e.query.Eval(ctx, rego.EvalInput(in))
	if err != nil {
		return "", fmt.Errorf("evaluate policy: %w", err)
	}
	if len(results) == 0 || len(results[0].Expressions) == 0 {
		return DecisionAllow, nil
	}
	if s, ok := results[0].Expressions[0].Value.(string); ok {
		return s, nil
	}
	return DecisionAllow, nil
}

// DefaultPolicy is the policy compiled when the operator supplies none.
const DefaultPolicy = `
package pilot.gate

default decision = "allow"

# Arbitrary shell execution waits for a human while the approval toggle is on.
decision = "require_approval" {
	input.tool_name == "run_command"
	input.command_approval
}
`
