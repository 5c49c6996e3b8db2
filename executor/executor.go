// Package executor routes model-issued tool calls to their implementations:
// host tools run in-process, guest tools cross the wire to the agent inside
// the virtual machine. Every call, whatever happens to it, comes back as a
// ToolExecutionResult so the conversation loop never has to branch on
// transport failures, policy refusals, or panics.
package executor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/voocel/pilot/activity"
	"github.com/voocel/pilot/hitl"
	"github.com/voocel/pilot/logx"
	"github.com/voocel/pilot/metrics"
	"github.com/voocel/pilot/policy"
	"github.com/voocel/pilot/remote"
	"github.com/voocel/pilot/schema"
	"github.com/voocel/pilot/secret"
	"github.com/voocel/pilot/tools"
)

const defaultCommandTimeout = 30 * time.Second

// Guest is the transport boundary guest tools dispatch through.
type Guest interface {
	Connected() bool
	MoveMouse(ctx context.Context, x, y float64) error
	ClickMouse(ctx context.Context, p schema.ClickMouseParams) error
	DragMouse(ctx context.Context, p schema.DragMouseParams) error
	TypeText(ctx context.Context, text string) error
	PressKey(ctx context.Context, p schema.PressKeyParams) error
	Scroll(ctx context.Context, p schema.ScrollParams) error
	RunCommand(ctx context.Context, command string, timeout time.Duration) (schema.CommandResult, error)
	ReadFile(ctx context.Context, path string) (schema.FileContent, error)
	MoveFile(ctx context.Context, source, destination string) error
	OpenFile(ctx context.Context, path string) error
	LaunchApp(ctx context.Context, name string, args []string) error
	Wait(ctx context.Context, d time.Duration) error
	ReadAccessibilityTree(ctx context.Context) (schema.AXNode, error)
	CheckHealth(ctx context.Context) (schema.HealthReport, error)
}

var _ Guest = (*remote.Client)(nil)

// Gatekeeper decides whether a guest action may proceed.
type Gatekeeper interface {
	Evaluate(ctx context.Context, in policy.Input) (string, error)
}

var _ Gatekeeper = (*policy.Engine)(nil)

// Options configures an Executor. Guest is mandatory; everything else
// degrades gracefully when absent.
type Options struct {
	Guest    Guest
	Host     *tools.Registry
	Policy   Gatekeeper
	Center   *hitl.Center
	Secrets  secret.Resolver
	Activity *activity.Log

	// CommandApproval gates run_command behind a human decision. The default
	// policy honors it; a custom policy may ignore it.
	CommandApproval bool

	// CommandTimeout bounds run_command calls whose arguments carry no
	// timeout of their own. Zero means 30 seconds.
	CommandTimeout time.Duration
}

// Executor turns schema.ToolCall values into schema.ToolExecutionResult
// values. It is safe for concurrent use, though callers typically execute
// one call at a time.
type Executor struct {
	guest    Guest
	host     *tools.Registry
	policy   Gatekeeper
	center   *hitl.Center
	secrets  secret.Resolver
	activity *activity.Log

	commandApproval bool
	commandTimeout  time.Duration
}

// New builds an Executor from opts.
func New(opts Options) *Executor {
	timeout := opts.CommandTimeout
	if timeout <= 0 {
		timeout = defaultCommandTimeout
	}
	return &Executor{
		guest:           opts.Guest,
		host:            opts.Host,
		policy:          opts.Policy,
		center:          opts.Center,
		secrets:         opts.Secrets,
		activity:        opts.Activity,
		commandApproval: opts.CommandApproval,
		commandTimeout:  timeout,
	}
}

// Execute runs one tool call to completion and returns its normalized
// outcome. It never returns an error and never panics: failures of any kind
// become a failed result the model can read and react to.
func (e *Executor) Execute(ctx context.Context, call schema.ToolCall) schema.ToolExecutionResult {
	start := time.Now()
	result := schema.ToolExecutionResult{ToolCallID: call.ID, ToolName: call.Name}

	e.record(activity.KindToolStart, call.Name, callSummary(call), nil)
	logx.Log.Debug().Str("tool", call.Name).Str("call_id", call.ID).Msg("executing tool call")

	func() {
		defer func() {
			if r := recover(); r != nil {
				result.Success = false
				result.Text = ""
				result.Image = nil
				result.Error = fmt.Sprintf("tool %s panicked: %v", call.Name, r)
			}
		}()
		e.route(ctx, call, &result)
	}()

	elapsed := time.Since(start)
	result.DurationMS = elapsed.Milliseconds()
	metrics.RecordToolExecution(call.Name, result.Success)
	metrics.ObserveToolDuration(call.Name, elapsed)

	if result.Success {
		e.record(activity.KindToolEnd, call.Name, resultSummary(&result), map[string]any{"duration_ms": result.DurationMS})
		logx.Log.Debug().Str("tool", call.Name).Dur("took", elapsed).Msg("tool call finished")
	} else {
		e.record(activity.KindToolError, call.Name, resultSummary(&result), map[string]any{"duration_ms": result.DurationMS})
		logx.Log.Warn().Str("tool", call.Name).Dur("took", elapsed).Str("error", result.Error).Msg("tool call failed")
	}
	return result
}

func (e *Executor) route(ctx context.Context, call schema.ToolCall, result *schema.ToolExecutionResult) {
	switch {
	case schema.IsHostTool(call.Name):
		e.runHost(ctx, call, result)
	case schema.IsGuestTool(call.Name):
		e.runGuest(ctx, call, result)
	default:
		result.Error = fmt.Sprintf("unknown tool %q", call.Name)
	}
}

func (e *Executor) runHost(ctx context.Context, call schema.ToolCall, result *schema.ToolExecutionResult) {
	if e.host == nil {
		result.Error = fmt.Sprintf("host tool %q is not configured", call.Name)
		return
	}
	tool, ok := e.host.Get(call.Name)
	if !ok {
		result.Error = fmt.Sprintf("host tool %q is not configured", call.Name)
		return
	}
	if isInteractive(call.Name) {
		e.record(activity.KindQuestionAsked, call.Name, callSummary(call), nil)
	}
	text, err := tool.Execute(ctx, call.Args)
	if err != nil {
		result.Error = err.Error()
		return
	}
	result.Success = true
	result.Text = text
}

func isInteractive(name string) bool {
	switch name {
	case schema.ToolAskQuestion, schema.ToolAskChoice, schema.ToolRequestIntervention:
		return true
	}
	return false
}

func (e *Executor) runGuest(ctx context.Context, call schema.ToolCall, result *schema.ToolExecutionResult) {
	if e.guest == nil {
		result.Error = "no guest transport is configured"
		return
	}
	proceed, refusal, err := e.gate(ctx, call)
	if err != nil {
		result.Error = err.Error()
		return
	}
	if !proceed {
		// A refused call still succeeded as a call: the refusal text is the
		// answer the model must work with.
		result.Success = true
		result.Text = refusal
		return
	}
	e.dispatch(ctx, call, result)
}

// gate runs the policy over the call and, when required, suspends for a
// human decision. It reports whether the call may reach the guest.
func (e *Executor) gate(ctx context.Context, call schema.ToolCall) (proceed bool, refusal string, err error) {
	if e.policy == nil {
		return true, "", nil
	}

	var args map[string]any
	if len(call.Args) > 0 {
		// Malformed arguments surface later, in the typed parse.
		_ = json.Unmarshal(call.Args, &args)
	}
	decision, err := e.policy.Evaluate(ctx, policy.Input{
		ToolName:        call.Name,
		Args:            args,
		CommandApproval: e.commandApproval,
	})
	if err != nil {
		return false, "", fmt.Errorf("policy evaluation failed: %w", err)
	}
	metrics.RecordPolicyDecision(decision)

	switch decision {
	case policy.DecisionAllow:
		return true, "", nil

	case policy.DecisionBlock:
		e.record(activity.KindPolicyDecision, call.Name, "blocked: "+callSummary(call), map[string]any{"decision": decision})
		logx.Log.Info().Str("tool", call.Name).Msg("policy blocked tool call")
		return false, "This action was blocked by policy and was not executed.", nil

	case policy.DecisionRequireApproval:
		e.record(activity.KindPolicyDecision, call.Name, "approval required: "+callSummary(call), map[string]any{"decision": decision})
		return e.askPermission(ctx, call)

	default:
		// Fail closed on anything the policy invents.
		return false, "", fmt.Errorf("policy returned unknown decision %q", decision)
	}
}

func (e *Executor) askPermission(ctx context.Context, call schema.ToolCall) (proceed bool, refusal string, err error) {
	if e.center == nil {
		return false, "", errors.New("policy requires approval but no interaction center is configured")
	}

	req := hitl.PermissionRequest{
		ID:        uuid.NewString(),
		ToolName:  call.Name,
		Details:   callSummary(call),
		CreatedAt: time.Now(),
	}
	e.record(activity.KindPermissionRequested, call.Name, req.Details, map[string]any{"permission_id": req.ID})
	logx.Log.Info().Str("tool", call.Name).Str("permission_id", req.ID).Msg("awaiting permission")

	d, err := e.center.RequestPermission(ctx, req)
	if err != nil {
		return false, "", fmt.Errorf("permission request not resolved: %w", err)
	}
	if !d.Approved {
		reason := d.Reason
		if reason == "" {
			reason = "no reason given"
		}
		return false, fmt.Sprintf("The user denied permission for this action (%s). Do not retry it; ask the user how to proceed instead.", reason), nil
	}
	return true, "", nil
}

// dispatch parses the call's arguments into their typed form and invokes the
// matching guest method.
func (e *Executor) dispatch(ctx context.Context, call schema.ToolCall, result *schema.ToolExecutionResult) {
	fail := func(err error) {
		if errors.Is(err, schema.ErrGuestUnavailable) {
			result.Error = "no guest is connected; the virtual machine may still be starting"
			return
		}
		result.Error = err.Error()
	}
	ok := func(text string) {
		result.Success = true
		result.Text = text
	}

	switch call.Name {
	case schema.ToolMoveMouse:
		p, err := parseMoveMouse(call.Args)
		if err != nil {
			fail(err)
			return
		}
		if err := e.guest.MoveMouse(ctx, p.X, p.Y); err != nil {
			fail(err)
			return
		}
		ok(fmt.Sprintf("Moved the mouse to (%s, %s).", trimFloat(p.X), trimFloat(p.Y)))

	case schema.ToolClickMouse:
		p, err := parseClickMouse(call.Args)
		if err != nil {
			fail(err)
			return
		}
		if err := e.guest.ClickMouse(ctx, p); err != nil {
			fail(err)
			return
		}
		verb := "Clicked"
		if p.Double {
			verb = "Double-clicked"
		}
		ok(fmt.Sprintf("%s the %s button at (%s, %s).", verb, p.Button, trimFloat(p.X), trimFloat(p.Y)))

	case schema.ToolDragMouse:
		p, err := parseDragMouse(call.Args)
		if err != nil {
			fail(err)
			return
		}
		if err := e.guest.DragMouse(ctx, p); err != nil {
			fail(err)
			return
		}
		ok(fmt.Sprintf("Dragged from (%s, %s) to (%s, %s).",
			trimFloat(p.FromX), trimFloat(p.FromY), trimFloat(p.ToX), trimFloat(p.ToY)))

	case schema.ToolTypeText:
		p, err := parseTypeText(call.Args)
		if err != nil {
			fail(err)
			return
		}
		text := p.Text
		if e.secrets != nil {
			// The one place placeholder tokens become real values: immediately
			// before transport, never earlier, never in anything echoed back.
			text = e.secrets.SubstituteTokens(text)
		}
		if err := e.guest.TypeText(ctx, text); err != nil {
			fail(err)
			return
		}
		// Count what the model asked for, not what went over the wire.
		ok(fmt.Sprintf("Typed %d characters.", utf8.RuneCountInString(p.Text)))

	case schema.ToolPressKey:
		p, err := parsePressKey(call.Args)
		if err != nil {
			fail(err)
			return
		}
		if err := e.guest.PressKey(ctx, p); err != nil {
			fail(err)
			return
		}
		ok(fmt.Sprintf("Pressed %s.", keyChord(p)))

	case schema.ToolScroll:
		p, err := parseScroll(call.Args)
		if err != nil {
			fail(err)
			return
		}
		if err := e.guest.Scroll(ctx, p); err != nil {
			fail(err)
			return
		}
		ok(fmt.Sprintf("Scrolled at (%s, %s).", trimFloat(p.X), trimFloat(p.Y)))

	case schema.ToolRunCommand:
		p, err := parseRunCommand(call.Args)
		if err != nil {
			fail(err)
			return
		}
		timeout := e.commandTimeout
		if p.TimeoutMS > 0 {
			timeout = time.Duration(p.TimeoutMS) * time.Millisecond
		}
		res, err := e.guest.RunCommand(ctx, p.Command, timeout)
		if err != nil {
			fail(err)
			return
		}
		finishCommand(result, res, timeout)

	case schema.ToolReadFile:
		path, err := parsePath(call.Args)
		if err != nil {
			fail(err)
			return
		}
		fc, err := e.guest.ReadFile(ctx, path)
		if err != nil {
			fail(err)
			return
		}
		result.Success = true
		result.Text = fc.Text
		result.Image = fc.Image
		if fc.Image != nil && result.Text == "" {
			result.Text = fmt.Sprintf("Read image %s (%s, %d bytes).", fc.Path, fc.Image.MIMEType, fc.Size)
		}

	case schema.ToolMoveFile:
		p, err := parseMoveFile(call.Args)
		if err != nil {
			fail(err)
			return
		}
		if err := e.guest.MoveFile(ctx, p.Source, p.Destination); err != nil {
			fail(err)
			return
		}
		ok(fmt.Sprintf("Moved %s to %s.", p.Source, p.Destination))

	case schema.ToolOpenFile:
		path, err := parsePath(call.Args)
		if err != nil {
			fail(err)
			return
		}
		if err := e.guest.OpenFile(ctx, path); err != nil {
			fail(err)
			return
		}
		ok(fmt.Sprintf("Opened %s with its default application.", path))

	case schema.ToolLaunchApp:
		p, err := parseLaunchApp(call.Args)
		if err != nil {
			fail(err)
			return
		}
		if err := e.guest.LaunchApp(ctx, p.Name, p.Args); err != nil {
			fail(err)
			return
		}
		ok(fmt.Sprintf("Launched %s.", p.Name))

	case schema.ToolWait:
		ms, err := parseWait(call.Args)
		if err != nil {
			fail(err)
			return
		}
		if err := e.guest.Wait(ctx, time.Duration(ms)*time.Millisecond); err != nil {
			fail(err)
			return
		}
		ok(fmt.Sprintf("Waited %d ms.", ms))

	case schema.ToolReadAccessibilityTree:
		root, err := e.guest.ReadAccessibilityTree(ctx)
		if err != nil {
			fail(err)
			return
		}
		ok(renderTree(root))

	case schema.ToolCheckHealth:
		report, err := e.guest.CheckHealth(ctx)
		if err != nil {
			fail(err)
			return
		}
		ok(renderHealth(report))

	default:
		result.Error = fmt.Sprintf("guest tool %q has no dispatcher", call.Name)
	}
}

// finishCommand translates a guest command outcome into a result. The guest
// reports non-zero exits and timeouts as data; here they become failures so
// the model sees them for what they are, output included.
func finishCommand(result *schema.ToolExecutionResult, res schema.CommandResult, timeout time.Duration) {
	switch {
	case res.TimedOut:
		msg := fmt.Sprintf("command timed out after %s", timeout)
		if res.Output != "" {
			msg += "\noutput before timeout:\n" + res.Output
		}
		result.Error = msg
	case res.ExitCode != 0:
		msg := fmt.Sprintf("command exited with status %d", res.ExitCode)
		if res.Output != "" {
			msg += "\n" + res.Output
		}
		result.Error = msg
	default:
		result.Success = true
		if res.Output == "" {
			result.Text = "Command completed with no output."
		} else {
			result.Text = res.Output
		}
	}
}

func (e *Executor) record(kind activity.Kind, tool, summary string, data map[string]any) {
	if e.activity == nil {
		return
	}
	e.activity.Append(activity.Entry{Kind: kind, Tool: tool, Summary: summary, Data: data})
}
