package pilot

import (
	"time"

	"github.com/voocel/pilot/executor"
	"github.com/voocel/pilot/hitl"
	"github.com/voocel/pilot/llm"
	"github.com/voocel/pilot/policy"
	"github.com/voocel/pilot/secret"
	"github.com/voocel/pilot/tools"
)

// Option configures a Session.
type Option func(*options)

type options struct {
	model            llm.ChatModel
	guest            executor.Guest
	endpoint         string
	policySource     string
	systemPrompt     string
	maxTurns         int
	historyLimit     int
	commandApproval  bool
	commandTimeout   time.Duration
	tools            []tools.Tool
	activityCapacity int
}

func applyOptions(opts ...Option) options {
	o := options{
		policySource:     policy.DefaultPolicy,
		commandApproval:  true,
		activityCapacity: 256,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// hostTools returns the configured host tool list, or the full built-in set
// when none was given.
func (o *options) hostTools(center *hitl.Center, store *secret.Store) []tools.Tool {
	if o.tools != nil {
		return o.tools
	}
	return []tools.Tool{
		tools.NewAskQuestionTool(center),
		tools.NewAskChoiceTool(center),
		tools.NewInterventionTool(center),
		tools.NewCredentialsTool(store),
		tools.NewTodoTool(),
		tools.NewReadWebpageTool(),
		tools.NewWebSearchTool(),
		tools.NewLocationTool(),
	}
}

// WithModel sets the chat model; without one, Run is unavailable.
func WithModel(model llm.ChatModel) Option {
	return func(o *options) { o.model = model }
}

// WithGuestEndpoint sets the endpoint Connect dials
// (tcp://host:port, unix:///path, vsock://cid:port).
func WithGuestEndpoint(endpoint string) Option {
	return func(o *options) { o.endpoint = endpoint }
}

// WithGuest injects a guest implementation directly, bypassing the dialer.
func WithGuest(g executor.Guest) Option {
	return func(o *options) { o.guest = g }
}

// WithPolicy replaces the built-in Rego policy source.
func WithPolicy(source string) Option {
	return func(o *options) { o.policySource = source }
}

// WithSystemPrompt replaces the default operator prompt.
func WithSystemPrompt(prompt string) Option {
	return func(o *options) { o.systemPrompt = prompt }
}

// WithMaxTurns caps model invocations per Run call.
func WithMaxTurns(n int) Option {
	return func(o *options) { o.maxTurns = n }
}

// WithHistoryLimit caps retained conversation messages.
func WithHistoryLimit(n int) Option {
	return func(o *options) { o.historyLimit = n }
}

// WithCommandApproval controls whether run_command waits for a human
// decision. It defaults to on; turn it off only for sessions whose guests
// are disposable.
func WithCommandApproval(required bool) Option {
	return func(o *options) { o.commandApproval = required }
}

// WithCommandTimeout bounds run_command calls that carry no timeout of
// their own.
func WithCommandTimeout(d time.Duration) Option {
	return func(o *options) { o.commandTimeout = d }
}

// WithHostTools replaces the built-in host tool set.
func WithHostTools(ts ...tools.Tool) Option {
	return func(o *options) { o.tools = ts }
}

// WithActivityCapacity sets how many feed entries the session retains.
func WithActivityCapacity(n int) Option {
	return func(o *options) { o.activityCapacity = n }
}
