// Package pilot assembles the host-side pieces into one embeddable session:
// the guest connection, the policy gate, the approval center, the credential
// vault, and the model loop. The daemons under cmd/ wire the same pieces by
// hand; this package is for programs that want them behind a single type.
package pilot

import (
	"context"
	"fmt"

	"github.com/voocel/pilot/activity"
	"github.com/voocel/pilot/executor"
	"github.com/voocel/pilot/hitl"
	"github.com/voocel/pilot/policy"
	"github.com/voocel/pilot/remote"
	"github.com/voocel/pilot/runner"
	"github.com/voocel/pilot/schema"
	"github.com/voocel/pilot/secret"
	"github.com/voocel/pilot/tools"
)

// Session owns one guest connection and everything the executor needs around
// it. Create it with NewSession, connect, then either Run model turns or
// Execute tool calls directly.
type Session struct {
	store  *secret.Store
	center *hitl.Center
	feed   *activity.Log
	exec   *executor.Executor
	agent  *runner.Runner

	slot     *remote.Slot
	endpoint string
}

// NewSession builds a session from the options. The context bounds policy
// compilation only; the session itself lives until Close.
func NewSession(ctx context.Context, opts ...Option) (*Session, error) {
	o := applyOptions(opts...)

	gate, err := policy.NewEngine(ctx, o.policySource)
	if err != nil {
		return nil, fmt.Errorf("pilot: compile policy: %w", err)
	}

	s := &Session{
		store:    secret.NewStore(),
		center:   hitl.NewCenter(),
		feed:     activity.NewLog(o.activityCapacity),
		endpoint: o.endpoint,
	}

	guest := o.guest
	if guest == nil {
		s.slot = &remote.Slot{}
		guest = remote.NewClient(s.slot)
	}

	registry := tools.NewRegistry()
	for _, t := range o.hostTools(s.center, s.store) {
		registry.Register(t)
	}

	s.exec = executor.New(executor.Options{
		Guest:           guest,
		Host:            registry,
		Policy:          gate,
		Center:          s.center,
		Secrets:         s.store,
		Activity:        s.feed,
		CommandApproval: o.commandApproval,
		CommandTimeout:  o.commandTimeout,
	})

	if o.model != nil {
		s.agent = runner.New(runner.Config{
			Model:        o.model,
			Executor:     s.exec,
			SystemPrompt: o.systemPrompt,
			MaxTurns:     o.maxTurns,
			HistoryLimit: o.historyLimit,
		})
	}

	return s, nil
}

// Connect dials the configured guest endpoint and installs the connection.
// Sessions built with WithGuest are already wired and need no Connect.
func (s *Session) Connect(ctx context.Context) error {
	if s.slot == nil {
		return nil
	}
	if s.endpoint == "" {
		return fmt.Errorf("pilot: no guest endpoint configured")
	}
	conn, err := remote.Dial(ctx, s.endpoint)
	if err != nil {
		return err
	}
	s.slot.Swap(conn)
	s.feed.Append(activity.Entry{Kind: activity.KindGuestAttached, Summary: "guest connected"})
	return nil
}

// Run sends input through the model loop and returns its final answer.
func (s *Session) Run(ctx context.Context, input string) (string, error) {
	if s.agent == nil {
		return "", ErrNoModel
	}
	return s.agent.Run(ctx, input)
}

// Execute routes one tool call through the policy gate and returns its
// result. It is the same path Run uses for the model's calls.
func (s *Session) Execute(ctx context.Context, call schema.ToolCall) schema.ToolExecutionResult {
	return s.exec.Execute(ctx, call)
}

// Center exposes pending questions and permission requests so a UI can
// resolve them.
func (s *Session) Center() *hitl.Center { return s.center }

// Credentials is the vault the model's placeholder tokens resolve against.
func (s *Session) Credentials() *secret.Store { return s.store }

// Activity is the session's observable step feed.
func (s *Session) Activity() *activity.Log { return s.feed }

// History returns the conversation so far; nil without a model.
func (s *Session) History() []schema.Message {
	if s.agent == nil {
		return nil
	}
	return s.agent.History()
}

// Close detaches the guest connection and closes the activity feed.
func (s *Session) Close() error {
	if s.slot != nil {
		if conn, err := s.slot.Get(); err == nil {
			s.slot.Clear(conn)
		}
	}
	s.feed.Close()
	return nil
}
