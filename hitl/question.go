// Package hitl implements the interactive suspension protocol: a tool call
// registers a pending question or permission request, suspends on a one-shot
// channel, and resumes when a human resolves it exactly once.
package hitl

import "time"

// Question kinds.
const (
	KindText         = "text"
	KindChoice       = "choice"
	KindIntervention = "intervention"
)

// Question is the tagged union of interaction kinds a tool can raise. Each
// variant carries only the fields that kind needs.
type Question interface {
	QuestionID() string
	Kind() string

	question()
}

// TextQuestion asks the human for free-form text.
type TextQuestion struct {
	ID        string    `json:"id"`
	Prompt    string    `json:"prompt"`
	CreatedAt time.Time `json:"created_at"`
}

func (q TextQuestion) QuestionID() string { return q.ID }
func (q TextQuestion) Kind() string       { return KindText }
func (TextQuestion) question()            {}

// ChoiceQuestion asks the human to pick one of the offered options.
type ChoiceQuestion struct {
	ID        string    `json:"id"`
	Prompt    string    `json:"prompt"`
	Options   []string  `json:"options"`
	CreatedAt time.Time `json:"created_at"`
}

func (q ChoiceQuestion) QuestionID() string { return q.ID }
func (q ChoiceQuestion) Kind() string       { return KindChoice }
func (ChoiceQuestion) question()            {}

// InterventionRequest asks the human to take over the guest directly. The
// answer acknowledges that the intervention is finished.
type InterventionRequest struct {
	ID        string    `json:"id"`
	Reason    string    `json:"reason"`
	CreatedAt time.Time `json:"created_at"`
}

func (q InterventionRequest) QuestionID() string { return q.ID }
func (q InterventionRequest) Kind() string       { return KindIntervention }
func (InterventionRequest) question()            {}

// PermissionRequest gates one dangerous tool call on human approval.
type PermissionRequest struct {
	ID        string    `json:"id"`
	ToolName  string    `json:"tool_name"`
	Details   string    `json:"details"`
	CreatedAt time.Time `json:"created_at"`
}

// Decision resolves a permission request.
type Decision struct {
	Approved bool   `json:"approved"`
	Reason   string `json:"reason,omitempty"`
}
