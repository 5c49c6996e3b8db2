package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/voocel/pilot/hitl"
	"github.com/voocel/pilot/schema"
)

// AskQuestionTool suspends the run on a free-form question until a person
// answers it.
type AskQuestionTool struct {
	center *hitl.Center
}

// NewAskQuestionTool creates the tool bound to an interaction center.
func NewAskQuestionTool(center *hitl.Center) *AskQuestionTool {
	return &AskQuestionTool{center: center}
}

func (t *AskQuestionTool) Name() string { return schema.ToolAskQuestion }

func (t *AskQuestionTool) Description() string {
	return "Ask the user a question and wait for their free-form answer. Use this whenever the task is ambiguous or needs information only the user has."
}

func (t *AskQuestionTool) Schema() *ToolSchema {
	return ObjectSchema(map[string]*PropertySchema{
		"question": StringProperty("The question to ask the user"),
	}, "question")
}

func (t *AskQuestionTool) Execute(ctx context.Context, args json.RawMessage) (string, error) {
	var in struct {
		Question string `json:"question"`
	}
	if err := json.Unmarshal(args, &in); err != nil {
		return "", fmt.Errorf("ask_question args: %w", err)
	}
	if strings.TrimSpace(in.Question) == "" {
		return "", errors.New("question is required")
	}

	q := hitl.TextQuestion{
		ID:        uuid.NewString(),
		Prompt:    in.Question,
		CreatedAt: time.Now(),
	}
	return t.center.AskQuestion(ctx, q)
}

// AskChoiceTool suspends the run on a multiple-choice question.
type AskChoiceTool struct {
	center *hitl.Center
}

// NewAskChoiceTool creates the tool bound to an interaction center.
func NewAskChoiceTool(center *hitl.Center) *AskChoiceTool {
	return &AskChoiceTool{center: center}
}

func (t *AskChoiceTool) Name() string { return schema.ToolAskChoice }

func (t *AskChoiceTool) Description() string {
	return "Ask the user to pick one option from a short list and wait for their choice."
}

func (t *AskChoiceTool) Schema() *ToolSchema {
	return ObjectSchema(map[string]*PropertySchema{
		"question": StringProperty("The question to ask the user"),
		"options":  ArrayProperty("The options the user picks from", StringProperty("One option")),
	}, "question", "options")
}

func (t *AskChoiceTool) Execute(ctx context.Context, args json.RawMessage) (string, error) {
	var in struct {
		Question string   `json:"question"`
		Options  []string `json:"options"`
	}
	if err := json.Unmarshal(args, &in); err != nil {
		return "", fmt.Errorf("ask_choice args: %w", err)
	}
	if strings.TrimSpace(in.Question) == "" {
		return "", errors.New("question is required")
	}
	if len(in.Options) == 0 {
		return "", errors.New("options must not be empty")
	}

	q := hitl.ChoiceQuestion{
		ID:        uuid.NewString(),
		Prompt:    in.Question,
		Options:   in.Options,
		CreatedAt: time.Now(),
	}
	answer, err := t.center.AskQuestion(ctx, q)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("The user chose: %s", answer), nil
}

// InterventionTool suspends the run while a person takes over the guest
// directly, resuming when they report they are done.
type InterventionTool struct {
	center *hitl.Center
}

// NewInterventionTool creates the tool bound to an interaction center.
func NewInterventionTool(center *hitl.Center) *InterventionTool {
	return &InterventionTool{center: center}
}

func (t *InterventionTool) Name() string { return schema.ToolRequestIntervention }

func (t *InterventionTool) Description() string {
	return "Hand control to the user for a step you cannot do yourself, such as solving a CAPTCHA or completing a 2FA prompt. Resumes when the user says they are done."
}

func (t *InterventionTool) Schema() *ToolSchema {
	return ObjectSchema(map[string]*PropertySchema{
		"reason": StringProperty("Why the user needs to take over"),
	}, "reason")
}

func (t *InterventionTool) Execute(ctx context.Context, args json.RawMessage) (string, error) {
	var in struct {
		Reason string `json:"reason"`
	}
	if err := json.Unmarshal(args, &in); err != nil {
		return "", fmt.Errorf("request_intervention args: %w", err)
	}
	if strings.TrimSpace(in.Reason) == "" {
		return "", errors.New("reason is required")
	}

	q := hitl.InterventionRequest{
		ID:        uuid.NewString(),
		Reason:    in.Reason,
		CreatedAt: time.Now(),
	}
	note, err := t.center.AskQuestion(ctx, q)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(note) == "" {
		return "The user finished intervening. Continue from the current screen state.", nil
	}
	return fmt.Sprintf("The user finished intervening: %s", note), nil
}
