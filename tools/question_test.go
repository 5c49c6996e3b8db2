package tools

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/voocel/pilot/hitl"
)

// waitForQuestion polls until the center shows a pending question, returning
// its id.
func waitForQuestion(t *testing.T, center *hitl.Center) string {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if q, ok := center.PendingQuestion(); ok {
			return q.QuestionID()
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("no question became pending")
	return ""
}

func TestAskQuestionSuspendsUntilAnswered(t *testing.T) {
	center := hitl.NewCenter()
	tool := NewAskQuestionTool(center)

	done := make(chan struct {
		text string
		err  error
	}, 1)
	go func() {
		text, err := tool.Execute(context.Background(), json.RawMessage(`{"question":"Which account should I use?"}`))
		done <- struct {
			text string
			err  error
		}{text, err}
	}()

	id := waitForQuestion(t, center)
	q, _ := center.PendingQuestion()
	if q.Kind() != hitl.KindText {
		t.Errorf("Expected text question, got %s", q.Kind())
	}
	if err := center.Answer(id, "the work account"); err != nil {
		t.Fatalf("Answer failed: %v", err)
	}

	r := <-done
	if r.err != nil {
		t.Fatalf("Execute failed: %v", r.err)
	}
	if r.text != "the work account" {
		t.Errorf("Expected the human answer verbatim, got %q", r.text)
	}
}

func TestAskQuestionRequiresPrompt(t *testing.T) {
	tool := NewAskQuestionTool(hitl.NewCenter())
	if _, err := tool.Execute(context.Background(), json.RawMessage(`{}`)); err == nil {
		t.Error("Expected error for missing question")
	}
	if _, err := tool.Execute(context.Background(), json.RawMessage(`{"question":"  "}`)); err == nil {
		t.Error("Expected error for blank question")
	}
}

func TestAskChoiceCarriesOptions(t *testing.T) {
	center := hitl.NewCenter()
	tool := NewAskChoiceTool(center)

	done := make(chan struct {
		text string
		err  error
	}, 1)
	go func() {
		text, err := tool.Execute(context.Background(), json.RawMessage(`{"question":"Proceed?","options":["yes","no"]}`))
		done <- struct {
			text string
			err  error
		}{text, err}
	}()

	id := waitForQuestion(t, center)
	q, _ := center.PendingQuestion()
	choice, ok := q.(hitl.ChoiceQuestion)
	if !ok {
		t.Fatalf("Expected ChoiceQuestion, got %T", q)
	}
	if len(choice.Options) != 2 || choice.Options[0] != "yes" {
		t.Errorf("options mangled: %v", choice.Options)
	}

	if err := center.Answer(id, "yes"); err != nil {
		t.Fatalf("Answer failed: %v", err)
	}

	r := <-done
	if r.err != nil {
		t.Fatalf("Execute failed: %v", r.err)
	}
	if !strings.Contains(r.text, "yes") {
		t.Errorf("Expected the chosen option in the result, got %q", r.text)
	}
}

func TestAskChoiceRequiresOptions(t *testing.T) {
	tool := NewAskChoiceTool(hitl.NewCenter())
	if _, err := tool.Execute(context.Background(), json.RawMessage(`{"question":"Proceed?","options":[]}`)); err == nil {
		t.Error("Expected error for empty options")
	}
}

func TestInterventionAcknowledgement(t *testing.T) {
	center := hitl.NewCenter()
	tool := NewInterventionTool(center)

	done := make(chan struct {
		text string
		err  error
	}, 1)
	go func() {
		text, err := tool.Execute(context.Background(), json.RawMessage(`{"reason":"CAPTCHA on the login page"}`))
		done <- struct {
			text string
			err  error
		}{text, err}
	}()

	id := waitForQuestion(t, center)
	q, _ := center.PendingQuestion()
	if q.Kind() != hitl.KindIntervention {
		t.Errorf("Expected intervention, got %s", q.Kind())
	}

	// An empty note still produces a usable continuation message.
	if err := center.Answer(id, ""); err != nil {
		t.Fatalf("Answer failed: %v", err)
	}

	r := <-done
	if r.err != nil {
		t.Fatalf("Execute failed: %v", r.err)
	}
	if !strings.Contains(r.text, "finished intervening") {
		t.Errorf("Expected a continuation message, got %q", r.text)
	}
}

func TestQuestionCancellation(t *testing.T) {
	center := hitl.NewCenter()
	tool := NewAskQuestionTool(center)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := tool.Execute(ctx, json.RawMessage(`{"question":"still there?"}`))
		done <- err
	}()

	waitForQuestion(t, center)
	cancel()

	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Fatalf("Expected context.Canceled, got %v", err)
	}
	if _, ok := center.PendingQuestion(); ok {
		t.Error("cancelled question still pending")
	}
}
