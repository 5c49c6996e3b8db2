package hitl

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/voocel/pilot/schema"
)

func TestAskQuestionAndAnswer(t *testing.T) {
	center := NewCenter()

	type outcome struct {
		answer string
		err    error
	}
	done := make(chan outcome, 1)
	go func() {
		answer, err := center.AskQuestion(context.Background(), TextQuestion{ID: "q1", Prompt: "favorite color?", CreatedAt: time.Now()})
		done <- outcome{answer, err}
	}()

	// Wait for registration to show up.
	deadline := time.After(2 * time.Second)
	for {
		if _, ok := center.PendingQuestion(); ok {
			break
		}
		select {
		case <-deadline:
			t.Fatal("question never became pending")
		case <-time.After(time.Millisecond):
		}
	}

	q, _ := center.PendingQuestion()
	if q.Kind() != KindText || q.QuestionID() != "q1" {
		t.Errorf("pending question = %v %v", q.Kind(), q.QuestionID())
	}

	if err := center.Answer("q1", "blue"); err != nil {
		t.Fatalf("Answer failed: %v", err)
	}

	got := <-done
	if got.err != nil {
		t.Fatalf("AskQuestion returned error: %v", got.err)
	}
	if got.answer != "blue" {
		t.Errorf("Expected answer blue, got %q", got.answer)
	}
	if _, ok := center.PendingQuestion(); ok {
		t.Error("question must clear the instant it is answered")
	}
}

func TestAnswerExactlyOnce(t *testing.T) {
	center := NewCenter()

	done := make(chan string, 1)
	go func() {
		answer, _ := center.AskQuestion(context.Background(), TextQuestion{ID: "q1", Prompt: "?"})
		done <- answer
	}()

	waitPending(t, center)

	if err := center.Answer("q1", "first"); err != nil {
		t.Fatalf("first Answer failed: %v", err)
	}
	if err := center.Answer("q1", "second"); !errors.Is(err, schema.ErrInteractionResolved) {
		t.Errorf("duplicate Answer: expected ErrInteractionResolved, got %v", err)
	}

	if got := <-done; got != "first" {
		t.Errorf("awaiting caller observed %q, want first", got)
	}
}

func TestAnswerUnknownID(t *testing.T) {
	center := NewCenter()
	if err := center.Answer("ghost", "x"); !errors.Is(err, schema.ErrInteractionNotFound) {
		t.Errorf("expected ErrInteractionNotFound, got %v", err)
	}
}

func TestSecondQuestionRejectedWhilePending(t *testing.T) {
	center := NewCenter()

	go center.AskQuestion(context.Background(), TextQuestion{ID: "q1", Prompt: "?"})
	waitPending(t, center)

	_, err := center.AskQuestion(context.Background(), TextQuestion{ID: "q2", Prompt: "?"})
	if !errors.Is(err, schema.ErrInteractionPending) {
		t.Errorf("expected ErrInteractionPending, got %v", err)
	}

	// The original question is still answerable.
	if err := center.Answer("q1", "ok"); err != nil {
		t.Errorf("Answer after rejected second question failed: %v", err)
	}
}

func TestCancellationReleasesQuestion(t *testing.T) {
	center := NewCenter()
	ctx, cancel := context.WithCancel(context.Background())

	errc := make(chan error, 1)
	go func() {
		_, err := center.AskQuestion(ctx, ChoiceQuestion{ID: "q1", Prompt: "?", Options: []string{"a", "b"}})
		errc <- err
	}()

	waitPending(t, center)
	cancel()

	if err := <-errc; !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if _, ok := center.PendingQuestion(); ok {
		t.Error("cancelled question must not linger as pending")
	}
	if err := center.Answer("q1", "late"); !errors.Is(err, schema.ErrInteractionNotFound) {
		t.Errorf("late answer after cancellation: expected ErrInteractionNotFound, got %v", err)
	}
}

func TestPermissionFlow(t *testing.T) {
	center := NewCenter()

	type outcome struct {
		d   Decision
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		d, err := center.RequestPermission(context.Background(), PermissionRequest{ID: "p1", ToolName: "run_command", Details: "rm -rf /tmp/x"})
		done <- outcome{d, err}
	}()

	deadline := time.After(2 * time.Second)
	for {
		if _, ok := center.PendingPermission(); ok {
			break
		}
		select {
		case <-deadline:
			t.Fatal("permission never became pending")
		case <-time.After(time.Millisecond):
		}
	}

	req, _ := center.PendingPermission()
	if req.ToolName != "run_command" {
		t.Errorf("Expected tool run_command, got %s", req.ToolName)
	}

	if err := center.Decide("p1", Decision{Approved: false, Reason: "too risky"}); err != nil {
		t.Fatalf("Decide failed: %v", err)
	}
	if err := center.Decide("p1", Decision{Approved: true}); !errors.Is(err, schema.ErrInteractionResolved) {
		t.Errorf("duplicate Decide: expected ErrInteractionResolved, got %v", err)
	}

	got := <-done
	if got.err != nil {
		t.Fatalf("RequestPermission returned error: %v", got.err)
	}
	if got.d.Approved || got.d.Reason != "too risky" {
		t.Errorf("awaiting caller observed %+v", got.d)
	}
}

func TestQuestionAndPermissionCoexist(t *testing.T) {
	center := NewCenter()

	go center.AskQuestion(context.Background(), TextQuestion{ID: "q1", Prompt: "?"})
	go center.RequestPermission(context.Background(), PermissionRequest{ID: "p1", ToolName: "run_command"})

	deadline := time.After(2 * time.Second)
	for center.PendingCount() != 2 {
		select {
		case <-deadline:
			t.Fatalf("expected 2 pending interactions, got %d", center.PendingCount())
		case <-time.After(time.Millisecond):
		}
	}

	if err := center.Answer("q1", "yes"); err != nil {
		t.Errorf("Answer failed: %v", err)
	}
	if err := center.Decide("p1", Decision{Approved: true}); err != nil {
		t.Errorf("Decide failed: %v", err)
	}
}

func waitPending(t *testing.T, center *Center) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		if _, ok := center.PendingQuestion(); ok {
			return
		}
		select {
		case <-deadline:
			t.Fatal("question never became pending")
		case <-time.After(time.Millisecond):
		}
	}
}
