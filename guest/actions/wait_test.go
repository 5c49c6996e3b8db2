package actions

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func TestWaitSleepsRequestedDuration(t *testing.T) {
	start := time.Now()
	result, err := waitAction(context.Background(), json.RawMessage(`{"duration_ms":50}`))
	if err != nil {
		t.Fatalf("wait failed: %v", err)
	}
	if elapsed := time.Since(start); elapsed < 50*time.Millisecond {
		t.Errorf("returned after %v, expected at least 50ms", elapsed)
	}

	slept := result.(map[string]int64)["slept_ms"]
	if slept != 50 {
		t.Errorf("Expected slept_ms 50, got %d", slept)
	}
}

func TestWaitCancellation(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := waitAction(ctx, json.RawMessage(`{"duration_ms":5000}`))
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Expected deadline error, got %v", err)
	}
	if time.Since(start) > time.Second {
		t.Error("cancellation did not interrupt the sleep")
	}
}

func TestWaitDefaultDuration(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// With no params the default applies; a cancelled context must still win.
	if _, err := waitAction(ctx, nil); !errors.Is(err, context.Canceled) {
		t.Fatalf("Expected context.Canceled, got %v", err)
	}
}
