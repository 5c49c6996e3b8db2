package actions

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

const defaultWait = time.Second

// waitAction sleeps in guest time so the host can wait out animations and
// slow UI transitions.
func waitAction(ctx context.Context, params json.RawMessage) (any, error) {
	var p struct {
		DurationMS int64 `json:"duration_ms"`
	}
	if len(params) > 0 {
		if err := json.Unmarshal(params, &p); err != nil {
			return nil, fmt.Errorf("wait params: %w", err)
		}
	}

	d := time.Duration(p.DurationMS) * time.Millisecond
	if d <= 0 {
		d = defaultWait
	}

	select {
	case <-time.After(d):
		return map[string]int64{"slept_ms": d.Milliseconds()}, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
