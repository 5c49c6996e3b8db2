package actions

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/voocel/pilot/schema"
)

const maxCommandOutput = 64 << 10

type commandActions struct {
	shell          string
	workDir        string
	defaultTimeout time.Duration
}

// runCommand executes one shell line and reports its interleaved output and
// exit code. A non-zero exit is data, not a dispatch failure; the host
// decides what to make of it.
func (a *commandActions) runCommand(ctx context.Context, params json.RawMessage) (any, error) {
	var p schema.RunCommandParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, fmt.Errorf("run_command params: %w", err)
	}
	if strings.TrimSpace(p.Command) == "" {
		return nil, errors.New("command is required")
	}

	timeout := a.defaultTimeout
	if p.TimeoutMS > 0 {
		timeout = time.Duration(p.TimeoutMS) * time.Millisecond
	}
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, a.shell, "-c", p.Command)
	cmd.Dir = a.workDir
	var buf bytes.Buffer
	cmd.Stdout = &buf
	cmd.Stderr = &buf

	err := cmd.Run()
	result := schema.CommandResult{Output: truncateOutput(buf.String())}

	switch {
	case errors.Is(runCtx.Err(), context.DeadlineExceeded):
		result.TimedOut = true
		result.ExitCode = -1
	case err == nil:
	default:
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			return nil, fmt.Errorf("start command: %w", err)
		}
		result.ExitCode = exitErr.ExitCode()
	}
	return result, nil
}

// truncateOutput keeps the tail of oversized output; the end usually carries
// the part that matters.
func truncateOutput(s string) string {
	if len(s) <= maxCommandOutput {
		return s
	}
	return "[output truncated]\n" + s[len(s)-maxCommandOutput:]
}
