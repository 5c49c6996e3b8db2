package actions

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"

	"github.com/voocel/pilot/schema"
)

type appActions struct {
	openCommand string
}

// launchApp starts the named application detached from the agent: the
// process outlives the call, so the call's context does not bound it.
func (a *appActions) launchApp(ctx context.Context, params json.RawMessage) (any, error) {
	var p schema.LaunchAppParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, fmt.Errorf("launch_app params: %w", err)
	}
	if p.Name == "" {
		return nil, errors.New("name is required")
	}

	cmd := exec.Command(p.Name, p.Args...)
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("launch %s: %w", p.Name, err)
	}
	pid := cmd.Process.Pid
	go cmd.Wait()

	return map[string]any{"ok": true, "pid": pid}, nil
}

// openFile hands a file to the desktop's default handler.
func (a *appActions) openFile(ctx context.Context, params json.RawMessage) (any, error) {
	var p schema.OpenFileParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, fmt.Errorf("open_file params: %w", err)
	}
	if p.Path == "" {
		return nil, errors.New("path is required")
	}
	if _, err := os.Stat(p.Path); err != nil {
		return nil, err
	}

	cmd := exec.Command(a.openCommand, p.Path)
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("open %s: %w", p.Path, err)
	}
	go cmd.Wait()

	return okResult(), nil
}
