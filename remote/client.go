package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/voocel/pilot/schema"
)

// Client exposes the guest tool vocabulary as typed methods over whatever
// connection currently occupies the slot. When a call fails because the
// connection died, the client clears the slot so the next attachment takes
// over cleanly.
type Client struct {
	slot *Slot
}

// NewClient creates a client bound to slot.
func NewClient(slot *Slot) *Client {
	return &Client{slot: slot}
}

// Connected reports whether a guest is currently attached.
func (c *Client) Connected() bool {
	return c.slot.Connected()
}

func (c *Client) call(ctx context.Context, method string, params, result any) error {
	conn, err := c.slot.Get()
	if err != nil {
		return err
	}
	raw, err := conn.Call(ctx, method, params)
	if err != nil {
		if errors.Is(err, schema.ErrGuestUnavailable) {
			c.slot.Clear(conn)
		}
		return err
	}
	if result != nil && len(raw) > 0 {
		if err := json.Unmarshal(raw, result); err != nil {
			return fmt.Errorf("decode %s result: %w", method, err)
		}
	}
	return nil
}

func (c *Client) MoveMouse(ctx context.Context, x, y float64) error {
	return c.call(ctx, schema.ToolMoveMouse, schema.MoveMouseParams{X: x, Y: y}, nil)
}

func (c *Client) ClickMouse(ctx context.Context, p schema.ClickMouseParams) error {
	return c.call(ctx, schema.ToolClickMouse, p, nil)
}

func (c *Client) DragMouse(ctx context.Context, p schema.DragMouseParams) error {
	return c.call(ctx, schema.ToolDragMouse, p, nil)
}

func (c *Client) TypeText(ctx context.Context, text string) error {
	return c.call(ctx, schema.ToolTypeText, schema.TypeTextParams{Text: text}, nil)
}

func (c *Client) PressKey(ctx context.Context, p schema.PressKeyParams) error {
	return c.call(ctx, schema.ToolPressKey, p, nil)
}

func (c *Client) Scroll(ctx context.Context, p schema.ScrollParams) error {
	return c.call(ctx, schema.ToolScroll, p, nil)
}

// RunCommand executes a shell command in the guest. A non-zero exit or a
// guest-side timeout is reported inside the result, not as an error.
func (c *Client) RunCommand(ctx context.Context, command string, timeout time.Duration) (schema.CommandResult, error) {
	params := schema.RunCommandParams{Command: command, TimeoutMS: timeout.Milliseconds()}
	var result schema.CommandResult
	err := c.call(ctx, schema.ToolRunCommand, params, &result)
	return result, err
}

func (c *Client) ReadFile(ctx context.Context, path string) (schema.FileContent, error) {
	var result schema.FileContent
	err := c.call(ctx, schema.ToolReadFile, schema.ReadFileParams{Path: path}, &result)
	return result, err
}

func (c *Client) MoveFile(ctx context.Context, source, destination string) error {
	return c.call(ctx, schema.ToolMoveFile, schema.MoveFileParams{Source: source, Destination: destination}, nil)
}

func (c *Client) OpenFile(ctx context.Context, path string) error {
	return c.call(ctx, schema.ToolOpenFile, schema.OpenFileParams{Path: path}, nil)
}

func (c *Client) LaunchApp(ctx context.Context, name string, args []string) error {
	return c.call(ctx, schema.ToolLaunchApp, schema.LaunchAppParams{Name: name, Args: args}, nil)
}

func (c *Client) Wait(ctx context.Context, d time.Duration) error {
	return c.call(ctx, schema.ToolWait, schema.WaitParams{DurationMS: d.Milliseconds()}, nil)
}

func (c *Client) ReadAccessibilityTree(ctx context.Context) (schema.AXNode, error) {
	var result schema.AXNode
	err := c.call(ctx, schema.ToolReadAccessibilityTree, nil, &result)
	return result, err
}

func (c *Client) CheckHealth(ctx context.Context) (schema.HealthReport, error) {
	var result schema.HealthReport
	err := c.call(ctx, schema.ToolCheckHealth, nil, &result)
	return result, err
}
