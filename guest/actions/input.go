package actions

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os/exec"
	"strconv"
	"strings"

	"github.com/voocel/pilot/schema"
)

// Injector is the platform boundary for pointer and keyboard injection.
// Coordinates are screen-space doubles, origin top-left.
type Injector interface {
	MoveMouse(ctx context.Context, x, y float64) error
	ClickMouse(ctx context.Context, x, y float64, button string, double bool) error
	DragMouse(ctx context.Context, fromX, fromY, toX, toY float64, button string) error
	TypeText(ctx context.Context, text string) error
	PressKey(ctx context.Context, key string, modifiers []string) error
	Scroll(ctx context.Context, x, y, deltaX, deltaY float64) error
}

type inputActions struct {
	inj Injector
}

func (a *inputActions) moveMouse(ctx context.Context, params json.RawMessage) (any, error) {
	var p schema.MoveMouseParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, fmt.Errorf("move_mouse params: %w", err)
	}
	if err := a.inj.MoveMouse(ctx, p.X, p.Y); err != nil {
		return nil, err
	}
	return okResult(), nil
}

func (a *inputActions) clickMouse(ctx context.Context, params json.RawMessage) (any, error) {
	var p schema.ClickMouseParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, fmt.Errorf("click_mouse params: %w", err)
	}
	if p.Button == "" {
		p.Button = schema.MouseLeft
	}
	if err := a.inj.ClickMouse(ctx, p.X, p.Y, p.Button, p.Double); err != nil {
		return nil, err
	}
	return okResult(), nil
}

func (a *inputActions) dragMouse(ctx context.Context, params json.RawMessage) (any, error) {
	var p schema.DragMouseParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, fmt.Errorf("drag_mouse params: %w", err)
	}
	if p.Button == "" {
		p.Button = schema.MouseLeft
	}
	if err := a.inj.DragMouse(ctx, p.FromX, p.FromY, p.ToX, p.ToY, p.Button); err != nil {
		return nil, err
	}
	return okResult(), nil
}

func (a *inputActions) typeText(ctx context.Context, params json.RawMessage) (any, error) {
	var p schema.TypeTextParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, fmt.Errorf("type_text params: %w", err)
	}
	if err := a.inj.TypeText(ctx, p.Text); err != nil {
		return nil, err
	}
	return map[string]int{"typed_chars": len([]rune(p.Text))}, nil
}

func (a *inputActions) pressKey(ctx context.Context, params json.RawMessage) (any, error) {
	var p schema.PressKeyParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, fmt.Errorf("press_key params: %w", err)
	}
	if p.Key == "" {
		return nil, fmt.Errorf("key is required")
	}
	if err := a.inj.PressKey(ctx, p.Key, p.Modifiers); err != nil {
		return nil, err
	}
	return okResult(), nil
}

func (a *inputActions) scroll(ctx context.Context, params json.RawMessage) (any, error) {
	var p schema.ScrollParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, fmt.Errorf("scroll params: %w", err)
	}
	if err := a.inj.Scroll(ctx, p.X, p.Y, p.DeltaX, p.DeltaY); err != nil {
		return nil, err
	}
	return okResult(), nil
}

// ExecInjector drives an X11 desktop through xdotool. Other platforms supply
// their own Injector.
type ExecInjector struct {
	// Command overrides the xdotool binary, mainly for tests.
	Command string
}

func (e *ExecInjector) command() string {
	if e.Command == "" {
		return "xdotool"
	}
	return e.Command
}

func (e *ExecInjector) run(ctx context.Context, args ...string) error {
	out, err := exec.CommandContext(ctx, e.command(), args...).CombinedOutput()
	if err != nil {
		return fmt.Errorf("%s %s: %v: %s", e.command(), args[0], err, strings.TrimSpace(string(out)))
	}
	return nil
}

func (e *ExecInjector) MoveMouse(ctx context.Context, x, y float64) error {
	return e.run(ctx, "mousemove", coord(x), coord(y))
}

func (e *ExecInjector) ClickMouse(ctx context.Context, x, y float64, button string, double bool) error {
	args := []string{"mousemove", coord(x), coord(y), "click"}
	if double {
		args = append(args, "--repeat", "2", "--delay", "120")
	}
	args = append(args, buttonNumber(button))
	return e.run(ctx, args...)
}

func (e *ExecInjector) DragMouse(ctx context.Context, fromX, fromY, toX, toY float64, button string) error {
	btn := buttonNumber(button)
	return e.run(ctx,
		"mousemove", coord(fromX), coord(fromY),
		"mousedown", btn,
		"mousemove", coord(toX), coord(toY),
		"mouseup", btn,
	)
}

func (e *ExecInjector) TypeText(ctx context.Context, text string) error {
	if text == "" {
		return nil
	}
	return e.run(ctx, "type", "--delay", "12", "--", text)
}

func (e *ExecInjector) PressKey(ctx context.Context, key string, modifiers []string) error {
	return e.run(ctx, "key", "--", keyChord(key, modifiers))
}

func (e *ExecInjector) Scroll(ctx context.Context, x, y, deltaX, deltaY float64) error {
	if err := e.run(ctx, "mousemove", coord(x), coord(y)); err != nil {
		return err
	}
	if deltaY != 0 {
		button := "4" // wheel up
		if deltaY > 0 {
			button = "5" // wheel down
		}
		if err := e.run(ctx, "click", "--repeat", strconv.Itoa(scrollNotches(deltaY)), button); err != nil {
			return err
		}
	}
	if deltaX != 0 {
		button := "6" // wheel left
		if deltaX > 0 {
			button = "7" // wheel right
		}
		if err := e.run(ctx, "click", "--repeat", strconv.Itoa(scrollNotches(deltaX)), button); err != nil {
			return err
		}
	}
	return nil
}

func coord(v float64) string {
	return strconv.Itoa(int(math.Round(v)))
}

// scrollNotches converts a pixel-ish delta into wheel notches, clamped so a
// huge delta cannot spin the wheel forever.
func scrollNotches(delta float64) int {
	n := int(math.Round(math.Abs(delta) / 40))
	if n < 1 {
		n = 1
	}
	if n > 30 {
		n = 30
	}
	return n
}

func buttonNumber(button string) string {
	switch button {
	case schema.MouseRight:
		return "3"
	case schema.MouseMiddle:
		return "2"
	default:
		return "1"
	}
}

var keyNames = map[string]string{
	"enter":     "Return",
	"return":    "Return",
	"esc":       "Escape",
	"escape":    "Escape",
	"tab":       "Tab",
	"space":     "space",
	"backspace": "BackSpace",
	"delete":    "Delete",
	"up":        "Up",
	"down":      "Down",
	"left":      "Left",
	"right":     "Right",
	"home":      "Home",
	"end":       "End",
	"pageup":    "Page_Up",
	"pagedown":  "Page_Down",
}

var modifierNames = map[string]string{
	"ctrl":    "ctrl",
	"control": "ctrl",
	"alt":     "alt",
	"shift":   "shift",
	"super":   "super",
	"cmd":     "super",
	"meta":    "super",
}

// keyChord builds the xdotool key specification, e.g. ctrl+shift+Return.
func keyChord(key string, modifiers []string) string {
	parts := make([]string, 0, len(modifiers)+1)
	for _, m := range modifiers {
		if name, ok := modifierNames[strings.ToLower(m)]; ok {
			parts = append(parts, name)
		} else {
			parts = append(parts, m)
		}
	}
	if name, ok := keyNames[strings.ToLower(key)]; ok {
		parts = append(parts, name)
	} else {
		parts = append(parts, key)
	}
	return strings.Join(parts, "+")
}
