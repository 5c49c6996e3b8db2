package actions

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/voocel/pilot/guest"
	"github.com/voocel/pilot/schema"
)

// fakeInjector records calls instead of driving a desktop.
type fakeInjector struct {
	calls []string
	texts []string
	keys  []string
	err   error
}

func (f *fakeInjector) MoveMouse(ctx context.Context, x, y float64) error {
	f.calls = append(f.calls, "move")
	return f.err
}

func (f *fakeInjector) ClickMouse(ctx context.Context, x, y float64, button string, double bool) error {
	f.calls = append(f.calls, "click:"+button)
	return f.err
}

func (f *fakeInjector) DragMouse(ctx context.Context, fromX, fromY, toX, toY float64, button string) error {
	f.calls = append(f.calls, "drag:"+button)
	return f.err
}

func (f *fakeInjector) TypeText(ctx context.Context, text string) error {
	f.calls = append(f.calls, "type")
	f.texts = append(f.texts, text)
	return f.err
}

func (f *fakeInjector) PressKey(ctx context.Context, key string, modifiers []string) error {
	f.calls = append(f.calls, "key")
	f.keys = append(f.keys, keyChord(key, modifiers))
	return f.err
}

func (f *fakeInjector) Scroll(ctx context.Context, x, y, deltaX, deltaY float64) error {
	f.calls = append(f.calls, "scroll")
	return f.err
}

type fakeTree struct{}

func (fakeTree) ReadTree(ctx context.Context) (schema.AXNode, error) {
	return schema.AXNode{Role: "desktop"}, nil
}

func TestRegisterCoversVocabulary(t *testing.T) {
	d := guest.NewDispatcher()
	Register(d, Options{Input: &fakeInjector{}, Tree: fakeTree{}})

	methods := d.Methods()
	want := schema.GuestTools()
	if len(methods) != len(want) {
		t.Fatalf("Expected %d methods, got %d: %v", len(want), len(methods), methods)
	}
	for i := range want {
		if methods[i] != want[i] {
			t.Errorf("method %d = %s, want %s", i, methods[i], want[i])
		}
	}
}

func TestClickMouseDefaultsToLeft(t *testing.T) {
	inj := &fakeInjector{}
	a := &inputActions{inj: inj}

	if _, err := a.clickMouse(context.Background(), json.RawMessage(`{"x":10,"y":20}`)); err != nil {
		t.Fatalf("clickMouse failed: %v", err)
	}
	if len(inj.calls) != 1 || inj.calls[0] != "click:left" {
		t.Errorf("Expected click:left, got %v", inj.calls)
	}
}

func TestTypeTextPassesThrough(t *testing.T) {
	inj := &fakeInjector{}
	a := &inputActions{inj: inj}

	result, err := a.typeText(context.Background(), json.RawMessage(`{"text":"héllo"}`))
	if err != nil {
		t.Fatalf("typeText failed: %v", err)
	}
	if inj.texts[0] != "héllo" {
		t.Errorf("Expected héllo, got %q", inj.texts[0])
	}
	counts := result.(map[string]int)
	if counts["typed_chars"] != 5 {
		t.Errorf("Expected 5 typed chars, got %d", counts["typed_chars"])
	}
}

func TestPressKeyRequiresKey(t *testing.T) {
	a := &inputActions{inj: &fakeInjector{}}
	if _, err := a.pressKey(context.Background(), json.RawMessage(`{}`)); err == nil {
		t.Error("expected error for missing key")
	}
}

func TestKeyChord(t *testing.T) {
	tests := []struct {
		key  string
		mods []string
		want string
	}{
		{"enter", nil, "Return"},
		{"a", []string{"ctrl"}, "ctrl+a"},
		{"tab", []string{"control", "shift"}, "ctrl+shift+Tab"},
		{"t", []string{"cmd"}, "super+t"},
		{"F5", nil, "F5"},
		{"pagedown", nil, "Page_Down"},
	}
	for _, tt := range tests {
		if got := keyChord(tt.key, tt.mods); got != tt.want {
			t.Errorf("keyChord(%q, %v) = %q, want %q", tt.key, tt.mods, got, tt.want)
		}
	}
}

func TestButtonNumber(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{schema.MouseLeft, "1"},
		{schema.MouseMiddle, "2"},
		{schema.MouseRight, "3"},
		{"", "1"},
		{"thumb", "1"},
	}
	for _, tt := range tests {
		if got := buttonNumber(tt.in); got != tt.want {
			t.Errorf("buttonNumber(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}
}

func TestScrollNotches(t *testing.T) {
	tests := []struct {
		delta float64
		want  int
	}{
		{10, 1},
		{-10, 1},
		{120, 3},
		{100000, 30},
	}
	for _, tt := range tests {
		if got := scrollNotches(tt.delta); got != tt.want {
			t.Errorf("scrollNotches(%v) = %d, want %d", tt.delta, got, tt.want)
		}
	}
}

func TestCoordRounds(t *testing.T) {
	if got := coord(42.5); got != "43" {
		t.Errorf("coord(42.5) = %s, want 43", got)
	}
	if got := coord(100); got != "100" {
		t.Errorf("coord(100) = %s, want 100", got)
	}
}
