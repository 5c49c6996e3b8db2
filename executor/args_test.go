package executor

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/voocel/pilot/schema"
)

func TestParseClickMouseCoercion(t *testing.T) {
	tests := []struct {
		name string
		args string
		want schema.ClickMouseParams
	}{
		{
			name: "integers",
			args: `{"x":100,"y":200}`,
			want: schema.ClickMouseParams{X: 100, Y: 200, Button: "left"},
		},
		{
			name: "fractions",
			args: `{"x":42.5,"y":0.25}`,
			want: schema.ClickMouseParams{X: 42.5, Y: 0.25, Button: "left"},
		},
		{
			name: "quoted numbers",
			args: `{"x":"250","y":"41.5"}`,
			want: schema.ClickMouseParams{X: 250, Y: 41.5, Button: "left"},
		},
		{
			name: "button case folded",
			args: `{"x":1,"y":2,"button":"Right","double":true}`,
			want: schema.ClickMouseParams{X: 1, Y: 2, Button: "right", Double: true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseClickMouse(json.RawMessage(tt.args))
			if err != nil {
				t.Fatalf("parseClickMouse(%s) failed: %v", tt.args, err)
			}
			if got != tt.want {
				t.Errorf("Expected %+v, got %+v", tt.want, got)
			}
		})
	}
}

func TestParseClickMouseRejectsUnknownButton(t *testing.T) {
	_, err := parseClickMouse(json.RawMessage(`{"x":1,"y":2,"button":"thumb"}`))
	if err == nil {
		t.Fatal("Expected error for unknown button")
	}
	if !strings.Contains(err.Error(), "thumb") {
		t.Errorf("Expected button name in error, got %v", err)
	}
}

func TestParseMoveMouseMissingField(t *testing.T) {
	_, err := parseMoveMouse(json.RawMessage(`{"y":10}`))
	if err == nil {
		t.Fatal("Expected error for missing x")
	}
	if !strings.Contains(err.Error(), `"x"`) {
		t.Errorf("Expected missing field named, got %v", err)
	}
}

func TestParseMoveMouseNonNumeric(t *testing.T) {
	_, err := parseMoveMouse(json.RawMessage(`{"x":"over there","y":10}`))
	if err == nil {
		t.Fatal("Expected error for non-numeric x")
	}
}

func TestParseArgsNotAnObject(t *testing.T) {
	_, err := parseMoveMouse(json.RawMessage(`[1,2]`))
	if err == nil {
		t.Fatal("Expected error for array arguments")
	}
	if !strings.Contains(err.Error(), "JSON object") {
		t.Errorf("Expected shape error, got %v", err)
	}
}

func TestParseTypeTextRequiresText(t *testing.T) {
	if _, err := parseTypeText(json.RawMessage(`{}`)); err == nil {
		t.Error("Expected error for missing text")
	}
	if _, err := parseTypeText(json.RawMessage(`{"text":""}`)); err == nil {
		t.Error("Expected error for empty text")
	}
}

func TestParseScrollRequiresDelta(t *testing.T) {
	if _, err := parseScroll(json.RawMessage(`{"x":5,"y":5}`)); err == nil {
		t.Error("Expected error when both deltas are zero")
	}

	p, err := parseScroll(json.RawMessage(`{"x":5,"y":5,"delta_y":-3}`))
	if err != nil {
		t.Fatalf("parseScroll failed: %v", err)
	}
	if p.DeltaY != -3 || p.DeltaX != 0 {
		t.Errorf("Expected delta (0, -3), got (%v, %v)", p.DeltaX, p.DeltaY)
	}
}

func TestParseRunCommand(t *testing.T) {
	p, err := parseRunCommand(json.RawMessage(`{"command":"ls -la","timeout_ms":5000}`))
	if err != nil {
		t.Fatalf("parseRunCommand failed: %v", err)
	}
	if p.Command != "ls -la" || p.TimeoutMS != 5000 {
		t.Errorf("Expected ls -la with 5000ms, got %+v", p)
	}

	p, err = parseRunCommand(json.RawMessage(`{"command":"uptime"}`))
	if err != nil {
		t.Fatalf("parseRunCommand failed: %v", err)
	}
	if p.TimeoutMS != 0 {
		t.Errorf("Expected zero timeout when omitted, got %d", p.TimeoutMS)
	}

	if _, err := parseRunCommand(json.RawMessage(`{"command":"  "}`)); err == nil {
		t.Error("Expected error for blank command")
	}
}

func TestParseWaitDefaults(t *testing.T) {
	ms, err := parseWait(nil)
	if err != nil {
		t.Fatalf("parseWait failed: %v", err)
	}
	if ms != 1000 {
		t.Errorf("Expected default 1000ms, got %d", ms)
	}

	ms, err = parseWait(json.RawMessage(`{"duration_ms":-50}`))
	if err != nil {
		t.Fatalf("parseWait failed: %v", err)
	}
	if ms != 1000 {
		t.Errorf("Expected negative duration clamped to default, got %d", ms)
	}

	ms, err = parseWait(json.RawMessage(`{"duration_ms":250}`))
	if err != nil {
		t.Fatalf("parseWait failed: %v", err)
	}
	if ms != 250 {
		t.Errorf("Expected 250ms, got %d", ms)
	}
}

func TestParseMoveFileRequiresBothEnds(t *testing.T) {
	_, err := parseMoveFile(json.RawMessage(`{"source":"/tmp/a"}`))
	if err == nil {
		t.Fatal("Expected error for missing destination")
	}

	p, err := parseMoveFile(json.RawMessage(`{"source":"/tmp/a","destination":"/tmp/b"}`))
	if err != nil {
		t.Fatalf("parseMoveFile failed: %v", err)
	}
	if p.Source != "/tmp/a" || p.Destination != "/tmp/b" {
		t.Errorf("Expected both paths, got %+v", p)
	}
}

func TestParseLaunchAppArgs(t *testing.T) {
	p, err := parseLaunchApp(json.RawMessage(`{"name":"firefox","args":["--private-window","https://example.com"]}`))
	if err != nil {
		t.Fatalf("parseLaunchApp failed: %v", err)
	}
	if p.Name != "firefox" || len(p.Args) != 2 || p.Args[0] != "--private-window" {
		t.Errorf("Expected firefox with 2 args, got %+v", p)
	}
}

func TestParsePressKeyModifiers(t *testing.T) {
	p, err := parsePressKey(json.RawMessage(`{"key":"t","modifiers":["ctrl","shift"]}`))
	if err != nil {
		t.Fatalf("parsePressKey failed: %v", err)
	}
	if p.Key != "t" || len(p.Modifiers) != 2 {
		t.Errorf("Expected t with ctrl+shift, got %+v", p)
	}
	if got := keyChord(p); got != "ctrl+shift+t" {
		t.Errorf("Expected chord ctrl+shift+t, got %q", got)
	}
}
