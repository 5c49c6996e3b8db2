package executor

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/voocel/pilot/schema"
)

// Model-emitted arguments arrive as untyped JSON and are frequently sloppy:
// integers where floats belong, numbers quoted as strings, optional fields
// missing. Each guest tool gets a parse function that coerces what it can and
// rejects only what it must.

type argReader struct {
	args map[string]any
	err  error
}

func newArgReader(raw json.RawMessage) (*argReader, error) {
	r := &argReader{args: map[string]any{}}
	if len(raw) == 0 {
		return r, nil
	}
	if err := json.Unmarshal(raw, &r.args); err != nil {
		return nil, fmt.Errorf("arguments are not a JSON object: %w", err)
	}
	return r, nil
}

// fail records the first problem; later reads still run so the reader's
// zero values keep struct construction simple.
func (r *argReader) fail(format string, args ...any) {
	if r.err == nil {
		r.err = fmt.Errorf(format, args...)
	}
}

func (r *argReader) Err() error { return r.err }

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

// float reads a mandatory numeric field, accepting integers, fractions, and
// number-bearing strings alike.
func (r *argReader) float(key string) float64 {
	v, ok := r.args[key]
	if !ok {
		r.fail("missing required field %q", key)
		return 0
	}
	f, ok := toFloat(v)
	if !ok {
		r.fail("field %q is not a number", key)
		return 0
	}
	return f
}

func (r *argReader) floatOr(key string, def float64) float64 {
	v, ok := r.args[key]
	if !ok || v == nil {
		return def
	}
	f, ok := toFloat(v)
	if !ok {
		return def
	}
	return f
}

func (r *argReader) intOr(key string, def int64) int64 {
	return int64(r.floatOr(key, float64(def)))
}

func (r *argReader) str(key string) string {
	v, ok := r.args[key]
	if !ok {
		r.fail("missing required field %q", key)
		return ""
	}
	s, ok := v.(string)
	if !ok {
		r.fail("field %q is not a string", key)
		return ""
	}
	return s
}

func (r *argReader) strOr(key, def string) string {
	v, ok := r.args[key]
	if !ok || v == nil {
		return def
	}
	if s, ok := v.(string); ok && s != "" {
		return s
	}
	return def
}

func (r *argReader) boolOr(key string, def bool) bool {
	v, ok := r.args[key]
	if !ok || v == nil {
		return def
	}
	switch b := v.(type) {
	case bool:
		return b
	case string:
		parsed, err := strconv.ParseBool(b)
		if err != nil {
			return def
		}
		return parsed
	default:
		return def
	}
}

func (r *argReader) stringsOr(key string) []string {
	v, ok := r.args[key]
	if !ok || v == nil {
		return nil
	}
	list, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(list))
	for _, item := range list {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func normalizeButton(r *argReader) string {
	button := strings.ToLower(r.strOr("button", schema.MouseLeft))
	switch button {
	case schema.MouseLeft, schema.MouseRight, schema.MouseMiddle:
		return button
	default:
		r.fail("unknown mouse button %q", button)
		return schema.MouseLeft
	}
}

func parseMoveMouse(raw json.RawMessage) (schema.MoveMouseParams, error) {
	r, err := newArgReader(raw)
	if err != nil {
		return schema.MoveMouseParams{}, err
	}
	p := schema.MoveMouseParams{X: r.float("x"), Y: r.float("y")}
	return p, r.Err()
}

func parseClickMouse(raw json.RawMessage) (schema.ClickMouseParams, error) {
	r, err := newArgReader(raw)
	if err != nil {
		return schema.ClickMouseParams{}, err
	}
	p := schema.ClickMouseParams{
		X:      r.float("x"),
		Y:      r.float("y"),
		Button: normalizeButton(r),
		Double: r.boolOr("double", false),
	}
	return p, r.Err()
}

func parseDragMouse(raw json.RawMessage) (schema.DragMouseParams, error) {
	r, err := newArgReader(raw)
	if err != nil {
		return schema.DragMouseParams{}, err
	}
	p := schema.DragMouseParams{
		FromX:  r.float("from_x"),
		FromY:  r.float("from_y"),
		ToX:    r.float("to_x"),
		ToY:    r.float("to_y"),
		Button: normalizeButton(r),
	}
	return p, r.Err()
}

func parseTypeText(raw json.RawMessage) (schema.TypeTextParams, error) {
	r, err := newArgReader(raw)
	if err != nil {
		return schema.TypeTextParams{}, err
	}
	p := schema.TypeTextParams{Text: r.str("text")}
	if r.Err() == nil && p.Text == "" {
		return p, fmt.Errorf("text must not be empty")
	}
	return p, r.Err()
}

func parsePressKey(raw json.RawMessage) (schema.PressKeyParams, error) {
	r, err := newArgReader(raw)
	if err != nil {
		return schema.PressKeyParams{}, err
	}
	p := schema.PressKeyParams{
		Key:       r.str("key"),
		Modifiers: r.stringsOr("modifiers"),
	}
	return p, r.Err()
}

func parseScroll(raw json.RawMessage) (schema.ScrollParams, error) {
	r, err := newArgReader(raw)
	if err != nil {
		return schema.ScrollParams{}, err
	}
	p := schema.ScrollParams{
		X:      r.float("x"),
		Y:      r.float("y"),
		DeltaX: r.floatOr("delta_x", 0),
		DeltaY: r.floatOr("delta_y", 0),
	}
	if r.Err() == nil && p.DeltaX == 0 && p.DeltaY == 0 {
		return p, fmt.Errorf("at least one of delta_x and delta_y must be non-zero")
	}
	return p, r.Err()
}

type runCommandArgs struct {
	Command   string
	TimeoutMS int64
}

func parseRunCommand(raw json.RawMessage) (runCommandArgs, error) {
	r, err := newArgReader(raw)
	if err != nil {
		return runCommandArgs{}, err
	}
	p := runCommandArgs{
		Command:   r.str("command"),
		TimeoutMS: r.intOr("timeout_ms", 0),
	}
	if r.Err() == nil && strings.TrimSpace(p.Command) == "" {
		return p, fmt.Errorf("command must not be empty")
	}
	return p, r.Err()
}

type launchAppArgs struct {
	Name string
	Args []string
}

func parseLaunchApp(raw json.RawMessage) (launchAppArgs, error) {
	r, err := newArgReader(raw)
	if err != nil {
		return launchAppArgs{}, err
	}
	p := launchAppArgs{
		Name: r.str("name"),
		Args: r.stringsOr("args"),
	}
	return p, r.Err()
}

func parsePath(raw json.RawMessage) (string, error) {
	r, err := newArgReader(raw)
	if err != nil {
		return "", err
	}
	path := r.str("path")
	return path, r.Err()
}

type moveFileArgs struct {
	Source      string
	Destination string
}

func parseMoveFile(raw json.RawMessage) (moveFileArgs, error) {
	r, err := newArgReader(raw)
	if err != nil {
		return moveFileArgs{}, err
	}
	p := moveFileArgs{
		Source:      r.str("source"),
		Destination: r.str("destination"),
	}
	return p, r.Err()
}

func parseWait(raw json.RawMessage) (int64, error) {
	r, err := newArgReader(raw)
	if err != nil {
		return 0, err
	}
	ms := r.intOr("duration_ms", 1000)
	if ms <= 0 {
		ms = 1000
	}
	return ms, r.Err()
}
