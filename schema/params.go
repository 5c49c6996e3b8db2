package schema

// Wire shapes for guest methods. The host encodes these as request params and
// the guest decodes them, so both sides share one definition.
//
// Coordinates are screen-space doubles with the origin at the top-left corner:
// x grows rightward, y grows downward.

// Mouse buttons accepted by click and drag.
const (
	MouseLeft   = "left"
	MouseRight  = "right"
	MouseMiddle = "middle"
)

// MoveMouseParams positions the pointer.
type MoveMouseParams struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// ClickMouseParams clicks at a position.
type ClickMouseParams struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Button string  `json:"button"`
	Double bool    `json:"double,omitempty"`
}

// DragMouseParams presses at the origin, moves, and releases at the target.
type DragMouseParams struct {
	FromX  float64 `json:"from_x"`
	FromY  float64 `json:"from_y"`
	ToX    float64 `json:"to_x"`
	ToY    float64 `json:"to_y"`
	Button string  `json:"button"`
}

// TypeTextParams injects literal text through the keyboard.
type TypeTextParams struct {
	Text string `json:"text"`
}

// PressKeyParams presses a single named key with optional modifiers.
type PressKeyParams struct {
	Key       string   `json:"key"`
	Modifiers []string `json:"modifiers,omitempty"`
}

// ScrollParams scrolls at a position by the given deltas.
type ScrollParams struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	DeltaX float64 `json:"delta_x,omitempty"`
	DeltaY float64 `json:"delta_y,omitempty"`
}

// RunCommandParams executes a shell command. TimeoutMS of zero means the
// guest's default command timeout applies.
type RunCommandParams struct {
	Command   string `json:"command"`
	TimeoutMS int64  `json:"timeout_ms,omitempty"`
}

// LaunchAppParams starts an application by name.
type LaunchAppParams struct {
	Name string   `json:"name"`
	Args []string `json:"args,omitempty"`
}

// OpenFileParams opens a file with the desktop's default handler.
type OpenFileParams struct {
	Path string `json:"path"`
}

// ReadFileParams reads a file's content.
type ReadFileParams struct {
	Path string `json:"path"`
}

// MoveFileParams renames or moves a file.
type MoveFileParams struct {
	Source      string `json:"source"`
	Destination string `json:"destination"`
}

// WaitParams pauses the guest for a duration.
type WaitParams struct {
	DurationMS int64 `json:"duration_ms"`
}

// CommandResult is the outcome of run_command. Output interleaves stdout and
// stderr the way a terminal would show them.
type CommandResult struct {
	Output   string `json:"output"`
	ExitCode int    `json:"exit_code"`
	TimedOut bool   `json:"timed_out,omitempty"`
}

// FileContent is the outcome of read_file. Text is set for textual files,
// Image for recognized image formats.
type FileContent struct {
	Path  string        `json:"path"`
	Size  int64         `json:"size"`
	Text  string        `json:"text,omitempty"`
	Image *ImagePayload `json:"image,omitempty"`
}

// AXNode is one node of the accessibility tree.
type AXNode struct {
	Role     string   `json:"role"`
	Name     string   `json:"name,omitempty"`
	Value    string   `json:"value,omitempty"`
	X        int      `json:"x,omitempty"`
	Y        int      `json:"y,omitempty"`
	Width    int      `json:"width,omitempty"`
	Height   int      `json:"height,omitempty"`
	Children []AXNode `json:"children,omitempty"`
}

// HealthReport is the outcome of check_health.
type HealthReport struct {
	Status          string  `json:"status"`
	ProtocolVersion int     `json:"protocol_version"`
	Hostname        string  `json:"hostname,omitempty"`
	UptimeSec       uint64  `json:"uptime_sec,omitempty"`
	CPUPercent      float64 `json:"cpu_percent,omitempty"`
	MemPercent      float64 `json:"mem_percent,omitempty"`
}
