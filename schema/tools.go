package schema

import "sort"

// ProtocolVersion is advertised by the guest in health reports. It is bumped
// whenever the tool vocabulary or wire shapes change incompatibly.
const ProtocolVersion = 1

// Guest tool names. Each maps one-to-one onto a dispatcher method inside the
// guest agent.
const (
	ToolLaunchApp             = "launch_app"
	ToolOpenFile              = "open_file"
	ToolReadFile              = "read_file"
	ToolMoveFile              = "move_file"
	ToolMoveMouse             = "move_mouse"
	ToolClickMouse            = "click_mouse"
	ToolDragMouse             = "drag_mouse"
	ToolTypeText              = "type_text"
	ToolPressKey              = "press_key"
	ToolScroll                = "scroll"
	ToolRunCommand            = "run_command"
	ToolWait                  = "wait"
	ToolReadAccessibilityTree = "read_accessibility_tree"
	ToolCheckHealth           = "check_health"
)

// Host tool names. These are answered by host-side services and must never
// cross the wire to the guest.
const (
	ToolAskQuestion         = "ask_question"
	ToolAskChoice           = "ask_choice"
	ToolRequestIntervention = "request_intervention"
	ToolFetchCredentials    = "fetch_credentials"
	ToolWebSearch           = "web_search"
	ToolReadWebpage         = "read_webpage"
	ToolLookupLocation      = "lookup_location"
	ToolManageTodos         = "manage_todos"
)

var guestTools = map[string]struct{}{
	ToolLaunchApp:             {},
	ToolOpenFile:              {},
	ToolReadFile:              {},
	ToolMoveFile:              {},
	ToolMoveMouse:             {},
	ToolClickMouse:            {},
	ToolDragMouse:             {},
	ToolTypeText:              {},
	ToolPressKey:              {},
	ToolScroll:                {},
	ToolRunCommand:            {},
	ToolWait:                  {},
	ToolReadAccessibilityTree: {},
	ToolCheckHealth:           {},
}

var hostTools = map[string]struct{}{
	ToolAskQuestion:         {},
	ToolAskChoice:           {},
	ToolRequestIntervention: {},
	ToolFetchCredentials:    {},
	ToolWebSearch:           {},
	ToolReadWebpage:         {},
	ToolLookupLocation:      {},
	ToolManageTodos:         {},
}

// IsGuestTool reports whether name is dispatched over the guest transport.
func IsGuestTool(name string) bool {
	_, ok := guestTools[name]
	return ok
}

// IsHostTool reports whether name is answered on the host without touching
// the guest.
func IsHostTool(name string) bool {
	_, ok := hostTools[name]
	return ok
}

// IsKnownTool reports whether name belongs to the tool vocabulary at all.
func IsKnownTool(name string) bool {
	return IsGuestTool(name) || IsHostTool(name)
}

// GuestTools returns the guest tool names in sorted order.
func GuestTools() []string {
	return sortedKeys(guestTools)
}

// HostTools returns the host tool names in sorted order.
func HostTools() []string {
	return sortedKeys(hostTools)
}

func sortedKeys(m map[string]struct{}) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
