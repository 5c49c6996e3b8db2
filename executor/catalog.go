package executor

import (
	"github.com/voocel/pilot/llm"
	"github.com/voocel/pilot/schema"
	"github.com/voocel/pilot/tools"
)

// Specs returns the tool specifications advertised to the model: every guest
// tool, then every registered host tool. Host tool specs come straight from
// their registrations so the two never drift.
func (e *Executor) Specs() []llm.ToolSpec {
	specs := guestSpecs()
	if e.host != nil {
		for _, t := range e.host.List() {
			specs = append(specs, llm.ToolSpec{
				Name:        t.Name(),
				Description: t.Description(),
				Parameters:  t.Schema().Map(),
			})
		}
	}
	return specs
}

func guestSpecs() []llm.ToolSpec {
	coord := func(axis string) *tools.PropertySchema {
		return tools.NumberProperty(axis + " coordinate in screen pixels")
	}
	button := tools.EnumProperty("mouse button to use, default left",
		[]string{schema.MouseLeft, schema.MouseRight, schema.MouseMiddle})

	return []llm.ToolSpec{
		{
			Name:        schema.ToolLaunchApp,
			Description: "Start an application inside the virtual machine by its executable name.",
			Parameters: tools.ObjectSchema(map[string]*tools.PropertySchema{
				"name": tools.StringProperty("executable name, e.g. firefox"),
				"args": tools.ArrayProperty("optional command-line arguments", tools.StringProperty("one argument")),
			}, "name").Map(),
		},
		{
			Name:        schema.ToolOpenFile,
			Description: "Open a file in the virtual machine with its default desktop application.",
			Parameters: tools.ObjectSchema(map[string]*tools.PropertySchema{
				"path": tools.StringProperty("absolute path of the file to open"),
			}, "path").Map(),
		},
		{
			Name:        schema.ToolReadFile,
			Description: "Read a file from the virtual machine. Text comes back inline; images come back as attachments.",
			Parameters: tools.ObjectSchema(map[string]*tools.PropertySchema{
				"path": tools.StringProperty("absolute path of the file to read"),
			}, "path").Map(),
		},
		{
			Name:        schema.ToolMoveFile,
			Description: "Move or rename a file inside the virtual machine.",
			Parameters: tools.ObjectSchema(map[string]*tools.PropertySchema{
				"source":      tools.StringProperty("current absolute path"),
				"destination": tools.StringProperty("new absolute path"),
			}, "source", "destination").Map(),
		},
		{
			Name:        schema.ToolMoveMouse,
			Description: "Move the mouse cursor to an absolute screen position.",
			Parameters: tools.ObjectSchema(map[string]*tools.PropertySchema{
				"x": coord("x"),
				"y": coord("y"),
			}, "x", "y").Map(),
		},
		{
			Name:        schema.ToolClickMouse,
			Description: "Click at an absolute screen position.",
			Parameters: tools.ObjectSchema(map[string]*tools.PropertySchema{
				"x":      coord("x"),
				"y":      coord("y"),
				"button": button,
				"double": tools.BooleanProperty("true for a double click"),
			}, "x", "y").Map(),
		},
		{
			Name:        schema.ToolDragMouse,
			Description: "Press the mouse button at one position, move, and release at another.",
			Parameters: tools.ObjectSchema(map[string]*tools.PropertySchema{
				"from_x": coord("starting x"),
				"from_y": coord("starting y"),
				"to_x":   coord("ending x"),
				"to_y":   coord("ending y"),
				"button": button,
			}, "from_x", "from_y", "to_x", "to_y").Map(),
		},
		{
			Name:        schema.ToolTypeText,
			Description: "Type literal text into the focused element. Credential placeholders from fetch_credentials are substituted with the real values during typing.",
			Parameters: tools.ObjectSchema(map[string]*tools.PropertySchema{
				"text": tools.StringProperty("text to type, including any credential placeholders verbatim"),
			}, "text").Map(),
		},
		{
			Name:        schema.ToolPressKey,
			Description: "Press a single key, optionally with modifiers, e.g. Return or ctrl+shift+t.",
			Parameters: tools.ObjectSchema(map[string]*tools.PropertySchema{
				"key":       tools.StringProperty("key name, e.g. Return, Tab, F5, a"),
				"modifiers": tools.ArrayProperty("modifier keys to hold", tools.EnumProperty("modifier", []string{"ctrl", "alt", "shift", "super"})),
			}, "key").Map(),
		},
		{
			Name:        schema.ToolScroll,
			Description: "Scroll at a screen position. Positive delta_y scrolls down, negative up.",
			Parameters: tools.ObjectSchema(map[string]*tools.PropertySchema{
				"x":       coord("x"),
				"y":       coord("y"),
				"delta_x": tools.NumberProperty("horizontal scroll amount"),
				"delta_y": tools.NumberProperty("vertical scroll amount"),
			}, "x", "y").Map(),
		},
		{
			Name:        schema.ToolRunCommand,
			Description: "Run a shell command inside the virtual machine and return its combined output. May require the user's approval.",
			Parameters: tools.ObjectSchema(map[string]*tools.PropertySchema{
				"command":    tools.StringProperty("shell command line to execute"),
				"timeout_ms": tools.NumberProperty("optional timeout in milliseconds"),
			}, "command").Map(),
		},
		{
			Name:        schema.ToolWait,
			Description: "Pause before the next action, e.g. while a page loads.",
			Parameters: tools.ObjectSchema(map[string]*tools.PropertySchema{
				"duration_ms": tools.NumberProperty("how long to wait in milliseconds, default 1000"),
			}).Map(),
		},
		{
			Name:        schema.ToolReadAccessibilityTree,
			Description: "List the visible windows and UI elements in the virtual machine with their positions.",
			Parameters:  tools.ObjectSchema(nil).Map(),
		},
		{
			Name:        schema.ToolCheckHealth,
			Description: "Check that the agent inside the virtual machine is alive and report basic system stats.",
			Parameters:  tools.ObjectSchema(nil).Map(),
		},
	}
}
