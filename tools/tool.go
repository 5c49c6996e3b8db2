// Package tools implements the host-answered half of the tool vocabulary:
// interactive questions, credential placeholders, web lookups, and task
// tracking. Guest tools never appear here; the executor routes them over the
// guest transport instead.
package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/voocel/pilot/schema"
)

// Tool is one host-side capability. Execute returns the text handed back to
// the model; failures are ordinary errors and the executor turns them into a
// failed result.
type Tool interface {
	// Name returns the tool's name from the host vocabulary.
	Name() string

	// Description returns what the tool does, phrased for the model.
	Description() string

	// Schema returns the JSON schema for the tool's arguments.
	Schema() *ToolSchema

	// Execute runs the tool with the raw argument payload.
	Execute(ctx context.Context, args json.RawMessage) (string, error)
}

// ToolSchema defines the argument schema for a tool.
type ToolSchema struct {
	Type       string                     `json:"type"`
	Properties map[string]*PropertySchema `json:"properties"`
	Required   []string                   `json:"required,omitempty"`
}

// PropertySchema defines a property in the tool schema.
type PropertySchema struct {
	Type        string          `json:"type"`
	Description string          `json:"description,omitempty"`
	Enum        []string        `json:"enum,omitempty"`
	Items       *PropertySchema `json:"items,omitempty"`
}

// Map renders the schema as the generic shape provider SDKs expect.
func (s *ToolSchema) Map() map[string]any {
	data, err := json.Marshal(s)
	if err != nil {
		return map[string]any{"type": "object"}
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return map[string]any{"type": "object"}
	}
	return m
}

// ObjectSchema builds an object schema from properties and required names.
func ObjectSchema(props map[string]*PropertySchema, required ...string) *ToolSchema {
	if props == nil {
		props = map[string]*PropertySchema{}
	}
	return &ToolSchema{Type: "object", Properties: props, Required: required}
}

// StringProperty creates a string property schema.
func StringProperty(description string) *PropertySchema {
	return &PropertySchema{Type: "string", Description: description}
}

// NumberProperty creates a number property schema.
func NumberProperty(description string) *PropertySchema {
	return &PropertySchema{Type: "number", Description: description}
}

// BooleanProperty creates a boolean property schema.
func BooleanProperty(description string) *PropertySchema {
	return &PropertySchema{Type: "boolean", Description: description}
}

// ArrayProperty creates an array property schema.
func ArrayProperty(description string, items *PropertySchema) *PropertySchema {
	return &PropertySchema{Type: "array", Description: description, Items: items}
}

// EnumProperty creates an enum property schema.
func EnumProperty(description string, values []string) *PropertySchema {
	return &PropertySchema{Type: "string", Description: description, Enum: values}
}

// Registry manages the host tool set.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]Tool
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]Tool)}
}

// Register adds a tool. Registering a name outside the host vocabulary is a
// wiring bug and panics at startup.
func (r *Registry) Register(t Tool) {
	if !schema.IsHostTool(t.Name()) {
		panic(fmt.Sprintf("tools: %q is not a host tool", t.Name()))
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[t.Name()] = t
}

// Get retrieves a tool by name.
func (r *Registry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	return t, ok
}

// Names returns the registered tool names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// List returns the registered tools sorted by name.
func (r *Registry) List() []Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	list := make([]Tool, 0, len(r.tools))
	for _, t := range r.tools {
		list = append(list, t)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Name() < list[j].Name() })
	return list
}
