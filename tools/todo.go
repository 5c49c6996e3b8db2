package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/voocel/pilot/schema"
)

// TodoTool keeps a session-scoped task list the model uses to plan multi-step
// work. State lives in memory and dies with the session.
type TodoTool struct {
	mu     sync.Mutex
	items  []todoItem
	nextID int
}

type todoItem struct {
	ID   int
	Text string
	Done bool
}

// Todo is the read-only view of one list item.
type Todo struct {
	ID   int    `json:"id"`
	Text string `json:"text"`
	Done bool   `json:"done"`
}

// NewTodoTool creates an empty task list.
func NewTodoTool() *TodoTool {
	return &TodoTool{nextID: 1}
}

// Items returns a snapshot of the list for status surfaces.
func (t *TodoTool) Items() []Todo {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]Todo, len(t.items))
	for i, item := range t.items {
		out[i] = Todo{ID: item.ID, Text: item.Text, Done: item.Done}
	}
	return out
}

func (t *TodoTool) Name() string { return schema.ToolManageTodos }

func (t *TodoTool) Description() string {
	return "Manage the session's todo list: add items, mark them done, remove them, or list everything."
}

func (t *TodoTool) Schema() *ToolSchema {
	return ObjectSchema(map[string]*PropertySchema{
		"action": EnumProperty("What to do with the list", []string{"add", "complete", "remove", "list", "clear"}),
		"text":   StringProperty("The item text, required for add"),
		"id":     NumberProperty("The item id, required for complete and remove"),
	}, "action")
}

func (t *TodoTool) Execute(ctx context.Context, args json.RawMessage) (string, error) {
	var in struct {
		Action string `json:"action"`
		Text   string `json:"text"`
		ID     int    `json:"id"`
	}
	if err := json.Unmarshal(args, &in); err != nil {
		return "", fmt.Errorf("manage_todos args: %w", err)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	switch in.Action {
	case "add":
		if strings.TrimSpace(in.Text) == "" {
			return "", errors.New("text is required for add")
		}
		t.items = append(t.items, todoItem{ID: t.nextID, Text: in.Text})
		t.nextID++
	case "complete":
		item, err := t.find(in.ID)
		if err != nil {
			return "", err
		}
		item.Done = true
	case "remove":
		if _, err := t.find(in.ID); err != nil {
			return "", err
		}
		kept := t.items[:0]
		for _, item := range t.items {
			if item.ID != in.ID {
				kept = append(kept, item)
			}
		}
		t.items = kept
	case "clear":
		t.items = nil
	case "list":
		// Rendering below covers it.
	default:
		return "", fmt.Errorf("unknown action %q", in.Action)
	}

	return t.render(), nil
}

func (t *TodoTool) find(id int) (*todoItem, error) {
	for i := range t.items {
		if t.items[i].ID == id {
			return &t.items[i], nil
		}
	}
	return nil, fmt.Errorf("no todo with id %d", id)
}

func (t *TodoTool) render() string {
	if len(t.items) == 0 {
		return "The todo list is empty."
	}
	var b strings.Builder
	b.WriteString("Todo list:\n")
	for _, item := range t.items {
		mark := " "
		if item.Done {
			mark = "x"
		}
		fmt.Fprintf(&b, "[%s] %d. %s\n", mark, item.ID, item.Text)
	}
	return strings.TrimRight(b.String(), "\n")
}
