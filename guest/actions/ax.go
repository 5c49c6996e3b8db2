package actions

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"github.com/voocel/pilot/schema"
)

// TreeReader is the platform boundary for accessibility traversal.
type TreeReader interface {
	ReadTree(ctx context.Context) (schema.AXNode, error)
}

type treeActions struct {
	reader TreeReader
}

func (a *treeActions) readTree(ctx context.Context, _ json.RawMessage) (any, error) {
	return a.reader.ReadTree(ctx)
}

// WindowTreeReader builds a shallow tree from the window manager's client
// list. It is the fallback on X11 guests; platforms with a real accessibility
// bus supply their own TreeReader.
type WindowTreeReader struct {
	// Command overrides the wmctrl binary, mainly for tests.
	Command string
}

func (r *WindowTreeReader) ReadTree(ctx context.Context) (schema.AXNode, error) {
	name := r.Command
	if name == "" {
		name = "wmctrl"
	}
	out, err := exec.CommandContext(ctx, name, "-l", "-G").Output()
	if err != nil {
		return schema.AXNode{}, fmt.Errorf("%s: %w", name, err)
	}
	return parseWindowList(out), nil
}

// parseWindowList turns `wmctrl -l -G` output into a desktop node with one
// child per top-level window. Columns: id, desktop, x, y, width, height,
// host, title...
func parseWindowList(out []byte) schema.AXNode {
	root := schema.AXNode{Role: "desktop", Name: "desktop"}
	for _, line := range strings.Split(string(out), "\n") {
		fields := strings.Fields(line)
		if len(fields) < 8 {
			continue
		}
		x, _ := strconv.Atoi(fields[2])
		y, _ := strconv.Atoi(fields[3])
		w, _ := strconv.Atoi(fields[4])
		h, _ := strconv.Atoi(fields[5])
		root.Children = append(root.Children, schema.AXNode{
			Role:   "window",
			Name:   strings.Join(fields[7:], " "),
			X:      x,
			Y:      y,
			Width:  w,
			Height: h,
		})
	}
	return root
}
