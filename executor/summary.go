package executor

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/voocel/pilot/schema"
)

const summaryLimit = 160

// callSummary is the one-line description of a call used in logs and the
// activity feed. type_text content is reduced to a length so long (or
// token-bearing) text never floods the feed.
func callSummary(call schema.ToolCall) string {
	if call.Name == schema.ToolTypeText && len(call.Args) > 0 {
		var p schema.TypeTextParams
		if err := json.Unmarshal(call.Args, &p); err == nil {
			return fmt.Sprintf("%s (%d chars)", call.Name, utf8.RuneCountInString(p.Text))
		}
	}
	if len(call.Args) == 0 {
		return call.Name
	}
	return clipLine(call.Name+" "+string(call.Args), summaryLimit)
}

func resultSummary(result *schema.ToolExecutionResult) string {
	if result.Success && result.Image != nil && result.Text == "" {
		return fmt.Sprintf("image (%s)", result.Image.MIMEType)
	}
	return clipLine(result.Summary(), summaryLimit)
}

func clipLine(s string, limit int) string {
	s = strings.Join(strings.Fields(s), " ")
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	return string(runes[:limit]) + "…"
}

// trimFloat renders coordinates the way a human would write them: 100, not
// 100.000000; 42.5 stays 42.5.
func trimFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func keyChord(p schema.PressKeyParams) string {
	if len(p.Modifiers) == 0 {
		return p.Key
	}
	return strings.Join(p.Modifiers, "+") + "+" + p.Key
}

// renderTree flattens an accessibility tree into indented text the model can
// scan for window names and positions.
func renderTree(root schema.AXNode) string {
	var b strings.Builder
	writeNode(&b, root, 0)
	return strings.TrimRight(b.String(), "\n")
}

func writeNode(b *strings.Builder, n schema.AXNode, depth int) {
	b.WriteString(strings.Repeat("  ", depth))
	b.WriteString(n.Role)
	if n.Name != "" {
		fmt.Fprintf(b, " %q", n.Name)
	}
	if n.Value != "" {
		fmt.Fprintf(b, " = %q", n.Value)
	}
	if n.Width != 0 || n.Height != 0 {
		fmt.Fprintf(b, " [%d,%d %dx%d]", n.X, n.Y, n.Width, n.Height)
	}
	b.WriteByte('\n')
	for _, child := range n.Children {
		writeNode(b, child, depth+1)
	}
}

func renderHealth(r schema.HealthReport) string {
	var b strings.Builder
	fmt.Fprintf(&b, "status: %s\nprotocol_version: %d", r.Status, r.ProtocolVersion)
	if r.Hostname != "" {
		fmt.Fprintf(&b, "\nhostname: %s", r.Hostname)
	}
	if r.UptimeSec > 0 {
		fmt.Fprintf(&b, "\nuptime_sec: %d", r.UptimeSec)
	}
	if r.CPUPercent > 0 {
		fmt.Fprintf(&b, "\ncpu_percent: %.1f", r.CPUPercent)
	}
	if r.MemPercent > 0 {
		fmt.Fprintf(&b, "\nmem_percent: %.1f", r.MemPercent)
	}
	return b.String()
}
