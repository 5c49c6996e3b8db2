package actions

import (
	"context"
	"encoding/json"
	"os"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/host"
	"github.com/shirou/gopsutil/v4/mem"

	"github.com/voocel/pilot/schema"
)

// checkHealth reports liveness plus a coarse resource snapshot. Metric
// failures degrade to zero values; the report itself never fails once the
// dispatcher is reachable.
func checkHealth(ctx context.Context, _ json.RawMessage) (any, error) {
	report := schema.HealthReport{
		Status:          "ok",
		ProtocolVersion: schema.ProtocolVersion,
	}
	if name, err := os.Hostname(); err == nil {
		report.Hostname = name
	}
	if up, err := host.UptimeWithContext(ctx); err == nil {
		report.UptimeSec = up
	}
	if pct, err := cpu.PercentWithContext(ctx, 0, false); err == nil && len(pct) > 0 {
		report.CPUPercent = pct[0]
	}
	if vm, err := mem.VirtualMemoryWithContext(ctx); err == nil {
		report.MemPercent = vm.UsedPercent
	}
	return report, nil
}
