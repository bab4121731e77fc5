package utility

import (
	"fmt"
	"runtime"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/host"
	"github.com/shirou/gopsutil/v4/mem"
)

// SystemStats reports host load for the health endpoint. Collection errors
// leave the affected keys out rather than failing the whole report.
func SystemStats() map[string]string {
	stats := map[string]string{
		"goroutines": fmt.Sprintf("%d", runtime.NumGoroutine()),
	}

	if v, err := mem.VirtualMemory(); err == nil {
		stats["memory_used_percent"] = fmt.Sprintf("%.1f", v.UsedPercent)
	}

	// Non-blocking sample: compares against the previous call.
	if cpuPercent, err := cpu.Percent(0, false); err == nil && len(cpuPercent) > 0 {
		stats["cpu_percent"] = fmt.Sprintf("%.1f", cpuPercent[0])
	}

	if hInfo, err := host.Info(); err == nil {
		stats["uptime_seconds"] = fmt.Sprintf("%d", hInfo.Uptime)
		stats["platform"] = hInfo.Platform
	}

	return stats
}
