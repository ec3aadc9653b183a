package observability

import (
	"context"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"
)

// Sample is one point-in-time read of host resource usage, ground:
// monitoring.ResourceUsage, trimmed to the fields a single-process agent
// (no per-campaign attribution) needs.
type Sample struct {
	CPUPercent    float64
	MemoryPercent float64
	DiskPercent   float64
	Timestamp     time.Time
}

// Publisher is the subset of eventbus.Bus a ResourceMonitor needs,
// accepted as an interface so this package never imports eventbus
// directly and stays reusable outside the agent.
type Publisher interface {
	Publish(channel string, telemetry map[string]float64)
}

// ResourceMonitor samples host CPU/memory/disk on an interval and hands
// each sample to a Publisher, ground: monitoring.ResourceMonitor's
// collection loop, trimmed of its per-campaign kill-switch (§ Non-goals
// excludes resource-based run termination; only the read-only telemetry
// survives).
type ResourceMonitor struct {
	interval  time.Duration
	diskPath  string
	publisher Publisher
}

// NewResourceMonitor constructs a monitor sampling every interval (30s if
// <= 0) and reporting disk usage for diskPath ("/" if empty).
func NewResourceMonitor(interval time.Duration, diskPath string, publisher Publisher) *ResourceMonitor {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	if diskPath == "" {
		diskPath = "/"
	}
	return &ResourceMonitor{interval: interval, diskPath: diskPath, publisher: publisher}
}

// Run blocks, sampling and publishing until ctx is cancelled.
func (m *ResourceMonitor) Run(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if sample, err := m.sample(ctx); err == nil && m.publisher != nil {
				m.publisher.Publish("system_health_update", map[string]float64{
					"cpuPercent":    sample.CPUPercent,
					"memoryPercent": sample.MemoryPercent,
					"diskPercent":   sample.DiskPercent,
				})
			}
		}
	}
}

func (m *ResourceMonitor) sample(ctx context.Context) (Sample, error) {
	cpuPercents, err := cpu.PercentWithContext(ctx, 0, false)
	if err != nil {
		return Sample{}, err
	}
	var cpuPct float64
	if len(cpuPercents) > 0 {
		cpuPct = cpuPercents[0]
	}

	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return Sample{}, err
	}

	du, err := disk.UsageWithContext(ctx, m.diskPath)
	if err != nil {
		return Sample{}, err
	}

	return Sample{
		CPUPercent:    cpuPct,
		MemoryPercent: vm.UsedPercent,
		DiskPercent:   du.UsedPercent,
		Timestamp:     time.Now(),
	}, nil
}
