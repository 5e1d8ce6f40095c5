package trainer

import (
	"context"
	"os"
	"time"

	"github.com/shirou/gopsutil/v3/process"
)

// ProcessMetrics is a point-in-time sample of the trainer process, attached
// to heartbeat messages so the coordinator can surface per-trainer load.
type ProcessMetrics struct {
	CPUPercent    float64   `json:"cpu_percent"`
	MemoryBytes   uint64    `json:"memory_bytes"`
	MemoryPercent float32   `json:"memory_percent"`
	ThreadCount   int32     `json:"thread_count"`
	UptimeSeconds int64     `json:"uptime_seconds"`
	Timestamp     time.Time `json:"timestamp"`
}

// Monitor samples resource usage of the trainer's own process.
type Monitor struct {
	proc      *process.Process
	startTime time.Time
}

func NewMonitor() (*Monitor, error) {
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return nil, err
	}

	return &Monitor{
		proc:      proc,
		startTime: time.Now(),
	}, nil
}

// Sample collects a best-effort snapshot. Individual collectors that fail
// leave their fields zero rather than failing the whole sample.
func (m *Monitor) Sample(ctx context.Context) ProcessMetrics {
	metrics := ProcessMetrics{
		UptimeSeconds: int64(time.Since(m.startTime).Seconds()),
		Timestamp:     time.Now(),
	}

	if cpuPercent, err := m.proc.CPUPercentWithContext(ctx); err == nil {
		metrics.CPUPercent = cpuPercent
	}
	if memInfo, err := m.proc.MemoryInfoWithContext(ctx); err == nil {
		metrics.MemoryBytes = memInfo.RSS
	}
	if memPercent, err := m.proc.MemoryPercentWithContext(ctx); err == nil {
		metrics.MemoryPercent = memPercent
	}
	if numThreads, err := m.proc.NumThreadsWithContext(ctx); err == nil {
		metrics.ThreadCount = numThreads
	}

	return metrics
}
