package observability

import (
	"os"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/v3/process"
	"go.uber.org/zap"
)

// ResourceUsage contains resource usage information
type ResourceUsage struct {
	CPUPercent     float64
	MemoryRSS      uint64
	MemoryVMS      uint64
	GoroutineCount int
	ThreadCount    int32
	OpenFDs        int32
}

// ResourceMonitor samples the resource usage of the current process.
type ResourceMonitor struct {
	process      *process.Process
	startCPUTime float64
	startTime    time.Time
}

// NewResourceMonitor creates a resource monitor. It returns nil when the
// process cannot be inspected on this platform; a nil monitor reports nothing.
func NewResourceMonitor() *ResourceMonitor {
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return nil
	}
	rm := &ResourceMonitor{process: proc, startTime: time.Now()}
	if cpuTime, err := proc.Times(); err == nil {
		rm.startCPUTime = cpuTime.Total()
	}
	return rm
}

// Usage returns current resource usage. Counters the platform does not
// provide are left zero.
func (rm *ResourceMonitor) Usage() ResourceUsage {
	usage := ResourceUsage{GoroutineCount: runtime.NumGoroutine()}
	if rm == nil {
		return usage
	}

	if cpuTime, err := rm.process.Times(); err == nil {
		if elapsed := time.Since(rm.startTime).Seconds(); elapsed > 0 {
			usage.CPUPercent = ((cpuTime.Total() - rm.startCPUTime) / elapsed) * 100
		}
	}
	if memInfo, err := rm.process.MemoryInfo(); err == nil {
		usage.MemoryRSS = memInfo.RSS
		usage.MemoryVMS = memInfo.VMS
	}
	usage.ThreadCount, _ = rm.process.NumThreads()
	usage.OpenFDs, _ = rm.process.NumFDs()
	return usage
}

// Log writes the current usage as one debug line.
func (rm *ResourceMonitor) Log(logger *zap.Logger, msg string, fields ...zap.Field) {
	if logger == nil {
		return
	}
	u := rm.Usage()
	logger.Debug(msg, append(fields,
		zap.Uint64("rss_bytes", u.MemoryRSS),
		zap.Float64("cpu_percent", u.CPUPercent),
		zap.Int("goroutines", u.GoroutineCount),
		zap.Int32("threads", u.ThreadCount),
		zap.Int32("open_fds", u.OpenFDs),
	)...)
}
