package infrastructure

import (
	"runtime"
	"time"
)

// SystemStats is a snapshot of Go runtime resource usage
type SystemStats struct {
	GoRoutines    int           `json:"goroutines"`
	HeapAlloc     uint64        `json:"heap_alloc_bytes"`
	HeapSys       uint64        `json:"heap_sys_bytes"`
	GCCount       uint32        `json:"gc_count"`
	LastGCPause   time.Duration `json:"last_gc_pause_ns"`
	CPUCount      int           `json:"cpu_count"`
	ProcessUptime time.Duration `json:"uptime_ns"`
}

// CollectSystemStats reads runtime statistics; startTime anchors the uptime
func CollectSystemStats(startTime time.Time) SystemStats {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	return SystemStats{
		GoRoutines:    runtime.NumGoroutine(),
		HeapAlloc:     mem.HeapAlloc,
		HeapSys:       mem.HeapSys,
		GCCount:       mem.NumGC,
		LastGCPause:   time.Duration(mem.PauseNs[(mem.NumGC+255)%256]),
		CPUCount:      runtime.NumCPU(),
		ProcessUptime: time.Since(startTime),
	}
}

// FormatStats renders the snapshot for health payloads
func (s SystemStats) FormatStats() map[string]interface{} {
	return map[string]interface{}{
		"goroutines":       s.GoRoutines,
		"heap_alloc_mb":    float64(s.HeapAlloc) / (1 << 20),
		"heap_sys_mb":      float64(s.HeapSys) / (1 << 20),
		"gc_count":         s.GCCount,
		"last_gc_pause_ms": float64(s.LastGCPause.Microseconds()) / 1000,
		"cpu_count":        s.CPUCount,
		"uptime_seconds":   int64(s.ProcessUptime.Seconds()),
	}
}
