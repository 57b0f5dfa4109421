// Package health holds the system resource monitor that the browser pool
// consults before admitting new instances: memory/CPU sampling, memory
// pressure classification, instance ceilings and scale-down advice. It does
// not snapshot pool status, derive health trends or trigger remediation.
package health

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/riptide-engine/riptide/internal/logging"
)

// MemoryPressure classifies available memory headroom, using the same
// vocabulary spec §4.12's health classification consumes directly.
type MemoryPressure string

const (
	PressureNormal   MemoryPressure = "normal"
	PressureMedium   MemoryPressure = "medium"
	PressureHigh     MemoryPressure = "high"
	PressureCritical MemoryPressure = "critical"
)

// ResourceMonitorConfig bounds memory/CPU consumption for pool admission
// decisions, ported from the teacher's resource_monitor.go.
type ResourceMonitorConfig struct {
	SafetyReserveBytes int64
	SafetyThreshold    int64
	CPULoadThresholdPct int
	MaxInstancesLimit  int
	PerInstanceMemory  int64
}

func DefaultResourceMonitorConfig() ResourceMonitorConfig {
	return ResourceMonitorConfig{
		SafetyReserveBytes:  1 << 30,
		SafetyThreshold:     512 << 20,
		CPULoadThresholdPct: 80,
		MaxInstancesLimit:   16,
		PerInstanceMemory:   100 << 20,
	}
}

// MemoryStatus is a point-in-time snapshot of process and system memory.
type MemoryStatus struct {
	TotalMemory     uint64
	AllocatedMemory uint64
	AvailableMemory int64
	SafetyReserve   int64
	SafetyThreshold int64
	Pressure        MemoryPressure
}

// ResourceMonitor samples runtime and system memory/CPU in the background
// and answers admission-control questions; internal/browserpool is the only
// pool that consults it.
type ResourceMonitor struct {
	cfg         ResourceMonitorConfig
	totalMemory uint64

	mu           sync.RWMutex
	lastMemStats runtime.MemStats

	cpuMu        sync.RWMutex
	lastCPUUsage float64

	cacheMu       sync.RWMutex
	cachedMax     int
	lastCacheTime time.Time

	cancel context.CancelFunc
}

func NewResourceMonitor(cfg ResourceMonitorConfig) *ResourceMonitor {
	if cfg.PerInstanceMemory == 0 {
		cfg.PerInstanceMemory = 100 << 20
	}
	var totalMem uint64 = 4 << 30
	if vm, err := mem.VirtualMemory(); err == nil {
		totalMem = vm.Total
	} else {
		logging.Warn("could not read system memory, assuming 4GB: " + err.Error())
	}

	var stats runtime.MemStats
	runtime.ReadMemStats(&stats)

	return &ResourceMonitor{cfg: cfg, totalMemory: totalMem, lastMemStats: stats}
}

// Start begins periodic sampling; idempotent.
func (rm *ResourceMonitor) Start(ctx context.Context, interval time.Duration) {
	rm.mu.Lock()
	if rm.cancel != nil {
		rm.mu.Unlock()
		return
	}
	loopCtx, cancel := context.WithCancel(ctx)
	rm.cancel = cancel
	rm.mu.Unlock()

	go rm.loop(loopCtx, interval)
}

func (rm *ResourceMonitor) loop(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			rm.sample()
		}
	}
}

func (rm *ResourceMonitor) sample() {
	var stats runtime.MemStats
	runtime.ReadMemStats(&stats)
	rm.mu.Lock()
	rm.lastMemStats = stats
	rm.mu.Unlock()

	pct, err := cpu.Percent(100*time.Millisecond, false)
	usage := 0.0
	if err == nil && len(pct) > 0 {
		usage = pct[0]
	}
	rm.cpuMu.Lock()
	rm.lastCPUUsage = usage
	rm.cpuMu.Unlock()
}

// Stop cancels background sampling.
func (rm *ResourceMonitor) Stop() {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	if rm.cancel != nil {
		rm.cancel()
		rm.cancel = nil
	}
}

func (rm *ResourceMonitor) availableMemory() int64 {
	rm.mu.RLock()
	alloc := rm.lastMemStats.Alloc
	rm.mu.RUnlock()
	return int64(rm.totalMemory) - int64(alloc) - rm.cfg.SafetyReserveBytes
}

// CalculateMaxInstances returns the current pool-size ceiling given memory
// and CPU headroom, cached for one second to avoid re-sampling on every
// checkout.
func (rm *ResourceMonitor) CalculateMaxInstances() int {
	rm.cacheMu.RLock()
	if time.Since(rm.lastCacheTime) < time.Second && rm.cachedMax > 0 {
		v := rm.cachedMax
		rm.cacheMu.RUnlock()
		return v
	}
	rm.cacheMu.RUnlock()

	available := rm.availableMemory()
	byMemory := 1
	if available > rm.cfg.SafetyThreshold {
		surplus := available - rm.cfg.SafetyThreshold
		byMemory = int(surplus / rm.cfg.PerInstanceMemory)
		if byMemory < 1 {
			byMemory = 1
		}
	}

	byCPU := runtime.NumCPU()
	result := byMemory
	if byCPU < result {
		result = byCPU
	}
	if rm.cfg.MaxInstancesLimit > 0 && rm.cfg.MaxInstancesLimit < result {
		result = rm.cfg.MaxInstancesLimit
	}
	if result < 1 {
		result = 1
	}

	rm.cacheMu.Lock()
	rm.cachedMax = result
	rm.lastCacheTime = time.Now()
	rm.cacheMu.Unlock()
	return result
}

// CheckAvailability reports whether a new instance may be created right now.
func (rm *ResourceMonitor) CheckAvailability() (ok bool, reason string) {
	available := rm.availableMemory()
	if available < rm.cfg.SafetyThreshold {
		return false, fmt.Sprintf("insufficient memory (%dMB available)", available/(1<<20))
	}
	if rm.cfg.CPULoadThresholdPct < 200 {
		rm.cpuMu.RLock()
		usage := rm.lastCPUUsage
		rm.cpuMu.RUnlock()
		if usage > float64(rm.cfg.CPULoadThresholdPct) {
			return false, fmt.Sprintf("CPU load too high (%.1f%%)", usage)
		}
	}
	return true, ""
}

// Status returns the current memory snapshot and pressure classification.
func (rm *ResourceMonitor) Status() MemoryStatus {
	rm.mu.RLock()
	alloc := rm.lastMemStats.Alloc
	rm.mu.RUnlock()

	available := int64(rm.totalMemory) - int64(alloc) - rm.cfg.SafetyReserveBytes
	availableMB := available / (1 << 20)

	var pressure MemoryPressure
	switch {
	case availableMB < 200:
		pressure = PressureCritical
	case availableMB < 300:
		pressure = PressureHigh
	case availableMB < 500:
		pressure = PressureMedium
	default:
		pressure = PressureNormal
	}

	return MemoryStatus{
		TotalMemory:     rm.totalMemory,
		AllocatedMemory: alloc,
		AvailableMemory: available,
		SafetyReserve:   rm.cfg.SafetyReserveBytes,
		SafetyThreshold: rm.cfg.SafetyThreshold,
		Pressure:        pressure,
	}
}

// ShouldScaleDown mirrors the teacher's progressive degradation policy,
// generalized from "tabs" to any pooled instance count.
func (rm *ResourceMonitor) ShouldScaleDown(current int) (shouldScale bool, target int, reason string) {
	status := rm.Status()
	availableMB := status.AvailableMemory / (1 << 20)

	switch {
	case availableMB < 200:
		return true, 1, fmt.Sprintf("critical memory pressure (%dMB available), scaling to 1 instance", availableMB)
	case availableMB < 300:
		target = current / 2
		if target < 1 {
			target = 1
		}
		return true, target, fmt.Sprintf("high memory pressure (%dMB available), scaling to %d instances", availableMB, target)
	default:
		return false, current, ""
	}
}
