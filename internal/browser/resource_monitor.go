package browser

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

// ResourceMonitor 系统资源监控器
// 职责: 周期采样可用内存和CPU,在启动浏览器前给出资源判断,并为健康检查提供快照
type ResourceMonitor struct {
	config ResourceMonitorConfig

	// 系统总内存(字节)
	totalMemory uint64

	// 最近一次采样的系统可用内存(字节)
	lastAvailable uint64
	lastMemStats  runtime.MemStats
	mu            sync.RWMutex

	// CPU使用率
	lastCPUUsage float64
	cpuUsageMu   sync.RWMutex

	// 监控控制
	cancelFunc context.CancelFunc
	isRunning  bool
	runMu      sync.Mutex
}

// ResourceMonitorConfig 资源监控器配置
type ResourceMonitorConfig struct {
	SafetyReserveMemory int64 // 为浏览器进程保留的内存(字节)
	CPULoadThreshold    int   // CPU负载阈值(%), >=200 视为禁用
}

// MemoryStatus 内存状态信息
type MemoryStatus struct {
	TotalMemory     uint64  `json:"total_memory"`     // 系统总内存(字节)
	AvailableMemory uint64  `json:"available_memory"` // 系统可用内存(字节)
	AllocatedMemory uint64  `json:"allocated_memory"` // 当前程序已分配内存(字节)
	CPUUsage        float64 `json:"cpu_usage"`        // CPU使用率(%)
	MemoryPressure  string  `json:"memory_pressure"`  // 内存压力等级
}

// NewResourceMonitor 创建资源监控器实例
func NewResourceMonitor(config ResourceMonitorConfig) *ResourceMonitor {
	if config.SafetyReserveMemory == 0 {
		config.SafetyReserveMemory = 300 * 1024 * 1024 // 300MB
	}

	rm := &ResourceMonitor{config: config}

	vmStat, err := mem.VirtualMemory()
	if err != nil {
		log.Warn().Err(err).Msg("获取系统内存失败,使用默认值")
		rm.totalMemory = 4 * 1024 * 1024 * 1024 // 默认4GB
		rm.lastAvailable = rm.totalMemory
	} else {
		rm.totalMemory = vmStat.Total
		rm.lastAvailable = vmStat.Available
		log.Debug().Msgf("系统总内存: %.2f GB", float64(rm.totalMemory)/(1024*1024*1024))
	}

	runtime.ReadMemStats(&rm.lastMemStats)
	return rm
}

// StartMonitoring 启动后台采样
func (rm *ResourceMonitor) StartMonitoring(interval time.Duration) {
	rm.runMu.Lock()
	defer rm.runMu.Unlock()

	// 幂等
	if rm.isRunning {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	rm.cancelFunc = cancel
	rm.isRunning = true

	go rm.monitoringLoop(ctx, interval)
}

// monitoringLoop 后台监控循环
func (rm *ResourceMonitor) monitoringLoop(ctx context.Context, interval time.Duration) {
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

// sample 采样一次内存和CPU
func (rm *ResourceMonitor) sample() {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	rm.mu.Lock()
	rm.lastMemStats = memStats
	if vmStat, err := mem.VirtualMemory(); err == nil {
		rm.lastAvailable = vmStat.Available
	}
	rm.mu.Unlock()

	cpuUsage := rm.getCPUUsage()
	rm.cpuUsageMu.Lock()
	rm.lastCPUUsage = cpuUsage
	rm.cpuUsageMu.Unlock()
}

// getCPUUsage 获取所有核心的平均CPU使用率
func (rm *ResourceMonitor) getCPUUsage() float64 {
	percentages, err := cpu.Percent(100*time.Millisecond, false)
	if err != nil {
		log.Warn().Err(err).Msg("获取CPU使用率失败")
		return 0.0
	}
	if len(percentages) == 0 {
		return 0.0
	}
	return percentages[0]
}

// StopMonitoring 停止资源监控
func (rm *ResourceMonitor) StopMonitoring() {
	rm.runMu.Lock()
	defer rm.runMu.Unlock()

	if rm.isRunning && rm.cancelFunc != nil {
		rm.cancelFunc()
		rm.isRunning = false
		rm.cancelFunc = nil
	}
}

// CheckResourceAvailability 检查当前资源是否足以启动浏览器
// 返回canLaunch(是否建议启动)和reason(不建议时的原因)
func (rm *ResourceMonitor) CheckResourceAvailability() (canLaunch bool, reason string) {
	rm.mu.RLock()
	available := rm.lastAvailable
	rm.mu.RUnlock()

	if int64(available) < rm.config.SafetyReserveMemory {
		return false, fmt.Sprintf("内存不足(当前%dMB)", available/(1024*1024))
	}

	if rm.config.CPULoadThreshold > 0 && rm.config.CPULoadThreshold < 200 {
		rm.cpuUsageMu.RLock()
		cpuUsage := rm.lastCPUUsage
		rm.cpuUsageMu.RUnlock()

		if cpuUsage > float64(rm.config.CPULoadThreshold) {
			return false, fmt.Sprintf("CPU负载过高(当前%.1f%%)", cpuUsage)
		}
	}

	return true, ""
}

// GetMemoryStatus 获取当前资源状态
func (rm *ResourceMonitor) GetMemoryStatus() MemoryStatus {
	rm.mu.RLock()
	available := rm.lastAvailable
	allocated := rm.lastMemStats.Alloc
	rm.mu.RUnlock()

	rm.cpuUsageMu.RLock()
	cpuUsage := rm.lastCPUUsage
	rm.cpuUsageMu.RUnlock()

	return MemoryStatus{
		TotalMemory:     rm.totalMemory,
		AvailableMemory: available,
		AllocatedMemory: allocated,
		CPUUsage:        cpuUsage,
		MemoryPressure:  memoryPressure(available),
	}
}

// memoryPressure 按可用内存判断压力等级
func memoryPressure(available uint64) string {
	availableMB := available / (1024 * 1024)
	switch {
	case availableMB < 200:
		return "emergency"
	case availableMB < 300:
		return "critical"
	case availableMB < 500:
		return "warning"
	default:
		return "normal"
	}
}
