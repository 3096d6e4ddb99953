package api

import (
	"fmt"
	"os"
	goruntime "runtime"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/process"
)

// ProcessMetrics - метрики процесса для /api/stats.
type ProcessMetrics struct {
	StartTime time.Time
	proc      *process.Process
}

// NewProcessMetrics создаёт сборщик для текущего процесса.
func NewProcessMetrics() *ProcessMetrics {
	pm := &ProcessMetrics{StartTime: time.Now()}
	if p, err := process.NewProcess(int32(os.Getpid())); err == nil {
		pm.proc = p
	}
	return pm
}

// Uptime возвращает время работы в виде "1д 2ч 3м 4с".
func (pm *ProcessMetrics) Uptime() string {
	return formatUptime(time.Since(pm.StartTime))
}

func formatUptime(uptime time.Duration) string {
	days := int(uptime.Hours()) / 24
	hours := int(uptime.Hours()) % 24
	minutes := int(uptime.Minutes()) % 60
	seconds := int(uptime.Seconds()) % 60

	switch {
	case days > 0:
		return fmt.Sprintf("%dд %dч %dм %dс", days, hours, minutes, seconds)
	case hours > 0:
		return fmt.Sprintf("%dч %dм %dс", hours, minutes, seconds)
	case minutes > 0:
		return fmt.Sprintf("%dм %dс", minutes, seconds)
	default:
		return fmt.Sprintf("%dс", seconds)
	}
}

// CPUPercent возвращает загрузку CPU процессом, при ошибке - системную.
func (pm *ProcessMetrics) CPUPercent() (float64, error) {
	if pm.proc != nil {
		if v, err := pm.proc.CPUPercent(); err == nil {
			return v, nil
		}
	}
	percents, err := cpu.Percent(100*time.Millisecond, false)
	if err != nil || len(percents) == 0 {
		return 0, err
	}
	return percents[0], nil
}

// RSSMegabytes возвращает резидентную память процесса в MB.
func (pm *ProcessMetrics) RSSMegabytes() (float64, error) {
	if pm.proc == nil {
		return 0, fmt.Errorf("процесс недоступен")
	}
	info, err := pm.proc.MemoryInfo()
	if err != nil {
		return 0, err
	}
	return float64(info.RSS) / 1024 / 1024, nil
}

// Snapshot собирает метрики процесса в карту для JSON.
func (pm *ProcessMetrics) Snapshot() map[string]interface{} {
	var m goruntime.MemStats
	goruntime.ReadMemStats(&m)

	cpuPercent, _ := pm.CPUPercent()
	rss, _ := pm.RSSMegabytes()

	return map[string]interface{}{
		"uptime":        pm.Uptime(),
		"cpu_percent":   fmt.Sprintf("%.2f", cpuPercent),
		"rss_mb":        fmt.Sprintf("%.2f", rss),
		"heap_alloc_mb": float64(m.HeapAlloc) / 1024 / 1024,
		"num_gc":        m.NumGC,
		"goroutines":    goruntime.NumGoroutine(),
		"server_time":   time.Now().Unix(),
	}
}
