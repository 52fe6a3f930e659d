package collector

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/dushixiang/opsdeck/internal/protocol"
	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/disk"
	"github.com/shirou/gopsutil/v4/host"
	"github.com/shirou/gopsutil/v4/load"
	"github.com/shirou/gopsutil/v4/mem"
	"github.com/shirou/gopsutil/v4/process"
)

// SystemCollector 主机健康采集器。
// CPU 使用率通过与上一次采样的差值计算，上一次采样保存在实例内。
type SystemCollector struct {
	mu      sync.Mutex
	prevCPU *cpu.TimesStat
}

// NewSystemCollector 创建主机健康采集器
func NewSystemCollector() *SystemCollector {
	return &SystemCollector{}
}

// CollectHealth 采集服务器健康数据
func (c *SystemCollector) CollectHealth(ctx context.Context) (*protocol.ServerHealthData, error) {
	data := &protocol.ServerHealthData{
		LoadAvg: []float64{0, 0, 0},
		Uptime:  "unknown",
	}

	data.CPUPercent = c.cpuPercent(ctx)

	if vm, err := mem.VirtualMemoryWithContext(ctx); err == nil {
		data.MemUsedMB = float64(vm.Used) / 1024 / 1024
		data.MemTotalMB = float64(vm.Total) / 1024 / 1024
		data.MemPercent = vm.UsedPercent
	}

	if du, err := disk.UsageWithContext(ctx, "/"); err == nil {
		data.DiskUsedGB = float64(du.Used) / 1024 / 1024 / 1024
		data.DiskTotalGB = float64(du.Total) / 1024 / 1024 / 1024
		data.DiskPercent = du.UsedPercent
	}

	if avg, err := load.AvgWithContext(ctx); err == nil && avg != nil {
		data.LoadAvg = []float64{avg.Load1, avg.Load5, avg.Load15}
	}

	if uptime, err := host.UptimeWithContext(ctx); err == nil {
		data.Uptime = formatUptime(uptime)
	}

	return data, nil
}

// cpuPercent 计算两次采样间的 CPU 使用率。
// 首次采样没有参照，返回 0，下个周期起有效。
func (c *SystemCollector) cpuPercent(ctx context.Context) float64 {
	times, err := cpu.TimesWithContext(ctx, false)
	if err != nil || len(times) == 0 {
		return 0
	}
	cur := times[0]

	c.mu.Lock()
	defer c.mu.Unlock()
	prev := c.prevCPU
	c.prevCPU = &cur
	if prev == nil {
		return 0
	}

	totalDelta := cpuTotal(cur) - cpuTotal(*prev)
	idleDelta := (cur.Idle + cur.Iowait) - (prev.Idle + prev.Iowait)
	if totalDelta <= 0 {
		return 0
	}
	return (totalDelta - idleDelta) / totalDelta * 100
}

func cpuTotal(t cpu.TimesStat) float64 {
	return t.User + t.System + t.Idle + t.Nice + t.Iowait + t.Irq + t.Softirq + t.Steal
}

// CollectTopProcesses 采集 CPU 占用前 count 的进程
func (c *SystemCollector) CollectTopProcesses(ctx context.Context, count int) (*protocol.TopProcessesData, error) {
	procs, err := process.ProcessesWithContext(ctx)
	if err != nil {
		return nil, err
	}

	infos := make([]protocol.ProcessInfo, 0, len(procs))
	for _, p := range procs {
		cpuPct, err := p.CPUPercentWithContext(ctx)
		if err != nil {
			continue
		}
		info := protocol.ProcessInfo{
			PID: p.Pid,
			CPU: cpuPct,
		}
		if memPct, err := p.MemoryPercentWithContext(ctx); err == nil {
			info.Mem = memPct
		}
		if user, err := p.UsernameWithContext(ctx); err == nil {
			if len(user) > 8 {
				user = user[:8]
			}
			info.User = user
		}
		if name, err := p.NameWithContext(ctx); err == nil {
			if len(name) > 20 {
				name = name[:20]
			}
			info.Command = name
		}
		infos = append(infos, info)
	}

	sort.Slice(infos, func(i, j int) bool {
		return infos[i].CPU > infos[j].CPU
	})
	if len(infos) > count {
		infos = infos[:count]
	}
	return &protocol.TopProcessesData{Processes: infos}, nil
}

// formatUptime 将秒格式化为 3d 4h 12m 的可读形式
func formatUptime(seconds uint64) string {
	days := seconds / 86400
	hours := (seconds % 86400) / 3600
	minutes := (seconds % 3600) / 60
	if days > 0 {
		return fmt.Sprintf("%dd %dh %dm", days, hours, minutes)
	}
	if hours > 0 {
		return fmt.Sprintf("%dh %dm", hours, minutes)
	}
	return fmt.Sprintf("%dm", minutes)
}
