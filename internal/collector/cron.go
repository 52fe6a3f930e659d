package collector

import (
	"context"
	"fmt"
	"strings"

	"github.com/dushixiang/opsdeck/internal/protocol"
)

// CronCollector 定时任务采集器，解析编排 CLI 的 cron list 表格输出
type CronCollector struct {
	cli      string
	executor *CommandExecutor
}

// NewCronCollector 创建定时任务采集器
func NewCronCollector(cli string, executor *CommandExecutor) *CronCollector {
	return &CronCollector{
		cli:      cli,
		executor: executor,
	}
}

// Collect 采集定时任务列表
func (c *CronCollector) Collect(ctx context.Context) (*protocol.CronJobsData, error) {
	out, err := c.executor.Execute(ctx, c.cli, "cron", "list")
	if err != nil {
		return nil, fmt.Errorf("获取定时任务列表失败: %w", err)
	}
	return &protocol.CronJobsData{Jobs: parseCronList(out)}, nil
}

// parseCronList 按表头列位置解析 cron list 输出。
// 输出前可能夹杂诊断信息，先定位以 ID 开头且包含 Name/Schedule 的表头行。
func parseCronList(out string) []protocol.CronJob {
	lines := strings.Split(strings.TrimSpace(out), "\n")

	headerIdx := -1
	for i, line := range lines {
		if strings.HasPrefix(line, "ID") && strings.Contains(line, "Name") && strings.Contains(line, "Schedule") {
			headerIdx = i
			break
		}
	}
	if headerIdx < 0 || headerIdx+1 >= len(lines) {
		return nil
	}

	header := lines[headerIdx]
	cols := map[string]int{}
	for _, name := range []string{"Name", "Next", "Last", "Status", "Target", "Agent"} {
		if idx := strings.Index(header, name); idx >= 0 {
			cols[name] = idx
		}
	}

	colOr := func(name string, def int) int {
		if v, ok := cols[name]; ok {
			return v
		}
		return def
	}

	nameStart := colOr("Name", 37)
	nextStart := colOr("Next", 70)
	lastStart := colOr("Last", 81)
	statusStart := colOr("Status", 92)
	statusEnd := colOr("Target", colOr("Agent", 112))
	agentStart := colOr("Agent", 112)

	var jobs []protocol.CronJob
	for _, line := range lines[headerIdx+1:] {
		if strings.TrimSpace(line) == "" {
			continue
		}

		name := strings.TrimSpace(column(line, nameStart, nextStart))
		name = strings.TrimSpace(strings.TrimRight(name, "."))
		if len(name) > 22 {
			name = strings.TrimSpace(name[:22])
		}
		nextRun := strings.TrimSpace(column(line, nextStart, lastStart))
		lastRun := strings.TrimSpace(column(line, lastStart, statusStart))
		statusField := strings.TrimSpace(column(line, statusStart, statusEnd))
		agent := ""
		if rest := strings.TrimSpace(column(line, agentStart, len(line))); rest != "" {
			agent = strings.Fields(rest)[0]
		}

		status := "idle"
		statusLower := strings.ToLower(statusField)
		switch {
		case strings.Contains(statusLower, "error"):
			status = "error"
		case strings.Contains(statusLower, "running"):
			status = "running"
		case statusLower == "ok":
			status = "ok"
		}

		if lastRun == "-" {
			lastRun = ""
		}

		jobs = append(jobs, protocol.CronJob{
			Name:    name,
			Status:  status,
			LastRun: lastRun,
			NextRun: nextRun,
			Agent:   agent,
		})
	}
	return jobs
}

// column 按字节区间取列，越界时尽量返回剩余部分
func column(line string, start, end int) string {
	if start >= len(line) {
		return ""
	}
	if end > len(line) || end <= start {
		end = len(line)
	}
	return line[start:end]
}
