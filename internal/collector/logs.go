package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/dushixiang/opsdeck/internal/protocol"
)

// LogCollector 日志类采集器：活动日志、编排服务日志尾部、错误汇总
type LogCollector struct {
	cli      string
	authLog  string
	logDir   string
	executor *CommandExecutor
	cron     *CronCollector
}

// NewLogCollector 创建日志采集器
func NewLogCollector(cli, authLog string, executor *CommandExecutor, cron *CronCollector) *LogCollector {
	logDir := ""
	if home, err := os.UserHomeDir(); err == nil {
		logDir = filepath.Join(home, "."+cli, "logs")
	}
	return &LogCollector{
		cli:      cli,
		authLog:  authLog,
		logDir:   logDir,
		executor: executor,
		cron:     cron,
	}
}

// CollectActivity 采集活动日志：SSH 登录事件 + 编排服务系统事件
func (c *LogCollector) CollectActivity(ctx context.Context, limit int) (*protocol.ActivityLogData, error) {
	var events []protocol.LogEvent

	// SSH 登录/会话事件
	if out, err := c.executor.Shell(ctx,
		fmt.Sprintf("grep -E 'Accepted|session opened' %s 2>/dev/null | tail -10", c.authLog)); err == nil {
		for _, line := range strings.Split(strings.TrimSpace(out), "\n") {
			if strings.TrimSpace(line) == "" {
				continue
			}
			ts := "unknown"
			message := line
			if m := logTimePattern.FindStringSubmatch(line); m != nil {
				ts = m[1]
				message = strings.TrimSpace(line[len(ts):])
			}
			events = append(events, protocol.LogEvent{
				Time:    ts,
				Message: message,
				Type:    "ssh",
				Level:   "info",
			})
		}
	}

	// 编排服务系统事件
	if out, err := c.executor.Execute(ctx, c.cli, "system", "events", "--limit", "20", "--json"); err == nil && strings.TrimSpace(out) != "" {
		events = append(events, parseSystemEvents(out)...)
	}

	if len(events) > limit {
		events = events[:limit]
	}
	return &protocol.ActivityLogData{Events: events}, nil
}

// parseSystemEvents 解析系统事件，JSON 失败时按纯文本处理
func parseSystemEvents(out string) []protocol.LogEvent {
	var events []protocol.LogEvent

	var raw []map[string]any
	if err := json.Unmarshal([]byte(out), &raw); err == nil {
		for _, ev := range raw {
			events = append(events, protocol.LogEvent{
				Time:    stringField(ev, "time", "timestamp"),
				Message: stringField(ev, "message", "text"),
				Type:    stringFieldOr(ev, "agent", "type"),
				Level:   stringFieldOr(ev, "info", "level"),
			})
		}
		return events
	}

	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) > 20 {
		lines = lines[:20]
	}
	now := time.Now().Format("15:04")
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		events = append(events, protocol.LogEvent{
			Time:    now,
			Message: strings.TrimSpace(line),
			Type:    "agent",
			Level:   "info",
		})
	}
	return events
}

func stringField(m map[string]any, keys ...string) string {
	for _, key := range keys {
		if v, ok := m[key].(string); ok && v != "" {
			return v
		}
	}
	return "unknown"
}

func stringFieldOr(m map[string]any, def string, keys ...string) string {
	for _, key := range keys {
		if v, ok := m[key].(string); ok && v != "" {
			return v
		}
	}
	return def
}

var logLinePattern = regexp.MustCompile(`^(\d{4}-\d{2}-\d{2}[T ]\d{2}:\d{2})`)

// CollectAgentLogs 采集编排服务日志尾部，优先读文件，回退到 CLI
func (c *LogCollector) CollectAgentLogs(ctx context.Context, limit int) (*protocol.AgentLogsData, error) {
	out := ""
	if c.logDir != "" {
		if v, err := c.executor.Shell(ctx,
			fmt.Sprintf("tail -20 %s/*.log 2>/dev/null", c.logDir)); err == nil {
			out = v
		}
	}
	if strings.TrimSpace(out) == "" {
		if v, err := c.executor.Execute(ctx, c.cli, "logs"); err == nil {
			out = v
		}
	}

	events := parseLogTail(out, limit)
	return &protocol.AgentLogsData{Events: events}, nil
}

// parseLogTail 解析日志尾部，识别时间前缀和级别
func parseLogTail(out string, limit int) []protocol.LogEvent {
	var events []protocol.LogEvent
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) > limit {
		lines = lines[len(lines)-limit:]
	}
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "==>") {
			continue
		}

		timeStr := time.Now().Format("15:04")
		if m := logLinePattern.FindStringSubmatch(line); m != nil {
			ts := m[1]
			if idx := strings.IndexAny(ts, "T "); idx >= 0 && len(ts) >= idx+6 {
				timeStr = ts[idx+1 : idx+6]
			}
		}

		level := "info"
		lower := strings.ToLower(line)
		if strings.Contains(lower, "error") || strings.Contains(lower, "fail") {
			level = "error"
		} else if strings.Contains(lower, "warn") {
			level = "warning"
		}

		message := line
		if len(message) > 80 {
			message = message[:80]
		}
		events = append(events, protocol.LogEvent{
			Time:    timeStr,
			Message: message,
			Type:    "agent",
			Level:   level,
		})
	}
	if len(events) > limit {
		events = events[len(events)-limit:]
	}
	return events
}

// CollectErrorSummary 汇总定时任务失败、SSH 暴力尝试和日志错误
func (c *LogCollector) CollectErrorSummary(ctx context.Context, sshSummary *protocol.SSHLoginSummaryData) (*protocol.ErrorSummaryData, error) {
	var errs []protocol.LogEvent

	// 定时任务错误
	if cronData, err := c.cron.Collect(ctx); err == nil {
		for _, job := range cronData.Jobs {
			if job.Status != "error" {
				continue
			}
			ts := job.LastRun
			if len(ts) > 5 {
				ts = ts[len(ts)-5:]
			}
			if ts == "" {
				ts = "??:??"
			}
			errs = append(errs, protocol.LogEvent{
				Time:    ts,
				Message: job.Name + ": delivery failed",
				Type:    "cron",
				Level:   "error",
			})
		}
	}

	// 高频失败登录
	if sshSummary != nil {
		for _, entry := range sshSummary.Failed {
			if entry.Count < 5 {
				continue
			}
			ts := "??:??"
			if len(entry.LastSeen) >= 8 {
				ts = entry.LastSeen[len(entry.LastSeen)-8 : len(entry.LastSeen)-3]
			}
			errs = append(errs, protocol.LogEvent{
				Time:    ts,
				Message: fmt.Sprintf("%d failed attempts from %s", entry.Count, entry.IP),
				Type:    "ssh",
				Level:   "error",
			})
		}
	}

	// 编排服务日志错误
	if logs, err := c.CollectAgentLogs(ctx, 20); err == nil {
		for _, ev := range logs.Events {
			if ev.Level == "error" {
				errs = append(errs, ev)
			}
		}
	}

	return &protocol.ErrorSummaryData{Errors: errs}, nil
}
