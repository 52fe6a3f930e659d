package collector

import (
	"strings"
	"testing"
)

// padTo 右补空格到指定宽度
func padTo(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return s + strings.Repeat(" ", width-len(s))
}

func cronTable(rows [][]string) string {
	header := padTo("ID", 37) + padTo("Name", 33) + padTo("Next", 11) + padTo("Last", 11) + padTo("Status", 20) + "Agent"
	lines := []string{header}
	for _, row := range rows {
		lines = append(lines, padTo(row[0], 37)+padTo(row[1], 33)+padTo(row[2], 11)+padTo(row[3], 11)+padTo(row[4], 20)+row[5])
	}
	return strings.Join(lines, "\n")
}

func TestParseCronList(t *testing.T) {
	out := "diagnostic noise before the table\n" + cronTable([][]string{
		{"abc123", "daily-report", "2h", "1h ago", "ok", "main"},
		{"def456", "backup-sync", "30m", "-", "error (2m ago)", "worker"},
		{"ghi789", "heartbeat", "5m", "4m ago", "running", "main"},
	})

	jobs := parseCronList(out)
	if len(jobs) != 3 {
		t.Fatalf("应解析出 3 个任务，实际 %d: %+v", len(jobs), jobs)
	}

	if jobs[0].Name != "daily-report" || jobs[0].Status != "ok" {
		t.Errorf("第一个任务解析错误: %+v", jobs[0])
	}
	if jobs[0].NextRun != "2h" || jobs[0].LastRun != "1h ago" {
		t.Errorf("时间字段解析错误: %+v", jobs[0])
	}
	if jobs[0].Agent != "main" {
		t.Errorf("智能体字段解析错误: %q", jobs[0].Agent)
	}

	if jobs[1].Status != "error" {
		t.Errorf("含 error 的状态应归一为 error，实际 %q", jobs[1].Status)
	}
	if jobs[1].LastRun != "" {
		t.Errorf("占位符 - 应转为空串，实际 %q", jobs[1].LastRun)
	}

	if jobs[2].Status != "running" {
		t.Errorf("running 状态解析错误: %q", jobs[2].Status)
	}
}

func TestParseCronListTruncatesLongNames(t *testing.T) {
	out := cronTable([][]string{
		{"abc", "a-very-long-job-name-exceeding-limit", "1h", "-", "ok", "main"},
	})
	jobs := parseCronList(out)
	if len(jobs) != 1 {
		t.Fatalf("应解析出 1 个任务，实际 %d", len(jobs))
	}
	if len(jobs[0].Name) > 22 {
		t.Errorf("超长名称应截断到 22 字符以内，实际 %q (%d)", jobs[0].Name, len(jobs[0].Name))
	}
}

func TestParseCronListNoHeader(t *testing.T) {
	if jobs := parseCronList("no cron jobs configured\n"); jobs != nil {
		t.Errorf("没有表头时应返回 nil，实际 %+v", jobs)
	}
}
