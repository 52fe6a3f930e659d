package collector

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestSSHLogCollect(t *testing.T) {
	dir := t.TempDir()
	authLog := filepath.Join(dir, "auth.log")
	content := `Jan 10 10:00:01 host sshd[1]: Failed password for root from 203.0.113.9 port 1 ssh2
Jan 10 10:00:02 host sshd[1]: Failed password for root from 203.0.113.9 port 2 ssh2
Jan 10 10:00:03 host sshd[1]: Invalid user admin from 198.51.100.3 port 3
Jan 10 10:01:00 host sshd[1]: Accepted publickey for deploy from 192.0.2.10 port 4 ssh2
`
	if err := os.WriteFile(authLog, []byte(content), 0644); err != nil {
		t.Fatalf("写测试日志失败: %v", err)
	}

	c := NewSSHLogCollector(authLog)
	data, err := c.Collect(context.Background())
	if err != nil {
		t.Fatalf("采集失败: %v", err)
	}

	if len(data.Failed) != 2 {
		t.Fatalf("应有 2 个失败来源 IP，实际 %d: %+v", len(data.Failed), data.Failed)
	}
	// 按次数降序
	if data.Failed[0].IP != "203.0.113.9" || data.Failed[0].Count != 2 {
		t.Errorf("失败次数最多的来源解析错误: %+v", data.Failed[0])
	}
	if data.Failed[0].LastSeen != "Jan 10 10:00:02" {
		t.Errorf("最后出现时间应取最新一行，实际 %q", data.Failed[0].LastSeen)
	}

	if len(data.Accepted) != 1 || data.Accepted[0].IP != "192.0.2.10" {
		t.Errorf("成功登录来源解析错误: %+v", data.Accepted)
	}
}

func TestSSHLogCollectMissingLog(t *testing.T) {
	c := NewSSHLogCollector(filepath.Join(t.TempDir(), "missing.log"))
	data, err := c.Collect(context.Background())
	if err != nil {
		t.Fatalf("日志缺失不应视为错误: %v", err)
	}
	if len(data.Accepted) != 0 || len(data.Failed) != 0 {
		t.Errorf("日志缺失应返回空汇总，实际 %+v", data)
	}
}

func TestSummarizeLoginLinesTopThree(t *testing.T) {
	lines := []string{
		"Jan 10 10:00:01 host sshd[1]: Failed password for a from 10.0.0.1 port 1",
		"Jan 10 10:00:02 host sshd[1]: Failed password for a from 10.0.0.1 port 1",
		"Jan 10 10:00:03 host sshd[1]: Failed password for a from 10.0.0.1 port 1",
		"Jan 10 10:00:04 host sshd[1]: Failed password for b from 10.0.0.2 port 1",
		"Jan 10 10:00:05 host sshd[1]: Failed password for b from 10.0.0.2 port 1",
		"Jan 10 10:00:06 host sshd[1]: Failed password for c from 10.0.0.3 port 1",
		"Jan 10 10:00:07 host sshd[1]: Failed password for d from 10.0.0.4 port 1",
	}
	entries := summarizeLoginLines(lines)
	if len(entries) != 3 {
		t.Fatalf("应只保留前 3 个来源，实际 %d", len(entries))
	}
	if entries[0].IP != "10.0.0.1" || entries[0].Count != 3 {
		t.Errorf("排序错误: %+v", entries)
	}
	// 次数相同按 IP 升序
	if entries[2].IP != "10.0.0.3" {
		t.Errorf("并列时应按 IP 排序，实际 %+v", entries[2])
	}
}
