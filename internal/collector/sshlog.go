package collector

import (
	"bufio"
	"context"
	"os"
	"regexp"
	"sort"
	"strings"

	"github.com/dushixiang/opsdeck/internal/protocol"
)

// SSHLogCollector SSH 登录汇总采集器，解析认证日志中的成功/失败记录
type SSHLogCollector struct {
	authLog string
}

// NewSSHLogCollector 创建 SSH 登录汇总采集器
func NewSSHLogCollector(authLog string) *SSHLogCollector {
	return &SSHLogCollector{
		authLog: authLog,
	}
}

var (
	sourceIPPattern   = regexp.MustCompile(`from\s+(\d+\.\d+\.\d+\.\d+)`)
	logTimePattern    = regexp.MustCompile(`^(\w+\s+\d+\s+\d+:\d+:\d+)`)
	acceptedPattern   = regexp.MustCompile(`Accepted`)
	failedLinePattern = regexp.MustCompile(`Failed password|Invalid user`)
)

// maxAuthLines 每类记录最多回看的行数
const maxAuthLines = 500

// Collect 采集 SSH 登录汇总（每类取连接次数最多的前 3 个 IP）
func (c *SSHLogCollector) Collect(ctx context.Context) (*protocol.SSHLoginSummaryData, error) {
	data := &protocol.SSHLoginSummaryData{
		Accepted: []protocol.SSHLoginEntry{},
		Failed:   []protocol.SSHLoginEntry{},
	}

	f, err := os.Open(c.authLog)
	if err != nil {
		// 日志不可读时返回空汇总，不视为采集失败
		return data, nil
	}
	defer f.Close()

	var acceptedLines, failedLines []string
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if acceptedPattern.MatchString(line) {
			acceptedLines = appendTail(acceptedLines, line, maxAuthLines)
		}
		if failedLinePattern.MatchString(line) {
			failedLines = appendTail(failedLines, line, maxAuthLines)
		}
	}

	data.Accepted = summarizeLoginLines(acceptedLines)
	data.Failed = summarizeLoginLines(failedLines)
	return data, nil
}

// appendTail 追加并保持最多 limit 行（保留最新的）
func appendTail(lines []string, line string, limit int) []string {
	lines = append(lines, line)
	if len(lines) > limit {
		lines = lines[1:]
	}
	return lines
}

// summarizeLoginLines 按来源 IP 聚合计数，取前 3
func summarizeLoginLines(lines []string) []protocol.SSHLoginEntry {
	type stat struct {
		count    int
		lastSeen string
	}
	stats := map[string]*stat{}

	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		ipMatch := sourceIPPattern.FindStringSubmatch(line)
		if ipMatch == nil {
			continue
		}
		ip := ipMatch[1]
		ts := ""
		if m := logTimePattern.FindStringSubmatch(line); m != nil {
			ts = m[1]
		}
		s, ok := stats[ip]
		if !ok {
			s = &stat{}
			stats[ip] = s
		}
		s.count++
		s.lastSeen = ts
	}

	entries := make([]protocol.SSHLoginEntry, 0, len(stats))
	for ip, s := range stats {
		entries = append(entries, protocol.SSHLoginEntry{
			IP:       ip,
			Count:    s.count,
			LastSeen: s.lastSeen,
		})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Count != entries[j].Count {
			return entries[i].Count > entries[j].Count
		}
		return entries[i].IP < entries[j].IP
	})
	if len(entries) > 3 {
		entries = entries[:3]
	}
	return entries
}
