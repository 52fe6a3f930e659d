package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/dushixiang/opsdeck/internal/protocol"
)

// AgentCollector 智能体编排服务采集器，通过编排 CLI 获取数据
type AgentCollector struct {
	cli      string
	executor *CommandExecutor
}

// NewAgentCollector 创建智能体采集器
func NewAgentCollector(cli string, executor *CommandExecutor) *AgentCollector {
	return &AgentCollector{
		cli:      cli,
		executor: executor,
	}
}

// tokenPattern 会话行中的 token 用量，形如 126k/80k (158%)
var tokenPattern = regexp.MustCompile(`(\d+)k/(\d+)k\s*\((\d+)%\)`)

// CollectFleet 采集智能体列表，补充存储占用和 token 用量
func (c *AgentCollector) CollectFleet(ctx context.Context) (*protocol.AgentFleetData, error) {
	out, err := c.executor.Execute(ctx, c.cli, "agents", "list")
	if err != nil {
		return nil, fmt.Errorf("获取智能体列表失败: %w", err)
	}

	agents := parseAgentsList(out)

	// 逐个统计工作目录大小
	for i := range agents {
		ws := agents[i].Workspace
		if ws == "" {
			agents[i].Storage = "?"
			continue
		}
		if home, err := os.UserHomeDir(); err == nil {
			ws = strings.Replace(ws, "~", home, 1)
		}
		sizeOut, err := c.executor.Execute(ctx, "du", "-sh", ws)
		if err != nil || strings.TrimSpace(sizeOut) == "" {
			agents[i].Storage = "?"
			continue
		}
		fields := strings.Fields(sizeOut)
		agents[i].Storage = fields[0]
		agents[i].StorageBytes = parseStorageBytes(fields[0])
	}

	// 从 status 输出提取每个智能体的会话数和 token 用量
	if statusOut, err := c.executor.Execute(ctx, c.cli, "status"); err == nil {
		applyTokenUsage(agents, statusOut)
	}

	return &protocol.AgentFleetData{Agents: agents}, nil
}

// parseAgentsList 解析 agents list 输出。
// 格式示例:
//
//	- main (default) (galactic)
//	    Model: anthropic/claude-sonnet
//	    Workspace: ~/agents/main
func parseAgentsList(out string) []protocol.AgentInfo {
	var agents []protocol.AgentInfo
	var current *protocol.AgentInfo

	for _, line := range strings.Split(strings.TrimSpace(out), "\n") {
		line = strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(line, "- "):
			raw := line[2:]
			name := strings.TrimSpace(strings.SplitN(raw, "(", 2)[0])
			agents = append(agents, protocol.AgentInfo{
				Name:      name,
				Status:    "online",
				IsDefault: strings.Contains(raw, "(default)"),
			})
			current = &agents[len(agents)-1]
		case current != nil && strings.HasPrefix(line, "Model:"):
			model := strings.TrimSpace(strings.SplitN(line, ":", 2)[1])
			model = strings.ReplaceAll(model, "anthropic/", "")
			model = strings.ReplaceAll(model, "claude-", "")
			current.Model = model
		case current != nil && strings.HasPrefix(line, "Workspace:"):
			current.Workspace = strings.TrimSpace(strings.SplitN(line, ":", 2)[1])
		}
	}
	return agents
}

// applyTokenUsage 从 status 输出按 agent:<name>: 行累计 token 和会话数
func applyTokenUsage(agents []protocol.AgentInfo, statusOut string) {
	lines := strings.Split(statusOut, "\n")
	for i := range agents {
		marker := "agent:" + agents[i].Name + ":"
		var totalTokens int64
		var sessions int
		for _, line := range lines {
			if !strings.Contains(line, marker) {
				continue
			}
			sessions++
			if m := tokenPattern.FindStringSubmatch(line); m != nil {
				if used, err := strconv.ParseInt(m[1], 10, 64); err == nil {
					totalTokens += used
				}
			}
		}
		agents[i].Sessions = sessions
		agents[i].TokensNumeric = totalTokens * 1000
		if totalTokens > 0 {
			agents[i].Tokens = fmt.Sprintf("%dk", totalTokens)
		} else {
			agents[i].Tokens = "0k"
		}
	}
}

// CollectStatus 采集编排服务整体状态：会话数、模型、网关、版本
func (c *AgentCollector) CollectStatus(ctx context.Context) (*protocol.AgentStatusData, error) {
	data := &protocol.AgentStatusData{
		Model:         "unknown",
		GatewayStatus: "unknown",
		Version:       "unknown",
	}

	if out, err := c.executor.Execute(ctx, c.cli, "status", "--json"); err == nil && strings.TrimSpace(out) != "" {
		parseStatusJSON(out, data)
	} else if out, err := c.executor.Execute(ctx, c.cli, "status"); err == nil {
		parseStatusText(out, data)
	}

	if out, err := c.executor.Execute(ctx, c.cli, "gateway", "status"); err == nil {
		if strings.Contains(strings.ToLower(out), "running") {
			data.GatewayStatus = "running"
		} else {
			data.GatewayStatus = "stopped"
		}
	}

	if out, err := c.executor.Execute(ctx, c.cli, "--version"); err == nil && strings.TrimSpace(out) != "" {
		data.Version = strings.SplitN(strings.TrimSpace(out), "\n", 2)[0]
	}

	return data, nil
}

func parseStatusJSON(out string, data *protocol.AgentStatusData) {
	var raw map[string]any
	if err := json.Unmarshal([]byte(out), &raw); err != nil {
		parseStatusText(out, data)
		return
	}
	for _, key := range []string{"sessions", "active_sessions"} {
		if v, ok := raw[key].(float64); ok {
			data.Sessions = int(v)
			break
		}
	}
	for _, key := range []string{"model", "default_model"} {
		if v, ok := raw[key].(string); ok && v != "" {
			data.Model = v
			break
		}
	}
}

var digitPattern = regexp.MustCompile(`(\d+)`)

func parseStatusText(out string, data *protocol.AgentStatusData) {
	for _, line := range strings.Split(out, "\n") {
		lower := strings.ToLower(line)
		if strings.Contains(lower, "session") {
			if m := digitPattern.FindStringSubmatch(line); m != nil {
				if n, err := strconv.Atoi(m[1]); err == nil {
					data.Sessions = n
				}
			}
		}
		if strings.Contains(lower, "model") {
			if parts := strings.SplitN(line, ":", 2); len(parts) > 1 {
				data.Model = strings.TrimSpace(parts[1])
			}
		}
	}
}

// channelRowPattern 表格行: │ name │ enabled │ state │ detail │
var channelRowPattern = regexp.MustCompile(`│\s*(\S+)\s*│\s*(\S+)\s*│\s*(\S+)\s*│\s*(.*?)\s*│`)

// CollectChannels 解析 status 输出中的通道表格
func (c *AgentCollector) CollectChannels(ctx context.Context) (*protocol.ChannelsStatusData, error) {
	out, err := c.executor.Execute(ctx, c.cli, "status")
	if err != nil {
		return nil, fmt.Errorf("获取通道状态失败: %w", err)
	}
	return &protocol.ChannelsStatusData{Channels: parseChannels(out)}, nil
}

func parseChannels(out string) []protocol.ChannelStatus {
	var channels []protocol.ChannelStatus
	inChannels := false
	for _, line := range strings.Split(out, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.Contains(line, "Channels") && !strings.Contains(line, "│") {
			inChannels = true
			continue
		}
		if !inChannels {
			continue
		}
		// 下一个区块开始时结束
		if trimmed != "" && !strings.ContainsAny(trimmed[:1], "│├└┌─") {
			if strings.Contains(line, "Sessions") || strings.Contains(line, "Security") {
				break
			}
		}
		m := channelRowPattern.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		name := strings.TrimSpace(m[1])
		if name == "Channel" || strings.HasPrefix(name, "─") {
			continue
		}
		channels = append(channels, protocol.ChannelStatus{
			Name:    name,
			Enabled: strings.TrimSpace(m[2]),
			State:   strings.TrimSpace(m[3]),
			Detail:  strings.TrimSpace(m[4]),
		})
	}
	return channels
}

var (
	latestVersionPattern  = regexp.MustCompile(`update ([\d.]+(?:-\d+)?)`)
	currentVersionPattern = regexp.MustCompile(`app ([\d.]+(?:-\d+)?)`)
)

// CollectUpdate 检查编排服务是否有可用更新
func (c *AgentCollector) CollectUpdate(ctx context.Context) (*protocol.UpdateStatusData, error) {
	data := &protocol.UpdateStatusData{}

	out, err := c.executor.Execute(ctx, c.cli, "status")
	if err != nil {
		return data, nil
	}

	for _, line := range strings.Split(out, "\n") {
		if strings.Contains(line, "Update") && strings.Contains(line, "available") {
			data.Available = true
			if m := latestVersionPattern.FindStringSubmatch(line); m != nil {
				data.Latest = m[1]
			}
		}
		if strings.Contains(line, "Gateway") && strings.Contains(line, "app ") {
			if m := currentVersionPattern.FindStringSubmatch(line); m != nil {
				data.Current = m[1]
			}
		}
	}

	if data.Current == "" {
		if out, err := c.executor.Execute(ctx, c.cli, "--version"); err == nil && strings.TrimSpace(out) != "" {
			data.Current = strings.SplitN(strings.TrimSpace(out), "\n", 2)[0]
		}
	}
	return data, nil
}

// parseStorageBytes 解析 27M、3.2G 之类的容量字符串为字节数
func parseStorageBytes(s string) int64 {
	s = strings.ToUpper(strings.TrimSpace(s))
	multipliers := []struct {
		suffix string
		mult   float64
	}{
		{"K", 1024},
		{"M", 1024 * 1024},
		{"G", 1024 * 1024 * 1024},
		{"T", 1024 * 1024 * 1024 * 1024},
	}
	for _, m := range multipliers {
		if strings.HasSuffix(s, m.suffix) {
			v, err := strconv.ParseFloat(strings.TrimSuffix(s, m.suffix), 64)
			if err != nil {
				return 0
			}
			return int64(v * m.mult)
		}
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return int64(v)
}
