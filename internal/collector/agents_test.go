package collector

import (
	"testing"

	"github.com/dushixiang/opsdeck/internal/protocol"
)

func newStatusData() *protocol.AgentStatusData {
	return &protocol.AgentStatusData{
		Model:         "unknown",
		GatewayStatus: "unknown",
		Version:       "unknown",
	}
}

func TestParseAgentsList(t *testing.T) {
	out := `
- main (default) (galactic)
    Model: anthropic/claude-sonnet
    Workspace: ~/agents/main
- worker
    Model: claude-opus
    Workspace: ~/agents/worker
`
	agents := parseAgentsList(out)
	if len(agents) != 2 {
		t.Fatalf("应解析出 2 个智能体，实际 %d", len(agents))
	}

	if agents[0].Name != "main" {
		t.Errorf("名称解析错误: %q", agents[0].Name)
	}
	if !agents[0].IsDefault {
		t.Error("main 应标记为默认智能体")
	}
	if agents[0].Model != "sonnet" {
		t.Errorf("模型前缀应被去除，实际 %q", agents[0].Model)
	}
	if agents[0].Workspace != "~/agents/main" {
		t.Errorf("工作目录解析错误: %q", agents[0].Workspace)
	}

	if agents[1].Name != "worker" || agents[1].IsDefault {
		t.Errorf("worker 解析错误: %+v", agents[1])
	}
	if agents[1].Model != "opus" {
		t.Errorf("模型解析错误: %q", agents[1].Model)
	}
}

func TestApplyTokenUsage(t *testing.T) {
	agents := parseAgentsList("- main\n    Workspace: ~/a\n- idle-agent\n    Workspace: ~/b\n")
	statusOut := `
agent:main: session#1  126k/80k (158%)
agent:main: session#2  30k/80k (37%)
other noise line
`
	applyTokenUsage(agents, statusOut)

	if agents[0].Sessions != 2 {
		t.Errorf("main 应有 2 个会话，实际 %d", agents[0].Sessions)
	}
	if agents[0].TokensNumeric != 156000 {
		t.Errorf("token 总量应为 156000，实际 %d", agents[0].TokensNumeric)
	}
	if agents[0].Tokens != "156k" {
		t.Errorf("token 展示值应为 156k，实际 %q", agents[0].Tokens)
	}

	if agents[1].Sessions != 0 || agents[1].Tokens != "0k" {
		t.Errorf("无会话的智能体应为 0k，实际 %+v", agents[1])
	}
}

func TestParseChannels(t *testing.T) {
	out := `
Channels
┌──────────┬─────────┬───────┬──────────────┐
│ Channel  │ Enabled │ State │ Detail       │
├──────────┼─────────┼───────┼──────────────┤
│ telegram │ yes     │ OK    │ connected    │
│ email    │ no      │ WARN  │ smtp timeout │
└──────────┴─────────┴───────┴──────────────┘
Sessions
agent:main: 1
`
	channels := parseChannels(out)
	if len(channels) != 2 {
		t.Fatalf("应解析出 2 个通道，实际 %d: %+v", len(channels), channels)
	}
	if channels[0].Name != "telegram" || channels[0].State != "OK" {
		t.Errorf("telegram 通道解析错误: %+v", channels[0])
	}
	if channels[1].Name != "email" || channels[1].State != "WARN" || channels[1].Detail != "smtp timeout" {
		t.Errorf("email 通道解析错误: %+v", channels[1])
	}
}

func TestParseStorageBytes(t *testing.T) {
	tests := []struct {
		in   string
		want int64
	}{
		{"512", 512},
		{"4K", 4096},
		{"27M", 27 * 1024 * 1024},
		{"3.5G", int64(3.5 * 1024 * 1024 * 1024)},
		{"1T", 1024 * 1024 * 1024 * 1024},
		{"abc", 0},
	}
	for _, tt := range tests {
		if got := parseStorageBytes(tt.in); got != tt.want {
			t.Errorf("parseStorageBytes(%q) = %d，期望 %d", tt.in, got, tt.want)
		}
	}
}

func TestParseStatusText(t *testing.T) {
	data := newStatusData()
	parseStatusText(`
Sessions: 3 active
Model: claude-sonnet
`, data)
	if data.Sessions != 3 {
		t.Errorf("会话数解析错误: %d", data.Sessions)
	}
	if data.Model != "claude-sonnet" {
		t.Errorf("模型解析错误: %q", data.Model)
	}
}

func TestParseStatusJSONFallsBackToText(t *testing.T) {
	data := newStatusData()
	parseStatusJSON(`{"sessions": 2, "model": "claude-opus"}`, data)
	if data.Sessions != 2 || data.Model != "claude-opus" {
		t.Errorf("JSON 解析错误: %+v", data)
	}

	data = newStatusData()
	parseStatusJSON("Sessions: 5\nModel: m1", data)
	if data.Sessions != 5 {
		t.Errorf("非 JSON 输入应回退到文本解析，实际 %+v", data)
	}
}
