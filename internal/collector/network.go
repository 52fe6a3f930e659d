package collector

import (
	"context"
	"fmt"
	"strings"

	"github.com/dushixiang/opsdeck/internal/protocol"
)

// NetworkCollector 网络活动采集器，解析 ss -tnp 输出
type NetworkCollector struct {
	executor *CommandExecutor
}

// NewNetworkCollector 创建网络活动采集器
func NewNetworkCollector(executor *CommandExecutor) *NetworkCollector {
	return &NetworkCollector{
		executor: executor,
	}
}

// Collect 采集活动连接数和对端 IP 分布
func (c *NetworkCollector) Collect(ctx context.Context) (*protocol.NetworkActivityData, error) {
	out, err := c.executor.Execute(ctx, "ss", "-tnp")
	if err != nil {
		return nil, fmt.Errorf("获取网络连接失败: %w", err)
	}
	return parseNetworkActivity(out), nil
}

// parseNetworkActivity 统计对端 IP 连接数，跳过本机和通配地址
func parseNetworkActivity(out string) *protocol.NetworkActivityData {
	data := &protocol.NetworkActivityData{
		PeerIPs: map[string]int{},
	}

	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) < 2 {
		return data
	}

	for _, line := range lines[1:] {
		parts := strings.Fields(line)
		if len(parts) < 5 {
			continue
		}
		peerAddr := parts[4]
		ip := peerAddr
		if idx := strings.LastIndex(peerAddr, ":"); idx >= 0 {
			ip = peerAddr[:idx]
		}
		switch ip {
		case "127.0.0.1", "::1", "[::1]", "*", "0.0.0.0":
			continue
		}
		ip = strings.Trim(ip, "[]")
		data.PeerIPs[ip]++
	}

	for _, count := range data.PeerIPs {
		data.ActiveConnections += count
	}
	data.UniqueIPs = len(data.PeerIPs)
	return data
}
