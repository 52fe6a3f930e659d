package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"syscall"

	"github.com/spf13/cobra"
)

// collectorCmd 运行采集守护进程，直到收到退出信号
var collectorCmd = &cobra.Command{
	Use:   "collector",
	Short: "运行采集守护进程",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildApp(configFlag)
		if err != nil {
			return err
		}
		defer a.logger.Sync()

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		if err := a.daemon.Start(ctx); err != nil {
			return err
		}

		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit

		a.daemon.Stop()
		return nil
	},
}

// collectCmd 执行一次全量采集并打印摘要
var collectCmd = &cobra.Command{
	Use:   "collect",
	Short: "执行一次全量采集并打印摘要",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildApp(configFlag)
		if err != nil {
			return err
		}
		defer a.logger.Sync()

		ctx := context.Background()
		if err := a.daemon.Start(ctx); err != nil {
			return err
		}
		defer a.daemon.Stop()

		printSnapshot(a)
		return nil
	},
}

// printSnapshot 把快照打成可读文本
func printSnapshot(a *app) {
	snapshot := a.daemon.Snapshot()

	if server := snapshot.ServerHealth; server != nil {
		fmt.Printf("服务器  CPU %.1f%% %s  内存 %.0f/%.0fMB %s  磁盘 %.1f/%.1fGB %s  负载 %v  运行 %s\n",
			server.CPUPercent, snapshot.ServerTrends.CPU,
			server.MemUsedMB, server.MemTotalMB, snapshot.ServerTrends.Mem,
			server.DiskUsedGB, server.DiskTotalGB, snapshot.ServerTrends.Disk,
			server.LoadAvg, server.Uptime)
	}

	if fleet := snapshot.AgentFleet; fleet != nil {
		fmt.Printf("智能体  %d 个", len(fleet.Agents))
		if total, ok := snapshot.TokensPerHour["_total"]; ok {
			fmt.Printf("  合计 %d tokens/h", total)
		}
		fmt.Println()
		for _, agent := range fleet.Agents {
			arrow := snapshot.TokenTrends[agent.Name]
			fmt.Printf("  %-20s %-8s %s %s\n", agent.Name, agent.Status, agent.Tokens, arrow)
		}
	}

	if cron := snapshot.CronJobs; cron != nil {
		fmt.Printf("定时任务 %d 个\n", len(cron.Jobs))
	}
	if security := snapshot.SecurityStatus; security != nil {
		fmt.Printf("安全    入侵尝试 %d  监听端口 %d/%d  ufw=%v fail2ban=%v\n",
			security.SSHIntrusions, security.ListeningPorts, security.ExpectedPorts,
			security.UFWActive, security.Fail2banActive)
	}
	if network := snapshot.NetworkActivity; network != nil {
		fmt.Printf("网络    连接 %d  来源 IP %d\n", network.ActiveConnections, network.UniqueIPs)
		for _, peer := range snapshot.TopPeers {
			fmt.Printf("  %-16s %d 连接  %s\n", peer.IP, peer.Connections, peer.Hostname)
		}
	}

	for _, item := range snapshot.ActionItems {
		fmt.Printf("[%s] %s\n", item.Severity, item.Text)
	}

	keys := make([]string, 0, len(snapshot.CollectedAt))
	for key := range snapshot.CollectedAt {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		fmt.Printf("  %-20s %s\n", key, snapshot.CollectedAt[key].Format("15:04:05"))
	}
}
