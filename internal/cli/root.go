// Package cli 提供 opsdeck 的命令行入口。
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	configFlag string

	version = "dev"
	commit  = "none"
)

// rootCmd 根命令
var rootCmd = &cobra.Command{
	Use:   "opsdeck",
	Short: "单机运维监控采集引擎",
	Long: `opsdeck 在单台主机上按分层节奏采集系统健康、智能体编排状态、
安全与网络指标，历史数据存入内嵌 SQLite，供任意渲染端消费。`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "配置文件路径")
	rootCmd.AddCommand(collectorCmd, collectCmd, dbCmd, versionCmd)
}

// SetVersionInfo 注入构建期版本信息
func SetVersionInfo(v, c string) {
	version = v
	commit = c
}

// Execute 运行根命令
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// versionCmd 打印版本
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "打印版本信息",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("opsdeck %s (%s)\n", version, commit)
	},
}
