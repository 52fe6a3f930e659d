package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/dushixiang/opsdeck/internal/config"
	"github.com/dushixiang/opsdeck/internal/database"
	"github.com/spf13/cobra"
)

// dbCmd 数据库维护命令
var dbCmd = &cobra.Command{
	Use:   "db",
	Short: "数据库维护",
}

func init() {
	dbCmd.AddCommand(dbStatsCmd, dbPruneCmd, dbPathCmd)
}

// dbStatsCmd 打印各表行数与最新时间
var dbStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "打印各表统计",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildApp(configFlag)
		if err != nil {
			return err
		}
		defer a.logger.Sync()

		stats, err := a.repo.Stats(context.Background())
		if err != nil {
			return err
		}
		for _, stat := range stats {
			newest := "-"
			if stat.Newest > 0 {
				newest = time.Unix(int64(stat.Newest), 0).Format("2006-01-02 15:04:05")
			}
			fmt.Printf("%-18s %8d 行  最新 %s\n", stat.Label, stat.Count, newest)
		}
		return nil
	},
}

// dbPruneCmd 按保留窗口清理过期数据
var dbPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "清理超出保留窗口的历史数据",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildApp(configFlag)
		if err != nil {
			return err
		}
		defer a.logger.Sync()

		cutoff := float64(time.Now().Unix()) - a.cfg.Retention().Seconds()
		if err := a.repo.Prune(context.Background(), cutoff); err != nil {
			return err
		}
		fmt.Printf("已清理 %s 之前的数据\n",
			time.Unix(int64(cutoff), 0).Format("2006-01-02 15:04:05"))
		return nil
	},
}

// dbPathCmd 打印数据库文件路径
var dbPathCmd = &cobra.Command{
	Use:   "path",
	Short: "打印数据库文件路径",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configFlag)
		if err != nil {
			return err
		}
		path := cfg.Database
		if path == "" {
			path = database.DefaultPath()
		}
		fmt.Println(path)
		return nil
	},
}
