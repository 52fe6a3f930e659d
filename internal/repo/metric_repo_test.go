package repo

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/dushixiang/opsdeck/internal/database"
	"github.com/dushixiang/opsdeck/internal/models"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.Open(zap.NewNop(), filepath.Join(t.TempDir(), "metrics.db"))
	if err != nil {
		t.Fatalf("打开测试数据库失败: %v", err)
	}
	return db
}

func TestCreateAndQueryServerMetric(t *testing.T) {
	r := NewMetricRepo(newTestDB(t))
	ctx := context.Background()

	now := float64(time.Now().Unix())
	for i, cpu := range []float64{10, 20, 30} {
		m := &models.ServerMetric{
			Timestamp:  now - float64(100-i),
			CPUPercent: cpu,
		}
		if err := r.CreateServerMetric(ctx, m); err != nil {
			t.Fatalf("写入失败: %v", err)
		}
	}

	latest, err := r.LatestServerMetric(ctx)
	if err != nil {
		t.Fatalf("查询最新指标失败: %v", err)
	}
	if latest.CPUPercent != 30 {
		t.Errorf("最新指标 CPU 应为 30，实际 %v", latest.CPUPercent)
	}

	past, err := r.ServerMetricBefore(ctx, now-99)
	if err != nil {
		t.Fatalf("查询历史指标失败: %v", err)
	}
	if past == nil || past.CPUPercent != 20 {
		t.Errorf("应取到时间点之前最近的一条(CPU=20)，实际 %+v", past)
	}
}

func TestPruneRetentionBoundary(t *testing.T) {
	r := NewMetricRepo(newTestDB(t))
	ctx := context.Background()

	now := float64(time.Now().Unix())
	old := now - 31*24*3600
	recent := now - 3600

	for _, ts := range []float64{old, recent} {
		if err := r.CreateServerMetric(ctx, &models.ServerMetric{Timestamp: ts}); err != nil {
			t.Fatalf("写入失败: %v", err)
		}
		if err := r.CreateNetworkMetric(ctx, &models.NetworkMetric{Timestamp: ts}); err != nil {
			t.Fatalf("写入失败: %v", err)
		}
	}

	cutoff := now - 30*24*3600
	if err := r.Prune(ctx, cutoff); err != nil {
		t.Fatalf("清理失败: %v", err)
	}

	stats, err := r.Stats(ctx)
	if err != nil {
		t.Fatalf("统计失败: %v", err)
	}
	for _, stat := range stats {
		switch stat.Label {
		case "Server", "Network":
			if stat.Count != 1 {
				t.Errorf("%s 表清理后应剩 1 行，实际 %d", stat.Label, stat.Count)
			}
		}
	}

	// 幂等：重复清理不报错也不再删除
	if err := r.Prune(ctx, cutoff); err != nil {
		t.Fatalf("重复清理失败: %v", err)
	}
	latest, err := r.LatestServerMetric(ctx)
	if err != nil || latest == nil {
		t.Fatalf("保留窗口内的数据不应被删除: %v", err)
	}
}

func TestAgentMetricQueries(t *testing.T) {
	r := NewMetricRepo(newTestDB(t))
	ctx := context.Background()

	now := float64(time.Now().Unix())
	ms := []models.AgentMetric{
		{Timestamp: now - 3000, AgentName: "alpha", TokensUsed: 1000},
		{Timestamp: now - 10, AgentName: "alpha", TokensUsed: 5000},
		{Timestamp: now - 10, AgentName: "beta", TokensUsed: 200},
	}
	if err := r.CreateAgentMetrics(ctx, ms); err != nil {
		t.Fatalf("写入失败: %v", err)
	}

	names, err := r.AgentNamesSince(ctx, now-3600)
	if err != nil {
		t.Fatalf("查询名称失败: %v", err)
	}
	if len(names) != 2 {
		t.Errorf("窗口内应有 2 个智能体，实际 %v", names)
	}

	earliest, err := r.EarliestAgentMetricSince(ctx, "alpha", now-3600)
	if err != nil || earliest == nil {
		t.Fatalf("查询窗口内最早样本失败: %v", err)
	}
	if earliest.TokensUsed != 1000 {
		t.Errorf("最早样本 tokens 应为 1000，实际 %d", earliest.TokensUsed)
	}

	latest, err := r.LatestAgentMetric(ctx, "alpha")
	if err != nil || latest == nil {
		t.Fatalf("查询最新样本失败: %v", err)
	}
	if latest.TokensUsed != 5000 {
		t.Errorf("最新样本 tokens 应为 5000，实际 %d", latest.TokensUsed)
	}
}

func TestCreateSecurityMetricWithPorts(t *testing.T) {
	r := NewMetricRepo(newTestDB(t))
	ctx := context.Background()

	now := float64(time.Now().Unix())
	m := &models.SecurityMetric{Timestamp: now, SSHIntrusions: 7, PortsOpen: 2}
	ports := []models.PortScan{
		{Timestamp: now, Port: 22, Service: "ssh", State: "open"},
		{Timestamp: now, Port: 80, Service: "http", State: "open"},
	}
	if err := r.CreateSecurityMetric(ctx, m, ports); err != nil {
		t.Fatalf("写入安全指标失败: %v", err)
	}

	stats, err := r.Stats(ctx)
	if err != nil {
		t.Fatalf("统计失败: %v", err)
	}
	for _, stat := range stats {
		switch stat.Label {
		case "Security":
			if stat.Count != 1 {
				t.Errorf("security 表应有 1 行，实际 %d", stat.Count)
			}
		case "Ports":
			if stat.Count != 2 {
				t.Errorf("ports 表应有 2 行，实际 %d", stat.Count)
			}
		}
	}
}
