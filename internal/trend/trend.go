// Package trend 基于历史指标计算趋势箭头与速率。
package trend

import (
	"context"
	"math"
	"time"

	"github.com/dushixiang/opsdeck/internal/repo"
	"go.uber.org/zap"
)

// 趋势箭头
const (
	ArrowUp     = "↑"
	ArrowDown   = "↓"
	ArrowStable = "→"
	NoData      = "--"
)

// trendWindow 趋势对比窗口
const trendWindow = time.Hour

// ServerTrends 服务器三项指标的趋势箭头
type ServerTrends struct {
	CPU  string `json:"cpu"`
	Mem  string `json:"mem"`
	Disk string `json:"disk"`
}

// Calculator 趋势计算器，对比当前值与一小时前的最近采样
type Calculator struct {
	logger *zap.Logger
	repo   *repo.MetricRepo
}

func NewCalculator(logger *zap.Logger, metricRepo *repo.MetricRepo) *Calculator {
	return &Calculator{
		logger: logger,
		repo:   metricRepo,
	}
}

// arrow 对比当前值与历史值，5% 以内视为稳定；
// 历史值为零时退化为绝对差小于 0.5 视为稳定。
func arrow(current, previous float64) string {
	diff := current - previous
	if previous > 0 {
		if math.Abs(diff)/previous < 0.05 {
			return ArrowStable
		}
	} else if math.Abs(diff) < 0.5 {
		return ArrowStable
	}
	if diff > 0 {
		return ArrowUp
	}
	if diff < 0 {
		return ArrowDown
	}
	return ArrowStable
}

// ServerTrends 计算 CPU、内存、磁盘的趋势箭头，样本不足时全部为 NoData
func (c *Calculator) ServerTrends(ctx context.Context) ServerTrends {
	result := ServerTrends{CPU: NoData, Mem: NoData, Disk: NoData}

	current, err := c.repo.LatestServerMetric(ctx)
	if err != nil || current == nil {
		return result
	}
	oneHourAgo := float64(time.Now().Unix()) - trendWindow.Seconds()
	past, err := c.repo.ServerMetricBefore(ctx, oneHourAgo)
	if err != nil || past == nil {
		return result
	}

	result.CPU = arrow(current.CPUPercent, past.CPUPercent)
	result.Mem = arrow(current.MemUsedMB, past.MemUsedMB)
	result.Disk = arrow(current.DiskUsedGB, past.DiskUsedGB)
	return result
}

// TotalKey 聚合速率在结果表中的键
const TotalKey = "_total"

// AgentTokensPerHour 计算每个智能体最近一小时的 token 消耗速率，
// 结果额外包含 _total 聚合键。计数器回绕或窗口内仅一个样本时记 0。
func (c *Calculator) AgentTokensPerHour(ctx context.Context) map[string]int64 {
	result := map[string]int64{}
	oneHourAgo := float64(time.Now().Unix()) - trendWindow.Seconds()

	names, err := c.repo.AgentNamesSince(ctx, oneHourAgo)
	if err != nil {
		c.logger.Warn("查询智能体列表失败", zap.Error(err))
		result[TotalKey] = 0
		return result
	}

	var total int64
	for _, name := range names {
		result[name] = 0
		earliest, err := c.repo.EarliestAgentMetricSince(ctx, name, oneHourAgo)
		if err != nil || earliest == nil {
			continue
		}
		latest, err := c.repo.LatestAgentMetric(ctx, name)
		if err != nil || latest == nil {
			continue
		}
		if latest.Timestamp <= earliest.Timestamp {
			continue
		}
		tokenDiff := latest.TokensUsed - earliest.TokensUsed
		hours := (latest.Timestamp - earliest.Timestamp) / 3600
		if hours > 0 && tokenDiff >= 0 {
			tph := int64(float64(tokenDiff) / hours)
			result[name] = tph
			total += tph
		}
	}
	result[TotalKey] = total
	return result
}

// AgentTokenTrends 计算每个智能体 token 用量的趋势箭头
func (c *Calculator) AgentTokenTrends(ctx context.Context) map[string]string {
	result := map[string]string{}
	oneHourAgo := float64(time.Now().Unix()) - trendWindow.Seconds()

	names, err := c.repo.AgentNamesSince(ctx, oneHourAgo)
	if err != nil {
		c.logger.Warn("查询智能体列表失败", zap.Error(err))
		return result
	}

	for _, name := range names {
		result[name] = NoData
		current, err := c.repo.LatestAgentMetric(ctx, name)
		if err != nil || current == nil {
			continue
		}
		past, err := c.repo.AgentMetricBefore(ctx, name, oneHourAgo)
		if err != nil || past == nil {
			continue
		}
		result[name] = arrow(float64(current.TokensUsed), float64(past.TokensUsed))
	}
	return result
}
