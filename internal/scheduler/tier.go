// Package scheduler 实现分层采集调度：
// 探针按层级决定采集频率，结果进入内存缓存并异步落库，
// 刷新编排器按固定节拍驱动采集循环并对外发布快照。
package scheduler

import "time"

// Tier 探针层级，决定采集频率
type Tier int

const (
	// TierFast 快层：服务器健康、进程列表
	TierFast Tier = iota
	// TierMedium 中层：定时任务、日志、网络活动
	TierMedium
	// TierSlow 慢层：智能体、安全状态、SSH 汇总
	TierSlow
	// TierGlacial 冰川层：外部查询富化
	TierGlacial
)

func (t Tier) String() string {
	switch t {
	case TierFast:
		return "fast"
	case TierMedium:
		return "medium"
	case TierSlow:
		return "slow"
	case TierGlacial:
		return "glacial"
	default:
		return "unknown"
	}
}

// Intervals 各层级的采集间隔。快层间隔可配置，其余层级保持固定默认值。
type Intervals struct {
	Fast    time.Duration
	Medium  time.Duration
	Slow    time.Duration
	Glacial time.Duration
}

// DefaultIntervals 按配置的快层间隔构造各层级间隔
func DefaultIntervals(fast time.Duration) Intervals {
	if fast <= 0 {
		fast = 30 * time.Second
	}
	return Intervals{
		Fast:    fast,
		Medium:  2 * time.Minute,
		Slow:    5 * time.Minute,
		Glacial: 15 * time.Minute,
	}
}

// Of 返回层级对应的间隔
func (iv Intervals) Of(t Tier) time.Duration {
	switch t {
	case TierFast:
		return iv.Fast
	case TierMedium:
		return iv.Medium
	case TierSlow:
		return iv.Slow
	case TierGlacial:
		return iv.Glacial
	default:
		return iv.Fast
	}
}
