package repo

import (
	"context"

	"github.com/dushixiang/opsdeck/internal/models"
	"gorm.io/gorm"
)

type MetricRepo struct {
	db *gorm.DB
}

func NewMetricRepo(db *gorm.DB) *MetricRepo {
	return &MetricRepo{
		db: db,
	}
}

// CreateServerMetric 追加一条服务器指标
func (r *MetricRepo) CreateServerMetric(ctx context.Context, m *models.ServerMetric) error {
	return r.db.WithContext(ctx).Create(m).Error
}

// CreateAgentMetrics 批量追加智能体指标（同一采集周期）
func (r *MetricRepo) CreateAgentMetrics(ctx context.Context, ms []models.AgentMetric) error {
	if len(ms) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&ms).Error
}

// CreateCronMetrics 批量追加定时任务指标
func (r *MetricRepo) CreateCronMetrics(ctx context.Context, ms []models.CronMetric) error {
	if len(ms) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&ms).Error
}

// CreateSecurityMetric 追加一条安全指标及端口明细
func (r *MetricRepo) CreateSecurityMetric(ctx context.Context, m *models.SecurityMetric, ports []models.PortScan) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(m).Error; err != nil {
			return err
		}
		if len(ports) > 0 {
			if err := tx.Create(&ports).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// CreateNetworkMetric 追加一条网络活动指标
func (r *MetricRepo) CreateNetworkMetric(ctx context.Context, m *models.NetworkMetric) error {
	return r.db.WithContext(ctx).Create(m).Error
}

// LatestServerMetric 查询最新一条服务器指标
func (r *MetricRepo) LatestServerMetric(ctx context.Context) (*models.ServerMetric, error) {
	var m models.ServerMetric
	err := r.db.WithContext(ctx).
		Order("timestamp DESC").
		First(&m).Error
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// ServerMetricBefore 查询时间戳不晚于 ts 的最新服务器指标
func (r *MetricRepo) ServerMetricBefore(ctx context.Context, ts float64) (*models.ServerMetric, error) {
	var m models.ServerMetric
	err := r.db.WithContext(ctx).
		Where("timestamp <= ?", ts).
		Order("timestamp DESC").
		First(&m).Error
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// AgentNamesSince 查询窗口内出现过的智能体名称
func (r *MetricRepo) AgentNamesSince(ctx context.Context, ts float64) ([]string, error) {
	var names []string
	err := r.db.WithContext(ctx).
		Model(&models.AgentMetric{}).
		Distinct("agent_name").
		Where("timestamp >= ?", ts).
		Pluck("agent_name", &names).Error
	return names, err
}

// EarliestAgentMetricSince 查询某智能体在窗口内最早的一条指标
func (r *MetricRepo) EarliestAgentMetricSince(ctx context.Context, name string, ts float64) (*models.AgentMetric, error) {
	var m models.AgentMetric
	err := r.db.WithContext(ctx).
		Where("agent_name = ? AND timestamp >= ?", name, ts).
		Order("timestamp ASC").
		First(&m).Error
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// LatestAgentMetric 查询某智能体最新的一条指标
func (r *MetricRepo) LatestAgentMetric(ctx context.Context, name string) (*models.AgentMetric, error) {
	var m models.AgentMetric
	err := r.db.WithContext(ctx).
		Where("agent_name = ?", name).
		Order("timestamp DESC").
		First(&m).Error
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// AgentMetricBefore 查询某智能体时间戳不晚于 ts 的最新指标
func (r *MetricRepo) AgentMetricBefore(ctx context.Context, name string, ts float64) (*models.AgentMetric, error) {
	var m models.AgentMetric
	err := r.db.WithContext(ctx).
		Where("agent_name = ? AND timestamp <= ?", name, ts).
		Order("timestamp DESC").
		First(&m).Error
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// Prune 删除早于 cutoff 的历史数据和查询缓存。
// 时序表按 timestamp 裁剪，缓存表按 resolved_at/scanned_at 裁剪。
func (r *MetricRepo) Prune(ctx context.Context, cutoff float64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		tables := []any{
			&models.ServerMetric{},
			&models.AgentMetric{},
			&models.CronMetric{},
			&models.SecurityMetric{},
			&models.PortScan{},
			&models.NetworkMetric{},
		}
		for _, table := range tables {
			if err := tx.Where("timestamp < ?", cutoff).Delete(table).Error; err != nil {
				return err
			}
		}
		if err := tx.Where("resolved_at < ?", cutoff).Delete(&models.DNSCacheEntry{}).Error; err != nil {
			return err
		}
		if err := tx.Where("resolved_at < ?", cutoff).Delete(&models.GeoCacheEntry{}).Error; err != nil {
			return err
		}
		if err := tx.Where("scanned_at < ?", cutoff).Delete(&models.AttackerScan{}).Error; err != nil {
			return err
		}
		return nil
	})
}

// TableStat 单个表的统计信息
type TableStat struct {
	Label  string
	Count  int64
	Newest float64 // 最新时间戳（秒），缓存表取 resolved_at/scanned_at
}

// Stats 统计所有表的行数与最新时间戳，用于 db 子命令展示
func (r *MetricRepo) Stats(ctx context.Context) ([]TableStat, error) {
	type entry struct {
		label  string
		model  any
		tsCol  string
	}
	entries := []entry{
		{"Server", &models.ServerMetric{}, "timestamp"},
		{"Agents", &models.AgentMetric{}, "timestamp"},
		{"Cron", &models.CronMetric{}, "timestamp"},
		{"Security", &models.SecurityMetric{}, "timestamp"},
		{"Ports", &models.PortScan{}, "timestamp"},
		{"Network", &models.NetworkMetric{}, "timestamp"},
		{"DNS cache", &models.DNSCacheEntry{}, "resolved_at"},
		{"Geolocation", &models.GeoCacheEntry{}, "resolved_at"},
		{"Attacker scans", &models.AttackerScan{}, "scanned_at"},
	}

	stats := make([]TableStat, 0, len(entries))
	for _, e := range entries {
		var count int64
		if err := r.db.WithContext(ctx).Model(e.model).Count(&count).Error; err != nil {
			return nil, err
		}
		var newest *float64
		if err := r.db.WithContext(ctx).Model(e.model).
			Select("MAX(" + e.tsCol + ")").
			Scan(&newest).Error; err != nil {
			return nil, err
		}
		stat := TableStat{Label: e.label, Count: count}
		if newest != nil {
			stat.Newest = *newest
		}
		stats = append(stats, stat)
	}
	return stats, nil
}
