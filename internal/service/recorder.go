package service

import (
	"context"
	"time"

	"github.com/dushixiang/opsdeck/internal/models"
	"github.com/dushixiang/opsdeck/internal/protocol"
	"github.com/dushixiang/opsdeck/internal/repo"
	"go.uber.org/zap"
)

// Recorder 把采集到的数据落库。所有方法对 nil 或空数据直接跳过，
// 写入失败只记日志，不影响采集循环。
type Recorder struct {
	logger *zap.Logger
	repo   *repo.MetricRepo
}

func NewRecorder(logger *zap.Logger, metricRepo *repo.MetricRepo) *Recorder {
	return &Recorder{
		logger: logger,
		repo:   metricRepo,
	}
}

// now 当前时间，Unix 秒（浮点）
func now() float64 {
	return float64(time.Now().UnixNano()) / 1e9
}

// RecordServer 写入一条服务器健康指标
func (r *Recorder) RecordServer(ctx context.Context, data *protocol.ServerHealthData) {
	if data == nil {
		return
	}
	m := &models.ServerMetric{
		Timestamp:   now(),
		CPUPercent:  data.CPUPercent,
		MemUsedMB:   data.MemUsedMB,
		MemTotalMB:  data.MemTotalMB,
		DiskUsedGB:  data.DiskUsedGB,
		DiskTotalGB: data.DiskTotalGB,
	}
	if len(data.LoadAvg) >= 3 {
		m.Load1m = data.LoadAvg[0]
		m.Load5m = data.LoadAvg[1]
		m.Load15m = data.LoadAvg[2]
	}
	if err := r.repo.CreateServerMetric(ctx, m); err != nil {
		r.logger.Error("写入服务器指标失败", zap.Error(err))
	}
}

// RecordAgents 写入智能体指标，每个智能体一行
func (r *Recorder) RecordAgents(ctx context.Context, data *protocol.AgentFleetData) {
	if data == nil || len(data.Agents) == 0 {
		return
	}
	ts := now()
	ms := make([]models.AgentMetric, 0, len(data.Agents))
	for _, agent := range data.Agents {
		ms = append(ms, models.AgentMetric{
			Timestamp:    ts,
			AgentName:    agent.Name,
			TokensUsed:   agent.TokensNumeric,
			Sessions:     agent.Sessions,
			StorageBytes: agent.StorageBytes,
			Model:        agent.Model,
		})
	}
	if err := r.repo.CreateAgentMetrics(ctx, ms); err != nil {
		r.logger.Error("写入智能体指标失败", zap.Error(err))
	}
}

// RecordCron 写入定时任务指标，每个任务一行
func (r *Recorder) RecordCron(ctx context.Context, data *protocol.CronJobsData) {
	if data == nil || len(data.Jobs) == 0 {
		return
	}
	ts := now()
	ms := make([]models.CronMetric, 0, len(data.Jobs))
	for _, job := range data.Jobs {
		ms = append(ms, models.CronMetric{
			Timestamp: ts,
			JobName:   job.Name,
			Status:    job.Status,
			LastRun:   job.LastRun,
			NextRun:   job.NextRun,
		})
	}
	if err := r.repo.CreateCronMetrics(ctx, ms); err != nil {
		r.logger.Error("写入定时任务指标失败", zap.Error(err))
	}
}

// RecordSecurity 写入安全指标及端口明细（同一事务）
func (r *Recorder) RecordSecurity(ctx context.Context, data *protocol.SecurityStatusData) {
	if data == nil {
		return
	}
	ts := now()
	m := &models.SecurityMetric{
		Timestamp:        ts,
		SSHIntrusions:    data.SSHIntrusions,
		PortsOpen:        data.ListeningPorts,
		UFWActive:        boolToInt(data.UFWActive),
		Fail2banActive:   boolToInt(data.Fail2banActive),
		RootLoginEnabled: boolToInt(data.RootLoginEnabled),
	}
	ports := make([]models.PortScan, 0, len(data.PortsDetail))
	for _, p := range data.PortsDetail {
		ports = append(ports, models.PortScan{
			Timestamp: ts,
			Port:      p.Port,
			Service:   p.Service,
			State:     p.State,
		})
	}
	if err := r.repo.CreateSecurityMetric(ctx, m, ports); err != nil {
		r.logger.Error("写入安全指标失败", zap.Error(err))
	}
}

// RecordNetwork 写入网络活动指标
func (r *Recorder) RecordNetwork(ctx context.Context, data *protocol.NetworkActivityData) {
	if data == nil {
		return
	}
	m := &models.NetworkMetric{
		Timestamp:         now(),
		ActiveConnections: data.ActiveConnections,
		UniqueIPs:         data.UniqueIPs,
	}
	if err := r.repo.CreateNetworkMetric(ctx, m); err != nil {
		r.logger.Error("写入网络指标失败", zap.Error(err))
	}
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
