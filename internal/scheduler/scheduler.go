package scheduler

import (
	"context"
	"time"

	"github.com/dushixiang/opsdeck/internal/protocol"
	"github.com/dushixiang/opsdeck/internal/service"
	"github.com/sourcegraph/conc/panics"
	"github.com/sourcegraph/conc/pool"
	"go.uber.org/zap"
)

// 探针键名，同时作为缓存键
const (
	ProbeServerHealth    = "server_health"
	ProbeTopProcesses    = "top_processes"
	ProbeCronJobs        = "cron_jobs"
	ProbeActivityLog     = "activity_log"
	ProbeAgentLogs       = "agent_logs"
	ProbeErrorSummary    = "error_summary"
	ProbeNetworkActivity = "network_activity"
	ProbeAgentFleet      = "agent_fleet"
	ProbeAgentStatus     = "agent_status"
	ProbeSecurityStatus  = "security_status"
	ProbeSSHLoginSummary = "ssh_login_summary"
	ProbeChannelsStatus  = "channels_status"
	ProbeUpdateStatus    = "update_status"

	// keyEnrichment 冰川层富化在缓存中的到期标记
	keyEnrichment = "enrichment"
)

// defaultProbeTimeout 未指定时的单探针超时
const defaultProbeTimeout = 10 * time.Second

// ProbeFunc 单个探针的采集函数
type ProbeFunc func(ctx context.Context) (any, error)

// Probe 探针描述：名称、层级、超时、采集函数
type Probe struct {
	Name    string
	Tier    Tier
	Timeout time.Duration
	Run     ProbeFunc
}

// Scheduler 分层采集调度器。每个采集周期只运行到期的探针，
// 到期探针并发执行，单探针失败或崩溃不影响其他探针。
type Scheduler struct {
	logger    *zap.Logger
	cache     *TieredCache
	intervals Intervals
	probes    []Probe
	recorder  *service.Recorder
	enricher  *Enricher
}

func NewScheduler(logger *zap.Logger, cache *TieredCache, intervals Intervals) *Scheduler {
	return &Scheduler{
		logger:    logger,
		cache:     cache,
		intervals: intervals,
	}
}

// Register 注册探针
func (s *Scheduler) Register(probes ...Probe) {
	s.probes = append(s.probes, probes...)
}

// SetRecorder 设置落库组件，为空则只更新缓存
func (s *Scheduler) SetRecorder(recorder *service.Recorder) {
	s.recorder = recorder
}

// SetEnricher 设置冰川层富化组件
func (s *Scheduler) SetEnricher(enricher *Enricher) {
	s.enricher = enricher
}

// Cache 返回底层缓存
func (s *Scheduler) Cache() *TieredCache {
	return s.cache
}

// CollectOnce 执行一个采集周期。force 为真时所有探针无视到期时间全部运行。
// 探针失败时保留旧缓存值，下个到期周期重试。
func (s *Scheduler) CollectOnce(ctx context.Context, force bool) {
	now := time.Now()

	due := make([]Probe, 0, len(s.probes))
	for _, probe := range s.probes {
		if force || s.cache.IsDue(probe.Name, s.intervals.Of(probe.Tier), now) {
			due = append(due, probe)
		}
	}
	if len(due) == 0 && !s.enrichmentDue(now, force) {
		return
	}

	// 每个探针占一个独立槽位，无需加锁
	succeeded := make([]bool, len(due))

	p := pool.New()
	for i, probe := range due {
		i, probe := i, probe
		p.Go(func() {
			recovered := panics.Try(func() {
				succeeded[i] = s.runProbe(ctx, probe)
			})
			if recovered != nil {
				s.logger.Error("探针崩溃",
					zap.String("probe", probe.Name),
					zap.Any("panic", recovered.Value))
			}
		})
	}
	p.Wait()

	if s.recorder != nil {
		for i, probe := range due {
			if succeeded[i] {
				s.persist(ctx, probe.Name)
			}
		}
	}

	if s.enricher != nil && s.enrichmentDue(now, force) {
		if err := s.enricher.Enrich(ctx, s.cache); err != nil {
			s.logger.Warn("冰川层富化失败", zap.Error(err))
		}
		s.cache.Put(keyEnrichment, now)
	}
}

// runProbe 执行单个探针，成功时写缓存
func (s *Scheduler) runProbe(ctx context.Context, probe Probe) bool {
	timeout := probe.Timeout
	if timeout <= 0 {
		timeout = defaultProbeTimeout
	}
	probeCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	value, err := probe.Run(probeCtx)
	if err != nil {
		s.logger.Warn("探针采集失败",
			zap.String("probe", probe.Name),
			zap.String("tier", probe.Tier.String()),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err))
		return false
	}
	s.cache.Put(probe.Name, value)
	return true
}

// enrichmentDue 判断冰川层富化是否到期
func (s *Scheduler) enrichmentDue(now time.Time, force bool) bool {
	if s.enricher == nil {
		return false
	}
	return force || s.cache.IsDue(keyEnrichment, s.intervals.Glacial, now)
}

// persist 把本周期采集成功的数据落库，失败只记日志
func (s *Scheduler) persist(ctx context.Context, name string) {
	value, ok := s.cache.Get(name)
	if !ok {
		return
	}
	switch name {
	case ProbeServerHealth:
		if data, ok := value.(*protocol.ServerHealthData); ok {
			s.recorder.RecordServer(ctx, data)
		}
	case ProbeAgentFleet:
		if data, ok := value.(*protocol.AgentFleetData); ok {
			s.recorder.RecordAgents(ctx, data)
		}
	case ProbeCronJobs:
		if data, ok := value.(*protocol.CronJobsData); ok {
			s.recorder.RecordCron(ctx, data)
		}
	case ProbeSecurityStatus:
		if data, ok := value.(*protocol.SecurityStatusData); ok {
			s.recorder.RecordSecurity(ctx, data)
		}
	case ProbeNetworkActivity:
		if data, ok := value.(*protocol.NetworkActivityData); ok {
			s.recorder.RecordNetwork(ctx, data)
		}
	}
}
