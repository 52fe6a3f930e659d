package scheduler

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dushixiang/opsdeck/internal/collector"
	"github.com/dushixiang/opsdeck/internal/lookup"
	"github.com/dushixiang/opsdeck/internal/protocol"
	"github.com/dushixiang/opsdeck/internal/repo"
	"github.com/dushixiang/opsdeck/internal/trend"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// topPeerCount 快照中展示的活跃来源 IP 数
const topPeerCount = 3

// Snapshot 供渲染方消费的完整状态快照。
// 所有字段都是采集周期结束时的一致视图，读方不会触发任何采集。
type Snapshot struct {
	ServerHealth    *protocol.ServerHealthData
	TopProcesses    *protocol.TopProcessesData
	CronJobs        *protocol.CronJobsData
	ActivityLog     *protocol.ActivityLogData
	AgentLogs       *protocol.AgentLogsData
	ErrorSummary    *protocol.ErrorSummaryData
	NetworkActivity *protocol.NetworkActivityData
	AgentFleet      *protocol.AgentFleetData
	AgentStatus     *protocol.AgentStatusData
	SecurityStatus  *protocol.SecurityStatusData
	SSHLoginSummary *protocol.SSHLoginSummaryData
	ChannelsStatus  *protocol.ChannelsStatusData
	UpdateStatus    *protocol.UpdateStatusData

	ServerTrends  trend.ServerTrends
	TokensPerHour map[string]int64
	TokenTrends   map[string]string
	TopPeers      []protocol.TopPeer
	ActionItems   []protocol.ActionItem

	CollectedAt map[string]time.Time
	LastRefresh time.Time
}

// Daemon 刷新编排器：按快层间隔的固定节拍驱动采集循环，
// 周期间不重叠（跳过而非排队），循环结束后发布新快照。
type Daemon struct {
	logger       *zap.Logger
	scheduler    *Scheduler
	trend        *trend.Calculator
	metricRepo   *repo.MetricRepo
	retention    time.Duration
	fastInterval time.Duration
	dns          *lookup.DNSResolver

	cron   *cron.Cron
	ctx    context.Context
	cancel context.CancelFunc

	mu        sync.RWMutex
	snapshot  Snapshot
	forceNext atomic.Bool
}

func NewDaemon(logger *zap.Logger, sched *Scheduler, trendCalc *trend.Calculator, metricRepo *repo.MetricRepo, fastInterval, retention time.Duration) *Daemon {
	cronLogger := &zapCronLogger{logger: logger}
	return &Daemon{
		logger:       logger,
		scheduler:    sched,
		trend:        trendCalc,
		metricRepo:   metricRepo,
		retention:    retention,
		fastInterval: fastInterval,
		cron: cron.New(cron.WithChain(
			cron.SkipIfStillRunning(cronLogger),
			cron.Recover(cronLogger),
		)),
	}
}

// SetDNSResolver 设置反向解析器，用于快照中活跃来源 IP 的主机名回填
func (d *Daemon) SetDNSResolver(dns *lookup.DNSResolver) {
	d.dns = dns
}

// Start 启动采集循环：先做一次保留期清理和一次全量采集，
// 再按快层间隔进入固定节拍。
func (d *Daemon) Start(ctx context.Context) error {
	d.ctx, d.cancel = context.WithCancel(ctx)

	d.logger.Info("启动采集守护进程",
		zap.Duration("interval", d.fastInterval),
		zap.Duration("retention", d.retention))

	// 清理失败不阻止启动
	if d.metricRepo != nil {
		cutoff := float64(time.Now().Unix()) - d.retention.Seconds()
		if err := d.metricRepo.Prune(d.ctx, cutoff); err != nil {
			d.logger.Warn("启动时清理过期数据失败", zap.Error(err))
		}
	}

	// 首个周期强制全量，快照立即可用
	d.runCycle(true)

	spec := fmt.Sprintf("@every %ds", int(d.fastInterval.Seconds()))
	if _, err := d.cron.AddFunc(spec, func() {
		d.runCycle(d.forceNext.Swap(false))
	}); err != nil {
		return fmt.Errorf("注册采集任务失败: %w", err)
	}
	d.cron.Start()
	return nil
}

// Stop 停止采集循环。先等执行中的周期完整结束再取消上下文，
// 避免落库事务写到一半被打断。
func (d *Daemon) Stop() {
	ctx := d.cron.Stop()
	<-ctx.Done()
	if d.cancel != nil {
		d.cancel()
	}
	d.logger.Info("采集守护进程已停止")
}

// Snapshot 返回最近一次发布的快照
func (d *Daemon) Snapshot() Snapshot {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.snapshot
}

// ForceRefresh 下个周期所有探针无视到期时间全部采集
func (d *Daemon) ForceRefresh() {
	d.forceNext.Store(true)
}

// LastRefreshAge 距最近一次快照发布的时长
func (d *Daemon) LastRefreshAge() time.Duration {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.snapshot.LastRefresh.IsZero() {
		return 0
	}
	return time.Since(d.snapshot.LastRefresh)
}

// runCycle 执行一个采集周期并发布快照
func (d *Daemon) runCycle(force bool) {
	start := time.Now()
	d.scheduler.CollectOnce(d.ctx, force)

	snapshot := d.buildSnapshot()
	d.mu.Lock()
	d.snapshot = snapshot
	d.mu.Unlock()

	d.logger.Debug("采集周期完成",
		zap.Bool("force", force),
		zap.Duration("elapsed", time.Since(start)))
}

// buildSnapshot 从缓存与趋势引擎组装快照，锁外完成全部计算
func (d *Daemon) buildSnapshot() Snapshot {
	cache := d.scheduler.Cache()
	snapshot := Snapshot{
		CollectedAt: map[string]time.Time{},
		LastRefresh: time.Now(),
	}

	snapshot.ServerHealth = cacheValue[*protocol.ServerHealthData](cache, ProbeServerHealth)
	snapshot.TopProcesses = cacheValue[*protocol.TopProcessesData](cache, ProbeTopProcesses)
	snapshot.CronJobs = cacheValue[*protocol.CronJobsData](cache, ProbeCronJobs)
	snapshot.ActivityLog = cacheValue[*protocol.ActivityLogData](cache, ProbeActivityLog)
	snapshot.AgentLogs = cacheValue[*protocol.AgentLogsData](cache, ProbeAgentLogs)
	snapshot.ErrorSummary = cacheValue[*protocol.ErrorSummaryData](cache, ProbeErrorSummary)
	snapshot.NetworkActivity = cacheValue[*protocol.NetworkActivityData](cache, ProbeNetworkActivity)
	snapshot.AgentFleet = cacheValue[*protocol.AgentFleetData](cache, ProbeAgentFleet)
	snapshot.AgentStatus = cacheValue[*protocol.AgentStatusData](cache, ProbeAgentStatus)
	snapshot.SecurityStatus = cacheValue[*protocol.SecurityStatusData](cache, ProbeSecurityStatus)
	snapshot.SSHLoginSummary = cacheValue[*protocol.SSHLoginSummaryData](cache, ProbeSSHLoginSummary)
	snapshot.ChannelsStatus = cacheValue[*protocol.ChannelsStatusData](cache, ProbeChannelsStatus)
	snapshot.UpdateStatus = cacheValue[*protocol.UpdateStatusData](cache, ProbeUpdateStatus)

	for _, key := range cache.Keys() {
		if collectedAt, ok := cache.CollectedAt(key); ok {
			snapshot.CollectedAt[key] = collectedAt
		}
	}

	snapshot.TopPeers = d.topPeers(snapshot.NetworkActivity)

	if d.trend != nil {
		snapshot.ServerTrends = d.trend.ServerTrends(d.ctx)
		snapshot.TokensPerHour = d.trend.AgentTokensPerHour(d.ctx)
		snapshot.TokenTrends = d.trend.AgentTokenTrends(d.ctx)
	}

	snapshot.ActionItems = collector.BuildActionItems(
		snapshot.CronJobs,
		snapshot.SecurityStatus,
		snapshot.ChannelsStatus,
		snapshot.UpdateStatus,
		snapshot.ServerHealth,
	)
	return snapshot
}

// topPeers 从网络活动中取连接数最多的来源 IP，
// 主机名走反向解析的两级缓存，解析失败时留空
func (d *Daemon) topPeers(network *protocol.NetworkActivityData) []protocol.TopPeer {
	if network == nil || len(network.PeerIPs) == 0 {
		return nil
	}
	peers := make([]protocol.TopPeer, 0, len(network.PeerIPs))
	for ip, count := range network.PeerIPs {
		peers = append(peers, protocol.TopPeer{IP: ip, Connections: count})
	}
	sort.Slice(peers, func(i, j int) bool {
		if peers[i].Connections != peers[j].Connections {
			return peers[i].Connections > peers[j].Connections
		}
		return peers[i].IP < peers[j].IP
	})
	if len(peers) > topPeerCount {
		peers = peers[:topPeerCount]
	}
	if d.dns != nil {
		for i := range peers {
			if hostname := d.dns.Resolve(d.ctx, peers[i].IP); hostname != lookup.UnknownHostname {
				peers[i].Hostname = hostname
			}
		}
	}
	return peers
}

// cacheValue 按类型读取缓存值，缺失或类型不符时返回零值
func cacheValue[T any](cache *TieredCache, key string) T {
	var zero T
	value, ok := cache.Get(key)
	if !ok {
		return zero
	}
	typed, ok := value.(T)
	if !ok {
		return zero
	}
	return typed
}

// zapCronLogger 把 cron 的日志接到 zap
type zapCronLogger struct {
	logger *zap.Logger
}

func (l *zapCronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug(msg, zap.Any("details", keysAndValues))
}

func (l *zapCronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error(msg, zap.Error(err), zap.Any("details", keysAndValues))
}
