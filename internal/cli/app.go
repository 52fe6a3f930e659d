package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/dushixiang/opsdeck/internal/collector"
	"github.com/dushixiang/opsdeck/internal/config"
	"github.com/dushixiang/opsdeck/internal/database"
	"github.com/dushixiang/opsdeck/internal/logger"
	"github.com/dushixiang/opsdeck/internal/lookup"
	"github.com/dushixiang/opsdeck/internal/protocol"
	"github.com/dushixiang/opsdeck/internal/repo"
	"github.com/dushixiang/opsdeck/internal/scheduler"
	"github.com/dushixiang/opsdeck/internal/service"
	"github.com/dushixiang/opsdeck/internal/trend"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// commandTimeout 外部命令探针的默认超时
const commandTimeout = 10 * time.Second

// nmapTimeout 端口扫描类探针的超时
const nmapTimeout = 15 * time.Second

// app 组装完成的应用
type app struct {
	logger *zap.Logger
	cfg    *config.AppConfig
	db     *gorm.DB
	daemon *scheduler.Daemon
	repo   *repo.MetricRepo
}

// buildApp 按配置组装完整应用：数据库、采集器、探针、富化、守护进程
func buildApp(configPath string) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	log := logger.New(cfg.Log)

	dbPath := cfg.Database
	if dbPath == "" {
		dbPath = database.DefaultPath()
	}
	db, err := database.Open(log, dbPath)
	if err != nil {
		return nil, fmt.Errorf("打开数据库失败: %w", err)
	}

	metricRepo := repo.NewMetricRepo(db)
	lookupRepo := repo.NewLookupRepo(db)

	executor := collector.NewCommandExecutor(commandTimeout)
	nmapExecutor := collector.NewCommandExecutor(nmapTimeout)
	system := collector.NewSystemCollector()
	agents := collector.NewAgentCollector(cfg.AgentCLI, executor)
	cronJobs := collector.NewCronCollector(cfg.AgentCLI, executor)
	security := collector.NewSecurityCollector(cfg.AuthLog, executor, nmapExecutor)
	network := collector.NewNetworkCollector(executor)
	sshLog := collector.NewSSHLogCollector(cfg.AuthLog)
	logs := collector.NewLogCollector(cfg.AgentCLI, cfg.AuthLog, executor, cronJobs)

	cache := scheduler.NewTieredCache()
	intervals := scheduler.DefaultIntervals(cfg.FastInterval())
	sched := scheduler.NewScheduler(log, cache, intervals)
	sched.SetRecorder(service.NewRecorder(log, metricRepo))
	dns := lookup.NewDNSResolver(log, lookupRepo)
	sched.SetEnricher(scheduler.NewEnricher(
		log,
		dns,
		lookup.NewGeoLocator(log, lookupRepo, cfg.GeoAPI),
		lookup.NewAttackerScanner(log, lookupRepo),
	))
	registerProbes(sched, cache, system, agents, cronJobs, security, network, sshLog, logs)

	trendCalc := trend.NewCalculator(log, metricRepo)
	daemon := scheduler.NewDaemon(log, sched, trendCalc, metricRepo, cfg.FastInterval(), cfg.Retention())
	daemon.SetDNSResolver(dns)

	return &app{
		logger: log,
		cfg:    cfg,
		db:     db,
		daemon: daemon,
		repo:   metricRepo,
	}, nil
}

// registerProbes 注册全部探针。错误汇总探针复用缓存里的 SSH 登录汇总，
// 不重复扫日志。
func registerProbes(
	sched *scheduler.Scheduler,
	cache *scheduler.TieredCache,
	system *collector.SystemCollector,
	agents *collector.AgentCollector,
	cronJobs *collector.CronCollector,
	security *collector.SecurityCollector,
	network *collector.NetworkCollector,
	sshLog *collector.SSHLogCollector,
	logs *collector.LogCollector,
) {
	sched.Register(
		scheduler.Probe{
			Name: scheduler.ProbeServerHealth,
			Tier: scheduler.TierFast,
			Run: func(ctx context.Context) (any, error) {
				return system.CollectHealth(ctx)
			},
		},
		scheduler.Probe{
			Name: scheduler.ProbeTopProcesses,
			Tier: scheduler.TierFast,
			Run: func(ctx context.Context) (any, error) {
				return system.CollectTopProcesses(ctx, 5)
			},
		},
		scheduler.Probe{
			Name: scheduler.ProbeCronJobs,
			Tier: scheduler.TierMedium,
			Run: func(ctx context.Context) (any, error) {
				return cronJobs.Collect(ctx)
			},
		},
		scheduler.Probe{
			Name: scheduler.ProbeActivityLog,
			Tier: scheduler.TierMedium,
			Run: func(ctx context.Context) (any, error) {
				return logs.CollectActivity(ctx, 20)
			},
		},
		scheduler.Probe{
			Name: scheduler.ProbeAgentLogs,
			Tier: scheduler.TierMedium,
			Run: func(ctx context.Context) (any, error) {
				return logs.CollectAgentLogs(ctx, 20)
			},
		},
		scheduler.Probe{
			Name: scheduler.ProbeErrorSummary,
			Tier: scheduler.TierMedium,
			Run: func(ctx context.Context) (any, error) {
				var summary *protocol.SSHLoginSummaryData
				if value, ok := cache.Get(scheduler.ProbeSSHLoginSummary); ok {
					summary, _ = value.(*protocol.SSHLoginSummaryData)
				}
				return logs.CollectErrorSummary(ctx, summary)
			},
		},
		scheduler.Probe{
			Name: scheduler.ProbeNetworkActivity,
			Tier: scheduler.TierMedium,
			Run: func(ctx context.Context) (any, error) {
				return network.Collect(ctx)
			},
		},
		scheduler.Probe{
			Name: scheduler.ProbeAgentFleet,
			Tier: scheduler.TierSlow,
			Run: func(ctx context.Context) (any, error) {
				return agents.CollectFleet(ctx)
			},
		},
		scheduler.Probe{
			Name: scheduler.ProbeAgentStatus,
			Tier: scheduler.TierSlow,
			Run: func(ctx context.Context) (any, error) {
				return agents.CollectStatus(ctx)
			},
		},
		scheduler.Probe{
			Name:    scheduler.ProbeSecurityStatus,
			Tier:    scheduler.TierSlow,
			Timeout: nmapTimeout,
			Run: func(ctx context.Context) (any, error) {
				return security.Collect(ctx)
			},
		},
		scheduler.Probe{
			Name: scheduler.ProbeSSHLoginSummary,
			Tier: scheduler.TierSlow,
			Run: func(ctx context.Context) (any, error) {
				return sshLog.Collect(ctx)
			},
		},
		scheduler.Probe{
			Name: scheduler.ProbeChannelsStatus,
			Tier: scheduler.TierSlow,
			Run: func(ctx context.Context) (any, error) {
				return agents.CollectChannels(ctx)
			},
		},
		scheduler.Probe{
			Name: scheduler.ProbeUpdateStatus,
			Tier: scheduler.TierSlow,
			Run: func(ctx context.Context) (any, error) {
				return agents.CollectUpdate(ctx)
			},
		},
	)
}
