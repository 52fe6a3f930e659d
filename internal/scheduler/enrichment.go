package scheduler

import (
	"context"

	"github.com/dushixiang/opsdeck/internal/lookup"
	"github.com/dushixiang/opsdeck/internal/protocol"
	"go.uber.org/zap"
)

// maxEnrichIPs 每个冰川周期最多富化的攻击来源 IP 数
const maxEnrichIPs = 5

// Enricher 冰川层富化：对失败登录次数最多的来源 IP
// 逐个执行反向 DNS、地理位置查询和端口扫描。
// 三类查询各自带两级缓存，串行执行以尊重外部接口限速。
type Enricher struct {
	logger  *zap.Logger
	dns     *lookup.DNSResolver
	geo     *lookup.GeoLocator
	scanner *lookup.AttackerScanner
}

func NewEnricher(logger *zap.Logger, dns *lookup.DNSResolver, geo *lookup.GeoLocator, scanner *lookup.AttackerScanner) *Enricher {
	return &Enricher{
		logger:  logger,
		dns:     dns,
		geo:     geo,
		scanner: scanner,
	}
}

// Enrich 取缓存中 SSH 登录汇总的前几个失败来源 IP 做富化，
// 解析出的主机名回填进缓存副本后原子替换，采集时间保持不变。
func (e *Enricher) Enrich(ctx context.Context, cache *TieredCache) error {
	value, ok := cache.Get(ProbeSSHLoginSummary)
	if !ok {
		return nil
	}
	summary, ok := value.(*protocol.SSHLoginSummaryData)
	if !ok || len(summary.Failed) == 0 {
		return nil
	}
	collectedAt, _ := cache.CollectedAt(ProbeSSHLoginSummary)

	// 在副本上回填，避免读方看到半成品
	enriched := &protocol.SSHLoginSummaryData{
		Accepted: append([]protocol.SSHLoginEntry(nil), summary.Accepted...),
		Failed:   append([]protocol.SSHLoginEntry(nil), summary.Failed...),
	}

	limit := len(enriched.Failed)
	if limit > maxEnrichIPs {
		limit = maxEnrichIPs
	}
	for i := 0; i < limit; i++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		ip := enriched.Failed[i].IP

		hostname := e.dns.Resolve(ctx, ip)
		if hostname != lookup.UnknownHostname {
			enriched.Failed[i].Hostname = hostname
		}

		geo := e.geo.Locate(ctx, ip)
		scan := e.scanner.Scan(ctx, ip)
		e.logger.Debug("攻击来源富化完成",
			zap.String("ip", ip),
			zap.String("hostname", hostname),
			zap.String("country", geo.CountryCode),
			zap.String("openPorts", scan.OpenPorts))
	}

	cache.PutAt(ProbeSSHLoginSummary, enriched, collectedAt)
	return nil
}
