// Package lookup 实现带速率限制的外部查询缓存：
// 反向 DNS、IP 地理位置、攻击来源端口扫描。
// 每类查询都是两级缓存：进程内 TTL 缓存 + 持久化表。
// 查询失败返回哨兵值且不写缓存，保证下次重试。
package lookup

import (
	"context"
	"net"
	"strings"
	"time"

	"github.com/dushixiang/opsdeck/internal/models"
	"github.com/dushixiang/opsdeck/internal/repo"
	"github.com/go-orz/cache"
	"go.uber.org/zap"
)

// UnknownHostname DNS 解析失败时的哨兵值
const UnknownHostname = "unknown"

// DNSTTL 反向解析缓存有效期
const DNSTTL = 24 * time.Hour

// dnsTimeout 单次解析超时
const dnsTimeout = 5 * time.Second

// DNSResolver 反向 DNS 解析器
type DNSResolver struct {
	logger   *zap.Logger
	repo     *repo.LookupRepo
	memCache cache.Cache[string, string]
	resolver *net.Resolver
}

// NewDNSResolver 创建反向 DNS 解析器
func NewDNSResolver(logger *zap.Logger, lookupRepo *repo.LookupRepo) *DNSResolver {
	return &DNSResolver{
		logger:   logger,
		repo:     lookupRepo,
		memCache: cache.New[string, string](time.Minute),
		resolver: net.DefaultResolver,
	}
}

// Resolve 反向解析 IP，命中缓存时直接返回
func (r *DNSResolver) Resolve(ctx context.Context, ip string) string {
	if hostname, ok := r.memCache.Get(ip); ok {
		return hostname
	}

	now := float64(time.Now().UnixNano()) / 1e9
	if entry, err := r.repo.FindDNS(ctx, ip); err == nil && entry != nil {
		if now-entry.ResolvedAt < DNSTTL.Seconds() {
			r.memCache.Set(ip, entry.Hostname, DNSTTL)
			return entry.Hostname
		}
	}

	hostname := r.reverseLookup(ctx, ip)
	if hostname == UnknownHostname {
		// 失败不写缓存，下个冰川周期重试
		return hostname
	}

	r.memCache.Set(ip, hostname, DNSTTL)
	if err := r.repo.SaveDNS(ctx, &models.DNSCacheEntry{
		IP:         ip,
		Hostname:   hostname,
		ResolvedAt: now,
	}); err != nil {
		r.logger.Warn("写入 DNS 缓存失败", zap.String("ip", ip), zap.Error(err))
	}
	return hostname
}

// reverseLookup 执行 PTR 查询，失败返回哨兵值
func (r *DNSResolver) reverseLookup(ctx context.Context, ip string) string {
	ctx, cancel := context.WithTimeout(ctx, dnsTimeout)
	defer cancel()

	names, err := r.resolver.LookupAddr(ctx, ip)
	if err != nil || len(names) == 0 {
		return UnknownHostname
	}
	hostname := strings.TrimSuffix(names[0], ".")
	if hostname == "" {
		return UnknownHostname
	}
	return hostname
}
