package lookup

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/dushixiang/opsdeck/internal/collector"
	"github.com/dushixiang/opsdeck/internal/models"
	"github.com/dushixiang/opsdeck/internal/protocol"
	"github.com/dushixiang/opsdeck/internal/repo"
	"github.com/go-orz/cache"
	"go.uber.org/zap"
)

// ScanTTL 端口扫描结果缓存有效期
const ScanTTL = 6 * time.Hour

// scanTimeout 单次扫描超时
const scanTimeout = 15 * time.Second

// openPortPattern 匹配 nmap 输出中的开放端口行，如 "22/tcp open ssh"
var openPortPattern = regexp.MustCompile(`^(\d+)/tcp\s+open\s+(\S+)`)

// AttackerScanner 对攻击来源 IP 做轻量端口扫描
type AttackerScanner struct {
	logger   *zap.Logger
	repo     *repo.LookupRepo
	memCache cache.Cache[string, *protocol.ScanResult]
	executor *collector.CommandExecutor
}

// NewAttackerScanner 创建攻击来源扫描器
func NewAttackerScanner(logger *zap.Logger, lookupRepo *repo.LookupRepo) *AttackerScanner {
	return &AttackerScanner{
		logger:   logger,
		repo:     lookupRepo,
		memCache: cache.New[string, *protocol.ScanResult](time.Minute),
		executor: collector.NewCommandExecutor(scanTimeout),
	}
}

// Scan 扫描指定 IP 的常见端口，命中缓存时不发起扫描
func (s *AttackerScanner) Scan(ctx context.Context, ip string) *protocol.ScanResult {
	if result, ok := s.memCache.Get(ip); ok {
		return result
	}

	now := float64(time.Now().UnixNano()) / 1e9
	if entry, err := s.repo.FindScan(ctx, ip); err == nil && entry != nil {
		if now-entry.ScannedAt < ScanTTL.Seconds() {
			result := &protocol.ScanResult{
				OpenPorts: entry.OpenPorts,
				OSGuess:   entry.OSGuess,
			}
			s.memCache.Set(ip, result, ScanTTL)
			return result
		}
	}

	output, err := s.executor.Execute(ctx, "nmap", "-sT", "--top-ports", "20", ip)
	if err != nil {
		s.logger.Debug("端口扫描失败", zap.String("ip", ip), zap.Error(err))
		// 失败不写缓存
		return &protocol.ScanResult{OSGuess: UnknownHostname}
	}

	result := parseScanOutput(output)
	s.memCache.Set(ip, result, ScanTTL)
	if err := s.repo.SaveScan(ctx, &models.AttackerScan{
		IP:        ip,
		OpenPorts: result.OpenPorts,
		OSGuess:   result.OSGuess,
		ScannedAt: now,
	}); err != nil {
		s.logger.Warn("写入扫描缓存失败", zap.String("ip", ip), zap.Error(err))
	}
	return result
}

// parseScanOutput 提取开放端口并按端口特征粗判操作系统
func parseScanOutput(output string) *protocol.ScanResult {
	result := &protocol.ScanResult{OSGuess: UnknownHostname}
	var ports []string
	for _, line := range strings.Split(output, "\n") {
		matches := openPortPattern.FindStringSubmatch(strings.TrimSpace(line))
		if matches == nil {
			continue
		}
		ports = append(ports, matches[1])
		switch matches[1] {
		case "3389", "445", "135":
			result.OSGuess = "Windows"
		case "22":
			if result.OSGuess == UnknownHostname {
				result.OSGuess = "Linux"
			}
		}
	}
	result.OpenPorts = strings.Join(ports, ",")
	return result
}
